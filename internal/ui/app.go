// Copyright (c) 2025 Duet Chat Project
// SPDX-License-Identifier: AGPL-3.0-or-later

package ui

import (
	"context"
	"path/filepath"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/duetchat/duet-tui/internal/api"
	"github.com/duetchat/duet-tui/internal/config"
	"github.com/duetchat/duet-tui/internal/export"
	"github.com/duetchat/duet-tui/internal/model"
	"github.com/duetchat/duet-tui/internal/modes"
	"github.com/duetchat/duet-tui/internal/orchestrator"
	"github.com/duetchat/duet-tui/internal/registry"
	"github.com/duetchat/duet-tui/internal/render"
	"github.com/duetchat/duet-tui/internal/tabs"
)

// =============================================================================
// PHASES AND MESSAGES
// =============================================================================

// phase is the send-cycle state of the active conversation.
type phase int

const (
	phaseReady     phase = iota // accepting input
	phaseWaiting                // exchange in flight, typing indicator up
	phaseRevealing              // reply streaming into the transcript
)

type (
	// replyMsg delivers the raw exchange result; integration happens on the
	// Update goroutine, which owns the registry.
	replyMsg struct{ reply orchestrator.Reply }

	// revealChunkMsg appends one revealed unit to the transcript.
	revealChunkMsg struct{ chunk string }

	// revealDoneMsg ends the reveal phase.
	revealDoneMsg struct{}

	// statusTickMsg refreshes the backend status indicator.
	statusTickMsg struct{}

	// configReloadedMsg carries a live-reloaded configuration.
	configReloadedMsg struct{ cfg *config.Config }

	// modelListMsg carries the backend's installed sub-models.
	modelListMsg struct{ models []string }
)

// statusTickEvery paces status indicator refreshes. The API client throttles
// actual probes further.
const statusTickEvery = 5 * time.Second

// =============================================================================
// PROGRAM SINK
// =============================================================================

// programSink feeds revealed chunks into the Bubble Tea message loop. The
// revealer calls it from timer goroutines; Send is safe there.
type programSink struct {
	program *tea.Program
}

func (s *programSink) Append(chunk string) {
	if s.program != nil {
		s.program.Send(revealChunkMsg{chunk: chunk})
	}
}

// ScrollToBottom is a no-op; the model pins the viewport on every chunk.
func (s *programSink) ScrollToBottom() {}

// =============================================================================
// APP MODEL
// =============================================================================

// App is the Bubble Tea model for the whole chat surface.
type App struct {
	cfg      *config.Config
	registry *registry.Registry
	selector *modes.Selector
	tabs     *tabs.Controller
	orch     *orchestrator.Orchestrator
	client   *api.Client

	revealer *render.Revealer
	sink     *programSink

	viewport viewport.Model
	input    textinput.Model
	spinner  spinner.Model
	keys     KeyMap

	width  int
	height int
	ready  bool

	phase       phase
	revealBuf   string
	revealKind  model.Kind
	reasoning   render.Reasoning
	showReason  bool
	showHistory bool
	online      bool
	statusMsg   string
}

// NewApp wires the chat surface over its collaborators.
func NewApp(cfg *config.Config, reg *registry.Registry, sel *modes.Selector,
	orch *orchestrator.Orchestrator, client *api.Client) *App {

	input := textinput.New()
	input.Placeholder = "Select or Start a Chat..."
	input.CharLimit = 4000
	input.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	sink := &programSink{}
	revealer := render.NewRevealer(sink, render.TimerScheduler{})
	revealer.SetDelays(cfg.RevealDelays())

	app := &App{
		cfg:      cfg,
		registry: reg,
		selector: sel,
		tabs:     tabs.NewController(reg),
		orch:     orch,
		client:   client,
		revealer: revealer,
		sink:     sink,
		input:    input,
		spinner:  sp,
		keys:     DefaultKeyMap(),
	}
	reg.SetChangeHook(app.refreshTranscript)
	app.syncPlaceholder()
	return app
}

// SetProgram hands the running program to the reveal sink. Must be called
// before Run processes the first message.
func (a *App) SetProgram(p *tea.Program) {
	a.sink.program = p
}

// ApplyConfig installs a live-reloaded configuration. The orchestrator's
// sub-model resolver is repointed so a reload cannot strand it on the old
// config object.
func (a *App) ApplyConfig(cfg *config.Config) {
	a.cfg = cfg
	a.revealer.SetDelays(cfg.RevealDelays())
	a.orch.SetSubModelResolver(cfg.SubModel)
}

// Init implements tea.Model.
func (a *App) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, a.statusTick())
}

func (a *App) statusTick() tea.Cmd {
	return tea.Tick(statusTickEvery, func(time.Time) tea.Msg {
		return statusTickMsg{}
	})
}

// =============================================================================
// UPDATE
// =============================================================================

// Update implements tea.Model.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.layout()
		a.refreshTranscript()
		return a, nil

	case tea.KeyMsg:
		return a.handleKey(msg)

	case replyMsg:
		return a.handleReply(msg.reply)

	case revealChunkMsg:
		a.revealBuf += msg.chunk
		a.refreshTranscript()
		a.viewport.GotoBottom()
		return a, nil

	case revealDoneMsg:
		a.phase = phaseReady
		a.revealBuf = ""
		a.refreshTranscript()
		a.viewport.GotoBottom()
		return a, nil

	case statusTickMsg:
		return a, tea.Batch(a.probeStatus(), a.statusTick())

	case statusResultMsg:
		a.online = bool(msg)
		return a, nil

	case configReloadedMsg:
		a.ApplyConfig(msg.cfg)
		return a, nil

	case modelListMsg:
		a.cycleSubModel(msg.models)
		return a, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		if a.phase == phaseWaiting {
			a.refreshTranscript()
		}
		return a, cmd
	}

	var cmd tea.Cmd
	a.input, cmd = a.input.Update(msg)
	return a, cmd
}

// statusResultMsg carries one status probe result.
type statusResultMsg bool

func (a *App) probeStatus() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return statusResultMsg(a.client.Online(ctx))
	}
}

func (a *App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, a.keys.Quit):
		return a, tea.Quit

	case key.Matches(msg, a.keys.SkipReveal):
		if a.phase == phaseRevealing {
			a.revealer.Skip()
			return a, nil
		}
		if a.showHistory {
			a.showHistory = false
			a.refreshTranscript()
		}
		return a, nil

	case key.Matches(msg, a.keys.Send):
		return a, a.send()

	case key.Matches(msg, a.keys.NewChat):
		if a.phase == phaseReady {
			a.registry.StartNew("")
			a.afterSessionChange()
		}
		return a, nil

	case key.Matches(msg, a.keys.CloseTab):
		if a.phase == phaseReady {
			a.tabs.Close(a.registry.ActiveID())
			a.afterSessionChange()
		}
		return a, nil

	case key.Matches(msg, a.keys.NextTab):
		if a.phase == phaseReady {
			a.tabs.Cycle()
			a.afterSessionChange()
		}
		return a, nil

	case key.Matches(msg, a.keys.Regenerate):
		return a, a.regenerate()

	case key.Matches(msg, a.keys.TogglePersona):
		if a.phase == phaseReady {
			a.selector.SetPersona(model.PersonaFor(a.selector.PersonaKind().Other()).Label)
			a.syncPlaceholder()
		}
		return a, nil

	case key.Matches(msg, a.keys.CycleMode):
		a.cycleMode()
		return a, nil

	case key.Matches(msg, a.keys.ToggleReason):
		a.showReason = !a.showReason
		a.refreshTranscript()
		return a, nil

	case key.Matches(msg, a.keys.History):
		a.showHistory = !a.showHistory
		a.refreshTranscript()
		return a, nil

	case key.Matches(msg, a.keys.Export):
		a.exportActive()
		return a, nil

	case key.Matches(msg, a.keys.CopyReply):
		a.copyLastReply()
		return a, nil

	case key.Matches(msg, a.keys.Feedback):
		if sess := a.registry.Active(); sess != nil && !sess.Empty() {
			a.statusMsg = "Thanks for the feedback."
		}
		return a, nil

	case key.Matches(msg, a.keys.CycleModel):
		return a, a.fetchModels()
	}

	if a.showHistory {
		if cmd := a.historyKey(msg); cmd != nil {
			return a, cmd
		}
	}

	var cmd tea.Cmd
	a.input, cmd = a.input.Update(msg)
	return a, cmd
}

// historyKey handles numeric selection inside the history overlay.
func (a *App) historyKey(msg tea.KeyMsg) tea.Cmd {
	r := msg.String()
	if len(r) != 1 || r[0] < '1' || r[0] > '9' {
		return nil
	}
	idx := int(r[0] - '1')
	hist := a.registry.History()
	if idx >= len(hist) {
		return nil
	}
	a.registry.Activate(hist[idx].ID)
	a.showHistory = false
	a.afterSessionChange()
	return nil
}

// exportActive writes the active session as markdown next to the config.
func (a *App) exportActive() {
	sess := a.registry.Active()
	if sess == nil || sess.Empty() {
		return
	}

	dir, err := config.ConfigDir()
	if err != nil {
		a.statusMsg = "export failed: " + err.Error()
		return
	}
	path, err := export.ToFile(&export.MarkdownExporter{IncludeTimestamps: true},
		sess, filepath.Join(dir, "exports"))
	if err != nil {
		a.statusMsg = "export failed: " + err.Error()
		return
	}
	a.statusMsg = "exported to " + path
}

// copyLastReply puts the plain text of the last assistant turn on the system
// clipboard. Reasoning segments are not copied.
func (a *App) copyLastReply() {
	sess := a.registry.Active()
	if sess == nil {
		return
	}
	last := sess.LastMessage()
	if last == nil || last.Role != model.RoleAssistant {
		return
	}

	_, visible := render.ExtractReasoning(last.Content)
	plain := render.StripTags(render.Format(visible))
	if err := clipboard.WriteAll(plain); err != nil {
		a.statusMsg = "copy failed: " + err.Error()
		return
	}
	a.statusMsg = "reply copied"
}

// fetchModels lists the installed sub-models off the Update loop.
func (a *App) fetchModels() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return modelListMsg{models: a.client.Models(ctx)}
	}
}

// cycleSubModel advances the selected persona's sub-model preference through
// the installed list and persists the choice.
func (a *App) cycleSubModel(models []string) {
	if len(models) == 0 {
		return
	}
	kind := a.selector.PersonaKind()
	current := a.cfg.SubModel(kind)
	if current == "" {
		current = model.PersonaFor(kind).DefaultModel
	}

	next := nextModel(models, current)
	a.cfg.SetSubModel(kind, next)
	if err := config.Save(a.cfg); err != nil {
		a.statusMsg = "model save failed: " + err.Error()
		return
	}
	a.statusMsg = model.PersonaFor(kind).Label + " model: " + next
}

// nextModel returns the entry after current, wrapping around. An unknown
// current selection lands on the first entry.
func nextModel(models []string, current string) string {
	for i, m := range models {
		if m == current {
			return models[(i+1)%len(models)]
		}
	}
	return models[0]
}

// cycleMode advances to the next legal mode of the selected persona.
func (a *App) cycleMode() {
	cfg := a.selector.CurrentConfig()
	legal := a.selector.Modes()
	for i, m := range legal {
		if m == cfg.Mode {
			a.selector.SetMode(cfg.Persona, legal[(i+1)%len(legal)])
			return
		}
	}
}

// =============================================================================
// SEND CYCLE
// =============================================================================

func (a *App) send() tea.Cmd {
	if a.phase != phaseReady {
		return nil
	}
	text := a.input.Value()
	if text == "" {
		return nil
	}
	a.input.Reset()

	ticket := a.orch.Send(text)
	a.phase = phaseWaiting
	a.afterSessionChange()

	return tea.Batch(a.spinner.Tick, a.exchange(ticket))
}

func (a *App) regenerate() tea.Cmd {
	if a.phase != phaseReady {
		return nil
	}
	ticket := a.orch.Regenerate()
	if ticket == nil {
		return nil
	}
	a.phase = phaseWaiting
	a.refreshTranscript()
	a.viewport.GotoBottom()
	return tea.Batch(a.spinner.Tick, a.exchange(ticket))
}

// exchange runs the network phase in a command goroutine. Only the immutable
// ticket crosses over; no session state is touched off the Update loop.
func (a *App) exchange(t *orchestrator.Ticket) tea.Cmd {
	return func() tea.Msg {
		return replyMsg{reply: a.orch.Exchange(context.Background(), t)}
	}
}

func (a *App) handleReply(r orchestrator.Reply) (tea.Model, tea.Cmd) {
	out := a.orch.Integrate(r)

	// Error turns and replies for sessions no longer on screen render
	// statically; only a live reply gets the typewriter.
	if out.IsError || out.Markup == "" || out.SessionID != a.registry.ActiveID() {
		a.phase = phaseReady
		a.refreshTranscript()
		a.viewport.GotoBottom()
		return a, nil
	}

	a.phase = phaseRevealing
	a.revealBuf = ""
	a.reasoning = out.Reasoning
	if sess := a.registry.Active(); sess != nil {
		a.revealKind = sess.Kind
	}
	a.refreshTranscript()
	a.viewport.GotoBottom()

	markup := out.Markup
	return a, func() tea.Msg {
		a.revealer.Reveal(markup, func() {
			if a.sink.program != nil {
				a.sink.program.Send(revealDoneMsg{})
			}
		})
		return nil
	}
}

// =============================================================================
// LAYOUT HELPERS
// =============================================================================

func (a *App) layout() {
	chromeHeight := 4 // tab bar, input, status
	h := a.height - chromeHeight
	if h < 3 {
		h = 3
	}
	if !a.ready {
		a.viewport = viewport.New(a.width, h)
		a.ready = true
	} else {
		a.viewport.Width = a.width
		a.viewport.Height = h
	}
	a.input.Width = a.width - 4
}

func (a *App) afterSessionChange() {
	if sess := a.registry.Active(); sess != nil {
		a.selector.SetPersona(model.PersonaFor(sess.Kind).Label)
	}
	a.syncPlaceholder()
	a.refreshTranscript()
	a.viewport.GotoBottom()
}

func (a *App) syncPlaceholder() {
	if a.registry.ActiveID() == "" {
		a.input.Placeholder = "Select or Start a Chat..."
		return
	}
	a.input.Placeholder = "Message " + model.PersonaFor(a.selector.PersonaKind()).Label + "..."
}

func (a *App) refreshTranscript() {
	if !a.ready {
		return
	}
	a.viewport.SetContent(a.transcriptView())
}

var _ tea.Model = (*App)(nil)

// ConfigReloaded wraps a live-reloaded config for delivery into the
// program's message loop.
func ConfigReloaded(cfg *config.Config) tea.Msg {
	return configReloadedMsg{cfg: cfg}
}

// personaHeader renders a persona's name line for the transcript.
func personaHeader(kind model.Kind) string {
	return personaLabelStyle(kind).Render(model.PersonaFor(kind).Label)
}

// accentDot renders the colored tab indicator.
func accentDot(kind model.Kind) string {
	return lipgloss.NewStyle().Foreground(AccentColor(kind)).Render("●")
}
