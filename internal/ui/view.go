// Copyright (c) 2025 Duet Chat Project
// SPDX-License-Identifier: AGPL-3.0-or-later

package ui

import (
	"strconv"
	"strings"
	"time"

	"github.com/duetchat/duet-tui/internal/model"
	"github.com/duetchat/duet-tui/internal/render"
)

// View implements tea.Model.
func (a *App) View() string {
	if !a.ready {
		return "Loading..."
	}

	var b strings.Builder
	if bar := a.tabBarView(); bar != "" {
		b.WriteString(bar + "\n")
	}
	b.WriteString(a.viewport.View() + "\n")
	b.WriteString(a.input.View() + "\n")
	b.WriteString(a.statusBarView())
	return styleAppFrame.Render(b.String())
}

// =============================================================================
// TAB BAR
// =============================================================================

// tabBarView renders the open tabs, or nothing when no tab is open.
func (a *App) tabBarView() string {
	if !a.tabs.Visible() {
		return ""
	}

	var parts []string
	for _, entry := range a.tabs.Entries() {
		label := accentDot(entry.Kind) + " " + entry.Label
		if entry.Active {
			parts = append(parts, styleTabActive.Render(label))
		} else {
			parts = append(parts, styleTab.Render(label))
		}
	}
	return strings.Join(parts, " ")
}

// =============================================================================
// TRANSCRIPT
// =============================================================================

// transcriptView renders the active conversation into the viewport.
func (a *App) transcriptView() string {
	if a.showHistory {
		return a.historyView()
	}

	sess := a.registry.Active()
	if sess == nil {
		return a.welcomeView(render.WelcomeFor(a.selector.PersonaKind()))
	}

	blocks := render.ProjectSession(sess)

	// During a reveal the final assistant turn is already persisted; hold it
	// back and stream the reveal buffer in its place.
	if a.phase == phaseRevealing && len(sess.Messages) > 0 {
		blocks = render.ProjectSession(heldBackSession(sess))
	}

	var b strings.Builder
	for _, blk := range blocks {
		b.WriteString(a.blockView(blk))
	}

	switch a.phase {
	case phaseWaiting:
		b.WriteString(a.blockView(render.TypingBlock(sess.Kind)))
	case phaseRevealing:
		if a.reasoning.Present {
			b.WriteString(a.reasoningView(render.Format(a.reasoning.Text)))
		}
		b.WriteString(personaHeader(a.revealKind) + "\n")
		b.WriteString(renderMarkup(a.revealBuf, a.viewport.Width) + "▋\n")
	}

	return b.String()
}

// heldBackSession clones the session minus its final assistant turn.
func heldBackSession(sess *model.Session) *model.Session {
	clone := sess.Clone()
	if last := clone.LastMessage(); last != nil && last.Role == model.RoleAssistant {
		clone.Messages = clone.Messages[:len(clone.Messages)-1]
	}
	return clone
}

// blockView renders one projected block.
func (a *App) blockView(blk render.Block) string {
	switch blk.Kind {
	case render.BlockWelcome:
		return a.welcomeView(*blk.Welcome)

	case render.BlockThinking:
		return a.reasoningView(blk.Markup)

	case render.BlockTyping:
		return personaHeader(blk.Persona) + "\n" +
			a.spinner.View() + styleThinkingHeader.Render(" thinking...") + "\n"

	case render.BlockMessage:
		var b strings.Builder
		if blk.Role == model.RoleUser {
			b.WriteString(styleUserLabel.Render("You") + "\n")
		} else {
			b.WriteString(personaHeader(blk.Persona) + "\n")
		}
		for _, att := range blk.Attachments {
			b.WriteString(styleAttachment.Render("[Attachment: "+att.OriginalName+"]") + "\n")
		}
		body := renderMarkup(blk.Markup, a.viewport.Width)
		if blk.Role == model.RoleAssistant && strings.HasPrefix(blk.Markup, "Error: ") {
			body = styleErrorTurn.Render(render.StripTags(blk.Markup))
		}
		b.WriteString(body + "\n\n")
		return b.String()
	}
	return ""
}

// reasoningView renders a collapsible reasoning block. Collapsed it is a
// single header line; expanded the reasoning body follows, muted.
func (a *App) reasoningView(markup string) string {
	arrow := "▸"
	if a.showReason {
		arrow = "▾"
	}
	header := styleThinkingHeader.Render(arrow + " Thinking Process (ctrl+t)")
	if !a.showReason {
		return header + "\n"
	}

	var b strings.Builder
	b.WriteString(header + "\n")
	for _, line := range strings.Split(render.StripTags(markup), "\n") {
		b.WriteString(styleThinkingHeader.Render("  "+line) + "\n")
	}
	return b.String()
}

// welcomeView renders the empty-session screen for a persona.
func (a *App) welcomeView(w render.Welcome) string {
	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(styleWelcomeTitle.Render(w.Title) + "\n")
	b.WriteString(accentTextStyle(w.Accent).Render(w.Description) + "\n\n")
	for _, s := range w.Suggestions {
		b.WriteString(styleSuggestion.Render("· "+s) + "\n")
	}
	return b.String()
}

// historyView renders the session history overlay.
func (a *App) historyView() string {
	hist := a.registry.History()

	var b strings.Builder
	b.WriteString(styleWelcomeTitle.Render("History") + "  " +
		styleStatusBar.Render("press 1-9 to open, esc to close") + "\n\n")

	if len(hist) == 0 {
		b.WriteString(styleStatusBar.Render("No conversations yet.") + "\n")
		return b.String()
	}

	for i, sess := range hist {
		if i >= 9 {
			break
		}
		when := time.Unix(sess.UpdatedAt, 0).Format("Jan 2 15:04")
		line := strconv.Itoa(i+1) + ". " + accentDot(sess.Kind) + " " + sess.Preview() +
			"  " + styleTimestamp.Render(when)
		b.WriteString(line + "\n")
	}
	return b.String()
}

// =============================================================================
// STATUS BAR
// =============================================================================

func (a *App) statusBarView() string {
	var status string
	if a.online {
		status = styleStatusOnline.Render("● online")
	} else {
		status = styleStatusOffline.Render("● offline")
	}

	cfg := a.selector.CurrentConfig()
	mode := styleStatusBar.Render(cfg.Persona + " / " + string(cfg.Mode))

	hints := styleStatusBar.Render("enter send · ctrl+n new · tab switch · ctrl+r retry · ctrl+h history")
	line := status + "  " + mode + "  " + hints
	if a.statusMsg != "" {
		line += "  " + styleStatusBar.Render(a.statusMsg)
	}
	return line
}
