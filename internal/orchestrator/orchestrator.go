// Copyright (c) 2025 Duet Chat Project
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package orchestrator drives the send/receive flow of a conversation.
//
// A send runs in three phases. The synchronous phase resolves which session
// receives the message, appends and persists the user's turn, and clears the
// staged attachments; by the time it returns, the user's message is durable
// and visible regardless of what the network does next. The exchange phase
// performs the backend call; it reads only the immutable ticket and may run
// on any goroutine. The integrate phase folds the reply, or an error
// message, into the session; it mutates the registry and must run on the
// goroutine that owns it.
package orchestrator

import (
	"context"
	"errors"
	"io"

	"github.com/duetchat/duet-tui/internal/api"
	"github.com/duetchat/duet-tui/internal/model"
	"github.com/duetchat/duet-tui/internal/modes"
	"github.com/duetchat/duet-tui/internal/registry"
	"github.com/duetchat/duet-tui/internal/render"
)

// Canonical error messages surfaced as assistant turns. They are persisted
// into the transcript like any reply, so reload replays them.
const (
	errPrefix        = "Error: "
	errConnectionMsg = "Error: Connection failed."
)

// Orchestrator coordinates the registry, the mode selection, and the backend
// client for one user.
type Orchestrator struct {
	registry *registry.Registry
	selector *modes.Selector
	client   *api.Client

	// subModel resolves the preferred backend sub-model for a persona.
	// When nil, the persona's built-in default applies.
	subModel func(model.Kind) string

	// pending holds uploaded attachments staged for the next send.
	pending []model.Attachment
}

// New creates an orchestrator over the given collaborators.
func New(reg *registry.Registry, sel *modes.Selector, client *api.Client) *Orchestrator {
	return &Orchestrator{
		registry: reg,
		selector: sel,
		client:   client,
	}
}

// SetSubModelResolver installs the per-persona sub-model preference lookup.
func (o *Orchestrator) SetSubModelResolver(fn func(model.Kind) string) {
	o.subModel = fn
}

// =============================================================================
// ATTACHMENT STAGING
// =============================================================================

// AttachFile uploads file content to the backend and stages the resulting
// attachment for the next send. A rejected upload stages nothing.
func (o *Orchestrator) AttachFile(ctx context.Context, filename string, content io.Reader) (model.Attachment, error) {
	att, err := o.client.Upload(ctx, filename, content)
	if err != nil {
		return model.Attachment{}, err
	}
	o.pending = append(o.pending, att)
	return att, nil
}

// RemovePending unstages the attachment at the given index. Out-of-range
// indices are ignored.
func (o *Orchestrator) RemovePending(i int) {
	if i < 0 || i >= len(o.pending) {
		return
	}
	o.pending = append(o.pending[:i], o.pending[i+1:]...)
}

// Pending returns a snapshot of the staged attachments.
func (o *Orchestrator) Pending() []model.Attachment {
	out := make([]model.Attachment, len(o.pending))
	copy(out, o.pending)
	return out
}

// =============================================================================
// SEND
// =============================================================================

// Ticket carries one in-flight exchange from the synchronous send phase to
// the blocking exchange phase. It is immutable once issued, so it may cross
// goroutines freely.
type Ticket struct {
	SessionID string
	Request   api.ChatRequest
}

// Outcome is the integrated result of an exchange. Content is the persisted
// assistant turn; Markup is the formatted visible portion, ready for the
// reveal engine. Error outcomes render statically, without a reveal.
type Outcome struct {
	SessionID string
	Content   string
	Reasoning render.Reasoning
	Markup    string
	IsError   bool
}

// Send runs the synchronous phase for one user message.
//
// The receiving session is resolved from the selected persona: the active
// session if its kind matches, else the first open session of that kind,
// else a newly started one. The user's turn, with any staged attachments
// bound to it, is appended and persisted before returning. Staged
// attachments are cleared here, unconditionally, so a later network failure
// cannot resurrect them.
func (o *Orchestrator) Send(text string) *Ticket {
	kind := o.selector.PersonaKind()

	sess := o.registry.Active()
	if sess == nil || sess.Kind != kind {
		if existing := o.registry.FindOpenByKind(kind); existing != nil {
			o.registry.Activate(existing.ID)
			sess = existing
		} else {
			sess = o.registry.StartNew(kind)
		}
	}

	sess.Append(model.NewUserMessage(text, o.pending))
	o.pending = nil
	o.registry.PersistMutation(sess)

	return o.ticketFor(sess)
}

// ticketFor snapshots the request for a session's current history.
func (o *Orchestrator) ticketFor(sess *model.Session) *Ticket {
	cfg := o.selector.CurrentConfig()

	subModel := model.PersonaFor(sess.Kind).DefaultModel
	if o.subModel != nil {
		if m := o.subModel(sess.Kind); m != "" {
			subModel = m
		}
	}

	return &Ticket{
		SessionID: sess.ID,
		Request: api.ChatRequest{
			Model:     subModel,
			Messages:  sess.WireHistory(),
			Persona:   cfg.Persona,
			Mode:      string(cfg.Mode),
			SessionID: sess.ID,
		},
	}
}

// Reply is the raw result of the exchange phase, not yet part of any
// session. It is a plain value so it can cross goroutines freely.
type Reply struct {
	SessionID string
	Content   string
	IsError   bool
}

// Exchange runs the blocking backend call for a ticket. It reads only the
// ticket's snapshot and the HTTP client, never the registry or a session, so
// it is safe on any goroutine while the UI keeps rendering.
func (o *Orchestrator) Exchange(ctx context.Context, t *Ticket) Reply {
	content, err := o.client.Chat(ctx, t.Request)
	if err != nil {
		return Reply{SessionID: t.SessionID, Content: errorContent(err), IsError: true}
	}
	return Reply{SessionID: t.SessionID, Content: content}
}

// errorContent maps an exchange failure to its transcript message. Backend
// reported failures carry the backend's message; everything else collapses
// to the connection failure message.
func errorContent(err error) string {
	var be *api.BackendError
	if errors.As(err, &be) {
		return errPrefix + be.Message
	}
	return errConnectionMsg
}

// Integrate appends the reply as an assistant turn and builds the outcome.
// It mutates the session and the registry, so it belongs on the goroutine
// that owns them. A session closed or deleted while the exchange was in
// flight drops the reply; there is no transcript to attach it to.
func (o *Orchestrator) Integrate(r Reply) Outcome {
	out := Outcome{SessionID: r.SessionID, Content: r.Content, IsError: r.IsError}

	sess := o.findSession(r.SessionID)
	if sess == nil {
		return out
	}

	sess.Append(model.NewAssistantMessage(r.Content))
	o.registry.PersistMutation(sess)

	if !r.IsError {
		reasoning, visible := render.ExtractReasoning(r.Content)
		out.Reasoning = reasoning
		out.Markup = render.Format(visible)
	}
	return out
}

func (o *Orchestrator) findSession(id string) *model.Session {
	for _, s := range o.registry.OpenTabs() {
		if s.ID == id {
			return s
		}
	}
	return nil
}

// =============================================================================
// REGENERATE
// =============================================================================

// Regenerate discards the last assistant turn of the active session and
// re-runs the exchange over the remaining history. It returns nil when there
// is nothing to regenerate: no active session, an empty session, or a
// transcript not ending in an assistant turn.
func (o *Orchestrator) Regenerate() *Ticket {
	sess := o.registry.Active()
	if sess == nil {
		return nil
	}
	if !sess.PopLastAssistant() {
		return nil
	}
	o.registry.PersistMutation(sess)
	return o.ticketFor(sess)
}
