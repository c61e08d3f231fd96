// Copyright (c) 2025 Duet Chat Project
// SPDX-License-Identifier: AGPL-3.0-or-later

package orchestrator

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/duetchat/duet-tui/internal/api"
	"github.com/duetchat/duet-tui/internal/model"
	"github.com/duetchat/duet-tui/internal/modes"
	"github.com/duetchat/duet-tui/internal/registry"
	"github.com/duetchat/duet-tui/internal/render"
	"github.com/duetchat/duet-tui/internal/storage"
)

type fixture struct {
	orch *Orchestrator
	reg  *registry.Registry
	sel  *modes.Selector
}

// roundTrip runs both post-send phases back to back, the way the UI does
// once the command goroutine hands the reply back to the update loop.
func (f *fixture) roundTrip(t *Ticket) Outcome {
	return f.orch.Integrate(f.orch.Exchange(context.Background(), t))
}

func newFixture(t *testing.T, backendURL string) *fixture {
	t.Helper()
	store, err := storage.Open(filepath.Join(t.TempDir(), "sessions.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	reg := registry.New(store, storage.UserKey("tester"))
	sel := modes.NewSelector()
	return &fixture{
		orch: New(reg, sel, api.NewClient(backendURL, "tok")),
		reg:  reg,
		sel:  sel,
	}
}

// replyBackend answers every chat request with a fixed reply and records the
// last request body it saw.
func replyBackend(t *testing.T, reply string) (*httptest.Server, *api.ChatRequest) {
	t.Helper()
	last := &api.ChatRequest{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(last))
		json.NewEncoder(w).Encode(map[string]any{"success": true, "reply": reply})
	}))
	t.Cleanup(srv.Close)
	return srv, last
}

func deadBackend(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()
	return srv
}

// =============================================================================
// SEND PHASE
// =============================================================================

func TestSend_AppendsAndPersistsBeforeNetwork(t *testing.T) {
	// A backend that never answers sensibly; the send phase must not care.
	srv := deadBackend(t)
	f := newFixture(t, srv.URL)

	ticket := f.orch.Send("hello there")
	require.NotNil(t, ticket)

	sess := f.reg.Active()
	require.NotNil(t, sess)
	require.Len(t, sess.Messages, 1)
	assert.Equal(t, model.RoleUser, sess.Messages[0].Role)
	assert.Equal(t, "hello there", sess.Messages[0].Content)
	assert.Equal(t, sess.ID, ticket.SessionID)
}

func TestSend_ResolvesSessionFromSelectedPersona(t *testing.T) {
	srv, _ := replyBackend(t, "ok")
	f := newFixture(t, srv.URL)

	zily := f.reg.StartNew(model.KindZily)
	diszi := f.reg.StartNew(model.KindDiszi)
	require.Equal(t, diszi.ID, f.reg.ActiveID())

	// Selector says Zily while a Diszi tab is active: the message must land
	// in the existing open Zily session, not spawn a duplicate.
	f.sel.SetMode("Zily", model.ModeWrite)
	ticket := f.orch.Send("to zily")

	assert.Equal(t, zily.ID, ticket.SessionID)
	assert.Equal(t, zily.ID, f.reg.ActiveID())
	assert.Equal(t, 2, f.reg.OpenCount(), "no duplicate session spawned")
	require.Len(t, zily.Messages, 1)
}

func TestSend_StartsSessionWhenNoneOfKindOpen(t *testing.T) {
	srv, last := replyBackend(t, "ok")
	f := newFixture(t, srv.URL)

	f.sel.SetMode("Zily", model.ModeRoleplay)
	ticket := f.orch.Send("first contact")

	sess := f.reg.Active()
	require.NotNil(t, sess)
	assert.Equal(t, model.KindZily, sess.Kind)

	f.roundTrip(ticket)
	assert.Equal(t, "Zily", last.Persona)
	assert.Equal(t, "Roleplay", last.Mode)
	assert.Equal(t, sess.ID, last.SessionID)
}

func TestSend_BindsAndClearsPendingAttachments(t *testing.T) {
	srv, last := replyBackend(t, "ok")
	f := newFixture(t, srv.URL)

	f.orch.pending = []model.Attachment{
		{URL: "/files/a.png", FileType: model.AttachmentImage, OriginalName: "a.png"},
	}

	ticket := f.orch.Send("see attached")
	assert.Empty(t, f.orch.Pending(), "staging area cleared by send")

	sess := f.reg.Active()
	require.Len(t, sess.Messages[0].Attachments, 1)

	// Attachment context travels inline in the wire history.
	f.roundTrip(ticket)
	require.NotEmpty(t, last.Messages)
	assert.Contains(t, last.Messages[0].Content, "[Attachment: a.png]")
}

func TestSend_ClearsPendingEvenWhenExchangeFails(t *testing.T) {
	srv := deadBackend(t)
	f := newFixture(t, srv.URL)

	f.orch.pending = []model.Attachment{{URL: "/files/x.bin", OriginalName: "x.bin"}}
	ticket := f.orch.Send("doomed")
	f.roundTrip(ticket)

	assert.Empty(t, f.orch.Pending(), "failed exchange must not resurrect staged attachments")
}

// =============================================================================
// EXCHANGE AND INTEGRATE
// =============================================================================

func TestExchange_LeavesSessionStateUntouched(t *testing.T) {
	srv, _ := replyBackend(t, "later")
	f := newFixture(t, srv.URL)

	ticket := f.orch.Send("hold on")
	sess := f.reg.Active()
	require.Len(t, sess.Messages, 1)

	// The network phase must not append, persist, or re-sort anything; the
	// reply only lands once Integrate runs.
	reply := f.orch.Exchange(context.Background(), ticket)
	require.Len(t, sess.Messages, 1, "exchange mutated the session")
	assert.Equal(t, "later", reply.Content)

	f.orch.Integrate(reply)
	require.Len(t, sess.Messages, 2)
}

// TestExchange_ConcurrentWithTranscriptRender drives the exchange on a
// background goroutine while the owning goroutine keeps projecting the same
// session, the way the spinner refresh does during a send. Run with -race.
func TestExchange_ConcurrentWithTranscriptRender(t *testing.T) {
	srv, _ := replyBackend(t, "slow and steady")
	f := newFixture(t, srv.URL)

	ticket := f.orch.Send("render me")

	replies := make(chan Reply, 1)
	go func() {
		replies <- f.orch.Exchange(context.Background(), ticket)
	}()

	for i := 0; i < 200; i++ {
		blocks := render.ProjectSession(f.reg.Active())
		require.NotEmpty(t, blocks)
	}

	out := f.orch.Integrate(<-replies)
	assert.Equal(t, "slow and steady", out.Content)
	require.Len(t, f.reg.Active().Messages, 2)
}

func TestIntegrate_SplitsReasoningFromReply(t *testing.T) {
	srv, _ := replyBackend(t, "<think>let me see</think>The answer is 4.")
	f := newFixture(t, srv.URL)

	ticket := f.orch.Send("2+2?")
	out := f.roundTrip(ticket)

	assert.False(t, out.IsError)
	assert.True(t, out.Reasoning.Present)
	assert.Equal(t, "let me see", out.Reasoning.Text)
	assert.Contains(t, out.Markup, "The answer is 4.")
	assert.NotContains(t, out.Markup, "let me see", "reasoning stays out of the answer markup")

	// The raw reply, reasoning markers included, is what persists.
	sess := f.reg.Active()
	require.Len(t, sess.Messages, 2)
	assert.Equal(t, model.RoleAssistant, sess.Messages[1].Role)
	assert.Contains(t, sess.Messages[1].Content, "<think>")
}

func TestIntegrate_BackendFailureBecomesErrorTurn(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"success": false, "error": "model not loaded"})
	}))
	t.Cleanup(srv.Close)
	f := newFixture(t, srv.URL)

	out := f.roundTrip(f.orch.Send("hi"))

	assert.True(t, out.IsError)
	assert.Equal(t, "Error: model not loaded", out.Content)

	sess := f.reg.Active()
	require.Len(t, sess.Messages, 2)
	assert.Equal(t, "Error: model not loaded", sess.Messages[1].Content)
}

func TestIntegrate_TransportFailureBecomesConnectionError(t *testing.T) {
	srv := deadBackend(t)
	f := newFixture(t, srv.URL)

	out := f.roundTrip(f.orch.Send("hi"))

	assert.True(t, out.IsError)
	assert.Equal(t, "Error: Connection failed.", out.Content)

	sess := f.reg.Active()
	require.Len(t, sess.Messages, 2)
	assert.Equal(t, "Error: Connection failed.", sess.Messages[1].Content)
}

func TestIntegrate_EmptyReplySubstituted(t *testing.T) {
	srv, _ := replyBackend(t, "")
	f := newFixture(t, srv.URL)

	out := f.roundTrip(f.orch.Send("hi"))
	assert.Equal(t, "Empty response", out.Content)
}

func TestIntegrate_DropsReplyForClosedSession(t *testing.T) {
	srv, _ := replyBackend(t, "too late")
	f := newFixture(t, srv.URL)

	ticket := f.orch.Send("hi")
	f.reg.Close(ticket.SessionID)

	out := f.roundTrip(ticket)
	assert.Equal(t, "too late", out.Content)
	assert.Empty(t, out.Markup, "no transcript to integrate into")
}

// =============================================================================
// REGENERATE
// =============================================================================

func TestRegenerate_NoopWithoutAssistantTail(t *testing.T) {
	srv, _ := replyBackend(t, "ok")
	f := newFixture(t, srv.URL)

	assert.Nil(t, f.orch.Regenerate(), "no active session")

	sess := f.reg.StartNew(model.KindDiszi)
	assert.Nil(t, f.orch.Regenerate(), "empty session")

	sess.Append(model.NewUserMessage("waiting", nil))
	assert.Nil(t, f.orch.Regenerate(), "transcript ends with a user turn")
	require.Len(t, sess.Messages, 1, "no-op must not mutate the transcript")
}

func TestRegenerate_ReplacesLastAssistantTurn(t *testing.T) {
	srv, last := replyBackend(t, "second opinion")
	f := newFixture(t, srv.URL)

	f.roundTrip(f.orch.Send("question"))
	sess := f.reg.Active()
	require.Len(t, sess.Messages, 2)

	ticket := f.orch.Regenerate()
	require.NotNil(t, ticket)
	require.Len(t, sess.Messages, 1, "assistant turn popped before resend")

	out := f.roundTrip(ticket)
	assert.Equal(t, "second opinion", out.Content)
	require.Len(t, sess.Messages, 2)
	assert.Equal(t, "second opinion", sess.Messages[1].Content)

	// The resent history ends with the user turn.
	lastMsg := last.Messages[len(last.Messages)-1]
	assert.Equal(t, "user", lastMsg.Role)
	assert.Equal(t, "question", lastMsg.Content)
}

// =============================================================================
// ATTACHMENT UPLOAD
// =============================================================================

func TestAttachFile_UploadsAndStages(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/upload" {
			http.NotFound(w, r)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"success":      true,
			"url":          "/files/stored.txt",
			"filename":     "stored.txt",
			"fileType":     "file",
			"originalName": "notes.txt",
		})
	}))
	t.Cleanup(srv.Close)
	f := newFixture(t, srv.URL)

	att, err := f.orch.AttachFile(context.Background(), "notes.txt", strings.NewReader("body"))
	require.NoError(t, err)
	assert.Equal(t, "/files/stored.txt", att.URL)
	require.Len(t, f.orch.Pending(), 1)

	f.orch.RemovePending(0)
	assert.Empty(t, f.orch.Pending())
	f.orch.RemovePending(5) // out of range, ignored
}
