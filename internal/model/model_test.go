// Copyright (c) 2025 Duet Chat Project
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"strings"
	"testing"
)

// =============================================================================
// PERSONA TESTS
// =============================================================================

func TestPersonas_Registry(t *testing.T) {
	for _, kind := range []Kind{KindDiszi, KindZily} {
		p, ok := Personas[kind]
		if !ok {
			t.Fatalf("persona %q missing from registry", kind)
		}
		if p.Label == "" || p.Description == "" || p.DefaultModel == "" {
			t.Errorf("persona %q has empty required fields: %+v", kind, p)
		}
		if len(p.Modes) == 0 {
			t.Errorf("persona %q exposes no modes", kind)
		}
		if p.DefaultMode() != p.Modes[0] {
			t.Errorf("persona %q default mode = %q, want first mode %q", kind, p.DefaultMode(), p.Modes[0])
		}
	}
}

func TestKind_Other(t *testing.T) {
	if KindDiszi.Other() != KindZily {
		t.Error("diszi should toggle to zily")
	}
	if KindZily.Other() != KindDiszi {
		t.Error("zily should toggle to diszi")
	}
}

func TestPersonaByLabel(t *testing.T) {
	p, ok := PersonaByLabel("Zily")
	if !ok || p.Kind != KindZily {
		t.Errorf("PersonaByLabel(Zily) = %+v, %v", p, ok)
	}
	if _, ok := PersonaByLabel("nobody"); ok {
		t.Error("unknown label should not resolve")
	}
}

func TestPersona_HasMode(t *testing.T) {
	diszi := Personas[KindDiszi]
	if !diszi.HasMode(ModePlan) {
		t.Error("Diszi should expose Plan mode")
	}
	if diszi.HasMode(ModeRoleplay) {
		t.Error("Diszi should not expose Roleplay mode")
	}
}

// =============================================================================
// MESSAGE TESTS
// =============================================================================

func TestNewUserMessage_SnapshotsAttachments(t *testing.T) {
	pending := []Attachment{{URL: "/up/a.png", FileType: AttachmentImage, OriginalName: "a.png"}}
	msg := NewUserMessage("hi", pending)

	// Mutating the pending list after the fact must not reach the message.
	pending[0].OriginalName = "mutated"
	if msg.Attachments[0].OriginalName != "a.png" {
		t.Error("message attachments should be a snapshot copy")
	}
	if msg.Timestamp == 0 {
		t.Error("message should be timestamped")
	}
}

func TestMessage_WireContent(t *testing.T) {
	tests := []struct {
		name string
		msg  Message
		want string
	}{
		{
			name: "plain user message passes through",
			msg:  Message{Role: RoleUser, Content: "hello"},
			want: "hello",
		},
		{
			name: "assistant message never inlined",
			msg: Message{Role: RoleAssistant, Content: "hi",
				Attachments: []Attachment{{OriginalName: "x"}}},
			want: "hi",
		},
		{
			name: "user attachments inlined before text",
			msg: Message{Role: RoleUser, Content: "look at these",
				Attachments: []Attachment{{OriginalName: "a.png"}, {OriginalName: "b.pdf"}}},
			want: "[Attachment: a.png]\n[Attachment: b.pdf]\n\nlook at these",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.msg.WireContent(); got != tc.want {
				t.Errorf("WireContent() = %q, want %q", got, tc.want)
			}
		})
	}
}

// =============================================================================
// SESSION TESTS
// =============================================================================

func TestNewSession_ID(t *testing.T) {
	a := NewSession(KindDiszi)
	b := NewSession(KindDiszi)
	if !strings.HasPrefix(a.ID, "sess_") {
		t.Errorf("session ID %q missing prefix", a.ID)
	}
	if a.ID == b.ID {
		t.Error("two sessions generated the same ID")
	}
	if a.Kind != KindDiszi || !a.Empty() {
		t.Errorf("new session state unexpected: %+v", a)
	}
}

func TestSession_AppendKeepsTimestampsMonotonic(t *testing.T) {
	s := NewSession(KindZily)
	s.Append(Message{Role: RoleUser, Content: "first", Timestamp: 2000})
	s.Append(Message{Role: RoleAssistant, Content: "second", Timestamp: 1000})

	if s.Messages[1].Timestamp < s.Messages[0].Timestamp {
		t.Errorf("timestamps decreased: %d then %d", s.Messages[0].Timestamp, s.Messages[1].Timestamp)
	}
}

func TestSession_PopLastAssistant(t *testing.T) {
	s := NewSession(KindDiszi)
	s.Append(NewUserMessage("question", nil))

	// Last message is a user message: no-op.
	if s.PopLastAssistant() {
		t.Error("pop should be a no-op when last message is from the user")
	}
	if len(s.Messages) != 1 {
		t.Fatalf("message count = %d, want 1", len(s.Messages))
	}

	s.Append(NewAssistantMessage("answer"))
	if !s.PopLastAssistant() {
		t.Error("pop should remove a trailing assistant message")
	}
	if len(s.Messages) != 1 || s.Messages[0].Role != RoleUser {
		t.Errorf("unexpected history after pop: %+v", s.Messages)
	}
}

func TestSession_DisplayName(t *testing.T) {
	s := NewSession(KindZily)
	if s.DisplayName() != "Zily" {
		t.Errorf("empty session name = %q, want persona label", s.DisplayName())
	}

	s.Append(NewUserMessage("write me a very long story about dragons", nil))
	name := s.DisplayName()
	if !strings.HasPrefix(name, "write me a") || !strings.HasSuffix(name, "...") {
		t.Errorf("display name = %q, want truncated first-message preview", name)
	}
}

func TestSession_WireHistory(t *testing.T) {
	s := NewSession(KindDiszi)
	s.Append(NewUserMessage("check this", []Attachment{{OriginalName: "dump.log"}}))
	s.Append(NewAssistantMessage("looks fine"))

	wire := s.WireHistory()
	if len(wire) != 2 {
		t.Fatalf("wire history length = %d, want 2", len(wire))
	}
	if !strings.Contains(wire[0].Content, "[Attachment: dump.log]") {
		t.Errorf("attachment name not inlined: %q", wire[0].Content)
	}
	if wire[1].Role != "assistant" || wire[1].Content != "looks fine" {
		t.Errorf("assistant wire message = %+v", wire[1])
	}
}

func TestSession_Clone(t *testing.T) {
	s := NewSession(KindDiszi)
	s.Append(NewUserMessage("original", []Attachment{{OriginalName: "a"}}))

	clone := s.Clone()
	clone.Messages[0].Content = "changed"
	clone.Messages[0].Attachments[0].OriginalName = "b"

	if s.Messages[0].Content != "original" || s.Messages[0].Attachments[0].OriginalName != "a" {
		t.Error("clone mutation leaked into the source session")
	}
}
