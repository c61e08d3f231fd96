// Copyright (c) 2025 Duet Chat Project
// SPDX-License-Identifier: AGPL-3.0-or-later

package render

import (
	"strings"
	"testing"

	"github.com/duetchat/duet-tui/internal/model"
)

func TestProjectSession_EmptyShowsWelcome(t *testing.T) {
	sess := model.NewSession(model.KindZily)

	blocks := ProjectSession(sess)
	if len(blocks) != 1 {
		t.Fatalf("blocks = %d, want 1", len(blocks))
	}
	b := blocks[0]
	if b.Kind != BlockWelcome || b.Welcome == nil {
		t.Fatalf("expected welcome block, got %+v", b)
	}
	if b.Welcome.Title != "Zily" {
		t.Errorf("welcome title = %q", b.Welcome.Title)
	}
	if len(b.Welcome.Suggestions) == 0 {
		t.Error("welcome has no suggestions")
	}
}

func TestProjectSession_PlainExchange(t *testing.T) {
	sess := model.NewSession(model.KindDiszi)
	sess.Append(model.NewUserMessage("hello **world**", nil))
	sess.Append(model.NewAssistantMessage("hi back"))

	blocks := ProjectSession(sess)
	if len(blocks) != 2 {
		t.Fatalf("blocks = %d, want 2", len(blocks))
	}
	if blocks[0].Role != model.RoleUser || blocks[0].Markup != "hello <strong>world</strong>" {
		t.Errorf("user block = %+v", blocks[0])
	}
	if blocks[1].Role != model.RoleAssistant || blocks[1].Kind != BlockMessage {
		t.Errorf("assistant block = %+v", blocks[1])
	}
}

func TestProjectMessage_ReasoningSplitsIntoTwoBlocks(t *testing.T) {
	msg := model.NewAssistantMessage("<think>weighing options</think>Go with option B.")

	blocks := ProjectMessage(model.KindDiszi, msg)
	if len(blocks) != 2 {
		t.Fatalf("blocks = %d, want 2", len(blocks))
	}
	if blocks[0].Kind != BlockThinking {
		t.Fatalf("first block kind = %v, want thinking", blocks[0].Kind)
	}
	if !strings.Contains(blocks[0].Markup, "weighing options") {
		t.Errorf("thinking markup = %q", blocks[0].Markup)
	}
	if blocks[1].Kind != BlockMessage {
		t.Fatalf("second block kind = %v, want message", blocks[1].Kind)
	}
	if strings.Contains(blocks[1].Markup, "weighing") {
		t.Errorf("reasoning leaked into answer bubble: %q", blocks[1].Markup)
	}
	if !strings.Contains(blocks[1].Markup, "Go with option B.") {
		t.Errorf("answer markup = %q", blocks[1].Markup)
	}
}

func TestProjectMessage_UserReasoningMarkersStayLiteral(t *testing.T) {
	msg := model.NewUserMessage("what does <think> mean?", nil)

	blocks := ProjectMessage(model.KindDiszi, msg)
	if len(blocks) != 1 || blocks[0].Kind != BlockMessage {
		t.Fatalf("blocks = %+v, want one message block", blocks)
	}
}

func TestProjectMessage_CarriesAttachments(t *testing.T) {
	att := model.Attachment{URL: "/files/a.png", FileType: model.AttachmentImage, OriginalName: "a.png"}
	msg := model.NewUserMessage("see picture", []model.Attachment{att})

	blocks := ProjectMessage(model.KindZily, msg)
	if len(blocks[0].Attachments) != 1 || blocks[0].Attachments[0].OriginalName != "a.png" {
		t.Errorf("attachments = %+v", blocks[0].Attachments)
	}
}

func TestWelcomeFor_PersonaContent(t *testing.T) {
	diszi := WelcomeFor(model.KindDiszi)
	zily := WelcomeFor(model.KindZily)

	if diszi.Title != "Diszi" || zily.Title != "Zily" {
		t.Errorf("titles = %q, %q", diszi.Title, zily.Title)
	}
	if diszi.Accent == zily.Accent {
		t.Error("personas share an accent color")
	}
	if diszi.Description == zily.Description {
		t.Error("personas share a description")
	}
}

func TestTypingBlock(t *testing.T) {
	b := TypingBlock(model.KindZily)
	if b.Kind != BlockTyping || b.Persona != model.KindZily {
		t.Errorf("typing block = %+v", b)
	}
}
