// Copyright (c) 2025 Duet Chat Project
// SPDX-License-Identifier: AGPL-3.0-or-later

package render

import (
	"github.com/duetchat/duet-tui/internal/model"
)

// =============================================================================
// CONVERSATION PROJECTION
// =============================================================================

// BlockKind discriminates the renderable block types of a conversation.
type BlockKind int

const (
	// BlockWelcome replaces the transcript for a session with no messages.
	BlockWelcome BlockKind = iota
	// BlockThinking is a collapsible reasoning block above an answer.
	BlockThinking
	// BlockMessage is a chat bubble, user or assistant.
	BlockMessage
	// BlockTyping is the transient waiting indicator during a send.
	BlockTyping
)

// Block is one renderable unit of a conversation, in display order.
type Block struct {
	Kind        BlockKind
	Role        model.Role
	Persona     model.Kind
	Markup      string // formatted content for message and thinking blocks
	Attachments []model.Attachment
	Welcome     *Welcome
}

// Welcome carries the empty-session screen content for a persona.
type Welcome struct {
	Title       string
	Description string
	Accent      string
	Suggestions []string
}

// WelcomeFor builds the welcome screen content for a persona kind.
func WelcomeFor(kind model.Kind) Welcome {
	p := model.PersonaFor(kind)
	return Welcome{
		Title:       p.Label,
		Description: p.Description,
		Accent:      p.AccentColor,
		Suggestions: p.Suggestions,
	}
}

// ProjectSession flattens a session into display blocks.
//
// An empty session projects to a single welcome block. An assistant message
// carrying a reasoning segment projects to a thinking block followed by a
// message block holding only the visible remainder; reasoning never renders
// inside the answer bubble.
func ProjectSession(sess *model.Session) []Block {
	if sess.Empty() {
		w := WelcomeFor(sess.Kind)
		return []Block{{Kind: BlockWelcome, Persona: sess.Kind, Welcome: &w}}
	}

	blocks := make([]Block, 0, len(sess.Messages))
	for _, msg := range sess.Messages {
		blocks = append(blocks, ProjectMessage(sess.Kind, msg)...)
	}
	return blocks
}

// ProjectMessage projects a single message to one or two blocks.
func ProjectMessage(kind model.Kind, msg model.Message) []Block {
	if msg.Role == model.RoleAssistant {
		if reasoning, visible := ExtractReasoning(msg.Content); reasoning.Present {
			return []Block{
				{
					Kind:    BlockThinking,
					Role:    msg.Role,
					Persona: kind,
					Markup:  Format(reasoning.Text),
				},
				{
					Kind:        BlockMessage,
					Role:        msg.Role,
					Persona:     kind,
					Markup:      Format(visible),
					Attachments: msg.Attachments,
				},
			}
		}
	}
	return []Block{{
		Kind:        BlockMessage,
		Role:        msg.Role,
		Persona:     kind,
		Markup:      Format(msg.Content),
		Attachments: msg.Attachments,
	}}
}

// TypingBlock returns the waiting indicator block for a persona.
func TypingBlock(kind model.Kind) Block {
	return Block{Kind: BlockTyping, Role: model.RoleAssistant, Persona: kind}
}
