// Copyright (c) 2025 Duet Chat Project
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"strings"
	"time"

	"github.com/duetchat/duet-tui/internal/util"
)

// =============================================================================
// ROLE TYPE
// =============================================================================

// Role represents the sender of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// =============================================================================
// ATTACHMENT TYPE
// =============================================================================

// Attachment file types.
const (
	AttachmentImage = "image"
	AttachmentFile  = "file"
)

// Attachment references previously uploaded content by URL. No binary data is
// ever embedded in the session store.
type Attachment struct {
	URL          string `json:"url"`
	FileType     string `json:"fileType"`
	OriginalName string `json:"originalName"`
	StoredName   string `json:"storedName,omitempty"`
}

// IsImage reports whether the attachment renders as an inline image.
func (a Attachment) IsImage() bool {
	return a.FileType == AttachmentImage
}

// =============================================================================
// MESSAGE TYPE
// =============================================================================

// Message represents a single message in a session.
//
// Messages are append-only within a session; the only mutation ever performed
// is the orchestrator popping the last assistant message for regeneration.
type Message struct {
	Role        Role         `json:"role"`
	Content     string       `json:"content"`
	Attachments []Attachment `json:"attachments,omitempty"`

	// Timestamp is epoch milliseconds.
	Timestamp int64 `json:"timestamp"`
}

// NewUserMessage creates a user message stamped with the current time. The
// attachment slice is snapshot-copied so later mutation of the pending list
// cannot reach into stored history.
func NewUserMessage(content string, attachments []Attachment) Message {
	var atts []Attachment
	if len(attachments) > 0 {
		atts = make([]Attachment, len(attachments))
		copy(atts, attachments)
	}
	return Message{
		Role:        RoleUser,
		Content:     content,
		Attachments: atts,
		Timestamp:   time.Now().UnixMilli(),
	}
}

// NewAssistantMessage creates an assistant message stamped with the current time.
func NewAssistantMessage(content string) Message {
	return Message{
		Role:      RoleAssistant,
		Content:   content,
		Timestamp: time.Now().UnixMilli(),
	}
}

// =============================================================================
// MESSAGE METHODS
// =============================================================================

// Preview returns a truncated single-line preview of the message content.
func (m Message) Preview(maxRunes int) string {
	content := strings.ReplaceAll(m.Content, "\n", " ")
	return util.TruncateRunes(content, maxRunes)
}

// WireContent returns the content reshaped for the chat completion request:
// user messages carrying attachments get the attachment names inlined so the
// model has the context, everything else passes through unchanged.
func (m Message) WireContent() string {
	if m.Role != RoleUser || len(m.Attachments) == 0 {
		return m.Content
	}
	var sb strings.Builder
	for i, att := range m.Attachments {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString("[Attachment: " + att.OriginalName + "]")
	}
	sb.WriteString("\n\n")
	sb.WriteString(m.Content)
	return sb.String()
}

// =============================================================================
// WIRE MESSAGE
// =============================================================================

// WireMessage is the {role, content} shape consumed by the chat completion
// endpoint.
type WireMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}
