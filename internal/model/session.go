// Copyright (c) 2025 Duet Chat Project
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for sessions, messages, and personas.
package model

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/duetchat/duet-tui/internal/util"
)

// =============================================================================
// SESSION TYPE
// =============================================================================

// Session is one persona-bound conversation thread with its own history.
type Session struct {
	// ID is an opaque unique token, stable for the session's lifetime.
	ID string `json:"id"`

	// Kind selects rendering theme, avatar, and default sub-model.
	Kind Kind `json:"model"`

	// Messages is the ordered, append-only history.
	Messages []Message `json:"messages"`

	// UpdatedAt is epoch seconds, stamped on every mutation. Drives the
	// history sort order.
	UpdatedAt int64 `json:"timestamp"`
}

// NewSession creates an empty session of the given kind with a fresh ID.
// The ID carries a time component plus a random suffix, which is collision
// resistant across the session's lifetime.
func NewSession(kind Kind) *Session {
	return &Session{
		ID:        generateSessionID(),
		Kind:      kind,
		Messages:  make([]Message, 0),
		UpdatedAt: time.Now().Unix(),
	}
}

// generateSessionID creates a unique session ID.
func generateSessionID() string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return "sess_" + strconv.FormatInt(time.Now().UnixMilli(), 10) + "_" + suffix
}

// =============================================================================
// MESSAGE MANAGEMENT
// =============================================================================

// Append adds a message to the session and stamps the update time.
// Message timestamps are kept non-decreasing: a clock step backwards is
// clamped to the previous message's timestamp.
func (s *Session) Append(msg Message) {
	if last := s.LastMessage(); last != nil && msg.Timestamp < last.Timestamp {
		msg.Timestamp = last.Timestamp
	}
	s.Messages = append(s.Messages, msg)
	s.Touch()
}

// LastMessage returns the most recent message, or nil if empty.
func (s *Session) LastMessage() *Message {
	if len(s.Messages) == 0 {
		return nil
	}
	return &s.Messages[len(s.Messages)-1]
}

// PopLastAssistant removes the last message only if its role is assistant.
// Returns true if a message was removed. This is the regeneration path; any
// other last-message role makes it a no-op.
func (s *Session) PopLastAssistant() bool {
	last := s.LastMessage()
	if last == nil || last.Role != RoleAssistant {
		return false
	}
	s.Messages = s.Messages[:len(s.Messages)-1]
	s.Touch()
	return true
}

// Empty reports whether the session has no messages.
func (s *Session) Empty() bool {
	return len(s.Messages) == 0
}

// Touch stamps the session's update time to now.
func (s *Session) Touch() {
	s.UpdatedAt = time.Now().Unix()
}

// =============================================================================
// DERIVED PROPERTIES
// =============================================================================

// DisplayName derives the tab label: a truncated first-message preview, or
// the persona's default name for empty sessions. Never stored.
func (s *Session) DisplayName() string {
	if len(s.Messages) > 0 && s.Messages[0].Content != "" {
		return s.Messages[0].Preview(13)
	}
	return PersonaFor(s.Kind).Label
}

// Preview returns a longer preview for the history picker.
func (s *Session) Preview() string {
	if len(s.Messages) == 0 {
		return "(Empty Chat)"
	}
	return s.Messages[0].Preview(43)
}

// WireHistory returns the full message history reshaped for the chat
// completion endpoint, with attachment names inlined into user messages.
func (s *Session) WireHistory() []WireMessage {
	wire := make([]WireMessage, 0, len(s.Messages))
	for _, msg := range s.Messages {
		wire = append(wire, WireMessage{
			Role:    msg.Role.String(),
			Content: msg.WireContent(),
		})
	}
	return wire
}

// Clone creates a deep copy of the session.
func (s *Session) Clone() *Session {
	clone := &Session{
		ID:        s.ID,
		Kind:      s.Kind,
		UpdatedAt: s.UpdatedAt,
		Messages:  make([]Message, len(s.Messages)),
	}
	copy(clone.Messages, s.Messages)
	for i, msg := range s.Messages {
		if len(msg.Attachments) > 0 {
			atts := make([]Attachment, len(msg.Attachments))
			copy(atts, msg.Attachments)
			clone.Messages[i].Attachments = atts
		}
	}
	return clone
}

// TruncatedTitle returns the display name clipped to a terminal cell width.
func (s *Session) TruncatedTitle(maxWidth int) string {
	return util.TruncateWidth(s.DisplayName(), maxWidth)
}
