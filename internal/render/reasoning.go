// Copyright (c) 2025 Duet Chat Project
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package render projects session state into renderable structure: reasoning
// extraction, markdown formatting, and the incremental reveal engine.
package render

import (
	"regexp"
	"strings"
)

// =============================================================================
// REASONING BLOCK EXTRACTION
// =============================================================================

// Reasoning markers. Assistant replies may embed one chain-of-thought segment
// delimited by this pair; the segment renders as a collapsible block above
// the answer bubble, never inside it.
const (
	ReasoningStart = "<think>"
	ReasoningEnd   = "</think>"
)

// thinkRE matches a single delimited reasoning segment, including trailing
// whitespace so stripping leaves the answer flush.
var thinkRE = regexp.MustCompile(`(?s)<think>(.*?)</think>\s*`)

// Reasoning is the extracted chain-of-thought of an assistant message.
type Reasoning struct {
	Present bool
	Text    string
}

// ExtractReasoning splits a matched reasoning segment from message content.
// It returns the extracted reasoning (trimmed) and the remaining visible
// content (trimmed). An unmatched start marker is treated as plain content:
// extraction is a no-op, never an error or a hang.
func ExtractReasoning(content string) (Reasoning, string) {
	m := thinkRE.FindStringSubmatchIndex(content)
	if m == nil {
		return Reasoning{}, content
	}

	inner := content[m[2]:m[3]]
	visible := content[:m[0]] + content[m[1]:]

	return Reasoning{
		Present: true,
		Text:    strings.TrimSpace(inner),
	}, strings.TrimSpace(visible)
}
