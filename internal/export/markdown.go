// Copyright (c) 2025 Duet Chat Project
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"fmt"
	"strings"
	"time"

	"github.com/duetchat/duet-tui/internal/model"
	"github.com/duetchat/duet-tui/internal/render"
)

// MarkdownExporter renders a transcript as a markdown document. Reasoning
// segments become quoted sub-sections so the answer text stays clean.
type MarkdownExporter struct {
	IncludeTimestamps bool
}

// Export implements Exporter.
func (e *MarkdownExporter) Export(sess *model.Session) ([]byte, error) {
	persona := model.PersonaFor(sess.Kind)

	var b strings.Builder
	fmt.Fprintf(&b, "# Conversation with %s\n\n", persona.Label)
	fmt.Fprintf(&b, "- Session: %s\n", sess.ID)
	fmt.Fprintf(&b, "- Updated: %s\n\n", time.Unix(sess.UpdatedAt, 0).UTC().Format(time.RFC3339))

	for _, msg := range sess.Messages {
		speaker := "You"
		if msg.Role == model.RoleAssistant {
			speaker = persona.Label
		}

		if e.IncludeTimestamps && msg.Timestamp > 0 {
			fmt.Fprintf(&b, "## %s (%s)\n\n", speaker,
				time.UnixMilli(msg.Timestamp).UTC().Format("2006-01-02 15:04"))
		} else {
			fmt.Fprintf(&b, "## %s\n\n", speaker)
		}

		for _, att := range msg.Attachments {
			fmt.Fprintf(&b, "*Attachment: %s*\n\n", att.OriginalName)
		}

		content := msg.Content
		if msg.Role == model.RoleAssistant {
			if reasoning, visible := render.ExtractReasoning(content); reasoning.Present {
				b.WriteString("> Thinking Process\n")
				for _, line := range strings.Split(reasoning.Text, "\n") {
					b.WriteString("> " + line + "\n")
				}
				b.WriteString("\n")
				content = visible
			}
		}

		b.WriteString(strings.TrimSpace(content) + "\n\n")
	}

	return []byte(b.String()), nil
}

// FileExtension implements Exporter.
func (e *MarkdownExporter) FileExtension() string { return ".md" }
