// Copyright (c) 2025 Duet Chat Project
// SPDX-License-Identifier: AGPL-3.0-or-later

package ui

import (
	"strings"

	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	chromaStyles "github.com/alecthomas/chroma/v2/styles"
	"github.com/charmbracelet/lipgloss"
)

// =============================================================================
// CODE BLOCK RENDERER
// =============================================================================

var (
	styleCodeBlock = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(colorRule).
			Padding(0, 1)

	styleCodeLang = lipgloss.NewStyle().
			Foreground(colorMuted).
			Bold(true)
)

// renderCodeBlock renders a fenced code block with syntax highlighting and a
// language badge, bounded to maxWidth cells.
func renderCodeBlock(language, code string, maxWidth int) string {
	code = strings.TrimSpace(code)

	var header string
	if language != "" && language != "text" {
		header = styleCodeLang.Render(language) + "\n"
	}

	if maxWidth < 24 {
		maxWidth = 24
	}
	return styleCodeBlock.MaxWidth(maxWidth).Render(header + highlightCode(code, language))
}

// highlightCode applies chroma terminal highlighting. On any failure the
// plain code comes back unchanged.
func highlightCode(code, language string) string {
	lexer := lexers.Get(language)
	if lexer == nil {
		lexer = lexers.Analyse(code)
	}
	if lexer == nil {
		lexer = lexers.Fallback
	}

	style := chromaStyles.Get("monokai")
	if style == nil {
		style = chromaStyles.Fallback
	}

	formatter := formatters.Get("terminal256")
	if formatter == nil {
		formatter = formatters.Fallback
	}

	iterator, err := lexer.Tokenise(nil, code)
	if err != nil {
		return code
	}

	var b strings.Builder
	if err := formatter.Format(&b, style, iterator); err != nil {
		return code
	}
	return strings.TrimRight(b.String(), "\n")
}
