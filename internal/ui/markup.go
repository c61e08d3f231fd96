// Copyright (c) 2025 Duet Chat Project
// SPDX-License-Identifier: AGPL-3.0-or-later

package ui

import (
	"html"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// =============================================================================
// MARKUP TO TERMINAL
// =============================================================================
//
// The formatter and the reveal engine both speak flat inline markup. This
// file lowers that markup to styled terminal text. The input is always
// tag-atomic: tags and entities arrive whole, but elements may be unclosed
// mid-reveal, so every open style simply runs to the end of the buffer.

// inlineState tracks the currently open inline elements.
type inlineState struct {
	bold    bool
	italic  bool
	strike  bool
	code    bool
	link    bool
	heading bool
	muted   bool
}

func (s inlineState) style() lipgloss.Style {
	st := lipgloss.NewStyle()
	if s.bold || s.heading {
		st = st.Bold(true)
	}
	if s.italic {
		st = st.Italic(true)
	}
	if s.strike {
		st = st.Strikethrough(true)
	}
	if s.code {
		st = st.Foreground(colorMuted)
	}
	if s.link {
		st = st.Underline(true)
	}
	if s.muted {
		st = st.Foreground(colorMuted)
	}
	return st
}

// renderMarkup lowers markup to styled terminal text bounded to width cells.
func renderMarkup(markup string, width int) string {
	var (
		b     strings.Builder
		state inlineState
		href  string
	)

	i := 0
	for i < len(markup) {
		if markup[i] != '<' {
			next := strings.IndexByte(markup[i:], '<')
			if next < 0 {
				next = len(markup) - i
			}
			writeText(&b, markup[i:i+next], state)
			i += next
			continue
		}

		end := strings.IndexByte(markup[i:], '>')
		if end < 0 {
			// Half a tag cannot occur in revealed markup; render literally.
			writeText(&b, markup[i:], state)
			break
		}
		tag := markup[i+1 : i+end]
		i += end + 1

		name, closing, attrs := parseTag(tag)
		switch name {
		case "br":
			b.WriteString("\n")
		case "hr":
			b.WriteString(styleStatusBar.Render(strings.Repeat("─", max(1, width-2))) + "\n")
		case "strong":
			state.bold = !closing
		case "em":
			state.italic = !closing
		case "del":
			state.strike = !closing
		case "code":
			state.code = !closing
		case "h1", "h2", "h3", "h4", "h5", "h6":
			if closing {
				b.WriteString("\n")
			}
			state.heading = !closing
		case "blockquote":
			if !closing {
				b.WriteString(styleStatusBar.Render("│ "))
				state.muted = true
			} else {
				state.muted = false
				b.WriteString("\n")
			}
		case "li":
			if !closing {
				b.WriteString(listMarker(attrs))
				if strings.Contains(attrs["class"], "done") {
					state.strike = true
					state.muted = true
				}
			} else {
				state.strike = false
				state.muted = false
				b.WriteString("\n")
			}
		case "a":
			if !closing {
				href = attrs["href"]
				state.link = true
			} else {
				state.link = false
				if href != "" {
					b.WriteString(styleStatusBar.Render(" (" + href + ")"))
					href = ""
				}
			}
		case "img":
			label := attrs["alt"]
			if label == "" {
				label = attrs["src"]
			}
			b.WriteString(styleAttachment.Render("[image: " + label + "]"))
		case "table":
			if closing {
				b.WriteString("\n")
			}
		case "tr":
			if closing {
				b.WriteString("\n")
			}
		case "th":
			if !closing {
				state.bold = true
			} else {
				state.bold = false
				b.WriteString("  ")
			}
		case "td":
			if closing {
				b.WriteString("  ")
			}
		case "pre":
			if closing {
				break
			}
			block, rest := capturePre(markup[i:])
			lang, code := splitCodeElement(block)
			b.WriteString("\n" + renderCodeBlock(lang, code, width) + "\n")
			i = len(markup) - len(rest)
		default:
			// Unknown tags drop silently; their content still renders.
		}
	}

	return b.String()
}

func writeText(b *strings.Builder, raw string, state inlineState) {
	if raw == "" {
		return
	}
	text := html.UnescapeString(raw)
	st := state.style()

	// Style per line so breaks do not end up inside ANSI sequences.
	lines := strings.Split(text, "\n")
	for idx, line := range lines {
		if idx > 0 {
			b.WriteString("\n")
		}
		if line != "" {
			b.WriteString(st.Render(line))
		}
	}
}

// parseTag splits "li value=\"2\"" style tag bodies into the element name,
// a closing flag, and the attributes.
func parseTag(tag string) (name string, closing bool, attrs map[string]string) {
	tag = strings.TrimSpace(tag)
	if strings.HasPrefix(tag, "/") {
		closing = true
		tag = tag[1:]
	}

	fields := strings.Fields(tag)
	if len(fields) == 0 {
		return "", closing, nil
	}
	name = strings.ToLower(fields[0])

	attrs = make(map[string]string, len(fields)-1)
	for _, f := range fields[1:] {
		k, v, ok := strings.Cut(f, "=")
		if !ok {
			continue
		}
		attrs[strings.ToLower(k)] = strings.Trim(v, `"`)
	}

	// Quoted attribute values with spaces (class="task done") get split by
	// Fields; recover them with a direct scan.
	for _, key := range []string{"class", "href", "src", "alt"} {
		if v, ok := attrValue(tag, key); ok {
			attrs[key] = v
		}
	}
	return name, closing, attrs
}

func attrValue(tag, key string) (string, bool) {
	marker := key + `="`
	start := strings.Index(tag, marker)
	if start < 0 {
		return "", false
	}
	rest := tag[start+len(marker):]
	end := strings.IndexByte(rest, '"')
	if end < 0 {
		return "", false
	}
	return rest[:end], true
}

// listMarker picks the leading glyph for a list item.
func listMarker(attrs map[string]string) string {
	class := attrs["class"]
	switch {
	case strings.Contains(class, "done"):
		return "  ☑ "
	case strings.Contains(class, "task"):
		return "  ☐ "
	}
	if v := attrs["value"]; v != "" {
		if _, err := strconv.Atoi(v); err == nil {
			return "  " + v + ". "
		}
	}
	return "  • "
}

// capturePre returns everything up to the matching close tag, and the
// remainder after it. An unterminated block captures to the end.
func capturePre(rest string) (block, after string) {
	if idx := strings.Index(rest, "</pre>"); idx >= 0 {
		return rest[:idx], rest[idx+len("</pre>"):]
	}
	return rest, ""
}

// splitCodeElement unwraps `<code class="language-x">body</code>` and
// decodes the escaped body.
func splitCodeElement(block string) (lang, code string) {
	if v, ok := attrValue(block, "class"); ok {
		lang = strings.TrimPrefix(v, "language-")
	}
	if start := strings.IndexByte(block, '>'); start >= 0 && strings.HasPrefix(block, "<code") {
		block = block[start+1:]
	}
	block = strings.TrimSuffix(block, "</code>")
	return lang, html.UnescapeString(block)
}
