// Copyright (c) 2025 Duet Chat Project
// SPDX-License-Identifier: AGPL-3.0-or-later

package render

import (
	"fmt"
	"html"
	"regexp"
	"strings"
)

// =============================================================================
// MARKDOWN FORMATTING
// =============================================================================
//
// Format converts a useful markdown subset into flat inline markup that the
// reveal engine can stream tag-atomically and the view layer can style. The
// subset and the rule precedence are fixed: code blocks are lifted out first
// behind placeholders so no later rule can rewrite their contents, and
// restored last.

var (
	codeBlockRE = regexp.MustCompile("(?s)```(\\w*)\\n(.*?)```")

	// A table is one or more consecutive lines framed by pipes.
	tableBlockRE   = regexp.MustCompile(`(?m)((?:^\|.+\|[ \t]*\n?)+)`)
	tableDividerRE = regexp.MustCompile(`^\|[\s:\-|]+\|$`)

	headingRules = []struct {
		re  *regexp.Regexp
		tag string
	}{
		{regexp.MustCompile(`(?m)^###### (.+)$`), "h6"},
		{regexp.MustCompile(`(?m)^##### (.+)$`), "h5"},
		{regexp.MustCompile(`(?m)^#### (.+)$`), "h4"},
		{regexp.MustCompile(`(?m)^### (.+)$`), "h3"},
		{regexp.MustCompile(`(?m)^## (.+)$`), "h2"},
		{regexp.MustCompile(`(?m)^# (.+)$`), "h1"},
	}

	hrRE         = regexp.MustCompile(`(?m)^(?:---|\*\*\*|___)$`)
	blockquoteRE = regexp.MustCompile(`(?m)^> (.+)$`)

	// Task items must outrank the plain "- " list rule.
	taskDoneRE = regexp.MustCompile(`(?m)^- \[x\] (.+)$`)
	taskOpenRE = regexp.MustCompile(`(?m)^- \[ \] (.+)$`)

	orderedItemRE   = regexp.MustCompile(`(?m)^(\d+)\. (.+)$`)
	unorderedItemRE = regexp.MustCompile(`(?m)^[-*] (.+)$`)

	// Images before links: an image is a link with a "!" prefix.
	imageRE = regexp.MustCompile(`!\[([^\]]*)\]\(([^)]+)\)`)
	linkRE  = regexp.MustCompile(`\[([^\]]+)\]\(([^)]+)\)`)

	boldItalicStarRE  = regexp.MustCompile(`\*\*\*(.*?)\*\*\*`)
	boldItalicScoreRE = regexp.MustCompile(`___(.*?)___`)
	boldStarRE        = regexp.MustCompile(`\*\*(.*?)\*\*`)
	boldScoreRE       = regexp.MustCompile(`__(.*?)__`)
	strikeRE          = regexp.MustCompile(`~~(.*?)~~`)
	italicStarRE      = regexp.MustCompile(`\*([^*]+?)\*`)
	// Word boundaries keep snake_case identifiers out of italics.
	italicScoreRE = regexp.MustCompile(`\b_([^_]+?)_\b`)
	inlineCodeRE  = regexp.MustCompile("`(.*?)`")
)

// Format renders markdown source to streamable markup.
func Format(text string) string {
	// Lift fenced code blocks out before any inline rule can touch them.
	var codeBlocks []string
	text = codeBlockRE.ReplaceAllStringFunc(text, func(m string) string {
		sub := codeBlockRE.FindStringSubmatch(m)
		lang := sub[1]
		if lang == "" {
			lang = "text"
		}
		body := html.EscapeString(strings.TrimSpace(sub[2]))
		codeBlocks = append(codeBlocks,
			fmt.Sprintf(`<pre><code class="language-%s">%s</code></pre>`, lang, body))
		return fmt.Sprintf("%%%%CODEBLOCK_%d%%%%", len(codeBlocks)-1)
	})

	text = tableBlockRE.ReplaceAllStringFunc(text, formatTable)

	for _, h := range headingRules {
		text = h.re.ReplaceAllString(text, "<"+h.tag+">$1</"+h.tag+">")
	}

	text = hrRE.ReplaceAllString(text, "<hr>")
	text = blockquoteRE.ReplaceAllString(text, "<blockquote>$1</blockquote>")

	text = taskDoneRE.ReplaceAllString(text, `<li class="task done">$1</li>`)
	text = taskOpenRE.ReplaceAllString(text, `<li class="task">$1</li>`)
	text = orderedItemRE.ReplaceAllString(text, `<li value="$1">$2</li>`)
	text = unorderedItemRE.ReplaceAllString(text, `<li>$1</li>`)

	text = imageRE.ReplaceAllString(text, `<img src="$2" alt="$1">`)
	text = linkRE.ReplaceAllString(text, `<a href="$2">$1</a>`)

	text = boldItalicStarRE.ReplaceAllString(text, "<strong><em>$1</em></strong>")
	text = boldItalicScoreRE.ReplaceAllString(text, "<strong><em>$1</em></strong>")
	text = boldStarRE.ReplaceAllString(text, "<strong>$1</strong>")
	text = boldScoreRE.ReplaceAllString(text, "<strong>$1</strong>")
	text = strikeRE.ReplaceAllString(text, "<del>$1</del>")
	text = italicStarRE.ReplaceAllString(text, "<em>$1</em>")
	text = italicScoreRE.ReplaceAllString(text, "<em>$1</em>")
	text = inlineCodeRE.ReplaceAllString(text, "<code>$1</code>")

	text = strings.ReplaceAll(text, "\n", "<br>")

	for i, block := range codeBlocks {
		text = strings.Replace(text, fmt.Sprintf("%%%%CODEBLOCK_%d%%%%", i), block, 1)
	}
	return text
}

// formatTable renders one block of consecutive pipe-framed lines. The first
// row is the header; an alignment divider row is dropped. A lone pipe-framed
// line is left untouched.
func formatTable(block string) string {
	var rows []string
	for _, line := range strings.Split(strings.TrimSpace(block), "\n") {
		if strings.TrimSpace(line) != "" {
			rows = append(rows, line)
		}
	}
	if len(rows) < 2 {
		return block
	}

	var b strings.Builder
	b.WriteString("<table>")
	for i, row := range rows {
		if tableDividerRE.MatchString(strings.TrimSpace(row)) {
			continue
		}
		tag := "td"
		if i == 0 {
			tag = "th"
		}
		cells := strings.Split(row, "|")
		if len(cells) > 2 {
			cells = cells[1 : len(cells)-1]
		}
		b.WriteString("<tr>")
		for _, c := range cells {
			b.WriteString("<" + tag + ">" + strings.TrimSpace(c) + "</" + tag + ">")
		}
		b.WriteString("</tr>")
	}
	b.WriteString("</table>")
	return b.String() + "\n"
}

// =============================================================================
// PLAIN TEXT PROJECTION
// =============================================================================

var anyTagRE = regexp.MustCompile(`<[^>]*>`)

// StripTags flattens formatted markup back to plain text for clipboard use.
// Line breaks survive; all other tags are dropped and entities are decoded.
func StripTags(markup string) string {
	markup = strings.ReplaceAll(markup, "<br>", "\n")
	markup = anyTagRE.ReplaceAllString(markup, "")
	return strings.TrimSpace(html.UnescapeString(markup))
}
