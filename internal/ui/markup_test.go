// Copyright (c) 2025 Duet Chat Project
// SPDX-License-Identifier: AGPL-3.0-or-later

package ui

import (
	"os"
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// TestMain pins the ASCII profile so styled output is byte-stable.
func TestMain(m *testing.M) {
	lipgloss.SetColorProfile(termenv.Ascii)
	os.Exit(m.Run())
}

func TestRenderMarkup_InlineStructure(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain text", "hello", "hello"},
		{"styled text survives", "<strong>hi</strong> there", "hi there"},
		{"break becomes newline", "a<br>b", "a\nb"},
		{"entities decode", "a &lt;= b", "a <= b"},
		{"unordered item", "<li>first</li>", "  • first\n"},
		{"ordered item", `<li value="3">third</li>`, "  3. third\n"},
		{"task done", `<li class="task done">shipped</li>`, "  ☑ shipped\n"},
		{"task open", `<li class="task">pending</li>`, "  ☐ pending\n"},
		{"blockquote prefix", "<blockquote>wisdom</blockquote>", "│ wisdom\n"},
		{"unclosed tag styles to end", "<em>tail", "tail"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := renderMarkup(tc.in, 80); got != tc.want {
				t.Errorf("renderMarkup(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestRenderMarkup_Link(t *testing.T) {
	got := renderMarkup(`see <a href="https://example.com">docs</a> now`, 80)
	if got != "see docs (https://example.com) now" {
		t.Errorf("got %q", got)
	}
}

func TestRenderMarkup_Image(t *testing.T) {
	got := renderMarkup(`<img src="/a.png" alt="diagram">`, 80)
	if got != "[image: diagram]" {
		t.Errorf("got %q", got)
	}
}

func TestRenderMarkup_HeadingOwnsLine(t *testing.T) {
	got := renderMarkup("<h2>Plan</h2>details", 80)
	if !strings.HasPrefix(got, "Plan\n") || !strings.Contains(got, "details") {
		t.Errorf("got %q", got)
	}
}

func TestRenderMarkup_Table(t *testing.T) {
	got := renderMarkup("<table><tr><th>Name</th><th>Age</th></tr><tr><td>Ada</td><td>36</td></tr></table>", 80)
	lines := strings.Split(strings.TrimRight(got, "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("lines = %q", lines)
	}
	if !strings.Contains(lines[0], "Name") || !strings.Contains(lines[0], "Age") {
		t.Errorf("header row = %q", lines[0])
	}
	if !strings.Contains(lines[1], "Ada") {
		t.Errorf("data row = %q", lines[1])
	}
}

func TestRenderMarkup_CodeBlock(t *testing.T) {
	in := `<pre><code class="language-go">fmt.Println(&quot;hi&quot;)</code></pre>`
	got := renderMarkup(in, 80)

	// Chroma may inject color sequences; the token text itself survives.
	if !strings.Contains(got, "Println") {
		t.Errorf("code body missing from %q", got)
	}
	if strings.Contains(got, "&quot;") {
		t.Errorf("escaped entities leaked into code: %q", got)
	}
	if strings.Contains(got, "<pre>") || strings.Contains(got, "</code>") {
		t.Errorf("markup tags leaked: %q", got)
	}
}

func TestRenderMarkup_HorizontalRule(t *testing.T) {
	got := renderMarkup("<hr>", 40)
	if !strings.Contains(got, "─") {
		t.Errorf("got %q", got)
	}
}

func TestParseTag(t *testing.T) {
	name, closing, attrs := parseTag(`li class="task done"`)
	if name != "li" || closing {
		t.Errorf("name = %q closing = %v", name, closing)
	}
	if attrs["class"] != "task done" {
		t.Errorf("class = %q", attrs["class"])
	}

	name, closing, _ = parseTag("/strong")
	if name != "strong" || !closing {
		t.Errorf("close tag parsed as %q %v", name, closing)
	}
}
