// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	chromaStyles "github.com/alecthomas/chroma/v2/styles"
	"github.com/charmbracelet/glamour"
)

// =============================================================================
// MARKDOWN
// =============================================================================

// MarkdownRenderer renders assistant answers with glamour. Renderers are
// built lazily and rebuilt only when the width changes.
type MarkdownRenderer struct {
	style    string
	width    int
	renderer *glamour.TermRenderer
}

// NewMarkdownRenderer creates a renderer. style is a glamour standard style
// name such as "dark" or "notty"; "" or "auto" detects the terminal.
func NewMarkdownRenderer(style string) *MarkdownRenderer {
	return &MarkdownRenderer{style: style}
}

// Render returns md rendered for width. On any glamour error it returns md
// unchanged.
func (r *MarkdownRenderer) Render(md string, width int) string {
	if width <= 0 {
		return md
	}
	if r.renderer == nil || r.width != width {
		styleOpt := glamour.WithAutoStyle()
		if r.style != "" && r.style != "auto" {
			styleOpt = glamour.WithStandardStyle(r.style)
		}
		tr, err := glamour.NewTermRenderer(styleOpt, glamour.WithWordWrap(width))
		if err != nil {
			return md
		}
		r.renderer = tr
		r.width = width
	}

	out, err := r.renderer.Render(md)
	if err != nil {
		return md
	}
	return strings.Trim(out, "\n")
}

// =============================================================================
// SYNTAX HIGHLIGHTING
// =============================================================================

// HighlightJSON colors a JSON document for the terminal.
func HighlightJSON(code string) string {
	return highlightCode(code, "json")
}

// highlightCode applies chroma highlighting; on failure the input is
// returned unchanged.
func highlightCode(code, language string) string {
	lexer := lexers.Get(language)
	if lexer == nil {
		lexer = lexers.Fallback
	}
	lexer = chroma.Coalesce(lexer)

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

	var buf strings.Builder
	if err := formatter.Format(&buf, style, iterator); err != nil {
		return code
	}
	return buf.String()
}
