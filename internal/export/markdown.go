// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"fmt"
	"strings"
	"time"

	"github.com/jeranaias/mcpchat/internal/agent"
	"github.com/jeranaias/mcpchat/internal/storage"
)

// =============================================================================
// MARKDOWN EXPORTER
// =============================================================================

// MarkdownExporter renders a session as a readable Markdown document.
type MarkdownExporter struct {
	options *Options
}

// NewMarkdownExporter creates a Markdown exporter.
func NewMarkdownExporter(opts *Options) *MarkdownExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &MarkdownExporter{options: opts}
}

// Export converts a session to Markdown. User and assistant messages get
// headings; settings notes and errors become block quotes; tool result
// blocks are fenced.
func (e *MarkdownExporter) Export(session storage.ChatSession) ([]byte, error) {
	if len(session.Messages) == 0 {
		return nil, ErrEmptySession
	}

	var sb strings.Builder

	if e.options.IncludeMetadata {
		sb.WriteString("---\n")
		fmt.Fprintf(&sb, "title: %s\n", escapeYAML(session.Title))
		fmt.Fprintf(&sb, "messages: %d\n", len(session.Messages))
		fmt.Fprintf(&sb, "exported: %s\n", e.options.now().Format(time.RFC3339))
		sb.WriteString("generator: mcpchat\n")
		sb.WriteString("---\n\n")
	}

	fmt.Fprintf(&sb, "# %s\n\n", escapeMarkdown(session.Title))

	for _, msg := range session.Messages {
		switch {
		case strings.HasPrefix(msg, "You: "):
			sb.WriteString("## You\n\n")
			sb.WriteString(strings.TrimSpace(strings.TrimPrefix(msg, "You: ")))
		case strings.HasPrefix(msg, "[Settings"):
			sb.WriteString("> ")
			sb.WriteString(msg)
		case strings.HasPrefix(msg, "Error: "):
			sb.WriteString("> **Error:** ")
			sb.WriteString(strings.TrimPrefix(msg, "Error: "))
		case agent.IsToolResultText(msg):
			sb.WriteString("```text\n")
			sb.WriteString(strings.TrimRight(msg, "\n"))
			sb.WriteString("\n```")
		default:
			sb.WriteString("## Assistant\n\n")
			sb.WriteString(strings.TrimSpace(msg))
		}
		sb.WriteString("\n\n")
	}

	sb.WriteString("---\n\n")
	fmt.Fprintf(&sb, "*Exported from mcpchat on %s*\n",
		e.options.now().Format("January 2, 2006 at 3:04 PM"))

	return []byte(sb.String()), nil
}

// FileExtension returns ".md".
func (e *MarkdownExporter) FileExtension() string {
	return ".md"
}

// =============================================================================
// ESCAPING HELPERS
// =============================================================================

// escapeMarkdown escapes characters that would break a heading.
func escapeMarkdown(s string) string {
	s = strings.ReplaceAll(s, "#", "\\#")
	s = strings.ReplaceAll(s, "*", "\\*")
	s = strings.ReplaceAll(s, "_", "\\_")
	s = strings.ReplaceAll(s, "[", "\\[")
	s = strings.ReplaceAll(s, "]", "\\]")
	return s
}

// escapeYAML quotes a front matter value when it contains YAML syntax.
func escapeYAML(s string) string {
	if strings.ContainsAny(s, ":#|>@`\"'[]{}!%&*\n\r\\") || strings.HasPrefix(s, " ") || strings.HasSuffix(s, " ") {
		s = strings.ReplaceAll(s, "\\", "\\\\")
		s = strings.ReplaceAll(s, "\"", "\\\"")
		s = strings.ReplaceAll(s, "\n", "\\n")
		s = strings.ReplaceAll(s, "\r", "\\r")
		return fmt.Sprintf("\"%s\"", s)
	}
	return s
}
