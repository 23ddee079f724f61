// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"

	"github.com/jeranaias/mcpchat/internal/agent"
	"github.com/jeranaias/mcpchat/internal/ui/components"
	"github.com/jeranaias/mcpchat/internal/ui/styles"
)

// =============================================================================
// TRANSCRIPT ENTRIES
// =============================================================================

// EntryKind selects how a transcript line is drawn.
type EntryKind int

const (
	EntryPlain EntryKind = iota
	EntryUser
	EntryAssistant
	EntryTool
	EntrySettings
	EntrySystem
	EntryError
)

// Entry is one block of the chat display.
type Entry struct {
	Kind EntryKind
	Text string
}

const separator = "-------------------------------"

// ClassifyLine guesses the kind of a message read back from chat history.
// Stored messages are plain strings; the prefixes written by the storage
// helpers identify everything except assistant answers.
func ClassifyLine(line string) EntryKind {
	switch {
	case strings.HasPrefix(line, "You: "):
		return EntryUser
	case strings.HasPrefix(line, "[Settings"):
		return EntrySettings
	case strings.HasPrefix(line, "Error: "):
		return EntryError
	case agent.IsToolResultText(line):
		return EntryTool
	}
	return EntryAssistant
}

// =============================================================================
// TRANSCRIPT
// =============================================================================

// Transcript is the content of the chat display plus the text of the turn
// currently streaming in.
type Transcript struct {
	entries []Entry
	live    strings.Builder
}

// Append adds a finished entry.
func (t *Transcript) Append(kind EntryKind, text string) {
	t.entries = append(t.entries, Entry{Kind: kind, Text: text})
}

// Load replaces the transcript with stored history messages.
func (t *Transcript) Load(lines []string) {
	t.Clear()
	for _, line := range lines {
		t.Append(ClassifyLine(line), line)
	}
}

// Clear empties the transcript.
func (t *Transcript) Clear() {
	t.entries = nil
	t.live.Reset()
}

// Stream appends a fragment of the in-flight turn.
func (t *Transcript) Stream(fragment string) {
	t.live.WriteString(fragment)
}

// Live returns the streamed text of the in-flight turn.
func (t *Transcript) Live() string {
	return t.live.String()
}

// EndStream drops the streamed text. The final result replaces it.
func (t *Transcript) EndStream() {
	t.live.Reset()
}

// Entries returns the finished entries.
func (t *Transcript) Entries() []Entry {
	return t.entries
}

// Render draws the transcript for width.
func (t *Transcript) Render(theme *styles.Theme, md *components.MarkdownRenderer, width int) string {
	blocks := make([]string, 0, len(t.entries)+1)
	for _, e := range t.entries {
		blocks = append(blocks, renderEntry(theme, md, width, e))
	}
	if live := t.live.String(); live != "" {
		blocks = append(blocks, theme.AssistantText.Width(width).Render(live))
	}
	return strings.Join(blocks, "\n")
}

func renderEntry(theme *styles.Theme, md *components.MarkdownRenderer, width int, e Entry) string {
	switch e.Kind {
	case EntryUser:
		return theme.ItemMuted.Render(separator) + "\n" + theme.UserLine.Width(width).Render(e.Text)
	case EntryAssistant:
		return md.Render(e.Text, width)
	case EntryTool:
		return theme.ToolBlock.Width(width).Render(e.Text)
	case EntrySettings:
		return theme.SettingsLine.Width(width).Render(e.Text)
	case EntrySystem:
		return theme.SystemLine.Width(width).Render(e.Text)
	case EntryError:
		return theme.ErrorLine.Width(width).Render(e.Text)
	}
	return e.Text
}
