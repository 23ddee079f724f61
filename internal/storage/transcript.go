// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/jeranaias/mcpchat/internal/config"
	"github.com/jeranaias/mcpchat/internal/util"
)

// =============================================================================
// TRANSCRIPT LINES
// =============================================================================

// TitleMaxRunes is how much of the first message becomes a session title.
const TitleMaxRunes = 10

// TitleFor derives a session title from its first user message.
func TitleFor(message string) string {
	return util.PrefixRunes(message, TitleMaxRunes, "...")
}

// SettingsLine is the first message of every new session.
func SettingsLine(snap config.Snapshot) string {
	return fmt.Sprintf("[Settings] AI: %s, Model: %s, Temp: %s",
		snap.AIService, snap.LLMModel, config.FormatValue(snap.Temperature))
}

// UserLine formats a message typed by the user.
func UserLine(message string) string {
	return "You: " + message
}

// SettingsChangedLine records a settings edit in the transcript.
func SettingsChangedLine(key string, value any) string {
	return fmt.Sprintf("[Settings changed] %s value changed: %s", key, config.FormatValue(value))
}

// ErrorLine formats a failed turn.
func ErrorLine(msg string) string {
	return "Error: " + msg
}

// NewSessionMessages returns the initial messages for a session started by
// message under the given settings.
func NewSessionMessages(snap config.Snapshot, message string) []string {
	return []string{SettingsLine(snap), UserLine(message)}
}

// =============================================================================
// SESSION LIST FORMATTING
// =============================================================================

// FormatSessionList renders sessions as a table for the CLI.
func FormatSessionList(sessions []SessionInfo) string {
	if len(sessions) == 0 {
		return "No sessions found."
	}

	var sb strings.Builder
	sb.WriteString("Sessions:\n")
	sb.WriteString("--------------------------------------------\n")
	sb.WriteString(formatPadded("#", 6) + " " + formatPadded("Messages", 8) + " Title\n")
	sb.WriteString("--------------------------------------------\n")
	for _, s := range sessions {
		sb.WriteString(formatPadded(strconv.Itoa(s.Index), 6) + " " +
			formatPadded(strconv.Itoa(s.MessageCount), 8) + " " +
			util.TruncateWidth(s.Title, 40) + "\n")
	}
	return sb.String()
}

func formatPadded(s string, width int) string {
	if n := len([]rune(s)); n < width {
		return s + strings.Repeat(" ", width-n)
	}
	return s
}
