// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/mcpchat/internal/ui/styles"
)

// =============================================================================
// VIEW
// =============================================================================

// View renders the window.
func (m Model) View() string {
	if m.dialog != nil {
		return m.renderDialog()
	}

	body := lipgloss.JoinHorizontal(lipgloss.Top, m.renderSidebar(), m.renderChat())
	return lipgloss.JoinVertical(lipgloss.Left, m.renderHeader(), body, m.renderStatus())
}

func (m Model) renderHeader() string {
	snap := m.snapshot()
	title := "mcpchat | " + snap.AIService + " / " + snap.LLMModel
	return m.theme.Header.Width(m.theme.Width).Render(title)
}

func (m Model) renderSidebar() string {
	inner := styles.SidebarWidth - 2
	sections := []string{
		m.sessions.View(m.theme, inner, m.focus == PaneSessions),
		m.servers.View(m.theme, inner, m.focus == PaneServers),
		m.settingsRows.View(m.theme, inner, m.focus == PaneSettings),
	}

	style := m.theme.Pane
	if m.focus != PaneInput {
		style = m.theme.PaneFocus
	}
	height := m.theme.Height - 4
	if height < 1 {
		height = 1
	}
	return style.Width(inner).Height(height).Render(strings.Join(sections, "\n"))
}

func (m Model) renderChat() string {
	parts := []string{m.viewport.View()}

	if sp := m.spinner.View(m.theme); sp != "" {
		parts = append(parts, sp)
	} else {
		parts = append(parts, "")
	}

	input := m.theme.InputBox
	if !m.InputEnabled() {
		input = m.theme.InputDisabled
	}
	parts = append(parts, input.Width(m.theme.TranscriptWidth()).Render(m.input.View()))

	style := m.theme.Pane
	if m.focus == PaneInput {
		style = m.theme.PaneFocus
	}
	return style.Render(lipgloss.JoinVertical(lipgloss.Left, parts...))
}

func (m Model) renderStatus() string {
	line := helpLine(m.keys.ShortHelp())
	if m.focus == PaneServers {
		line += "  " + helpLine([]key.Binding{m.keys.AddServer})
	}
	if m.status != "" {
		line = m.status + "  |  " + line
	}
	return m.theme.StatusBar.Width(m.theme.Width).Render(line)
}

// helpLine formats bindings as "key desc" pairs.
func helpLine(bindings []key.Binding) string {
	parts := make([]string, 0, len(bindings))
	for _, b := range bindings {
		h := b.Help()
		parts = append(parts, h.Key+" "+h.Desc)
	}
	return strings.Join(parts, "  ")
}
