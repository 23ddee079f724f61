// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// SidebarWidth is the fixed width of the left column.
const SidebarWidth = 32

// Theme holds all the styled components for the application.
// It detects the terminal's color capability and adjusts accordingly.
type Theme struct {
	// Terminal capabilities
	IsDark       bool
	HasTrueColor bool
	ColorProfile termenv.Profile

	// Layout dimensions
	Width  int
	Height int

	// ==========================================================================
	// FRAME
	// ==========================================================================

	Header    lipgloss.Style
	StatusBar lipgloss.Style
	Pane      lipgloss.Style
	PaneFocus lipgloss.Style

	// ==========================================================================
	// SIDEBAR LISTS
	// ==========================================================================

	SectionTitle lipgloss.Style
	Item         lipgloss.Style
	ItemSelected lipgloss.Style
	ItemMuted    lipgloss.Style

	// ==========================================================================
	// TRANSCRIPT
	// ==========================================================================

	UserLine      lipgloss.Style
	AssistantText lipgloss.Style
	ToolBlock     lipgloss.Style
	SettingsLine  lipgloss.Style
	SystemLine    lipgloss.Style
	ErrorLine     lipgloss.Style

	// ==========================================================================
	// INPUT
	// ==========================================================================

	InputBox      lipgloss.Style
	InputDisabled lipgloss.Style
	Spinner       lipgloss.Style

	// ==========================================================================
	// DIALOGS
	// ==========================================================================

	Dialog      lipgloss.Style
	DialogTitle lipgloss.Style
	DialogError lipgloss.Style
	DialogOK    lipgloss.Style
	DialogHint  lipgloss.Style
}

// NewTheme creates a new theme with all styles configured.
func NewTheme() *Theme {
	colorProfile := termenv.ColorProfile()
	t := &Theme{
		IsDark:       termenv.HasDarkBackground(),
		HasTrueColor: colorProfile == termenv.TrueColor,
		ColorProfile: colorProfile,
	}
	t.initStyles()
	return t
}

// initStyles initializes all the lip gloss styles.
func (t *Theme) initStyles() {
	t.Header = lipgloss.NewStyle().
		Bold(true).
		Foreground(Cyan).
		Background(SurfaceDim).
		Padding(0, 1)

	t.StatusBar = lipgloss.NewStyle().
		Background(SurfaceDim).
		Foreground(TextSecondary).
		Padding(0, 1)

	t.Pane = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Overlay)

	t.PaneFocus = t.Pane.
		BorderForeground(FocusRing)

	// Sidebar
	t.SectionTitle = lipgloss.NewStyle().
		Bold(true).
		Foreground(Purple).
		MarginTop(1)

	t.Item = lipgloss.NewStyle().
		Foreground(TextPrimary).
		PaddingLeft(1)

	t.ItemSelected = lipgloss.NewStyle().
		Foreground(TextPrimary).
		Background(SelectionBg).
		Bold(true).
		PaddingLeft(1)

	t.ItemMuted = lipgloss.NewStyle().
		Foreground(TextMuted).
		Italic(true).
		PaddingLeft(1)

	// Transcript
	t.UserLine = lipgloss.NewStyle().
		Foreground(Cyan).
		Bold(true)

	t.AssistantText = lipgloss.NewStyle().
		Foreground(TextPrimary)

	t.ToolBlock = lipgloss.NewStyle().
		Foreground(Emerald).
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(Emerald).
		BorderLeft(true).
		PaddingLeft(1)

	t.SettingsLine = lipgloss.NewStyle().
		Foreground(Amber).
		Italic(true)

	t.SystemLine = lipgloss.NewStyle().
		Foreground(TextSecondary).
		Italic(true)

	t.ErrorLine = lipgloss.NewStyle().
		Foreground(Rose).
		Bold(true)

	// Input
	t.InputBox = lipgloss.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderTop(true).
		BorderForeground(Overlay).
		Padding(0, 1)

	t.InputDisabled = t.InputBox.
		Foreground(TextMuted)

	t.Spinner = lipgloss.NewStyle().
		Foreground(Purple)

	// Dialogs
	t.Dialog = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Purple).
		Padding(1, 2)

	t.DialogTitle = lipgloss.NewStyle().
		Bold(true).
		Foreground(Purple).
		MarginBottom(1)

	t.DialogError = lipgloss.NewStyle().
		Foreground(Rose)

	t.DialogOK = lipgloss.NewStyle().
		Foreground(Emerald)

	t.DialogHint = lipgloss.NewStyle().
		Foreground(TextMuted)
}

// SetSize records the terminal size.
func (t *Theme) SetSize(width, height int) {
	t.Width = width
	t.Height = height
}

// TranscriptWidth is the width left for the chat column.
func (t *Theme) TranscriptWidth() int {
	w := t.Width - SidebarWidth - 4
	if w < 20 {
		return 20
	}
	return w
}
