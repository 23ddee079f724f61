// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"

	"github.com/jeranaias/mcpchat/internal/ui/styles"
	"github.com/jeranaias/mcpchat/internal/util"
)

// List is a titled list with a cursor. The zero value is an empty list.
type List struct {
	Title  string
	Items  []string
	Cursor int

	// Muted marks items drawn dimmed, such as placeholders.
	Muted map[int]bool
}

// SetItems replaces the items and keeps the cursor in range.
func (l *List) SetItems(items []string) {
	l.Items = items
	l.Muted = nil
	l.clamp()
}

// Len returns the number of items.
func (l *List) Len() int { return len(l.Items) }

// Selected returns the cursor position, or -1 when the list is empty.
func (l *List) Selected() int {
	if len(l.Items) == 0 {
		return -1
	}
	return l.Cursor
}

// Select moves the cursor to i.
func (l *List) Select(i int) {
	l.Cursor = i
	l.clamp()
}

// Up moves the cursor up one row.
func (l *List) Up() { l.Select(l.Cursor - 1) }

// Down moves the cursor down one row.
func (l *List) Down() { l.Select(l.Cursor + 1) }

func (l *List) clamp() {
	if l.Cursor >= len(l.Items) {
		l.Cursor = len(l.Items) - 1
	}
	if l.Cursor < 0 {
		l.Cursor = 0
	}
}

// View renders the list within width. The cursor is drawn only when
// focused.
func (l *List) View(theme *styles.Theme, width int, focused bool) string {
	var b strings.Builder
	b.WriteString(theme.SectionTitle.Render(l.Title))
	b.WriteString("\n")

	if len(l.Items) == 0 {
		b.WriteString(theme.ItemMuted.Render("(none)"))
		return b.String()
	}

	for i, item := range l.Items {
		line := util.TruncateWidth(item, width-2)
		switch {
		case focused && i == l.Cursor:
			b.WriteString(theme.ItemSelected.Width(width).Render(line))
		case l.Muted[i]:
			b.WriteString(theme.ItemMuted.Render(line))
		default:
			b.WriteString(theme.Item.Render(line))
		}
		if i < len(l.Items)-1 {
			b.WriteString("\n")
		}
	}
	return b.String()
}
