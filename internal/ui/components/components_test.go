// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"
	"testing"

	"github.com/jeranaias/mcpchat/internal/ui/styles"
)

func TestList_CursorClamps(t *testing.T) {
	var l List
	if got := l.Selected(); got != -1 {
		t.Errorf("empty Selected() = %d, want -1", got)
	}

	l.SetItems([]string{"a", "b", "c"})
	l.Up()
	if l.Cursor != 0 {
		t.Errorf("Cursor = %d, want 0", l.Cursor)
	}
	l.Down()
	l.Down()
	l.Down()
	if l.Cursor != 2 {
		t.Errorf("Cursor = %d, want 2", l.Cursor)
	}

	l.SetItems([]string{"only"})
	if l.Cursor != 0 {
		t.Errorf("Cursor = %d after shrink, want 0", l.Cursor)
	}
}

func TestList_ViewTruncates(t *testing.T) {
	l := List{Title: "Sessions"}
	l.SetItems([]string{strings.Repeat("x", 80)})

	out := l.View(styles.NewTheme(), 20, false)
	if !strings.Contains(out, "Sessions") {
		t.Errorf("view %q missing title", out)
	}
	if strings.Contains(out, strings.Repeat("x", 30)) {
		t.Errorf("view %q was not truncated", out)
	}
}

func TestSpinner_InactiveViewEmpty(t *testing.T) {
	s := NewSpinner()
	if got := s.View(styles.NewTheme()); got != "" {
		t.Errorf("View() = %q, want empty", got)
	}
	if cmd := s.Start("Waiting"); cmd == nil {
		t.Error("Start should return a tick command")
	}
	if !s.Active() {
		t.Error("spinner should be active after Start")
	}
	if !strings.Contains(s.View(styles.NewTheme()), "Waiting") {
		t.Error("active view should contain the message")
	}
}

func TestMarkdownRenderer(t *testing.T) {
	r := NewMarkdownRenderer("notty")
	out := r.Render("# Title\n\nsome *text*", 40)
	if !strings.Contains(out, "Title") || !strings.Contains(out, "text") {
		t.Errorf("Render() = %q", out)
	}
	if got := r.Render("plain", 0); got != "plain" {
		t.Errorf("zero width Render() = %q, want input unchanged", got)
	}
}

func TestHighlightJSON(t *testing.T) {
	out := HighlightJSON(`{"command": "python"}`)
	if !strings.Contains(out, "command") {
		t.Errorf("HighlightJSON dropped content: %q", out)
	}
}
