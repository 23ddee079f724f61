// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import "testing"

func TestNewTheme(t *testing.T) {
	theme := NewTheme()
	if theme == nil {
		t.Fatal("NewTheme returned nil")
	}

	if got := theme.ErrorLine.Render("x"); got == "" {
		t.Error("ErrorLine rendered empty string")
	}
}

func TestTheme_TranscriptWidth(t *testing.T) {
	theme := NewTheme()

	theme.SetSize(120, 40)
	if got, want := theme.TranscriptWidth(), 120-SidebarWidth-4; got != want {
		t.Errorf("TranscriptWidth() = %d, want %d", got, want)
	}

	theme.SetSize(30, 40)
	if got := theme.TranscriptWidth(); got != 20 {
		t.Errorf("TranscriptWidth() = %d, want 20 minimum", got)
	}
}
