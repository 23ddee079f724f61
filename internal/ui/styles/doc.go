// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package styles provides the visual styling for the mcpchat TUI.
//
// All colors are Lip Gloss AdaptiveColor values so the same theme works on
// light and dark terminals. NewTheme detects the color profile with termenv.
package styles
