// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package components provides reusable UI pieces for the mcpchat TUI.
//
// # Key Types
//
//   - List: a selectable, width-aware list used for the sidebar sections
//   - Spinner: an ASCII busy indicator with elapsed time
//   - MarkdownRenderer: glamour rendering cached per width
//
// HighlightJSON colors tool-server definitions with chroma.
package components
