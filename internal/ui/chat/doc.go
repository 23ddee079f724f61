// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the chat window of the TUI.
//
// The window shows a sidebar with chat history, tool servers and AI
// settings next to the chat display and input line. It talks to the agent
// only through a bridge worker: commands are sent with Worker.Send and the
// outbound queue is drained every Config.PollInterval.
//
// # Key Types
//
//   - Model: Bubble Tea model for the whole window
//   - Transcript: Finished entries plus the text of the streaming turn
//   - KeyMap: Window key bindings
//
// # Usage
//
//	m := chat.New(chat.Config{
//	    Theme:    styles.NewTheme(),
//	    History:  history,
//	    Settings: settings,
//	    Registry: registry,
//	    Worker:   worker,
//	})
//	p := tea.NewProgram(m, tea.WithAltScreen())
package chat
