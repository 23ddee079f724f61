// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package bridge runs the agent off the UI goroutine.
//
// The presentation layer sends Commands (init, chat, reset_chat) to a
// Worker, which executes them strictly one at a time and answers with
// Events (init_done, chat_message, chat_result, system_message). The two
// channels are the only state shared between the sides.
//
// Every chat command produces exactly one chat_result, preceded by zero or
// more chat_message events. Failures, timeouts included, travel inside the
// result rather than as a separate event.
//
// # Usage
//
//	w := bridge.NewWorker(bridge.Config{
//	    Settings: settings,
//	    Servers:  registry,
//	    Hub:      toolserver.NewManager(logger),
//	    NewAgent: bridge.SessionFactory(ollamaClient),
//	})
//	w.Start()
//	defer w.Close()
//	w.Send(bridge.Init())
package bridge
