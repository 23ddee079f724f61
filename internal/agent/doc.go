// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package agent runs chat turns against a local model, optionally with
// tools from connected tool servers.
//
// A Session owns one Model. Without tools the Model is a PlainModel, a
// single streamed completion. With tools it is a ReactLoop that calls tools
// until the model answers in plain text. Both keep prior turns in a Memory
// keyed by the Session's thread identifier.
//
// # Key Types
//
//   - Session: CreateModel, Reset and Chat with a timeout
//   - Event: TextFragment or ToolResult, streamed while a turn runs
//   - Accumulator: folds events into the final Result
//   - TimeoutError, AgentError: turn failures
//
// # Usage
//
//	s := agent.NewSession(ollamaClient, manager, agent.WithLogger(logger))
//	s.CreateModel(agent.ModelSpec{Name: snap.LLMModel, Temperature: snap.Temperature}, manager.Tools())
//	res := s.Chat(ctx, "weather in Paris?", snap.Prompt, snap.TimeoutDuration(), func(ev agent.Event) {
//	    fmt.Print(ev.Text())
//	})
package agent
