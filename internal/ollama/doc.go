// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package ollama provides the HTTP client for communicating with the Ollama API.
//
// Only the surface the chat agent needs is implemented: a health check,
// model listing, and streaming /api/chat with tool definitions.
//
// # Key Types
//
//   - Client: HTTP client for Ollama API communication
//   - Message: Chat message with role, content, and optional tool calls
//   - Tool: Function tool definition sent with a chat request
//   - StreamReader: NDJSON reader that yields StreamChunk values
//   - StreamAccumulator: Collects the text and tool calls of one turn
//
// # Usage
//
//	client := ollama.NewClientWithConfig(&ollama.ClientConfig{BaseURL: url})
//	acc := ollama.NewStreamAccumulator()
//	err := client.ChatStreamWithTools(ctx, "llama3.2", messages, tools,
//	    &ollama.Options{Temperature: 0.2}, func(c ollama.StreamChunk) {
//	        acc.Add(c)
//	    })
package ollama
