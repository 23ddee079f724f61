// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package toolserver manages MCP tool servers for mcpchat.
//
// # Key Types
//
//   - Registry: the {"mcpServers": {...}} document. Every write is validated
//     first and a rejected document is never persisted.
//   - ServerConfig: a registry entry decoded for connecting (stdio, sse or
//     streamable_http).
//   - Manager: live MCP client connections, the tools they expose and
//     CallTool routing.
//
// # Usage
//
//	reg := toolserver.NewRegistry(cfg.RegistryPath())
//	servers, err := reg.Servers()
//
//	mgr := toolserver.NewManager(logger)
//	defer mgr.Close()
//	err = mgr.Connect(ctx, servers)
//	out, err := mgr.CallTool(ctx, "get_weather", map[string]any{"location": "Seoul"})
package toolserver
