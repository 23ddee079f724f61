// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package export writes saved chat sessions to files.
//
// # Key Types
//
//   - Exporter: renders a storage.ChatSession
//   - MarkdownExporter: headings per speaker, fenced tool results
//   - JSONExporter: the session as stored
//   - Options: output directory and metadata toggle
//
// # Usage
//
//	exp, err := export.ForFormat("markdown", opts)
//	path, err := export.ExportToFile(session, exp, opts)
package export
