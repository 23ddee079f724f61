// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides small helpers shared by the document stores and
// the terminal front ends.
//
// # Key Functions
//
//   - AtomicWriteFile: crash-safe file write (temp file, fsync, rename)
//   - WriteJSONDocument / ReadJSONDocument: JSON documents on top of it
//   - PrefixRunes, TruncateWidth: rune and cell aware truncation
//
// # Usage
//
//	err := util.WriteJSONDocument(path, doc, "    ")
//	title := util.PrefixRunes(message, 10, "...")
package util
