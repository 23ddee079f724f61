// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage persists chat sessions for mcpchat.
//
// The chat history is a single JSON document, {"chat_list": [{"title",
// "messages"}]}, rewritten atomically on every mutation. Sessions are
// index-addressed and append-only, so an index handed out once stays valid
// for the life of the document.
//
// # Key Types
//
//   - ChatHistory: the session list with CreateSession, RenameSession,
//     AppendMessage, ListSessions and GetMessages
//   - IndexError: out-of-range index, matches ErrIndexOutOfRange
//   - SearchIndex: SQLite mirror used for history search
//
// # Usage
//
//	history, err := storage.NewChatHistory(cfg.HistoryPath())
//	idx, err := history.CreateSession(storage.TitleFor(msg), storage.NewSessionMessages(snap, msg))
//	err = history.AppendMessage(idx, reply)
package storage
