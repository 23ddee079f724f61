// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"errors"
	"fmt"
	"slices"

	"github.com/jeranaias/mcpchat/internal/util"
)

// =============================================================================
// CHAT SESSION TYPES
// =============================================================================

// ChatSession is one conversation as shown in the transcript: a title and
// display-ready message strings in arrival order.
type ChatSession struct {
	Title    string   `json:"title"`
	Messages []string `json:"messages"`
}

// SessionInfo summarizes a session for listing.
type SessionInfo struct {
	Index        int    `json:"index"`
	Title        string `json:"title"`
	MessageCount int    `json:"message_count"`
}

// historyDocument is the on-disk shape: {"chat_list": [...]}.
type historyDocument struct {
	ChatList []ChatSession `json:"chat_list"`
}

// =============================================================================
// ERRORS
// =============================================================================

// ErrIndexOutOfRange is matched by every IndexError.
// Use errors.Is(err, ErrIndexOutOfRange) to check for it.
var ErrIndexOutOfRange = errors.New("chat index out of range")

// IndexError reports an index outside [0, Len).
type IndexError struct {
	Index int
	Len   int
}

func (e *IndexError) Error() string {
	return fmt.Sprintf("chat index %d out of range [0, %d)", e.Index, e.Len)
}

func (e *IndexError) Unwrap() error {
	return ErrIndexOutOfRange
}

// =============================================================================
// CHAT HISTORY STORE
// =============================================================================

// ChatHistory is the append-only list of chat sessions. Sessions are
// addressed by their position, which never changes because sessions are
// only ever appended. Every mutation rewrites the whole document before
// returning; if the write fails the in-memory list is restored and the
// I/O error is returned.
//
// ChatHistory is not safe for concurrent use. The presentation layer is
// its only writer; bridge events are applied on that same goroutine.
type ChatHistory struct {
	path     string
	sessions []ChatSession
}

// NewChatHistory loads the document at path, or starts empty when the file
// does not exist.
func NewChatHistory(path string) (*ChatHistory, error) {
	h := &ChatHistory{path: path}

	var doc historyDocument
	if _, err := util.ReadJSONDocument(path, &doc); err != nil {
		return nil, err
	}
	for _, s := range doc.ChatList {
		if s.Messages == nil {
			s.Messages = []string{}
		}
		h.sessions = append(h.sessions, s)
	}
	return h, nil
}

// Path returns the document path.
func (h *ChatHistory) Path() string {
	return h.path
}

// Len returns the number of sessions.
func (h *ChatHistory) Len() int {
	return len(h.sessions)
}

// CreateSession appends a session and returns its index, which is the
// number of sessions before the call.
func (h *ChatHistory) CreateSession(title string, initial []string) (int, error) {
	messages := make([]string, len(initial))
	copy(messages, initial)

	h.sessions = append(h.sessions, ChatSession{Title: title, Messages: messages})
	index := len(h.sessions) - 1

	if err := h.save(); err != nil {
		h.sessions = h.sessions[:index]
		return -1, err
	}
	return index, nil
}

// RenameSession replaces the title of session index.
func (h *ChatHistory) RenameSession(index int, title string) error {
	if err := h.check(index); err != nil {
		return err
	}
	old := h.sessions[index].Title
	h.sessions[index].Title = title
	if err := h.save(); err != nil {
		h.sessions[index].Title = old
		return err
	}
	return nil
}

// AppendMessage appends message to session index.
func (h *ChatHistory) AppendMessage(index int, message string) error {
	if err := h.check(index); err != nil {
		return err
	}
	n := len(h.sessions[index].Messages)
	h.sessions[index].Messages = append(h.sessions[index].Messages, message)
	if err := h.save(); err != nil {
		h.sessions[index].Messages = h.sessions[index].Messages[:n]
		return err
	}
	return nil
}

// ListSessions returns every session in creation order.
func (h *ChatHistory) ListSessions() []SessionInfo {
	infos := make([]SessionInfo, len(h.sessions))
	for i, s := range h.sessions {
		infos[i] = SessionInfo{Index: i, Title: s.Title, MessageCount: len(s.Messages)}
	}
	return infos
}

// GetMessages returns a copy of the messages of session index.
func (h *ChatHistory) GetMessages(index int) ([]string, error) {
	if err := h.check(index); err != nil {
		return nil, err
	}
	return slices.Clone(h.sessions[index].Messages), nil
}

// Sessions returns a deep copy of every session.
func (h *ChatHistory) Sessions() []ChatSession {
	out := make([]ChatSession, len(h.sessions))
	for i, s := range h.sessions {
		out[i] = ChatSession{Title: s.Title, Messages: slices.Clone(s.Messages)}
	}
	return out
}

func (h *ChatHistory) check(index int) error {
	if index < 0 || index >= len(h.sessions) {
		return &IndexError{Index: index, Len: len(h.sessions)}
	}
	return nil
}

func (h *ChatHistory) save() error {
	doc := historyDocument{ChatList: h.sessions}
	if doc.ChatList == nil {
		doc.ChatList = []ChatSession{}
	}
	return util.WriteJSONDocument(h.path, doc, "  ")
}
