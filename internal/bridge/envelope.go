// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package bridge

import (
	"github.com/jeranaias/mcpchat/internal/agent"
)

// =============================================================================
// COMMANDS
// =============================================================================

// CommandType names an inbound command.
type CommandType string

const (
	CmdInit      CommandType = "init"
	CmdChat      CommandType = "chat"
	CmdResetChat CommandType = "reset_chat"
)

// Command is an inbound envelope. Data carries the message for CmdChat.
type Command struct {
	Type CommandType `json:"type"`
	Data string      `json:"data,omitempty"`
}

// Init returns an init command.
func Init() Command { return Command{Type: CmdInit} }

// Chat returns a chat command for message.
func Chat(message string) Command { return Command{Type: CmdChat, Data: message} }

// ResetChat returns a reset_chat command.
func ResetChat() Command { return Command{Type: CmdResetChat} }

// =============================================================================
// EVENTS
// =============================================================================

// EventType names an outbound event.
type EventType string

const (
	EventInitDone      EventType = "init_done"
	EventChatMessage   EventType = "chat_message"
	EventChatResult    EventType = "chat_result"
	EventChatError     EventType = "chat_error"
	EventSystemMessage EventType = "system_message"
)

// Event is an outbound envelope. Data is a string for chat_message,
// chat_error and system_message, an agent.Result for chat_result, and nil
// for init_done.
type Event struct {
	Type EventType `json:"type"`
	Data any       `json:"data,omitempty"`
}

// Text returns the string payload, or "" when Data is not a string.
func (e Event) Text() string {
	s, _ := e.Data.(string)
	return s
}

// Result returns the chat_result payload.
func (e Event) Result() (agent.Result, bool) {
	r, ok := e.Data.(agent.Result)
	return r, ok
}

func textEvent(t EventType, s string) Event {
	return Event{Type: t, Data: s}
}
