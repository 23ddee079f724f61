// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package agent

import (
	"sync"

	"github.com/jeranaias/mcpchat/internal/ollama"
)

// Memory keeps the conversation of each thread for the life of the process.
// It is safe for concurrent use.
type Memory struct {
	mu      sync.Mutex
	threads map[string][]ollama.Message
}

// NewMemory creates an empty Memory.
func NewMemory() *Memory {
	return &Memory{threads: make(map[string][]ollama.Message)}
}

// Load returns a copy of the messages stored for thread.
func (m *Memory) Load(thread string) []ollama.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	msgs := m.threads[thread]
	out := make([]ollama.Message, len(msgs))
	copy(out, msgs)
	return out
}

// Append adds messages to the end of thread.
func (m *Memory) Append(thread string, msgs ...ollama.Message) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.threads[thread] = append(m.threads[thread], msgs...)
}

// Len returns the number of stored messages for thread.
func (m *Memory) Len(thread string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.threads[thread])
}
