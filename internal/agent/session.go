// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package agent

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jeranaias/mcpchat/internal/logging"
	"github.com/jeranaias/mcpchat/internal/ollama"
	"github.com/jeranaias/mcpchat/internal/toolserver"
)

// Chatter runs one question through the agent. The bridge depends on this
// rather than on *Session so it can be driven by a fake in tests.
type Chatter interface {
	Chat(ctx context.Context, query, systemPrompt string, timeout time.Duration, emit func(Event)) Result
}

// =============================================================================
// SESSION
// =============================================================================

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the session logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Session) { s.logger = logging.OrDefault(l) }
}

// WithRecursionLimit sets the ReactLoop step limit.
func WithRecursionLimit(n int) Option {
	return func(s *Session) {
		if n > 0 {
			s.limit = n
		}
	}
}

// WithThreadID replaces the generated thread identifier.
func WithThreadID(id string) Option {
	return func(s *Session) { s.threadID = id }
}

// Session wraps a Model and tracks whether the next turn is the first since
// construction or reset.
//
// The thread identifier is generated once per Session and never rotated.
// Resetting rebuilds the Model, which discards its Memory.
type Session struct {
	client ChatClient
	caller ToolCaller
	logger *slog.Logger
	limit  int

	threadID string

	mu        sync.Mutex
	model     Model
	spec      ModelSpec
	tools     []toolserver.Tool
	firstChat bool
}

// NewSession creates a Session. Chat fails with ErrNotInitialized until
// CreateModel is called.
func NewSession(client ChatClient, caller ToolCaller, opts ...Option) *Session {
	s := &Session{
		client:    client,
		caller:    caller,
		logger:    slog.Default(),
		limit:     DefaultRecursionLimit,
		threadID:  uuid.NewString(),
		firstChat: true,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ThreadID returns the fixed conversation identifier.
func (s *Session) ThreadID() string {
	return s.threadID
}

// CreateModel builds (or rebuilds) the underlying model. With tools it is a
// ReactLoop, otherwise a PlainModel.
func (s *Session) CreateModel(spec ModelSpec, tools []toolserver.Tool) Model {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.createModelLocked(spec, tools)
}

func (s *Session) createModelLocked(spec ModelSpec, tools []toolserver.Tool) Model {
	s.spec = spec
	s.tools = tools
	if len(tools) > 0 && s.caller != nil {
		s.model = NewReactLoop(s.client, s.caller, spec, tools, s.limit, s.logger)
		s.logger.Info("react agent created", "model", spec.Name, "tools", len(tools))
	} else {
		s.model = NewPlainModel(s.client, spec)
		s.logger.Info("plain model created", "model", spec.Name)
	}
	return s.model
}

// Reset rebuilds the model and marks the next Chat as the first. A nil
// tools slice keeps the current tools.
func (s *Session) Reset(spec ModelSpec, tools []toolserver.Tool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if tools == nil {
		tools = s.tools
	}
	s.createModelLocked(spec, tools)
	s.firstChat = true
}

// Model returns the current model, or nil before CreateModel.
func (s *Session) Model() Model {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.model
}

// Chat runs query through the model. The system prompt is sent with every
// turn until one completes after construction or Reset. Events reach emit in order and
// never after Chat returns.
//
// When timeout elapses Chat returns at once with a timeout error; the model
// is cancelled through its context but is not waited for.
func (s *Session) Chat(ctx context.Context, query, systemPrompt string, timeout time.Duration, emit func(Event)) Result {
	s.mu.Lock()
	model := s.model
	if model == nil {
		s.mu.Unlock()
		return ErrorResult(ErrNotInitialized)
	}
	first := s.firstChat
	s.firstChat = false
	s.mu.Unlock()

	var input []ollama.Message
	if first && systemPrompt != "" {
		input = append(input, ollama.NewSystemMessage(systemPrompt))
	}
	input = append(input, ollama.NewUserMessage(query))

	runCtx := ctx
	cancel := context.CancelFunc(func() {})
	if timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, timeout)
	}
	defer cancel()

	var (
		gateMu sync.Mutex
		closed bool
		acc    Accumulator
	)
	gated := func(ev Event) {
		gateMu.Lock()
		defer gateMu.Unlock()
		if closed {
			return
		}
		acc.Add(ev)
		if emit != nil {
			emit(ev)
		}
	}
	closeGate := func() {
		gateMu.Lock()
		closed = true
		gateMu.Unlock()
	}

	done := make(chan error, 1)
	start := time.Now()
	go func() {
		_, err := model.Stream(runCtx, s.threadID, input, gated)
		done <- err
	}()

	var err error
	select {
	case err = <-done:
	case <-runCtx.Done():
		err = runCtx.Err()
	}
	closeGate()

	if err != nil && first {
		s.restoreFirst(model)
	}

	if err == nil {
		s.logger.Debug("chat turn finished", "elapsed", time.Since(start))
		gateMu.Lock()
		defer gateMu.Unlock()
		return acc.Result()
	}

	if errors.Is(runCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		secs := int(math.Ceil(timeout.Seconds()))
		s.logger.Warn("chat turn timed out", "timeout", timeout)
		return ErrorResult(&TimeoutError{Seconds: secs})
	}

	s.logger.Warn("chat turn failed", "error", err)
	return ErrorResult(err)
}

// restoreFirst re-arms the system prompt after a failed first turn unless a
// Reset replaced the model meanwhile. Failed turns leave memory untouched.
func (s *Session) restoreFirst(model Model) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.model == model {
		s.firstChat = true
	}
}
