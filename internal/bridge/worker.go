// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package bridge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jeranaias/mcpchat/internal/agent"
	"github.com/jeranaias/mcpchat/internal/config"
	"github.com/jeranaias/mcpchat/internal/logging"
	"github.com/jeranaias/mcpchat/internal/toolserver"
)

// Queue sizes. The outbound queue absorbs a burst of streamed fragments
// between two UI drains.
const (
	inboundSize  = 16
	outboundSize = 512
)

// ErrClosed is returned by Send after Close.
var ErrClosed = errors.New("bridge worker closed")

// =============================================================================
// COLLABORATORS
// =============================================================================

// SettingsSource yields a fresh settings snapshot. *config.Settings
// implements it.
type SettingsSource interface {
	Snapshot() (config.Snapshot, error)
}

// ServerSource lists the configured tool servers. *toolserver.Registry
// implements it.
type ServerSource interface {
	Servers() ([]toolserver.ServerConfig, error)
}

// ToolHub holds live tool-server connections. *toolserver.Manager
// implements it.
type ToolHub interface {
	agent.ToolCaller
	Connect(ctx context.Context, servers []toolserver.ServerConfig) error
	Tools() []toolserver.Tool
	Failures() []toolserver.Failure
	Close() error
}

// Agent is the session the worker drives. *agent.Session implements it.
type Agent interface {
	agent.Chatter
	Reset(spec agent.ModelSpec, tools []toolserver.Tool)
}

// AgentFactory builds a ready Agent for the given model and tools.
type AgentFactory func(spec agent.ModelSpec, tools []toolserver.Tool, caller agent.ToolCaller) Agent

// SessionFactory returns an AgentFactory backed by agent.Session.
func SessionFactory(client agent.ChatClient, opts ...agent.Option) AgentFactory {
	return func(spec agent.ModelSpec, tools []toolserver.Tool, caller agent.ToolCaller) Agent {
		s := agent.NewSession(client, caller, opts...)
		s.CreateModel(spec, tools)
		return s
	}
}

// Config wires a Worker.
type Config struct {
	Settings SettingsSource
	Servers  ServerSource
	Hub      ToolHub
	NewAgent AgentFactory
	Logger   *slog.Logger

	// InitDelay pauses before and after connecting tool servers, giving
	// freshly spawned servers time to come up.
	InitDelay time.Duration
}

// =============================================================================
// WORKER
// =============================================================================

// Worker owns the agent and executes commands one at a time in arrival
// order. Commands go in through Send; events come out of Events.
type Worker struct {
	cfg    Config
	logger *slog.Logger

	in  chan Command
	out chan Event

	// ctx is the lifetime of every agent and tool-server operation.
	ctx    context.Context
	cancel context.CancelFunc

	// Owned by the Run goroutine.
	agent Agent
	tools []toolserver.Tool

	startOnce sync.Once
	closeOnce sync.Once
	done      chan struct{}
	started   atomic.Bool
}

// NewWorker creates a Worker. Call Start (or Run) to begin processing.
func NewWorker(cfg Config) *Worker {
	ctx, cancel := context.WithCancel(context.Background())
	return &Worker{
		cfg:    cfg,
		logger: logging.OrDefault(cfg.Logger),
		in:     make(chan Command, inboundSize),
		out:    make(chan Event, outboundSize),
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
}

// Send queues cmd. It blocks while the inbound queue is full and fails
// once the worker is closed.
func (w *Worker) Send(cmd Command) error {
	select {
	case <-w.ctx.Done():
		return ErrClosed
	default:
	}
	select {
	case w.in <- cmd:
		return nil
	case <-w.ctx.Done():
		return ErrClosed
	}
}

// Events returns the outbound queue. It is never closed; stop reading
// after Close.
func (w *Worker) Events() <-chan Event {
	return w.out
}

// Start runs the loop in a new goroutine.
func (w *Worker) Start() {
	w.startOnce.Do(func() {
		w.started.Store(true)
		go w.Run()
	})
}

// Run processes commands until Close. It blocks.
func (w *Worker) Run() {
	defer close(w.done)
	for {
		select {
		case <-w.ctx.Done():
			return
		case cmd := <-w.in:
			w.handle(cmd)
		}
	}
}

// Close stops the loop, releases tool-server connections and cancels the
// worker's context. An in-flight command is cancelled, not waited out.
func (w *Worker) Close() error {
	var err error
	w.closeOnce.Do(func() {
		w.cancel()
		if w.started.Load() {
			<-w.done
		}
		if w.cfg.Hub != nil {
			err = w.cfg.Hub.Close()
		}
	})
	return err
}

func (w *Worker) emit(ev Event) {
	select {
	case w.out <- ev:
	case <-w.ctx.Done():
	}
}

func (w *Worker) handle(cmd Command) {
	start := time.Now()
	w.logger.Debug("bridge command", "type", cmd.Type)

	switch cmd.Type {
	case CmdInit:
		w.handleInit()
	case CmdResetChat:
		w.handleReset()
	case CmdChat:
		w.handleChat(cmd.Data)
	default:
		w.logger.Warn("unknown bridge command", "type", cmd.Type)
		return
	}

	w.logger.Debug("bridge command done", "type", cmd.Type, "elapsed", time.Since(start))
}

// snapshot falls back to defaults when the settings document is unreadable
// and tells the user why.
func (w *Worker) snapshot() config.Snapshot {
	snap, err := w.cfg.Settings.Snapshot()
	if err != nil {
		w.logger.Warn("settings reload failed", "error", err)
		w.emit(textEvent(EventSystemMessage, "Settings could not be loaded: "+err.Error()))
		return config.SnapshotFrom(config.DefaultSettings())
	}
	return snap
}

func specFor(snap config.Snapshot) agent.ModelSpec {
	return agent.ModelSpec{Name: snap.LLMModel, Temperature: snap.Temperature}
}

func (w *Worker) sleep(d time.Duration) bool {
	if d <= 0 {
		return true
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-w.ctx.Done():
		return false
	}
}

func (w *Worker) handleInit() {
	snap := w.snapshot()

	servers, err := w.cfg.Servers.Servers()
	var skipped toolserver.EntryErrors
	switch {
	case errors.As(err, &skipped):
		for _, f := range skipped {
			w.logger.Warn("tool server entry skipped", "server", f.Server, "error", f.Err)
			w.emit(textEvent(EventSystemMessage, fmt.Sprintf("Skipped tool server %q: %v", f.Server, f.Err)))
		}
	case err != nil:
		w.logger.Warn("tool server registry unreadable", "error", err)
		w.emit(textEvent(EventSystemMessage, "Tool server config could not be loaded: "+err.Error()))
		servers = nil
	}

	if !w.sleep(w.cfg.InitDelay) {
		return
	}
	if err := w.cfg.Hub.Connect(w.ctx, servers); err != nil {
		return
	}
	if !w.sleep(w.cfg.InitDelay) {
		return
	}

	for _, f := range w.cfg.Hub.Failures() {
		w.emit(textEvent(EventSystemMessage, fmt.Sprintf("Failed to connect to tool server %q: %v", f.Server, f.Err)))
	}

	w.tools = w.cfg.Hub.Tools()
	w.logger.Info("tools loaded", "count", len(w.tools))
	for _, t := range w.tools {
		w.logger.Debug("tool", "server", t.Server, "name", t.Name)
	}

	w.agent = w.cfg.NewAgent(specFor(snap), w.tools, w.cfg.Hub)
	w.emit(Event{Type: EventInitDone})
}

func (w *Worker) handleReset() {
	if w.agent == nil {
		return
	}
	snap := w.snapshot()
	w.agent.Reset(specFor(snap), w.tools)
}

// handleChat always emits exactly one chat_result.
func (w *Worker) handleChat(message string) {
	if w.agent == nil {
		w.emit(Event{Type: EventChatResult, Data: agent.ErrorResult(agent.ErrNotInitialized)})
		return
	}

	snap := w.snapshot()
	res := w.agent.Chat(w.ctx, message, snap.Prompt, snap.TimeoutDuration(), func(ev agent.Event) {
		w.emit(textEvent(EventChatMessage, ev.Text()))
	})
	if res.Failed() {
		w.logger.Warn("chat failed", "error", res.Error)
	}
	w.emit(Event{Type: EventChatResult, Data: res})
}
