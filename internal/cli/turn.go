// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/jeranaias/mcpchat/internal/agent"
	"github.com/jeranaias/mcpchat/internal/bridge"
	"github.com/jeranaias/mcpchat/internal/ollama"
	"github.com/jeranaias/mcpchat/internal/storage"
)

// =============================================================================
// AGENT STARTUP
// =============================================================================

// checkBackend fails fast when Ollama is unreachable or the configured
// model is not pulled. Errors are *ollama.ClientError so ExitCode maps them.
func checkBackend(ctx context.Context, env *Env) error {
	if env.Backend == nil {
		return nil
	}
	if err := env.Backend.CheckRunning(ctx); err != nil {
		return err
	}
	snap, err := env.Settings.Snapshot()
	if err != nil {
		return err
	}
	ok, err := env.Backend.ModelExists(ctx, snap.LLMModel)
	if err != nil {
		return err
	}
	if !ok {
		return &ollama.ClientError{
			Type:    ollama.ErrTypeModelNotFound,
			Message: fmt.Sprintf("model %q not found (run: ollama pull %s)", snap.LLMModel, snap.LLMModel),
		}
	}
	return nil
}

// awaitInit sends init and blocks until init_done. System messages seen
// on the way are printed as notices.
func awaitInit(ctx context.Context, b Bridge, p *StreamPrinter) error {
	if err := b.Send(bridge.Init()); err != nil {
		return fmt.Errorf("start agent: %w", err)
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-b.Events():
			if !ok {
				return bridge.ErrClosed
			}
			switch ev.Type {
			case bridge.EventInitDone:
				return nil
			case bridge.EventSystemMessage:
				if err := p.Line(WarningStyle.Render(ev.Text())); err != nil {
					return err
				}
			}
		}
	}
}

// =============================================================================
// ONE TURN
// =============================================================================

// runTurn sends message and streams the reply to p until chat_result.
// Text fragments are printed as they arrive and tool results as separate
// blocks. A failed turn is returned as *TurnError along with its result.
func runTurn(ctx context.Context, b Bridge, message string, p *StreamPrinter) (agent.Result, error) {
	if err := b.Send(bridge.Chat(message)); err != nil {
		return agent.Result{}, fmt.Errorf("send message: %w", err)
	}

	ticker := time.NewTicker(FlushInterval)
	defer ticker.Stop()

	sawText := false
	for {
		select {
		case <-ctx.Done():
			_ = p.Flush()
			return agent.Result{}, ctx.Err()

		case <-ticker.C:
			if err := p.Flush(); err != nil {
				return agent.Result{}, err
			}

		case ev, ok := <-b.Events():
			if !ok {
				_ = p.Flush()
				return agent.Result{}, bridge.ErrClosed
			}
			switch ev.Type {
			case bridge.EventChatMessage:
				text := ev.Text()
				var err error
				if agent.IsToolResultText(text) {
					err = p.Block(ToolStyle.Render(text))
				} else {
					sawText = sawText || text != ""
					err = p.Fragment(text)
				}
				if err != nil {
					return agent.Result{}, err
				}

			case bridge.EventSystemMessage:
				if err := p.Line(WarningStyle.Render(ev.Text())); err != nil {
					return agent.Result{}, err
				}

			case bridge.EventChatError:
				msg := ev.Text()
				_ = p.Line(ErrorStyle.Render(storage.ErrorLine(msg)))
				return agent.Result{Error: msg}, &TurnError{Message: msg}

			case bridge.EventChatResult:
				res, ok := ev.Result()
				if !ok {
					msg := "output not found in response."
					_ = p.Line(ErrorStyle.Render(storage.ErrorLine(msg)))
					return agent.Result{Error: msg}, &TurnError{Message: msg}
				}
				if res.Failed() {
					_ = p.Line(ErrorStyle.Render(storage.ErrorLine(res.Error)))
					return res, &TurnError{Message: res.Error, TimedOut: res.TimedOut}
				}
				if !sawText {
					_ = p.Line(res.Output)
				}
				if err := p.EndLine(); err != nil {
					return res, err
				}
				return res, p.Flush()
			}
		}
	}
}

// =============================================================================
// SESSION RECORDING
// =============================================================================

// recorder persists a conversation the same way the TUI does: the first
// message creates the session with the settings line, later ones append.
type recorder struct {
	history *storage.ChatHistory
	index   int
}

func newRecorder(h *storage.ChatHistory) *recorder {
	return &recorder{history: h, index: -1}
}

// reset makes the next message start a new session.
func (r *recorder) reset() {
	r.index = -1
}

func (r *recorder) user(env *Env, message string) error {
	if r.history == nil {
		return nil
	}
	if r.index < 0 {
		snap, err := env.Settings.Snapshot()
		if err != nil {
			return err
		}
		idx, err := r.history.CreateSession(storage.TitleFor(message), storage.NewSessionMessages(snap, message))
		if err != nil {
			return err
		}
		r.index = idx
		return nil
	}
	return r.history.AppendMessage(r.index, storage.UserLine(message))
}

func (r *recorder) result(res agent.Result) error {
	if r.history == nil || r.index < 0 {
		return nil
	}
	if res.Failed() {
		return r.history.AppendMessage(r.index, storage.ErrorLine(res.Error))
	}
	if res.ToolCalls != "" {
		if err := r.history.AppendMessage(r.index, res.ToolCalls); err != nil {
			return err
		}
	}
	return r.history.AppendMessage(r.index, res.Output)
}
