// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package agent

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jeranaias/mcpchat/internal/logging"
	"github.com/jeranaias/mcpchat/internal/ollama"
	"github.com/jeranaias/mcpchat/internal/toolserver"
)

// DefaultRecursionLimit bounds the steps of one ReactLoop turn. Each model
// call and each round of tool execution is one step.
const DefaultRecursionLimit = 100

// =============================================================================
// COLLABORATORS
// =============================================================================

// ChatClient streams a chat completion. *ollama.Client implements it.
type ChatClient interface {
	ChatStreamWithTools(ctx context.Context, model string, messages []ollama.Message, tools []ollama.Tool, opts *ollama.Options, callback ollama.StreamCallback) error
}

// ToolCaller invokes a tool by name. *toolserver.Manager implements it.
type ToolCaller interface {
	CallTool(ctx context.Context, name string, args map[string]any) (string, error)
}

// Model runs one turn on a thread. input holds the messages new in this
// turn (an optional system message and the user message). Events are
// passed to emit as they are produced. The returned messages are the ones
// the model added; on success they are already stored in the model's memory.
type Model interface {
	Stream(ctx context.Context, thread string, input []ollama.Message, emit func(Event)) ([]ollama.Message, error)
}

// ModelSpec selects the model and its sampling parameters.
type ModelSpec struct {
	Name        string
	Temperature float64
}

func (s ModelSpec) options() *ollama.Options {
	return &ollama.Options{Temperature: s.Temperature}
}

// streamTurn runs one streamed completion and forwards its text.
func streamTurn(ctx context.Context, client ChatClient, spec ModelSpec, msgs []ollama.Message, tools []ollama.Tool, emit func(Event)) (ollama.Message, error) {
	acc := ollama.NewStreamAccumulator()
	err := client.ChatStreamWithTools(ctx, spec.Name, msgs, tools, spec.options(), func(chunk ollama.StreamChunk) {
		acc.Add(chunk)
		if chunk.Content != "" {
			emit(TextFragment{Content: chunk.Content})
		}
	})
	if err != nil {
		return ollama.Message{}, err
	}
	return acc.Message(), nil
}

// =============================================================================
// PLAIN MODEL
// =============================================================================

// PlainModel is a single streamed completion with no tools.
type PlainModel struct {
	client ChatClient
	spec   ModelSpec
	memory *Memory
}

// NewPlainModel creates a PlainModel with fresh memory.
func NewPlainModel(client ChatClient, spec ModelSpec) *PlainModel {
	return &PlainModel{client: client, spec: spec, memory: NewMemory()}
}

// Memory returns the model's conversation store.
func (m *PlainModel) Memory() *Memory { return m.memory }

// Stream implements Model.
func (m *PlainModel) Stream(ctx context.Context, thread string, input []ollama.Message, emit func(Event)) ([]ollama.Message, error) {
	msgs := append(m.memory.Load(thread), input...)

	reply, err := streamTurn(ctx, m.client, m.spec, msgs, nil, emit)
	if err != nil {
		return nil, &AgentError{Op: "model", Err: err}
	}

	m.memory.Append(thread, input...)
	m.memory.Append(thread, reply)
	return []ollama.Message{reply}, nil
}

// =============================================================================
// REACT LOOP
// =============================================================================

// ReactLoop alternates model calls and tool execution until the model
// answers without requesting a tool.
type ReactLoop struct {
	client ChatClient
	caller ToolCaller
	spec   ModelSpec
	tools  []ollama.Tool
	limit  int
	memory *Memory
	logger *slog.Logger
}

// NewReactLoop creates a tool-augmented loop with fresh memory. A limit of
// zero or less means DefaultRecursionLimit.
func NewReactLoop(client ChatClient, caller ToolCaller, spec ModelSpec, tools []toolserver.Tool, limit int, logger *slog.Logger) *ReactLoop {
	if limit <= 0 {
		limit = DefaultRecursionLimit
	}
	return &ReactLoop{
		client: client,
		caller: caller,
		spec:   spec,
		tools:  OllamaTools(tools),
		limit:  limit,
		memory: NewMemory(),
		logger: logging.OrDefault(logger),
	}
}

// Memory returns the loop's conversation store.
func (l *ReactLoop) Memory() *Memory { return l.memory }

// Stream implements Model. The turn is stored in memory only when it
// completes; an aborted turn leaves the thread as it was.
func (l *ReactLoop) Stream(ctx context.Context, thread string, input []ollama.Message, emit func(Event)) ([]ollama.Message, error) {
	msgs := append(l.memory.Load(thread), input...)
	var produced []ollama.Message

	for step := 1; ; step++ {
		if step > l.limit {
			return nil, &AgentError{Op: "react", Err: fmt.Errorf("%w (%d)", ErrRecursionLimit, l.limit)}
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		reply, err := streamTurn(ctx, l.client, l.spec, msgs, l.tools, emit)
		if err != nil {
			return nil, &AgentError{Op: "model", Err: err}
		}
		msgs = append(msgs, reply)
		produced = append(produced, reply)

		if !reply.HasToolCalls() {
			l.memory.Append(thread, input...)
			l.memory.Append(thread, produced...)
			return produced, nil
		}

		step++
		for _, call := range reply.ToolCalls {
			name := call.Function.Name
			content, err := l.caller.CallTool(ctx, name, call.Function.Arguments)
			if err != nil {
				if ctx.Err() != nil {
					return nil, ctx.Err()
				}
				// The error goes back to the model as the observation.
				l.logger.Warn("tool call failed", "tool", name, "error", err)
				content = "Error: " + err.Error()
			} else {
				l.logger.Debug("tool call", "tool", name)
			}

			emit(ToolResult{Name: name, Content: content})
			result := ollama.NewToolResultMessage(name, content)
			msgs = append(msgs, result)
			produced = append(produced, result)
		}
	}
}

// =============================================================================
// TOOL ADAPTER
// =============================================================================

// OllamaTools converts tool handles into function definitions.
func OllamaTools(tools []toolserver.Tool) []ollama.Tool {
	if len(tools) == 0 {
		return nil
	}
	out := make([]ollama.Tool, 0, len(tools))
	for _, t := range tools {
		out = append(out, ollama.NewFunctionTool(t.Name, t.Description, ollama.ToolParameters{
			Type:       t.Schema.Type,
			Properties: t.Schema.Properties,
			Required:   t.Schema.Required,
		}))
	}
	return out
}
