// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ollama

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"strings"
	"time"
)

// maxLineSize bounds a single NDJSON line. Tool-call chunks with large
// arguments can exceed bufio's 64KB default.
const maxLineSize = 4 << 20

// =============================================================================
// STREAM READER
// =============================================================================

// StreamReader handles line-by-line JSON parsing of streaming responses.
type StreamReader struct {
	scanner *bufio.Scanner
}

// NewStreamReader creates a new stream reader from an io.Reader.
func NewStreamReader(r io.Reader) *StreamReader {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	return &StreamReader{scanner: sc}
}

// Process reads the stream and calls the callback for each chunk.
// Blocks until the final chunk, end of body, or ctx is done.
func (s *StreamReader) Process(ctx context.Context, callback StreamCallback) error {
	for s.scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		chunk := s.parseLine(s.scanner.Bytes())
		if chunk == nil {
			continue
		}
		callback(*chunk)
		if chunk.Done {
			return nil
		}
	}
	if err := s.scanner.Err(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return err
	}
	return ctx.Err()
}

// streamLine is the wire shape of one /api/chat NDJSON line.
type streamLine struct {
	Model   string `json:"model"`
	Message struct {
		Role      string     `json:"role"`
		Content   string     `json:"content"`
		ToolCalls []ToolCall `json:"tool_calls,omitempty"`
	} `json:"message"`
	Done            bool   `json:"done"`
	DoneReason      string `json:"done_reason,omitempty"`
	TotalDuration   int64  `json:"total_duration,omitempty"`
	PromptEvalCount int    `json:"prompt_eval_count,omitempty"`
	EvalCount       int    `json:"eval_count,omitempty"`
}

// parseLine returns nil for blank or malformed lines.
func (s *StreamReader) parseLine(line []byte) *StreamChunk {
	line = bytes.TrimSpace(line)
	if len(line) == 0 {
		return nil
	}

	var resp streamLine
	if err := json.Unmarshal(line, &resp); err != nil {
		return nil
	}

	chunk := &StreamChunk{
		Content:    resp.Message.Content,
		ToolCalls:  resp.Message.ToolCalls,
		Done:       resp.Done,
		DoneReason: resp.DoneReason,
		Model:      resp.Model,
	}
	if resp.Done {
		chunk.TotalDuration = time.Duration(resp.TotalDuration)
		chunk.PromptTokens = resp.PromptEvalCount
		chunk.CompletionTokens = resp.EvalCount
	}
	return chunk
}

// =============================================================================
// STREAM ACCUMULATOR
// =============================================================================

// StreamAccumulator collects the text and tool calls of one model turn.
type StreamAccumulator struct {
	content   strings.Builder
	toolCalls []ToolCall
}

// NewStreamAccumulator creates a new accumulator.
func NewStreamAccumulator() *StreamAccumulator {
	return &StreamAccumulator{}
}

// Add processes a new chunk.
func (a *StreamAccumulator) Add(chunk StreamChunk) {
	a.content.WriteString(chunk.Content)
	a.toolCalls = append(a.toolCalls, chunk.ToolCalls...)
}

// Content returns the accumulated text.
func (a *StreamAccumulator) Content() string {
	return a.content.String()
}

// ToolCalls returns every tool call seen so far.
func (a *StreamAccumulator) ToolCalls() []ToolCall {
	return a.toolCalls
}

// Message returns the assistant message for this turn, suitable for
// appending to the conversation.
func (a *StreamAccumulator) Message() Message {
	return NewAssistantMessageWithTools(a.Content(), a.toolCalls)
}
