// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package agent

import (
	"errors"
	"strings"
)

// NoTextResponse is the output of a turn in which the model produced no text.
const NoTextResponse = "AI did not produce a text response."

// ToolUsedPrefix starts every formatted tool result.
const ToolUsedPrefix = "Tool Used: "

// toolResultRule closes every formatted tool result.
const toolResultRule = "---------------------"

// IsToolResultText reports whether s is a formatted tool result block.
func IsToolResultText(s string) bool {
	return strings.HasPrefix(s, ToolUsedPrefix)
}

// =============================================================================
// STREAM EVENTS
// =============================================================================

// Event is one item streamed out of a turn: a TextFragment or a ToolResult.
type Event interface {
	// Text is the display form forwarded to the user as it arrives.
	Text() string
	isEvent()
}

// TextFragment is a piece of model output, forwarded unbatched.
type TextFragment struct {
	Content string
}

func (f TextFragment) Text() string { return f.Content }
func (TextFragment) isEvent() {}

// ToolResult is the outcome of one tool invocation.
type ToolResult struct {
	Name    string
	Content string
}

// Format renders the result as the block shown in the transcript.
func (r ToolResult) Format() string {
	return ToolUsedPrefix + r.Name + "\nResult: " + r.Content + "\n" + toolResultRule
}

func (r ToolResult) Text() string { return r.Format() }
func (ToolResult) isEvent() {}

// =============================================================================
// RESULT
// =============================================================================

// Result is the outcome of a turn. Exactly one of Output or Error is set.
type Result struct {
	Output    string `json:"output,omitempty"`
	ToolCalls string `json:"tool_calls,omitempty"`
	Error     string `json:"error,omitempty"`

	// TimedOut marks an Error caused by the turn timeout.
	TimedOut bool `json:"timed_out,omitempty"`
}

// Failed reports whether the turn ended in an error.
func (r Result) Failed() bool {
	return r.Error != ""
}

// ErrorResult converts err into a Result.
func ErrorResult(err error) Result {
	var te *TimeoutError
	if errors.As(err, &te) {
		return Result{Error: te.Error(), TimedOut: true}
	}
	return Result{Error: err.Error()}
}

// Accumulator folds the events of one turn into its Result.
type Accumulator struct {
	text  strings.Builder
	tools []string
	seen  bool
}

// Add records an event.
func (a *Accumulator) Add(ev Event) {
	switch e := ev.(type) {
	case TextFragment:
		if e.Content != "" {
			a.text.WriteString(e.Content)
			a.seen = true
		}
	case ToolResult:
		a.tools = append(a.tools, e.Format())
	}
}

// Result returns the aggregate: text joined and trimmed, tool results
// newline-joined.
func (a *Accumulator) Result() Result {
	out := NoTextResponse
	if a.seen {
		out = strings.TrimSpace(a.text.String())
	}
	return Result{Output: out, ToolCalls: strings.Join(a.tools, "\n")}
}
