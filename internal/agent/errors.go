// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package agent

import (
	"errors"
	"fmt"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrTimeout matches any TimeoutError.
	ErrTimeout = errors.New("agent turn timed out")

	// ErrNotInitialized is returned by Chat before CreateModel.
	ErrNotInitialized = errors.New("agent is not initialized; create the model first")

	// ErrRecursionLimit is returned when the reasoning loop takes more steps
	// than allowed.
	ErrRecursionLimit = errors.New("recursion limit reached without a final answer")
)

// TimeoutError reports that a turn exceeded its configured timeout.
type TimeoutError struct {
	Seconds int
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("timeout after %d seconds", e.Seconds)
}

func (e *TimeoutError) Is(target error) bool {
	return target == ErrTimeout
}

// AgentError wraps any other failure of a turn.
type AgentError struct {
	Op  string
	Err error
}

func (e *AgentError) Error() string {
	if e.Op == "" {
		return e.Err.Error()
	}
	return e.Op + ": " + e.Err.Error()
}

func (e *AgentError) Unwrap() error {
	return e.Err
}
