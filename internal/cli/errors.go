// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// errors.go - Error types and exit codes for CLI commands.
//
// Handlers ALWAYS return errors and never print-and-return-nil; main
// decides how to display them and which exit code to use.
package cli

import (
	"errors"
	"fmt"

	"github.com/jeranaias/mcpchat/internal/agent"
	"github.com/jeranaias/mcpchat/internal/config"
	"github.com/jeranaias/mcpchat/internal/ollama"
	"github.com/jeranaias/mcpchat/internal/storage"
	"github.com/jeranaias/mcpchat/internal/toolserver"
)

// =============================================================================
// EXIT CODES
// =============================================================================

const (
	// ExitSuccess indicates successful execution
	ExitSuccess = 0
	// ExitGeneralError indicates a general/unknown error
	ExitGeneralError = 1
	// ExitUsageError indicates invalid command usage or arguments
	ExitUsageError = 2
	// ExitConfigError indicates a rejected settings or registry document
	ExitConfigError = 3
	// ExitNetworkError indicates Ollama could not be reached
	ExitNetworkError = 5
	// ExitNotFoundError indicates a resource was not found
	ExitNotFoundError = 7
	// ExitTimeoutError indicates a chat turn timed out
	ExitTimeoutError = 8
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// CommandError represents a CLI command error with context.
type CommandError struct {
	Command string // Command that failed (e.g., "servers")
	Action  string // Action being performed (e.g., "add")
	Err     error
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Command, e.Action, e.Err)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// UsageError is a malformed command line.
type UsageError struct {
	Message string
}

func (e *UsageError) Error() string {
	return e.Message
}

// usagef builds a UsageError.
func usagef(format string, args ...any) error {
	return &UsageError{Message: fmt.Sprintf(format, args...)}
}

// TurnError is a chat turn that ended with an error result.
type TurnError struct {
	Message  string
	TimedOut bool
}

func (e *TurnError) Error() string {
	return e.Message
}

// Is matches agent.ErrTimeout for timed-out turns.
func (e *TurnError) Is(target error) bool {
	return e.TimedOut && target == agent.ErrTimeout
}

// =============================================================================
// EXIT CODE MAPPING
// =============================================================================

// ExitCode maps err to a process exit code.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var usage *UsageError
	var cfgErr config.ValidationError
	var regErr *toolserver.ValidationError

	switch {
	case errors.As(err, &usage):
		return ExitUsageError
	case errors.As(err, &cfgErr), errors.As(err, &regErr):
		return ExitConfigError
	case ollama.IsNotRunning(err):
		return ExitNetworkError
	case errors.Is(err, toolserver.ErrServerNotFound),
		errors.Is(err, storage.ErrIndexOutOfRange),
		ollama.IsModelNotFound(err):
		return ExitNotFoundError
	case errors.Is(err, agent.ErrTimeout):
		return ExitTimeoutError
	}
	return ExitGeneralError
}
