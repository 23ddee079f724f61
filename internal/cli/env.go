// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/jeranaias/mcpchat/internal/bridge"
	"github.com/jeranaias/mcpchat/internal/config"
	"github.com/jeranaias/mcpchat/internal/logging"
	"github.com/jeranaias/mcpchat/internal/storage"
	"github.com/jeranaias/mcpchat/internal/toolserver"
)

// Bridge is the worker side used by chat and ask. *bridge.Worker
// implements it.
type Bridge interface {
	Send(cmd bridge.Command) error
	Events() <-chan bridge.Event
}

// Backend is checked before chat and ask start the agent. *ollama.Client
// implements it.
type Backend interface {
	CheckRunning(ctx context.Context) error
	ModelExists(ctx context.Context, name string) (bool, error)
}

// Env carries what the command handlers need. Bridge is only required by
// chat and ask; a nil Backend skips the Ollama checks.
type Env struct {
	Config   *config.Config
	Settings *config.Settings
	Registry *toolserver.Registry
	History  *storage.ChatHistory
	Bridge   Bridge
	Backend  Backend
	Logger   *slog.Logger

	Out io.Writer
	Err io.Writer

	JSON  bool
	Quiet bool
}

func (e *Env) out() io.Writer {
	if e.Out == nil {
		return os.Stdout
	}
	return e.Out
}

func (e *Env) errOut() io.Writer {
	if e.Err == nil {
		return os.Stderr
	}
	return e.Err
}

func (e *Env) logger() *slog.Logger {
	return logging.OrDefault(e.Logger)
}
