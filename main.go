// mcpchat - chat with a local LLM that can call MCP tool servers.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/mcpchat/internal/agent"
	"github.com/jeranaias/mcpchat/internal/bridge"
	"github.com/jeranaias/mcpchat/internal/cli"
	"github.com/jeranaias/mcpchat/internal/config"
	"github.com/jeranaias/mcpchat/internal/logging"
	"github.com/jeranaias/mcpchat/internal/ollama"
	"github.com/jeranaias/mcpchat/internal/storage"
	"github.com/jeranaias/mcpchat/internal/toolserver"
	"github.com/jeranaias/mcpchat/internal/ui/chat"
	"github.com/jeranaias/mcpchat/internal/ui/styles"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// watchDebounce coalesces the burst of events an atomic write produces.
const watchDebounce = 250 * time.Millisecond

func init() {
	cli.Version = Version
	cli.GitCommit = GitCommit
	cli.BuildDate = BuildDate
}

func main() {
	os.Exit(run())
}

func run() int {
	cmd, args := cli.Parse()

	switch cmd {
	case cli.CmdHelp:
		if args.Unknown != "" {
			fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", args.Unknown)
			cli.PrintUsage(os.Stderr)
			return cli.ExitUsageError
		}
		cli.PrintUsage(os.Stdout)
		return cli.ExitSuccess
	case cli.CmdVersion:
		cli.PrintVersion(os.Stdout)
		return cli.ExitSuccess
	}

	app, err := openApp(args)
	if err != nil {
		return fail(err)
	}
	defer app.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	env := app.env(args)
	switch cmd {
	case cli.CmdTUI:
		err = app.runTUI()
	case cli.CmdChat:
		env.Backend = app.ollamaClient()
		env.Bridge = app.startWorker()
		err = cli.HandleChat(ctx, env)
	case cli.CmdAsk:
		env.Backend = app.ollamaClient()
		env.Bridge = app.startWorker()
		err = cli.HandleAsk(ctx, env, args)
	case cli.CmdServers:
		err = cli.HandleServers(env, args)
	case cli.CmdSessions:
		err = cli.HandleSessions(ctx, env, args)
	case cli.CmdSettings:
		err = cli.HandleSettings(env, args)
	}

	if err != nil {
		app.logger.Error("command failed", "command", cmd.String(), "error", err)
		// --json handlers already wrote the error envelope.
		if !args.JSON {
			return fail(err)
		}
		return cli.ExitCode(err)
	}
	return cli.ExitSuccess
}

func fail(err error) int {
	fmt.Fprintln(os.Stderr, cli.ErrorStyle.Render("Error:")+" "+err.Error())
	return cli.ExitCode(err)
}

// =============================================================================
// APPLICATION WIRING
// =============================================================================

// app holds the stores and long-lived services shared by every command.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	logClose io.Closer

	settings *config.Settings
	registry *toolserver.Registry
	history  *storage.ChatHistory

	client *ollama.Client
	worker *bridge.Worker
}

func openApp(args cli.Args) (*app, error) {
	var cfg *config.Config
	var err error
	if args.ConfigPath != "" {
		cfg, err = config.LoadFromPath(args.ConfigPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}
	if args.LogLevel != "" {
		cfg.Logging.Level = args.LogLevel
	} else if args.Verbose {
		cfg.Logging.Level = "debug"
	}
	if err := cfg.EnsureDataDir(); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	logger, closer, err := logging.Setup(logging.Options{
		Path:   cfg.LogPath(),
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, logger: logger, logClose: closer}

	a.settings, err = config.NewSettings(cfg.SettingsPath())
	if err != nil {
		a.Close()
		return nil, err
	}
	a.registry = toolserver.NewRegistry(cfg.RegistryPath())
	a.history, err = storage.NewChatHistory(cfg.HistoryPath())
	if err != nil {
		a.Close()
		return nil, err
	}

	logger.Info("mcpchat starting", "version", Version, "data_dir", cfg.Paths.DataDir)
	return a, nil
}

func (a *app) env(args cli.Args) *cli.Env {
	return &cli.Env{
		Config:   a.cfg,
		Settings: a.settings,
		Registry: a.registry,
		History:  a.history,
		Logger:   a.logger,
		Out:      os.Stdout,
		Err:      os.Stderr,
		JSON:     args.JSON,
		Quiet:    args.Quiet,
	}
}

// ollamaClient returns the shared Ollama client. ConnectTimeout bounds the
// health and model checks, not the chat streams.
func (a *app) ollamaClient() *ollama.Client {
	if a.client == nil {
		a.client = ollama.NewClientWithConfig(&ollama.ClientConfig{
			BaseURL: a.cfg.Ollama.URL,
			Timeout: a.cfg.ConnectTimeout(),
		})
	}
	return a.client
}

// startWorker builds the agent worker: a tool-server manager and the
// worker goroutine that owns the session.
func (a *app) startWorker() *bridge.Worker {
	client := a.ollamaClient()
	a.worker = bridge.NewWorker(bridge.Config{
		Settings: a.settings,
		Servers:  a.registry,
		Hub:      toolserver.NewManager(a.logger, toolserver.WithClientInfo("mcpchat", Version)),
		NewAgent: bridge.SessionFactory(client,
			agent.WithLogger(a.logger),
			agent.WithRecursionLimit(a.cfg.Agent.RecursionLimit),
		),
		Logger:    a.logger,
		InitDelay: a.cfg.InitDelay(),
	})
	a.worker.Start()
	return a.worker
}

func (a *app) runTUI() error {
	worker := a.startWorker()

	var changes <-chan config.FileChange
	watcher, err := config.NewWatcher(map[string]config.ChangeKind{
		a.cfg.SettingsPath(): config.KindSettings,
		a.cfg.RegistryPath(): config.KindRegistry,
	}, watchDebounce, a.logger)
	if err == nil {
		if err = watcher.Start(); err != nil {
			watcher.Close()
		}
	}
	if err != nil {
		a.logger.Warn("config watcher disabled", "error", err)
	} else {
		defer watcher.Close()
		changes = watcher.Changes()
	}

	markdownStyle := ""
	if !a.cfg.UI.RenderMarkdown {
		markdownStyle = "notty"
	}

	model := chat.New(chat.Config{
		Theme:         styles.NewTheme(),
		History:       a.history,
		Settings:      a.settings,
		Registry:      a.registry,
		Worker:        worker,
		Changes:       changes,
		MarkdownStyle: markdownStyle,
		PollInterval:  a.cfg.PollInterval(),
		Logger:        a.logger,
	})

	p := tea.NewProgram(model, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}

// Close stops the worker (which closes the tool servers) and the log file.
func (a *app) Close() {
	if a.worker != nil {
		if err := a.worker.Close(); err != nil {
			a.logger.Warn("shutdown", "error", err)
		}
	}
	if a.logClose != nil {
		_ = a.logClose.Close()
	}
}
