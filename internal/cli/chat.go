// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// chat.go - Interactive line-mode chat.
//
// The REPL talks to the agent through the same bridge as the TUI and
// records each conversation into the chat history.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"

	"github.com/jeranaias/mcpchat/internal/bridge"
)

const chatPrompt = "mcpchat> "

// =============================================================================
// INPUT HISTORY
// =============================================================================

// ChatCLI provides line editing and input history for the REPL.
type ChatCLI struct {
	line        *liner.State
	historyFile string
}

// NewChatCLI creates a ChatCLI whose history lives at historyFile.
func NewChatCLI(historyFile string) *ChatCLI {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	c := &ChatCLI{line: line, historyFile: historyFile}
	c.LoadHistory()
	return c
}

// LoadHistory loads input history from disk, if any.
func (c *ChatCLI) LoadHistory() {
	if c.historyFile == "" {
		return
	}
	if f, err := os.Open(c.historyFile); err == nil {
		_, _ = c.line.ReadHistory(f)
		f.Close()
	}
}

// ReadInput reads one line. Non-empty lines are added to history.
func (c *ChatCLI) ReadInput(prompt string) (string, error) {
	input, err := c.line.Prompt(prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(input) != "" {
		c.line.AppendHistory(input)
	}
	return input, nil
}

// SaveHistory writes input history with owner-only permissions.
func (c *ChatCLI) SaveHistory() {
	if c.historyFile == "" {
		return
	}
	if err := os.MkdirAll(filepath.Dir(c.historyFile), 0700); err != nil {
		return
	}
	f, err := os.OpenFile(c.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return
	}
	defer f.Close()
	_, _ = c.line.WriteHistory(f)
}

// Close saves history and restores the terminal.
func (c *ChatCLI) Close() {
	c.SaveHistory()
	c.line.Close()
}

// =============================================================================
// REPL
// =============================================================================

// lineReader is the input side of the REPL.
type lineReader interface {
	ReadInput(prompt string) (string, error)
}

// HandleChat runs the interactive REPL until /quit, EOF or Ctrl+C.
func HandleChat(ctx context.Context, env *Env) error {
	if env.Bridge == nil {
		return errors.New("chat: agent bridge not configured")
	}
	input := NewChatCLI(env.Config.ReplHistoryPath())
	defer input.Close()
	return runREPL(ctx, env, input)
}

func runREPL(ctx context.Context, env *Env, input lineReader) error {
	out := env.out()
	p := NewStreamPrinter(out, 0)

	if !env.Quiet {
		fmt.Fprintln(out, TitleStyle.Render("mcpchat")+" "+DimStyle.Render("Initializing agent..."))
	}
	if err := checkBackend(ctx, env); err != nil {
		return err
	}
	if err := awaitInit(ctx, env.Bridge, p); err != nil {
		return err
	}
	if !env.Quiet {
		fmt.Fprintln(out, DimStyle.Render("Agent initialization done. Enter your message. /help lists commands."))
	}

	rec := newRecorder(env.History)
	for {
		line, err := input.ReadInput(chatPrompt)
		if err != nil {
			// Ctrl+C at the prompt, Ctrl+D and closed stdin all end the session.
			fmt.Fprintln(out)
			if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "/") {
			quit, err := handleSlashCommand(env, rec, line)
			if err != nil {
				fmt.Fprintln(env.errOut(), ErrorStyle.Render("[Error]")+" "+err.Error())
			}
			if quit {
				return nil
			}
			continue
		}

		if err := rec.user(env, line); err != nil {
			env.logger().Warn("record message", "error", err)
		}
		res, err := runTurn(ctx, env.Bridge, line, p)
		var turnErr *TurnError
		if err != nil && !errors.As(err, &turnErr) {
			return err
		}
		if err := rec.result(res); err != nil {
			env.logger().Warn("record result", "error", err)
		}
	}
}

// handleSlashCommand runs a REPL command. It reports whether the REPL
// should exit.
func handleSlashCommand(env *Env, rec *recorder, line string) (bool, error) {
	fields := strings.Fields(line)
	out := env.out()

	switch strings.ToLower(fields[0]) {
	case "/quit", "/exit", "/q":
		return true, nil

	case "/new", "/reset":
		if err := env.Bridge.Send(bridge.ResetChat()); err != nil {
			return false, err
		}
		rec.reset()
		fmt.Fprintln(out, SuccessStyle.Render("Started a new chat."))
		return false, nil

	case "/help", "/?":
		fmt.Fprintln(out, "Commands:")
		fmt.Fprintln(out, "  /new     Start a new chat")
		fmt.Fprintln(out, "  /help    Show this help")
		fmt.Fprintln(out, "  /quit    Leave the chat")
		return false, nil
	}
	return false, fmt.Errorf("unknown command %q (try /help)", fields[0])
}
