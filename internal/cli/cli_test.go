// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"testing"

	"golang.org/x/time/rate"

	"github.com/jeranaias/mcpchat/internal/agent"
	"github.com/jeranaias/mcpchat/internal/config"
	"github.com/jeranaias/mcpchat/internal/ollama"
	"github.com/jeranaias/mcpchat/internal/storage"
	"github.com/jeranaias/mcpchat/internal/toolserver"
)

// =============================================================================
// PARSE TESTS (cli.go)
// =============================================================================

func TestParseArgs(t *testing.T) {
	tests := []struct {
		name    string
		argv    []string
		wantCmd Command
		check   func(*testing.T, Args)
	}{
		{name: "no args starts tui", argv: nil, wantCmd: CmdTUI},
		{name: "explicit tui", argv: []string{"tui"}, wantCmd: CmdTUI},
		{name: "chat", argv: []string{"chat"}, wantCmd: CmdChat},
		{
			name:    "ask joins the query",
			argv:    []string{"ask", "what", "is", "up"},
			wantCmd: CmdAsk,
			check: func(t *testing.T, a Args) {
				if a.Query != "what is up" {
					t.Errorf("Query = %q, want %q", a.Query, "what is up")
				}
			},
		},
		{
			name:    "trailing json flag",
			argv:    []string{"servers", "list", "--json"},
			wantCmd: CmdServers,
			check: func(t *testing.T, a Args) {
				if !a.JSON {
					t.Error("JSON should be set")
				}
				if a.Subcommand != "list" || len(a.Raw) != 1 {
					t.Errorf("Subcommand = %q, Raw = %v", a.Subcommand, a.Raw)
				}
			},
		},
		{
			name:    "config with equals",
			argv:    []string{"--config=/tmp/x.toml", "sessions"},
			wantCmd: CmdSessions,
			check: func(t *testing.T, a Args) {
				if a.ConfigPath != "/tmp/x.toml" {
					t.Errorf("ConfigPath = %q", a.ConfigPath)
				}
			},
		},
		{
			name:    "log level with space",
			argv:    []string{"--log-level", "debug", "settings", "list"},
			wantCmd: CmdSettings,
			check: func(t *testing.T, a Args) {
				if a.LogLevel != "debug" {
					t.Errorf("LogLevel = %q", a.LogLevel)
				}
			},
		},
		{
			name:    "double dash protects server args",
			argv:    []string{"servers", "add", "w", "python", "--", "-v"},
			wantCmd: CmdServers,
			check: func(t *testing.T, a Args) {
				if a.Verbose {
					t.Error("-v after -- must not be a global flag")
				}
				want := []string{"add", "w", "python", "--", "-v"}
				if strings.Join(a.Raw, " ") != strings.Join(want, " ") {
					t.Errorf("Raw = %v, want %v", a.Raw, want)
				}
			},
		},
		{name: "version flag", argv: []string{"--version"}, wantCmd: CmdVersion},
		{name: "help flag", argv: []string{"-h"}, wantCmd: CmdHelp},
		{
			name:    "unknown command",
			argv:    []string{"bogus"},
			wantCmd: CmdHelp,
			check: func(t *testing.T, a Args) {
				if a.Unknown != "bogus" {
					t.Errorf("Unknown = %q", a.Unknown)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, args := ParseArgs(tt.argv)
			if cmd != tt.wantCmd {
				t.Fatalf("command = %v, want %v", cmd, tt.wantCmd)
			}
			if tt.check != nil {
				tt.check(t, args)
			}
		})
	}
}

func TestPrintUsage_MentionsCommands(t *testing.T) {
	var buf bytes.Buffer
	PrintUsage(&buf)
	for _, want := range []string{"servers add", "sessions search", "settings set", Version} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("usage missing %q", want)
		}
	}
}

// =============================================================================
// ARG PARSER TESTS (args.go)
// =============================================================================

func TestArgParser(t *testing.T) {
	p := NewArgParser([]string{"search", "weather", "today", "--limit", "5", "--all"}, "limit")

	if p.Subcommand() != "search" {
		t.Errorf("Subcommand() = %q", p.Subcommand())
	}
	if got := strings.Join(p.PositionalFrom(1), " "); got != "weather today" {
		t.Errorf("PositionalFrom(1) = %q", got)
	}
	if p.Flag("limit") != "5" {
		t.Errorf("Flag(limit) = %q", p.Flag("limit"))
	}
	if !p.BoolFlag("all") {
		t.Error("BoolFlag(all) should be true")
	}
	if p.PositionalCount() != 3 {
		t.Errorf("PositionalCount() = %d, want 3", p.PositionalCount())
	}
	if p.Positional(9) != "" {
		t.Error("out of range positional should be empty")
	}
}

func TestArgParser_DoubleDash(t *testing.T) {
	p := NewArgParser([]string{"add", "--", "--port", "80"}, "port")
	if p.Flag("port") != "" {
		t.Error("flags after -- must stay positional")
	}
	if got := strings.Join(p.PositionalFrom(1), " "); got != "--port 80" {
		t.Errorf("PositionalFrom(1) = %q", got)
	}
}

func TestArgParser_FlagIntOrDefault(t *testing.T) {
	p := NewArgParser([]string{"search", "--limit", "abc"}, "limit")
	_, err := p.FlagIntOrDefault("limit", 10)
	var usage *UsageError
	if !errors.As(err, &usage) {
		t.Fatalf("err = %v, want UsageError", err)
	}

	n, err := NewArgParser(nil).FlagIntOrDefault("limit", 10)
	if err != nil || n != 10 {
		t.Errorf("FlagIntOrDefault() = %d, %v; want 10, nil", n, err)
	}
}

// =============================================================================
// EXIT CODE TESTS (errors.go)
// =============================================================================

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitSuccess},
		{"generic", errors.New("boom"), ExitGeneralError},
		{"usage", usagef("bad"), ExitUsageError},
		{"settings rejected", config.ValidationError{Field: "timeout", Message: "Enter an integer value."}, ExitConfigError},
		{"registry rejected", &toolserver.ValidationError{Message: "bad"}, ExitConfigError},
		{"ollama down", fmt.Errorf("connect: %w", ollama.ErrNotRunning), ExitNetworkError},
		{"unknown server", &CommandError{Command: "servers", Action: "show", Err: fmt.Errorf("x: %w", toolserver.ErrServerNotFound)}, ExitNotFoundError},
		{"bad session index", &storage.IndexError{Index: 4, Len: 1}, ExitNotFoundError},
		{"timed out turn", &TurnError{Message: "timeout", TimedOut: true}, ExitTimeoutError},
		{"failed turn", &TurnError{Message: "model error"}, ExitGeneralError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExitCode(tt.err); got != tt.want {
				t.Errorf("ExitCode(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}

func TestTurnError_IsTimeout(t *testing.T) {
	if !errors.Is(&TurnError{TimedOut: true}, agent.ErrTimeout) {
		t.Error("timed-out TurnError should match agent.ErrTimeout")
	}
	if errors.Is(&TurnError{}, agent.ErrTimeout) {
		t.Error("plain TurnError should not match agent.ErrTimeout")
	}
}

// =============================================================================
// STREAM PRINTER TESTS (printer.go)
// =============================================================================

func TestStreamPrinter_CoalescesFlushes(t *testing.T) {
	var buf bytes.Buffer
	// One token, never refilled during the test.
	p := NewStreamPrinter(&buf, rate.Limit(1e-9))

	if err := p.Fragment("Hel"); err != nil {
		t.Fatal(err)
	}
	if buf.String() != "Hel" {
		t.Fatalf("first fragment should flush, got %q", buf.String())
	}

	_ = p.Fragment("lo")
	_ = p.Fragment(" world")
	if buf.String() != "Hel" {
		t.Errorf("later fragments should wait for a flush, got %q", buf.String())
	}

	if err := p.Flush(); err != nil {
		t.Fatal(err)
	}
	if buf.String() != "Hello world" {
		t.Errorf("after Flush got %q", buf.String())
	}
	if p.Flushes() != 2 {
		t.Errorf("Flushes() = %d, want 2", p.Flushes())
	}
}

func TestStreamPrinter_BlockStartsOnNewLine(t *testing.T) {
	var buf bytes.Buffer
	p := NewStreamPrinter(&buf, 0)

	_ = p.Fragment("thinking")
	_ = p.Block("Tool Used: add\nresult")
	_ = p.Fragment("done")
	_ = p.EndLine()
	_ = p.Flush()

	want := "thinking\nTool Used: add\nresult\ndone\n"
	if buf.String() != want {
		t.Errorf("output = %q, want %q", buf.String(), want)
	}
}

func TestStreamPrinter_EndLineIsIdempotent(t *testing.T) {
	var buf bytes.Buffer
	p := NewStreamPrinter(&buf, 0)
	_ = p.Line("one")
	_ = p.EndLine()
	_ = p.Flush()
	if buf.String() != "one\n" {
		t.Errorf("output = %q", buf.String())
	}
}
