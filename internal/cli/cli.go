// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// cli.go - CLI parsing for mcpchat.
package cli

import (
	"fmt"
	"io"
	"os"
	"strings"
)

// Version information (can be overridden at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Command represents the CLI command to execute.
type Command int

const (
	CmdTUI Command = iota
	CmdChat
	CmdAsk
	CmdServers
	CmdSessions
	CmdSettings
	CmdVersion
	CmdHelp
)

// String returns the command name as typed.
func (c Command) String() string {
	switch c {
	case CmdTUI:
		return "tui"
	case CmdChat:
		return "chat"
	case CmdAsk:
		return "ask"
	case CmdServers:
		return "servers"
	case CmdSessions:
		return "sessions"
	case CmdSettings:
		return "settings"
	case CmdVersion:
		return "version"
	}
	return "help"
}

// Args holds parsed CLI arguments.
type Args struct {
	// Global flags
	Quiet      bool
	Verbose    bool
	JSON       bool
	ConfigPath string
	LogLevel   string

	// Command-specific
	Query      string
	Subcommand string

	// Unknown is set when the command word was not recognized.
	Unknown string

	// Raw args after the command word
	Raw []string
}

const usageText = `mcpchat - chat with a local LLM that can call MCP tool servers

Usage:
  mcpchat                         Start the TUI (default)
  mcpchat chat                    Interactive chat in the terminal
  mcpchat ask "question"          Ask a single question
  mcpchat servers [subcommand]    Manage tool servers
  mcpchat sessions [subcommand]   Browse chat history
  mcpchat settings [subcommand]   View or change AI settings
  mcpchat version                 Show version information

Tool Server Commands:
  mcpchat servers list                      List registered servers
  mcpchat servers show NAME                 Print a server entry
  mcpchat servers add NAME CMD [ARGS...]    Register a stdio server
                                            (put -- before ARGS that look like flags)
  mcpchat servers remove NAME               Remove a server
  mcpchat servers validate [FILE]           Validate a registry document
  mcpchat servers template                  Print the new-server template

Session Commands:
  mcpchat sessions list           List saved chats
  mcpchat sessions show N         Print the messages of chat N
  mcpchat sessions search TERM    Find messages containing TERM (--limit N)
  mcpchat sessions export N       Write chat N to a file
                                  (--format markdown|json, --out DIR)

Settings Commands:
  mcpchat settings list           Show every setting
  mcpchat settings get KEY        Show one setting
  mcpchat settings set KEY VALUE  Change a setting

Global Flags:
  --config PATH      Use an alternate config.toml
  --log-level LEVEL  debug, info, warn or error
  --json             Machine-readable output where supported
  -q, --quiet        Minimal output
  -v, --verbose      Verbose output
  -h, --help         Show this help

Version: %s
`

// PrintUsage prints the usage/help text.
func PrintUsage(w io.Writer) {
	fmt.Fprintf(w, usageText, Version)
}

// PrintVersion prints version information.
func PrintVersion(w io.Writer) {
	fmt.Fprintf(w, "mcpchat version %s\n", Version)
	fmt.Fprintf(w, "  Git commit: %s\n", GitCommit)
	fmt.Fprintf(w, "  Build date: %s\n", BuildDate)
}

// Parse parses os.Args.
func Parse() (Command, Args) {
	return ParseArgs(os.Args[1:])
}

// ParseArgs parses command-line arguments and returns the command and args.
func ParseArgs(argv []string) (Command, Args) {
	remaining, parsed, help := parseGlobalFlags(argv)
	if help {
		return CmdHelp, parsed
	}
	if len(remaining) == 0 {
		return CmdTUI, parsed
	}

	cmd := strings.ToLower(remaining[0])
	remaining = remaining[1:]
	parsed.Raw = remaining
	if len(remaining) > 0 {
		parsed.Subcommand = remaining[0]
	}

	switch cmd {
	case "tui":
		return CmdTUI, parsed
	case "chat":
		return CmdChat, parsed
	case "ask":
		parsed.Query = strings.Join(remaining, " ")
		return CmdAsk, parsed
	case "servers", "server":
		return CmdServers, parsed
	case "sessions", "session", "history":
		return CmdSessions, parsed
	case "settings", "setting":
		return CmdSettings, parsed
	case "version":
		return CmdVersion, parsed
	case "help":
		return CmdHelp, parsed
	}

	parsed.Unknown = cmd
	return CmdHelp, parsed
}

// parseGlobalFlags extracts global flags from args and returns remaining
// args. Flags after the command word are global too, so "mcpchat servers
// list --json" works.
func parseGlobalFlags(args []string) (remaining []string, parsed Args, help bool) {
	for i := 0; i < len(args); i++ {
		arg := args[i]

		switch arg {
		case "--":
			// Left in place so the subcommand parser also stops there.
			remaining = append(remaining, args[i:]...)
			return remaining, parsed, help
		case "-q", "--quiet":
			parsed.Quiet = true
		case "-v", "--verbose":
			parsed.Verbose = true
		case "--json":
			parsed.JSON = true
		case "-h", "--help":
			help = true
		case "--version":
			remaining = append([]string{"version"}, remaining...)
		case "--config", "--log-level":
			if i+1 < len(args) {
				i++
				setValueFlag(&parsed, arg, args[i])
			}
		default:
			if name, value, ok := strings.Cut(arg, "="); ok && (name == "--config" || name == "--log-level") {
				setValueFlag(&parsed, name, value)
				continue
			}
			remaining = append(remaining, arg)
		}
	}
	return remaining, parsed, help
}

func setValueFlag(parsed *Args, name, value string) {
	switch name {
	case "--config":
		parsed.ConfigPath = value
	case "--log-level":
		parsed.LogLevel = value
	}
}
