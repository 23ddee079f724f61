// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements the mcpchat command line: argument parsing, the
// line-mode chat REPL, one-shot ask, and the servers, sessions and
// settings management commands.
//
// Every handler returns its error instead of printing it; main prints and
// maps it to an exit code with ExitCode. With --json each management
// command writes a single JSONResponse envelope.
//
// # Key Types
//
//   - Args, Command: the parsed command line
//   - ArgParser: flags and positionals of a subcommand
//   - Env: stores, bridge and writers shared by the handlers
//   - StreamPrinter: buffered streaming output with rate-limited flushes
//   - ChatCLI: liner-backed input with persistent history
//
// # Usage
//
//	cmd, args := cli.Parse()
//	switch cmd {
//	case cli.CmdServers:
//		err = cli.HandleServers(env, args)
//	}
//	os.Exit(cli.ExitCode(err))
package cli
