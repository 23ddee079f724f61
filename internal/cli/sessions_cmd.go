// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// sessions_cmd.go - Chat history commands.
package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/jeranaias/mcpchat/internal/agent"
	"github.com/jeranaias/mcpchat/internal/export"
	"github.com/jeranaias/mcpchat/internal/storage"
	"github.com/jeranaias/mcpchat/internal/util"
)

// DefaultSearchLimit is the number of hits sessions search prints.
const DefaultSearchLimit = 20

// HandleSessions dispatches the sessions subcommands.
func HandleSessions(ctx context.Context, env *Env, args Args) error {
	p := NewArgParser(args.Raw, "limit", "format", "out")

	switch p.Subcommand() {
	case "", "list", "ls":
		return handleSessionsList(env)
	case "show", "get":
		return handleSessionsShow(env, p.Positional(1))
	case "export":
		return handleSessionsExport(env, p.Positional(1), p.Flag("format"), p.Flag("out"))
	case "search", "find":
		limit, err := p.FlagIntOrDefault("limit", DefaultSearchLimit)
		if err != nil {
			return err
		}
		return handleSessionsSearch(ctx, env, strings.Join(p.PositionalFrom(1), " "), limit)
	}
	return usagef("unknown sessions subcommand %q (try: list, show, search, export)", p.Subcommand())
}

func handleSessionsList(env *Env) error {
	return OutputJSON(env.out(), env.JSON, "sessions list", func() (any, error) {
		sessions := env.History.ListSessions()
		if !env.JSON {
			fmt.Fprint(env.out(), storage.FormatSessionList(sessions))
			if len(sessions) == 0 {
				fmt.Fprintln(env.out())
			}
		}
		return sessions, nil
	})
}

func parseSessionIndex(arg, usage string) (int, error) {
	if arg == "" {
		return 0, usagef("usage: %s", usage)
	}
	index, err := strconv.Atoi(arg)
	if err != nil {
		return 0, usagef("session number must be an integer, got %q", arg)
	}
	return index, nil
}

func handleSessionsShow(env *Env, arg string) error {
	index, err := parseSessionIndex(arg, "mcpchat sessions show N")
	if err != nil {
		return err
	}

	return OutputJSON(env.out(), env.JSON, "sessions show", func() (any, error) {
		messages, err := env.History.GetMessages(index)
		if err != nil {
			return nil, &CommandError{Command: "sessions", Action: "show", Err: err}
		}
		if env.JSON {
			return storage.ChatSession{Title: env.History.ListSessions()[index].Title, Messages: messages}, nil
		}

		out := env.out()
		for _, msg := range messages {
			switch {
			case strings.HasPrefix(msg, "You: "):
				fmt.Fprintln(out, RenderSeparator())
				fmt.Fprintln(out, PromptStyle.Render(msg))
			case strings.HasPrefix(msg, "[Settings"):
				fmt.Fprintln(out, DimStyle.Render(msg))
			case strings.HasPrefix(msg, "Error: "):
				fmt.Fprintln(out, ErrorStyle.Render(msg))
			case agent.IsToolResultText(msg):
				fmt.Fprintln(out, ToolStyle.Render(msg))
			default:
				fmt.Fprintln(out, msg)
			}
		}
		return messages, nil
	})
}

// handleSessionsSearch mirrors the history into the SQLite index and
// queries it.
func handleSessionsSearch(ctx context.Context, env *Env, term string, limit int) error {
	term = strings.TrimSpace(term)
	if term == "" {
		return usagef("usage: mcpchat sessions search TERM [--limit N]")
	}

	return OutputJSON(env.out(), env.JSON, "sessions search", func() (any, error) {
		idx, err := storage.OpenSearchIndex(env.Config.IndexPath())
		if err != nil {
			return nil, &CommandError{Command: "sessions", Action: "search", Err: err}
		}
		defer idx.Close()

		if err := idx.Rebuild(ctx, env.History.Sessions()); err != nil {
			return nil, &CommandError{Command: "sessions", Action: "search", Err: err}
		}
		hits, err := idx.Search(ctx, term, limit)
		if err != nil {
			return nil, &CommandError{Command: "sessions", Action: "search", Err: err}
		}
		if env.JSON {
			return hits, nil
		}

		out := env.out()
		if len(hits) == 0 {
			fmt.Fprintf(out, "No messages match %q.\n", term)
			return hits, nil
		}
		for _, h := range hits {
			fmt.Fprintf(out, "%s %s\n",
				LabelStyle.Render(fmt.Sprintf("#%d %s", h.Index, h.Title)),
				util.TruncateWidth(util.FirstLine(h.Message), 60))
		}
		return hits, nil
	})
}

// handleSessionsExport writes session N to a Markdown or JSON file.
func handleSessionsExport(env *Env, arg, format, outDir string) error {
	index, err := parseSessionIndex(arg, "mcpchat sessions export N [--format markdown|json] [--out DIR]")
	if err != nil {
		return err
	}
	opts := export.DefaultOptions()
	if outDir != "" {
		opts.OutputDir = outDir
	}
	exp, err := export.ForFormat(format, opts)
	if err != nil {
		return &UsageError{Message: err.Error()}
	}

	return OutputJSON(env.out(), env.JSON, "sessions export", func() (any, error) {
		messages, err := env.History.GetMessages(index)
		if err != nil {
			return nil, &CommandError{Command: "sessions", Action: "export", Err: err}
		}
		session := storage.ChatSession{Title: env.History.ListSessions()[index].Title, Messages: messages}
		path, err := export.ExportToFile(session, exp, opts)
		if err != nil {
			return nil, &CommandError{Command: "sessions", Action: "export", Err: err}
		}
		if !env.JSON {
			fmt.Fprintln(env.out(), SuccessStyle.Render("Exported to "+path))
		}
		return map[string]any{"index": index, "path": path}, nil
	})
}
