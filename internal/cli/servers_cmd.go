// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// servers_cmd.go - Tool server registry commands.
package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/jeranaias/mcpchat/internal/toolserver"
	"github.com/jeranaias/mcpchat/internal/ui/components"
)

// serverRow is one registry entry as printed by servers list.
type serverRow struct {
	Name      string   `json:"name"`
	Command   string   `json:"command,omitempty"`
	Args      []string `json:"args"`
	Transport string   `json:"transport,omitempty"`
	URL       string   `json:"url,omitempty"`
}

// HandleServers dispatches the servers subcommands.
func HandleServers(env *Env, args Args) error {
	p := NewArgParser(args.Raw)

	switch p.Subcommand() {
	case "", "list", "ls":
		return handleServersList(env)
	case "show", "get":
		return handleServersShow(env, p.Positional(1))
	case "add":
		return handleServersAdd(env, args.Raw[1:])
	case "remove", "rm", "delete":
		return handleServersRemove(env, p.Positional(1))
	case "validate", "check":
		return handleServersValidate(env, p.Positional(1))
	case "template":
		return OutputJSON(env.out(), env.JSON, "servers template", func() (any, error) {
			if !env.JSON {
				fmt.Fprintln(env.out(), toolserver.TemplateJSON())
			}
			return toolserver.Template(), nil
		})
	}
	return usagef("unknown servers subcommand %q (try: list, show, add, remove, validate, template)", p.Subcommand())
}

func handleServersList(env *Env) error {
	return OutputJSON(env.out(), env.JSON, "servers list", func() (any, error) {
		servers, err := env.Registry.Servers()
		var skipped toolserver.EntryErrors
		if errors.As(err, &skipped) {
			for _, f := range skipped {
				fmt.Fprintln(env.errOut(), WarningStyle.Render(fmt.Sprintf("Skipping %q: %v", f.Server, f.Err)))
			}
		} else if err != nil {
			return nil, &CommandError{Command: "servers", Action: "list", Err: err}
		}

		rows := make([]serverRow, 0, len(servers))
		for _, s := range servers {
			rows = append(rows, serverRow{
				Name:      s.Name,
				Command:   s.Command,
				Args:      s.Args,
				Transport: s.Transport,
				URL:       s.URL,
			})
		}
		if env.JSON {
			return rows, nil
		}

		out := env.out()
		if len(rows) == 0 {
			fmt.Fprintln(out, "No tool servers registered. Add one with: mcpchat servers add NAME CMD [ARGS...]")
			return rows, nil
		}
		fmt.Fprintln(out, TitleStyle.Render("Tool servers"))
		fmt.Fprintln(out, RenderSeparator())
		for _, r := range rows {
			target := strings.TrimSpace(r.Command + " " + strings.Join(r.Args, " "))
			if r.URL != "" {
				target = r.URL
			}
			fmt.Fprintf(out, "%s %s\n", LabelStyle.Render(r.Name), target)
		}
		return rows, nil
	})
}

func handleServersShow(env *Env, name string) error {
	if name == "" {
		return usagef("usage: mcpchat servers show NAME")
	}
	return OutputJSON(env.out(), env.JSON, "servers show", func() (any, error) {
		entry, err := env.Registry.Entry(name)
		if err != nil {
			return nil, &CommandError{Command: "servers", Action: "show", Err: err}
		}
		if env.JSON {
			return map[string]any{name: entry}, nil
		}
		text, err := env.Registry.EntryJSON(name)
		if err != nil {
			return nil, err
		}
		if ColorsEnabled() {
			text = components.HighlightJSON(text)
		}
		fmt.Fprintln(env.out(), text)
		return entry, nil
	})
}

// handleServersAdd takes "add NAME CMD [--] [ARGS...]". Arguments after
// the command are stored verbatim, flags included.
func handleServersAdd(env *Env, raw []string) error {
	rest := make([]string, 0, len(raw))
	stripped := false
	for _, a := range raw {
		if a == "--" && !stripped {
			stripped = true
			continue
		}
		rest = append(rest, a)
	}
	if len(rest) < 2 {
		return usagef("usage: mcpchat servers add NAME CMD [ARGS...]")
	}
	name, command, cmdArgs := rest[0], rest[1], rest[2:]

	return OutputJSON(env.out(), env.JSON, "servers add", func() (any, error) {
		if err := env.Registry.AddServer(name, command, cmdArgs, nil); err != nil {
			return nil, &CommandError{Command: "servers", Action: "add", Err: err}
		}
		env.logger().Info("tool server added", "name", name, "command", command)
		if !env.JSON && !env.Quiet {
			fmt.Fprintln(env.out(), SuccessStyle.Render("Server settings saved."))
		}
		return map[string]any{"name": name, "command": command, "args": cmdArgs}, nil
	})
}

func handleServersRemove(env *Env, name string) error {
	if name == "" {
		return usagef("usage: mcpchat servers remove NAME")
	}
	return OutputJSON(env.out(), env.JSON, "servers remove", func() (any, error) {
		if err := env.Registry.DeleteServer(name); err != nil {
			return nil, &CommandError{Command: "servers", Action: "remove", Err: err}
		}
		env.logger().Info("tool server removed", "name", name)
		if !env.JSON && !env.Quiet {
			fmt.Fprintln(env.out(), SuccessStyle.Render("Server deleted."))
		}
		return map[string]any{"name": name}, nil
	})
}

// handleServersValidate checks file, or the registry itself when file is
// empty. An invalid document is a *toolserver.ValidationError.
func handleServersValidate(env *Env, file string) error {
	if file == "" {
		file = env.Registry.Path()
	}
	return OutputJSON(env.out(), env.JSON, "servers validate", func() (any, error) {
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, &CommandError{Command: "servers", Action: "validate", Err: err}
		}
		var doc map[string]any
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, &toolserver.ValidationError{Message: fmt.Sprintf("JSON parsing error: %v", err)}
		}
		ok, msg := toolserver.Validate(doc)
		if !ok {
			return nil, &toolserver.ValidationError{Message: msg}
		}
		if !env.JSON {
			fmt.Fprintln(env.out(), SuccessStyle.Render(msg))
		}
		return map[string]any{"file": file, "valid": true, "message": msg}, nil
	})
}
