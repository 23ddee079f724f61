// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// settings_cmd.go - AI settings commands.
package cli

import (
	"fmt"
	"slices"
	"strings"

	"github.com/jeranaias/mcpchat/internal/config"
)

// HandleSettings dispatches the settings subcommands.
func HandleSettings(env *Env, args Args) error {
	sub := ""
	if len(args.Raw) > 0 {
		sub = args.Raw[0]
	}

	switch sub {
	case "", "list", "show":
		return handleSettingsList(env)
	case "get":
		if len(args.Raw) < 2 {
			return usagef("usage: mcpchat settings get KEY")
		}
		return handleSettingsGet(env, args.Raw[1])
	case "set":
		if len(args.Raw) < 3 {
			return usagef("usage: mcpchat settings set KEY VALUE")
		}
		// The prompt may contain spaces; everything after KEY is the value.
		return handleSettingsSet(env, args.Raw[1], strings.Join(args.Raw[2:], " "))
	}
	return usagef("unknown settings subcommand %q (try: list, get, set)", sub)
}

func checkKey(key string) error {
	if !slices.Contains(config.SettingKeys, key) {
		return usagef("unknown setting %q (valid: %s)", key, strings.Join(config.SettingKeys, ", "))
	}
	return nil
}

func handleSettingsList(env *Env) error {
	return OutputJSON(env.out(), env.JSON, "settings list", func() (any, error) {
		values, err := env.Settings.GetAll()
		if err != nil {
			return nil, &CommandError{Command: "settings", Action: "list", Err: err}
		}
		if env.JSON {
			return values, nil
		}
		out := env.out()
		fmt.Fprintln(out, TitleStyle.Render("AI settings"))
		fmt.Fprintln(out, RenderSeparator())
		for _, key := range config.SettingKeys {
			v := config.FormatValue(values[key])
			if key == config.KeyPrompt {
				v = strings.ReplaceAll(v, "\n", " ")
			}
			fmt.Fprintf(out, "%s %s\n", LabelStyle.Render(key), v)
		}
		return values, nil
	})
}

func handleSettingsGet(env *Env, key string) error {
	if err := checkKey(key); err != nil {
		return err
	}
	return OutputJSON(env.out(), env.JSON, "settings get", func() (any, error) {
		values, err := env.Settings.GetAll()
		if err != nil {
			return nil, &CommandError{Command: "settings", Action: "get", Err: err}
		}
		if !env.JSON {
			fmt.Fprintln(env.out(), config.FormatValue(values[key]))
		}
		return map[string]any{key: values[key]}, nil
	})
}

// handleSettingsSet applies the same input rules as the settings dialog.
func handleSettingsSet(env *Env, key, raw string) error {
	if err := checkKey(key); err != nil {
		return err
	}
	return OutputJSON(env.out(), env.JSON, "settings set", func() (any, error) {
		value, err := config.ParseSettingValue(key, raw)
		if err != nil {
			return nil, err
		}
		if err := env.Settings.Set(key, value); err != nil {
			return nil, &CommandError{Command: "settings", Action: "set", Err: err}
		}
		env.logger().Info("setting changed", "key", key)
		if !env.JSON && !env.Quiet {
			fmt.Fprintln(env.out(), SuccessStyle.Render(fmt.Sprintf("%s value changed: %s", key, config.FormatValue(value))))
		}
		return map[string]any{key: value}, nil
	})
}
