// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"io"
	"strings"

	"github.com/jeranaias/mcpchat/internal/agent"
)

// askData is the --json payload of ask.
type askData struct {
	Query  string       `json:"query"`
	Result agent.Result `json:"result"`
}

// HandleAsk runs a single turn against a fresh agent and prints the reply.
// With --json the reply is only printed as a JSONResponse.
func HandleAsk(ctx context.Context, env *Env, args Args) error {
	query := strings.TrimSpace(args.Query)
	if query == "" {
		return usagef("ask: no question given (usage: mcpchat ask \"question\")")
	}
	if env.Bridge == nil {
		return errors.New("ask: agent bridge not configured")
	}

	var w io.Writer = env.out()
	if env.JSON {
		w = io.Discard
	}
	p := NewStreamPrinter(w, 0)

	return OutputJSON(env.out(), env.JSON, CmdAsk.String(), func() (any, error) {
		if err := checkBackend(ctx, env); err != nil {
			return nil, err
		}
		if err := awaitInit(ctx, env.Bridge, p); err != nil {
			return nil, err
		}
		res, err := runTurn(ctx, env.Bridge, query, p)
		if err != nil {
			return nil, err
		}
		return askData{Query: query, Result: res}, nil
	})
}
