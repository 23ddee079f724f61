// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Command weather-server serves the sample get_weather tool over stdio.
//
// Register it with:
//
//	mcpchat servers add weather go run ./cmd/weather-server
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/mark3labs/mcp-go/server"

	"github.com/jeranaias/mcpchat/internal/weather"
)

const version = "0.1.0"

func main() {
	// stdout carries the protocol; diagnostics go to stderr.
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	s := weather.NewServer(version, logger)
	if err := server.ServeStdio(s); err != nil {
		fmt.Fprintf(os.Stderr, "weather-server: %v\n", err)
		os.Exit(1)
	}
}
