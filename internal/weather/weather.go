// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package weather is a sample MCP tool server with a single get_weather
// tool returning a canned forecast. It is what a fresh registry is usually
// pointed at to try tool calls end to end.
package weather

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// ServerName is the name announced by the server.
const ServerName = "weather"

// ToolName is the name of the single tool.
const ToolName = "get_weather"

// Instructions tell the model how the server is meant to be used.
const Instructions = "You are a weather assistant that can answer questions about the weather in a given location."

// Forecast returns the canned forecast for location.
func Forecast(location string) string {
	return fmt.Sprintf("Morning: Rain, Afternoon: Clear. High temp: 19°C, Low temp: 8°C. "+
		"Southeast wind 2-3m/s expected. Precipitation less than 2mm. Weather forecast for %s.", location)
}

// NewServer builds the MCP server with get_weather registered.
func NewServer(version string, logger *slog.Logger) *server.MCPServer {
	if logger == nil {
		logger = slog.Default()
	}
	s := server.NewMCPServer(ServerName, version,
		server.WithToolCapabilities(false),
		server.WithInstructions(Instructions),
	)

	tool := mcp.NewTool(ToolName,
		mcp.WithDescription("Get current weather information for the specified location."),
		mcp.WithString("location",
			mcp.Required(),
			mcp.Description("The name of the location (city, region, etc.) to get weather for"),
		),
	)
	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		location, err := req.RequireString("location")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		logger.Debug("get_weather called", "location", location)
		return mcp.NewToolResultText(Forecast(location)), nil
	})
	return s
}
