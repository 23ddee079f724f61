// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package toolserver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/client/transport"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/jeranaias/mcpchat/internal/logging"
)

// =============================================================================
// TOOL HANDLES
// =============================================================================

// Schema is a tool's JSON-schema input description.
type Schema struct {
	Type       string
	Properties map[string]any
	Required   []string
}

// Tool is a callable operation exposed by a connected server.
type Tool struct {
	Server      string
	Name        string
	Description string
	Schema      Schema
}

// Failure records a server that could not be connected.
type Failure struct {
	Server string
	Err    error
}

func (f Failure) Error() string {
	return fmt.Sprintf("tool server %q: %v", f.Server, f.Err)
}

// =============================================================================
// MANAGER
// =============================================================================

// Dialer opens an MCP client for cfg. The context lives as long as the
// Manager and may be used by long-running transports.
type Dialer func(ctx context.Context, cfg ServerConfig) (*client.Client, error)

// Option configures a Manager.
type Option func(*Manager)

// WithDialer replaces the transport dialer.
func WithDialer(d Dialer) Option {
	return func(m *Manager) { m.dial = d }
}

// WithClientInfo sets the name and version announced in initialize.
func WithClientInfo(name, version string) Option {
	return func(m *Manager) {
		m.clientName = name
		m.clientVersion = version
	}
}

type connection struct {
	name   string
	client *client.Client
}

// Manager owns the live connections to every configured tool server. The
// lifecycle is Connect, then any number of CallTool, then Close.
type Manager struct {
	logger        *slog.Logger
	dial          Dialer
	clientName    string
	clientVersion string

	// ctx outlives individual calls; Close cancels it.
	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	conns    []*connection
	tools    []Tool
	owners   map[string]*connection
	failures []Failure
}

// NewManager returns a Manager with no connections.
func NewManager(logger *slog.Logger, opts ...Option) *Manager {
	ctx, cancel := context.WithCancel(context.Background())
	m := &Manager{
		logger:        logging.OrDefault(logger),
		dial:          Dial,
		clientName:    "mcpchat",
		clientVersion: "dev",
		ctx:           ctx,
		cancel:        cancel,
		owners:        make(map[string]*connection),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Dial is the default Dialer. Stdio servers are spawned as subprocesses;
// sse and streamable_http servers are reached at their url with the
// configured headers.
func Dial(ctx context.Context, cfg ServerConfig) (*client.Client, error) {
	switch cfg.Transport {
	case TransportStdio:
		if cfg.Command == "" {
			return nil, errors.New("no command configured")
		}
		// The stdio client starts its subprocess immediately.
		return client.NewStdioMCPClient(cfg.Command, cfg.EnvList(), cfg.Args...)

	case TransportSSE:
		if cfg.URL == "" {
			return nil, errors.New("no url configured")
		}
		c, err := client.NewSSEMCPClient(cfg.URL, client.WithHeaders(cfg.Headers))
		if err != nil {
			return nil, err
		}
		if err := c.Start(ctx); err != nil {
			c.Close()
			return nil, err
		}
		return c, nil

	case TransportStreamableHTTP:
		if cfg.URL == "" {
			return nil, errors.New("no url configured")
		}
		c, err := client.NewStreamableHttpClient(cfg.URL, transport.WithHTTPHeaders(cfg.Headers))
		if err != nil {
			return nil, err
		}
		if err := c.Start(ctx); err != nil {
			c.Close()
			return nil, err
		}
		return c, nil
	}
	return nil, fmt.Errorf("unsupported transport %q", cfg.Transport)
}

// Connect opens every server in order and collects their tools. Servers
// that fail are logged, recorded in Failures and skipped; the remaining
// ones stay usable. Any previous connections are closed first. Only a
// cancelled ctx makes Connect itself fail.
func (m *Manager) Connect(ctx context.Context, servers []ServerConfig) error {
	if err := m.closeConnections(); err != nil {
		m.logger.Warn("closing previous tool servers", "error", err)
	}

	var (
		conns    []*connection
		tools    []Tool
		owners   = make(map[string]*connection)
		failures []Failure
	)

	for _, cfg := range servers {
		if err := ctx.Err(); err != nil {
			for _, c := range conns {
				c.client.Close()
			}
			return err
		}

		conn, serverTools, err := m.connectOne(ctx, cfg)
		if err != nil {
			m.logger.Warn("tool server unavailable", "server", cfg.Name, "transport", cfg.Transport, "error", err)
			failures = append(failures, Failure{Server: cfg.Name, Err: err})
			continue
		}
		conns = append(conns, conn)

		for _, t := range serverTools {
			if prev, dup := owners[t.Name]; dup {
				m.logger.Warn("duplicate tool name skipped", "tool", t.Name, "server", cfg.Name, "kept", prev.name)
				continue
			}
			owners[t.Name] = conn
			tools = append(tools, t)
		}
		m.logger.Info("tool server connected", "server", cfg.Name, "tools", len(serverTools))
	}

	m.mu.Lock()
	m.conns = conns
	m.tools = tools
	m.owners = owners
	m.failures = failures
	m.mu.Unlock()
	return nil
}

func (m *Manager) connectOne(ctx context.Context, cfg ServerConfig) (*connection, []Tool, error) {
	c, err := m.dial(m.ctx, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("start: %w", err)
	}

	req := mcp.InitializeRequest{}
	req.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	req.Params.ClientInfo = mcp.Implementation{Name: m.clientName, Version: m.clientVersion}
	if _, err := c.Initialize(ctx, req); err != nil {
		c.Close()
		return nil, nil, fmt.Errorf("initialize: %w", err)
	}

	res, err := c.ListTools(ctx, mcp.ListToolsRequest{})
	if err != nil {
		c.Close()
		return nil, nil, fmt.Errorf("list tools: %w", err)
	}

	tools := make([]Tool, 0, len(res.Tools))
	for _, t := range res.Tools {
		tools = append(tools, Tool{
			Server:      cfg.Name,
			Name:        t.Name,
			Description: t.Description,
			Schema: Schema{
				Type:       t.InputSchema.Type,
				Properties: t.InputSchema.Properties,
				Required:   t.InputSchema.Required,
			},
		})
	}
	return &connection{name: cfg.Name, client: c}, tools, nil
}

// Tools returns the tools of every connected server.
func (m *Manager) Tools() []Tool {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Tool, len(m.tools))
	copy(out, m.tools)
	return out
}

// Failures returns the servers that failed during the last Connect.
func (m *Manager) Failures() []Failure {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Failure, len(m.failures))
	copy(out, m.failures)
	return out
}

// CallTool invokes the named tool and returns its text content. A result
// flagged as an error by the server is returned as an error carrying that
// text.
func (m *Manager) CallTool(ctx context.Context, name string, args map[string]any) (string, error) {
	m.mu.Lock()
	conn, ok := m.owners[name]
	m.mu.Unlock()
	if !ok {
		return "", fmt.Errorf("unknown tool %q", name)
	}

	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args

	m.logger.Debug("tool call", "server", conn.name, "tool", name)
	res, err := conn.client.CallTool(ctx, req)
	if err != nil {
		return "", fmt.Errorf("call %s: %w", name, err)
	}

	text := ResultText(res)
	if res.IsError {
		return "", fmt.Errorf("tool %s failed: %s", name, text)
	}
	return text, nil
}

// ResultText joins the content of a tool result into plain text.
func ResultText(res *mcp.CallToolResult) string {
	if res == nil {
		return ""
	}
	parts := make([]string, 0, len(res.Content))
	for _, content := range res.Content {
		switch c := content.(type) {
		case mcp.TextContent:
			parts = append(parts, c.Text)
		case *mcp.TextContent:
			parts = append(parts, c.Text)
		case mcp.ImageContent:
			parts = append(parts, fmt.Sprintf("[image %s]", c.MIMEType))
		case *mcp.ImageContent:
			parts = append(parts, fmt.Sprintf("[image %s]", c.MIMEType))
		default:
			parts = append(parts, "[unsupported content]")
		}
	}
	return strings.Join(parts, "\n")
}

// Close closes every connection and cancels the Manager's context.
func (m *Manager) Close() error {
	err := m.closeConnections()
	m.cancel()
	return err
}

func (m *Manager) closeConnections() error {
	m.mu.Lock()
	conns := m.conns
	m.conns = nil
	m.tools = nil
	m.owners = make(map[string]*connection)
	m.mu.Unlock()

	var errs []error
	for _, c := range conns {
		if err := c.client.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", c.name, err))
		}
	}
	return errors.Join(errs...)
}
