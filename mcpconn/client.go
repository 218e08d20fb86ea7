// Package mcpconn wraps the MCP client with the small surface the capture
// run needs: dial one server, call named tools, list tool names, close.
// Every tool result is decoded at this boundary into a plain Go value so
// the rest of the program never branches on response shape.
package mcpconn

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"
)

// clientInfo is reported to servers during the initialize handshake.
var clientInfo = mcp.Implementation{
	Name:    "netcapture",
	Version: "1.0.0",
}

// Invoker is the tool-invocation surface the capture session depends on.
// Connection implements it against a live MCP server; tests fake it.
type Invoker interface {
	// Name identifies the server in log output.
	Name() string

	// CallTool invokes a named tool and returns its decoded payload.
	CallTool(ctx context.Context, tool string, args map[string]any) (any, error)

	// ListToolNames returns the names of the tools the server exposes.
	ListToolNames(ctx context.Context) ([]string, error)
}

// Connection is a scoped client session to one MCP server.
// Close is idempotent; the zero value is not usable, dial one instead.
type Connection struct {
	name      string
	cli       *client.Client
	closeOnce sync.Once
}

var _ Invoker = (*Connection)(nil)

// DialSSE connects to an MCP server over SSE and performs the initialize
// handshake.
func DialSSE(ctx context.Context, name, url string) (*Connection, error) {
	cli, err := client.NewSSEMCPClient(url)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", name, err)
	}
	if err := cli.Start(ctx); err != nil {
		return nil, fmt.Errorf("start %s transport: %w", name, err)
	}
	return initialize(ctx, name, cli)
}

// DialStreamableHTTP connects to an MCP server over the streamable HTTP
// transport and performs the initialize handshake.
func DialStreamableHTTP(ctx context.Context, name, url string) (*Connection, error) {
	cli, err := client.NewStreamableHttpClient(url)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", name, err)
	}
	if err := cli.Start(ctx); err != nil {
		return nil, fmt.Errorf("start %s transport: %w", name, err)
	}
	return initialize(ctx, name, cli)
}

// DialStdio launches the given command as an MCP server speaking over its
// stdin/stdout and performs the initialize handshake. env entries are
// appended to the subprocess environment.
func DialStdio(ctx context.Context, name, command string, env []string, args ...string) (*Connection, error) {
	cli, err := client.NewStdioMCPClient(command, env, args...)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", name, err)
	}
	return initialize(ctx, name, cli)
}

func initialize(ctx context.Context, name string, cli *client.Client) (*Connection, error) {
	req := mcp.InitializeRequest{}
	req.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	req.Params.ClientInfo = clientInfo

	res, err := cli.Initialize(ctx, req)
	if err != nil {
		_ = cli.Close()
		return nil, fmt.Errorf("initialize %s: %w", name, err)
	}
	slog.Info("connected",
		"server", name,
		"serverName", res.ServerInfo.Name,
		"serverVersion", res.ServerInfo.Version,
	)
	return &Connection{name: name, cli: cli}, nil
}

// Name returns the label the connection was dialed with.
func (c *Connection) Name() string { return c.name }

// CallTool invokes a named tool once. Tool-level error results are
// converted to Go errors so callers see a single failure kind.
func (c *Connection) CallTool(ctx context.Context, tool string, args map[string]any) (any, error) {
	req := mcp.CallToolRequest{}
	req.Params.Name = tool
	req.Params.Arguments = args

	res, err := c.cli.CallTool(ctx, req)
	if err != nil {
		return nil, err
	}
	if res.IsError {
		return nil, fmt.Errorf("tool %s reported an error: %s", tool, resultText(res))
	}
	return DecodePayload(res), nil
}

// ListToolNames returns the names of the tools the server currently exposes.
func (c *Connection) ListToolNames(ctx context.Context) ([]string, error) {
	res, err := c.cli.ListTools(ctx, mcp.ListToolsRequest{})
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(res.Tools))
	for _, tool := range res.Tools {
		names = append(names, tool.Name)
	}
	return names, nil
}

// Close shuts the connection down. It never fails the caller: close errors
// are logged, and repeated calls are no-ops.
func (c *Connection) Close() {
	c.closeOnce.Do(func() {
		if err := c.cli.Close(); err != nil {
			slog.Warn("close failed", "server", c.name, "error", err)
			return
		}
		slog.Info("disconnected", "server", c.name)
	})
}

// ToolAvailable reports whether the server behind inv currently exposes
// the named tool. Errors while listing mean "not available".
func ToolAvailable(ctx context.Context, inv Invoker, tool string) bool {
	names, err := inv.ListToolNames(ctx)
	if err != nil {
		slog.Warn("tool listing failed",
			"server", inv.Name(),
			"tool", tool,
			"error", err,
		)
		return false
	}
	for _, name := range names {
		if name == tool {
			return true
		}
	}
	return false
}

func resultText(res *mcp.CallToolResult) string {
	var parts []string
	for _, entry := range res.Content {
		if tc, ok := mcp.AsTextContent(entry); ok {
			parts = append(parts, tc.Text)
		}
	}
	return strings.Join(parts, " ")
}
