// Package mcpserver serves registry tools to MCP clients over stdio.
package mcpserver

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	srv "github.com/mark3labs/mcp-go/server"

	"websift/internal/domain"
)

// ToolSource lists the tools to publish. *tool.Registry satisfies it.
type ToolSource interface {
	List() []domain.Tool
}

// Server wraps an MCP server publishing every tool of a ToolSource.
type Server struct {
	mcp    *srv.MCPServer
	logger *slog.Logger
}

// New builds a server named name exposing the tools of src.
func New(name, version string, src ToolSource, logger *slog.Logger) *Server {
	s := &Server{logger: logger}
	s.mcp = srv.NewMCPServer(
		name,
		version,
		srv.WithToolCapabilities(true),
		srv.WithInstructions("Use the web_search tool to search the web and read the pages behind each result."),
		srv.WithRecovery(),
		srv.WithHooks(newHooks(logger)),
	)

	for _, t := range src.List() {
		schema := t.Schema()
		params := schema.Parameters
		if len(params) == 0 || string(params) == "null" {
			params = json.RawMessage(`{"type":"object","properties":{}}`)
		}
		s.mcp.AddTool(mcp.NewToolWithRawSchema(schema.Name, schema.Description, params), s.handler(t))
		logger.Debug("mcp tool registered", "tool", schema.Name)
	}
	return s
}

// MCP returns the underlying server.
func (s *Server) MCP() *srv.MCPServer { return s.mcp }

// Serve answers JSON-RPC messages read from in on out until ctx ends or in
// is closed.
func (s *Server) Serve(ctx context.Context, in io.Reader, out io.Writer) error {
	stdio := srv.NewStdioServer(s.mcp)
	stdio.SetErrorLogger(slog.NewLogLogger(s.logger.Handler(), slog.LevelError))
	s.logger.Info("mcp server listening on stdio")
	return stdio.Listen(ctx, in, out)
}

func (s *Server) handler(t domain.Tool) srv.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := req.GetArguments()
		if args == nil {
			args = map[string]any{}
		}
		raw, err := json.Marshal(args)
		if err != nil {
			return mcp.NewToolResultError("invalid arguments: " + err.Error()), nil
		}

		res, err := t.Execute(ctx, raw)
		if err != nil {
			s.logger.Warn("mcp tool call failed", "tool", t.Name(), "error", err)
			return mcp.NewToolResultError(err.Error()), nil
		}
		if res.IsError {
			return mcp.NewToolResultError(res.Content), nil
		}
		return mcp.NewToolResultText(res.Content), nil
	}
}

func newHooks(logger *slog.Logger) *srv.Hooks {
	hooks := &srv.Hooks{}
	hooks.AddBeforeAny(func(ctx context.Context, id any, method mcp.MCPMethod, message any) {
		logger.Debug("mcp request", "id", id, "method", method)
	})
	hooks.AddOnError(func(ctx context.Context, id any, method mcp.MCPMethod, message any, err error) {
		logger.Warn("mcp request failed", "id", id, "method", method, "error", err)
	})
	return hooks
}
