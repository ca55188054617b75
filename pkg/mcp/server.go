package mcp

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/YunjiaXi/InfoDeepSeek/pkg/tools"
)

// Server publishes agent tools to MCP clients.
type Server struct {
	mcpServer *server.MCPServer
}

// NewServer creates a new MCP server.
func NewServer(name, version string) *Server {
	return &Server{
		mcpServer: server.NewMCPServer(name, version, server.WithToolCapabilities(false)),
	}
}

// RegisterTool exposes t under its command name. Every parameter is a string.
func (s *Server) RegisterTool(t tools.Tool) {
	spec := t.Spec()
	opts := []mcp.ToolOption{mcp.WithDescription(spec.Description)}
	for _, p := range spec.Params {
		propOpts := []mcp.PropertyOption{mcp.Description(p.Description)}
		if p.Required {
			propOpts = append(propOpts, mcp.Required())
		}
		opts = append(opts, mcp.WithString(p.Name, propOpts...))
	}

	s.mcpServer.AddTool(mcp.NewTool(spec.Name, opts...), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		out, err := t.Call(ctx, stringArgs(request.GetArguments()))
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(out.Answer), nil
	})
}

// MCPServer returns the underlying server, for in-process clients and tests.
func (s *Server) MCPServer() *server.MCPServer { return s.mcpServer }

// ServeStdio starts the server on Stdio.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

func stringArgs(args map[string]interface{}) map[string]string {
	out := make(map[string]string, len(args))
	for key, value := range args {
		switch v := value.(type) {
		case string:
			out[key] = v
		case nil:
		default:
			out[key] = stringify(v)
		}
	}
	return out
}
