package mcp

import (
	"context"
	"os"
	"testing"

	mcpgo "github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
)

const mcpStdioHelperEnv = "INFOSEEK_MCP_STDIO_HELPER"

func TestHelperMCPStdioServer(t *testing.T) {
	if os.Getenv(mcpStdioHelperEnv) != "1" {
		return
	}

	server := mcpserver.NewMCPServer("test-stdio", "1.0.0")
	server.AddTool(mcpgo.NewTool("ping"), func(ctx context.Context, _ mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
		return mcpgo.NewToolResultText("ok"), nil
	})

	if err := mcpserver.ServeStdio(server); err != nil {
		os.Exit(1)
	}
	os.Exit(0)
}

func TestClientStdioListToolsAndCall(t *testing.T) {
	exe, err := os.Executable()
	if err != nil {
		t.Fatalf("os.Executable: %v", err)
	}

	env := []string{mcpStdioHelperEnv + "=1"}
	client, err := NewClientWithStdio(context.Background(), exe, []string{"-test.run", "TestHelperMCPStdioServer"}, env)
	if err != nil {
		t.Fatalf("NewClientWithStdio error: %v", err)
	}
	defer client.Close()

	tools, err := client.ListTools(context.Background())
	if err != nil {
		t.Fatalf("ListTools error: %v", err)
	}
	if len(tools) == 0 || tools[0].Name != "ping" {
		t.Fatalf("expected tool 'ping', got %+v", tools)
	}

	result, err := client.CallTool(context.Background(), "ping", map[string]interface{}{"input": "hello"})
	if err != nil {
		t.Fatalf("CallTool error: %v", err)
	}
	if result == nil || result.IsError {
		t.Fatalf("expected successful tool result, got %+v", result)
	}
}

func TestClientStreamableHTTPListTools(t *testing.T) {
	server := mcpserver.NewMCPServer("test-http", "1.0.0")
	server.AddTool(mcpgo.NewTool("ping"), func(ctx context.Context, _ mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
		return mcpgo.NewToolResultText("ok"), nil
	})

	httpServer := mcpserver.NewTestStreamableHTTPServer(server)
	defer httpServer.Close()

	client, err := NewClientWithStreamableHTTP(context.Background(), httpServer.URL)
	if err != nil {
		t.Fatalf("NewClientWithStreamableHTTP error: %v", err)
	}
	defer client.Close()

	tools, err := client.ListTools(context.Background())
	if err != nil {
		t.Fatalf("ListTools error: %v", err)
	}
	if len(tools) != 1 || tools[0].Name != "ping" {
		t.Fatalf("expected tool 'ping', got %+v", tools)
	}
}
