// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"sort"
	"strings"
	"time"

	mcptypes "github.com/mark3labs/mcp-go/mcp"
	"github.com/spf13/cobra"

	"github.com/YunjiaXi/InfoDeepSeek/pkg/config"
	infomcp "github.com/YunjiaXi/InfoDeepSeek/pkg/mcp"
	"github.com/YunjiaXi/InfoDeepSeek/pkg/tools/timedelta"
)

type mcpToolResult struct {
	Server string        `json:"server"`
	Tool   mcptypes.Tool `json:"tool"`
	Error  string        `json:"error,omitempty"`
}

func mcpCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Inspect configured MCP servers or serve the built-in tools over MCP",
	}
	cmd.AddCommand(mcpListCommand(a), mcpServeCommand(a))
	return cmd
}

func mcpListCommand(a *app) *cobra.Command {
	var timeout time.Duration
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the tools of every configured MCP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			servers := a.cfg.MCP.Servers
			if len(servers) == 0 {
				cmd.Println("no mcp servers configured")
				return nil
			}
			names := make([]string, 0, len(servers))
			for name := range servers {
				names = append(names, name)
			}
			sort.Strings(names)

			results := make([]mcpToolResult, 0)
			for _, name := range names {
				ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
				results = append(results, listServer(ctx, name, servers[name])...)
				cancel()
			}

			if a.json {
				return printJSON(a.out, results)
			}
			w := newTabWriter(a.out)
			writeRow(w, "SERVER", "TOOL", "DESCRIPTION")
			for _, res := range results {
				if res.Error != "" {
					writeRow(w, res.Server, "ERROR", res.Error)
					continue
				}
				writeRow(w, res.Server, res.Tool.Name, strings.TrimSpace(res.Tool.Description))
			}
			return w.Flush()
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "per-server timeout")
	return cmd
}

func listServer(ctx context.Context, name string, srv config.MCPServerConfig) []mcpToolResult {
	client, err := connectMCP(ctx, srv)
	if err != nil {
		return []mcpToolResult{{Server: name, Error: err.Error()}}
	}
	defer client.Close()
	remote, err := client.ListTools(ctx)
	if err != nil {
		return []mcpToolResult{{Server: name, Error: err.Error()}}
	}
	out := make([]mcpToolResult, 0, len(remote))
	for _, t := range remote {
		out = append(out, mcpToolResult{Server: name, Tool: t})
	}
	return out
}

func mcpServeCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve web_search, browse_website and time_delta over MCP stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			oracle, err := newOracle(ctx, a.cfg.LLM, a.logger)
			if err != nil {
				return err
			}
			searchTool, err := newSearchTool(a.cfg, a.logger)
			if err != nil {
				return err
			}
			srv := infomcp.NewServer("infoseek", version)
			srv.RegisterTool(searchTool)
			srv.RegisterTool(newBrowseTool(a.cfg, oracle, a.logger))
			srv.RegisterTool(timedelta.New(time.Now))
			return srv.ServeStdio()
		},
	}
}
