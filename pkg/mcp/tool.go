package mcp

import (
	"context"
	"encoding/json"
	"sort"
	"strconv"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/YunjiaXi/InfoDeepSeek/pkg/errors"
	"github.com/YunjiaXi/InfoDeepSeek/pkg/tools"
)

// ToolCaller is the subset of the client the adapter needs.
type ToolCaller interface {
	CallTool(ctx context.Context, name string, args map[string]interface{}) (*mcp.CallToolResult, error)
}

// ToolLister lists the tools a server offers.
type ToolLister interface {
	ListTools(ctx context.Context) ([]mcp.Tool, error)
}

// ToolAdapter exposes a remote MCP tool as an agent tool.
type ToolAdapter struct {
	tool   mcp.Tool
	caller ToolCaller
	spec   tools.Spec
}

// NewToolAdapter wraps tool so the registry can resolve it.
func NewToolAdapter(tool mcp.Tool, caller ToolCaller) *ToolAdapter {
	return &ToolAdapter{tool: tool, caller: caller, spec: specFor(tool)}
}

// Tools lists the server tools and wraps each of them.
func Tools(ctx context.Context, c interface {
	ToolLister
	ToolCaller
}) ([]tools.Tool, error) {
	remote, err := c.ListTools(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]tools.Tool, 0, len(remote))
	for _, t := range remote {
		out = append(out, NewToolAdapter(t, c))
	}
	return out, nil
}

// Spec implements tools.Tool.
func (a *ToolAdapter) Spec() tools.Spec { return a.spec }

// Call implements tools.Tool.
func (a *ToolAdapter) Call(ctx context.Context, args map[string]string) (tools.Output, error) {
	if a.caller == nil {
		return tools.Output{}, errors.New(errors.CodeToolFailure, "mcp client not configured", nil).
			WithContext("tool", a.tool.Name)
	}
	for _, name := range a.tool.InputSchema.Required {
		if strings.TrimSpace(args[name]) == "" {
			return tools.Output{}, errors.New(errors.CodeInvalidInput, "missing required argument", nil).
				WithContext("tool", a.tool.Name).
				WithContext("argument", name)
		}
	}

	res, err := a.caller.CallTool(ctx, a.tool.Name, a.arguments(args))
	if err != nil {
		if ctx.Err() != nil {
			return tools.Output{}, ctx.Err()
		}
		return tools.Output{}, errors.New(errors.CodeToolFailure, "mcp call failed", err).
			WithContext("tool", a.tool.Name)
	}
	if res == nil {
		return tools.Output{}, errors.New(errors.CodeToolFailure, "mcp call returned nothing", nil).
			WithContext("tool", a.tool.Name)
	}
	text := resultText(res)
	if res.IsError {
		return tools.Output{}, errors.New(errors.CodeToolFailure, "mcp tool error", nil).
			WithContext("tool", a.tool.Name).
			WithContext("detail", text)
	}
	return tools.Text(text), nil
}

// arguments converts planner strings to the JSON types the schema declares.
func (a *ToolAdapter) arguments(args map[string]string) map[string]interface{} {
	out := make(map[string]interface{}, len(args))
	for key, raw := range args {
		out[key] = coerce(raw, propertyType(a.tool.InputSchema.Properties[key]))
	}
	return out
}

func coerce(raw, typ string) interface{} {
	value := strings.TrimSpace(raw)
	switch typ {
	case "integer":
		if n, err := strconv.ParseInt(value, 10, 64); err == nil {
			return n
		}
	case "number":
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	case "boolean":
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	case "object", "array":
		var v interface{}
		if err := json.Unmarshal([]byte(value), &v); err == nil {
			return v
		}
	}
	return raw
}

func specFor(tool mcp.Tool) tools.Spec {
	required := make(map[string]bool, len(tool.InputSchema.Required))
	for _, name := range tool.InputSchema.Required {
		required[name] = true
	}
	names := make([]string, 0, len(tool.InputSchema.Properties))
	for name := range tool.InputSchema.Properties {
		names = append(names, name)
	}
	sort.Strings(names)

	params := make([]tools.Param, 0, len(names))
	for _, name := range names {
		prop := tool.InputSchema.Properties[name]
		params = append(params, tools.Param{
			Name:        name,
			Type:        propertyType(prop),
			Description: propertyDescription(prop),
			Required:    required[name],
		})
	}
	return tools.Spec{
		Name:        tool.Name,
		LocalName:   tool.Name,
		Description: tool.Description,
		Params:      params,
	}
}

func propertyType(prop interface{}) string {
	m, ok := prop.(map[string]interface{})
	if !ok {
		return "string"
	}
	if typ, ok := m["type"].(string); ok && typ != "" {
		return typ
	}
	return "string"
}

func propertyDescription(prop interface{}) string {
	m, ok := prop.(map[string]interface{})
	if !ok {
		return ""
	}
	desc, _ := m["description"].(string)
	return desc
}

func resultText(res *mcp.CallToolResult) string {
	parts := make([]string, 0, len(res.Content))
	for _, content := range res.Content {
		switch c := content.(type) {
		case mcp.TextContent:
			parts = append(parts, c.Text)
		case *mcp.TextContent:
			parts = append(parts, c.Text)
		}
	}
	return strings.TrimSpace(strings.Join(parts, "\n"))
}

func stringify(v interface{}) string {
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}
