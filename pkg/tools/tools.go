// Package tools defines the capabilities the agent can invoke and the
// per-session registry that resolves command names to them.
package tools

import (
	"context"
	"strings"

	"github.com/YunjiaXi/InfoDeepSeek/pkg/llm"
)

// Canonical command names.
const (
	CommandWebSearch = "web_search"
	CommandBrowse    = "browse_website"
	CommandTimeDelta = "time_delta"
	CommandFinish    = "finish"
	CommandNoTool    = "no-tool"

	// CommandSearchAlias is accepted from planners and remapped to web_search.
	CommandSearchAlias = "search"
)

// Param describes one named string argument of a tool.
type Param struct {
	Name        string
	Type        string
	Description string
	Required    bool
}

// Spec is the static description of a tool.
type Spec struct {
	Name        string
	LocalName   string
	Description string
	Params      []Param
}

// Function renders the spec in OpenAI function format for the planning prompt.
func (s Spec) Function() llm.FunctionDef {
	properties := make(map[string]any, len(s.Params))
	required := make([]string, 0, len(s.Params))
	for _, p := range s.Params {
		typ := p.Type
		if typ == "" {
			typ = "string"
		}
		properties[p.Name] = map[string]string{
			"type":        typ,
			"description": p.Description,
		}
		if p.Required {
			required = append(required, p.Name)
		}
	}
	return llm.FunctionDef{
		Name:        s.Name,
		Description: s.Description,
		Parameters: map[string]any{
			"type":       "object",
			"properties": properties,
			"required":   required,
		},
	}
}

// Output is what a tool returns to the executor.
type Output struct {
	// Answer is the plain text stored as the task result.
	Answer string
	// AnswerMarkdown is the human readable observation.
	AnswerMarkdown string
	// PromptResponses lists every oracle exchange the tool made internally.
	PromptResponses []llm.Exchange
}

// Tool is an invocable capability.
type Tool interface {
	Spec() Spec
	Call(ctx context.Context, args map[string]string) (Output, error)
}

// Arg returns the first non-empty argument among keys.
func Arg(args map[string]string, keys ...string) string {
	for _, key := range keys {
		if v := strings.TrimSpace(args[key]); v != "" {
			return v
		}
	}
	return ""
}

// Text builds an Output whose answer and observation are the same text.
func Text(answer string) Output {
	return Output{Answer: answer, AnswerMarkdown: answer}
}
