package tools

import (
	"context"
	stderrors "errors"
	"slices"
	"testing"

	"github.com/YunjiaXi/InfoDeepSeek/pkg/core"
)

type stubTool struct {
	spec Spec
}

func (s stubTool) Spec() Spec { return s.spec }

func (s stubTool) Call(_ context.Context, args map[string]string) (Output, error) {
	return Text(s.spec.Name + ":" + args["text"]), nil
}

func catalogue() []Tool {
	return []Tool{
		stubTool{Spec{Name: CommandWebSearch, LocalName: "网页搜索"}},
		stubTool{Spec{Name: CommandBrowse, LocalName: "网页浏览"}},
		stubTool{Spec{Name: CommandTimeDelta, LocalName: "时间差计算"}},
	}
}

func TestNewRegistry(t *testing.T) {
	tests := []struct {
		name  string
		tools []string
		want  []string
	}{
		{"notool", []string{core.ToolsNoTool}, []string{}},
		{"notool wins over auto", []string{core.ToolsAuto, core.ToolsNoTool}, []string{}},
		{"auto", []string{core.ToolsAuto}, []string{CommandWebSearch, CommandBrowse, CommandTimeDelta, CommandFinish, CommandNoTool}},
		{"canonical name", []string{CommandBrowse}, []string{CommandBrowse, CommandFinish, CommandNoTool}},
		{"localized name", []string{"网页搜索"}, []string{CommandWebSearch, CommandFinish, CommandNoTool}},
		{"no fuzzy match", []string{"web"}, []string{CommandFinish, CommandNoTool}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRegistry(core.Profile{Tools: tt.tools}, catalogue()...)
			if got := r.Names(); !slices.Equal(got, tt.want) {
				t.Fatalf("names = %v, want %v", got, tt.want)
			}
			if r.Empty() != (len(tt.want) == 0) {
				t.Fatalf("Empty() = %v", r.Empty())
			}
		})
	}
}

func TestResolve(t *testing.T) {
	r := NewRegistry(core.DefaultProfile(), catalogue()...)

	tool, err := r.Resolve(CommandWebSearch)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	out, err := tool.Call(context.Background(), map[string]string{"text": "go"})
	if err != nil || out.Answer != "web_search:go" {
		t.Fatalf("Call = %+v, %v", out, err)
	}

	if _, err := r.Resolve(""); !stderrors.Is(err, ErrMissingName) {
		t.Fatalf("expected ErrMissingName, got %v", err)
	}
	if _, err := r.Resolve("wikipedia"); !stderrors.Is(err, ErrToolNotFound) {
		t.Fatalf("expected ErrToolNotFound, got %v", err)
	}
	if !r.Has(CommandFinish) || r.Has("wikipedia") {
		t.Fatalf("Has reported wrong membership")
	}
}

func TestSpecFunction(t *testing.T) {
	fn := Spec{
		Name:        "web_search",
		Description: "search",
		Params:      []Param{{Name: "text", Description: "query", Required: true}},
	}.Function()
	params := fn.Parameters.(map[string]any)
	if params["type"] != "object" {
		t.Fatalf("unexpected schema %v", params)
	}
	if req := params["required"].([]string); len(req) != 1 || req[0] != "text" {
		t.Fatalf("required = %v", req)
	}
	props := params["properties"].(map[string]any)
	if _, ok := props["text"]; !ok {
		t.Fatalf("missing property: %v", props)
	}
}

func TestTerminalTools(t *testing.T) {
	out, err := Finish().Call(context.Background(), map[string]string{"reason": "enough"})
	if err != nil || out.Answer != "enough" {
		t.Fatalf("finish = %+v, %v", out, err)
	}
	if NoTool().Spec().Name != CommandNoTool {
		t.Fatalf("unexpected no-tool name")
	}
}

func TestArg(t *testing.T) {
	args := map[string]string{"query": " q ", "text": ""}
	if got := Arg(args, "text", "query"); got != "q" {
		t.Fatalf("Arg = %q", got)
	}
	if got := Arg(nil, "text"); got != "" {
		t.Fatalf("Arg(nil) = %q", got)
	}
}
