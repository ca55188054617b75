// SPDX-License-Identifier: Apache-2.0

package telemetry

import (
	"testing"

	"go.opentelemetry.io/otel/attribute"
)

func TestSessionAttributes(t *testing.T) {
	attrs := SessionAttributes("session-123", "Seeker", "zh", 5)
	assertAttributes(t, attrs, map[string]any{
		AttrSessionID: "session-123",
		AttrAgentName: "Seeker",
		AttrLang:      "zh",
		AttrMaxIter:   5,
	})

	if got := SessionAttributes("s", "", "", 0); len(got) != 1 {
		t.Errorf("expected only the session id, got %v", got)
	}
}

func TestTaskAttributes(t *testing.T) {
	attrs := TaskAttributes(3, "search the author", 2)
	assertAttributes(t, attrs, map[string]any{
		AttrTaskID:    3,
		AttrTaskName:  "search the author",
		AttrIteration: 2,
	})
}

func TestToolCallAttributes(t *testing.T) {
	attrs := ToolCallAttributes("web_search", "text=dune", 12.5, true)
	assertAttributes(t, attrs, map[string]any{
		AttrToolName:       "web_search",
		AttrToolArgs:       "text=dune",
		AttrToolDurationMs: 12.5,
		AttrToolSuccess:    true,
	})
}

func TestToolsetAttributes(t *testing.T) {
	attrs := ToolsetAttributes([]string{"web_search", "finish"})
	assertAttributes(t, attrs, map[string]any{AttrToolsCount: 2})
	if len(ToolsetAttributes(nil)) != 1 {
		t.Errorf("empty toolset should only carry the count")
	}
}

func TestLLMAttributes(t *testing.T) {
	attrs := LLMAttributes("gpt-4o", "openai", 1)
	assertAttributes(t, attrs, map[string]any{
		AttrLLMModel:    "gpt-4o",
		AttrLLMProvider: "openai",
		AttrLLMMessages: 1,
	})

	usage := LLMUsageAttributes(10, 5, 100)
	assertAttributes(t, usage, map[string]any{
		AttrLLMTokensInput:  10,
		AttrLLMTokensOutput: 5,
		AttrLLMTokensTotal:  15,
		AttrLLMDurationMs:   100.0,
	})
	if len(LLMUsageAttributes(0, 0, 0)) != 0 {
		t.Errorf("zero usage should produce no attributes")
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in   string
		n    int
		want string
	}{
		{"short", 10, "short"},
		{"abcdef", 3, "abc..."},
		{"网页搜索", 4, "网..."},
		{"abc", 0, "abc"},
	}
	for _, tt := range tests {
		if got := Truncate(tt.in, tt.n); got != tt.want {
			t.Errorf("Truncate(%q, %d) = %q, want %q", tt.in, tt.n, got, tt.want)
		}
	}
}

func assertAttributes(t *testing.T, attrs []attribute.KeyValue, expected map[string]any) {
	t.Helper()

	found := make(map[string]attribute.KeyValue)
	for _, attr := range attrs {
		found[string(attr.Key)] = attr
	}

	for key, expectedVal := range expected {
		attr, ok := found[key]
		if !ok {
			t.Errorf("missing attribute %s", key)
			continue
		}

		var actualVal any
		switch attr.Value.Type() {
		case attribute.STRING:
			actualVal = attr.Value.AsString()
		case attribute.INT64:
			actualVal = int(attr.Value.AsInt64())
		case attribute.FLOAT64:
			actualVal = attr.Value.AsFloat64()
		case attribute.BOOL:
			actualVal = attr.Value.AsBool()
		}

		if actualVal != expectedVal {
			t.Errorf("attribute %s: got %v, want %v", key, actualVal, expectedVal)
		}
	}
}
