// SPDX-License-Identifier: Apache-2.0
package errors

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"
)

func TestNew(t *testing.T) {
	cause := errors.New("network timeout")
	ae := New(CodeTimeout, "tool execution timed out", cause)

	if ae.Code != CodeTimeout {
		t.Errorf("expected CodeTimeout, got %v", ae.Code)
	}
	if ae.Message != "tool execution timed out" {
		t.Errorf("unexpected message %q", ae.Message)
	}
	if !errors.Is(ae, cause) {
		t.Errorf("expected errors.Is to work with wrapped error")
	}
}

func TestWithContextAndRecoverable(t *testing.T) {
	ae := New(CodeToolFailure, "tool failed", nil).
		WithContext("tool", "web_search").
		WithRecoverable(true)

	if ae.Context["tool"] != "web_search" {
		t.Errorf("expected context tool to be web_search")
	}
	if !ae.Recoverable {
		t.Errorf("expected recoverable to be true")
	}
}

func TestError(t *testing.T) {
	tests := []struct {
		name     string
		ae       *AgentError
		expected string
	}{
		{
			name:     "with cause",
			ae:       New(CodeTimeout, "operation timed out", errors.New("deadline exceeded")),
			expected: "[TIMEOUT] operation timed out: deadline exceeded",
		},
		{
			name:     "without cause",
			ae:       New(CodeToolNotFound, "has no tool named foo", nil),
			expected: "[TOOL_NOT_FOUND] has no tool named foo",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.ae.Error(); got != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestIsFatal(t *testing.T) {
	fatal := Fatal("provider rate limit lockout", errors.New("429"))
	wrapped := fmt.Errorf("oracle: %w", fatal)
	nested := New(CodeLLMError, "call failed", wrapped)

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"plain", errors.New("boom"), false},
		{"fatal", fatal, true},
		{"wrapped fatal", wrapped, true},
		{"nested under agent error", nested, true},
		{"non fatal agent error", New(CodeToolFailure, "x", nil), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsFatal(tt.err); got != tt.want {
				t.Errorf("IsFatal() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSentinelIs(t *testing.T) {
	sentinel := New(CodeEmptyQueue, "pop from empty task queue", nil)
	err := fmt.Errorf("loop: %w", New(CodeEmptyQueue, "pop from empty task queue", nil))
	if !errors.Is(err, sentinel) {
		t.Fatalf("expected errors.Is to match sentinel by code and message")
	}
	if errors.Is(err, New(CodeEmptyQueue, "other", nil)) {
		t.Fatalf("expected different message not to match")
	}
}

func TestAsAndCodeOf(t *testing.T) {
	if As(nil) != nil {
		t.Fatalf("expected nil for nil error")
	}
	ae := As(errors.New("plain"))
	if ae.Code != CodeInternal {
		t.Fatalf("expected plain errors to wrap as internal, got %s", ae.Code)
	}
	if CodeOf(fmt.Errorf("x: %w", New(CodeMissingName, "m", nil))) != CodeMissingName {
		t.Fatalf("expected CodeMissingName")
	}
}

func TestMarshalJSON(t *testing.T) {
	ae := New(CodeToolFailure, "tool failed", errors.New("boom")).WithContext("tool", "browse_website")
	raw, err := json.Marshal(ae)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded["code"] != "TOOL_FAILURE" {
		t.Fatalf("unexpected code %v", decoded["code"])
	}
	if decoded["error"] != "boom" {
		t.Fatalf("unexpected cause %v", decoded["error"])
	}
}
