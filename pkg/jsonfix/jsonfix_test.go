// SPDX-License-Identifier: Apache-2.0

package jsonfix

import (
	"encoding/json"
	"testing"
)

func TestExtractList(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "Here you go: [1, 2] done", want: "[1, 2]"},
		{in: "[[1], [2]] trailing", want: "[[1], [2]]"},
		{in: "no list here", want: "no list here"},
		{in: "] before [", want: "] before ["},
	}
	for _, tt := range tests {
		if got := ExtractList(tt.in); got != tt.want {
			t.Errorf("ExtractList(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestCorrectIdentityOnValidInput(t *testing.T) {
	inputs := []string{
		`[]`,
		`[{"task_name":"x","command":{"name":"finish","args":{}}}]`,
		"[\n  {\"url\": \"a\", \"content\": \"b\"}\n]",
		`{"a": [1, 2, 3]}`,
	}
	for _, in := range inputs {
		if got := Correct(in); got != in {
			t.Errorf("Correct changed valid input %q to %q", in, got)
		}
	}
}

func TestCorrectRepairs(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "invalid escape",
			in:   `[{"a":"x\q"}]`,
			want: `[{"a":"xq"}]`,
		},
		{
			name: "many invalid escapes",
			in:   `[{"task_name": "regex \d+\s\w \p \q \z \k"}]`,
			want: `[{"task_name": "regex d+sw p q z k"}]`,
		},
		{
			name: "unquoted property names",
			in:   `[{task_name: "x", command: {name: "finish", args: {}}}]`,
			want: `[{"task_name": "x", "command": {"name": "finish", "args": {}}}]`,
		},
		{
			name: "trailing comma",
			in:   `[{"url": "a", "content": "x",}]`,
			want: `[{"url": "a", "content": "x"}]`,
		},
		{
			name: "missing closing braces",
			in:   `[{"a": {"b": 1}`,
			want: `[{"a": {"b": 1}}]`,
		},
		{
			name: "surplus closing brace",
			in:   `{"a":1}}`,
			want: `{"a":1}`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Correct(tt.in)
			if got != tt.want {
				t.Fatalf("Correct(%q) = %q, want %q", tt.in, got, tt.want)
			}
			if !json.Valid([]byte(got)) {
				t.Fatalf("expected valid JSON, got %q", got)
			}
		})
	}
}

func TestParseList(t *testing.T) {
	tests := []struct {
		name  string
		in    string
		kind  Kind
		items int
	}{
		{name: "list in prose", in: "Sure!\n[{\"a\":1},{\"a\":2}]\nHope it helps", kind: Ok, items: 2},
		{name: "empty list", in: "[]", kind: Ok, items: 0},
		{name: "lone object", in: `{"task_name":"x"}`, kind: Ok, items: 1},
		{name: "empty text", in: "", kind: Malformed},
		{name: "prose only", in: "I cannot help with that.", kind: Malformed},
		{name: "scalar", in: "42", kind: Malformed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := ParseList(tt.in)
			if res.Kind != tt.kind {
				t.Fatalf("expected kind %v, got %v (err %v)", tt.kind, res.Kind, res.Err)
			}
			if res.OK() && len(res.Items) != tt.items {
				t.Fatalf("expected %d items, got %d", tt.items, len(res.Items))
			}
			if !res.OK() && res.Err == nil {
				t.Fatalf("expected error for malformed result")
			}
		})
	}
}

func TestParseListRepairsEveryInvalidEscape(t *testing.T) {
	in := `[{"task_name": "regex \d+\s\w \p \q \z", "command": {"name": "finish", "args": {}}}]`
	res := ParseList(in)
	if !res.OK() || len(res.Items) != 1 {
		t.Fatalf("expected one repaired task, got kind %v err %v", res.Kind, res.Err)
	}
	var task struct {
		TaskName string `json:"task_name"`
	}
	if err := json.Unmarshal(res.Items[0], &task); err != nil {
		t.Fatalf("decode task: %v", err)
	}
	if task.TaskName != "regex d+sw p q z" {
		t.Fatalf("unexpected task name %q", task.TaskName)
	}
}
