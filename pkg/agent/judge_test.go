// SPDX-License-Identifier: Apache-2.0

package agent

import (
	"testing"

	"github.com/YunjiaXi/InfoDeepSeek/pkg/chain"
	"github.com/YunjiaXi/InfoDeepSeek/pkg/core"
	"github.com/YunjiaXi/InfoDeepSeek/pkg/tools"
)

func TestJudge(t *testing.T) {
	registry := tools.NewRegistry(core.DefaultProfile(), &fakeTool{name: tools.CommandWebSearch})
	msgs := chain.MessagesFor("en")

	tests := []struct {
		name      string
		task      *core.Task
		planRound int
		verdict   Verdict
		message   string
	}{
		{"nil task", nil, 1, StopMalformed, ""},
		{"empty task", &core.Task{}, 1, StopMalformed, ""},
		{"name only", &core.Task{Name: "x"}, 3, StopMalformed, "x"},
		{"missing args", &core.Task{Name: "x", Command: &core.Command{Name: "web_search"}}, 1, StopMalformed, "x"},
		{"missing command name", &core.Task{Name: "x", Command: &core.Command{Args: map[string]string{}}}, 1, StopMalformed, "x"},
		{"finish first", core.NewTask("done", "finish", map[string]string{"reason": "ok"}), 1, StopFinish, "ok"},
		{"finish later", core.NewTask("done", "finish", map[string]string{"reason": "ok"}), 7, StopFinish, "ok"},
		{"no-tool first", core.NewTask("n", "no-tool", nil), 1, StopNoTool, msgs.NoToolNeeded},
		{"no-tool later", core.NewTask("n", "no-tool", nil), 2, StopNoTool, msgs.NoMoreTools},
		{"unknown", core.NewTask("n", "calculator", nil), 1, StopUnknown, msgs.NoToolNeeded},
		{"registered", core.NewTask("s", "web_search", map[string]string{"query": "go"}), 1, Continue, ""},
		{"alias", core.NewTask("s", "search", map[string]string{"query": "go"}), 1, Continue, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Judge(tt.task, tt.planRound, registry, msgs)
			if d.Verdict != tt.verdict {
				t.Fatalf("verdict = %v, want %v", d.Verdict, tt.verdict)
			}
			if d.Message != tt.message {
				t.Errorf("message = %q, want %q", d.Message, tt.message)
			}
			if d.Stop() != (tt.verdict != Continue) {
				t.Errorf("Stop() = %v", d.Stop())
			}
		})
	}
}

func TestJudgeNoToolMessagesDiffer(t *testing.T) {
	msgs := chain.MessagesFor("zh")
	task := core.NewTask("n", "no-tool", nil)
	first := Judge(task, 1, nil, msgs)
	later := Judge(task, 2, nil, msgs)
	if first.Message == later.Message {
		t.Fatalf("messages should differ: %q", first.Message)
	}
}

func TestInvocationString(t *testing.T) {
	tests := []struct {
		name    string
		command string
		args    map[string]string
		want    string
	}{
		{"sorted args", "web_search", map[string]string{"query": "go", "lang": "en"}, "web_search(lang=en,query=go)"},
		{"no args", "finish", nil, "finish()"},
		{"wikipedia display", "wikipedia", map[string]string{"query": "go"}, "kuaipedia(query=go)"},
	}
	for _, tt := range tests {
		if got := InvocationString(tt.command, tt.args); got != tt.want {
			t.Errorf("%s: got %q, want %q", tt.name, got, tt.want)
		}
	}
}
