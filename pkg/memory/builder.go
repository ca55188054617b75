// Package memory renders the agent working memory, keeps prompts inside
// the token budget and stores chat turns between invocations.
package memory

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/YunjiaXi/InfoDeepSeek/pkg/core"
)

// HistoryWindow is the number of recent conversation turns kept in memory.
const HistoryWindow = 3

// Build renders the last turns of the conversation and the completed task
// list into a single text block. Both sections are omitted when empty.
func Build(history []core.Turn, completed []*core.Task) string {
	var b strings.Builder
	if len(history) > 0 {
		b.WriteString("* Conversation History:\n")
		b.WriteString(RenderTurns(core.RecentTurns(history, HistoryWindow)))
	}
	if len(completed) > 0 {
		fmt.Fprintf(&b, "* Complete tasks: %s\n", marshalTasks(completed))
	}
	return b.String()
}

// RenderTurns formats turns as alternating user and assistant lines.
func RenderTurns(turns []core.Turn) string {
	var b strings.Builder
	for _, turn := range turns {
		fmt.Fprintf(&b, "User: %s\nAssistant:%s\n", turn.Query, turn.Answer)
	}
	return b.String()
}

func marshalTasks(tasks []*core.Task) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(tasks); err != nil {
		return "[]"
	}
	return strings.TrimRight(buf.String(), "\n")
}
