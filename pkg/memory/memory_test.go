package memory

import (
	"fmt"
	"strings"
	"testing"

	"github.com/YunjiaXi/InfoDeepSeek/pkg/core"
	"github.com/YunjiaXi/InfoDeepSeek/pkg/tokenizer"
)

func TestBuildEmpty(t *testing.T) {
	if got := Build(nil, nil); got != "" {
		t.Fatalf("expected empty memory, got %q", got)
	}
}

func TestBuildKeepsLastThreeTurns(t *testing.T) {
	var history []core.Turn
	for i := 1; i <= 5; i++ {
		history = append(history, core.Turn{Query: fmt.Sprintf("q%d", i), Answer: fmt.Sprintf("a%d", i)})
	}
	got := Build(history, nil)
	want := "* Conversation History:\nUser: q3\nAssistant:a3\nUser: q4\nAssistant:a4\nUser: q5\nAssistant:a5\n"
	if got != want {
		t.Fatalf("unexpected memory:\n%s", got)
	}
}

func TestBuildCompletedTasks(t *testing.T) {
	task := core.NewTask("look <up>", "web_search", map[string]string{"text": "go & rust"})
	task.ID = 1
	task.Complete("found")
	got := Build(nil, []*core.Task{task})
	if !strings.HasPrefix(got, "* Complete tasks: [\n") {
		t.Fatalf("unexpected prefix: %q", got)
	}
	for _, want := range []string{`"task_name": "look <up>"`, `"text": "go & rust"`, `"task_id": 1`, `"result": "found"`} {
		if !strings.Contains(got, want) {
			t.Fatalf("expected %q in %s", want, got)
		}
	}
	if !strings.HasSuffix(got, "]\n") {
		t.Fatalf("unexpected suffix: %q", got)
	}
}

func longMemory(words int) string {
	parts := make([]string, words)
	for i := range parts {
		parts[i] = fmt.Sprintf("m%d", i)
	}
	return strings.Join(parts, " ")
}

func TestTruncateWithinBudgetUnchanged(t *testing.T) {
	tok := tokenizer.Default()
	prompt := "short prompt with memory"
	if got := Truncate(tok, prompt, "memory", 100); got != prompt {
		t.Fatalf("expected unchanged prompt, got %q", got)
	}
}

func TestTruncateMemoryRegionOnly(t *testing.T) {
	tok := tokenizer.Default()
	head := "Instructions: be brief.\n"
	tail := "\nQuery: who?"
	mem := longMemory(100)
	prompt := head + mem + tail

	got := Truncate(tok, prompt, mem, 40)
	if !strings.HasPrefix(got, head) {
		t.Fatalf("expected instructions kept, got %q", got)
	}
	if !strings.HasSuffix(got, tail) {
		t.Fatalf("expected query kept, got %q", got)
	}
	if n := len(tok.Encode(got)); n > 40 {
		t.Fatalf("expected at most 40 tokens, got %d", n)
	}
	if !strings.Contains(got, "m0 ") || !strings.Contains(got, " m99") {
		t.Fatalf("expected memory head and tail kept, got %q", got)
	}
	if strings.Contains(got, " m50 ") {
		t.Fatalf("expected memory middle dropped, got %q", got)
	}
}

func TestTruncateWholePromptWhenMemoryMissing(t *testing.T) {
	tok := tokenizer.Default()
	prompt := longMemory(60)
	got := Truncate(tok, prompt, "not present", 20)
	ids := tok.Encode(got)
	if len(ids) > 20 {
		t.Fatalf("expected at most 20 tokens, got %d", len(ids))
	}
	if !strings.HasPrefix(got, "m0 ") || !strings.HasSuffix(got, " m59") {
		t.Fatalf("expected head and tail kept, got %q", got)
	}
}

func TestTruncateLeavesPromptWhenOtherTextExceedsBudget(t *testing.T) {
	tok := tokenizer.Default()
	mem := "tiny memory"
	prompt := longMemory(50) + "\n" + mem
	if got := Truncate(tok, prompt, mem, 10); got != prompt {
		t.Fatalf("expected prompt unchanged when instructions alone exceed budget")
	}
}

func TestTruncateIdempotent(t *testing.T) {
	tok := tokenizer.Default()
	mem := longMemory(200)
	prompt := "Head line.\n" + mem + "\nGiven Query: q"
	for _, budget := range []int{30, 57, 120} {
		once := Truncate(tok, prompt, mem, budget)
		twice := Truncate(tok, once, mem, budget)
		if once != twice {
			t.Fatalf("budget %d: re-truncation changed the prompt", budget)
		}
	}
}

func TestHeadTail(t *testing.T) {
	ids := []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}
	got := HeadTail(ids, 5)
	want := []int{0, 1, 7, 8, 9}
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Fatalf("HeadTail = %v, want %v", got, want)
	}
	if got := HeadTail(ids, 20); len(got) != len(ids) {
		t.Fatalf("expected short input untouched")
	}
	if got := HeadTail(ids, 0); len(got) != 0 {
		t.Fatalf("expected empty result for zero budget")
	}
}
