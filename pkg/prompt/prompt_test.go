package prompt

import (
	"strings"
	"testing"
	"time"

	"github.com/YunjiaXi/InfoDeepSeek/pkg/core"
	"github.com/YunjiaXi/InfoDeepSeek/pkg/tokenizer"
	"github.com/YunjiaXi/InfoDeepSeek/pkg/tools"
)

var fixedNow = func() time.Time { return time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC) }

func profile() core.Profile {
	return core.Profile{Name: "Seeker", Bio: "a research assistant", Instructions: "be precise", MaxIterNum: 4}
}

func specs() []tools.Spec {
	return []tools.Spec{
		{Name: tools.CommandWebSearch, Description: "search", Params: []tools.Param{{Name: "text", Required: true}}},
		tools.Finish().Spec(),
	}
}

func TestPlanning(t *testing.T) {
	r := Renderer{Lang: LangEN, Now: fixedNow}
	out, err := r.Planning(profile(), "Who wrote Dune?", specs(), "* Complete tasks: []\n")
	if err != nil {
		t.Fatalf("Planning: %v", err)
	}
	for _, want := range []string{
		"You are a Seeker, a research assistant, be precise",
		"Commands:\n1:{\"name\":\"web_search\"",
		"2:{\"name\":\"finish\"",
		"up to 4 steps",
		"8. If you have sufficient information",
		"Current date and time: 2025-03-14 09:30:00, Friday",
		"* Complete tasks: []",
		"Given Query:Who wrote Dune?",
		"A new Task:",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("planning prompt missing %q\n%s", want, out)
		}
	}
	if strings.Contains(out, "switch the language") {
		t.Errorf("language rule present without LangAware")
	}
}

func TestPlanningLangAware(t *testing.T) {
	r := Renderer{Lang: LangEN, LangAware: true, Now: fixedNow}
	out, err := r.Planning(profile(), "q", specs(), "")
	if err != nil {
		t.Fatalf("Planning: %v", err)
	}
	if !strings.Contains(out, "6. You can flexibly switch the language") {
		t.Errorf("missing language rule:\n%s", out)
	}
	if !strings.Contains(out, "9. If you have sufficient information") {
		t.Errorf("rules not renumbered:\n%s", out)
	}
}

func TestChineseTemplates(t *testing.T) {
	r := Renderer{Lang: LangZH, Now: fixedNow}
	out, err := r.Conclusion(profile(), "问题", "记忆")
	if err != nil {
		t.Fatalf("Conclusion: %v", err)
	}
	for _, want := range []string{"你是Seeker", "给定问题：问题", "记忆", "当前时间：2025年03月14日 09:30:00 星期五"} {
		if !strings.Contains(out, want) {
			t.Errorf("zh conclusion missing %q\n%s", want, out)
		}
	}
}

func TestRankingMentionsLimit(t *testing.T) {
	r := Renderer{Lang: LangEN, Now: fixedNow}
	out, err := r.Ranking(profile(), "q", "mem", 3)
	if err != nil {
		t.Fatalf("Ranking: %v", err)
	}
	if !strings.Contains(out, "select the 3 most relevant webpages") {
		t.Errorf("limit not rendered:\n%s", out)
	}
}

func TestAnswerRendersWebpagesAsJSON(t *testing.T) {
	r := Renderer{Lang: LangEN, Now: fixedNow}
	out, err := r.Answer(profile(), "q", []core.Webpage{{URL: "https://a.example/?x=1&y=2", Content: "c"}})
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}
	want := `Relevant webpages: [{"url":"https://a.example/?x=1&y=2","content":"c"}]`
	if !strings.Contains(out, want) {
		t.Errorf("answer prompt missing %q\n%s", want, out)
	}
}

func TestPlanningTruncatesMemoryOnly(t *testing.T) {
	tok := tokenizer.Default()
	mem := strings.Repeat("observation ", 1000)
	r := Renderer{Lang: LangEN, Tokenizer: tok, MaxTokens: 1500, Now: fixedNow}

	out, err := r.Planning(profile(), "Who wrote Dune?", specs(), mem)
	if err != nil {
		t.Fatalf("Planning: %v", err)
	}
	if got := len(tok.Encode(out)); got > 1500 {
		t.Fatalf("prompt has %d tokens, budget 1500", got)
	}
	for _, want := range []string{"You are a Seeker", "Given Query:Who wrote Dune?", "A new Task:"} {
		if !strings.Contains(out, want) {
			t.Errorf("non-memory text %q lost", want)
		}
	}
}

func TestNoTaskConclusion(t *testing.T) {
	if got := NoTaskConclusion("q", nil); got != "q" {
		t.Fatalf("no history: %q", got)
	}
	history := []core.Turn{
		{Query: "1", Answer: "a"}, {Query: "2", Answer: "b"},
		{Query: "3", Answer: "c"}, {Query: "4", Answer: "d"},
	}
	want := "User: 2\nAssistant:b\nUser: 3\nAssistant:c\nUser: 4\nAssistant:d\nUser: q\nAssistant:"
	if got := NoTaskConclusion("q", history); got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestUnknownLanguageFallsBackToEnglish(t *testing.T) {
	r := Renderer{Lang: "fr", Now: fixedNow}
	out, err := r.Answer(profile(), "q", nil)
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if !strings.Contains(out, "Relevant webpages: []") {
		t.Fatalf("unexpected prompt:\n%s", out)
	}
}
