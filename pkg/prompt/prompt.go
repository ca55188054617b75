// Package prompt renders the oracle prompts used by the agent: planning,
// conclusion, webpage ranking, per-rank answers and the bare no-task prompt.
package prompt

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/YunjiaXi/InfoDeepSeek/pkg/core"
	"github.com/YunjiaXi/InfoDeepSeek/pkg/memory"
	"github.com/YunjiaXi/InfoDeepSeek/pkg/tokenizer"
	"github.com/YunjiaXi/InfoDeepSeek/pkg/tools"
)

// Supported languages.
const (
	LangEN = "en"
	LangZH = "zh"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var funcs = template.FuncMap{
	"inc": func(i int) int { return i + 1 },
}

var templates = map[string]*template.Template{
	LangEN: template.Must(template.New(LangEN).Funcs(funcs).ParseFS(templateFS, "templates/en.tmpl")),
	LangZH: template.Must(template.New(LangZH).Funcs(funcs).ParseFS(templateFS, "templates/zh.tmpl")),
}

// Renderer renders prompts for one language. Planning, conclusion and
// ranking prompts are truncated to MaxTokens around their memory block.
type Renderer struct {
	Lang      string
	LangAware bool
	Tokenizer tokenizer.Tokenizer
	MaxTokens int
	Now       func() time.Time
}

type data struct {
	Profile     core.Profile
	Rules       []string
	ToolSpec    string
	Date        string
	Memory      string
	Goal        string
	MaxWebpages int
	Webpages    string
}

// Planning renders the task planning prompt.
func (r Renderer) Planning(profile core.Profile, goal string, specs []tools.Spec, mem string) (string, error) {
	out, err := r.render("planning", data{
		Profile:  profile,
		Rules:    r.planningRules(profile.MaxIterNum),
		ToolSpec: ToolSpecification(specs),
		Date:     r.date(),
		Memory:   mem,
		Goal:     goal,
	})
	if err != nil {
		return "", err
	}
	return memory.Truncate(r.Tokenizer, out, mem, r.MaxTokens), nil
}

// Conclusion renders the final answer prompt over the accumulated memory.
func (r Renderer) Conclusion(profile core.Profile, goal, mem string) (string, error) {
	out, err := r.render("conclusion", data{
		Profile: profile,
		Date:    r.date(),
		Memory:  mem,
		Goal:    goal,
	})
	if err != nil {
		return "", err
	}
	return memory.Truncate(r.Tokenizer, out, mem, r.MaxTokens), nil
}

// Ranking renders the webpage ranking prompt.
func (r Renderer) Ranking(profile core.Profile, goal, mem string, maxWebpages int) (string, error) {
	out, err := r.render("ranking", data{
		Profile:     profile,
		Date:        r.date(),
		Memory:      mem,
		Goal:        goal,
		MaxWebpages: maxWebpages,
	})
	if err != nil {
		return "", err
	}
	return memory.Truncate(r.Tokenizer, out, mem, r.MaxTokens), nil
}

// Answer renders the prompt answering goal from the given webpages only.
func (r Renderer) Answer(profile core.Profile, goal string, webpages []core.Webpage) (string, error) {
	return r.render("answer", data{
		Profile:  profile,
		Date:     r.date(),
		Goal:     goal,
		Webpages: marshalWebpages(webpages),
	})
}

// NoTaskConclusion builds the prompt used when no tool ran: the recent
// conversation followed by the query, or the bare query without history.
func NoTaskConclusion(goal string, history []core.Turn) string {
	if len(history) == 0 {
		return goal
	}
	return memory.RenderTurns(core.RecentTurns(history, memory.HistoryWindow)) +
		fmt.Sprintf("User: %s\nAssistant:", goal)
}

// ToolSpecification lists the tools as numbered OpenAI function objects.
func ToolSpecification(specs []tools.Spec) string {
	var b strings.Builder
	b.WriteString("Commands:\n")
	for i, spec := range specs {
		fmt.Fprintf(&b, "%d:%s\n", i+1, marshal(spec.Function()))
	}
	return b.String()
}

func (r Renderer) render(name string, d data) (string, error) {
	tmpl, ok := templates[r.Lang]
	if !ok {
		tmpl = templates[LangEN]
	}
	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, name, d); err != nil {
		return "", fmt.Errorf("render %s prompt: %w", name, err)
	}
	return strings.TrimSpace(buf.String()), nil
}

func (r Renderer) planningRules(maxIter int) []string {
	if r.Lang == LangZH {
		rules := []string{
			"你有大约4000字的短期记忆",
			"用户不提供进一步的回复或者帮助",
			"规划的时候可以用参考工具中提到的工具",
			"复杂问题可以拆分成子问题后分别进行信息搜集，聚合，注意鉴别真伪消息",
			"保持谦逊，对自己没把握的问题请调用工具，但不能重复相同的调用（同样的工具和参数）",
		}
		if r.LangAware {
			rules = append(rules, "你可以灵活的切换搜索词的语言以获得更多信息。可以选择使用中文、英文或者该问题涉及到的实体相关的语言搜索（比如一个法国人可以用法语搜索）")
		}
		return append(rules,
			fmt.Sprintf("你最多只能进行%d步思考，规划%d个任务，所以尽可能高效规划任务", maxIter, maxIter),
			"你有自我批评和反思的能力，时常反思过去的决策和策略以改进你的方法",
			"当已完成的任务已经能够得到回答给定问题的信息，则调用结束工具结束规划，否则应继续规划，但不能跟之前任务重复",
		)
	}
	rules := []string{
		"You have a short-term memory of approximately 4,000 characters.",
		"You do not require assistance or response from users.",
		"You can use the reference tools mentioned when planning.",
		"Complex problems can be split into sub-problems and then information can be collected, aggregated and authenticated. Be sure to verify the truthfulness of the information.",
		"Stay humble and call the tool for questions you are not sure about, but do not call the same tool with the same parameters repeatedly.",
	}
	if r.LangAware {
		rules = append(rules, "You can flexibly switch the language of the search term to get more information. You can choose to search in Chinese, English, or the language related to the entity involved in the question (for example, if the question involves a French person, you can search in French)")
	}
	return append(rules,
		fmt.Sprintf("You can think and plan up to %d steps, so strive to plan tasks as efficiently as possible.", maxIter),
		"You have the capability for reflection and self-criticism; reflect on past decisions and improve your strategies.",
		"If you have sufficient information to answer the given query, invoke the termination tool to terminate planning. Otherwise, continue planning new tasks while ensuring no duplication with prior tasks.",
	)
}

var zhWeekdays = [...]string{"星期日", "星期一", "星期二", "星期三", "星期四", "星期五", "星期六"}

func (r Renderer) date() string {
	now := time.Now
	if r.Now != nil {
		now = r.Now
	}
	t := now()
	if r.Lang == LangZH {
		return fmt.Sprintf("当前时间：%s %s", t.Format("2006年01月02日 15:04:05"), zhWeekdays[t.Weekday()])
	}
	return "Current date and time: " + t.Format("2006-01-02 15:04:05, Monday")
}

func marshalWebpages(pages []core.Webpage) string {
	if pages == nil {
		pages = []core.Webpage{}
	}
	return marshal(pages)
}

func marshal(v any) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return ""
	}
	return strings.TrimRight(buf.String(), "\n")
}
