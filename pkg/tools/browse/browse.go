// SPDX-License-Identifier: Apache-2.0

// Package browse implements the browse_website tool: it reads a page and
// summarises it against the question being researched.
package browse

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	readability "github.com/go-shiori/go-readability"

	"github.com/YunjiaXi/InfoDeepSeek/pkg/errors"
	"github.com/YunjiaXi/InfoDeepSeek/pkg/llm"
	"github.com/YunjiaXi/InfoDeepSeek/pkg/tools"
	"github.com/YunjiaXi/InfoDeepSeek/pkg/tools/render"
)

// Defaults for New.
const (
	DefaultMaxChars   = 20000
	DefaultChunkChars = 4000
	DefaultTimeout    = 20 * time.Second

	// minReadableChars is the text length below which a plain HTTP fetch is
	// assumed to need JavaScript rendering.
	minReadableChars = 200
	maxBodyBytes     = 5 << 20
)

// Page is the readable content of a fetched URL.
type Page struct {
	URL   string
	Title string
	Text  string
}

// Tool is the browse_website tool.
type Tool struct {
	oracle     llm.Invoker
	model      string
	lang       string
	client     *http.Client
	renderer   render.Renderer
	maxChars   int
	chunkChars int
	logger     *slog.Logger
}

// Option configures a Tool.
type Option func(*Tool)

// WithOracle enables chunk summarisation with model.
func WithOracle(oracle llm.Invoker, model string) Option {
	return func(t *Tool) {
		t.oracle = oracle
		t.model = model
	}
}

// WithLang selects the summarisation prompt language.
func WithLang(lang string) Option {
	return func(t *Tool) { t.lang = lang }
}

// WithHTTPClient sets the client for plain fetches.
func WithHTTPClient(c *http.Client) Option {
	return func(t *Tool) {
		if c != nil {
			t.client = c
		}
	}
}

// WithRenderer sets the headless renderer used when a plain fetch yields
// too little text.
func WithRenderer(r render.Renderer) Option {
	return func(t *Tool) { t.renderer = r }
}

// WithLimits sets the page text cap and the summarisation chunk size.
func WithLimits(maxChars, chunkChars int) Option {
	return func(t *Tool) {
		if maxChars > 0 {
			t.maxChars = maxChars
		}
		if chunkChars > 0 {
			t.chunkChars = chunkChars
		}
	}
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(t *Tool) {
		if l != nil {
			t.logger = l
		}
	}
}

// New creates the browse_website tool.
func New(opts ...Option) *Tool {
	t := &Tool{
		lang:       "en",
		client:     &http.Client{Timeout: DefaultTimeout},
		maxChars:   DefaultMaxChars,
		chunkChars: DefaultChunkChars,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Spec describes the tool to planners.
func (t *Tool) Spec() tools.Spec {
	return tools.Spec{
		Name:        tools.CommandBrowse,
		LocalName:   "浏览网页",
		Description: "Browse Website: read a webpage and extract the information relevant to the question",
		Params: []tools.Param{
			{Name: "url", Type: "string", Description: "the URL of the webpage", Required: true},
			{Name: "question", Type: "string", Description: "what you want to find on the webpage", Required: true},
		},
	}
}

// Call fetches the "url" argument and summarises it for "question".
func (t *Tool) Call(ctx context.Context, args map[string]string) (tools.Output, error) {
	pageURL := tools.Arg(args, "url", "link", "href")
	question := tools.Arg(args, "question", "query", "text")
	if pageURL == "" {
		return tools.Output{}, errors.New(errors.CodeInvalidInput, "url is required", nil)
	}

	page, err := t.Read(ctx, pageURL)
	if err != nil {
		return tools.Output{}, err
	}

	summary, exchanges, err := t.summarise(ctx, question, page)
	if err != nil {
		return tools.Output{}, err
	}
	return tools.Output{
		Answer:          fmt.Sprintf("url: %s\ntitle: %s\ncontent: %s", page.URL, page.Title, summary),
		AnswerMarkdown:  fmt.Sprintf("[%s](%s)\n%s", orURL(page.Title, page.URL), page.URL, summary),
		PromptResponses: exchanges,
	}, nil
}

// Read returns the readable text of pageURL, rendering it in the headless
// browser when the plain fetch fails or yields too little text.
func (t *Tool) Read(ctx context.Context, pageURL string) (Page, error) {
	u, err := render.ParseURL(pageURL)
	if err != nil {
		return Page{}, err
	}
	pageURL = u.String()

	page, fetchErr := t.fetch(ctx, pageURL)
	if fetchErr == nil && utf8.RuneCountInString(page.Text) >= minReadableChars {
		return page, nil
	}
	if fetchErr != nil {
		if ctx.Err() != nil {
			return Page{}, ctx.Err()
		}
		t.logger.Debug("browse.fetch.error", slog.String("url", pageURL), slog.String("error", fetchErr.Error()))
	}
	if t.renderer == nil {
		if fetchErr != nil {
			return Page{}, fetchErr
		}
		return page, nil
	}

	html, err := t.renderer.HTML(ctx, pageURL)
	if err != nil {
		if fetchErr == nil && page.Text != "" {
			return page, nil
		}
		return Page{}, err
	}
	rendered, err := t.extract(strings.NewReader(html), pageURL)
	if err != nil {
		return Page{}, err
	}
	if utf8.RuneCountInString(rendered.Text) < utf8.RuneCountInString(page.Text) {
		return page, nil
	}
	return rendered, nil
}

func (t *Tool) fetch(ctx context.Context, pageURL string) (Page, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return Page{}, err
	}
	req.Header.Set("User-Agent", render.DefaultUserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")

	resp, err := t.client.Do(req)
	if err != nil {
		return Page{}, errors.New(errors.CodeToolFailure, "fetch page", err).WithContext("url", pageURL).WithRecoverable(true)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Page{}, errors.New(errors.CodeToolFailure, fmt.Sprintf("fetch page returned %d", resp.StatusCode), nil).
			WithContext("url", pageURL).
			WithRecoverable(true)
	}
	return t.extract(io.LimitReader(resp.Body, maxBodyBytes), pageURL)
}

func (t *Tool) extract(r io.Reader, pageURL string) (Page, error) {
	u, err := render.ParseURL(pageURL)
	if err != nil {
		return Page{}, err
	}
	article, err := readability.FromReader(r, u)
	if err != nil {
		return Page{}, errors.New(errors.CodeToolFailure, "extract readable text", err).
			WithContext("url", pageURL).
			WithRecoverable(true)
	}
	return Page{
		URL:   pageURL,
		Title: strings.TrimSpace(article.Title),
		Text:  truncateRunes(normalize(article.TextContent), t.maxChars),
	}, nil
}

// summarise condenses each chunk of the page against question. Chunks the
// oracle answers with nothing are dropped. Without an oracle the page text
// itself is the summary.
func (t *Tool) summarise(ctx context.Context, question string, page Page) (string, []llm.Exchange, error) {
	if t.oracle == nil {
		return page.Text, nil, nil
	}
	var (
		parts     []string
		exchanges []llm.Exchange
	)
	for _, chunk := range Chunk(page.Text, t.chunkChars) {
		text := summaryPrompt(t.lang, question, page.URL, chunk)
		response, err := t.oracle.Invoke(ctx, text, t.model)
		if err != nil {
			if errors.IsFatal(err) || ctx.Err() != nil {
				return "", nil, err
			}
			t.logger.Warn("browse.summary.error", slog.String("url", page.URL), slog.String("error", err.Error()))
			response = ""
		}
		exchanges = append(exchanges, llm.Exchange{Prompt: text, Response: response})
		if response = strings.TrimSpace(response); response != "" {
			parts = append(parts, response)
		}
	}
	if len(parts) == 0 {
		return "", exchanges, nil
	}
	return strings.Join(parts, "\n"), exchanges, nil
}

func summaryPrompt(lang, question, pageURL, chunk string) string {
	if lang == "zh" {
		return fmt.Sprintf("以下是网页 %s 的部分内容：\n\"\"\"\n%s\n\"\"\"\n请根据以上内容，提取并总结与问题“%s”相关的信息。如果没有相关信息，请总结网页的主要内容。", pageURL, chunk, question)
	}
	return fmt.Sprintf("The following is part of the webpage %s:\n\"\"\"\n%s\n\"\"\"\nUsing the text above, extract and summarise the information relevant to the question: \"%s\". If there is no relevant information, summarise the main content of the text.", pageURL, chunk, question)
}

// Chunk splits text into pieces of at most size runes, breaking at line
// boundaries when possible.
func Chunk(text string, size int) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if size <= 0 {
		return []string{text}
	}
	var (
		chunks  []string
		current strings.Builder
		n       int
	)
	flush := func() {
		if s := strings.TrimSpace(current.String()); s != "" {
			chunks = append(chunks, s)
		}
		current.Reset()
		n = 0
	}
	for _, line := range strings.Split(text, "\n") {
		runes := []rune(line)
		for len(runes) > size {
			flush()
			chunks = append(chunks, string(runes[:size]))
			runes = runes[size:]
		}
		if n+len(runes)+1 > size {
			flush()
		}
		current.WriteString(string(runes))
		current.WriteString("\n")
		n += len(runes) + 1
	}
	flush()
	return chunks
}

// normalize collapses runs of blank lines and trims every line.
func normalize(text string) string {
	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}

func truncateRunes(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

func orURL(title, pageURL string) string {
	if title == "" {
		return pageURL
	}
	return title
}
