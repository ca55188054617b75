// SPDX-License-Identifier: Apache-2.0

// Package search implements the web_search tool over several search
// backends with a headless-browser crawler as the last resort.
package search

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/YunjiaXi/InfoDeepSeek/pkg/errors"
	"github.com/YunjiaXi/InfoDeepSeek/pkg/resilience"
	"github.com/YunjiaXi/InfoDeepSeek/pkg/telemetry"
	"github.com/YunjiaXi/InfoDeepSeek/pkg/tools"
)

// Defaults for New.
const (
	DefaultMaxResults = 5
	DefaultMaxRetries = 5
)

// FailedTitle is the title of the single result returned when every attempt
// came back empty.
const FailedTitle = "Search Failed"

// Result is one search hit.
type Result struct {
	Title string `json:"title"`
	Href  string `json:"href"`
	Body  string `json:"body"`
}

// Backend queries one search API.
type Backend interface {
	Name() string
	Search(ctx context.Context, query string, n int) ([]Result, error)
}

// Crawler scrapes a search engine result page.
type Crawler interface {
	Crawl(ctx context.Context, query string, n int) ([]Result, error)
}

var errNoResults = errors.New(errors.CodeToolFailure, "search returned no results", nil).WithRecoverable(true)

func emptyResult(err error) bool {
	return stderrors.Is(err, errNoResults)
}

// Tool is the web_search tool.
type Tool struct {
	backend    Backend
	crawler    Crawler
	breaker    *resilience.CircuitBreaker
	maxResults int
	retry      resilience.RetryConfig
	logger     *slog.Logger
}

// Option configures a Tool.
type Option func(*Tool)

// WithCrawler sets the fallback crawler.
func WithCrawler(c Crawler) Option {
	return func(t *Tool) { t.crawler = c }
}

// WithMaxResults caps the number of results per search.
func WithMaxResults(n int) Option {
	return func(t *Tool) {
		if n > 0 {
			t.maxResults = n
		}
	}
}

// WithMaxRetries bounds the attempts per search.
func WithMaxRetries(n int) Option {
	return func(t *Tool) {
		if n > 0 {
			t.retry.MaxAttempts = n
		}
	}
}

// WithRetryDelay sets the backoff before the second attempt.
func WithRetryDelay(d time.Duration) Option {
	return func(t *Tool) {
		t.retry.InitialDelay = d
		if d <= 0 {
			t.retry.Jitter = 0
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

// New creates the web_search tool over backend.
func New(backend Backend, opts ...Option) *Tool {
	t := &Tool{
		backend:    backend,
		maxResults: DefaultMaxResults,
		retry: resilience.RetryConfig{
			MaxAttempts:   DefaultMaxRetries,
			InitialDelay:  time.Second,
			MaxDelay:      5 * time.Second,
			Multiplier:    2,
			Jitter:        0.5,
			IsRecoverable: emptyResult,
		},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(t)
	}
	name := "search"
	if backend != nil {
		name = "search." + backend.Name()
	}
	t.breaker = resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
		Name:             name,
		FailureThreshold: 3,
		Timeout:          time.Minute,
		OnStateChange: func(name string, from, to resilience.CircuitBreakerState) {
			telemetry.Metrics().BreakerState(context.Background(), name, string(to))
			t.logger.Warn("search.breaker.state",
				slog.String("breaker", name),
				slog.String("from", string(from)),
				slog.String("to", string(to)),
			)
		},
	})
	return t
}

// Spec describes the tool to planners.
func (t *Tool) Spec() tools.Spec {
	return tools.Spec{
		Name:        tools.CommandWebSearch,
		LocalName:   "网页搜索",
		Description: "Web Search: search the internet and return result titles, snippets and URLs",
		Params: []tools.Param{
			{Name: "text", Type: "string", Description: "search keywords", Required: true},
		},
	}
}

// Call searches for the "text" argument.
func (t *Tool) Call(ctx context.Context, args map[string]string) (tools.Output, error) {
	query := tools.Arg(args, "text", "query", "keyword", "keywords")
	if query == "" {
		return tools.Output{}, errors.New(errors.CodeInvalidInput, "search text is required", nil)
	}
	results, err := t.Search(ctx, query)
	if err != nil {
		return tools.Output{}, err
	}
	return tools.Output{
		Answer:         Answer(results),
		AnswerMarkdown: Markdown(results),
	}, nil
}

// Search runs the bounded retry loop. After the last attempt a single
// FailedTitle result is returned instead of an error.
func (t *Tool) Search(ctx context.Context, query string) ([]Result, error) {
	attempt := 0
	results, err := resilience.Retry(ctx, t.retry, func(ctx context.Context) ([]Result, error) {
		attempt++
		results, err := t.attempt(ctx, query, attempt)
		if err != nil {
			return nil, err
		}
		if len(results) == 0 {
			return nil, errNoResults
		}
		return results, nil
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if errors.IsFatal(err) {
			return nil, err
		}
		t.logger.Warn("search.failed",
			slog.String("query", query),
			slog.Int("attempts", attempt),
		)
		return []Result{{Title: FailedTitle}}, nil
	}
	return results, nil
}

// attempt queries the backend and falls back to the crawler when the API
// fails, or from the second attempt on when it keeps returning nothing.
func (t *Tool) attempt(ctx context.Context, query string, attempt int) ([]Result, error) {
	apiFailed := t.backend == nil
	nonEmpty := func(r []Result) bool { return len(r) > 0 }

	var steps []resilience.Step[[]Result]
	if t.backend != nil {
		steps = append(steps, resilience.Step[[]Result]{
			Name:   "search." + t.backend.Name(),
			Accept: nonEmpty,
			Run: func(ctx context.Context) ([]Result, error) {
				var results []Result
				err := t.breaker.Call(ctx, func(ctx context.Context) error {
					var err error
					results, err = t.backend.Search(ctx, query, t.maxResults)
					return err
				})
				if err != nil {
					apiFailed = true
					t.logger.Warn("search.backend.error",
						slog.String("backend", t.backend.Name()),
						slog.Int("attempt", attempt),
						slog.String("error", err.Error()),
						slog.String("error_code", string(errors.CodeOf(err))),
					)
				}
				return results, err
			},
		})
	}
	if t.crawler != nil {
		steps = append(steps, resilience.Step[[]Result]{
			Name:   "search.crawler",
			Accept: nonEmpty,
			Run: func(ctx context.Context) ([]Result, error) {
				if !apiFailed && attempt < 2 {
					return nil, errNoResults
				}
				results, err := t.crawler.Crawl(ctx, query, t.maxResults)
				if err != nil {
					t.logger.Warn("search.crawler.error",
						slog.Int("attempt", attempt),
						slog.String("error", err.Error()),
					)
				}
				return results, err
			},
		})
	}

	results, err := resilience.Fallback(ctx, steps...)
	if err != nil {
		if errors.IsFatal(err) || ctx.Err() != nil {
			return nil, err
		}
		return nil, nil
	}
	if isPatent(results) {
		return nil, nil
	}
	if len(results) > t.maxResults {
		results = results[:t.maxResults]
	}
	return results, nil
}

// isPatent rejects result pages dominated by patent listings.
func isPatent(results []Result) bool {
	if len(results) == 0 {
		return false
	}
	return strings.Contains(results[0].Body, "Google Patents") || strings.Contains(results[0].Href, "patent")
}

// Answer renders results as title/body/url blocks.
func Answer(results []Result) string {
	var b strings.Builder
	for _, r := range results {
		fmt.Fprintf(&b, "title: %s\nbody: %s\nurl: %s\n", r.Title, r.Body, r.Href)
	}
	return strings.TrimSpace(b.String())
}

// Markdown renders results as a numbered list of links.
func Markdown(results []Result) string {
	if len(results) == 0 {
		return ""
	}
	lines := make([]string, 0, len(results))
	for i, r := range results {
		lines = append(lines, fmt.Sprintf("%d. [%s](%s) | %s", i+1, r.Title, r.Href, r.Body))
	}
	return "\n" + strings.Join(lines, "\n")
}
