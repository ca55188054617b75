// SPDX-License-Identifier: Apache-2.0

// Package agent implements the information-seeking session: the
// plan, act and observe loop over a FIFO task queue, followed by the
// conclusion, webpage ranking and per-rank answers.
package agent

import (
	"io"
	"log/slog"
	"time"

	"github.com/YunjiaXi/InfoDeepSeek/pkg/core"
	"github.com/YunjiaXi/InfoDeepSeek/pkg/errors"
	"github.com/YunjiaXi/InfoDeepSeek/pkg/llm"
	"github.com/YunjiaXi/InfoDeepSeek/pkg/prompt"
	"github.com/YunjiaXi/InfoDeepSeek/pkg/telemetry"
	"github.com/YunjiaXi/InfoDeepSeek/pkg/tokenizer"
	"github.com/YunjiaXi/InfoDeepSeek/pkg/tools"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// Defaults applied by New.
const (
	DefaultMaxTokens   = 4096
	DefaultMaxWebpages = 5
)

// Config is the immutable per-agent session configuration. Every Chat call
// reads it and never writes it.
type Config struct {
	Profile     core.Profile
	Lang        string
	LangAware   bool
	SmartModel  string
	FastModel   string
	MaxTokens   int
	MaxWebpages int
	// Offline enables the extra knowledge-only conclusion.
	Offline bool
}

// Agent runs information-seeking sessions. It holds no per-session state, so
// one Agent may serve many concurrent Chat calls.
type Agent struct {
	cfg       Config
	oracle    llm.Invoker
	catalogue []tools.Tool
	tokenizer tokenizer.Tokenizer
	logger    *slog.Logger
	echo      io.Writer
	now       func() time.Time
	tracer    trace.Tracer
	metrics   *telemetry.AgentMetrics
}

// Option configures an Agent instance.
type Option func(*Agent) error

// New creates an agent that consults oracle for every reasoning step.
func New(oracle llm.Invoker, opts ...Option) (*Agent, error) {
	if oracle == nil {
		return nil, errors.New(errors.CodeInvalidInput, "oracle is required", nil)
	}
	a := &Agent{
		cfg: Config{
			Profile:     core.DefaultProfile(),
			Lang:        prompt.LangEN,
			MaxTokens:   DefaultMaxTokens,
			MaxWebpages: DefaultMaxWebpages,
		},
		oracle: oracle,
		logger: slog.Default(),
		now:    time.Now,
		tracer: otel.Tracer("infoseek/agent"),
	}
	for _, opt := range opts {
		if err := opt(a); err != nil {
			return nil, err
		}
	}
	a.cfg.Profile = a.cfg.Profile.Normalized()
	if a.cfg.FastModel == "" {
		a.cfg.FastModel = a.cfg.SmartModel
	}
	if a.cfg.MaxWebpages < 1 {
		a.cfg.MaxWebpages = DefaultMaxWebpages
	}
	if a.tokenizer == nil {
		a.tokenizer = tokenizer.Default()
	}
	if a.metrics == nil {
		a.metrics = telemetry.Metrics()
	}
	return a, nil
}

// WithConfig replaces the whole session configuration.
func WithConfig(cfg Config) Option {
	return func(a *Agent) error {
		a.cfg = cfg
		return nil
	}
}

// WithProfile sets the agent identity, iteration budget and tool allow-list.
func WithProfile(profile core.Profile) Option {
	return func(a *Agent) error {
		a.cfg.Profile = profile
		return nil
	}
}

// WithLang selects the prompt and chain log language ("en" or "zh").
func WithLang(lang string, aware bool) Option {
	return func(a *Agent) error {
		switch lang {
		case prompt.LangEN, prompt.LangZH:
		default:
			return errors.New(errors.CodeInvalidInput, "unsupported language", nil).WithContext("lang", lang)
		}
		a.cfg.Lang = lang
		a.cfg.LangAware = aware
		return nil
	}
}

// WithModels sets the smart model used by the loop and the fast model
// reported for tool-internal exchanges.
func WithModels(smart, fast string) Option {
	return func(a *Agent) error {
		a.cfg.SmartModel = smart
		a.cfg.FastModel = fast
		return nil
	}
}

// WithMaxTokens bounds planning, conclusion and ranking prompts.
func WithMaxTokens(n int) Option {
	return func(a *Agent) error {
		a.cfg.MaxTokens = n
		return nil
	}
}

// WithMaxWebpages caps the ranked webpage list and the answer ranks.
func WithMaxWebpages(n int) Option {
	return func(a *Agent) error {
		a.cfg.MaxWebpages = n
		return nil
	}
}

// WithOfflineConclusion enables the knowledge-only baseline answer.
func WithOfflineConclusion(enabled bool) Option {
	return func(a *Agent) error {
		a.cfg.Offline = enabled
		return nil
	}
}

// WithTools sets the tool catalogue the per-session registry selects from.
func WithTools(catalogue ...tools.Tool) Option {
	return func(a *Agent) error {
		a.catalogue = append([]tools.Tool(nil), catalogue...)
		return nil
	}
}

// WithTokenizer sets the tokenizer used for prompt budgeting.
func WithTokenizer(tok tokenizer.Tokenizer) Option {
	return func(a *Agent) error {
		a.tokenizer = tok
		return nil
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Agent) error {
		if logger != nil {
			a.logger = logger
		}
		return nil
	}
}

// WithEcho prints chain events to w while sessions run.
func WithEcho(w io.Writer) Option {
	return func(a *Agent) error {
		a.echo = w
		return nil
	}
}

// WithClock overrides the clock used for the date line of prompts.
func WithClock(now func() time.Time) Option {
	return func(a *Agent) error {
		if now != nil {
			a.now = now
		}
		return nil
	}
}

// WithMetrics overrides the metric instruments.
func WithMetrics(m *telemetry.AgentMetrics) Option {
	return func(a *Agent) error {
		a.metrics = m
		return nil
	}
}

// Config returns the normalized configuration.
func (a *Agent) Config() Config {
	return a.cfg
}

// Registry builds the tool registry a session would use.
func (a *Agent) Registry() *tools.Registry {
	return tools.NewRegistry(a.cfg.Profile, a.catalogue...)
}

func (a *Agent) renderer() prompt.Renderer {
	return prompt.Renderer{
		Lang:      a.cfg.Lang,
		LangAware: a.cfg.LangAware,
		Tokenizer: a.tokenizer,
		MaxTokens: a.cfg.MaxTokens,
		Now:       a.now,
	}
}
