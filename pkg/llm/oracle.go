package llm

import (
	"context"
	stderrors "errors"
	"log/slog"
	"strings"
	"time"

	"github.com/YunjiaXi/InfoDeepSeek/pkg/errors"
	"github.com/YunjiaXi/InfoDeepSeek/pkg/resilience"
	"github.com/YunjiaXi/InfoDeepSeek/pkg/telemetry"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// ContentFilteredResponse is what the oracle answers when the provider
// refuses a prompt on content grounds. It parses as an empty list, so the
// planner and ranker read it as "nothing to add".
const ContentFilteredResponse = "[]"

// ErrContentFiltered marks a provider refusal on content grounds.
var ErrContentFiltered = errors.New(errors.CodeLLMError, "content filtered", nil)

// DefaultContentFilterMarkers are provider error fragments that signal a
// content refusal.
var DefaultContentFilterMarkers = []string{
	"content_filter",
	"inappropriate content",
	"Content Exists Risk",
}

// DefaultLockoutMarkers are provider error fragments that signal a hard rate
// limit lockout. Hitting one stops the whole process.
var DefaultLockoutMarkers = []string{
	"rate-limits",
	"insufficient_quota",
}

// Invoker is the oracle contract used by the agent and by tools that consult
// the oracle internally.
type Invoker interface {
	Invoke(ctx context.Context, prompt, model string) (string, error)
}

// Oracle adapts a Provider to the prompt-in text-out contract. Soft failures
// come back as an empty string with a nil error; only lockouts and context
// cancellation are returned as errors.
type Oracle struct {
	provider      Provider
	providerName  string
	model         string
	system        string
	temperature   float64
	timeout       time.Duration
	retry         resilience.RetryConfig
	filterMarkers []string
	fatalMarkers  []string
	tracer        trace.Tracer
	log           *slog.Logger
}

// OracleOption configures an Oracle.
type OracleOption func(*Oracle)

// WithDefaultModel sets the model used when Invoke receives an empty name.
func WithDefaultModel(model string) OracleOption {
	return func(o *Oracle) { o.model = model }
}

// WithProviderName labels spans and logs with the backend name.
func WithProviderName(name string) OracleOption {
	return func(o *Oracle) { o.providerName = name }
}

// WithSystemPrompt prepends a system message to every request.
func WithSystemPrompt(system string) OracleOption {
	return func(o *Oracle) { o.system = system }
}

// WithTemperature sets the sampling temperature.
func WithTemperature(t float64) OracleOption {
	return func(o *Oracle) { o.temperature = t }
}

// WithTimeout bounds every provider call.
func WithTimeout(d time.Duration) OracleOption {
	return func(o *Oracle) { o.timeout = d }
}

// WithRetry sets the retry policy.
func WithRetry(rc resilience.RetryConfig) OracleOption {
	return func(o *Oracle) { o.retry = rc }
}

// WithLockoutMarkers replaces the fatal lockout markers.
func WithLockoutMarkers(markers ...string) OracleOption {
	return func(o *Oracle) { o.fatalMarkers = markers }
}

// WithContentFilterMarkers replaces the content refusal markers.
func WithContentFilterMarkers(markers ...string) OracleOption {
	return func(o *Oracle) { o.filterMarkers = markers }
}

// WithLogger sets the logger.
func WithLogger(log *slog.Logger) OracleOption {
	return func(o *Oracle) { o.log = log }
}

// NewOracle wraps provider.
func NewOracle(provider Provider, opts ...OracleOption) *Oracle {
	o := &Oracle{
		provider:      provider,
		timeout:       5 * time.Minute,
		retry:         resilience.DefaultRetryConfig(),
		filterMarkers: DefaultContentFilterMarkers,
		fatalMarkers:  DefaultLockoutMarkers,
		tracer:        otel.Tracer("infoseek/llm"),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.log == nil {
		o.log = slog.Default()
	}
	return o
}

// Invoke sends prompt as a single user turn and returns the response text.
func (o *Oracle) Invoke(ctx context.Context, prompt, model string) (string, error) {
	if model == "" {
		model = o.model
	}
	ctx, span := o.tracer.Start(ctx, "Oracle.Invoke")
	defer span.End()
	span.SetAttributes(telemetry.LLMAttributes(model, o.providerName, 1)...)

	start := time.Now()
	retry := o.retry.WithIsRecoverable(o.recoverable)
	text, err := resilience.Retry(ctx, retry, func(ctx context.Context) (string, error) {
		return resilience.WithTimeout(ctx, o.timeout, func(ctx context.Context) (string, error) {
			resp, err := o.provider.Chat(ctx, ChatRequest{
				Model:       model,
				Messages:    UserMessages(o.system, prompt),
				Temperature: o.temperature,
			})
			if err != nil {
				return "", o.classify(err)
			}
			span.SetAttributes(attribute.Int(telemetry.AttrLLMTokensTotal, resp.Usage.TotalTokens))
			return resp.Content, nil
		})
	})
	span.SetAttributes(attribute.Float64(telemetry.AttrLLMDurationMs, time.Since(start).Seconds()*1000))
	if err == nil {
		return text, nil
	}

	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	if ctxErr := ctx.Err(); ctxErr != nil {
		return "", ctxErr
	}
	if errors.IsFatal(err) {
		o.log.Error("oracle.lockout",
			slog.String("model", model),
			slog.String("provider", o.providerName),
			slog.String("error", err.Error()),
			slog.String("error_code", string(errors.CodeFatal)),
		)
		return "", err
	}
	if stderrors.Is(err, ErrContentFiltered) {
		o.log.Warn("oracle.content_filtered",
			slog.String("model", model),
			slog.String("provider", o.providerName),
		)
		return ContentFilteredResponse, nil
	}
	o.log.Warn("oracle.invoke.failed",
		slog.String("model", model),
		slog.String("provider", o.providerName),
		slog.String("error", err.Error()),
		slog.String("error_code", string(errors.CodeOf(err))),
	)
	return "", nil
}

func (o *Oracle) classify(err error) error {
	msg := err.Error()
	for _, marker := range o.fatalMarkers {
		if marker != "" && strings.Contains(msg, marker) {
			return errors.Fatal("provider rate limit lockout", err).WithContext("marker", marker)
		}
	}
	for _, marker := range o.filterMarkers {
		if marker != "" && strings.Contains(msg, marker) {
			return &errors.AgentError{
				Code:    ErrContentFiltered.Code,
				Message: ErrContentFiltered.Message,
				Err:     err,
			}
		}
	}
	return errors.New(errors.CodeLLMError, "provider call failed", err).WithRecoverable(true)
}

func (o *Oracle) recoverable(err error) bool {
	if errors.IsFatal(err) || stderrors.Is(err, ErrContentFiltered) {
		return false
	}
	if stderrors.Is(err, context.Canceled) {
		return false
	}
	return true
}
