// SPDX-License-Identifier: Apache-2.0

package telemetry

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/YunjiaXi/InfoDeepSeek/pkg/errors"
)

// AgentMetrics tracks session throughput and the soft failures that sessions
// absorb without surfacing an error.
type AgentMetrics struct {
	sessions       metric.Int64Counter
	sessionErrors  metric.Int64Counter
	iterations     metric.Int64Histogram
	oracleCalls    metric.Int64Counter
	planFailures   metric.Int64Counter
	toolFailures   metric.Int64Counter
	rankedWebpages metric.Int64Histogram
	breakerState   metric.Int64Gauge
	errorsByCode   metric.Int64Counter
}

var (
	agentMetrics     *AgentMetrics
	agentMetricsOnce sync.Once
)

// Metrics returns the process-wide agent metrics, created on first use from
// the global meter provider. A nil result disables recording.
func Metrics() *AgentMetrics {
	agentMetricsOnce.Do(func() {
		agentMetrics, _ = NewAgentMetrics(otel.Meter("infoseek/agent"))
	})
	return agentMetrics
}

// NewAgentMetrics creates the agent instruments on meter.
func NewAgentMetrics(meter metric.Meter) (*AgentMetrics, error) {
	var m AgentMetrics
	var err error

	if m.sessions, err = meter.Int64Counter("infoseek.sessions.total",
		metric.WithDescription("Sessions started")); err != nil {
		return nil, err
	}
	if m.sessionErrors, err = meter.Int64Counter("infoseek.sessions.errors",
		metric.WithDescription("Sessions converted to an error record")); err != nil {
		return nil, err
	}
	if m.iterations, err = meter.Int64Histogram("infoseek.agent.iterations",
		metric.WithDescription("Loop iterations per session")); err != nil {
		return nil, err
	}
	if m.oracleCalls, err = meter.Int64Counter("infoseek.oracle.calls",
		metric.WithDescription("Oracle calls by message type")); err != nil {
		return nil, err
	}
	if m.planFailures, err = meter.Int64Counter("infoseek.planner.failures",
		metric.WithDescription("Planner responses that could not be parsed")); err != nil {
		return nil, err
	}
	if m.toolFailures, err = meter.Int64Counter("infoseek.tool.failures",
		metric.WithDescription("Tool executions that degraded to an empty result")); err != nil {
		return nil, err
	}
	if m.rankedWebpages, err = meter.Int64Histogram("infoseek.conclusion.webpages",
		metric.WithDescription("Ranked webpages per session")); err != nil {
		return nil, err
	}
	if m.breakerState, err = meter.Int64Gauge("infoseek.circuitbreaker.state",
		metric.WithDescription("Circuit breaker state per backend (0=open, 1=half-open, 2=closed)")); err != nil {
		return nil, err
	}
	if m.errorsByCode, err = meter.Int64Counter("infoseek.errors.total",
		metric.WithDescription("Errors by code and component")); err != nil {
		return nil, err
	}
	return &m, nil
}

// SessionStarted counts a new session.
func (m *AgentMetrics) SessionStarted(ctx context.Context, lang string) {
	if m == nil {
		return
	}
	m.sessions.Add(ctx, 1, metric.WithAttributes(attribute.String("lang", lang)))
}

// SessionFailed counts a session that ended in an error record.
func (m *AgentMetrics) SessionFailed(ctx context.Context, err error) {
	if m == nil {
		return
	}
	m.sessionErrors.Add(ctx, 1, metric.WithAttributes(attribute.String("error.code", string(errors.CodeOf(err)))))
}

// Iterations records the loop length of a finished session.
func (m *AgentMetrics) Iterations(ctx context.Context, n int, noTaskPlanned bool) {
	if m == nil {
		return
	}
	m.iterations.Record(ctx, int64(n), metric.WithAttributes(attribute.Bool("no_task_planned", noTaskPlanned)))
}

// OracleCall counts one oracle exchange of the given message type.
func (m *AgentMetrics) OracleCall(ctx context.Context, msgType string) {
	if m == nil {
		return
	}
	m.oracleCalls.Add(ctx, 1, metric.WithAttributes(attribute.String("type", msgType)))
}

// PlanFailed counts a planner response that yielded no tasks after repair.
func (m *AgentMetrics) PlanFailed(ctx context.Context) {
	if m == nil {
		return
	}
	m.planFailures.Add(ctx, 1)
}

// ToolFailed counts a tool execution that failed.
func (m *AgentMetrics) ToolFailed(ctx context.Context, tool string, err error) {
	if m == nil {
		return
	}
	m.toolFailures.Add(ctx, 1, metric.WithAttributes(
		attribute.String("tool", tool),
		attribute.String("error.code", string(errors.CodeOf(err))),
	))
}

// RankedWebpages records the size of the ranked webpage list.
func (m *AgentMetrics) RankedWebpages(ctx context.Context, n int) {
	if m == nil {
		return
	}
	m.rankedWebpages.Record(ctx, int64(n))
}

// BreakerState records a circuit breaker transition.
func (m *AgentMetrics) BreakerState(ctx context.Context, name, state string) {
	if m == nil {
		return
	}
	var v int64
	switch state {
	case "closed":
		v = 2
	case "half-open":
		v = 1
	}
	m.breakerState.Record(ctx, v, metric.WithAttributes(attribute.String("component", name)))
}

// RecordError counts err under its error code.
func (m *AgentMetrics) RecordError(ctx context.Context, err error, component string) {
	if m == nil || err == nil {
		return
	}
	recoverable := "unknown"
	if ae := errors.As(err); ae != nil && ae.Code != errors.CodeInternal {
		if ae.Recoverable {
			recoverable = "true"
		} else {
			recoverable = "false"
		}
	}
	m.errorsByCode.Add(ctx, 1, metric.WithAttributes(
		attribute.String("error.code", string(errors.CodeOf(err))),
		attribute.String("component", component),
		attribute.String("recoverable", recoverable),
	))
}
