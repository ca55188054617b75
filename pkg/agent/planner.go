// SPDX-License-Identifier: Apache-2.0

package agent

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/YunjiaXi/InfoDeepSeek/pkg/chain"
	"github.com/YunjiaXi/InfoDeepSeek/pkg/core"
	"github.com/YunjiaXi/InfoDeepSeek/pkg/jsonfix"
	"github.com/YunjiaXi/InfoDeepSeek/pkg/memory"
	"github.com/YunjiaXi/InfoDeepSeek/pkg/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// plan asks the oracle for the next tasks. Unparseable output yields no
// tasks and a fail event; the loop then terminates on its own.
func (s *session) plan(ctx context.Context, iter int) ([]*core.Task, error) {
	ctx, span := s.agent.tracer.Start(ctx, "Agent.Plan",
		trace.WithAttributes(attribute.Int(telemetry.AttrIteration, iter)),
	)
	defer span.End()
	s.plans++

	mem := memory.Build(s.history, s.completed)
	text, err := s.render.Planning(s.cfg.Profile, s.goal, s.registry.Specs(), mem)
	if err != nil {
		return nil, err
	}
	response, err := s.ask(ctx, text, chain.TypePlan, s.cfg.SmartModel)
	if err != nil {
		return nil, err
	}

	parsed := jsonfix.ParseList(response)
	if !parsed.OK() {
		s.agent.metrics.PlanFailed(ctx)
		s.logger.Warn("agent.plan.failed",
			slog.Int("iteration", iter),
			slog.String("error", errString(parsed.Err)),
		)
		s.log.Put(core.EventFail, s.msgs.PlanFailed)
		return nil, nil
	}

	drafts := make([]*core.Task, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		drafts = append(drafts, decodeTask(item))
	}
	span.SetAttributes(attribute.Int(telemetry.AttrTasksPlanned, len(drafts)))
	return drafts, nil
}

// decodeTask turns one list item into a task. Items that are not task
// objects become an empty task, which the judge rejects as malformed.
func decodeTask(raw json.RawMessage) *core.Task {
	var task core.Task
	if err := json.Unmarshal(raw, &task); err != nil {
		return &core.Task{}
	}
	return &task
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
