// SPDX-License-Identifier: Apache-2.0

package agent

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/YunjiaXi/InfoDeepSeek/pkg/chain"
	"github.com/YunjiaXi/InfoDeepSeek/pkg/core"
	"github.com/YunjiaXi/InfoDeepSeek/pkg/errors"
	"github.com/YunjiaXi/InfoDeepSeek/pkg/telemetry"
	"github.com/YunjiaXi/InfoDeepSeek/pkg/tools"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// execute runs the command of task and returns its answer. A failing tool
// yields an empty result and an observation event; only fatal errors and
// cancellation reach the loop.
func (s *session) execute(ctx context.Context, task *core.Task, iter int) (string, error) {
	name := canonicalCommand(task.CommandName())
	args := task.Command.Args
	s.log.Put(core.EventExecute, InvocationString(name, args))

	start := time.Now()
	out, err := s.callTool(ctx, name, args, task.ID)
	duration := time.Since(start)

	if err != nil {
		if errors.IsFatal(err) || ctx.Err() != nil {
			return "", err
		}
		s.agent.metrics.ToolFailed(ctx, name, err)
		s.logger.Warn("agent.tool.error",
			slog.Int("iteration", iter),
			slog.String("tool", name),
			slog.Int64("duration_ms", duration.Milliseconds()),
			slog.String("error", err.Error()),
			slog.String("error_code", string(errors.CodeOf(err))),
		)
		s.log.Put(core.EventObservation, s.msgs.ExecuteFailed)
		return "", nil
	}

	s.log.Put(core.EventObservation, out.AnswerMarkdown)
	msgType := chain.CommandType(name)
	for _, ex := range out.PromptResponses {
		s.log.PutExchange(ex.Prompt, ex.Response, msgType, s.cfg.FastModel)
	}
	s.logger.Debug("agent.tool.done",
		slog.String("tool", name),
		slog.Int64("duration_ms", duration.Milliseconds()),
	)
	return out.Answer, nil
}

func (s *session) callTool(ctx context.Context, name string, args map[string]string, taskID int) (out tools.Output, err error) {
	ctx, span := s.agent.tracer.Start(ctx, "Agent.Tool.Call",
		trace.WithAttributes(
			attribute.Int(telemetry.AttrTaskID, taskID),
			attribute.String(telemetry.AttrToolName, name),
		),
	)
	defer span.End()

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err = errors.New(errors.CodeToolFailure, "tool panicked", fmt.Errorf("%v", r)).
				WithContext("tool", name).
				WithRecoverable(true)
		}
		span.SetAttributes(telemetry.ToolCallAttributes(name, InvocationString(name, args), float64(time.Since(start).Microseconds())/1000, err == nil)...)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
	}()

	tool, err := s.registry.Resolve(name)
	if err != nil {
		return tools.Output{}, err
	}
	return tool.Call(ctx, args)
}

// InvocationString renders a command the way it is shown in the chain log:
// name(k=v,...) with keys in sorted order.
func InvocationString(name string, args map[string]string) string {
	keys := make([]string, 0, len(args))
	for k := range args {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+args[k])
	}
	text := name + "(" + strings.Join(parts, ",") + ")"
	return strings.ReplaceAll(text, "wikipedia(", "kuaipedia(")
}
