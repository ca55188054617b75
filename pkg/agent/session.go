// SPDX-License-Identifier: Apache-2.0

package agent

import (
	"context"
	"log/slog"

	"github.com/YunjiaXi/InfoDeepSeek/pkg/chain"
	"github.com/YunjiaXi/InfoDeepSeek/pkg/core"
	"github.com/YunjiaXi/InfoDeepSeek/pkg/errors"
	"github.com/YunjiaXi/InfoDeepSeek/pkg/prompt"
	"github.com/YunjiaXi/InfoDeepSeek/pkg/telemetry"
	"github.com/YunjiaXi/InfoDeepSeek/pkg/tools"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// session owns every piece of mutable state of one Chat call.
type session struct {
	agent    *Agent
	cfg      Config
	id       string
	goal     string
	history  []core.Turn
	queue    *core.TaskQueue
	registry *tools.Registry
	log      *chain.Log
	render   prompt.Renderer
	msgs     chain.Messages
	logger   *slog.Logger

	completed     []*core.Task
	noTaskPlanned bool
	plans         int
}

// Chat runs one information-seeking session for query. Soft failures are
// absorbed into the result; only fatal upstream errors and context
// cancellation are returned.
func (a *Agent) Chat(ctx context.Context, query string, history []core.Turn) (*Result, error) {
	ctx, sessionID := core.EnsureSessionID(ctx)
	ctx, span := a.tracer.Start(ctx, "Agent.Chat",
		trace.WithAttributes(telemetry.SessionAttributes(sessionID, a.cfg.Profile.Name, a.cfg.Lang, a.cfg.Profile.MaxIterNum)...),
	)
	defer span.End()

	logger := a.logger.With(slog.String("session_id", sessionID))
	logOpts := []chain.Option{chain.WithLogger(logger), chain.WithLang(a.cfg.Lang)}
	if a.echo != nil {
		logOpts = append(logOpts, chain.WithEcho(a.echo))
	}

	s := &session{
		agent:    a,
		cfg:      a.cfg,
		id:       sessionID,
		goal:     query,
		history:  append([]core.Turn(nil), history...),
		queue:    core.NewTaskQueue(),
		registry: a.Registry(),
		log:      chain.New(sessionID, logOpts...),
		render:   a.renderer(),
		msgs:     chain.MessagesFor(a.cfg.Lang),
		logger:   logger,
	}

	a.metrics.SessionStarted(ctx, a.cfg.Lang)
	logger.Info("agent.chat.start",
		slog.Int("history_turns", len(history)),
		slog.Int("tools", len(s.registry.Names())),
	)

	res, err := s.chat(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		a.metrics.RecordError(ctx, err, "agent")
		logger.Error("agent.chat.error",
			slog.String("error", err.Error()),
			slog.String("error_code", string(errors.CodeOf(err))),
		)
		return nil, err
	}

	span.SetAttributes(
		attribute.Int(telemetry.AttrIteration, res.Iterations),
		attribute.Bool(telemetry.AttrNoTaskPlanned, res.NoTaskPlanned),
		attribute.Int(telemetry.AttrWebpages, len(res.MoreInfo.RankedWebpages)),
	)
	span.SetStatus(codes.Ok, "")
	logger.Info("agent.chat.done",
		slog.Int("iterations", res.Iterations),
		slog.Bool("no_task_planned", res.NoTaskPlanned),
		slog.Int("webpages", len(res.MoreInfo.RankedWebpages)),
	)
	return res, nil
}

func (s *session) chat(ctx context.Context) (*Result, error) {
	var (
		response string
		info     MoreInfo
		err      error
	)
	if s.registry.Empty() {
		s.noTaskPlanned = true
		response, err = s.ask(ctx, prompt.NoTaskConclusion(s.goal, s.history), chain.TypeConclusion, s.cfg.SmartModel)
		if err != nil {
			return nil, err
		}
		s.log.Put(core.EventChainEnd, "")
	} else {
		if err := s.loop(ctx); err != nil {
			return nil, err
		}
		s.agent.metrics.Iterations(ctx, s.plans, s.noTaskPlanned)
		response, info, err = s.conclude(ctx)
		if err != nil {
			return nil, err
		}
		s.log.Put(core.EventChainEnd, "")
	}

	return &Result{
		Response:      response,
		History:       core.AppendTurn(s.history, s.goal, response),
		Chain:         s.log.Events(),
		ChainText:     s.log.String(),
		Exchanges:     s.log.Exchanges(),
		MoreInfo:      info,
		SessionID:     s.id,
		Iterations:    s.plans,
		NoTaskPlanned: s.noTaskPlanned,
	}, nil
}

// loop drives plan, judge and execute until a stop condition holds. The
// first iteration always plans, and the budget check runs every iteration,
// so the planner is invoked at most MaxIterNum+1 times.
func (s *session) loop(ctx context.Context) error {
	s.queue.Clear()
	start := true
	for iter := 1; ; iter++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !start && s.queue.IsEmpty() {
			if iter <= 2 && len(s.completed) == 0 {
				s.noTaskPlanned = true
			}
			s.log.Put(core.EventFinish, s.msgs.TasksFinished)
			return nil
		}
		start = false

		if !s.queue.IsEmpty() {
			task, err := s.queue.PopFront()
			if err != nil {
				return err
			}
			decision := Judge(task, s.plans, s.registry, s.msgs)
			if decision.Stop() {
				if iter <= 2 {
					s.noTaskPlanned = true
				}
				s.logger.Debug("agent.loop.stop",
					slog.Int("iteration", iter),
					slog.String("verdict", decision.Verdict.String()),
				)
				s.log.Put(core.EventFinish, decision.Message)
				return nil
			}

			s.log.Put(core.EventThought, task.Name)
			result, err := s.execute(ctx, task, iter)
			if err != nil {
				return err
			}
			task.Complete(result)
			s.completed = append(s.completed, task)
		}

		if iter > s.cfg.Profile.MaxIterNum {
			s.log.Put(core.EventFinish, s.msgs.StopThinking)
			return nil
		}

		s.log.Put(core.EventThinking, "")
		drafts, err := s.plan(ctx, iter)
		if err != nil {
			return err
		}
		for _, draft := range drafts {
			draft.ID = s.queue.NextID()
			s.queue.Append(draft)
		}
	}
}

// ask invokes the oracle once and records the exchange. Non-fatal failures
// degrade to an empty response.
func (s *session) ask(ctx context.Context, text, msgType, model string) (string, error) {
	s.agent.metrics.OracleCall(ctx, msgType)
	response, err := s.agent.oracle.Invoke(ctx, text, model)
	if err != nil {
		if errors.IsFatal(err) || ctx.Err() != nil {
			return "", err
		}
		s.logger.Warn("agent.oracle.error",
			slog.String("type", msgType),
			slog.String("error", err.Error()),
		)
		response = ""
	}
	s.log.PutExchange(text, response, msgType, model)
	return response, nil
}
