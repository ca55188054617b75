// SPDX-License-Identifier: Apache-2.0
// Package runner isolates agent sessions from each other and drives batches
// of queries over a worker pool with resumable output.
package runner

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"

	"github.com/YunjiaXi/InfoDeepSeek/pkg/agent"
	"github.com/YunjiaXi/InfoDeepSeek/pkg/chain"
	"github.com/YunjiaXi/InfoDeepSeek/pkg/core"
	"github.com/YunjiaXi/InfoDeepSeek/pkg/errors"
	"github.com/YunjiaXi/InfoDeepSeek/pkg/telemetry"
)

// ErrorResponse marks a session that failed.
const ErrorResponse = "error"

// Chatter is what a session needs from the agent.
type Chatter interface {
	Chat(ctx context.Context, query string, history []core.Turn) (*agent.Result, error)
}

// SessionResult is the persisted outcome of one session. A failed session
// carries only its id and ErrorResponse.
type SessionResult struct {
	ID        string           `json:"id"`
	Response  string           `json:"response"`
	MoreInfo  *agent.MoreInfo  `json:"more_info,omitempty"`
	History   string           `json:"history,omitempty"`
	Exchanges []chain.Exchange `json:"full_llm_prompt_responses,omitempty"`
}

// Failed reports whether the session ended in the error sentinel.
func (r SessionResult) Failed() bool { return r.Response == ErrorResponse }

// Persistable reports whether the result is worth keeping as finished.
func (r SessionResult) Persistable() bool {
	return !r.Failed() && r.MoreInfo != nil && !r.MoreInfo.IsZero()
}

// Session runs one Chat call behind a fault boundary. Panics and ordinary
// errors become the error sentinel; fatal errors and cancellation are
// returned so the caller can stop everything.
func Session(ctx context.Context, chatter Chatter, id, query string, history []core.Turn, logger *slog.Logger) (result SessionResult, err error) {
	if logger == nil {
		logger = slog.Default()
	}
	result = SessionResult{ID: id, Response: ErrorResponse}

	defer func() {
		if rec := recover(); rec != nil {
			logger.ErrorContext(ctx, "runner.session.panic",
				slog.String("id", id),
				slog.String("panic", fmt.Sprint(rec)),
				slog.String("stack", string(debug.Stack())),
			)
			telemetry.Metrics().RecordError(ctx, errors.New(errors.CodeInternal, "session panic", nil), "runner")
			result = SessionResult{ID: id, Response: ErrorResponse}
			err = nil
		}
	}()

	if strings.TrimSpace(query) == "" {
		logger.WarnContext(ctx, "runner.session.error",
			slog.String("id", id),
			slog.String("error", "empty query"),
		)
		return result, nil
	}

	res, chatErr := chatter.Chat(core.WithSessionID(ctx, id), query, history)
	if chatErr != nil {
		if errors.IsFatal(chatErr) || ctx.Err() != nil {
			return result, chatErr
		}
		logger.ErrorContext(ctx, "runner.session.error",
			slog.String("id", id),
			slog.String("error", chatErr.Error()),
			slog.String("error_code", string(errors.CodeOf(chatErr))),
		)
		telemetry.Metrics().RecordError(ctx, chatErr, "runner")
		return result, nil
	}
	if res == nil {
		logger.ErrorContext(ctx, "runner.session.error",
			slog.String("id", id),
			slog.String("error", "no result"),
		)
		return result, nil
	}

	historyJSON, marshalErr := json.Marshal(res.History)
	if marshalErr != nil {
		historyJSON = []byte("[]")
	}
	moreInfo := res.MoreInfo
	return SessionResult{
		ID:        id,
		Response:  res.Response,
		MoreInfo:  &moreInfo,
		History:   string(historyJSON),
		Exchanges: res.Exchanges,
	}, nil
}
