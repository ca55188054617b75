// SPDX-License-Identifier: Apache-2.0

package telemetry

import (
	"context"
	"io"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel/trace"

	"github.com/YunjiaXi/InfoDeepSeek/pkg/core"
)

// NewLogger builds a logger for a fixed level name. Format is "text",
// "json" or "none"; "none" discards every record.
func NewLogger(output io.Writer, level, format string) *slog.Logger {
	return NewLoggerWithLevel(output, ParseLevel(level), format)
}

// NewLoggerWithLevel is NewLogger with a dynamic level, such as a
// *slog.LevelVar adjusted on config reload.
func NewLoggerWithLevel(output io.Writer, level slog.Leveler, format string) *slog.Logger {
	return slog.New(newSlogHandler(output, level, format))
}

func newSlogHandler(output io.Writer, level slog.Leveler, format string) slog.Handler {
	opts := &slog.HandlerOptions{Level: level}
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "none":
		return slog.DiscardHandler
	case "json":
		return &contextHandler{next: slog.NewJSONHandler(output, opts)}
	default:
		return &contextHandler{next: slog.NewTextHandler(output, opts)}
	}
}

// contextHandler copies the session id and the active span ids from the
// context onto every record, unless the caller already set them.
type contextHandler struct {
	next slog.Handler
}

func (h *contextHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *contextHandler) Handle(ctx context.Context, record slog.Record) error {
	if ctx != nil {
		if id, ok := core.SessionID(ctx); ok && !recordHasAttr(record, "session_id") {
			record.AddAttrs(slog.String("session_id", id))
		}
		if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
			if !recordHasAttr(record, "trace_id") {
				record.AddAttrs(slog.String("trace_id", sc.TraceID().String()))
			}
			if !recordHasAttr(record, "span_id") {
				record.AddAttrs(slog.String("span_id", sc.SpanID().String()))
			}
		}
	}
	return h.next.Handle(ctx, record)
}

func (h *contextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &contextHandler{next: h.next.WithAttrs(attrs)}
}

func (h *contextHandler) WithGroup(name string) slog.Handler {
	return &contextHandler{next: h.next.WithGroup(name)}
}

// ParseLevel maps a config level name to a slog level. Unknown names mean info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func recordHasAttr(record slog.Record, key string) bool {
	found := false
	record.Attrs(func(attr slog.Attr) bool {
		if attr.Key == key {
			found = true
			return false
		}
		return true
	})
	return found
}
