package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/YunjiaXi/InfoDeepSeek/pkg/core"
)

func TestInitNone(t *testing.T) {
	shutdown, err := InitWithConfig(context.Background(), "test-service", "v0.0.1", Config{Exporter: "none"})
	if err != nil {
		t.Fatalf("InitWithConfig failed: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown failed: %v", err)
	}
}

func TestInitRejectsBadConfig(t *testing.T) {
	ctx := context.Background()
	if _, err := InitWithConfig(ctx, "svc", "v", Config{Exporter: "otlp"}); err == nil {
		t.Fatal("expected error for otlp without endpoint")
	}
	if _, err := InitWithConfig(ctx, "svc", "v", Config{Exporter: "zipkin"}); err == nil {
		t.Fatal("expected error for unknown exporter")
	}
}

func TestInitStdoutWritesToConfiguredOutput(t *testing.T) {
	var buf bytes.Buffer
	ctx := context.Background()
	shutdown, err := InitWithConfig(ctx, "infoseek-test", "v1", Config{Exporter: "stdout", Output: &buf})
	if err != nil {
		t.Fatalf("InitWithConfig: %v", err)
	}
	_, span := otel.Tracer("test").Start(ctx, "Agent.Chat")
	span.End()
	if err := shutdown(ctx); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	otel.SetTracerProvider(noop.NewTracerProvider())
	if !strings.Contains(buf.String(), "Agent.Chat") || !strings.Contains(buf.String(), "infoseek-test") {
		t.Fatalf("span not exported to output: %q", buf.String())
	}
}

func TestTraceAwareLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(newSlogHandler(&buf, slog.LevelDebug, "json"))

	tp := sdktrace.NewTracerProvider()
	defer func() { _ = tp.Shutdown(context.Background()) }()
	ctx, span := tp.Tracer("test").Start(context.Background(), "op")
	logger.InfoContext(ctx, "agent.chat.start", slog.String("session_id", "s1"))
	span.End()

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("log line is not JSON: %v (%s)", err, buf.String())
	}
	if rec["msg"] != "agent.chat.start" || rec["session_id"] != "s1" {
		t.Fatalf("unexpected record %v", rec)
	}
	if rec["trace_id"] != span.SpanContext().TraceID().String() {
		t.Fatalf("trace_id not injected: %v", rec)
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug": slog.LevelDebug, "WARN": slog.LevelWarn, "error": slog.LevelError, "": slog.LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestTextFormatByDefault(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(newSlogHandler(&buf, slog.LevelInfo, "text"))
	logger.Debug("hidden")
	logger.Info("shown")
	if strings.Contains(buf.String(), "hidden") || !strings.Contains(buf.String(), "msg=shown") {
		t.Fatalf("unexpected output %q", buf.String())
	}
}

func TestSessionIDFromContext(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, "info", "json")

	ctx := core.WithSessionID(context.Background(), "s-42")
	logger.InfoContext(ctx, "agent.plan.done")
	logger.InfoContext(ctx, "agent.plan.done", slog.String("session_id", "explicit"))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %q", buf.String())
	}
	var first, second map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &first); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if err := json.Unmarshal([]byte(lines[1]), &second); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if first["session_id"] != "s-42" || second["session_id"] != "explicit" {
		t.Fatalf("unexpected session ids %v / %v", first, second)
	}
}

func TestNoneFormatDiscards(t *testing.T) {
	var buf bytes.Buffer
	NewLogger(&buf, "debug", "none").Error("dropped")
	if buf.Len() != 0 {
		t.Fatalf("expected no output, got %q", buf.String())
	}
}
