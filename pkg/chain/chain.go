// Package chain records what happened during one agent session: the ordered
// chain events and every prompt/response pair exchanged with the oracle.
package chain

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/YunjiaXi/InfoDeepSeek/pkg/core"
)

// Message types attached to oracle exchanges.
const (
	TypePlan       = "auto_task_create"
	TypeConclusion = "auto_conclusion"
	TypeAnswer     = "auto_answer"
	commandPrefix  = "auto_command_"
)

// CommandType returns the message type for exchanges made inside a tool.
func CommandType(command string) string {
	return commandPrefix + command
}

// Exchange is one prompt/response pair with its session metadata.
type Exchange struct {
	Prompt    string `json:"prompt"`
	Response  string `json:"response"`
	SessionID string `json:"session_id"`
	Type      string `json:"type"`
	Model     string `json:"llm_name"`
}

// Log is the chain log of a single session.
type Log struct {
	mu        sync.Mutex
	sessionID string
	lang      string
	events    []core.Event
	exchanges []Exchange
	echo      io.Writer
	logger    *slog.Logger
}

// Option configures a Log.
type Option func(*Log)

// WithEcho prints every event to w as it is recorded.
func WithEcho(w io.Writer) Option {
	return func(l *Log) {
		l.echo = w
	}
}

// WithLogger mirrors events to logger at debug level.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Log) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// WithLang selects the language of rendered labels.
func WithLang(lang string) Option {
	return func(l *Log) {
		l.lang = lang
	}
}

// New creates an empty log for sessionID.
func New(sessionID string, opts ...Option) *Log {
	l := &Log{
		sessionID: sessionID,
		lang:      "en",
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// SessionID returns the session the log belongs to.
func (l *Log) SessionID() string {
	return l.sessionID
}

// Lang returns the language of the log.
func (l *Log) Lang() string {
	return l.lang
}

// Put appends an event.
func (l *Log) Put(kind core.EventKind, content string) {
	ev := core.NewEvent(kind, content)
	l.mu.Lock()
	l.events = append(l.events, ev)
	echo := l.echo
	l.mu.Unlock()

	l.logger.LogAttrs(context.Background(), slog.LevelDebug, "chain.event",
		slog.String("session_id", l.sessionID),
		slog.String("kind", string(kind)),
		slog.Int("content_len", len(content)),
	)
	if echo != nil {
		if line := l.render(ev); line != "" {
			fmt.Fprintln(echo, line)
		}
	}
}

// PutExchange records one oracle exchange.
func (l *Log) PutExchange(prompt, response, msgType, model string) {
	l.mu.Lock()
	l.exchanges = append(l.exchanges, Exchange{
		Prompt:    prompt,
		Response:  response,
		SessionID: l.sessionID,
		Type:      msgType,
		Model:     model,
	})
	l.mu.Unlock()
}

// Events returns a copy of the recorded events.
func (l *Log) Events() []core.Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]core.Event, len(l.events))
	copy(out, l.events)
	return out
}

// Exchanges returns a copy of the recorded exchanges.
func (l *Log) Exchanges() []Exchange {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Exchange, len(l.exchanges))
	copy(out, l.exchanges)
	return out
}

// String renders the events as plain text, one block per event.
func (l *Log) String() string {
	var b strings.Builder
	for _, ev := range l.Events() {
		if line := l.render(ev); line != "" {
			b.WriteString(line)
			b.WriteString("\n")
		}
	}
	return b.String()
}

func (l *Log) render(ev core.Event) string {
	switch ev.Kind {
	case core.EventChainEnd:
		return ""
	case core.EventThinking:
		return labelFor(l.lang, ev.Kind)
	default:
		return labelFor(l.lang, ev.Kind) + ev.Content
	}
}
