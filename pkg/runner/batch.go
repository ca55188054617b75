// SPDX-License-Identifier: Apache-2.0

package runner

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/YunjiaXi/InfoDeepSeek/pkg/core"
	"github.com/YunjiaXi/InfoDeepSeek/pkg/errors"
	"github.com/YunjiaXi/InfoDeepSeek/pkg/store"
)

const (
	// DefaultWorkers is the number of concurrent sessions.
	DefaultWorkers = 3
	// DefaultMaxRounds bounds how often unfinished records are retried.
	DefaultMaxRounds = 3
)

// refreshedFields are copied from the input onto kept records on overwrite.
var refreshedFields = []string{"answer_zh", "answer_en", "query_en", "query_zh"}

// Config controls a batch run.
type Config struct {
	Lang      string
	Workers   int
	MaxRounds int
	Overwrite bool
}

// Summary reports what a batch run did.
type Summary struct {
	Total    int
	Finished int
	Pending  int
	Rounds   int
	Failed   int
	Duration time.Duration
}

// Option configures a Runner.
type Option func(*Runner)

// WithConfig replaces the batch settings.
func WithConfig(cfg Config) Option {
	return func(r *Runner) { r.cfg = cfg }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithProgress registers a callback invoked after every session.
func WithProgress(fn func(done, total int)) Option {
	return func(r *Runner) { r.progress = fn }
}

// Runner drives many sessions against one store.
type Runner struct {
	chatter  Chatter
	store    store.Store
	cfg      Config
	logger   *slog.Logger
	progress func(done, total int)
}

// New creates a Runner. The chatter must be safe for concurrent Chat calls.
func New(chatter Chatter, st store.Store, opts ...Option) *Runner {
	r := &Runner{
		chatter: chatter,
		store:   st,
		cfg:     Config{Lang: "en", Workers: DefaultWorkers, MaxRounds: DefaultMaxRounds},
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.cfg.Lang == "" {
		r.cfg.Lang = "en"
	}
	if r.cfg.Workers < 1 {
		r.cfg.Workers = DefaultWorkers
	}
	if r.cfg.MaxRounds < 1 {
		r.cfg.MaxRounds = DefaultMaxRounds
	}
	return r
}

// Run processes every record not yet present in the store. A fatal session
// error stops the run and is returned; all other failures are retried in
// the next round.
func (r *Runner) Run(ctx context.Context, records []store.Record) (Summary, error) {
	start := time.Now()
	summary := Summary{Total: len(records)}
	key := store.QueryKey(r.cfg.Lang)

	existing, err := r.store.Load(ctx)
	if err != nil {
		return summary, err
	}
	if r.cfg.Overwrite && len(existing) > 0 {
		existing = refresh(existing, records, key)
		r.logger.InfoContext(ctx, "runner.overwrite",
			slog.Int("kept", len(existing)),
		)
		if err := r.store.Rewrite(ctx, existing); err != nil {
			return summary, err
		}
	}

	pending := unfinished(records, existing, key)
	r.logger.InfoContext(ctx, "runner.start",
		slog.Int("total", len(records)),
		slog.Int("finished", len(records)-len(pending)),
		slog.Int("pending", len(pending)),
		slog.Int("workers", r.cfg.Workers),
	)

	for len(pending) > 0 && summary.Rounds < r.cfg.MaxRounds {
		summary.Rounds++
		failed, err := r.round(ctx, pending, key)
		summary.Failed += failed
		if err != nil {
			summary.Pending = len(pending)
			summary.Duration = time.Since(start)
			return summary, err
		}
		existing, err = r.store.Load(ctx)
		if err != nil {
			return summary, err
		}
		pending = unfinished(pending, existing, key)
	}

	summary.Pending = len(pending)
	summary.Finished = len(records) - len(pending)
	summary.Duration = time.Since(start)
	r.logger.InfoContext(ctx, "runner.done",
		slog.Int("rounds", summary.Rounds),
		slog.Int("finished", summary.Finished),
		slog.Int("pending", summary.Pending),
		slog.Duration("duration", summary.Duration),
	)
	return summary, nil
}

// round runs one pass over pending and returns how many sessions failed.
func (r *Runner) round(ctx context.Context, pending []store.Record, key string) (int, error) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.Workers)

	results := make(chan bool, len(pending))
	done := 0
	for _, rec := range pending {
		rec := rec
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			ok, err := r.process(gctx, rec, key)
			if err != nil {
				return err
			}
			results <- ok
			return nil
		})
	}

	var err error
	go func() {
		err = g.Wait()
		close(results)
	}()

	failed := 0
	for ok := range results {
		done++
		if !ok {
			failed++
		}
		if r.progress != nil {
			r.progress(done, len(pending))
		}
	}
	return failed, err
}

// process runs one record and appends it when the result is persistable.
func (r *Runner) process(ctx context.Context, rec store.Record, key string) (bool, error) {
	query := rec.Key(key)
	if query == "" {
		query = rec.Key("query")
	}
	history, err := recordHistory(rec)
	if err != nil {
		r.logger.WarnContext(ctx, "runner.history.invalid",
			slog.String("id", rec.ID()),
			slog.String("error", err.Error()),
		)
		history = nil
	}

	res, err := Session(ctx, r.chatter, rec.ID(), query, history, r.logger)
	if err != nil {
		if errors.IsFatal(err) {
			r.logger.ErrorContext(ctx, "runner.fatal",
				slog.String("id", rec.ID()),
				slog.String("error", err.Error()),
			)
		}
		return false, err
	}
	if !res.Persistable() {
		return false, nil
	}

	out := rec.Clone()
	out["result"] = res
	if err := r.store.Append(ctx, out); err != nil {
		r.logger.ErrorContext(ctx, "runner.store.error",
			slog.String("id", rec.ID()),
			slog.String("error", err.Error()),
		)
		return false, nil
	}
	return true, nil
}

// unfinished returns the records whose query is not yet in existing.
func unfinished(records, existing []store.Record, key string) []store.Record {
	seen := make(map[string]bool, len(existing))
	for _, rec := range existing {
		seen[rec.Key(key)] = true
	}
	out := make([]store.Record, 0, len(records))
	for _, rec := range records {
		if !seen[rec.Key(key)] {
			out = append(out, rec)
		}
	}
	return out
}

// refresh keeps the existing records whose query is still in the input and
// copies the input's query and answer fields onto them.
func refresh(existing, records []store.Record, key string) []store.Record {
	current := make(map[string]store.Record, len(records))
	for _, rec := range records {
		current[rec.Key(key)] = rec
	}
	seen := make(map[string]bool, len(existing))
	out := make([]store.Record, 0, len(existing))
	for _, rec := range existing {
		q := rec.Key(key)
		input, ok := current[q]
		if !ok || seen[q] {
			continue
		}
		seen[q] = true
		kept := rec.Clone()
		for _, field := range refreshedFields {
			if v, ok := input[field]; ok {
				kept[field] = v
			}
		}
		out = append(out, kept)
	}
	return out
}

// recordHistory reads an optional "history" field given as a JSON string or
// as an array of turns.
func recordHistory(rec store.Record) ([]core.Turn, error) {
	switch v := rec["history"].(type) {
	case nil:
		return nil, nil
	case string:
		return core.ParseHistory(v)
	default:
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		return core.ParseHistory(string(raw))
	}
}
