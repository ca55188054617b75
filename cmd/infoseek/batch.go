// SPDX-License-Identifier: Apache-2.0

package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/YunjiaXi/InfoDeepSeek/pkg/config"
	"github.com/YunjiaXi/InfoDeepSeek/pkg/errors"
	"github.com/YunjiaXi/InfoDeepSeek/pkg/runner"
	"github.com/YunjiaXi/InfoDeepSeek/pkg/store"
	"github.com/YunjiaXi/InfoDeepSeek/pkg/telemetry"
)

func batchCommand(a *app) *cobra.Command {
	var (
		queryPath string
		output    string
		overwrite bool
		workers   int
		rounds    int
		watch     bool
	)
	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Answer every query of a JSON file, resuming previous runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if queryPath == "" {
				return NewInvalidArgumentError("query-path", "--query-path is required")
			}
			records, err := loadQueries(queryPath)
			if err != nil {
				return NewInvalidArgumentError("query-path", err.Error())
			}
			if output == "" {
				output = orDefault(a.cfg.Batch.Output, defaultOutputPath(queryPath, a.cfg))
			}
			if workers <= 0 {
				workers = a.cfg.Batch.Workers
			}
			if rounds <= 0 {
				rounds = a.cfg.Batch.MaxRounds
			}

			ctx := cmd.Context()
			if watch && a.configPath != "" {
				watcher, err := config.NewWatcher(a.configPath, a.profile, config.WithWatchLogger(a.logger))
				if err != nil {
					return NewConfigError(err, a.configPath)
				}
				watcher.OnChange(func(cfg *config.Config) {
					a.level.Set(telemetry.ParseLevel(cfg.Log.Level))
				})
				watcher.Start(ctx)
				defer watcher.Stop()
			}

			var echo = a.errOut
			if !a.cfg.Agent.PrintConsole {
				echo = nil
			}
			ag, cat, err := a.newAgent(ctx, echo)
			if err != nil {
				return err
			}
			defer cat.Close()

			st, err := store.Open(output)
			if err != nil {
				return err
			}
			defer st.Close()

			a.logger.InfoContext(ctx, "cli.batch.start",
				slog.String("input", queryPath),
				slog.String("output", output),
				slog.String("oracle", describeProvider(a.cfg.LLM)),
			)
			r := runner.New(ag, st,
				runner.WithConfig(runner.Config{
					Lang:      a.cfg.Agent.Lang,
					Workers:   workers,
					MaxRounds: rounds,
					Overwrite: overwrite,
				}),
				runner.WithLogger(a.logger),
				runner.WithProgress(func(done, total int) {
					if !a.json {
						fmt.Fprintf(a.errOut, "\rProcessing %d/%d", done, total)
						if done == total {
							fmt.Fprintln(a.errOut)
						}
					}
				}),
			)
			summary, err := r.Run(ctx, records)
			if err != nil {
				if errors.IsFatal(err) {
					return NewFatalError(err)
				}
				return err
			}

			if a.json {
				return printJSON(a.out, map[string]any{
					"output":   output,
					"total":    summary.Total,
					"finished": summary.Finished,
					"pending":  summary.Pending,
					"rounds":   summary.Rounds,
				})
			}
			fmt.Fprintf(a.out, "Results saved in %s (%d/%d finished, %d rounds)\n", output, summary.Finished, summary.Total, summary.Rounds)
			return nil
		},
	}
	cmd.Flags().StringVar(&queryPath, "query-path", "", "JSON array of query records")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (.jsonl, or .db for SQLite)")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "drop results whose query left the input and refresh the rest")
	cmd.Flags().IntVar(&workers, "workers", 0, "concurrent sessions (default from batch.workers)")
	cmd.Flags().IntVar(&rounds, "max-rounds", 0, "passes over unfinished records (default from batch.max_rounds)")
	cmd.Flags().BoolVar(&watch, "watch-config", false, "apply log level changes from the config file while running")
	return cmd
}

func loadQueries(path string) ([]store.Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var records []store.Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return records, nil
}

// defaultOutputPath names the result file after the run settings so runs
// with different settings never resume each other.
func defaultOutputPath(queryPath string, cfg *config.Config) string {
	name := strings.TrimSuffix(filepath.Base(queryPath), filepath.Ext(queryPath))
	if i := strings.Index(name, "."); i >= 0 {
		name = name[:i]
	}
	langAware := ""
	if cfg.Agent.LangAware {
		langAware = "_lang_aware"
	}
	model := strings.ReplaceAll(cfg.LLM.Model, string(filepath.Separator), "_")
	file := fmt.Sprintf("%s_result_%s_%s_%d_%d_wotool_%t_%s%s.jsonl",
		name, cfg.Agent.Lang, model, cfg.Agent.MaxIterNum, cfg.Agent.MaxWebpages,
		cfg.Agent.WithoutTool, cfg.Search.Type, langAware)
	return filepath.Join(filepath.Dir(queryPath), file)
}
