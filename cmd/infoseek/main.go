// SPDX-License-Identifier: Apache-2.0

// Command infoseek runs the information-seeking agent on one query or on a
// batch of queries.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/YunjiaXi/InfoDeepSeek/pkg/config"
	"github.com/YunjiaXi/InfoDeepSeek/pkg/telemetry"
)

var version = "dev"

// app carries what every subcommand shares after flags are parsed.
type app struct {
	configPath string
	profile    string
	sets       []string
	json       bool

	cfg      *config.Config
	level    *slog.LevelVar
	logger   *slog.Logger
	out      io.Writer
	errOut   io.Writer
	shutdown telemetry.ShutdownFunc
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := &app{out: os.Stdout, errOut: os.Stderr}
	root := newRootCommand(a)
	if err := root.ExecuteContext(ctx); err != nil {
		printError(a.errOut, err, a.json)
		os.Exit(1)
	}
}

func newRootCommand(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "infoseek",
		Short:         "Plan, search and browse the web to answer questions",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd.Context())
		},
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			if a.shutdown == nil {
				return nil
			}
			return a.shutdown(context.WithoutCancel(cmd.Context()))
		},
	}
	root.SetOut(a.out)
	root.SetErr(a.errOut)

	flags := root.PersistentFlags()
	flags.StringVarP(&a.configPath, "config", "c", "", "config file (YAML or JSON)")
	flags.StringVar(&a.profile, "profile", "", "config profile overlay, e.g. dev loads config.dev.yaml")
	flags.StringArrayVar(&a.sets, "set", nil, "override a config key, e.g. --set agent.lang=zh (repeatable)")
	flags.BoolVar(&a.json, "json", false, "print machine readable output")

	root.AddCommand(
		chatCommand(a),
		batchCommand(a),
		toolsCommand(a),
		mcpCommand(a),
		versionCommand(a),
	)
	return root
}

// setup loads configuration and installs logging and telemetry.
func (a *app) setup(ctx context.Context) error {
	if a.cfg != nil {
		return nil
	}
	cfg, err := config.LoadWithCLI(a.configArgs())
	if err != nil {
		return NewConfigError(err, a.configPath)
	}
	a.cfg = cfg

	a.level = new(slog.LevelVar)
	a.level.Set(telemetry.ParseLevel(cfg.Log.Level))
	a.logger = telemetry.NewLoggerWithLevel(a.errOut, a.level, cfg.Log.Format)
	slog.SetDefault(a.logger)

	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitWithConfig(ctx, cfg.Telemetry.ServiceName, version, telemetry.Config{
			Exporter:     cfg.Telemetry.Exporter,
			OTLPEndpoint: cfg.Telemetry.OTLPEndpoint,
			OTLPInsecure: cfg.Telemetry.OTLPInsecure,
			Output:       a.errOut,
		})
		if err != nil {
			return NewConfigError(err, a.configPath)
		}
		a.shutdown = shutdown
	}
	a.logger.DebugContext(ctx, "cli.config.loaded",
		slog.String("provider", cfg.LLM.Provider),
		slog.String("model", cfg.LLM.Model),
		slog.String("search", cfg.Search.Type),
	)
	return nil
}

func (a *app) configArgs() []string {
	var args []string
	if a.configPath != "" {
		args = append(args, "--config", a.configPath)
	}
	if a.profile != "" {
		args = append(args, "--profile", a.profile)
	}
	for _, s := range a.sets {
		args = append(args, "--set", s)
	}
	return args
}

func versionCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if a.json {
				return printJSON(a.out, map[string]string{"version": version})
			}
			fmt.Fprintf(a.out, "infoseek %s\n", version)
			return nil
		},
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newTabWriter(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

func writeRow(w io.Writer, cols ...string) {
	for i, col := range cols {
		if i > 0 {
			fmt.Fprint(w, "\t")
		}
		fmt.Fprint(w, col)
	}
	fmt.Fprintln(w)
}
