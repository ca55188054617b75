// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/YunjiaXi/InfoDeepSeek/pkg/core"
	"github.com/YunjiaXi/InfoDeepSeek/pkg/errors"
	"github.com/YunjiaXi/InfoDeepSeek/pkg/memory"
	"github.com/YunjiaXi/InfoDeepSeek/pkg/runner"
)

func chatCommand(a *app) *cobra.Command {
	var (
		query   string
		history string
		id      string
		quiet   bool
		convDir string
	)
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Answer one query",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if query == "" {
				return NewInvalidArgumentError("query", "--query is required")
			}
			turns, err := core.ParseHistory(history)
			if err != nil {
				return NewInvalidArgumentError("history", err.Error())
			}
			ctx := cmd.Context()

			var conv *memory.FileConversation
			if convDir != "" {
				if id == "" {
					return NewInvalidArgumentError("id", "--conversation-dir needs --id to name the conversation")
				}
				if conv, err = memory.NewFileConversation(convDir); err != nil {
					return err
				}
				if len(turns) == 0 {
					if turns, err = conv.Turns(ctx, id); err != nil {
						return err
					}
				}
			}

			var echo io.Writer
			if !quiet && !a.json {
				echo = a.errOut
			}
			ag, cat, err := a.newAgent(ctx, echo)
			if err != nil {
				return err
			}
			defer cat.Close()

			if id == "" {
				id = core.NewSessionID()
			}
			a.logger.InfoContext(ctx, "cli.chat.start",
				slog.String("session_id", id),
				slog.String("oracle", describeProvider(a.cfg.LLM)),
			)
			res, err := ag.Chat(core.WithSessionID(ctx, id), query, turns)
			if err != nil {
				if errors.IsFatal(err) {
					return NewFatalError(err)
				}
				return err
			}

			if conv != nil && res.Response != runner.ErrorResponse {
				if err := conv.Append(ctx, id, core.Turn{Query: query, Answer: res.Response}); err != nil {
					a.logger.WarnContext(ctx, "cli.chat.conversation_failed", slog.String("error", err.Error()))
				}
			}

			if a.json {
				return printJSON(a.out, res)
			}
			fmt.Fprintln(a.out, res.Response)
			return nil
		},
	}
	cmd.Flags().StringVarP(&query, "query", "q", "", "the question to answer")
	cmd.Flags().StringVar(&history, "history", "[]", `conversation history as JSON, e.g. [{"query":"..","answer":".."}]`)
	cmd.Flags().StringVar(&id, "id", "", "session id (random when empty)")
	cmd.Flags().StringVar(&convDir, "conversation-dir", "", "keep the turns of --id in this directory and use them as history")
	cmd.Flags().BoolVar(&quiet, "quiet", false, "do not echo the chain log to stderr")
	return cmd
}
