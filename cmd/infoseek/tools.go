// SPDX-License-Identifier: Apache-2.0

package main

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/YunjiaXi/InfoDeepSeek/pkg/tools"
)

type toolRow struct {
	Name        string   `json:"name"`
	LocalName   string   `json:"local_name,omitempty"`
	Description string   `json:"description"`
	Params      []string `json:"params,omitempty"`
	Active      bool     `json:"active"`
}

func toolsCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "tools",
		Short: "List the tool catalogue and which tools the allow-list activates",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ag, cat, err := a.newAgent(cmd.Context(), nil)
			if err != nil {
				return err
			}
			defer cat.Close()

			rows := catalogueRows(cat.tools, ag.Registry())
			if a.json {
				return printJSON(a.out, rows)
			}
			w := newTabWriter(a.out)
			writeRow(w, "TOOL", "ACTIVE", "PARAMS", "DESCRIPTION")
			for _, row := range rows {
				active := "no"
				if row.Active {
					active = "yes"
				}
				writeRow(w, row.Name, active, strings.Join(row.Params, ","), row.Description)
			}
			return w.Flush()
		},
	}
}

func catalogueRows(catalogue []tools.Tool, registry *tools.Registry) []toolRow {
	rows := make([]toolRow, 0, len(catalogue))
	for _, t := range catalogue {
		spec := t.Spec()
		params := make([]string, 0, len(spec.Params))
		for _, p := range spec.Params {
			name := p.Name
			if p.Required {
				name += "*"
			}
			params = append(params, name)
		}
		rows = append(rows, toolRow{
			Name:        spec.Name,
			LocalName:   spec.LocalName,
			Description: strings.TrimSpace(spec.Description),
			Params:      params,
			Active:      registry != nil && registry.Has(spec.Name),
		})
	}
	return rows
}
