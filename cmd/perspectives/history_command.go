package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"NewsPerspectives/internal/domain"
	"NewsPerspectives/internal/summary"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var (
		agent string
		limit int
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent stage runs from the run ledger",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			runs, err := ctx.application(cmd.Context()).History(cmd.Context(), agent, limit)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No runs recorded")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderRuns(runs))
			return nil
		},
	}

	cmd.Flags().StringVarP(&agent, "agent", "a", "", "Only show runs of this agent")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of runs")
	return cmd
}

func renderRuns(runs []domain.StageRun) string {
	headers := []string{"Started", "Agent", "Model", "Status", "Items", "Failed", "Tokens"}
	rows := make([][]string, 0, len(runs))
	for _, r := range runs {
		model := r.Model
		if model == "" {
			model = "-"
		}
		rows = append(rows, []string{
			r.StartedAt,
			r.Agent,
			model,
			r.Status,
			strconv.Itoa(r.Items),
			strconv.Itoa(r.Failures),
			strconv.Itoa(r.TotalTokens),
		})
	}
	return summary.RenderText(headers, rows, 4, 5, 6)
}
