package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

func newFetchCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "fetch",
		Short: "Fetch today's items from every configured source",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := ctx.application(cmd.Context()).Fetch(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Fetched %d items\n", doc.Data.Count)
			return nil
		},
	}
}

func newAnalyzeCommand(ctx *commandContext) *cobra.Command {
	var (
		model string
		all   bool
	)

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Analyze fetched items with one model or all of them",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			switch {
			case all && model != "":
				return errors.New("--model and --all are mutually exclusive")
			case !all && model == "":
				return errors.New("either --model or --all is required")
			}

			application := ctx.application(cmd.Context())
			if all {
				return application.AnalyzeAll(cmd.Context())
			}
			doc, err := application.Analyze(cmd.Context(), model)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s analyzed %d items (%d failed)\n",
				doc.Model, doc.Metadata.ArticlesAnalyzed, doc.Metadata.Failed)
			return nil
		},
	}

	cmd.Flags().StringVarP(&model, "model", "m", "", "Model display name or agent id")
	cmd.Flags().BoolVar(&all, "all", false, "Run every configured model in order")
	return cmd
}

func newSynthesizeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "synthesize",
		Short: "Merge per-model analyses into the perspectives artifact",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := ctx.application(cmd.Context()).Synthesize(cmd.Context())
			if err != nil {
				return err
			}
			c := doc.Data.Consensus
			fmt.Fprintf(cmd.OutOrStdout(), "Synthesized %d articles from %d of %d models (dominant %s, %.1f%% agreement)\n",
				doc.Data.Count, len(doc.Data.ModelsReported), len(doc.Data.Models), c.DominantSentiment, c.AgreementPercentage)
			return nil
		},
	}
}

func newRepairCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "repair [paths...]",
		Short: "Re-extract analyses stored in the fallback shape",
		Long:  "Repair rewrites per-model artifacts in place. Without paths every configured model artifact is checked.",
		RunE: func(cmd *cobra.Command, args []string) error {
			reports, err := ctx.application(cmd.Context()).Repair(cmd.Context(), args)
			total := 0
			for _, r := range reports {
				total += r.Fixed
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Fixed %d analyses across %d artifacts\n", total, len(reports))
			return err
		},
	}
}
