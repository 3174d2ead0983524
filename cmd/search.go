package main

import (
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/ma-discovery/internal/model"
)

var (
	searchCriteriaPath string
	searchLimit        int
	searchFormat       string
	searchOutput       string
)

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Run a full discovery pipeline",
	Long: `Discovers candidate companies matching a criteria profile, enriches
them from their websites, scores them, and prints the ranked results.

Examples:
  # Discover and rank fintech targets
  ma-discovery search --criteria criteria.yaml

  # Cap candidates and export to a spreadsheet
  ma-discovery search --criteria criteria.yaml --limit 100 --format xlsx --output targets.xlsx`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		criteria, err := model.LoadCriteria(searchCriteriaPath)
		if err != nil {
			return err
		}

		env, err := initPipeline(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		limit := searchLimit
		if limit == 0 {
			limit = cfg.Search.DefaultLimit
		}

		run, scored, err := env.Pipeline.Run(ctx, criteria, limit)
		if err != nil {
			return eris.Wrap(err, "discovery run")
		}

		zap.L().Info("discovery complete",
			zap.String("run_id", run.ID),
			zap.Int("found", run.TotalFound),
			zap.Int("scored", run.TotalScored),
			zap.Int("qualified", run.TotalQualified),
		)

		return writeResults(scored, searchFormat, searchOutput)
	},
}

func init() {
	searchCmd.Flags().StringVar(&searchCriteriaPath, "criteria", "", "criteria profile YAML file (required)")
	searchCmd.Flags().IntVar(&searchLimit, "limit", 0, "max candidates to discover (default from config)")
	searchCmd.Flags().StringVar(&searchFormat, "format", "table", "output format: table, csv, json, or xlsx")
	searchCmd.Flags().StringVar(&searchOutput, "output", "", "output file path (default: stdout)")
	_ = searchCmd.MarkFlagRequired("criteria")
	rootCmd.AddCommand(searchCmd)
}
