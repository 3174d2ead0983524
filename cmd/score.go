package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/ma-discovery/internal/model"
	"github.com/sells-group/ma-discovery/internal/score"
)

var (
	scoreCriteriaPath  string
	scoreInputPath     string
	scoreFormat        string
	scoreOutput        string
	scoreQualifiedOnly bool
)

var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Score enriched companies offline",
	Long: `Scores a JSON file of enriched companies against a criteria profile
without discovering or crawling anything. Useful for re-ranking saved
results after tuning criteria weights.

Examples:
  # Re-rank saved companies with adjusted weights
  ma-discovery score --criteria criteria.yaml --input companies.json

  # Export qualified targets to a spreadsheet
  ma-discovery score --criteria criteria.yaml --input companies.json \
    --qualified-only --format xlsx --output targets.xlsx`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		criteria, err := model.LoadCriteria(scoreCriteriaPath)
		if err != nil {
			return err
		}

		data, err := os.ReadFile(scoreInputPath)
		if err != nil {
			return eris.Wrapf(err, "read %s", scoreInputPath)
		}
		var companies []*model.EnrichedCompany
		if err := json.Unmarshal(data, &companies); err != nil {
			return eris.Wrapf(err, "parse %s", scoreInputPath)
		}

		scorer := score.NewScorer(score.WithWorkers(cfg.Score.Workers))
		ranked, err := scorer.ScoreAndRank(ctx, companies, criteria)
		if err != nil {
			return eris.Wrap(err, "score companies")
		}

		scored := make([]*model.ScoredCompany, 0, len(ranked))
		for i := range ranked {
			if scoreQualifiedOnly && (!ranked[i].PassedFilters || ranked[i].IsDisqualified) {
				continue
			}
			scored = append(scored, &ranked[i])
		}

		zap.L().Info("scoring complete",
			zap.Int("input", len(companies)),
			zap.Int("output", len(scored)),
		)

		return writeResults(scored, scoreFormat, scoreOutput)
	},
}

func init() {
	scoreCmd.Flags().StringVar(&scoreCriteriaPath, "criteria", "", "criteria profile YAML file (required)")
	scoreCmd.Flags().StringVar(&scoreInputPath, "input", "", "JSON file of enriched companies (required)")
	scoreCmd.Flags().StringVar(&scoreFormat, "format", "table", "output format: table, csv, json, or xlsx")
	scoreCmd.Flags().StringVar(&scoreOutput, "output", "", "output file path (default: stdout)")
	scoreCmd.Flags().BoolVar(&scoreQualifiedOnly, "qualified-only", false, "only output companies that pass filters")
	_ = scoreCmd.MarkFlagRequired("criteria")
	_ = scoreCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(scoreCmd)
}
