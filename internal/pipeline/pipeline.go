// Package pipeline orchestrates a discovery run: search, dedupe, enrich,
// score, persist.
package pipeline

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/ma-discovery/internal/connector"
	"github.com/sells-group/ma-discovery/internal/enrich"
	"github.com/sells-group/ma-discovery/internal/model"
	"github.com/sells-group/ma-discovery/internal/runs"
	"github.com/sells-group/ma-discovery/internal/score"
)

// Pipeline wires the discovery phases together and drives run state
// through the registry.
type Pipeline struct {
	registry  *runs.Registry
	connector connector.Connector
	dedupe    *enrich.Deduplicator
	enricher  *enrich.Enricher
	scorer    *score.Scorer
}

// New creates a Pipeline with all dependencies.
func New(
	registry *runs.Registry,
	conn connector.Connector,
	enricher *enrich.Enricher,
	scorer *score.Scorer,
) *Pipeline {
	return &Pipeline{
		registry:  registry,
		connector: conn,
		dedupe:    enrich.NewDeduplicator(),
		enricher:  enricher,
		scorer:    scorer,
	}
}

// Start registers a pending run for the criteria without executing it.
func (p *Pipeline) Start(ctx context.Context, criteria *model.AcquisitionCriteria, limit int) (*model.Run, error) {
	return p.registry.Create(ctx, criteria, querySummary(criteria), limit)
}

// Run creates and executes a discovery run, returning the run record and
// ranked results.
func (p *Pipeline) Run(ctx context.Context, criteria *model.AcquisitionCriteria, limit int) (*model.Run, []*model.ScoredCompany, error) {
	run, err := p.Start(ctx, criteria, limit)
	if err != nil {
		return nil, nil, err
	}
	scored, err := p.Execute(ctx, run)
	if err != nil {
		return run, nil, err
	}
	run, err = p.registry.Get(ctx, run.ID)
	if err != nil {
		return nil, nil, eris.Wrap(err, "pipeline: reload run")
	}
	return run, scored, nil
}

// Execute drives a pending run to a terminal state. The run fails on the
// first phase error; individual candidate problems degrade inside the
// phases instead of failing the run.
func (p *Pipeline) Execute(ctx context.Context, run *model.Run) ([]*model.ScoredCompany, error) {
	log := zap.L().With(zap.String("run_id", run.ID))

	if _, err := p.registry.Start(ctx, run.ID); err != nil {
		return nil, eris.Wrap(err, "pipeline: start run")
	}

	scored, totals, err := p.execute(ctx, run, log)
	if err != nil {
		if _, failErr := p.registry.Fail(ctx, run.ID, err); failErr != nil {
			log.Warn("pipeline: record failure", zap.Error(failErr))
		}
		return nil, err
	}

	if _, err := p.registry.Complete(ctx, run.ID, totals); err != nil {
		return nil, eris.Wrap(err, "pipeline: complete run")
	}
	return scored, nil
}

func (p *Pipeline) execute(ctx context.Context, run *model.Run, log *zap.Logger) ([]*model.ScoredCompany, runs.Totals, error) {
	log.Info("pipeline: searching",
		zap.String("connector", p.connector.Name()),
		zap.Int("limit", run.MaxResults),
	)
	candidates, err := p.connector.Search(ctx, run.Criteria, run.MaxResults)
	if err != nil {
		return nil, runs.Totals{}, eris.Wrap(err, "pipeline: search")
	}
	found := len(candidates)

	candidates = p.dedupe.Deduplicate(candidates)
	log.Info("pipeline: discovered candidates",
		zap.Int("found", found),
		zap.Int("unique", len(candidates)),
	)

	enriched, err := p.enricher.EnrichAll(ctx, candidates, run.Criteria)
	if err != nil {
		return nil, runs.Totals{}, eris.Wrap(err, "pipeline: enrich")
	}

	ranked, err := p.scorer.ScoreAndRank(ctx, enriched, run.Criteria)
	if err != nil {
		return nil, runs.Totals{}, eris.Wrap(err, "pipeline: score")
	}
	scored := make([]*model.ScoredCompany, len(ranked))
	for i := range ranked {
		scored[i] = &ranked[i]
	}

	if err := p.registry.SaveResults(ctx, run.ID, scored); err != nil {
		return nil, runs.Totals{}, eris.Wrap(err, "pipeline: save results")
	}

	totals := runs.Totals{
		Found:     found,
		Scored:    len(scored),
		Qualified: countQualified(scored),
	}
	log.Info("pipeline: run complete",
		zap.Int("found", totals.Found),
		zap.Int("scored", totals.Scored),
		zap.Int("qualified", totals.Qualified),
	)
	return scored, totals, nil
}

func countQualified(scored []*model.ScoredCompany) int {
	var n int
	for _, company := range scored {
		if company.PassedFilters && !company.IsDisqualified {
			n++
		}
	}
	return n
}

// querySummary renders a short human-readable description of the criteria
// for the run record.
func querySummary(criteria *model.AcquisitionCriteria) string {
	if criteria == nil {
		return ""
	}
	var parts []string
	if len(criteria.IndustriesInclude) > 0 {
		parts = append(parts, strings.Join(criteria.IndustriesInclude, ", "))
	}
	if len(criteria.BusinessModel.Types) > 0 {
		parts = append(parts, strings.Join(criteria.BusinessModel.Types, ", "))
	}
	if len(criteria.Geography.Countries) > 0 {
		parts = append(parts, strings.Join(criteria.Geography.Countries, ", "))
	}
	return strings.Join(parts, " | ")
}
