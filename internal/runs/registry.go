// Package runs manages the lifecycle of discovery runs.
package runs

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/ma-discovery/internal/model"
	"github.com/sells-group/ma-discovery/internal/store"
)

// Totals summarizes a completed run.
type Totals struct {
	Found     int
	Scored    int
	Qualified int
}

// Registry owns run state transitions. A run moves pending -> running and
// terminates in completed or failed; any other transition is rejected.
type Registry struct {
	store store.Store

	// mu serializes transitions so concurrent updates to one run cannot
	// both read the same prior state.
	mu sync.Mutex
}

// NewRegistry creates a Registry backed by st.
func NewRegistry(st store.Store) *Registry {
	return &Registry{store: st}
}

// Create registers a new pending run.
func (r *Registry) Create(ctx context.Context, criteria *model.AcquisitionCriteria, query string, maxResults int) (*model.Run, error) {
	run := &model.Run{
		ID:         uuid.New().String(),
		Status:     model.RunPending,
		Criteria:   criteria,
		Query:      query,
		MaxResults: maxResults,
		CreatedAt:  time.Now().UTC(),
	}
	if err := r.store.CreateRun(ctx, run); err != nil {
		return nil, eris.Wrap(err, "runs: create")
	}

	zap.L().Info("runs: created",
		zap.String("run_id", run.ID),
		zap.Int("max_results", maxResults),
	)
	return run, nil
}

// Start moves a pending run to running.
func (r *Registry) Start(ctx context.Context, runID string) (*model.Run, error) {
	return r.transition(ctx, runID, model.RunRunning, func(run *model.Run) {
		now := time.Now().UTC()
		run.StartedAt = &now
	})
}

// Complete moves a running run to completed and records its totals.
func (r *Registry) Complete(ctx context.Context, runID string, totals Totals) (*model.Run, error) {
	return r.transition(ctx, runID, model.RunCompleted, func(run *model.Run) {
		now := time.Now().UTC()
		run.CompletedAt = &now
		run.TotalFound = totals.Found
		run.TotalScored = totals.Scored
		run.TotalQualified = totals.Qualified
	})
}

// Fail moves a pending or running run to failed, recording the cause.
func (r *Registry) Fail(ctx context.Context, runID string, cause error) (*model.Run, error) {
	return r.transition(ctx, runID, model.RunFailed, func(run *model.Run) {
		now := time.Now().UTC()
		run.CompletedAt = &now
		if cause != nil {
			run.Error = cause.Error()
		}
	})
}

// Get returns a run by ID.
func (r *Registry) Get(ctx context.Context, runID string) (*model.Run, error) {
	return r.store.GetRun(ctx, runID)
}

// List returns runs matching the filter, newest first.
func (r *Registry) List(ctx context.Context, filter store.RunFilter) ([]model.Run, error) {
	return r.store.ListRuns(ctx, filter)
}

// SaveResults stores the scored companies of a run.
func (r *Registry) SaveResults(ctx context.Context, runID string, companies []*model.ScoredCompany) error {
	return r.store.SaveResults(ctx, runID, companies)
}

// Results returns the stored scored companies of a run, by rank.
func (r *Registry) Results(ctx context.Context, runID string) ([]*model.ScoredCompany, error) {
	return r.store.GetResults(ctx, runID)
}

func (r *Registry) transition(ctx context.Context, runID string, to model.RunStatus, apply func(*model.Run)) (*model.Run, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	run, err := r.store.GetRun(ctx, runID)
	if err != nil {
		return nil, eris.Wrapf(err, "runs: load %s", runID)
	}
	if !validTransition(run.Status, to) {
		return nil, eris.Errorf("runs: invalid transition %s -> %s for run %s", run.Status, to, runID)
	}

	run.Status = to
	apply(run)
	if err := r.store.UpdateRun(ctx, run); err != nil {
		return nil, eris.Wrapf(err, "runs: update %s", runID)
	}

	zap.L().Info("runs: transition",
		zap.String("run_id", runID),
		zap.String("status", string(to)),
	)
	return run, nil
}

func validTransition(from, to model.RunStatus) bool {
	switch to {
	case model.RunRunning:
		return from == model.RunPending
	case model.RunCompleted:
		return from == model.RunRunning
	case model.RunFailed:
		return from == model.RunPending || from == model.RunRunning
	default:
		return false
	}
}
