// Package store persists discovery runs, scored results, and the crawl
// page cache.
package store

import (
	"context"
	"time"

	"github.com/sells-group/ma-discovery/internal/model"
)

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Status model.RunStatus `json:"status,omitempty"`
	Limit  int             `json:"limit,omitempty"`
	Offset int             `json:"offset,omitempty"`
}

// Store defines the persistence interface for the discovery pipeline.
type Store interface {
	// Runs
	CreateRun(ctx context.Context, run *model.Run) error
	UpdateRun(ctx context.Context, run *model.Run) error
	GetRun(ctx context.Context, runID string) (*model.Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error)

	// Results
	SaveResults(ctx context.Context, runID string, companies []*model.ScoredCompany) error
	GetResults(ctx context.Context, runID string) ([]*model.ScoredCompany, error)

	// Page cache
	GetCachedPages(ctx context.Context, website string) (*model.PageCache, error)
	SetCachedPages(ctx context.Context, website string, pages []model.CachedPage, ttl time.Duration) error
	DeleteExpiredPages(ctx context.Context) (int, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
