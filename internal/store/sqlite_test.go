package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/ma-discovery/internal/model"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, s.Migrate(context.Background()))
	t.Cleanup(func() { s.Close() })
	return s
}

func newTestRun() *model.Run {
	return &model.Run{
		ID:     uuid.New().String(),
		Status: model.RunPending,
		Criteria: &model.AcquisitionCriteria{
			IndustriesInclude: []string{"fintech"},
		},
		Query:      "fintech company",
		MaxResults: 25,
		CreatedAt:  time.Now().UTC().Truncate(time.Second),
	}
}

func TestSQLiteRunRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	run := newTestRun()

	require.NoError(t, s.CreateRun(ctx, run))

	got, err := s.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, run.ID, got.ID)
	assert.Equal(t, model.RunPending, got.Status)
	require.NotNil(t, got.Criteria)
	assert.Equal(t, []string{"fintech"}, got.Criteria.IndustriesInclude)
	assert.Equal(t, "fintech company", got.Query)
	assert.Equal(t, 25, got.MaxResults)
	assert.Nil(t, got.StartedAt)
	assert.Nil(t, got.CompletedAt)
}

func TestSQLiteUpdateRun(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	run := newTestRun()
	require.NoError(t, s.CreateRun(ctx, run))

	started := time.Now().UTC().Truncate(time.Second)
	run.Status = model.RunRunning
	run.StartedAt = &started
	require.NoError(t, s.UpdateRun(ctx, run))

	completed := started.Add(time.Minute)
	run.Status = model.RunCompleted
	run.CompletedAt = &completed
	run.TotalFound = 12
	run.TotalScored = 10
	run.TotalQualified = 4
	require.NoError(t, s.UpdateRun(ctx, run))

	got, err := s.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RunCompleted, got.Status)
	require.NotNil(t, got.StartedAt)
	require.NotNil(t, got.CompletedAt)
	assert.Equal(t, 12, got.TotalFound)
	assert.Equal(t, 10, got.TotalScored)
	assert.Equal(t, 4, got.TotalQualified)
}

func TestSQLiteUpdateMissingRun(t *testing.T) {
	s := newTestStore(t)
	run := newTestRun()

	err := s.UpdateRun(context.Background(), run)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "run not found")
}

func TestSQLiteGetMissingRun(t *testing.T) {
	s := newTestStore(t)

	_, err := s.GetRun(context.Background(), "no-such-run")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "run not found")
}

func TestSQLiteListRuns(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		run := newTestRun()
		run.CreatedAt = time.Now().UTC().Add(time.Duration(i) * time.Second)
		if i == 2 {
			run.Status = model.RunCompleted
		}
		require.NoError(t, s.CreateRun(ctx, run))
	}

	all, err := s.ListRuns(ctx, RunFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)
	// Newest first.
	assert.True(t, all[0].CreatedAt.After(all[2].CreatedAt))

	completed, err := s.ListRuns(ctx, RunFilter{Status: model.RunCompleted})
	require.NoError(t, err)
	assert.Len(t, completed, 1)

	limited, err := s.ListRuns(ctx, RunFilter{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestSQLiteResultsRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	run := newTestRun()
	require.NoError(t, s.CreateRun(ctx, run))

	companies := []*model.ScoredCompany{
		{
			EnrichedCompany: model.EnrichedCompany{
				CandidateCompany: model.CandidateCompany{Name: "Ledgerline", Domain: "ledgerline.io"},
			},
			FitScore:      88.5,
			Confidence:    0.8,
			Rank:          1,
			PassedFilters: true,
			MatchSummary:  []string{"Industry: fintech"},
		},
		{
			EnrichedCompany: model.EnrichedCompany{
				CandidateCompany: model.CandidateCompany{Name: "FlowStack", Domain: "flowstack.com"},
			},
			FitScore:   61.0,
			Confidence: 0.6,
			Rank:       2,
		},
	}
	require.NoError(t, s.SaveResults(ctx, run.ID, companies))

	got, err := s.GetResults(ctx, run.ID)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Ledgerline", got[0].Name)
	assert.InDelta(t, 88.5, got[0].FitScore, 0.001)
	assert.Equal(t, []string{"Industry: fintech"}, got[0].MatchSummary)
	assert.Equal(t, "FlowStack", got[1].Name)

	// Saving again replaces, not appends.
	require.NoError(t, s.SaveResults(ctx, run.ID, companies[:1]))
	got, err = s.GetResults(ctx, run.ID)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestSQLiteResultsEmpty(t *testing.T) {
	s := newTestStore(t)

	got, err := s.GetResults(context.Background(), "no-such-run")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSQLitePageCache(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	pages := []model.CachedPage{
		{URL: "https://ledgerline.io", Content: "homepage text"},
		{URL: "https://ledgerline.io/about", Content: "about text"},
	}
	require.NoError(t, s.SetCachedPages(ctx, "https://ledgerline.io", pages, time.Hour))

	got, err := s.GetCachedPages(ctx, "https://ledgerline.io")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "https://ledgerline.io", got.Website)
	require.Len(t, got.Pages, 2)
	assert.Equal(t, "homepage text", got.Pages[0].Content)

	missing, err := s.GetCachedPages(ctx, "https://unknown.io")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestSQLitePageCacheExpiry(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	pages := []model.CachedPage{{URL: "https://old.io", Content: "stale"}}
	require.NoError(t, s.SetCachedPages(ctx, "https://old.io", pages, -time.Hour))

	got, err := s.GetCachedPages(ctx, "https://old.io")
	require.NoError(t, err)
	assert.Nil(t, got)

	n, err := s.DeleteExpiredPages(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
