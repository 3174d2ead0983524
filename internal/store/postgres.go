package store

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/ma-discovery/internal/model"
)

// Pool is the subset of pgxpool.Pool the store uses. pgxmock satisfies
// it for unit tests.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool Pool
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	pgxCfg.MaxConns = 10
	pgxCfg.MinConns = 2
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id              TEXT PRIMARY KEY,
	status          TEXT NOT NULL DEFAULT 'pending',
	criteria        JSONB,
	query           TEXT NOT NULL DEFAULT '',
	max_results     INTEGER NOT NULL DEFAULT 0,
	error           TEXT NOT NULL DEFAULT '',
	created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
	started_at      TIMESTAMPTZ,
	completed_at    TIMESTAMPTZ,
	total_found     INTEGER NOT NULL DEFAULT 0,
	total_scored    INTEGER NOT NULL DEFAULT 0,
	total_qualified INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS run_results (
	run_id  TEXT NOT NULL REFERENCES runs(id),
	rank    INTEGER NOT NULL,
	company JSONB NOT NULL,
	PRIMARY KEY (run_id, rank)
);

CREATE TABLE IF NOT EXISTS page_cache (
	id         TEXT PRIMARY KEY,
	website    TEXT NOT NULL,
	pages      JSONB NOT NULL,
	crawled_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	expires_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
CREATE INDEX IF NOT EXISTS idx_run_results_run_id ON run_results(run_id);
CREATE INDEX IF NOT EXISTS idx_page_cache_website ON page_cache(website);
CREATE INDEX IF NOT EXISTS idx_page_cache_expires_at ON page_cache(expires_at);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) CreateRun(ctx context.Context, run *model.Run) error {
	criteriaJSON, err := marshalCriteria(run.Criteria)
	if err != nil {
		return err
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO runs (id, status, criteria, query, max_results, error, created_at, started_at, completed_at, total_found, total_scored, total_qualified)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		run.ID, string(run.Status), criteriaJSON, run.Query, run.MaxResults, run.Error,
		run.CreatedAt, run.StartedAt, run.CompletedAt,
		run.TotalFound, run.TotalScored, run.TotalQualified,
	)
	return eris.Wrapf(err, "postgres: insert run %s", run.ID)
}

func (s *PostgresStore) UpdateRun(ctx context.Context, run *model.Run) error {
	criteriaJSON, err := marshalCriteria(run.Criteria)
	if err != nil {
		return err
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE runs SET status = $1, criteria = $2, query = $3, max_results = $4, error = $5,
		 started_at = $6, completed_at = $7, total_found = $8, total_scored = $9, total_qualified = $10
		 WHERE id = $11`,
		string(run.Status), criteriaJSON, run.Query, run.MaxResults, run.Error,
		run.StartedAt, run.CompletedAt,
		run.TotalFound, run.TotalScored, run.TotalQualified,
		run.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update run %s", run.ID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("run not found: %s", run.ID)
	}
	return nil
}

func (s *PostgresStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, status, criteria, query, max_results, error, created_at, started_at, completed_at,
		 total_found, total_scored, total_qualified
		 FROM runs WHERE id = $1`,
		runID,
	)
	run, err := scanPostgresRun(row)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get run %s", runID)
	}
	return run, nil
}

func (s *PostgresStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error) {
	query := `SELECT id, status, criteria, query, max_results, error, created_at, started_at, completed_at,
	 total_found, total_scored, total_qualified
	 FROM runs`
	var args []any

	if filter.Status != "" {
		query += ` WHERE status = $1`
		args = append(args, string(filter.Status))
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	args = append(args, limit)
	query += ` LIMIT $` + strconv.Itoa(len(args))

	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += ` OFFSET $` + strconv.Itoa(len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var runs []model.Run
	for rows.Next() {
		r, err := scanPostgresRun(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: list runs scan")
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: list runs iterate")
}

func (s *PostgresStore) SaveResults(ctx context.Context, runID string, companies []*model.ScoredCompany) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM run_results WHERE run_id = $1`, runID); err != nil {
		return eris.Wrapf(err, "postgres: clear results for run %s", runID)
	}

	for _, company := range companies {
		companyJSON, err := json.Marshal(company)
		if err != nil {
			return eris.Wrap(err, "postgres: marshal scored company")
		}
		if _, err := s.pool.Exec(ctx,
			`INSERT INTO run_results (run_id, rank, company) VALUES ($1, $2, $3)`,
			runID, company.Rank, companyJSON,
		); err != nil {
			return eris.Wrapf(err, "postgres: insert result for run %s", runID)
		}
	}
	return nil
}

func (s *PostgresStore) GetResults(ctx context.Context, runID string) ([]*model.ScoredCompany, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT company FROM run_results WHERE run_id = $1 ORDER BY rank`,
		runID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get results for run %s", runID)
	}
	defer rows.Close()

	var companies []*model.ScoredCompany
	for rows.Next() {
		var companyJSON []byte
		if err := rows.Scan(&companyJSON); err != nil {
			return nil, eris.Wrap(err, "postgres: scan result")
		}
		var company model.ScoredCompany
		if err := json.Unmarshal(companyJSON, &company); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal scored company")
		}
		companies = append(companies, &company)
	}
	return companies, eris.Wrap(rows.Err(), "postgres: get results iterate")
}

func (s *PostgresStore) GetCachedPages(ctx context.Context, website string) (*model.PageCache, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, website, pages, crawled_at, expires_at FROM page_cache
		 WHERE website = $1 AND expires_at > now()
		 ORDER BY crawled_at DESC LIMIT 1`,
		website,
	)

	var pc model.PageCache
	var pagesJSON []byte
	err := row.Scan(&pc.ID, &pc.Website, &pagesJSON, &pc.CrawledAt, &pc.ExpiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: get cached pages")
	}
	if err := json.Unmarshal(pagesJSON, &pc.Pages); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal cached pages")
	}
	return &pc, nil
}

func (s *PostgresStore) SetCachedPages(ctx context.Context, website string, pages []model.CachedPage, ttl time.Duration) error {
	pagesJSON, err := json.Marshal(pages)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal pages")
	}

	now := time.Now().UTC()
	_, err = s.pool.Exec(ctx,
		`INSERT INTO page_cache (id, website, pages, crawled_at, expires_at) VALUES ($1, $2, $3, $4, $5)`,
		uuid.New().String(), website, pagesJSON, now, now.Add(ttl),
	)
	return eris.Wrap(err, "postgres: set cached pages")
}

func (s *PostgresStore) DeleteExpiredPages(ctx context.Context) (int, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM page_cache WHERE expires_at <= now()`)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: delete expired pages")
	}
	return int(tag.RowsAffected()), nil
}

func scanPostgresRun(row scannable) (*model.Run, error) {
	var r model.Run
	var criteriaJSON []byte

	err := row.Scan(&r.ID, &r.Status, &criteriaJSON, &r.Query, &r.MaxResults, &r.Error,
		&r.CreatedAt, &r.StartedAt, &r.CompletedAt,
		&r.TotalFound, &r.TotalScored, &r.TotalQualified)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.New("run not found")
	}
	if err != nil {
		return nil, err
	}

	if len(criteriaJSON) > 0 {
		r.Criteria = &model.AcquisitionCriteria{}
		if err := json.Unmarshal(criteriaJSON, r.Criteria); err != nil {
			return nil, eris.Wrap(err, "unmarshal criteria")
		}
	}
	return &r, nil
}

