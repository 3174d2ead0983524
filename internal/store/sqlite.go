package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/ma-discovery/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id              TEXT PRIMARY KEY,
	status          TEXT NOT NULL DEFAULT 'pending',
	criteria        TEXT,
	query           TEXT NOT NULL DEFAULT '',
	max_results     INTEGER NOT NULL DEFAULT 0,
	error           TEXT NOT NULL DEFAULT '',
	created_at      DATETIME NOT NULL DEFAULT (datetime('now')),
	started_at      DATETIME,
	completed_at    DATETIME,
	total_found     INTEGER NOT NULL DEFAULT 0,
	total_scored    INTEGER NOT NULL DEFAULT 0,
	total_qualified INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS run_results (
	run_id  TEXT NOT NULL REFERENCES runs(id),
	rank    INTEGER NOT NULL,
	company TEXT NOT NULL,
	PRIMARY KEY (run_id, rank)
);

CREATE TABLE IF NOT EXISTS page_cache (
	id         TEXT PRIMARY KEY,
	website    TEXT NOT NULL,
	pages      TEXT NOT NULL,
	crawled_at DATETIME NOT NULL DEFAULT (datetime('now')),
	expires_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
CREATE INDEX IF NOT EXISTS idx_run_results_run_id ON run_results(run_id);
CREATE INDEX IF NOT EXISTS idx_page_cache_website ON page_cache(website);
CREATE INDEX IF NOT EXISTS idx_page_cache_expires_at ON page_cache(expires_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateRun(ctx context.Context, run *model.Run) error {
	criteriaJSON, err := marshalCriteria(run.Criteria)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO runs (id, status, criteria, query, max_results, error, created_at, started_at, completed_at, total_found, total_scored, total_qualified)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, string(run.Status), criteriaJSON, run.Query, run.MaxResults, run.Error,
		run.CreatedAt, run.StartedAt, run.CompletedAt,
		run.TotalFound, run.TotalScored, run.TotalQualified,
	)
	return eris.Wrapf(err, "sqlite: insert run %s", run.ID)
}

func (s *SQLiteStore) UpdateRun(ctx context.Context, run *model.Run) error {
	criteriaJSON, err := marshalCriteria(run.Criteria)
	if err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, criteria = ?, query = ?, max_results = ?, error = ?,
		 started_at = ?, completed_at = ?, total_found = ?, total_scored = ?, total_qualified = ?
		 WHERE id = ?`,
		string(run.Status), criteriaJSON, run.Query, run.MaxResults, run.Error,
		run.StartedAt, run.CompletedAt,
		run.TotalFound, run.TotalScored, run.TotalQualified,
		run.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update run %s", run.ID)
	}
	return checkRowsAffected(res, "run", run.ID)
}

func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, status, criteria, query, max_results, error, created_at, started_at, completed_at,
		 total_found, total_scored, total_qualified
		 FROM runs WHERE id = ?`,
		runID,
	)
	return scanRun(row)
}

func (s *SQLiteStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error) {
	query := `SELECT id, status, criteria, query, max_results, error, created_at, started_at, completed_at,
	 total_found, total_scored, total_qualified
	 FROM runs WHERE 1=1`
	var args []any

	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close()

	var runs []model.Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: list runs iterate")
}

func (s *SQLiteStore) SaveResults(ctx context.Context, runID string, companies []*model.ScoredCompany) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin save results")
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM run_results WHERE run_id = ?`, runID); err != nil {
		return eris.Wrapf(err, "sqlite: clear results for run %s", runID)
	}

	for _, company := range companies {
		companyJSON, err := json.Marshal(company)
		if err != nil {
			return eris.Wrap(err, "sqlite: marshal scored company")
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO run_results (run_id, rank, company) VALUES (?, ?, ?)`,
			runID, company.Rank, string(companyJSON),
		); err != nil {
			return eris.Wrapf(err, "sqlite: insert result for run %s", runID)
		}
	}

	return eris.Wrap(tx.Commit(), "sqlite: commit save results")
}

func (s *SQLiteStore) GetResults(ctx context.Context, runID string) ([]*model.ScoredCompany, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT company FROM run_results WHERE run_id = ? ORDER BY rank`,
		runID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get results for run %s", runID)
	}
	defer rows.Close()

	var companies []*model.ScoredCompany
	for rows.Next() {
		var companyJSON string
		if err := rows.Scan(&companyJSON); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan result")
		}
		var company model.ScoredCompany
		if err := json.Unmarshal([]byte(companyJSON), &company); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal scored company")
		}
		companies = append(companies, &company)
	}
	return companies, eris.Wrap(rows.Err(), "sqlite: get results iterate")
}

func (s *SQLiteStore) GetCachedPages(ctx context.Context, website string) (*model.PageCache, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, website, pages, crawled_at, expires_at FROM page_cache
		 WHERE website = ? AND expires_at > datetime('now')
		 ORDER BY crawled_at DESC LIMIT 1`,
		website,
	)

	var pc model.PageCache
	var pagesJSON string
	err := row.Scan(&pc.ID, &pc.Website, &pagesJSON, &pc.CrawledAt, &pc.ExpiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get cached pages")
	}
	if err := json.Unmarshal([]byte(pagesJSON), &pc.Pages); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal cached pages")
	}
	return &pc, nil
}

func (s *SQLiteStore) SetCachedPages(ctx context.Context, website string, pages []model.CachedPage, ttl time.Duration) error {
	id := uuid.New().String()
	now := time.Now().UTC()
	expiresAt := now.Add(ttl)

	pagesJSON, err := json.Marshal(pages)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal pages")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO page_cache (id, website, pages, crawled_at, expires_at) VALUES (?, ?, ?, ?, ?)`,
		id, website, string(pagesJSON), now, expiresAt,
	)
	return eris.Wrap(err, "sqlite: set cached pages")
}

func (s *SQLiteStore) DeleteExpiredPages(ctx context.Context) (int, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM page_cache WHERE expires_at <= datetime('now')`,
	)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: delete expired pages")
	}
	n, err := res.RowsAffected()
	return int(n), eris.Wrap(err, "sqlite: rows affected")
}

// helpers

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Errorf("%s not found: %s", entity, id)
	}
	return nil
}

func marshalCriteria(criteria *model.AcquisitionCriteria) (sql.NullString, error) {
	if criteria == nil {
		return sql.NullString{}, nil
	}
	criteriaJSON, err := json.Marshal(criteria)
	if err != nil {
		return sql.NullString{}, eris.Wrap(err, "store: marshal criteria")
	}
	return sql.NullString{String: string(criteriaJSON), Valid: true}, nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanRun(row scannable) (*model.Run, error) {
	var r model.Run
	var criteriaJSON sql.NullString
	var startedAt, completedAt sql.NullTime

	err := row.Scan(&r.ID, &r.Status, &criteriaJSON, &r.Query, &r.MaxResults, &r.Error,
		&r.CreatedAt, &startedAt, &completedAt,
		&r.TotalFound, &r.TotalScored, &r.TotalQualified)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.New("run not found")
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan run")
	}

	if criteriaJSON.Valid {
		r.Criteria = &model.AcquisitionCriteria{}
		if err := json.Unmarshal([]byte(criteriaJSON.String), r.Criteria); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal criteria")
		}
	}
	if startedAt.Valid {
		t := startedAt.Time
		r.StartedAt = &t
	}
	if completedAt.Valid {
		t := completedAt.Time
		r.CompletedAt = &t
	}
	return &r, nil
}
