// Package store persists runs and per-item evaluation results in SQLite and
// serves the aggregation queries behind the results and comparison commands.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/ashikshafi08/memorybench-sub000/internal/logging"
	"github.com/ashikshafi08/memorybench-sub000/internal/types"
)

// Store wraps the SQLite database.
type Store struct {
	db  *sql.DB
	log *zap.Logger
}

// Open opens (creating if needed) the results database. WAL mode keeps
// concurrent readers from blocking the writer; the busy timeout covers the
// brief writer lock during upserts.
func Open(path string) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open results db: %w", err)
	}
	// SQLite allows one writer; serializing through a single connection
	// avoids SQLITE_BUSY under concurrent pair workers.
	db.SetMaxOpenConns(1)

	s := &Store{db: db, log: logging.Named("store")}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) migrate() error {
	schema := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id           TEXT PRIMARY KEY,
			started_at   TIMESTAMP NOT NULL,
			completed_at TIMESTAMP,
			benchmarks   TEXT NOT NULL DEFAULT '[]',
			providers    TEXT NOT NULL DEFAULT '[]',
			config       TEXT NOT NULL DEFAULT '{}'
		)`,
		`CREATE TABLE IF NOT EXISTS results (
			id                INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id            TEXT NOT NULL REFERENCES runs(id),
			benchmark         TEXT NOT NULL,
			provider          TEXT NOT NULL,
			item_id           TEXT NOT NULL,
			question          TEXT NOT NULL DEFAULT '',
			expected          TEXT NOT NULL DEFAULT '',
			actual            TEXT NOT NULL DEFAULT '',
			score             REAL NOT NULL DEFAULT 0,
			correct           INTEGER NOT NULL DEFAULT 0,
			retrieved_context TEXT NOT NULL DEFAULT '[]',
			metadata          TEXT NOT NULL DEFAULT '{}',
			created_at        TIMESTAMP NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_results_run ON results(run_id)`,
		`CREATE INDEX IF NOT EXISTS idx_results_benchmark ON results(benchmark)`,
		`CREATE INDEX IF NOT EXISTS idx_results_provider ON results(provider)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_results_identity
			ON results(run_id, benchmark, provider, item_id)`,
	}
	for _, stmt := range schema {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("migrate results db: %w", err)
		}
	}
	return nil
}

// =============================================================================
// RUNS
// =============================================================================

// Run is one recorded benchmark run.
type Run struct {
	ID          string                 `json:"id"`
	StartedAt   time.Time              `json:"startedAt"`
	CompletedAt *time.Time             `json:"completedAt,omitempty"`
	Benchmarks  []string               `json:"benchmarks"`
	Providers   []string               `json:"providers"`
	Config      map[string]interface{} `json:"config,omitempty"`
}

// CreateRun records a new run. Re-creating an existing run id is a no-op so
// a resumed run keeps its original record.
func (s *Store) CreateRun(run Run) error {
	benchmarks, _ := json.Marshal(run.Benchmarks)
	providers, _ := json.Marshal(run.Providers)
	cfg, _ := json.Marshal(run.Config)
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now().UTC()
	}
	_, err := s.db.Exec(
		`INSERT INTO runs (id, started_at, benchmarks, providers, config) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO NOTHING`,
		run.ID, run.StartedAt, string(benchmarks), string(providers), string(cfg),
	)
	if err != nil {
		return fmt.Errorf("create run %s: %w", run.ID, err)
	}
	return nil
}

// CompleteRun stamps the run's completion time.
func (s *Store) CompleteRun(runID string) error {
	_, err := s.db.Exec(`UPDATE runs SET completed_at = ? WHERE id = ?`, time.Now().UTC(), runID)
	if err != nil {
		return fmt.Errorf("complete run %s: %w", runID, err)
	}
	return nil
}

// GetRun fetches one run.
func (s *Store) GetRun(runID string) (*Run, error) {
	row := s.db.QueryRow(
		`SELECT id, started_at, completed_at, benchmarks, providers, config FROM runs WHERE id = ?`, runID)
	run, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("run %q not found", runID)
	}
	return run, err
}

// ListRuns returns runs newest-first, paginated.
func (s *Store) ListRuns(limit, offset int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.Query(
		`SELECT id, started_at, completed_at, benchmarks, providers, config
		 FROM runs ORDER BY started_at DESC LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(row rowScanner) (*Run, error) {
	var run Run
	var completed sql.NullTime
	var benchmarks, providers, cfg string
	if err := row.Scan(&run.ID, &run.StartedAt, &completed, &benchmarks, &providers, &cfg); err != nil {
		return nil, err
	}
	if completed.Valid {
		t := completed.Time
		run.CompletedAt = &t
	}
	_ = json.Unmarshal([]byte(benchmarks), &run.Benchmarks)
	_ = json.Unmarshal([]byte(providers), &run.Providers)
	_ = json.Unmarshal([]byte(cfg), &run.Config)
	return &run, nil
}

// =============================================================================
// RESULTS
// =============================================================================

// SaveResult upserts one row on (run_id, benchmark, provider, item_id), so a
// resumed run overwrites its earlier partial row instead of duplicating it.
func (s *Store) SaveResult(res *types.EvalResult) error {
	retrieved, err := json.Marshal(res.Retrieved)
	if err != nil {
		return fmt.Errorf("save result %s: encode retrieved: %w", res.Key(), err)
	}
	metadata, err := json.Marshal(res.Metadata)
	if err != nil {
		return fmt.Errorf("save result %s: encode metadata: %w", res.Key(), err)
	}
	createdAt := res.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err = s.db.Exec(`
		INSERT INTO results
			(run_id, benchmark, provider, item_id, question, expected, actual,
			 score, correct, retrieved_context, metadata, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id, benchmark, provider, item_id) DO UPDATE SET
			question = excluded.question,
			expected = excluded.expected,
			actual = excluded.actual,
			score = excluded.score,
			correct = excluded.correct,
			retrieved_context = excluded.retrieved_context,
			metadata = excluded.metadata,
			created_at = excluded.created_at`,
		res.RunID, res.Benchmark, res.Provider, res.ItemID,
		res.Question, res.Expected, res.Actual,
		res.Score, boolToInt(res.Correct), string(retrieved), string(metadata), createdAt,
	)
	if err != nil {
		return fmt.Errorf("save result %s: %w", res.Key(), err)
	}
	return nil
}

// GetResults fetches all rows of one run, insertion-ordered.
func (s *Store) GetResults(runID string) ([]types.EvalResult, error) {
	rows, err := s.db.Query(`
		SELECT run_id, benchmark, provider, item_id, question, expected, actual,
		       score, correct, retrieved_context, metadata, created_at
		FROM results WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, fmt.Errorf("get results for run %s: %w", runID, err)
	}
	defer rows.Close()

	var out []types.EvalResult
	for rows.Next() {
		var res types.EvalResult
		var correct int
		var retrieved, metadata string
		if err := rows.Scan(&res.RunID, &res.Benchmark, &res.Provider, &res.ItemID,
			&res.Question, &res.Expected, &res.Actual,
			&res.Score, &correct, &retrieved, &metadata, &res.CreatedAt); err != nil {
			return nil, err
		}
		res.Correct = correct != 0
		_ = json.Unmarshal([]byte(retrieved), &res.Retrieved)
		_ = json.Unmarshal([]byte(metadata), &res.Metadata)
		out = append(out, res)
	}
	return out, rows.Err()
}

// =============================================================================
// AGGREGATES
// =============================================================================

// Aggregate is one (benchmark, provider) summary row.
type Aggregate struct {
	Benchmark string  `json:"benchmark"`
	Provider  string  `json:"provider"`
	Total     int     `json:"total"`
	Correct   int     `json:"correct"`
	AvgScore  float64 `json:"avgScore"`
}

// Aggregates groups one run's results by (benchmark, provider).
func (s *Store) Aggregates(runID string) ([]Aggregate, error) {
	rows, err := s.db.Query(`
		SELECT benchmark, provider, COUNT(*), SUM(correct), AVG(score)
		FROM results WHERE run_id = ?
		GROUP BY benchmark, provider
		ORDER BY benchmark, provider`, runID)
	if err != nil {
		return nil, fmt.Errorf("aggregate run %s: %w", runID, err)
	}
	defer rows.Close()
	return scanAggregates(rows)
}

// GroupAggregate is one metadata-grouped summary row.
type GroupAggregate struct {
	Group    string  `json:"group"`
	Total    int     `json:"total"`
	Correct  int     `json:"correct"`
	AvgScore float64 `json:"avgScore"`
}

// AggregatesByMetadata groups one run's results by a metadata field such as
// questionType or categoryName, via the JSON1 extension.
func (s *Store) AggregatesByMetadata(runID, field string) ([]GroupAggregate, error) {
	rows, err := s.db.Query(`
		SELECT COALESCE(json_extract(metadata, '$.'||?), 'unknown') AS grp,
		       COUNT(*), SUM(correct), AVG(score)
		FROM results WHERE run_id = ?
		GROUP BY grp ORDER BY grp`, field, runID)
	if err != nil {
		return nil, fmt.Errorf("aggregate run %s by %s: %w", runID, field, err)
	}
	defer rows.Close()

	var out []GroupAggregate
	for rows.Next() {
		var g GroupAggregate
		var avg sql.NullFloat64
		if err := rows.Scan(&g.Group, &g.Total, &g.Correct, &avg); err != nil {
			return nil, err
		}
		g.AvgScore = avg.Float64
		out = append(out, g)
	}
	return out, rows.Err()
}

// CompareProviders summarizes one benchmark across a subset of providers for
// a run. An empty provider list compares all of them.
func (s *Store) CompareProviders(runID, benchmark string, providers []string) ([]Aggregate, error) {
	query := `
		SELECT benchmark, provider, COUNT(*), SUM(correct), AVG(score)
		FROM results WHERE run_id = ? AND benchmark = ?`
	args := []interface{}{runID, benchmark}
	if len(providers) > 0 {
		query += ` AND provider IN (?` + strings.Repeat(",?", len(providers)-1) + `)`
		for _, p := range providers {
			args = append(args, p)
		}
	}
	query += ` GROUP BY benchmark, provider ORDER BY AVG(score) DESC`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("compare providers for run %s: %w", runID, err)
	}
	defer rows.Close()
	return scanAggregates(rows)
}

func scanAggregates(rows *sql.Rows) ([]Aggregate, error) {
	var out []Aggregate
	for rows.Next() {
		var a Aggregate
		var avg sql.NullFloat64
		if err := rows.Scan(&a.Benchmark, &a.Provider, &a.Total, &a.Correct, &avg); err != nil {
			return nil, err
		}
		a.AvgScore = avg.Float64
		out = append(out, a)
	}
	return out, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
