package tracker

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/explore-jakarta/recocache/pkg/models"
)

// Tracker records and queries gateway lookup history.
type Tracker interface {
	// Record stores a lookup record.
	Record(ctx context.Context, rec models.LookupRecord) error
	// Summary returns per-kind aggregates for lookups since a given time.
	Summary(ctx context.Context, since time.Time) ([]models.LookupSummary, error)
	// Recent returns the latest n lookups, newest first.
	Recent(ctx context.Context, n int) ([]models.LookupRecord, error)
	// Prune deletes records older than the retention period.
	Prune(ctx context.Context) (int64, error)
	// Close releases resources.
	Close() error
}

// DefaultRetention is how long lookup records are kept when none is configured.
const DefaultRetention = 7 * 24 * time.Hour

// SQLiteTracker implements Tracker with a SQLite database.
type SQLiteTracker struct {
	db        *sql.DB
	retention time.Duration
	log       *slog.Logger
	done      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

const createTable = `
CREATE TABLE IF NOT EXISTS lookup_records (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	kind TEXT NOT NULL,
	cache_key TEXT NOT NULL,
	outcome TEXT NOT NULL,
	results INTEGER NOT NULL DEFAULT 0,
	latency_ms INTEGER NOT NULL DEFAULT 0,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_lookup_kind_time ON lookup_records(kind, created_at);
CREATE INDEX IF NOT EXISTS idx_lookup_created ON lookup_records(created_at);
`

// New opens the tracker database, runs auto-migration and starts the hourly
// retention loop. A non-positive retention uses DefaultRetention.
func New(dbPath string, retention time.Duration, log *slog.Logger) (*SQLiteTracker, error) {
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open tracker db: %w", err)
	}

	if _, err := db.Exec(createTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate tracker db: %w", err)
	}

	// Older databases predate the error column.
	if !columnExists(db, "lookup_records", "error") {
		if _, err := db.Exec(`ALTER TABLE lookup_records ADD COLUMN error TEXT NOT NULL DEFAULT ''`); err != nil {
			db.Close()
			return nil, fmt.Errorf("add error column: %w", err)
		}
	}

	if retention <= 0 {
		retention = DefaultRetention
	}
	if log == nil {
		log = slog.Default()
	}

	t := &SQLiteTracker{
		db:        db,
		retention: retention,
		log:       log,
		done:      make(chan struct{}),
	}

	t.wg.Add(1)
	go t.retentionLoop()

	return t, nil
}

func columnExists(db *sql.DB, table, column string) bool {
	rows, err := db.Query(fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return false
	}
	defer rows.Close()
	for rows.Next() {
		var cid int
		var name, ctype string
		var notnull int
		var dflt sql.NullString
		var pk int
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dflt, &pk); err != nil {
			return false
		}
		if name == column {
			return true
		}
	}
	return false
}

// Record stores a lookup record.
func (t *SQLiteTracker) Record(ctx context.Context, rec models.LookupRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	_, err := t.db.ExecContext(ctx,
		`INSERT INTO lookup_records (kind, cache_key, outcome, results, latency_ms, error, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.Kind, rec.Key, string(rec.Outcome), rec.Results, rec.LatencyMs, rec.Error, rec.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("record lookup: %w", err)
	}
	return nil
}

// Summary returns lookups grouped by kind since a given time. A zero since
// covers the whole history. AvgLatencyMs averages remote calls only; cache
// hits carry no latency.
func (t *SQLiteTracker) Summary(ctx context.Context, since time.Time) ([]models.LookupSummary, error) {
	query := `SELECT kind, COUNT(*),
		 SUM(CASE WHEN outcome = 'hit' THEN 1 ELSE 0 END),
		 SUM(CASE WHEN outcome = 'miss' THEN 1 ELSE 0 END),
		 SUM(CASE WHEN outcome = 'error' THEN 1 ELSE 0 END),
		 COALESCE(AVG(CASE WHEN outcome != 'hit' THEN latency_ms END), 0)
		 FROM lookup_records`
	var args []any
	if !since.IsZero() {
		query += ` WHERE created_at >= ?`
		args = append(args, since.UTC())
	}
	query += ` GROUP BY kind ORDER BY kind`

	rows, err := t.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("summary: %w", err)
	}
	defer rows.Close()

	var summaries []models.LookupSummary
	for rows.Next() {
		var s models.LookupSummary
		if err := rows.Scan(&s.Kind, &s.Lookups, &s.Hits, &s.Misses, &s.Errors, &s.AvgLatencyMs); err != nil {
			return nil, fmt.Errorf("scan summary: %w", err)
		}
		summaries = append(summaries, s)
	}
	return summaries, rows.Err()
}

// Recent returns the latest n lookup records, newest first.
func (t *SQLiteTracker) Recent(ctx context.Context, n int) ([]models.LookupRecord, error) {
	if n <= 0 {
		n = 20
	}
	rows, err := t.db.QueryContext(ctx,
		`SELECT id, kind, cache_key, outcome, results, latency_ms, error, created_at
		 FROM lookup_records ORDER BY created_at DESC, id DESC LIMIT ?`,
		n,
	)
	if err != nil {
		return nil, fmt.Errorf("recent lookups: %w", err)
	}
	defer rows.Close()

	var records []models.LookupRecord
	for rows.Next() {
		var r models.LookupRecord
		var outcome string
		if err := rows.Scan(&r.ID, &r.Kind, &r.Key, &outcome, &r.Results, &r.LatencyMs, &r.Error, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan lookup: %w", err)
		}
		r.Outcome = models.LookupOutcome(outcome)
		records = append(records, r)
	}
	return records, rows.Err()
}

// Prune deletes records older than the retention period.
func (t *SQLiteTracker) Prune(ctx context.Context) (int64, error) {
	cutoff := time.Now().UTC().Add(-t.retention)
	res, err := t.db.ExecContext(ctx,
		`DELETE FROM lookup_records WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune lookups: %w", err)
	}
	return res.RowsAffected()
}

// Close stops the retention loop and closes the database.
func (t *SQLiteTracker) Close() error {
	var err error
	t.closeOnce.Do(func() {
		close(t.done)
		t.wg.Wait()
		err = t.db.Close()
	})
	return err
}

func (t *SQLiteTracker) retentionLoop() {
	defer t.wg.Done()
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-t.done:
			return
		case <-ticker.C:
			n, err := t.Prune(context.Background())
			if err != nil {
				t.log.Warn("tracker retention", "error", err)
				continue
			}
			if n > 0 {
				t.log.Debug("tracker retention", "removed", n)
			}
		}
	}
}
