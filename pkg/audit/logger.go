// Package audit persists the server-side request log: one row per routed
// query with its category, outcome, and failover attempt trail.
package audit

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/askroute/askroute/pkg/config"
	"github.com/askroute/askroute/pkg/models"
)

// Logger writes and queries request log entries in SQLite.
type Logger struct {
	db   *sql.DB
	cfg  config.RequestLogConfig
	done chan struct{}
	wg   sync.WaitGroup
}

const createLogTable = `
CREATE TABLE IF NOT EXISTS request_log (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	request_id  TEXT NOT NULL,
	query       TEXT NOT NULL,
	category    TEXT NOT NULL,
	outcome     TEXT NOT NULL,
	provider_id TEXT,
	attempts    TEXT,
	latency_ms  INTEGER NOT NULL,
	created_at  DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_reqlog_created ON request_log(created_at);
CREATE INDEX IF NOT EXISTS idx_reqlog_outcome ON request_log(outcome);
`

// New opens the request log database and starts the retention loop.
func New(cfg config.RequestLogConfig) (*Logger, error) {
	db, err := sql.Open("sqlite", cfg.DBPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open request log db: %w", err)
	}

	if _, err := db.Exec(createLogTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate request log db: %w", err)
	}

	l := &Logger{db: db, cfg: cfg, done: make(chan struct{})}
	l.wg.Add(1)
	go l.retentionLoop()

	return l, nil
}

// Log inserts a request log entry. Query text is truncated to the configured
// maximum. Safe to call on a nil Logger.
func (l *Logger) Log(ctx context.Context, e models.LogEntry) error {
	if l == nil || l.db == nil {
		return nil
	}

	q := e.Query
	if l.cfg.MaxQueryBytes > 0 && len(q) > l.cfg.MaxQueryBytes {
		q = q[:l.cfg.MaxQueryBytes]
	}

	created := e.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}

	_, err := l.db.ExecContext(ctx,
		`INSERT INTO request_log (request_id, query, category, outcome, provider_id, attempts, latency_ms, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.RequestID, q, e.Category, e.Outcome, e.ProviderID, e.Attempts, e.LatencyMs, created,
	)
	return err
}

// Query returns log entries matching the given options, newest first.
func (l *Logger) Query(ctx context.Context, opts models.LogQueryOpts) ([]models.LogEntry, error) {
	q := `SELECT id, request_id, query, category, outcome, provider_id, attempts, latency_ms, created_at
	      FROM request_log WHERE 1=1`
	var args []any

	if opts.Category != "" {
		q += " AND category = ?"
		args = append(args, opts.Category)
	}
	if opts.Outcome != "" {
		q += " AND outcome = ?"
		args = append(args, opts.Outcome)
	}
	if !opts.Since.IsZero() {
		q += " AND created_at >= ?"
		args = append(args, opts.Since)
	}

	q += " ORDER BY created_at DESC"

	limit := opts.Limit
	if limit <= 0 {
		limit = 100
	}
	q += " LIMIT ?"
	args = append(args, limit)

	rows, err := l.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query request log: %w", err)
	}
	defer rows.Close()

	var entries []models.LogEntry
	for rows.Next() {
		var e models.LogEntry
		var providerID, attempts sql.NullString
		if err := rows.Scan(&e.ID, &e.RequestID, &e.Query, &e.Category, &e.Outcome,
			&providerID, &attempts, &e.LatencyMs, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan request log row: %w", err)
		}
		e.ProviderID = providerID.String
		e.Attempts = attempts.String
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Cleanup deletes entries older than the configured retention period.
func (l *Logger) Cleanup(ctx context.Context) (int64, error) {
	cutoff := time.Now().AddDate(0, 0, -l.cfg.RetentionDays)
	res, err := l.db.ExecContext(ctx, `DELETE FROM request_log WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("request log cleanup: %w", err)
	}
	return res.RowsAffected()
}

// Close stops the retention goroutine and closes the database.
func (l *Logger) Close() error {
	close(l.done)
	l.wg.Wait()
	return l.db.Close()
}

func (l *Logger) retentionLoop() {
	defer l.wg.Done()
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-l.done:
			return
		case <-ticker.C:
			_, _ = l.Cleanup(context.Background())
		}
	}
}
