// Package queue implements the client-side offline queue: a durable holding
// area for queries that could not reach the routing service at all.
package queue

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/askroute/askroute/pkg/models"
)

// Store persists offline queue items in SQLite.
type Store struct {
	db *sql.DB
}

const createQueueTable = `
CREATE TABLE IF NOT EXISTS offline_queue (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	query_text  TEXT NOT NULL,
	enqueued_at DATETIME NOT NULL,
	status      TEXT NOT NULL DEFAULT 'pending',
	synced_at   DATETIME
);
CREATE INDEX IF NOT EXISTS idx_queue_status ON offline_queue(status);
`

// New opens (or creates) the queue database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open queue db: %w", err)
	}

	if _, err := db.Exec(createQueueTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate queue db: %w", err)
	}

	return &Store{db: db}, nil
}

// Enqueue stores one query as pending and returns its id.
func (s *Store) Enqueue(ctx context.Context, queryText string) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO offline_queue (query_text, enqueued_at, status) VALUES (?, ?, ?)`,
		queryText, time.Now().UTC(), models.QueueStatusPending,
	)
	if err != nil {
		return 0, fmt.Errorf("enqueue: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("enqueue id: %w", err)
	}
	return id, nil
}

// Pending returns all pending items in enqueue order.
func (s *Store) Pending(ctx context.Context) ([]models.QueueItem, error) {
	return s.list(ctx, `WHERE status = ?`, models.QueueStatusPending)
}

// List returns every queue item, pending and synced, newest first.
func (s *Store) List(ctx context.Context) ([]models.QueueItem, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, query_text, enqueued_at, status, synced_at
		 FROM offline_queue ORDER BY id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list queue: %w", err)
	}
	return scanItems(rows)
}

func (s *Store) list(ctx context.Context, where string, args ...any) ([]models.QueueItem, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, query_text, enqueued_at, status, synced_at
		 FROM offline_queue `+where+` ORDER BY id ASC`, args...)
	if err != nil {
		return nil, fmt.Errorf("query queue: %w", err)
	}
	return scanItems(rows)
}

func scanItems(rows *sql.Rows) ([]models.QueueItem, error) {
	defer rows.Close()

	var items []models.QueueItem
	for rows.Next() {
		var it models.QueueItem
		var syncedAt sql.NullTime
		if err := rows.Scan(&it.ID, &it.QueryText, &it.EnqueuedAt, &it.Status, &syncedAt); err != nil {
			return nil, fmt.Errorf("scan queue item: %w", err)
		}
		if syncedAt.Valid {
			t := syncedAt.Time
			it.SyncedAt = &t
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// MarkSynced transitions the given items to the terminal synced state.
// Unknown ids are ignored.
func (s *Store) MarkSynced(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("mark synced: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	for _, id := range ids {
		if _, err := tx.ExecContext(ctx,
			`UPDATE offline_queue SET status = ?, synced_at = ? WHERE id = ? AND status = ?`,
			models.QueueStatusSynced, now, id, models.QueueStatusPending,
		); err != nil {
			return fmt.Errorf("mark synced %d: %w", id, err)
		}
	}

	return tx.Commit()
}

// Counts returns the number of pending and synced items.
func (s *Store) Counts(ctx context.Context) (pending, synced int64, err error) {
	err = s.db.QueryRowContext(ctx,
		`SELECT
		   COUNT(*) FILTER (WHERE status = ?),
		   COUNT(*) FILTER (WHERE status = ?)
		 FROM offline_queue`,
		models.QueueStatusPending, models.QueueStatusSynced,
	).Scan(&pending, &synced)
	if err != nil {
		return 0, 0, fmt.Errorf("queue counts: %w", err)
	}
	return pending, synced, nil
}

// Clear deletes every queue item. Items are only ever removed through an
// explicit clear, never automatically.
func (s *Store) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM offline_queue`); err != nil {
		return fmt.Errorf("clear queue: %w", err)
	}
	return nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}
