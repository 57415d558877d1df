// Package sqlite implements the client-side response cache: a
// content-addressed store with TTL expiry and a size budget enforced by
// oldest-first eviction.
package sqlite

import (
	"crypto/sha256"
	"database/sql"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"github.com/askroute/askroute/pkg/models"
)

// Cache stores prior responses keyed by query hash.
type Cache struct {
	db       *sql.DB
	ttl      time.Duration
	maxBytes int64
	hits     atomic.Int64
	misses   atomic.Int64

	now func() time.Time
}

const createCacheTable = `
CREATE TABLE IF NOT EXISTS cache_entries (
	query_hash  TEXT PRIMARY KEY,
	query_text  TEXT NOT NULL,
	response    TEXT NOT NULL,
	provider_id TEXT NOT NULL,
	category    TEXT NOT NULL,
	elapsed_ms  INTEGER NOT NULL,
	size_bytes  INTEGER NOT NULL,
	created_at  DATETIME NOT NULL,
	expires_at  DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_cache_created ON cache_entries(created_at);
`

// New opens (or creates) the cache database. TTL applies to every Put;
// maxBytes caps the sum of stored response sizes.
func New(dbPath string, ttl time.Duration, maxBytes int64) (*Cache, error) {
	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open cache db: %w", err)
	}

	if _, err := db.Exec(createCacheTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate cache db: %w", err)
	}

	return &Cache{db: db, ttl: ttl, maxBytes: maxBytes, now: time.Now}, nil
}

// HashQuery computes the stable cache key: SHA-256 of the lower-cased
// query text.
func HashQuery(text string) string {
	h := sha256.Sum256([]byte(strings.ToLower(text)))
	return fmt.Sprintf("%x", h)
}

// Get retrieves the cached entry for a query. Expired entries are lazily
// deleted on read and reported as a miss.
func (c *Cache) Get(queryText string) (*models.CacheEntry, bool) {
	hash := HashQuery(queryText)

	var e models.CacheEntry
	err := c.db.QueryRow(
		`SELECT query_hash, query_text, response, provider_id, category, elapsed_ms, created_at, expires_at
		 FROM cache_entries WHERE query_hash = ?`, hash,
	).Scan(&e.QueryHash, &e.QueryText, &e.Response, &e.ProviderID, &e.Category, &e.ElapsedMs, &e.CreatedAt, &e.ExpiresAt)

	if err != nil {
		c.misses.Add(1)
		return nil, false
	}

	if !c.now().Before(e.ExpiresAt) {
		_, _ = c.db.Exec(`DELETE FROM cache_entries WHERE query_hash = ?`, hash)
		c.misses.Add(1)
		return nil, false
	}

	c.hits.Add(1)
	return &e, true
}

// Put upserts a response for a query; the latest write wins for a repeated
// query. Before inserting it evicts oldest-created entries until the size
// budget holds.
func (c *Cache) Put(queryText string, res models.NormalizedResult) error {
	size := int64(len(res.Text))
	if err := c.evictFor(size); err != nil {
		return err
	}

	now := c.now().UTC()
	_, err := c.db.Exec(
		`INSERT OR REPLACE INTO cache_entries
		 (query_hash, query_text, response, provider_id, category, elapsed_ms, size_bytes, created_at, expires_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		HashQuery(queryText), queryText, res.Text, res.ProviderID, string(res.Category),
		res.ElapsedMs, size, now, now.Add(c.ttl),
	)
	if err != nil {
		return fmt.Errorf("cache put: %w", err)
	}
	return nil
}

// evictFor deletes oldest-createdAt entries until incoming bytes fit the
// budget. Eviction is strictly oldest-first, never LRU-by-access.
func (c *Cache) evictFor(incoming int64) error {
	if c.maxBytes <= 0 {
		return nil
	}

	var total int64
	if err := c.db.QueryRow(`SELECT COALESCE(SUM(size_bytes), 0) FROM cache_entries`).Scan(&total); err != nil {
		return fmt.Errorf("cache size: %w", err)
	}

	for total+incoming > c.maxBytes {
		var freed int64
		err := c.db.QueryRow(
			`DELETE FROM cache_entries WHERE query_hash =
			   (SELECT query_hash FROM cache_entries ORDER BY created_at ASC LIMIT 1)
			 RETURNING size_bytes`,
		).Scan(&freed)
		if err == sql.ErrNoRows {
			return nil
		}
		if err != nil {
			return fmt.Errorf("cache evict: %w", err)
		}
		total -= freed
	}
	return nil
}

// Stats returns entry counts, stored bytes, and hit/miss counters.
func (c *Cache) Stats() (models.CacheStats, error) {
	var s models.CacheStats
	err := c.db.QueryRow(`SELECT COUNT(*), COALESCE(SUM(size_bytes), 0) FROM cache_entries`).
		Scan(&s.Entries, &s.TotalBytes)
	if err != nil {
		return models.CacheStats{}, fmt.Errorf("cache stats: %w", err)
	}
	s.Hits = c.hits.Load()
	s.Misses = c.misses.Load()
	return s, nil
}

// Clear removes cache entries. If expiredOnly is true, only expired entries
// are removed.
func (c *Cache) Clear(expiredOnly bool) error {
	var err error
	if expiredOnly {
		_, err = c.db.Exec(`DELETE FROM cache_entries WHERE expires_at <= ?`, c.now().UTC())
	} else {
		_, err = c.db.Exec(`DELETE FROM cache_entries`)
	}
	if err != nil {
		return fmt.Errorf("cache clear: %w", err)
	}
	return nil
}

// Close releases the database connection.
func (c *Cache) Close() error {
	return c.db.Close()
}
