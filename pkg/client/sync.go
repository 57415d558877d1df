package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	sqlitecache "github.com/askroute/askroute/pkg/cache/sqlite"
	"github.com/askroute/askroute/pkg/config"
	"github.com/askroute/askroute/pkg/models"
	"github.com/askroute/askroute/pkg/queue"
)

// ErrSyncInProgress is returned when a sync run is already active.
var ErrSyncInProgress = errors.New("sync already in progress")

// syncRetryDelays is the backoff schedule for a failed batch call: one
// initial attempt plus one retry after each delay, then give up. Queue
// items stay pending across failed runs.
var syncRetryDelays = []time.Duration{time.Second, 5 * time.Second, 30 * time.Second}

// SyncStats summarizes one sync run.
type SyncStats struct {
	Sent      int
	Synced    int
	Failed    int
	Remaining int
}

// SyncManager drains the offline queue in batches. Runs are mutually
// exclusive; a call while another run is active fails fast with
// ErrSyncInProgress instead of blocking.
type SyncManager struct {
	cfg    config.ClientConfig
	http   *http.Client
	cache  *sqlitecache.Cache
	queue  *queue.Store
	logger *slog.Logger

	running atomic.Bool

	// sleep is overridable in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewSyncManager builds a SyncManager around an opened cache and queue.
func NewSyncManager(cfg config.ClientConfig, cache *sqlitecache.Cache, store *queue.Store, logger *slog.Logger) *SyncManager {
	if logger == nil {
		logger = slog.Default()
	}
	return &SyncManager{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.RequestTimeout},
		cache:  cache,
		queue:  store,
		logger: logger,
		sleep:  sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

// Sync sends every pending queue item to the server in one batch and
// reconciles the per-id results: successes are cached and marked synced,
// per-item errors and items missing from the response stay pending.
func (m *SyncManager) Sync(ctx context.Context) (SyncStats, error) {
	if !m.running.CompareAndSwap(false, true) {
		return SyncStats{}, ErrSyncInProgress
	}
	defer m.running.Store(false)

	pending, err := m.queue.Pending(ctx)
	if err != nil {
		return SyncStats{}, fmt.Errorf("read pending queue: %w", err)
	}
	if len(pending) == 0 {
		return SyncStats{}, nil
	}

	items := make([]models.SyncItem, len(pending))
	byID := make(map[int64]models.QueueItem, len(pending))
	for i, it := range pending {
		items[i] = models.SyncItem{ID: it.ID, Query: it.QueryText}
		byID[it.ID] = it
	}

	resp, err := m.postBatch(ctx, models.SyncRequest{Items: items})
	if err != nil {
		return SyncStats{Sent: len(items), Remaining: len(items)}, err
	}

	stats := SyncStats{Sent: len(items)}
	var syncedIDs []int64

	for _, r := range resp.Results {
		item, ok := byID[r.ID]
		if !ok {
			m.logger.Warn("sync response contains unknown queue id", "id", r.ID)
			continue
		}
		delete(byID, r.ID)

		if r.Error != "" {
			stats.Failed++
			m.logger.Warn("queued query failed on server", "id", r.ID, "error", r.Error)
			continue
		}

		res := models.NormalizedResult{
			Text:       r.Response,
			ProviderID: r.ProviderID,
			Category:   models.Category(r.Category),
		}
		if perr := m.cache.Put(item.QueryText, res); perr != nil {
			m.logger.Error("cache put failed during sync", "id", r.ID, "error", perr)
		}
		syncedIDs = append(syncedIDs, r.ID)
		stats.Synced++
	}

	for id := range byID {
		m.logger.Warn("sync response missing queue id, item stays pending", "id", id)
	}

	if len(syncedIDs) > 0 {
		if err := m.queue.MarkSynced(ctx, syncedIDs); err != nil {
			return stats, fmt.Errorf("mark synced: %w", err)
		}
	}

	remaining, _, err := m.queue.Counts(ctx)
	if err != nil {
		return stats, fmt.Errorf("queue counts: %w", err)
	}
	stats.Remaining = int(remaining)

	m.logger.Info("sync run finished",
		"sent", stats.Sent, "synced", stats.Synced,
		"failed", stats.Failed, "remaining", stats.Remaining)
	return stats, nil
}

// postBatch posts one sync batch, retrying on call failure per the backoff
// schedule. A non-200 status counts as a failed attempt like a transport
// error: either way the batch did not land.
func (m *SyncManager) postBatch(ctx context.Context, req models.SyncRequest) (*models.SyncResponse, error) {
	var lastErr error
	for attempt := 0; ; attempt++ {
		resp, err := m.tryPostBatch(ctx, req)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		if attempt >= len(syncRetryDelays) {
			break
		}
		delay := syncRetryDelays[attempt]
		m.logger.Warn("sync call failed, retrying", "attempt", attempt+1, "delay", delay, "error", err)
		if serr := m.sleep(ctx, delay); serr != nil {
			return nil, serr
		}
	}
	return nil, fmt.Errorf("sync call failed after %d attempts: %w", len(syncRetryDelays)+1, lastErr)
}

func (m *SyncManager) tryPostBatch(ctx context.Context, sr models.SyncRequest) (*models.SyncResponse, error) {
	body, err := json.Marshal(sr)
	if err != nil {
		return nil, fmt.Errorf("encode sync batch: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.cfg.ServerURL+"/sync", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build sync request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sync request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("sync request: unexpected status %d", resp.StatusCode)
	}

	var out models.SyncResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode sync response: %w", err)
	}
	return &out, nil
}
