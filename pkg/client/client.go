// Package client implements the caller side of the routing service: a
// cache-first ask path, an offline queue for unreachable-server failures,
// and a batch sync manager that reconciles queued queries.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	sqlitecache "github.com/askroute/askroute/pkg/cache/sqlite"
	"github.com/askroute/askroute/pkg/config"
	"github.com/askroute/askroute/pkg/models"
	"github.com/askroute/askroute/pkg/queue"
)

// Source tells where an answer came from.
type Source string

const (
	SourceCache  Source = "cache"
	SourceServer Source = "server"
	SourceQueued Source = "queued"
)

// AskResult is the outcome of one Ask call. Result is nil when the query
// was queued for later sync.
type AskResult struct {
	Source  Source
	Result  *models.NormalizedResult
	QueueID int64
}

// ServerError is a non-2xx answer from the routing service. The server was
// reachable, so the query is never queued for sync.
type ServerError struct {
	Status  int
	Message string
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.Status, e.Message)
}

// Client is the local front end: it answers from the cache when possible,
// asks the server otherwise, and falls back to the offline queue only when
// the server cannot be reached at all.
type Client struct {
	cfg    config.ClientConfig
	http   *http.Client
	cache  *sqlitecache.Cache
	queue  *queue.Store
	logger *slog.Logger
}

// New builds a Client around an opened cache and queue.
func New(cfg config.ClientConfig, cache *sqlitecache.Cache, store *queue.Store, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.RequestTimeout},
		cache:  cache,
		queue:  store,
		logger: logger,
	}
}

// Ask answers a query. Order: cache hit, then a synchronous server call.
// Only a transport failure (server unreachable) enqueues the query, exactly
// once; an HTTP error response means the server was reached and is returned
// as an error without queueing.
func (c *Client) Ask(ctx context.Context, query string) (*AskResult, error) {
	if entry, ok := c.cache.Get(query); ok {
		res := entry.Result()
		c.logger.Debug("cache hit", "provider", res.ProviderID, "category", res.Category)
		return &AskResult{Source: SourceCache, Result: &res}, nil
	}

	res, err := c.postQuery(ctx, query)
	if err != nil {
		var serr *ServerError
		if errors.As(err, &serr) {
			return nil, serr
		}

		// Server unreachable: save the query for the next sync run.
		id, qerr := c.queue.Enqueue(ctx, query)
		if qerr != nil {
			return nil, fmt.Errorf("server unreachable and enqueue failed: %w", qerr)
		}
		c.logger.Warn("server unreachable, query queued", "queue_id", id, "error", err)
		return &AskResult{Source: SourceQueued, QueueID: id}, nil
	}

	if perr := c.cache.Put(query, *res); perr != nil {
		c.logger.Error("cache put failed", "error", perr)
	}
	return &AskResult{Source: SourceServer, Result: res}, nil
}

// postQuery performs the synchronous POST /query round trip.
func (c *Client) postQuery(ctx context.Context, query string) (*models.NormalizedResult, error) {
	body, err := json.Marshal(models.QueryRequest{Query: query})
	if err != nil {
		return nil, fmt.Errorf("encode query: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.ServerURL+"/query", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("query request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var e models.ErrorResponse
		_ = json.NewDecoder(io.LimitReader(resp.Body, 4096)).Decode(&e)
		return nil, &ServerError{Status: resp.StatusCode, Message: e.Error}
	}

	var qr models.QueryResponse
	if err := json.NewDecoder(resp.Body).Decode(&qr); err != nil {
		return nil, &ServerError{Status: resp.StatusCode, Message: "malformed response body"}
	}

	return &models.NormalizedResult{
		Text:       qr.Response,
		ProviderID: qr.ProviderID,
		Category:   models.Category(qr.Category),
	}, nil
}

// CacheStats exposes the underlying cache counters.
func (c *Client) CacheStats() (models.CacheStats, error) {
	return c.cache.Stats()
}
