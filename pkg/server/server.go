// Package server exposes the routing pipeline over HTTP: synchronous
// /query, batch /sync for offline clients, and a /health probe.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/askroute/askroute/pkg/audit"
	"github.com/askroute/askroute/pkg/config"
	"github.com/askroute/askroute/pkg/models"
	"github.com/askroute/askroute/pkg/router"
)

// maxSyncConcurrency bounds parallel router invocations within one sync batch.
const maxSyncConcurrency = 4

// Server is the askroute HTTP server.
type Server struct {
	cfg    *config.Config
	router *router.Router
	reqlog *audit.Logger
	logger *slog.Logger
	mux    chi.Router
}

// New creates a Server wired with all dependencies. reqlog may be nil to
// disable the persistent request log.
func New(cfg *config.Config, rt *router.Router, reqlog *audit.Logger, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		cfg:    cfg,
		router: rt,
		reqlog: reqlog,
		logger: logger,
	}

	mux := chi.NewRouter()
	mux.Use(middleware.RequestID)
	mux.Use(middleware.Recoverer)
	mux.Post("/query", s.handleQuery)
	mux.Post("/sync", s.handleSync)
	mux.Get("/health", s.handleHealth)
	s.mux = mux

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// ListenAndServe starts the server with graceful shutdown support.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:    s.cfg.Listen,
		Handler: s,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("askroute listening", "addr", s.cfg.Listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutCtx)
	case err := <-errCh:
		return err
	}
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req models.QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	start := time.Now()
	res, cls, err := s.router.Handle(r.Context(), req.Query)
	status, result := s.finishQuery(r.Context(), req.Query, res, cls, err, start)

	if status == http.StatusOK {
		writeJSON(w, http.StatusOK, models.QueryResponse{
			Response:   result.Text,
			ProviderID: result.ProviderID,
			Category:   string(result.Category),
		})
		return
	}
	writeJSONError(w, status, errorMessage(status))
}

// finishQuery logs one routed query and maps its outcome to an HTTP status.
func (s *Server) finishQuery(ctx context.Context, query string, res *models.NormalizedResult, cls models.Classification, err error, start time.Time) (int, *models.NormalizedResult) {
	reqID := middleware.GetReqID(ctx)
	latency := time.Since(start).Milliseconds()

	entry := models.LogEntry{
		RequestID: reqID,
		Query:     query,
		Category:  string(cls.Category),
		LatencyMs: latency,
	}

	var status int
	switch {
	case err == nil:
		status = http.StatusOK
		entry.Outcome = models.OutcomeSuccess
		entry.ProviderID = res.ProviderID
		s.logger.Info("query routed",
			"request_id", reqID, "category", cls.Category,
			"provider", res.ProviderID, "latency_ms", latency)

	default:
		var verr *router.ValidationError
		var failed *router.AllProvidersFailedError
		switch {
		case errors.As(err, &verr):
			status = http.StatusBadRequest
			entry.Outcome = models.OutcomeRejected
			s.logger.Info("query rejected", "request_id", reqID, "reason", verr.Reason)

		case errors.As(err, &failed):
			entry.Outcome = models.OutcomeAllFailed
			if failed.RateLimitedOnly() {
				status = http.StatusTooManyRequests
				entry.Outcome = models.OutcomeRateLimited
			} else {
				status = http.StatusBadGateway
			}
			if b, merr := json.Marshal(failed.Attempts); merr == nil {
				entry.Attempts = string(b)
			}
			s.logger.Warn("query failed",
				"request_id", reqID, "category", cls.Category,
				"attempts", len(failed.Attempts), "latency_ms", latency)

		default:
			status = http.StatusInternalServerError
			entry.Outcome = models.OutcomeAllFailed
			s.logger.Error("query error", "request_id", reqID, "error", err)
		}
	}

	if s.reqlog != nil {
		go func() {
			if lerr := s.reqlog.Log(context.Background(), entry); lerr != nil {
				s.logger.Error("request log write failed", "error", lerr)
			}
		}()
	}

	return status, res
}

// errorMessage returns the generic, non-leaking body for a failure status.
func errorMessage(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "query must be 1-2000 characters and not blank"
	case http.StatusTooManyRequests:
		return "all providers are rate limited, retry later"
	default:
		return "unable to answer the query right now"
	}
}

// handleSync is the batch variant of /query. Every item id in the request
// appears exactly once in the response, success or error; results are keyed
// by id, not position.
func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	var req models.SyncRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	results := make([]models.SyncResult, len(req.Items))
	sem := make(chan struct{}, maxSyncConcurrency)
	var wg sync.WaitGroup

	for i, item := range req.Items {
		wg.Add(1)
		go func(i int, item models.SyncItem) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			start := time.Now()
			res, cls, err := s.router.Handle(r.Context(), item.Query)
			status, _ := s.finishQuery(r.Context(), item.Query, res, cls, err, start)

			if status == http.StatusOK {
				results[i] = models.SyncResult{
					ID:         item.ID,
					Response:   res.Text,
					ProviderID: res.ProviderID,
					Category:   string(res.Category),
				}
				return
			}
			results[i] = models.SyncResult{ID: item.ID, Error: errorMessage(status)}
		}(i, item)
	}
	wg.Wait()

	writeJSON(w, http.StatusOK, models.SyncResponse{Results: results})
}

// handleHealth is a constant-time liveness probe with no side effects.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	fmt.Fprintf(w, `{"error":%q}`+"\n", message)
}
