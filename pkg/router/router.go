// Package router classifies incoming queries and walks the category's
// failover chain until one provider answers.
package router

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/askroute/askroute/pkg/classify"
	"github.com/askroute/askroute/pkg/config"
	"github.com/askroute/askroute/pkg/models"
	"github.com/askroute/askroute/pkg/provider"
	"github.com/askroute/askroute/pkg/ratelimit"
)

// Query length bounds, in runes.
const (
	minQueryLen = 1
	maxQueryLen = 2000
)

// ValidationError rejects malformed input before any provider is consulted.
// It is never retried.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return "invalid query: " + e.Reason }

// Attempt records one provider try during a chain walk.
type Attempt struct {
	ProviderID string             `json:"provider_id"`
	Kind       provider.ErrorKind `json:"kind"`
}

// AllProvidersFailedError is terminal for a single routed query: the whole
// chain was exhausted. The attempt log exists for observability and is not
// surfaced verbatim to end users.
type AllProvidersFailedError struct {
	Category models.Category
	Attempts []Attempt
}

func (e *AllProvidersFailedError) Error() string {
	return fmt.Sprintf("all providers failed for %s after %d attempts", e.Category, len(e.Attempts))
}

// RateLimitedOnly reports whether every attempt was denied by rate limiting,
// which callers signal distinctly from general provider failure.
func (e *AllProvidersFailedError) RateLimitedOnly() bool {
	for _, a := range e.Attempts {
		if a.Kind != provider.KindRateLimited {
			return false
		}
	}
	return len(e.Attempts) > 0
}

// Router holds the classification and failover pipeline. It is stateless
// across calls; the rate limiter is the only shared mutable state.
type Router struct {
	chains     config.ChainsConfig
	classifier *classify.Classifier
	limiter    *ratelimit.Limiter
	adapters   map[string]provider.Adapter
	logger     *slog.Logger
}

// New creates a Router from configuration and pre-built provider adapters.
func New(cfg *config.Config, adapters map[string]provider.Adapter, logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{
		chains:     cfg.Chains,
		classifier: classify.New(cfg.Keywords),
		limiter:    ratelimit.New(cfg.Providers),
		adapters:   adapters,
		logger:     logger,
	}
}

// Limiter exposes the rate limiter for observability.
func (r *Router) Limiter() *ratelimit.Limiter { return r.limiter }

// Handle validates, classifies, and routes one query.
func (r *Router) Handle(ctx context.Context, text string) (*models.NormalizedResult, models.Classification, error) {
	if strings.TrimSpace(text) == "" {
		return nil, models.Classification{}, &ValidationError{Reason: "query must not be empty"}
	}
	if n := utf8.RuneCountInString(text); n < minQueryLen || n > maxQueryLen {
		return nil, models.Classification{}, &ValidationError{Reason: fmt.Sprintf("query length %d out of bounds [%d,%d]", n, minQueryLen, maxQueryLen)}
	}

	cls := r.classifier.Classify(text)
	res, err := r.Route(ctx, cls.Category, text)
	return res, cls, err
}

// Route walks the failover chain for a category in order. The rate limiter
// is consulted before each attempt; a denied provider is recorded as a
// rate_limited attempt without calling its adapter. The first success
// returns immediately. An exhausted chain returns *AllProvidersFailedError
// with the full attempt log.
func (r *Router) Route(ctx context.Context, category models.Category, text string) (*models.NormalizedResult, error) {
	chain := r.chains.For(category)
	attempts := make([]Attempt, 0, len(chain))

	for _, id := range chain {
		if !r.limiter.TryAcquire(id) {
			attempts = append(attempts, Attempt{ProviderID: id, Kind: provider.KindRateLimited})
			r.logger.Warn("provider rate limited, trying next", "provider", id, "category", category)
			continue
		}

		adapter, ok := r.adapters[id]
		if !ok {
			// Chains are validated at startup; a missing adapter here means
			// construction was skipped, treat as unavailable.
			attempts = append(attempts, Attempt{ProviderID: id, Kind: provider.KindUnavailable})
			r.logger.Error("no adapter for configured provider", "provider", id)
			continue
		}

		start := time.Now()
		answer, err := adapter.Call(ctx, text)
		if err != nil {
			kind := provider.KindUnavailable
			var callErr *provider.CallError
			if errors.As(err, &callErr) {
				kind = callErr.Kind
			}
			attempts = append(attempts, Attempt{ProviderID: id, Kind: kind})
			r.logger.Warn("provider call failed, trying next", "provider", id, "kind", kind, "error", err)
			continue
		}

		return &models.NormalizedResult{
			Text:       answer,
			ProviderID: id,
			Category:   category,
			ElapsedMs:  time.Since(start).Milliseconds(),
		}, nil
	}

	return nil, &AllProvidersFailedError{Category: category, Attempts: attempts}
}
