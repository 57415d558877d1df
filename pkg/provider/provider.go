// Package provider wraps upstream LLM providers behind a uniform call
// contract. Adapters translate to and from provider-specific request shapes,
// enforce a per-call timeout, and map provider errors into a small closed set
// of failure kinds the failover orchestrator understands.
package provider

import (
	"context"
	"fmt"
	"time"

	"github.com/askroute/askroute/pkg/config"
)

// ErrorKind classifies a failed provider call.
type ErrorKind string

const (
	KindRateLimited     ErrorKind = "rate_limited"
	KindUnavailable     ErrorKind = "unavailable"
	KindTimeout         ErrorKind = "timeout"
	KindInvalidResponse ErrorKind = "invalid_response"
)

// CallError is the typed failure returned by every adapter.
type CallError struct {
	ProviderID string
	Kind       ErrorKind
	HTTPStatus int
	Cause      error
}

func (e *CallError) Error() string {
	if e.HTTPStatus > 0 {
		return fmt.Sprintf("provider %s: %s (status %d): %v", e.ProviderID, e.Kind, e.HTTPStatus, e.Cause)
	}
	return fmt.Sprintf("provider %s: %s: %v", e.ProviderID, e.Kind, e.Cause)
}

func (e *CallError) Unwrap() error { return e.Cause }

// Adapter is the uniform contract for one upstream provider. Call has no
// side effects beyond the outbound network request.
type Adapter interface {
	// ID returns the configured provider id.
	ID() string
	// Call sends the query upstream and returns the answer text. Failures
	// are always a *CallError.
	Call(ctx context.Context, query string) (string, error)
}

// New builds an adapter for the given provider config. The timeout bounds
// every individual upstream call.
func New(cfg config.ProviderConfig, timeout time.Duration) (Adapter, error) {
	switch cfg.Type {
	case config.ProviderTypeOpenAI:
		return newOpenAI(cfg, timeout), nil
	case config.ProviderTypeAnthropic:
		return newAnthropic(cfg, timeout), nil
	default:
		return nil, fmt.Errorf("unknown provider type %q for %q", cfg.Type, cfg.ID)
	}
}
