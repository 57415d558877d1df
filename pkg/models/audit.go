package models

import "time"

// Request log outcomes.
const (
	OutcomeSuccess     = "success"
	OutcomeAllFailed   = "all_providers_failed"
	OutcomeRateLimited = "rate_limited"
	OutcomeRejected    = "rejected"
)

// LogEntry is one routed query in the server-side request log.
type LogEntry struct {
	ID         int64     `json:"id"`
	RequestID  string    `json:"request_id"`
	Query      string    `json:"query"`
	Category   string    `json:"category"`
	Outcome    string    `json:"outcome"`
	ProviderID string    `json:"provider_id,omitempty"`
	// Attempts is the JSON-encoded attempt list for the failover chain walk.
	Attempts  string    `json:"attempts,omitempty"`
	LatencyMs int64     `json:"latency_ms"`
	CreatedAt time.Time `json:"created_at"`
}

// LogQueryOpts filters request log queries.
type LogQueryOpts struct {
	Category string
	Outcome  string
	Since    time.Time
	Limit    int
}
