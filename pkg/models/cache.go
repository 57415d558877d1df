package models

import "time"

// CacheEntry is a stored response keyed by the hash of its query text.
type CacheEntry struct {
	QueryHash  string    `json:"query_hash"`
	QueryText  string    `json:"query_text"`
	Response   string    `json:"response"`
	ProviderID string    `json:"provider_id"`
	Category   Category  `json:"category"`
	ElapsedMs  int64     `json:"elapsed_ms"`
	CreatedAt  time.Time `json:"created_at"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// Result converts the stored entry back to the normalized result shape.
func (e CacheEntry) Result() NormalizedResult {
	return NormalizedResult{
		Text:       e.Response,
		ProviderID: e.ProviderID,
		Category:   e.Category,
		ElapsedMs:  e.ElapsedMs,
	}
}

// CacheStats reports cache size and performance counters.
type CacheStats struct {
	Entries    int64 `json:"entries"`
	TotalBytes int64 `json:"total_bytes"`
	Hits       int64 `json:"hits"`
	Misses     int64 `json:"misses"`
}
