package models

import "time"

// Queue item states. An item that fails every sync attempt simply stays
// pending for the next sync cycle; there is no failed state.
const (
	QueueStatusPending = "pending"
	QueueStatusSynced  = "synced"
)

// QueueItem is a query held offline because the routing service was
// unreachable. Items are never deleted automatically; they remain for
// history display until explicitly cleared.
type QueueItem struct {
	ID         int64      `json:"id"`
	QueryText  string     `json:"query_text"`
	EnqueuedAt time.Time  `json:"enqueued_at"`
	Status     string     `json:"status"`
	SyncedAt   *time.Time `json:"synced_at,omitempty"`
}
