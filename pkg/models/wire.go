package models

// QueryRequest is the body of POST /query.
type QueryRequest struct {
	Query string `json:"query"`
}

// QueryResponse is the success body of POST /query.
type QueryResponse struct {
	Response   string `json:"response"`
	ProviderID string `json:"providerId"`
	Category   string `json:"category"`
}

// ErrorResponse is the body of any non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// SyncItem is one queued query inside a sync batch, keyed by the
// client-assigned queue id.
type SyncItem struct {
	ID    int64  `json:"id"`
	Query string `json:"query"`
}

// SyncRequest is the body of POST /sync.
type SyncRequest struct {
	Items []SyncItem `json:"items"`
}

// SyncResult is the per-item outcome of a sync batch. Every id sent in the
// request appears exactly once in the response, success or error. Results
// are matched by ID, never by position.
type SyncResult struct {
	ID         int64  `json:"id"`
	Response   string `json:"response,omitempty"`
	ProviderID string `json:"providerId,omitempty"`
	Category   string `json:"category,omitempty"`
	Error      string `json:"error,omitempty"`
}

// SyncResponse is the body of a successful POST /sync.
type SyncResponse struct {
	Results []SyncResult `json:"results"`
}
