package models

import "time"

// Category is a closed set of query intents. Each category selects one
// failover chain.
type Category string

const (
	CategoryFinancialAnalysis Category = "financial_analysis"
	CategoryBusinessNews      Category = "business_news"
	CategoryCreative          Category = "creative"
	CategoryGeneralKnowledge  Category = "general_knowledge"
)

// Categories lists all valid categories in classifier evaluation order.
var Categories = []Category{
	CategoryFinancialAnalysis,
	CategoryCreative,
	CategoryBusinessNews,
	CategoryGeneralKnowledge,
}

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	switch c {
	case CategoryFinancialAnalysis, CategoryBusinessNews, CategoryCreative, CategoryGeneralKnowledge:
		return true
	}
	return false
}

func (c Category) String() string { return string(c) }

// Query is a single free-text user question. Immutable once created.
type Query struct {
	Text        string    `json:"text"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// Classification is the derived category assignment for a query. It is never
// persisted independently of the query that produced it.
type Classification struct {
	Category     Category `json:"category"`
	Confidence   float64  `json:"confidence"`
	MatchedTerms []string `json:"matched_terms,omitempty"`
	// Invalid marks input the classifier could not interpret (malformed
	// text). Classification still succeeds so it never blocks routing.
	Invalid bool `json:"invalid,omitempty"`
}

// NormalizedResult is the provider-independent shape of a successful answer.
// Exactly one provider's result is returned per routed query.
type NormalizedResult struct {
	Text       string   `json:"response"`
	ProviderID string   `json:"providerId"`
	Category   Category `json:"category"`
	ElapsedMs  int64    `json:"elapsedMs"`
}
