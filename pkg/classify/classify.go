package classify

import (
	"strings"
	"unicode/utf8"

	"github.com/askroute/askroute/pkg/config"
	"github.com/askroute/askroute/pkg/models"
)

// confidencePerMatch is the weight of a single keyword hit, capped at 1.0.
const confidencePerMatch = 0.3

// noMatchConfidence is assigned when no keyword set matches.
const noMatchConfidence = 0.5

// Classifier assigns a category to free-text queries by case-insensitive
// substring matching against fixed keyword lists.
//
// Evaluation order is fixed: financial, then creative, then news. The first
// category with at least one match wins regardless of match counts in later
// sets.
type Classifier struct {
	sets []keywordSet
}

type keywordSet struct {
	category models.Category
	keywords []string
}

// New builds a Classifier from configured keyword lists. Keywords are
// lower-cased once here so Classify only lower-cases the query.
func New(kw config.KeywordsConfig) *Classifier {
	return &Classifier{
		sets: []keywordSet{
			{models.CategoryFinancialAnalysis, lowerAll(kw.Financial)},
			{models.CategoryCreative, lowerAll(kw.Creative)},
			{models.CategoryBusinessNews, lowerAll(kw.News)},
		},
	}
}

func lowerAll(words []string) []string {
	out := make([]string, 0, len(words))
	for _, w := range words {
		if w = strings.ToLower(strings.TrimSpace(w)); w != "" {
			out = append(out, w)
		}
	}
	return out
}

// Classify maps query text to a category. It is deterministic and total:
// it never fails, including on empty or malformed input, so classification
// can never block the routing pipeline.
func (c *Classifier) Classify(text string) models.Classification {
	if !utf8.ValidString(text) {
		return models.Classification{
			Category:   models.CategoryGeneralKnowledge,
			Confidence: 0,
			Invalid:    true,
		}
	}

	lower := strings.ToLower(text)

	for _, set := range c.sets {
		var matched []string
		for _, kw := range set.keywords {
			if strings.Contains(lower, kw) {
				matched = append(matched, kw)
			}
		}
		if len(matched) == 0 {
			continue
		}
		conf := confidencePerMatch * float64(len(matched))
		if conf > 1.0 {
			conf = 1.0
		}
		return models.Classification{
			Category:     set.category,
			Confidence:   conf,
			MatchedTerms: matched,
		}
	}

	return models.Classification{
		Category:   models.CategoryGeneralKnowledge,
		Confidence: noMatchConfidence,
	}
}
