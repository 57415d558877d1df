package classify

import (
	"math"
	"testing"

	"github.com/askroute/askroute/pkg/config"
	"github.com/askroute/askroute/pkg/models"
)

func newTestClassifier() *Classifier {
	return New(config.Default().Keywords)
}

func TestFinancialBeatsOtherCategories(t *testing.T) {
	c := newTestClassifier()

	// Contains both a financial and a news keyword; financial is evaluated
	// first and must win regardless of match counts.
	queries := []string{
		"latest news about my stock portfolio today",
		"write a poem about dividend earnings",
		"breaking: should I invest now?",
	}
	for _, q := range queries {
		got := c.Classify(q)
		if got.Category != models.CategoryFinancialAnalysis {
			t.Errorf("Classify(%q) = %s, want financial_analysis", q, got.Category)
		}
	}
}

func TestCreativeBeatsNews(t *testing.T) {
	c := newTestClassifier()
	got := c.Classify("write a poem about today's headline")
	if got.Category != models.CategoryCreative {
		t.Errorf("expected creative, got %s", got.Category)
	}
}

func TestNewsCategory(t *testing.T) {
	c := newTestClassifier()
	got := c.Classify("What's in the news today?")
	if got.Category != models.CategoryBusinessNews {
		t.Errorf("expected business_news, got %s", got.Category)
	}
	if len(got.MatchedTerms) < 2 {
		t.Errorf("expected at least 2 matched terms, got %v", got.MatchedTerms)
	}
}

func TestNoMatchDefaultsToGeneral(t *testing.T) {
	c := newTestClassifier()
	got := c.Classify("how tall is mount everest")
	if got.Category != models.CategoryGeneralKnowledge {
		t.Errorf("expected general_knowledge, got %s", got.Category)
	}
	if got.Confidence != 0.5 {
		t.Errorf("expected confidence 0.5, got %v", got.Confidence)
	}
	if got.Invalid {
		t.Error("no-match input must not be flagged invalid")
	}
}

func TestEmptyStringNeverFails(t *testing.T) {
	c := newTestClassifier()
	got := c.Classify("")
	if got.Category != models.CategoryGeneralKnowledge {
		t.Errorf("expected general_knowledge for empty input, got %s", got.Category)
	}
	if got.Confidence != 0.5 {
		t.Errorf("expected confidence 0.5, got %v", got.Confidence)
	}
}

func TestMalformedInputFlagged(t *testing.T) {
	c := newTestClassifier()
	got := c.Classify(string([]byte{0xff, 0xfe, 0xfd}))
	if got.Category != models.CategoryGeneralKnowledge {
		t.Errorf("expected general_knowledge, got %s", got.Category)
	}
	if got.Confidence != 0 {
		t.Errorf("expected confidence 0, got %v", got.Confidence)
	}
	if !got.Invalid {
		t.Error("expected invalid flag for malformed input")
	}
}

func TestConfidenceScalesWithMatches(t *testing.T) {
	c := newTestClassifier()

	one := c.Classify("tell me about this stock")
	if math.Abs(one.Confidence-0.3) > 1e-9 {
		t.Errorf("1 match: expected 0.3, got %v", one.Confidence)
	}

	two := c.Classify("stock dividend outlook")
	if math.Abs(two.Confidence-0.6) > 1e-9 {
		t.Errorf("2 matches: expected 0.6, got %v", two.Confidence)
	}

	capped := c.Classify("stock dividend earnings bond etf")
	if capped.Confidence != 1.0 {
		t.Errorf("5 matches: expected cap at 1.0, got %v", capped.Confidence)
	}
}

func TestCaseInsensitive(t *testing.T) {
	c := newTestClassifier()
	got := c.Classify("SHOULD I BUY THIS STOCK")
	if got.Category != models.CategoryFinancialAnalysis {
		t.Errorf("expected financial_analysis, got %s", got.Category)
	}
}

func TestDeterministic(t *testing.T) {
	c := newTestClassifier()
	q := "latest earnings news today"
	first := c.Classify(q)
	for i := 0; i < 10; i++ {
		if got := c.Classify(q); got.Category != first.Category || got.Confidence != first.Confidence {
			t.Fatalf("classification not deterministic: %+v vs %+v", got, first)
		}
	}
}
