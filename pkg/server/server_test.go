package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/askroute/askroute/pkg/config"
	"github.com/askroute/askroute/pkg/models"
	"github.com/askroute/askroute/pkg/provider"
	"github.com/askroute/askroute/pkg/router"
)

type fakeAdapter struct {
	id     string
	answer string
	err    error
	calls  int
}

func (f *fakeAdapter) ID() string { return f.id }

func (f *fakeAdapter) Call(ctx context.Context, query string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.answer, nil
}

func newTestServer(t *testing.T, adapters map[string]provider.Adapter, maxRequests int) *Server {
	t.Helper()

	cfg := config.Default()
	var chain []string
	for id := range adapters {
		chain = append(chain, id)
	}
	// Deterministic chain order for multi-provider tests.
	if len(chain) > 1 {
		t.Fatal("use newTestServerWithChain for multiple providers")
	}
	for _, id := range chain {
		cfg.Providers = append(cfg.Providers, config.ProviderConfig{
			ID: id, Type: config.ProviderTypeOpenAI, Model: "m",
			RateLimit: config.RateLimitConfig{WindowSeconds: 60, MaxRequests: maxRequests},
		})
	}
	cfg.Chains = config.ChainsConfig{
		FinancialAnalysis: chain,
		BusinessNews:      chain,
		Creative:          chain,
		GeneralKnowledge:  chain,
	}

	rt := router.New(cfg, adapters, nil)
	return New(cfg, rt, nil, nil)
}

func postJSON(t *testing.T, srv *Server, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	return w
}

func TestQuerySuccess(t *testing.T) {
	srv := newTestServer(t, map[string]provider.Adapter{
		"p1": &fakeAdapter{id: "p1", answer: "the markets closed higher"},
	}, 100)

	w := postJSON(t, srv, "/query", `{"query":"what happened to my stock today?"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp models.QueryResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Response != "the markets closed higher" {
		t.Errorf("unexpected response: %q", resp.Response)
	}
	if resp.ProviderID != "p1" {
		t.Errorf("expected provider p1, got %s", resp.ProviderID)
	}
	if resp.Category != string(models.CategoryFinancialAnalysis) {
		t.Errorf("expected financial_analysis, got %s", resp.Category)
	}
}

func TestQueryValidation(t *testing.T) {
	adapter := &fakeAdapter{id: "p1", answer: "x"}
	srv := newTestServer(t, map[string]provider.Adapter{"p1": adapter}, 100)

	for _, body := range []string{`{"query":""}`, `{"query":"   "}`, `not json`} {
		w := postJSON(t, srv, "/query", body)
		if w.Code != http.StatusBadRequest {
			t.Errorf("body %q: expected 400, got %d", body, w.Code)
		}
		var resp models.ErrorResponse
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil || resp.Error == "" {
			t.Errorf("body %q: expected error payload, got %s", body, w.Body.String())
		}
	}
	if adapter.calls != 0 {
		t.Error("validation failures must not reach providers")
	}
}

func TestQueryAllProvidersFailed(t *testing.T) {
	srv := newTestServer(t, map[string]provider.Adapter{
		"p1": &fakeAdapter{id: "p1", err: &provider.CallError{ProviderID: "p1", Kind: provider.KindUnavailable, Cause: errors.New("down")}},
	}, 100)

	w := postJSON(t, srv, "/query", `{"query":"anything at all"}`)
	if w.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", w.Code)
	}

	var resp models.ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if strings.Contains(resp.Error, "down") {
		t.Error("provider error details must not leak to clients")
	}
}

func TestQueryGloballyRateLimitedIsDistinct(t *testing.T) {
	srv := newTestServer(t, map[string]provider.Adapter{
		"p1": &fakeAdapter{id: "p1", answer: "ok"},
	}, 1)

	if w := postJSON(t, srv, "/query", `{"query":"first question"}`); w.Code != http.StatusOK {
		t.Fatalf("first query: expected 200, got %d", w.Code)
	}

	w := postJSON(t, srv, "/query", `{"query":"second question"}`)
	if w.Code != http.StatusTooManyRequests {
		t.Errorf("expected 429 when every provider is rate limited, got %d", w.Code)
	}
}

func TestSyncResultsMatchedByID(t *testing.T) {
	srv := newTestServer(t, map[string]provider.Adapter{
		"p1": &fakeAdapter{id: "p1", answer: "answer"},
	}, 100)

	w := postJSON(t, srv, "/sync", `{"items":[
		{"id":7,"query":"what is go"},
		{"id":3,"query":""},
		{"id":11,"query":"what is sqlite"}]}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp models.SyncResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Results) != 3 {
		t.Fatalf("expected one result per input id, got %d", len(resp.Results))
	}

	byID := make(map[int64]models.SyncResult, len(resp.Results))
	for _, r := range resp.Results {
		byID[r.ID] = r
	}
	for _, id := range []int64{7, 3, 11} {
		if _, ok := byID[id]; !ok {
			t.Errorf("missing result for id %d", id)
		}
	}
	if byID[7].Response != "answer" || byID[7].Error != "" {
		t.Errorf("id 7 should succeed: %+v", byID[7])
	}
	if byID[3].Error == "" {
		t.Errorf("id 3 (empty query) should carry an error: %+v", byID[3])
	}
	if byID[11].Response != "answer" {
		t.Errorf("id 11 should succeed: %+v", byID[11])
	}
}

func TestSyncEmptyBatch(t *testing.T) {
	srv := newTestServer(t, map[string]provider.Adapter{
		"p1": &fakeAdapter{id: "p1", answer: "x"},
	}, 100)

	w := postJSON(t, srv, "/sync", `{"items":[]}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var resp models.SyncResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Results) != 0 {
		t.Errorf("expected empty results, got %d", len(resp.Results))
	}
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t, map[string]provider.Adapter{
		"p1": &fakeAdapter{id: "p1", answer: "x"},
	}, 100)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "ok") {
		t.Errorf("unexpected health body: %s", w.Body.String())
	}
}
