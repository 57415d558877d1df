package provider

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/askroute/askroute/pkg/config"
)

func openAIConfig(endpoint string) config.ProviderConfig {
	return config.ProviderConfig{
		ID:       "openai-test",
		Type:     config.ProviderTypeOpenAI,
		Model:    "gpt-4o-mini",
		Endpoint: endpoint,
		APIKey:   "sk-test",
	}
}

func TestOpenAICallSuccess(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"chatcmpl-1","object":"chat.completion","model":"gpt-4o-mini",
			"choices":[{"index":0,"message":{"role":"assistant","content":"42"},"finish_reason":"stop"}]}`))
	}))
	defer upstream.Close()

	a, err := New(openAIConfig(upstream.URL), 5*time.Second)
	if err != nil {
		t.Fatal(err)
	}

	got, err := a.Call(context.Background(), "what is the answer")
	if err != nil {
		t.Fatal(err)
	}
	if got != "42" {
		t.Errorf("expected %q, got %q", "42", got)
	}
}

func TestOpenAIRateLimited(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"rate limit exceeded"}}`, http.StatusTooManyRequests)
	}))
	defer upstream.Close()

	a, _ := New(openAIConfig(upstream.URL), 5*time.Second)
	_, err := a.Call(context.Background(), "hi")

	var callErr *CallError
	if !errors.As(err, &callErr) {
		t.Fatalf("expected *CallError, got %T: %v", err, err)
	}
	if callErr.Kind != KindRateLimited {
		t.Errorf("expected rate_limited, got %s", callErr.Kind)
	}
	if callErr.HTTPStatus != http.StatusTooManyRequests {
		t.Errorf("expected status 429, got %d", callErr.HTTPStatus)
	}
	if callErr.ProviderID != "openai-test" {
		t.Errorf("expected provider id in error, got %q", callErr.ProviderID)
	}
}

func TestOpenAIUnavailable(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"boom"}}`, http.StatusServiceUnavailable)
	}))
	defer upstream.Close()

	a, _ := New(openAIConfig(upstream.URL), 5*time.Second)
	_, err := a.Call(context.Background(), "hi")

	var callErr *CallError
	if !errors.As(err, &callErr) {
		t.Fatalf("expected *CallError, got %T", err)
	}
	if callErr.Kind != KindUnavailable {
		t.Errorf("expected unavailable, got %s", callErr.Kind)
	}
}

func TestOpenAIEmptyChoices(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"chatcmpl-1","object":"chat.completion","model":"gpt-4o-mini","choices":[]}`))
	}))
	defer upstream.Close()

	a, _ := New(openAIConfig(upstream.URL), 5*time.Second)
	_, err := a.Call(context.Background(), "hi")

	var callErr *CallError
	if !errors.As(err, &callErr) {
		t.Fatalf("expected *CallError, got %T", err)
	}
	if callErr.Kind != KindInvalidResponse {
		t.Errorf("expected invalid_response, got %s", callErr.Kind)
	}
}

func TestOpenAITimeout(t *testing.T) {
	blocked := make(chan struct{})
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-blocked
	}))
	defer upstream.Close()
	defer close(blocked)

	a, _ := New(openAIConfig(upstream.URL), 50*time.Millisecond)
	_, err := a.Call(context.Background(), "hi")

	var callErr *CallError
	if !errors.As(err, &callErr) {
		t.Fatalf("expected *CallError, got %T: %v", err, err)
	}
	if callErr.Kind != KindTimeout {
		t.Errorf("expected timeout, got %s", callErr.Kind)
	}
}

func TestAnthropicCallSuccess(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"msg_1","type":"message","role":"assistant","model":"claude-haiku-4-5",
			"content":[{"type":"text","text":"hello there"}],"stop_reason":"end_turn"}`))
	}))
	defer upstream.Close()

	a, err := New(config.ProviderConfig{
		ID:       "anthropic-test",
		Type:     config.ProviderTypeAnthropic,
		Model:    "claude-haiku-4-5",
		Endpoint: upstream.URL,
		APIKey:   "sk-ant-test",
	}, 5*time.Second)
	if err != nil {
		t.Fatal(err)
	}

	got, err := a.Call(context.Background(), "hi")
	if err != nil {
		t.Fatal(err)
	}
	if got != "hello there" {
		t.Errorf("expected %q, got %q", "hello there", got)
	}
}

func TestAnthropicRateLimited(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"type":"error","error":{"type":"rate_limit_error","message":"slow down"}}`, http.StatusTooManyRequests)
	}))
	defer upstream.Close()

	a, _ := New(config.ProviderConfig{
		ID:       "anthropic-test",
		Type:     config.ProviderTypeAnthropic,
		Model:    "claude-haiku-4-5",
		Endpoint: upstream.URL,
		APIKey:   "sk-ant-test",
	}, 5*time.Second)

	_, err := a.Call(context.Background(), "hi")
	var callErr *CallError
	if !errors.As(err, &callErr) {
		t.Fatalf("expected *CallError, got %T", err)
	}
	if callErr.Kind != KindRateLimited {
		t.Errorf("expected rate_limited, got %s", callErr.Kind)
	}
}

func TestNewUnknownType(t *testing.T) {
	_, err := New(config.ProviderConfig{ID: "x", Type: "mystery"}, time.Second)
	if err == nil {
		t.Error("expected error for unknown provider type")
	}
}
