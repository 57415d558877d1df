package provider

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"

	"github.com/askroute/askroute/pkg/config"
)

const openAIMaxTokens = 1024

// OpenAI adapts an OpenAI-compatible chat completion endpoint.
type OpenAI struct {
	id      string
	model   string
	timeout time.Duration
	client  openai.Client
}

func newOpenAI(cfg config.ProviderConfig, timeout time.Duration) *OpenAI {
	// Failover is the orchestrator's job; the SDK must not retry on its own.
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithBaseURL(cfg.Endpoint))
	}
	return &OpenAI{
		id:      cfg.ID,
		model:   cfg.Model,
		timeout: timeout,
		client:  openai.NewClient(opts...),
	}
}

func (a *OpenAI) ID() string { return a.id }

// Call sends the query as a single-turn chat completion.
func (a *OpenAI) Call(ctx context.Context, query string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	resp, err := a.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(a.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(query),
		},
		MaxTokens: openai.Int(openAIMaxTokens),
	})
	if err != nil {
		return "", a.mapError(err)
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", &CallError{ProviderID: a.id, Kind: KindInvalidResponse, Cause: errors.New("empty completion")}
	}
	return resp.Choices[0].Message.Content, nil
}

func (a *OpenAI) mapError(err error) error {
	var apierr *openai.Error
	if errors.As(err, &apierr) {
		kind := KindInvalidResponse
		switch {
		case apierr.StatusCode == http.StatusTooManyRequests:
			kind = KindRateLimited
		case apierr.StatusCode >= 500:
			kind = KindUnavailable
		}
		return &CallError{ProviderID: a.id, Kind: kind, HTTPStatus: apierr.StatusCode, Cause: err}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &CallError{ProviderID: a.id, Kind: KindTimeout, Cause: err}
	}
	return &CallError{ProviderID: a.id, Kind: KindUnavailable, Cause: err}
}
