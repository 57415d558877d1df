package provider

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/askroute/askroute/pkg/config"
)

const anthropicMaxTokens = 1024

// Anthropic adapts the Anthropic messages endpoint.
type Anthropic struct {
	id      string
	model   string
	timeout time.Duration
	client  anthropic.Client
}

func newAnthropic(cfg config.ProviderConfig, timeout time.Duration) *Anthropic {
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithBaseURL(cfg.Endpoint))
	}
	return &Anthropic{
		id:      cfg.ID,
		model:   cfg.Model,
		timeout: timeout,
		client:  anthropic.NewClient(opts...),
	}
}

func (a *Anthropic) ID() string { return a.id }

// Call sends the query as a single-turn message.
func (a *Anthropic) Call(ctx context.Context, query string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	resp, err := a.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(a.model),
		MaxTokens: anthropicMaxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(query)),
		},
	})
	if err != nil {
		return "", a.mapError(err)
	}

	if len(resp.Content) == 0 || resp.Content[0].Text == "" {
		return "", &CallError{ProviderID: a.id, Kind: KindInvalidResponse, Cause: errors.New("empty message content")}
	}
	return resp.Content[0].Text, nil
}

func (a *Anthropic) mapError(err error) error {
	var apierr *anthropic.Error
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
