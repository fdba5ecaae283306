package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/shpitdev/call-analyzer/internal/classify"
)

const anthropicMaxTokens = 1024

type anthropicCompleter struct {
	client anthropic.Client
	model  string
}

func newAnthropicCompleter(_ context.Context, cfg Config) (classify.Completer, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("ANTHROPIC_API_KEY is required for the anthropic provider")
	}
	model := cfg.Model
	if model == "" {
		model = DefaultModel(ProviderAnthropic)
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(cfg.HTTPClient))
	}
	return &anthropicCompleter{client: anthropic.NewClient(opts...), model: model}, nil
}

func (a *anthropicCompleter) Name() string { return "Anthropic" }

// Ping lists models, which checks both reachability and the API key.
func (a *anthropicCompleter) Ping(ctx context.Context) error {
	if _, err := a.client.Models.List(ctx, anthropic.ModelListParams{}); err != nil {
		return fmt.Errorf("anthropic: list models: %w", err)
	}
	return nil
}

// Complete returns the first text block of the reply.
func (a *anthropicCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	message, err := a.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(a.model),
		MaxTokens: anthropicMaxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("anthropic: create message: %w", err)
	}
	for _, block := range message.Content {
		if block.Type == "text" {
			return block.Text, nil
		}
	}
	return "", errors.New("anthropic: no text content in response")
}
