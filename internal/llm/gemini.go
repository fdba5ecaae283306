package llm

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"

	"github.com/shpitdev/call-analyzer/internal/classify"
)

type gemini struct {
	client *genai.Client
	model  string
}

func newGeminiCompleter(ctx context.Context, cfg Config) (classify.Completer, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("GEMINI_API_KEY is required for the gemini provider")
	}
	model := cfg.Model
	if model == "" {
		model = DefaultModel(ProviderGemini)
	}

	cc := &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: cfg.HTTPClient,
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions.BaseURL = cfg.BaseURL
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}
	return &gemini{client: client, model: model}, nil
}

func (g *gemini) Name() string { return "Gemini" }

// Ping fetches the configured model's metadata.
func (g *gemini) Ping(ctx context.Context) error {
	if _, err := g.client.Models.Get(ctx, g.model, nil); err != nil {
		return fmt.Errorf("gemini: get model %s: %w", g.model, err)
	}
	return nil
}

func (g *gemini) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), &genai.GenerateContentConfig{
		CandidateCount: 1,
	})
	if err != nil {
		return "", fmt.Errorf("gemini: generate content: %w", err)
	}
	return resp.Text(), nil
}
