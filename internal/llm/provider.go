// Package llm provides the completion backends the classifier talks to.
//
// Each provider is a classify.Completer registered by name. A completion is a
// single attempt: clients are built without SDK-level retries.
package llm

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/shpitdev/call-analyzer/internal/classify"
)

type Provider string

const (
	ProviderOllama    Provider = "ollama"
	ProviderGemini    Provider = "gemini"
	ProviderAnthropic Provider = "anthropic"
)

// Config selects and configures a provider.
type Config struct {
	Provider Provider
	Model    string
	// BaseURL overrides the provider API base URL. Useful for proxies/testing.
	BaseURL string
	APIKey  string

	// HTTPClient is used for provider traffic when set.
	HTTPClient *http.Client
}

// Factory builds a Completer from cfg.
type Factory func(ctx context.Context, cfg Config) (classify.Completer, error)

var registry = map[Provider]Factory{
	ProviderOllama:    newOllamaCompleter,
	ProviderGemini:    newGeminiCompleter,
	ProviderAnthropic: newAnthropicCompleter,
}

// NormalizeProvider maps user input to a known provider name. Empty input
// selects ollama.
func NormalizeProvider(raw string) (Provider, error) {
	s := strings.TrimSpace(strings.ToLower(raw))
	switch s {
	case "", "ollama":
		return ProviderOllama, nil
	case "gemini", "google":
		return ProviderGemini, nil
	case "anthropic", "claude":
		return ProviderAnthropic, nil
	default:
		return "", fmt.Errorf("unknown llm provider %q (want one of %s)", raw, strings.Join(Providers(), ", "))
	}
}

// Providers returns the registered provider names, sorted.
func Providers() []string {
	out := make([]string, 0, len(registry))
	for p := range registry {
		out = append(out, string(p))
	}
	sort.Strings(out)
	return out
}

// New builds the Completer named by cfg.Provider.
func New(ctx context.Context, cfg Config) (classify.Completer, error) {
	p, err := NormalizeProvider(string(cfg.Provider))
	if err != nil {
		return nil, err
	}
	cfg.Provider = p
	cfg.Model = strings.TrimSpace(cfg.Model)
	cfg.BaseURL = strings.TrimSpace(cfg.BaseURL)
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	return registry[p](ctx, cfg)
}

// DefaultModel returns the model used when none is configured.
func DefaultModel(p Provider) string {
	switch p {
	case ProviderGemini:
		return "gemini-2.5-flash"
	case ProviderAnthropic:
		return "claude-sonnet-4-5"
	default:
		return "call_analyzer"
	}
}
