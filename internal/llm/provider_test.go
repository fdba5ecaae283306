package llm_test

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/shpitdev/call-analyzer/internal/llm"
)

func TestNormalizeProvider(t *testing.T) {
	tests := []struct {
		in      string
		want    llm.Provider
		wantErr bool
	}{
		{in: "", want: llm.ProviderOllama},
		{in: " Ollama ", want: llm.ProviderOllama},
		{in: "gemini", want: llm.ProviderGemini},
		{in: "google", want: llm.ProviderGemini},
		{in: "ANTHROPIC", want: llm.ProviderAnthropic},
		{in: "claude", want: llm.ProviderAnthropic},
		{in: "openai", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := llm.NormalizeProvider(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("got %q want %q", got, tt.want)
			}
		})
	}
}

func TestProviders(t *testing.T) {
	if diff := cmp.Diff([]string{"anthropic", "gemini", "ollama"}, llm.Providers()); diff != "" {
		t.Fatalf("providers mismatch (-want +got):\n%s", diff)
	}
}

func TestNew_RejectsUnknownProvider(t *testing.T) {
	if _, err := llm.New(context.Background(), llm.Config{Provider: "bard"}); err == nil {
		t.Fatalf("expected error")
	}
}

func TestNew_RequiresAPIKeyForHostedProviders(t *testing.T) {
	for _, p := range []llm.Provider{llm.ProviderGemini, llm.ProviderAnthropic} {
		if _, err := llm.New(context.Background(), llm.Config{Provider: p}); err == nil {
			t.Fatalf("%s: expected missing key error", p)
		}
	}
}
