package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/shpitdev/call-analyzer/internal/classify"
	"github.com/shpitdev/call-analyzer/internal/version"
)

const defaultOllamaBaseURL = "http://localhost:11434"

// maxResponseBytes bounds how much of a provider response is read.
const maxResponseBytes = 4 << 20

// ollama implements classify.Completer for a local or proxied Ollama server.
type ollama struct {
	baseURL string
	model   string
	apiKey  string
	client  *http.Client
}

func newOllamaCompleter(_ context.Context, cfg Config) (classify.Completer, error) {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultOllamaBaseURL
	}
	model := cfg.Model
	if model == "" {
		model = DefaultModel(ProviderOllama)
	}
	client := cfg.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	return &ollama{baseURL: baseURL, model: model, apiKey: cfg.APIKey, client: client}, nil
}

func (o *ollama) Name() string { return "Ollama" }

type ollamaMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaChatRequest struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Stream   bool            `json:"stream"`
}

type ollamaChatResponse struct {
	Message ollamaMessage `json:"message"`
	Done    bool          `json:"done"`
}

// Ping lists local models, which fails fast when the server is down.
func (o *ollama) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.baseURL+"/api/tags", nil)
	if err != nil {
		return fmt.Errorf("ollama: create request: %w", err)
	}
	_, err = o.do(req, "tags")
	return err
}

// Complete sends prompt as a single user message and returns the reply content.
func (o *ollama) Complete(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(ollamaChatRequest{
		Model:    o.model,
		Messages: []ollamaMessage{{Role: "user", Content: prompt}},
		Stream:   false,
	})
	if err != nil {
		return "", fmt.Errorf("ollama: marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("ollama: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	raw, err := o.do(req, "chat")
	if err != nil {
		return "", err
	}
	var resp ollamaChatResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", fmt.Errorf("ollama: decode chat response: %w", err)
	}
	return resp.Message.Content, nil
}

func (o *ollama) do(req *http.Request, op string) ([]byte, error) {
	req.Header.Set("User-Agent", version.UserAgent())
	if o.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+o.apiKey)
	}
	resp, err := o.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ollama: %s request: %w", op, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("ollama: read %s response: %w", op, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, newHTTPError("ollama", op, resp, body)
	}
	return body, nil
}
