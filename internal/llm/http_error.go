package llm

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/shpitdev/call-analyzer/internal/redact"
)

// ollamaErrorEnvelope is the error body shape returned by the Ollama API.
type ollamaErrorEnvelope struct {
	Error string `json:"error"`
}

// HTTPError is a sanitized summary of a non-2xx provider API response.
//
// Important: do not include raw response bodies here (can leak PII/tokens).
type HTTPError struct {
	Provider   string
	Op         string
	StatusCode int
	Status     string
	// Message is the provider's own error text when the body carried one.
	Message string

	// Snippet is a redacted, truncated hint for unstructured responses.
	Snippet string
}

func (e *HTTPError) Error() string {
	if e == nil {
		return "llm http error"
	}
	parts := []string{
		fmt.Sprintf("%s api error: op=%s status=%s", strings.TrimSpace(e.Provider), strings.TrimSpace(e.Op), strings.TrimSpace(e.Status)),
	}
	if strings.TrimSpace(e.Message) != "" {
		parts = append(parts, "message="+strings.TrimSpace(e.Message))
	}
	if strings.TrimSpace(e.Snippet) != "" {
		parts = append(parts, "body="+strings.TrimSpace(e.Snippet))
	}
	return strings.Join(parts, " ")
}

func newHTTPError(provider, op string, resp *http.Response, body []byte) error {
	h := &HTTPError{Provider: provider, Op: op}
	if resp != nil {
		h.StatusCode = resp.StatusCode
		h.Status = resp.Status
	}

	var env ollamaErrorEnvelope
	if len(body) > 0 && json.Unmarshal(body, &env) == nil && strings.TrimSpace(env.Error) != "" {
		h.Message = redactAndTruncate([]byte(env.Error))
		return h
	}

	h.Snippet = redactAndTruncate(body)
	return h
}

func redactAndTruncate(body []byte) string {
	if len(body) == 0 {
		return ""
	}
	const max = 256
	b := body
	if len(b) > max {
		b = b[:max]
	}
	s := redact.Secrets(string(b))
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "\r", " ")
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if len(body) > max {
		return s + "..."
	}
	return s
}
