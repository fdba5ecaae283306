// Package mockollama is an in-process fake of the Ollama HTTP API surface
// used by the analyzer: GET /api/tags and non-streaming POST /api/chat.
package mockollama

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"
)

// Call records a request made to the mock service.
type Call struct {
	Method string
	Path   string
	Model  string
	// Prompt is the content of the last user message for chat calls.
	Prompt string
}

// Responder produces the assistant content for a chat prompt.
type Responder func(prompt string) string

// Server implements a minimal Ollama-like API.
type Server struct {
	mu    sync.Mutex
	calls []Call

	expectedAuthorization string

	models    []string
	responder Responder
	delay     time.Duration

	// chatStatus, when non-zero, makes /api/chat fail with this status.
	chatStatus int
	chatBody   string
	tagsStatus int
}

// New constructs a mock that answers every chat prompt with category.
func New(category string) *Server {
	s := &Server{models: []string{"call_analyzer:latest"}}
	s.responder = FixedCategory(category)
	return s
}

// FixedCategory returns a Responder that always classifies as category.
func FixedCategory(category string) Responder {
	category = strings.TrimSpace(category)
	if category == "" {
		category = "venta"
	}
	return func(string) string {
		b, _ := json.Marshal(map[string]string{
			"category":      category,
			"justification": "respuesta simulada",
		})
		return string(b)
	}
}

// SetResponder replaces how chat prompts are answered.
func (s *Server) SetResponder(r Responder) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.responder = r
}

// SetModels sets the names listed by /api/tags.
func (s *Server) SetModels(names ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.models = append([]string(nil), names...)
}

// SetDelay makes every chat response wait d (or until the client goes away).
func (s *Server) SetDelay(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delay = d
}

// FailChat makes /api/chat answer with status and body. A zero status clears it.
func (s *Server) FailChat(status int, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chatStatus = status
	s.chatBody = body
}

// FailTags makes /api/tags answer with status. A zero status clears it.
func (s *Server) FailTags(status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tagsStatus = status
}

// RequireBearerToken enforces that requests include an Authorization header matching the token.
// If token is empty, authorization is not enforced.
func (s *Server) RequireBearerToken(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	token = strings.TrimSpace(token)
	if token == "" {
		s.expectedAuthorization = ""
		return
	}
	s.expectedAuthorization = "Bearer " + token
}

// Handler returns an http.Handler that serves the mock API.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/tags", s.handleTags)
	mux.HandleFunc("/api/chat", s.handleChat)
	return mux
}

// Calls returns a snapshot of calls made to the server.
func (s *Server) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Call, len(s.calls))
	copy(out, s.calls)
	return out
}

// ChatCalls returns only the /api/chat calls.
func (s *Server) ChatCalls() []Call {
	var out []Call
	for _, c := range s.Calls() {
		if c.Path == "/api/chat" {
			out = append(out, c)
		}
	}
	return out
}

func (s *Server) recordCall(c Call) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, c)
}

func (s *Server) authorize(w http.ResponseWriter, r *http.Request) bool {
	s.mu.Lock()
	expected := s.expectedAuthorization
	s.mu.Unlock()

	if expected == "" {
		return true
	}
	if r.Header.Get("Authorization") != expected {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return false
	}
	return true
}

type tagModel struct {
	Name  string `json:"name"`
	Model string `json:"model"`
}

func (s *Server) handleTags(w http.ResponseWriter, r *http.Request) {
	s.recordCall(Call{Method: r.Method, Path: r.URL.Path})
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if !s.authorize(w, r) {
		return
	}

	s.mu.Lock()
	status := s.tagsStatus
	names := append([]string(nil), s.models...)
	s.mu.Unlock()

	if status != 0 {
		http.Error(w, `{"error":"unavailable"}`, status)
		return
	}
	models := make([]tagModel, 0, len(names))
	for _, n := range names {
		models = append(models, tagModel{Name: n, Model: n})
	}
	writeJSON(w, http.StatusOK, map[string]any{"models": models})
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   *bool         `json:"stream"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.recordCall(Call{Method: r.Method, Path: r.URL.Path})
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.recordCall(Call{Method: r.Method, Path: r.URL.Path})
		http.Error(w, fmt.Sprintf(`{"error":%q}`, "invalid request: "+err.Error()), http.StatusBadRequest)
		return
	}
	prompt := ""
	for i := len(req.Messages) - 1; i >= 0; i-- {
		if req.Messages[i].Role == "user" {
			prompt = req.Messages[i].Content
			break
		}
	}
	s.recordCall(Call{Method: r.Method, Path: r.URL.Path, Model: req.Model, Prompt: prompt})
	if !s.authorize(w, r) {
		return
	}
	if req.Stream == nil || *req.Stream {
		http.Error(w, `{"error":"mock only supports stream=false"}`, http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	status, body := s.chatStatus, s.chatBody
	responder := s.responder
	delay := s.delay
	s.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-r.Context().Done():
			return
		}
	}
	if status != 0 {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"model":      req.Model,
		"created_at": time.Now().UTC().Format(time.RFC3339Nano),
		"message":    chatMessage{Role: "assistant", Content: responder(prompt)},
		"done":       true,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
