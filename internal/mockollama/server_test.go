package mockollama_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shpitdev/call-analyzer/internal/mockollama"
)

func TestServer_ChatAndTags(t *testing.T) {
	srv := mockollama.New("soporte")
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	resp, err := http.Get(ts.URL + "/api/tags")
	if err != nil {
		t.Fatalf("tags: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("tags status=%d", resp.StatusCode)
	}

	body := `{"model":"call_analyzer","messages":[{"role":"user","content":"hola"}],"stream":false}`
	resp, err = http.Post(ts.URL+"/api/chat", "application/json", bytes.NewBufferString(body))
	if err != nil {
		t.Fatalf("chat: %v", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	var out struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		Done bool `json:"done"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	var cls map[string]string
	if err := json.Unmarshal([]byte(out.Message.Content), &cls); err != nil {
		t.Fatalf("content is not json: %q", out.Message.Content)
	}
	if cls["category"] != "soporte" || !out.Done {
		t.Fatalf("unexpected response: %#v", out)
	}

	calls := srv.ChatCalls()
	if len(calls) != 1 || calls[0].Prompt != "hola" || calls[0].Model != "call_analyzer" {
		t.Fatalf("unexpected chat calls: %#v", calls)
	}
}

func TestServer_RequireBearerToken(t *testing.T) {
	srv := mockollama.New("")
	srv.RequireBearerToken("secret")
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	resp, err := http.Get(ts.URL + "/api/tags")
	if err != nil {
		t.Fatalf("tags: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status=%d want 401", resp.StatusCode)
	}
}

func TestServer_RejectsStreaming(t *testing.T) {
	srv := mockollama.New("")
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	body := `{"model":"m","messages":[{"role":"user","content":"x"}]}`
	resp, err := http.Post(ts.URL+"/api/chat", "application/json", bytes.NewBufferString(body))
	if err != nil {
		t.Fatalf("chat: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status=%d want 400", resp.StatusCode)
	}
}
