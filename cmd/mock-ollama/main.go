package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/shpitdev/call-analyzer/internal/mockollama"
)

func main() {
	addr := defaultString("MOCK_OLLAMA_ADDR", ":11434")
	category := defaultString("MOCK_OLLAMA_CATEGORY", "venta")
	models := defaultString("MOCK_OLLAMA_MODELS", "call_analyzer:latest")
	token := defaultString("MOCK_OLLAMA_TOKEN", "")
	delay := time.Duration(0)

	fs := flag.NewFlagSet("mock-ollama", flag.ExitOnError)
	fs.StringVar(&addr, "addr", addr, "Listen address")
	fs.StringVar(&category, "category", category, "Category returned for every transcript")
	fs.StringVar(&models, "models", models, "Comma-separated model names reported by /api/tags")
	fs.StringVar(&token, "token", token, "Require this bearer token when set (also supports env: MOCK_OLLAMA_TOKEN)")
	fs.DurationVar(&delay, "delay", delay, "Artificial latency added to each chat response")
	_ = fs.Parse(os.Args[1:])

	srv := mockollama.New(category)
	srv.SetModels(splitCSV(models)...)
	srv.SetDelay(delay)
	if token != "" {
		srv.RequireBearerToken(token)
	}

	_, _ = fmt.Fprintf(os.Stdout, "mock-ollama listening on %s (category=%s models=%s)\n", addr, category, models)
	if err := http.ListenAndServe(addr, srv.Handler()); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		v := strings.TrimSpace(p)
		if v == "" {
			continue
		}
		out = append(out, v)
	}
	return out
}

func defaultString(envVar string, fallback string) string {
	v := strings.TrimSpace(os.Getenv(envVar))
	if v == "" {
		return fallback
	}
	return v
}
