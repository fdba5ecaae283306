package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/shpitdev/call-analyzer/internal/config"
	"github.com/shpitdev/call-analyzer/internal/llm"
	"github.com/shpitdev/call-analyzer/internal/logging"
	"github.com/shpitdev/call-analyzer/internal/pipeline"
	"github.com/shpitdev/call-analyzer/internal/publish"
)

// runFlags are shared by run and watch.
type runFlags struct {
	input          string
	output         string
	provider       string
	model          string
	baseURL        string
	promptPrefix   string
	requestTimeout time.Duration
	rateLimitRPS   float64
}

func addRunFlags(cmd *cobra.Command, rf *runFlags) {
	f := cmd.Flags()
	f.StringVarP(&rf.input, "input", "i", "", "Input CSV with conversation_id and transcript columns (env: ANALYZER_INPUT)")
	f.StringVarP(&rf.output, "output", "o", "", "Result CSV, created if missing and resumed if present (env: ANALYZER_OUTPUT)")
	f.StringVar(&rf.provider, "provider", "", "LLM provider: ollama, gemini, anthropic (env: LLM_PROVIDER)")
	f.StringVar(&rf.model, "model", "", "Model name (env: LLM_MODEL)")
	f.StringVar(&rf.baseURL, "base-url", "", "Provider API base URL override (env: LLM_BASE_URL)")
	f.StringVar(&rf.promptPrefix, "prompt-prefix", "", "Text placed before each transcript (env: PROMPT_PREFIX)")
	f.DurationVar(&rf.requestTimeout, "request-timeout", 0, "Per-call timeout, 0 keeps the configured value (env: REQUEST_TIMEOUT)")
	f.Float64Var(&rf.rateLimitRPS, "rate-limit-rps", 0, "Max completion calls per second, 0 disables (env: RATE_LIMIT_RPS)")
}

// loadConfig layers changed flags over the file and environment config.
func loadConfig(cmd *cobra.Command, rf *runFlags) (config.Config, error) {
	cfg, err := config.Load(rootFlags.configPath)
	if err != nil {
		return config.Config{}, err
	}
	f := cmd.Flags()
	if f.Changed("log-level") {
		cfg.LogLevel = rootFlags.logLevel
	}
	if f.Changed("input") {
		cfg.Input = rf.input
	}
	if f.Changed("output") {
		cfg.Output = rf.output
	}
	if f.Changed("provider") {
		cfg.LLM.Provider = rf.provider
	}
	if f.Changed("model") {
		cfg.LLM.Model = rf.model
	}
	if f.Changed("base-url") {
		cfg.LLM.BaseURL = rf.baseURL
	}
	if f.Changed("prompt-prefix") {
		cfg.PromptPrefix = rf.promptPrefix
	}
	if f.Changed("request-timeout") && rf.requestTimeout != 0 {
		cfg.RequestTimeout = rf.requestTimeout
	}
	if f.Changed("rate-limit-rps") {
		cfg.RateLimitRPS = rf.rateLimitRPS
	}
	return cfg, cfg.Validate()
}

func setupLogging(cfg config.Config) *slog.Logger {
	logger := logging.Configure(os.Stderr, cfg.LogLevel)
	if cfg.Source != "" {
		logger.Info("loaded config", "path", cfg.Source)
	}
	return logger
}

func newRunner(ctx context.Context, cfg config.Config, logger *slog.Logger) (*pipeline.Runner, error) {
	completer, err := llm.New(ctx, llm.Config{
		Provider: llm.Provider(cfg.LLM.Provider),
		Model:    cfg.LLM.Model,
		BaseURL:  cfg.LLM.BaseURL,
		APIKey:   cfg.APIKeyFor(cfg.LLM.Provider),
	})
	if err != nil {
		return nil, err
	}
	return pipeline.New(completer, pipeline.Options{
		InputPath:      cfg.Input,
		OutputPath:     cfg.Output,
		PromptPrefix:   cfg.PromptPrefix,
		RequestTimeout: cfg.RequestTimeout,
		RateLimitRPS:   cfg.RateLimitRPS,
		Logger:         logger,
	})
}

func newPublisher(cfg config.Config) (*publish.Publisher, error) {
	if !cfg.Publish.Enabled() {
		return nil, nil
	}
	return publish.New(publish.Config{
		Bucket:          cfg.Publish.Bucket,
		Key:             cfg.Publish.Key,
		Region:          cfg.Publish.Region,
		Endpoint:        cfg.Publish.Endpoint,
		AccessKeyID:     cfg.Publish.AccessKeyID,
		SecretAccessKey: cfg.Publish.SecretAccessKey,
		UsePathStyle:    cfg.Publish.UsePathStyle,
	})
}

func printSummary(w io.Writer, s pipeline.Summary) {
	_, _ = fmt.Fprintf(w, "\n📊 RESUMEN DEL PROCESAMIENTO:\n")
	_, _ = fmt.Fprintf(w, "✅ Procesadas: %d\n", s.Processed)
	_, _ = fmt.Fprintf(w, "⏭️  Omitidas: %d\n", s.Skipped)
	_, _ = fmt.Fprintf(w, "❌ Errores: %d\n", s.Errors)
	if s.Duplicates > 0 {
		_, _ = fmt.Fprintf(w, "⚠️  IDs duplicados en la entrada: %d\n", s.Duplicates)
	}
	_, _ = fmt.Fprintf(w, "💾 Resultados guardados en %s\n", s.OutputPath)
}
