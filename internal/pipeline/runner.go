// Package pipeline runs the classification pass: every input record not yet
// in the result store is classified and appended, one at a time, with the
// store persisted after each record.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/shpitdev/call-analyzer/internal/classify"
	"github.com/shpitdev/call-analyzer/internal/records"
	"github.com/shpitdev/call-analyzer/internal/store"
)

const DefaultRequestTimeout = 120 * time.Second

type Options struct {
	InputPath  string
	OutputPath string

	// PromptPrefix overrides classify.DefaultPromptPrefix when set.
	PromptPrefix string

	// RequestTimeout bounds each completion call and the connectivity check.
	// Zero means DefaultRequestTimeout.
	RequestTimeout time.Duration
	// RateLimitRPS limits completion calls per second. Set to <=0 to disable.
	RateLimitRPS float64

	Logger *slog.Logger
}

// Summary reports what one run did. Counters cover this run only.
type Summary struct {
	RunID string
	// Processed counts records classified with a non-error category.
	Processed int
	// Skipped counts records whose id was already stored.
	Skipped int
	// Errors counts records stored with the error category.
	Errors int
	// Total is the number of input records.
	Total int
	// Duplicates is the number of ids repeated within the input.
	Duplicates int
	OutputPath string
	Duration   time.Duration
}

type Runner struct {
	completer classify.Completer
	opts      Options
}

func New(completer classify.Completer, opts Options) (*Runner, error) {
	if completer == nil {
		return nil, errors.New("pipeline: completer is required")
	}
	if opts.InputPath == "" {
		return nil, errors.New("pipeline: input path is required")
	}
	if opts.OutputPath == "" {
		return nil, errors.New("pipeline: output path is required")
	}
	if opts.RequestTimeout < 0 {
		return nil, errors.New("pipeline: request timeout must be >= 0")
	}
	if opts.RequestTimeout == 0 {
		opts.RequestTimeout = DefaultRequestTimeout
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Runner{completer: completer, opts: opts}, nil
}

// Run performs one pass. Connectivity and missing input abort before any
// record is touched. On cancellation the in-flight record is dropped and the
// context error is returned with the partial Summary.
func (r *Runner) Run(ctx context.Context) (summary Summary, err error) {
	runStart := time.Now()
	runID := uuid.NewString()
	logger := r.opts.Logger.With("run", runID)
	summary = Summary{RunID: runID, OutputPath: r.opts.OutputPath}
	defer func() {
		summary.Duration = time.Since(runStart).Round(time.Millisecond)
	}()

	completer := newTracedCompleter(r.completer, logger, r.opts)
	logger.Info("run start",
		"input", r.opts.InputPath,
		"output", r.opts.OutputPath,
		"provider", completer.Name(),
		"timeout", r.opts.RequestTimeout,
		"rateLimitRPS", r.opts.RateLimitRPS,
	)

	if err := completer.Ping(ctx); err != nil {
		return summary, &ConnectivityError{Provider: completer.Name(), Err: err}
	}

	set, err := records.ReadFile(r.opts.InputPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return summary, fmt.Errorf("%w: %s", ErrInputNotFound, r.opts.InputPath)
		}
		return summary, fmt.Errorf("load input: %w", err)
	}
	summary.Total = len(set.Records)
	logger.Info("input loaded", "rows", len(set.Records), "columns", len(set.Columns))

	dups := set.DuplicateIDs()
	summary.Duplicates = len(dups)
	for _, id := range dups {
		logger.Warn("duplicate conversation_id in input; later occurrences are skipped", "id", id)
	}

	st, err := store.Open(ctx, r.opts.OutputPath, set.Columns)
	if err != nil {
		return summary, err
	}
	logger.Info("result store opened", "path", st.Path(), "rows", st.Len())

	classifier, err := classify.New(completer, classify.Options{PromptPrefix: r.opts.PromptPrefix})
	if err != nil {
		return summary, err
	}

	for i, rec := range set.Records {
		if err := ctx.Err(); err != nil {
			logger.Warn("run interrupted", "completed", i, "total", len(set.Records))
			return summary, err
		}
		if st.Has(rec.ConversationID) {
			summary.Skipped++
			logger.Debug("already processed, skipping", "id", rec.ConversationID)
			continue
		}

		start := time.Now()
		c := classifier.Classify(ctx, rec.Transcript)
		if err := ctx.Err(); err != nil {
			logger.Warn("run interrupted; in-flight record not saved", "id", rec.ConversationID)
			return summary, err
		}
		if err := st.Append(ctx, resultRow(rec, c)); err != nil {
			return summary, err
		}

		if c.IsError() {
			summary.Errors++
			logger.Warn("record failed", "id", rec.ConversationID, "justification", c.Justification, "progress", fmt.Sprintf("%d/%d", i+1, len(set.Records)))
		} else {
			summary.Processed++
			logger.Info("record classified", "id", rec.ConversationID, "status", c.Category, "duration", time.Since(start).Round(time.Millisecond), "progress", fmt.Sprintf("%d/%d", i+1, len(set.Records)))
		}
	}

	logger.Info("run complete",
		"processed", summary.Processed,
		"skipped", summary.Skipped,
		"errors", summary.Errors,
		"output", r.opts.OutputPath,
		"duration", time.Since(runStart).Round(time.Millisecond),
	)
	return summary, nil
}
