package pipeline

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/shpitdev/call-analyzer/internal/classify"
	"github.com/shpitdev/call-analyzer/internal/redact"
)

// tracedCompleter paces and times out calls to the next Completer and logs
// each one under the run's logger.
type tracedCompleter struct {
	next           classify.Completer
	logger         *slog.Logger
	requestTimeout time.Duration
	limiter        *rate.Limiter
}

func newTracedCompleter(next classify.Completer, logger *slog.Logger, opts Options) *tracedCompleter {
	t := &tracedCompleter{
		next:           next,
		logger:         logger,
		requestTimeout: opts.RequestTimeout,
	}
	if opts.RateLimitRPS > 0 {
		t.limiter = rate.NewLimiter(rate.Limit(opts.RateLimitRPS), 1)
	}
	return t
}

func (t *tracedCompleter) Name() string { return t.next.Name() }

func (t *tracedCompleter) Ping(ctx context.Context) error {
	ctx, cancel := t.withTimeout(ctx)
	defer cancel()

	start := time.Now()
	err := t.next.Ping(ctx)
	elapsed := time.Since(start).Round(time.Millisecond)
	if err != nil {
		t.logger.Warn("connectivity check failed", "provider", t.next.Name(), "duration", elapsed, "error", redact.Secrets(err.Error()))
		return err
	}
	t.logger.Info("connectivity check ok", "provider", t.next.Name(), "duration", elapsed)
	return nil
}

func (t *tracedCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	if t.limiter != nil {
		if err := t.limiter.Wait(ctx); err != nil {
			return "", err
		}
	}
	ctx, cancel := t.withTimeout(ctx)
	defer cancel()

	deadlineIn := "none"
	if d, ok := ctx.Deadline(); ok {
		deadlineIn = time.Until(d).Round(time.Millisecond).String()
	}
	t.logger.Debug("completion request", "provider", t.next.Name(), "promptBytes", len(prompt), "deadlineIn", deadlineIn)

	start := time.Now()
	out, err := t.next.Complete(ctx, prompt)
	elapsed := time.Since(start).Round(time.Millisecond)
	if err != nil {
		t.logger.Warn("completion failed", "provider", t.next.Name(), "duration", elapsed, "error", redact.Secrets(err.Error()))
		return "", err
	}
	t.logger.Debug("completion response", "provider", t.next.Name(), "duration", elapsed, "responseBytes", len(out))
	return out, nil
}

func (t *tracedCompleter) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if t.requestTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, t.requestTimeout)
}
