// Package trigger re-runs the pipeline when the input file changes and/or on
// a cron schedule. Runs never overlap.
package trigger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/robfig/cron/v3"

	"github.com/shpitdev/call-analyzer/internal/redact"
)

// RunFunc performs one pipeline pass. reason names what triggered it.
type RunFunc func(ctx context.Context, reason string) error

type Options struct {
	// InputPath is the file watched for changes when Watch is set.
	InputPath string
	Watch     bool
	// Debounce coalesces bursts of file events into one run.
	Debounce time.Duration

	// Schedule is a 5-field cron expression or a descriptor such as
	// "@hourly" or "@every 10m". Empty disables scheduled runs.
	Schedule string

	// RunOnStart performs one run before waiting for triggers.
	RunOnStart bool

	Logger *slog.Logger
}

type Trigger struct {
	opts     Options
	run      RunFunc
	schedule cron.Schedule

	// mu serializes runs across the watch loop and cron jobs.
	mu sync.Mutex
}

var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

func New(opts Options, run RunFunc) (*Trigger, error) {
	if run == nil {
		return nil, errors.New("trigger: run func is required")
	}
	if !opts.Watch && opts.Schedule == "" {
		return nil, errors.New("trigger: enable input watching or set a schedule")
	}
	if opts.Watch && opts.InputPath == "" {
		return nil, errors.New("trigger: input path is required to watch")
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	t := &Trigger{opts: opts, run: run}
	if opts.Schedule != "" {
		sched, err := parser.Parse(opts.Schedule)
		if err != nil {
			return nil, fmt.Errorf("invalid schedule %q: %w", opts.Schedule, err)
		}
		t.schedule = sched
	}
	return t, nil
}

// Run blocks until ctx is done. The input watch is registered before the
// start-up pass so edits made while it runs still trigger a follow-up run.
func (t *Trigger) Run(ctx context.Context) error {
	var watcher *fsnotify.Watcher
	if t.opts.Watch {
		w, err := t.newWatcher()
		if err != nil {
			return err
		}
		watcher = w
		defer func() {
			_ = watcher.Close()
		}()
	}

	if t.opts.RunOnStart {
		t.fire(ctx, "start")
	}

	if t.schedule != nil {
		logger := cronLogger{t.opts.Logger}
		c := cron.New(
			cron.WithParser(parser),
			cron.WithLogger(logger),
			cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
		)
		c.Schedule(t.schedule, cron.FuncJob(func() { t.fire(ctx, "schedule") }))
		c.Start()
		t.opts.Logger.Info("scheduled runs enabled", "schedule", t.opts.Schedule, "next", t.schedule.Next(time.Now()).Format(time.RFC3339))
		defer func() {
			<-c.Stop().Done()
		}()
	}

	if watcher == nil {
		<-ctx.Done()
		return nil
	}
	return t.watch(ctx, watcher)
}

// newWatcher observes the input's directory so editors that replace the file
// through a rename are still seen.
func (t *Trigger) newWatcher() (*fsnotify.Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	dir := filepath.Dir(filepath.Clean(t.opts.InputPath))
	if err := watcher.Add(dir); err != nil {
		_ = watcher.Close()
		return nil, fmt.Errorf("watch %s: %w", dir, err)
	}
	return watcher, nil
}

func (t *Trigger) watch(ctx context.Context, watcher *fsnotify.Watcher) error {
	target := filepath.Clean(t.opts.InputPath)
	t.opts.Logger.Info("watching input for changes", "path", target, "debounce", t.opts.Debounce)

	var timer *time.Timer
	var fireC <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil
		case evt, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(evt.Name) != target {
				continue
			}
			if evt.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			t.opts.Logger.Debug("input event", "op", evt.Op.String())
			if timer == nil {
				timer = time.NewTimer(t.opts.Debounce)
			} else {
				timer.Reset(t.opts.Debounce)
			}
			fireC = timer.C
		case <-fireC:
			fireC = nil
			t.fire(ctx, "input changed")
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			t.opts.Logger.Warn("watcher error", "error", err)
		}
	}
}

func (t *Trigger) fire(ctx context.Context, reason string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if ctx.Err() != nil {
		return
	}
	t.opts.Logger.Info("run triggered", "reason", reason)
	if err := t.run(ctx, reason); err != nil {
		t.opts.Logger.Error("triggered run failed", "reason", reason, "error", redact.Secrets(err.Error()))
	}
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	l *slog.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.Debug("cron: "+msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.Error("cron: "+msg, append([]interface{}{"error", err}, keysAndValues...)...)
}
