package trigger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNew_Validates(t *testing.T) {
	noop := func(context.Context, string) error { return nil }
	tests := []struct {
		name string
		opts Options
		run  RunFunc
	}{
		{name: "nil run", opts: Options{Schedule: "@hourly"}},
		{name: "nothing enabled", opts: Options{}, run: noop},
		{name: "watch without path", opts: Options{Watch: true}, run: noop},
		{name: "bad schedule", opts: Options{Schedule: "every tuesday"}, run: noop},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.opts, tt.run); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
	if _, err := New(Options{Schedule: "*/5 * * * *"}, noop); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestFire_Serializes(t *testing.T) {
	var active, peak atomic.Int32
	run := func(context.Context, string) error {
		n := active.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
		active.Add(-1)
		return nil
	}
	tr, err := New(Options{Schedule: "@hourly", Logger: quietLogger()}, run)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tr.fire(context.Background(), "test")
		}()
	}
	wg.Wait()
	if peak.Load() != 1 {
		t.Fatalf("runs overlapped: peak=%d", peak.Load())
	}
}

func TestRun_WatchFiresOnChange(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "calls.csv")
	if err := os.WriteFile(input, []byte("conversation_id\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	reasons := make(chan string, 4)
	tr, err := New(Options{
		InputPath:  input,
		Watch:      true,
		Debounce:   50 * time.Millisecond,
		RunOnStart: true,
		Logger:     quietLogger(),
	}, func(_ context.Context, reason string) error {
		reasons <- reason
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- tr.Run(ctx) }()

	if got := waitReason(t, reasons); got != "start" {
		t.Fatalf("first reason=%q", got)
	}

	// Unrelated files in the same directory are ignored.
	if err := os.WriteFile(filepath.Join(dir, "other.csv"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	// Let the unrelated event pass before touching the input.
	time.Sleep(100 * time.Millisecond)
	if err := os.WriteFile(input, []byte("conversation_id\nc1\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if got := waitReason(t, reasons); got != "input changed" {
		t.Fatalf("reason=%q", got)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run returned error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("Run did not return after cancel")
	}
}

func TestRun_EditDuringStartRunIsSeen(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "calls.csv")
	if err := os.WriteFile(input, []byte("conversation_id\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	reasons := make(chan string, 4)
	tr, err := New(Options{
		InputPath:  input,
		Watch:      true,
		Debounce:   50 * time.Millisecond,
		RunOnStart: true,
		Logger:     quietLogger(),
	}, func(_ context.Context, reason string) error {
		if reason == "start" {
			if err := os.WriteFile(input, []byte("conversation_id\nc1\n"), 0o644); err != nil {
				return err
			}
		}
		reasons <- reason
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = tr.Run(ctx) }()

	if got := waitReason(t, reasons); got != "start" {
		t.Fatalf("first reason=%q", got)
	}
	if got := waitReason(t, reasons); got != "input changed" {
		t.Fatalf("second reason=%q", got)
	}
}

func TestRun_WatchSetupFailsBeforeStartRun(t *testing.T) {
	var runs atomic.Int32
	tr, err := New(Options{
		InputPath:  filepath.Join(t.TempDir(), "missing", "calls.csv"),
		Watch:      true,
		RunOnStart: true,
		Logger:     quietLogger(),
	}, func(context.Context, string) error {
		runs.Add(1)
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := tr.Run(context.Background()); err == nil {
		t.Fatalf("expected error watching a missing directory")
	}
	if runs.Load() != 0 {
		t.Fatalf("start run should not happen when watching fails, runs=%d", runs.Load())
	}
}

func TestRun_Schedule(t *testing.T) {
	reasons := make(chan string, 4)
	tr, err := New(Options{Schedule: "@every 1s", Logger: quietLogger()}, func(_ context.Context, reason string) error {
		reasons <- reason
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = tr.Run(ctx) }()

	if got := waitReason(t, reasons); got != "schedule" {
		t.Fatalf("reason=%q", got)
	}
}

func waitReason(t *testing.T, ch <-chan string) string {
	t.Helper()
	select {
	case r := <-ch:
		return r
	case <-time.After(5 * time.Second):
		t.Fatalf("timed out waiting for a run")
		return ""
	}
}
