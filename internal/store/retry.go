package store

import (
	"context"
	"errors"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/sethvargo/go-retry"
)

const (
	retryInitial = 100 * time.Millisecond
	retryMax     = 3
)

// withRetry runs task with Fibonacci backoff, retrying only errors that
// shouldRetry accepts.
func withRetry(ctx context.Context, task func(ctx context.Context) error) error {
	b := retry.WithMaxRetries(retryMax, retry.NewFibonacci(retryInitial))
	return retry.Do(ctx, b, func(ctx context.Context) error {
		err := task(ctx)
		if shouldRetry(err) {
			return retry.RetryableError(err)
		}
		return err
	})
}

// shouldRetry reports whether a filesystem error is worth another attempt.
func shouldRetry(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, os.ErrNotExist) ||
		errors.Is(err, os.ErrPermission) ||
		errors.Is(err, os.ErrClosed) ||
		errors.Is(err, os.ErrExist) {
		return false
	}
	switch {
	case errors.Is(err, syscall.EROFS),
		errors.Is(err, syscall.ENOSPC),
		errors.Is(err, syscall.EDQUOT),
		errors.Is(err, syscall.EACCES),
		errors.Is(err, syscall.EPERM),
		errors.Is(err, syscall.ENAMETOOLONG),
		errors.Is(err, syscall.ENOTDIR),
		errors.Is(err, syscall.EISDIR),
		errors.Is(err, syscall.ENOTEMPTY),
		errors.Is(err, syscall.EXDEV),
		errors.Is(err, syscall.EINVAL):
		return false
	}
	return !strings.Contains(err.Error(), "read-only file system")
}
