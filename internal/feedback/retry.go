package feedback

import (
	"context"
	"errors"
	"math"
	"net"
	"net/http"
	"time"

	"google.golang.org/api/googleapi"
)

// RetryConfig controls backoff between generation attempts.
type RetryConfig struct {
	MaxRetries  int
	InitialWait time.Duration
	MaxWait     time.Duration
	Multiplier  float64
}

// DefaultRetryConfig waits 1s, then 2s, up to 5s.
var DefaultRetryConfig = RetryConfig{
	MaxRetries:  DefaultMaxRetries,
	InitialWait: time.Second,
	MaxWait:     5 * time.Second,
	Multiplier:  2.0,
}

// retryDo calls fn up to 1+MaxRetries times, retrying only transient
// failures. onRetry is called before each wait.
func retryDo[T any](ctx context.Context, rc RetryConfig, onRetry func(attempt int, wait time.Duration, err error), fn func(context.Context) (T, error)) (T, error) {
	var zero T
	var lastErr error

	for attempt := 0; attempt <= rc.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		result, err := fn(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if !isRetryable(ctx, err) || attempt == rc.MaxRetries {
			break
		}

		wait := time.Duration(float64(rc.InitialWait) * math.Pow(rc.Multiplier, float64(attempt)))
		if rc.MaxWait > 0 && wait > rc.MaxWait {
			wait = rc.MaxWait
		}
		if onRetry != nil {
			onRetry(attempt+1, wait, err)
		}
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return zero, ctx.Err()
		}
	}
	return zero, lastErr
}

// isRetryable reports whether err is a per-attempt timeout, a rate limit or
// a server error. Cancellation of the caller's context is never retried.
func isRetryable(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return isRetryableStatus(gerr.Code)
	}

	var coded interface{ HTTPCode() int }
	if errors.As(err, &coded) {
		return isRetryableStatus(coded.HTTPCode())
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}
	return false
}

func isRetryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= 500 && code <= 599
}
