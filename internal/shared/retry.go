package shared

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"time"
)

// HTTPError represents an HTTP error with status code
type HTTPError struct {
	StatusCode int
	Status     string
	Message    string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d: %s - %s", e.StatusCode, e.Status, e.Message)
}

// IsRetryableHTTPError checks if an HTTP error should be retried
func IsRetryableHTTPError(err error) bool {
	var httpErr *HTTPError
	if !errors.As(err, &httpErr) {
		return false
	}
	switch httpErr.StatusCode {
	case http.StatusServiceUnavailable, // 503
		http.StatusTooManyRequests, // 429
		http.StatusBadGateway,      // 502
		http.StatusGatewayTimeout:  // 504
		return true
	}
	return false
}

// RetryWithBackoffForHTTPWithDebug retries HTTP requests with smart error handling and optional debug logging
func RetryWithBackoffForHTTPWithDebug(maxRetries int, initialDelay time.Duration, maxDelay time.Duration, fn func() error, debug bool) error {
	var lastErr error

	if maxRetries <= 0 {
		return fn()
	}

	for attempt := 0; attempt < maxRetries; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			return nil
		}

		if !IsRetryableHTTPError(lastErr) {
			return lastErr
		}

		if attempt == maxRetries-1 {
			break
		}

		finalDelay := backoffDelay(attempt, initialDelay, maxDelay)
		if debug {
			log.Printf("HTTP request failed (attempt %d/%d): %v. Retrying in %v",
				attempt+1, maxRetries, lastErr, finalDelay)
		}

		time.Sleep(finalDelay)
	}

	return fmt.Errorf("failed after %d attempts: %w", maxRetries, lastErr)
}

// RetryUntilDeadline runs fn until it succeeds, returns an error that
// retryable rejects, or the wall-clock deadline elapses. The last error is
// returned wrapped when the deadline is hit.
func RetryUntilDeadline(ctx context.Context, deadline, delay time.Duration, retryable func(error) bool, fn func(context.Context) error) error {
	stopAt := time.Now().Add(deadline)
	attempt := 0

	for {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if retryable != nil && !retryable(err) {
			return err
		}

		wait := backoffDelay(attempt, delay, deadline)
		attempt++
		if time.Now().Add(wait).After(stopAt) {
			return fmt.Errorf("gave up after %d attempts in %v: %w", attempt, deadline, err)
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("%w (last error: %v)", ctx.Err(), err)
		case <-time.After(wait):
		}
	}
}

// backoffDelay is exponential with ±25% jitter, capped at maxDelay
func backoffDelay(attempt int, initialDelay, maxDelay time.Duration) time.Duration {
	if initialDelay <= 0 {
		return 0
	}
	delay := initialDelay * time.Duration(1<<uint(attempt))
	if delay > maxDelay || delay <= 0 {
		delay = maxDelay
	}
	if delay < 4 {
		return delay
	}

	jitter := time.Duration(rand.Int63n(int64(delay/2))) - delay/4
	finalDelay := delay + jitter
	if finalDelay < 0 {
		finalDelay = delay
	}
	return finalDelay
}
