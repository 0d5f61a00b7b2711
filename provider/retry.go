package provider

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/giridharan-1129/LLM-Evaluation-app/log"
)

// retryConfig drives the bounded exponential-backoff retry loop.
type retryConfig struct {
	// maxRetries is the total number of attempts.
	maxRetries int
	// initialBackoff is the delay after the first failed attempt; it
	// doubles after every further failure.
	initialBackoff time.Duration
	// sleep waits out a backoff period; injectable for tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// sleepWithContext waits for d unless the context is cancelled first.
func sleepWithContext(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("cancelled during retry backoff: %w", ctx.Err())
	case <-time.After(d):
		return nil
	}
}

// callWithRetry runs operation up to cfg.maxRetries times with exponential
// backoff between attempts, returning the first success or the last error
// once attempts are exhausted.
func callWithRetry(
	ctx context.Context,
	cfg retryConfig,
	operationName string,
	operation func(ctx context.Context) (*rawResult, error),
) (*rawResult, error) {
	attempts := cfg.maxRetries
	if attempts <= 0 {
		attempts = 1
	}

	var lastErr error
	backoff := cfg.initialBackoff
	for attempt := 1; attempt <= attempts; attempt++ {
		result, err := operation(ctx)
		if err == nil {
			if attempt > 1 {
				log.Debugf("%s call succeeded on attempt %d/%d", operationName, attempt, attempts)
			}
			return result, nil
		}
		lastErr = err

		if attempt >= attempts {
			break
		}
		log.Warnf("%s call failed: %v, retrying in %s (attempt %d/%d)",
			operationName, err, backoff, attempt, attempts)
		if sleepErr := cfg.sleep(ctx, backoff); sleepErr != nil {
			return nil, sleepErr
		}
		backoff *= 2
	}

	log.Errorf("%s call failed after %d attempts: %v", operationName, attempts, lastErr)
	return nil, lastErr
}

// classifyError maps a terminal call error onto an ErrorKind.
func classifyError(err error) ErrorKind {
	if err == nil {
		return ""
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrKindTimeout
	}

	errStr := strings.ToLower(err.Error())
	switch {
	case strings.Contains(errStr, "timeout") ||
		strings.Contains(errStr, "deadline exceeded"):
		return ErrKindTimeout
	case strings.Contains(errStr, "429") ||
		strings.Contains(errStr, "rate limit") ||
		strings.Contains(errStr, "too many requests"):
		return ErrKindRateLimited
	case containsHTTPStatus(errStr) ||
		strings.Contains(errStr, "no choices") ||
		strings.Contains(errStr, "unexpected response") ||
		strings.Contains(errStr, "invalid character") ||
		strings.Contains(errStr, "unmarshal"):
		return ErrKindBadResponse
	default:
		return ErrKindUnknown
	}
}

// containsHTTPStatus reports whether the error text mentions a non-2xx
// HTTP status in a recognizable form.
func containsHTTPStatus(errStr string) bool {
	codes := []string{
		"400", "401", "403", "404", "408", "409",
		"500", "501", "502", "503", "504",
	}
	for _, code := range codes {
		if strings.Contains(errStr, "http "+code) ||
			strings.Contains(errStr, "status "+code) ||
			strings.Contains(errStr, "status: "+code) ||
			strings.Contains(errStr, "code "+code) ||
			strings.Contains(errStr, "code: "+code) ||
			strings.Contains(errStr, code+" ") {
			return true
		}
	}
	return false
}
