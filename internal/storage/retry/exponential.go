package retry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"sunnydapp/internal/metrics"

	"github.com/jackc/pgx/v5/pgconn"
)

// ExponentialBackoffStrategy retries transient store failures with a doubling delay
type ExponentialBackoffStrategy struct {
	maxRetries   int
	initialDelay time.Duration
	maxDelay     time.Duration
}

// NewExponentialBackoffStrategy creates a new ExponentialBackoffStrategy
func NewExponentialBackoffStrategy(maxRetries int, initialDelay, maxDelay time.Duration) *ExponentialBackoffStrategy {
	return &ExponentialBackoffStrategy{
		maxRetries:   maxRetries,
		initialDelay: initialDelay,
		maxDelay:     maxDelay,
	}
}

// Execute runs op until it succeeds, fails with a non-transient error, or the retries run out.
// Non-transient errors (including every domain rejection) are returned unchanged.
func (s *ExponentialBackoffStrategy) Execute(ctx context.Context, name string, op Operation) error {
	var lastErr error
	delay := s.initialDelay

	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		err := op()
		if err == nil {
			if attempt > 0 {
				slog.Info("Store operation succeeded after retry",
					"operation", name,
					"attempt", attempt+1,
				)
			}
			return nil
		}

		if !isRecoverableError(err) {
			return err
		}
		lastErr = err

		if attempt >= s.maxRetries {
			break
		}

		metrics.StoreRetries.WithLabelValues(name).Inc()
		slog.Warn("Store operation failed, retrying",
			"operation", name,
			"attempt", attempt+1,
			"max_attempts", s.maxRetries+1,
			"retry_in", delay,
			"error", err,
		)

		select {
		case <-ctx.Done():
			return fmt.Errorf("context cancelled during retry: %w", ctx.Err())
		case <-time.After(delay):
			delay *= 2
			if delay > s.maxDelay {
				delay = s.maxDelay
			}
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", name, s.maxRetries+1, lastErr)
}

func (s *ExponentialBackoffStrategy) Name() string {
	return "ExponentialBackoff"
}

// PostgreSQL error classes worth a second attempt
var recoverableSQLStates = map[string]bool{
	"40001": true, // serialization_failure
	"40P01": true, // deadlock_detected
	"57P01": true, // admin_shutdown
	"53300": true, // too_many_connections
}

// isRecoverableError determines if an error is transient
func isRecoverableError(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return recoverableSQLStates[pgErr.Code] || strings.HasPrefix(pgErr.Code, "08")
	}

	errStr := strings.ToLower(err.Error())
	recoverablePatterns := []string{
		"connection reset by peer",
		"connection refused",
		"broken pipe",
		"i/o timeout",
		"unexpected eof",
		"conn closed",
	}

	for _, pattern := range recoverablePatterns {
		if strings.Contains(errStr, pattern) {
			return true
		}
	}

	return false
}
