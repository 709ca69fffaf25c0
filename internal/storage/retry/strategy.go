package retry

import (
	"context"
	"log/slog"
)

// Strategy decides how store operations are re-run after transient failures
type Strategy interface {
	// Execute runs op, retrying it according to the strategy. name labels logs and metrics.
	Execute(ctx context.Context, name string, op Operation) error

	// Name returns the name of the strategy for logging
	Name() string
}

// Operation is a unit of work that can be retried. It must be safe to run again after a failure,
// which holds for Store.Atomic callbacks since a failed unit commits nothing.
type Operation func() error

// NewStrategy creates a retry strategy based on configuration
func NewStrategy(config Config) Strategy {
	if !config.Enabled {
		slog.Info("Store retry disabled, using NoRetryStrategy")
		return NewNoRetryStrategy()
	}

	slog.Info("Store retry enabled, using ExponentialBackoffStrategy",
		"max_retries", config.MaxRetries,
		"initial_delay", config.InitialDelay,
		"max_delay", config.MaxDelay,
	)

	return NewExponentialBackoffStrategy(
		config.MaxRetries,
		config.InitialDelay,
		config.MaxDelay,
	)
}
