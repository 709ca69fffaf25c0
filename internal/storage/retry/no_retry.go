package retry

import (
	"context"
)

// NoRetryStrategy runs each operation exactly once
type NoRetryStrategy struct{}

// NewNoRetryStrategy creates a new NoRetryStrategy
func NewNoRetryStrategy() *NoRetryStrategy {
	return &NoRetryStrategy{}
}

func (s *NoRetryStrategy) Execute(ctx context.Context, name string, op Operation) error {
	return op()
}

func (s *NoRetryStrategy) Name() string {
	return "NoRetry"
}
