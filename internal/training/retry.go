// Package training turns uploaded documents into persisted chunks and
// knowledge graph facts.
package training

import (
	"context"
	"fmt"
	"time"
)

const (
	defaultRetryAttempts = 3
	defaultRetryDelay    = 500 * time.Millisecond
)

// withRetry runs fn up to attempts times, sleeping baseDelay multiplied by
// the attempt number between tries. Only remote calls go through this; local
// work either succeeds or is a bug.
func withRetry(ctx context.Context, attempts int, baseDelay time.Duration, fn func() error) error {
	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = fn(); err == nil {
			return nil
		}
		if attempt == attempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(baseDelay * time.Duration(attempt)):
		}
	}
	return fmt.Errorf("after %d attempts: %w", attempts, err)
}
