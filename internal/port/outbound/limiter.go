package outbound

import (
	"context"
	"time"
)

// AttemptLimiterPort counts attempts per key in a sliding window.
type AttemptLimiterPort interface {
	// Allow records an attempt and reports whether it fits within limit.
	// A rejected attempt is not recorded.
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)

	// Remaining returns the attempts left in the current window.
	Remaining(ctx context.Context, key string, limit int, window time.Duration) (int, error)
}
