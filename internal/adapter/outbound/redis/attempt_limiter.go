package redis

import (
	"context"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/greenpack/storefront/internal/port/outbound"
)

const attemptKeyPrefix = "attempts:"

// attemptLimiter implements outbound.AttemptLimiterPort with a sorted set
// per key, scored by attempt time.
type attemptLimiter struct {
	client *redis.Client
	now    func() time.Time
	seq    atomic.Uint64
}

// NewAttemptLimiter creates a new attempt limiter adapter.
func NewAttemptLimiter(client *redis.Client) outbound.AttemptLimiterPort {
	return &attemptLimiter{client: client, now: time.Now}
}

func (l *attemptLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	fullKey := attemptKeyPrefix + key
	now := l.now().UnixNano()

	count, err := l.count(ctx, fullKey, now, window)
	if err != nil {
		return false, err
	}
	if count >= int64(limit) {
		return false, nil
	}

	// Members must be unique even for attempts in the same nanosecond.
	member := strconv.FormatInt(now, 10) + "-" + strconv.FormatUint(l.seq.Add(1), 10)
	pipe := l.client.TxPipeline()
	pipe.ZAdd(ctx, fullKey, redis.Z{Score: float64(now), Member: member})
	pipe.Expire(ctx, fullKey, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, err
	}
	return true, nil
}

func (l *attemptLimiter) Remaining(ctx context.Context, key string, limit int, window time.Duration) (int, error) {
	count, err := l.count(ctx, attemptKeyPrefix+key, l.now().UnixNano(), window)
	if err != nil {
		return 0, err
	}
	return max(limit-int(count), 0), nil
}

// count drops attempts older than the window and counts the rest.
func (l *attemptLimiter) count(ctx context.Context, fullKey string, now int64, window time.Duration) (int64, error) {
	windowStart := now - window.Nanoseconds()

	pipe := l.client.Pipeline()
	pipe.ZRemRangeByScore(ctx, fullKey, "0", strconv.FormatInt(windowStart, 10))
	card := pipe.ZCard(ctx, fullKey)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return card.Val(), nil
}

// Compile-time check
var _ outbound.AttemptLimiterPort = (*attemptLimiter)(nil)
