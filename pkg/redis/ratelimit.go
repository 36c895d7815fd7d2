package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// QuotaLimiter enforces a sliding-window quota shared by every API instance
// ⭐ SSOT: 분산 쿼터는 여기서만 (프로세스 내부 제한은 x/time/rate)
type QuotaLimiter struct {
	client *Client
	prefix string
	limit  int
	window time.Duration
}

// NewQuotaLimiter allows limit calls per window for each subject
func NewQuotaLimiter(client *Client, prefix string, limit int, window time.Duration) *QuotaLimiter {
	return &QuotaLimiter{client: client, prefix: prefix, limit: limit, window: window}
}

// KEYS[1]=zset, ARGV: now, window start, limit, window ms
var slidingWindow = redis.NewScript(`
	local key = KEYS[1]
	local now = tonumber(ARGV[1])
	local limit = tonumber(ARGV[3])

	redis.call('ZREMRANGEBYSCORE', key, '-inf', ARGV[2])
	local count = redis.call('ZCARD', key)
	if count >= limit then
		return {0, 0}
	end

	redis.call('ZADD', key, now, now)
	redis.call('PEXPIRE', key, ARGV[4])
	return {1, limit - count - 1}
`)

// Allow records one call for subject. Returns (allowed, remaining, error).
// A disabled client allows everything.
func (q *QuotaLimiter) Allow(ctx context.Context, subject string) (bool, int, error) {
	if !q.client.Enabled() {
		return true, q.limit, nil
	}

	now := time.Now().UnixMilli()
	result, err := slidingWindow.Run(ctx, q.client.Redis(), []string{q.key(subject)},
		now,
		now-q.window.Milliseconds(),
		q.limit,
		q.window.Milliseconds(),
	).Int64Slice()
	if err != nil {
		return false, 0, fmt.Errorf("quota script failed: %w", err)
	}
	if len(result) != 2 {
		return false, 0, fmt.Errorf("quota script returned %d values", len(result))
	}

	return result[0] == 1, int(result[1]), nil
}

func (q *QuotaLimiter) key(subject string) string {
	return fmt.Sprintf("%s:quota:%s", q.prefix, subject)
}
