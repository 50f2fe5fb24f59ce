package redis

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Both scripts work on a sorted set of hits scored by time in milliseconds.
// KEYS[1] = key
// ARGV[1] = now_ms
// ARGV[2] = window_ms
// ARGV[3] = limit (peek) or member (hit)
const luaPeek = `
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])

redis.call('ZREMRANGEBYSCORE', key, 0, now - window)
local count = redis.call('ZCARD', key)

if count >= limit then
  local earliest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
  local earliestScore = tonumber(earliest[2]) or (now - window)
  local retry_ms = window - (now - earliestScore)
  if retry_ms < 0 then retry_ms = 0 end
  return {0, count, retry_ms}
end
return {1, count, 0}
`

const luaHit = `
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local member = ARGV[3]

redis.call('ZREMRANGEBYSCORE', key, 0, now - window)
redis.call('ZADD', key, 'NX', now, member)
redis.call('PEXPIRE', key, window)
return redis.call('ZCARD', key)
`

// SlidingWindowLimiter counts hits per key over a sliding window. Peek and Hit
// are separate so that a caller can count only the attempts that succeeded.
type SlidingWindowLimiter struct {
	rdb    *redis.Client
	prefix string
	limit  int
	window time.Duration
	peek   *redis.Script
	hit    *redis.Script
}

func NewSlidingWindowLimiter(
	rdb *redis.Client,
	prefix string,
	limit int,
	window time.Duration,
) *SlidingWindowLimiter {
	return &SlidingWindowLimiter{
		rdb:    rdb,
		prefix: prefix,
		limit:  limit,
		window: window,
		peek:   redis.NewScript(luaPeek),
		hit:    redis.NewScript(luaHit),
	}
}

func (l *SlidingWindowLimiter) key(suffix string) string {
	return fmt.Sprintf("%s:%s", l.prefix, suffix)
}

// Peek reports whether one more hit would stay within the limit, without
// recording it.
func (l *SlidingWindowLimiter) Peek(
	ctx context.Context,
	suffix string,
	now time.Time,
) (allowed bool, current int64, retryAfter time.Duration, err error) {
	res, err := l.peek.Run(
		ctx,
		l.rdb,
		[]string{l.key(suffix)},
		now.UnixMilli(), l.window.Milliseconds(), l.limit,
	).Result()
	if err != nil {
		return false, 0, 0, err
	}

	arr, ok := res.([]any)
	if !ok || len(arr) != 3 {
		return false, 0, 0, fmt.Errorf("bad script result: %v", res)
	}

	allowed = toInt(arr[0]) == 1
	current = toInt(arr[1])
	retryAfter = time.Duration(toInt(arr[2])) * time.Millisecond

	return
}

// Hit records one hit and returns the count inside the window.
func (l *SlidingWindowLimiter) Hit(ctx context.Context, suffix string, now time.Time) (int64, error) {
	res, err := l.hit.Run(
		ctx,
		l.rdb,
		[]string{l.key(suffix)},
		now.UnixMilli(), l.window.Milliseconds(), randomHex(12),
	).Result()
	if err != nil {
		return 0, err
	}

	return toInt(res), nil
}

func toInt(v any) int64 {
	switch t := v.(type) {
	case int64:
		return t
	case int:
		return int64(t)
	case float64:
		return int64(t)
	case string:
		var x int64
		fmt.Sscan(t, &x)
		return x
	default:
		return 0
	}
}

func randomHex(n int) string {
	b := make([]byte, n)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
