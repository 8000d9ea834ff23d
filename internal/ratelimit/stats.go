package ratelimit

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	fieldAllowed = "allowed"
	fieldDenied  = "denied"
)

// Decision is one allow/deny outcome of the limiter.
type Decision struct {
	Key     string
	Allowed bool
	Method  string
	Path    string
	At      time.Time
}

// Recorder persists limiter decisions. Callers treat errors as best effort.
type Recorder interface {
	Record(ctx context.Context, d Decision) error
}

// RedisStats counts decisions in Redis hashes: a cumulative total, one hash
// per minute bucket and one per route.
type RedisStats struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
}

// StatsOption configures RedisStats.
type StatsOption func(*RedisStats)

// WithStatsPrefix sets the key prefix, "ratelimit:stats" by default.
func WithStatsPrefix(prefix string) StatsOption {
	return func(s *RedisStats) { s.prefix = strings.Trim(prefix, ":") }
}

// WithStatsTTL sets the expiry of the minute buckets.
func WithStatsTTL(d time.Duration) StatsOption {
	return func(s *RedisStats) { s.ttl = d }
}

// NewRedisStats returns a RedisStats writing through rdb. A nil rdb yields a
// recorder whose Record is a no-op.
func NewRedisStats(rdb *redis.Client, opts ...StatsOption) *RedisStats {
	s := &RedisStats{
		rdb:    rdb,
		prefix: "ratelimit:stats",
		ttl:    24 * time.Hour,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Record increments the counters for d in a single pipeline.
func (s *RedisStats) Record(ctx context.Context, d Decision) error {
	if s == nil || s.rdb == nil {
		return nil
	}

	at := d.At
	if at.IsZero() {
		at = time.Now()
	}

	field := fieldDenied
	if d.Allowed {
		field = fieldAllowed
	}

	pipe := s.rdb.Pipeline()
	pipe.HIncrBy(ctx, s.TotalKey(), field, 1)

	bucketKey := s.MinuteKey(at)
	pipe.HIncrBy(ctx, bucketKey, field, 1)
	if s.ttl > 0 {
		pipe.Expire(ctx, bucketKey, s.ttl)
	}

	if route := strings.TrimSpace(d.Method + " " + d.Path); route != "" {
		pipe.HIncrBy(ctx, s.prefix+":route", route+":"+field, 1)
	}

	_, err := pipe.Exec(ctx)
	return err
}

// TotalKey is the hash holding the cumulative counters.
func (s *RedisStats) TotalKey() string {
	return s.prefix + ":total"
}

// MinuteKey is the hash holding the counters of the minute containing at.
func (s *RedisStats) MinuteKey(at time.Time) string {
	return fmt.Sprintf("%s:minute:%s", s.prefix, at.UTC().Format("200601021504"))
}
