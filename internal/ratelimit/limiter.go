package ratelimit

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "ratelimit:"

// record mirrors the JSON blob layout of the original store: an attempt
// counter plus the unix-millisecond timestamp of the last failure.
type record struct {
	Attempts  int   `json:"attempts"`
	Timestamp int64 `json:"timestamp"`
}

// Limiter counts failed authentication attempts per client identifier over a
// sliding window. A record older than the window is treated as absent.
type Limiter struct {
	rdb    *redis.Client
	window time.Duration
	now    func() time.Time
}

func New(rdb *redis.Client, window time.Duration) *Limiter {
	if window <= 0 {
		window = 15 * time.Minute
	}
	return &Limiter{rdb: rdb, window: window, now: time.Now}
}

// WithClock overrides the clock, for tests.
func (l *Limiter) WithClock(now func() time.Time) *Limiter {
	l.now = now
	return l
}

// Attempts returns the current counter for clientID. Absent and expired
// records both count as zero; an expired record is deleted on read.
func (l *Limiter) Attempts(ctx context.Context, clientID string) (int, error) {
	raw, err := l.rdb.Get(ctx, keyPrefix+clientID).Bytes()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	var rec record
	if err := json.Unmarshal(raw, &rec); err != nil {
		// unreadable record: start over
		_ = l.rdb.Del(ctx, keyPrefix+clientID).Err()
		return 0, nil
	}

	cutoff := l.now().Add(-l.window).UnixMilli()
	if rec.Timestamp < cutoff {
		if err := l.rdb.Del(ctx, keyPrefix+clientID).Err(); err != nil {
			return 0, err
		}
		return 0, nil
	}
	return rec.Attempts, nil
}

// RecordFailure increments the counter, restarting at 1 when the stored
// record has expired. The window timestamp is refreshed on every failure.
func (l *Limiter) RecordFailure(ctx context.Context, clientID string) error {
	current, err := l.Attempts(ctx, clientID)
	if err != nil {
		return err
	}

	raw, err := json.Marshal(record{
		Attempts:  current + 1,
		Timestamp: l.now().UnixMilli(),
	})
	if err != nil {
		return err
	}
	// expire server-side a little after the window so stale keys don't pile up
	return l.rdb.Set(ctx, keyPrefix+clientID, raw, l.window*2).Err()
}

// Reset deletes the record, called on successful authentication.
func (l *Limiter) Reset(ctx context.Context, clientID string) error {
	return l.rdb.Del(ctx, keyPrefix+clientID).Err()
}
