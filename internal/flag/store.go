package flag

import (
	"context"
	"errors"
	"strconv"

	"github.com/redis/go-redis/v9"
)

// flagKey is the single fixed key holding the "orders open" boolean, encoded
// as the string "true"/"false".
const flagKey = "orders:isOpen"

// Store persists the feature flag in Redis. Concurrent toggles race with
// last-write-wins semantics; flag flips are rare, human-triggered actions.
type Store struct {
	rdb *redis.Client
}

func NewStore(rdb *redis.Client) *Store {
	return &Store{rdb: rdb}
}

// Get reads the flag. A missing or malformed value reads as false (closed).
func (s *Store) Get(ctx context.Context) (bool, error) {
	raw, err := s.rdb.Get(ctx, flagKey).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return raw == "true", nil
}

// Set writes the flag.
func (s *Store) Set(ctx context.Context, open bool) error {
	return s.rdb.Set(ctx, flagKey, strconv.FormatBool(open), 0).Err()
}
