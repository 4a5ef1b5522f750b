package redisstore

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "authgate:ratelimit:"

// WindowStore implements ratelimit.Store. The window starts with the first
// INCR of a key and ends when the key expires.
type WindowStore struct {
	rdb redis.UniversalClient
	now func() time.Time
}

func NewWindowStore(rdb redis.UniversalClient) *WindowStore {
	return &WindowStore{rdb: rdb, now: time.Now}
}

func (s *WindowStore) Incr(ctx context.Context, key string, window time.Duration) (int64, time.Time, error) {
	k := keyPrefix + key

	var (
		incr *redis.IntCmd
		pttl *redis.DurationCmd
	)
	// MULTI/EXEC: the count and its expiry land together or not at all.
	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, k)
		// PEXPIRE ... NX keeps the millisecond window; go-redis only wraps the seconds form.
		pipe.Do(ctx, "PEXPIRE", k, window.Milliseconds(), "NX")
		pttl = pipe.PTTL(ctx, k)
		return nil
	})
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("redis window incr: %w", err)
	}

	ttl := pttl.Val()
	if ttl <= 0 {
		ttl = window
	}
	return incr.Val(), s.now().Add(ttl), nil
}
