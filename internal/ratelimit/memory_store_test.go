package ratelimit_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ErlanBelekov/authgate/internal/ratelimit"
)

func TestMemoryStore_Sweep(t *testing.T) {
	clock := newFakeClock()
	store := ratelimit.NewMemoryStore(ratelimit.WithClock(clock.Now))
	defer store.Close()
	ctx := context.Background()

	_, _, err := store.Incr(ctx, "short", time.Second)
	require.NoError(t, err)
	_, _, err = store.Incr(ctx, "long", time.Hour)
	require.NoError(t, err)
	require.Equal(t, 2, store.Len())

	clock.Advance(2 * time.Second)
	store.Sweep()

	assert.Equal(t, 1, store.Len())
}

func TestMemoryStore_BackgroundSweep(t *testing.T) {
	store := ratelimit.NewMemoryStore(ratelimit.WithSweepInterval(10 * time.Millisecond))
	defer store.Close()

	_, _, err := store.Incr(context.Background(), "k", 5*time.Millisecond)
	require.NoError(t, err)

	assert.Eventually(t, func() bool { return store.Len() == 0 },
		time.Second, 10*time.Millisecond)
}

func TestMemoryStore_CloseIsIdempotent(t *testing.T) {
	store := ratelimit.NewMemoryStore()
	assert.NoError(t, store.Close())
	assert.NoError(t, store.Close())
}
