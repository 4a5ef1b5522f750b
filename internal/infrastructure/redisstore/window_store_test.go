package redisstore_test

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ErlanBelekov/authgate/internal/infrastructure/redisstore"
)

// recordingHook captures pipelined commands and answers them without a
// server, leaving every reply empty.
type recordingHook struct {
	cmds [][]any
}

func (h *recordingHook) DialHook(next redis.DialHook) redis.DialHook {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		return next(ctx, network, addr)
	}
}

func (h *recordingHook) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return next
}

func (h *recordingHook) ProcessPipelineHook(redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(_ context.Context, cmds []redis.Cmder) error {
		for _, c := range cmds {
			h.cmds = append(h.cmds, c.Args())
		}
		return nil
	}
}

func TestWindowStore_SetsMillisecondExpiryOnlyOnce(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"})
	t.Cleanup(func() { _ = rdb.Close() })
	hook := &recordingHook{}
	rdb.AddHook(hook)

	before := time.Now()
	_, resetAt, err := redisstore.NewWindowStore(rdb).Incr(context.Background(), "global", 1500*time.Millisecond)
	require.NoError(t, err)

	var names []string
	var expire []any
	for _, args := range hook.cmds {
		name, _ := args[0].(string)
		names = append(names, name)
		if name == "PEXPIRE" {
			expire = args
		}
	}
	assert.Subset(t, names, []string{"multi", "incr", "PEXPIRE", "pttl", "exec"})
	require.NotNil(t, expire, "window expiry must be set in the same transaction")
	assert.Equal(t, []any{"PEXPIRE", "authgate:ratelimit:global", int64(1500), "NX"}, expire)

	// No PTTL reply: the reset falls back to a full window.
	assert.WithinDuration(t, before.Add(1500*time.Millisecond), resetAt, time.Second)
}
