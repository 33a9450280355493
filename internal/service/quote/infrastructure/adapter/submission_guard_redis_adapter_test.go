package adapter

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubmissionGuardRedisAdapter(t *testing.T) {
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	defer client.Close()

	guard := NewSubmissionGuardRedisAdapter(client, time.Minute)
	ctx := context.Background()

	ok, err := guard.Acquire(ctx, "s1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = guard.Acquire(ctx, "s1")
	require.NoError(t, err)
	assert.False(t, ok, "second acquire must fail while the first is held")

	ok, err = guard.Acquire(ctx, "s2")
	require.NoError(t, err)
	assert.True(t, ok, "sessions are independent")

	require.NoError(t, guard.Release(ctx, "s1"))
	ok, err = guard.Acquire(ctx, "s1")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestSubmissionGuardRedisAdapter_Expires(t *testing.T) {
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	defer client.Close()

	guard := NewSubmissionGuardRedisAdapter(client, 30*time.Second)
	ctx := context.Background()

	ok, err := guard.Acquire(ctx, "s1")
	require.NoError(t, err)
	require.True(t, ok)

	mr.FastForward(31 * time.Second)

	ok, err = guard.Acquire(ctx, "s1")
	require.NoError(t, err)
	assert.True(t, ok)
}
