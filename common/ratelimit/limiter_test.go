package ratelimit

import (
	"context"
	"os"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/efarmer/subsidy/common/logger"
)

func TestRateLimiter_DealerWindow(t *testing.T) {
	addr := os.Getenv("SUBSIDY_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("SUBSIDY_TEST_REDIS_ADDR not set")
	}

	ctx := context.Background()
	client := redis.NewClient(&redis.Options{Addr: addr, DB: 15})
	defer client.Close()
	require.NoError(t, client.FlushDB(ctx).Err())

	rl := NewRateLimiter(client, logger.NewNop())

	for i := 1; i <= 3; i++ {
		res, err := rl.CheckDealerLimit(ctx, "D001", 3, 60)
		require.NoError(t, err)
		assert.True(t, res.Allowed)
		assert.Equal(t, int64(i), res.CurrentCount)
	}

	res, err := rl.CheckDealerLimit(ctx, "D001", 3, 60)
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Greater(t, res.RetryAfterSeconds, int64(0))

	// Other dealers have their own window
	res, err = rl.CheckDealerLimit(ctx, "D002", 3, 60)
	require.NoError(t, err)
	assert.True(t, res.Allowed)

	require.NoError(t, rl.ResetDealer(ctx, "D001"))
	res, err = rl.CheckDealerLimit(ctx, "D001", 3, 60)
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}
