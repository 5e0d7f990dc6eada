package bootstrap

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/efarmer/subsidy/common/config"
	"github.com/efarmer/subsidy/common/logger"
)

func memoryConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Load("subsidy-test")
	require.NoError(t, err)
	cfg.Telemetry.EnableMetrics = false
	cfg.Telemetry.EnablePprof = false
	return cfg
}

func TestSetup_MemoryBackends(t *testing.T) {
	ctx := context.Background()

	c, err := Setup(ctx, "subsidy-test",
		WithCustomConfig(memoryConfig(t)),
		WithCustomLogger(logger.NewNop()),
	)
	require.NoError(t, err)

	assert.Nil(t, c.DB)
	assert.Nil(t, c.Redis)
	assert.NotNil(t, c.Queue)
	assert.NotNil(t, c.Cache)
	assert.NotNil(t, c.Metrics)
	assert.NotNil(t, c.Registry)
	assert.Nil(t, c.Telemetry)

	assert.NoError(t, c.Health(ctx))
	assert.NoError(t, c.Shutdown(ctx))
	// Second shutdown has nothing left to clean
	assert.NoError(t, c.Shutdown(ctx))
}

func TestSetup_SkipOptions(t *testing.T) {
	ctx := context.Background()

	c, err := Setup(ctx, "subsidy-test",
		WithCustomConfig(memoryConfig(t)),
		WithCustomLogger(logger.NewNop()),
		WithoutQueue(),
		WithoutCache(),
	)
	require.NoError(t, err)
	defer c.Shutdown(ctx)

	assert.Nil(t, c.Queue)
	assert.Nil(t, c.Cache)
}

func TestSetup_UnknownQueue(t *testing.T) {
	cfg := memoryConfig(t)
	cfg.Queue.Type = "sqs"

	_, err := Setup(context.Background(), "subsidy-test",
		WithCustomConfig(cfg),
		WithCustomLogger(logger.NewNop()),
	)
	assert.ErrorContains(t, err, "unknown queue type")
}
