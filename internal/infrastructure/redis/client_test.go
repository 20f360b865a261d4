package redis_test

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/north-cloud/sentiment/internal/infrastructure/redis"
)

func TestNewClient_EmptyAddress(t *testing.T) {
	t.Parallel()

	client, err := redis.NewClient(context.Background(), redis.Config{})

	require.ErrorIs(t, err, redis.ErrEmptyAddress)
	assert.Nil(t, client)
}

func TestNewClient_Unreachable(t *testing.T) {
	t.Parallel()

	// Port 1 on loopback refuses connections.
	client, err := redis.NewClient(context.Background(), redis.Config{Address: "127.0.0.1:1"})

	require.Error(t, err)
	assert.Nil(t, client)
}

func TestNewClient_ConnectsToRedis(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDRESS")
	if testing.Short() || addr == "" {
		t.Skip("set TEST_REDIS_ADDRESS to run against a live Redis")
	}

	client, err := redis.NewClient(context.Background(), redis.Config{Address: addr})
	require.NoError(t, err)
	defer client.Close()

	assert.NoError(t, client.Ping(context.Background()).Err())
}

func TestConfig_Options(t *testing.T) {
	t.Parallel()

	opts := redis.Config{Address: "cache:6379", Password: "pw", DB: 2, MaxRetries: 5, PoolSize: 8}.Options()

	assert.Equal(t, "cache:6379", opts.Addr)
	assert.Equal(t, "pw", opts.Password)
	assert.Equal(t, 2, opts.DB)
	assert.Equal(t, 5, opts.MaxRetries)
	assert.Equal(t, 8, opts.PoolSize)
}
