package redis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/PurificacionDomenech/Tranding-Control-Automatizado/pkg/config"
)

func disabledClient(t *testing.T) *Client {
	t.Helper()
	client, err := New(&config.Config{Redis: config.RedisConfig{Enabled: false}})
	require.NoError(t, err)
	return client
}

func TestNewClient_Disabled(t *testing.T) {
	client := disabledClient(t)
	assert.False(t, client.Enabled())
	assert.NoError(t, client.Close())
}

func TestRateLimiter_Disabled(t *testing.T) {
	limiter := NewRateLimiter(disabledClient(t), "test")
	cfg := ImportRateLimit("acc-1", 3, time.Minute)

	for i := 0; i < 10; i++ {
		allowed, remaining, err := limiter.Allow(context.Background(), cfg)
		require.NoError(t, err)
		assert.True(t, allowed)
		assert.Equal(t, 3, remaining)
	}
	assert.NoError(t, limiter.Wait(context.Background(), cfg))
}

func TestCache_Disabled(t *testing.T) {
	cache := NewCache(disabledClient(t), "test")
	ctx := context.Background()

	var result string
	found, err := cache.Get(ctx, "key", &result)
	require.NoError(t, err)
	assert.False(t, found)

	assert.NoError(t, cache.Set(ctx, "key", "value", TTLShort))
	assert.NoError(t, cache.Delete(ctx, "key"))

	calls := 0
	err = cache.GetOrSet(ctx, "key", &result, TTLShort, func() (interface{}, error) {
		calls++
		return "computed", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "computed", result)
	assert.Equal(t, 1, calls)
}

func TestCacheKeys(t *testing.T) {
	assert.Equal(t, "dashboard:acc-1", DashboardKey("acc-1"))
	assert.Equal(t, []string{"dashboard:acc-1"}, AccountKeys("acc-1"))

	cfg := ImportRateLimit("acc-1", 5, time.Minute)
	assert.Equal(t, "import:acc-1", cfg.Key)
	assert.Equal(t, 5, cfg.Limit)
	assert.Equal(t, time.Minute, cfg.Window)
}

func setupRedis(t *testing.T) *Client {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping redis integration test in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err, "failed to start redis container")

	endpoint, err := container.Endpoint(ctx, "")
	require.NoError(t, err)

	client, err := Dial(ctx, endpoint, "", 0)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = client.Close()
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})
	return client
}

func TestRedisIntegration(t *testing.T) {
	client := setupRedis(t)
	ctx := context.Background()

	t.Run("CacheRoundTrip", func(t *testing.T) {
		cache := NewCache(client, "journal")
		type payload struct {
			Balance float64 `json:"balance"`
		}

		require.NoError(t, cache.Set(ctx, DashboardKey("a"), payload{Balance: 51000}, TTLShort))

		var got payload
		found, err := cache.Get(ctx, DashboardKey("a"), &got)
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, 51000.0, got.Balance)

		require.NoError(t, cache.Delete(ctx, AccountKeys("a")...))
		found, err = cache.Get(ctx, DashboardKey("a"), &got)
		require.NoError(t, err)
		assert.False(t, found)
	})

	t.Run("SlidingWindow", func(t *testing.T) {
		limiter := NewRateLimiter(client, "journal")
		cfg := ImportRateLimit("b", 2, time.Minute)

		allowed, remaining, err := limiter.Allow(ctx, cfg)
		require.NoError(t, err)
		assert.True(t, allowed)
		assert.Equal(t, 1, remaining)

		allowed, remaining, err = limiter.Allow(ctx, cfg)
		require.NoError(t, err)
		assert.True(t, allowed)
		assert.Equal(t, 0, remaining)

		allowed, _, err = limiter.Allow(ctx, cfg)
		require.NoError(t, err)
		assert.False(t, allowed)
	})
}
