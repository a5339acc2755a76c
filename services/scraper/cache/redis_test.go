package cache

import (
	"context"
	"fmt"
	"io"
	"log"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// newRedisTestStore starts a throwaway redis container and returns a
// store pointed at it.
func newRedisTestStore(t *testing.T, defaultTTL time.Duration) *RedisStore {
	t.Helper()

	testcontainers.Logger = log.New(io.Discard, "", 0)

	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		Started: true,
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections"),
		},
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		err := container.Terminate(context.Background())
		require.NoError(t, err)
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "6379")
	require.NoError(t, err)

	store, err := NewRedisStore(fmt.Sprintf("redis://%s:%s", host, port.Port()), defaultTTL)
	require.NoError(t, err)
	return store
}

func TestRedisCacheAgeFromEnvelope(t *testing.T) {
	base := time.Date(2026, 1, 20, 12, 0, 0, 0, time.UTC)

	store := newRedisTestStore(t, time.Hour)
	defer store.Close()
	ctx := context.Background()

	store.now = func() time.Time { return base }
	require.NoError(t, store.Set(ctx, "sampleuser", sampleResult("sampleuser")))

	store.now = func() time.Time { return base.Add(90 * time.Second) }
	got, err := store.Get(ctx, "sampleuser")
	require.NoError(t, err)
	require.NotNil(t, got)
	require.True(t, got.Cached)
	require.InDelta(t, 90, *got.CacheAgeSeconds, 1)
}

func TestRedisZeroTTLShadowsPreviousEntry(t *testing.T) {
	store := newRedisTestStore(t, time.Hour)
	defer store.Close()
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "sampleuser", sampleResult("sampleuser")))
	require.NoError(t, store.Set(ctx, "sampleuser", sampleResult("sampleuser"), 0))

	got, err := store.Get(ctx, "sampleuser")
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestRedisStoreRejectsBadURL(t *testing.T) {
	_, err := NewRedisStore("://not-a-url", time.Hour)
	require.Error(t, err)
}
