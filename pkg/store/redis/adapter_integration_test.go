package redis

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/kaminari-anilist/kaminari/pkg/observability/logger"
	"github.com/kaminari-anilist/kaminari/pkg/testutil"
)

func TestAdapter_Integration(t *testing.T) {
	testutil.RequireIntegration(t)
	ctx := context.Background()

	container, err := tcredis.Run(ctx, "redis:7-alpine",
		testcontainers.WithWaitStrategy(wait.ForLog("Ready to accept connections").WithStartupTimeout(time.Minute)),
	)
	testcontainers.CleanupContainer(t, container)
	require.NoError(t, err)

	url, err := container.ConnectionString(ctx)
	require.NoError(t, err)

	a, err := NewAdapter(ctx, Config{URL: url, MaxConns: 20, OperationTimeout: 5 * time.Second, KeyPrefix: "test:"}, logger.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	t.Run("HealthCheck", func(t *testing.T) {
		assert.NoError(t, a.HealthCheck(ctx))
	})

	t.Run("GetSetDelete", func(t *testing.T) {
		require.NoError(t, a.SetWithTTL(ctx, "jikan:top", []byte(`{"data":[]}`), time.Minute))
		got, err := a.Get(ctx, "jikan:top")
		require.NoError(t, err)
		assert.JSONEq(t, `{"data":[]}`, string(got))

		require.NoError(t, a.Delete(ctx, "jikan:top"))
		_, err = a.Get(ctx, "jikan:top")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("TTLExpires", func(t *testing.T) {
		require.NoError(t, a.SetWithTTL(ctx, "short", []byte("x"), time.Second))
		assert.Eventually(t, func() bool {
			_, err := a.Get(ctx, "short")
			return err == ErrNotFound
		}, 3*time.Second, 100*time.Millisecond)
	})

	t.Run("IncrWindowIsAtomic", func(t *testing.T) {
		const hits = 50
		var wg sync.WaitGroup
		for range hits {
			wg.Go(func() {
				_, _, err := a.IncrWindow(ctx, "rl:concurrent", time.Minute)
				assert.NoError(t, err)
			})
		}
		wg.Wait()

		n, left, err := a.IncrWindow(ctx, "rl:concurrent", time.Minute)
		require.NoError(t, err)
		assert.EqualValues(t, hits+1, n)
		assert.Greater(t, left, time.Duration(0))
		assert.LessOrEqual(t, left, time.Minute)
	})
}
