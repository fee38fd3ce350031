package mongodb

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kaminari-anilist/kaminari/pkg/observability/logger"
)

func closedAdapter() *Adapter {
	a := &Adapter{log: logger.NewNop()}
	a.closed.Store(true)
	return a
}

func TestNewAdapter_Validation(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{name: "empty config", cfg: Config{}, wantErr: "URL is required"},
		{name: "missing database", cfg: Config{URL: "mongodb://localhost:27017"}, wantErr: "database is required"},
		{name: "missing url", cfg: Config{Database: "kaminari"}, wantErr: "URL is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewAdapter(context.Background(), tt.cfg, logger.NewNop())
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestConfig_Defaults(t *testing.T) {
	cfg := Config{URL: "mongodb://localhost:27017", Database: "kaminari"}
	require.NoError(t, cfg.setDefaults())
	assert.Equal(t, defaultConnectTimeout, cfg.ConnectTimeout)
	assert.Equal(t, defaultOperationTimeout, cfg.OperationTimeout)
}

func TestClosedAdapter(t *testing.T) {
	a := closedAdapter()
	ctx := context.Background()

	assert.ErrorIs(t, a.HealthCheck(ctx), ErrClosed)
	_, err := a.EnsureCollection(ctx, "User")
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, a.WithTransaction(ctx, func(context.Context) error { return nil }), ErrClosed)
	assert.NoError(t, a.Close(), "closing twice is a no-op")
}

func TestOperationContext(t *testing.T) {
	t.Run("applies the timeout", func(t *testing.T) {
		a := &Adapter{timeout: 2 * time.Second}
		ctx, cancel := a.OperationContext(context.Background())
		defer cancel()

		deadline, ok := ctx.Deadline()
		require.True(t, ok)
		assert.WithinDuration(t, time.Now().Add(2*time.Second), deadline, 100*time.Millisecond)
	})

	t.Run("keeps the caller deadline", func(t *testing.T) {
		a := &Adapter{timeout: 2 * time.Second}
		parent, parentCancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
		defer parentCancel()

		ctx, cancel := a.OperationContext(parent)
		defer cancel()
		want, _ := parent.Deadline()
		got, _ := ctx.Deadline()
		assert.Equal(t, want, got)
	})

	t.Run("no timeout configured", func(t *testing.T) {
		ctx, cancel := (&Adapter{}).OperationContext(context.Background())
		defer cancel()
		_, ok := ctx.Deadline()
		assert.False(t, ok)
	})
}
