package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kaminari-anilist/kaminari/pkg/config"
	"github.com/kaminari-anilist/kaminari/pkg/repository/memory"
	"github.com/kaminari-anilist/kaminari/pkg/testutil"
)

func TestNewDocumentStore_Memory(t *testing.T) {
	log := testutil.NewRecordingLogger()
	adapter, err := NewDocumentStore(context.Background(), config.DatabaseConfig{Type: " Memory "}, "kaminari", log)
	require.NoError(t, err)
	t.Cleanup(func() { _ = adapter.Close() })

	assert.IsType(t, &memory.Store{}, adapter)
	assert.NoError(t, adapter.HealthCheck(context.Background()))
	entry, ok := log.Find("using the in-memory document store; data is lost on restart")
	require.True(t, ok)
	assert.Equal(t, "warn", entry.Level)
}

func TestNewDocumentStore_Rejects(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.DatabaseConfig
		wantErr string
	}{
		{name: "unknown driver", cfg: config.DatabaseConfig{Type: "postgres"}, wantErr: "unsupported database.type"},
		{name: "mongodb without url", cfg: config.DatabaseConfig{Type: "mongodb"}, wantErr: "URL"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewDocumentStore(context.Background(), tt.cfg, "", testutil.NewRecordingLogger())
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestNewRedisAdapter_RequiresURL(t *testing.T) {
	_, err := NewRedisAdapter(context.Background(), config.RedisConfig{}, testutil.NewRecordingLogger())
	assert.Error(t, err)
}
