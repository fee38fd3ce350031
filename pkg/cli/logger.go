package cli

import (
	"fmt"

	"github.com/kaminari-anilist/kaminari/pkg/config"
	"github.com/kaminari-anilist/kaminari/pkg/observability/logger"
	"github.com/kaminari-anilist/kaminari/pkg/version"
)

// NewLogger builds the zap logger from the observability section, behind the async
// queue when log_queue.enabled is set.
func NewLogger(cfg *config.Config) (logger.Logger, error) {
	obs := cfg.Observability
	level, err := logger.ParseLogLevel(obs.LogLevel)
	if err != nil {
		return nil, err
	}
	format, err := logger.ParseLogFormat(obs.LogFormat)
	if err != nil {
		return nil, err
	}
	info := version.Current(cfg.Service.Name)
	base, err := logger.NewZapLogger(logger.Config{
		Level:  level,
		Format: format,
		Fields: map[string]string{"service": info.Service, "version": info.Version, "env": cfg.Service.Environment},
	})
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}
	return logger.Queued(base, logger.QueueConfig{
		Enabled:      obs.LogQueue.Enabled,
		Size:         obs.LogQueue.Size,
		DropWhenFull: obs.LogQueue.DropWhenFull,
	}), nil
}

// flushLogger drains the queue or syncs zap before the process exits.
func flushLogger(log logger.Logger) {
	switch l := log.(type) {
	case *logger.QueuedLogger:
		l.Close()
	case *logger.ZapLogger:
		_ = l.Sync()
	}
}
