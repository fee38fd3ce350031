package server

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kaminari-anilist/kaminari/pkg/config"
	"github.com/kaminari-anilist/kaminari/pkg/observability/logger"
	"github.com/kaminari-anilist/kaminari/pkg/observability/tracing"
	"github.com/kaminari-anilist/kaminari/pkg/version"
)

// LifecycleHook is a named step run around the servers, such as provisioning
// collections before start or closing a store after stop.
type LifecycleHook struct {
	Name string
	Fn   func(context.Context) error
}

func (h LifecycleHook) label() string {
	if name := strings.TrimSpace(h.Name); name != "" {
		return name
	}
	return "unnamed"
}

// HTTPServers are the servers Run supervises. Management is optional.
type HTTPServers struct {
	Public     *PublicAPIServer
	Management *ManagementServer
}

type RunOptions struct {
	Logger logger.Logger
	// StartupHooks run in order before the servers listen. The first error aborts Run.
	StartupHooks []LifecycleHook
	// ShutdownHooks run in order once the servers have stopped. Each gets
	// ShutdownHookTimeout, ten seconds by default, and a failure does not stop the rest.
	ShutdownHooks       []LifecycleHook
	ShutdownHookTimeout time.Duration
}

// Run serves until ctx is cancelled or a server fails. Either way both servers are
// shut down before the shutdown hooks run.
func Run(ctx context.Context, servers *HTTPServers, opts RunOptions) error {
	switch {
	case servers == nil || servers.Public == nil:
		return errors.New("a public server is required")
	case opts.Logger == nil:
		return errors.New("a logger is required")
	}

	if err := startup(ctx, opts.Logger, opts.StartupHooks); err != nil {
		return err
	}
	defer func() {
		if err := shutdown(opts.Logger, opts.ShutdownHooks, opts.ShutdownHookTimeout); err != nil {
			opts.Logger.Error("shutdown finished with errors", "error", err)
		}
	}()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return servers.Public.Start(gctx) })
	if servers.Management != nil {
		g.Go(func() error { return servers.Management.Start(gctx) })
	}
	return g.Wait()
}

// RunWithSignals is Run with ctx also cancelled by SIGINT or SIGTERM.
func RunWithSignals(ctx context.Context, servers *HTTPServers, opts RunOptions) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	return Run(ctx, servers, opts)
}

// InitTracing builds the tracer provider from the observability section. The returned
// hook flushes and stops it.
func InitTracing(ctx context.Context, cfg *config.Config, info version.Info) (*tracing.Provider, LifecycleHook, error) {
	obs := cfg.Observability
	provider, err := tracing.Setup(ctx, tracing.Options{
		Enabled:     obs.TracingEnabled,
		Service:     info.Service,
		Version:     info.Version,
		Environment: normalizeEnvironment(cfg.Service.Environment),
		Endpoint:    obs.TracingEndpoint,
		Insecure:    obs.TracingInsecure,
		SampleRate:  obs.TracingSampleRate,
	})
	if err != nil {
		return nil, LifecycleHook{}, err
	}
	return provider, LifecycleHook{Name: "tracing", Fn: provider.Shutdown}, nil
}

func normalizeEnvironment(env string) string {
	if env = strings.TrimSpace(env); env != "" {
		return env
	}
	return version.Unknown
}

func startup(ctx context.Context, log logger.Logger, hooks []LifecycleHook) error {
	for _, h := range hooks {
		if h.Fn == nil {
			continue
		}
		start := time.Now()
		if err := h.Fn(ctx); err != nil {
			log.Error("startup hook failed", "hook", h.label(), "error", err)
			return fmt.Errorf("startup hook %q: %w", h.label(), err)
		}
		log.Info("startup hook finished", "hook", h.label(), "duration", time.Since(start).String())
	}
	return nil
}

func shutdown(log logger.Logger, hooks []LifecycleHook, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	var errs []error
	for _, h := range hooks {
		if h.Fn == nil {
			continue
		}
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		err := h.Fn(ctx)
		cancel()
		if err != nil {
			log.Error("shutdown hook failed", "hook", h.label(), "error", err)
			errs = append(errs, fmt.Errorf("shutdown hook %q: %w", h.label(), err))
			continue
		}
		log.Info("shutdown hook finished", "hook", h.label())
	}
	return errors.Join(errs...)
}
