// Package app assembles a kaminari instance from its configuration: stores, providers,
// services, controllers and the two HTTP servers.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"

	"github.com/kaminari-anilist/kaminari/pkg/apiclient"
	"github.com/kaminari-anilist/kaminari/pkg/auth"
	"github.com/kaminari-anilist/kaminari/pkg/config"
	"github.com/kaminari-anilist/kaminari/pkg/controller"
	"github.com/kaminari-anilist/kaminari/pkg/health"
	"github.com/kaminari-anilist/kaminari/pkg/i18n"
	"github.com/kaminari-anilist/kaminari/pkg/middleware/authn"
	"github.com/kaminari-anilist/kaminari/pkg/middleware/ratelimit"
	"github.com/kaminari-anilist/kaminari/pkg/observability/logger"
	"github.com/kaminari-anilist/kaminari/pkg/observability/metrics"
	"github.com/kaminari-anilist/kaminari/pkg/observability/tracing"
	"github.com/kaminari-anilist/kaminari/pkg/provider/jikan"
	"github.com/kaminari-anilist/kaminari/pkg/provider/tmdb"
	"github.com/kaminari-anilist/kaminari/pkg/provider/watch2gether"
	"github.com/kaminari-anilist/kaminari/pkg/provider/youtube"
	"github.com/kaminari-anilist/kaminari/pkg/repository"
	"github.com/kaminari-anilist/kaminari/pkg/repository/domain"
	"github.com/kaminari-anilist/kaminari/pkg/server"
	"github.com/kaminari-anilist/kaminari/pkg/server/router"
	ginadapter "github.com/kaminari-anilist/kaminari/pkg/server/router/gin"
	"github.com/kaminari-anilist/kaminari/pkg/service"
	"github.com/kaminari-anilist/kaminari/pkg/store"
	"github.com/kaminari-anilist/kaminari/pkg/store/redis"
	"github.com/kaminari-anilist/kaminari/pkg/version"
)

// App is a fully wired instance. Close releases what New acquired when Run is not used.
type App struct {
	Config  *config.Config
	Log     logger.Logger
	Servers *server.HTTPServers
	Health  *health.Registry

	closers []server.LifecycleHook
}

// Option customizes New.
type Option func(*options)

type options struct {
	httpClient *http.Client
	docStore   store.Adapter
}

// WithHTTPClient sends every provider call through hc.
func WithHTTPClient(hc *http.Client) Option {
	return func(o *options) { o.httpClient = hc }
}

// WithDocumentStore uses adapter instead of connecting the store named by the config.
// The App does not close it.
func WithDocumentStore(adapter store.Adapter) Option {
	return func(o *options) { o.docStore = adapter }
}

// New connects the stores and builds every component. On error everything acquired so
// far is released.
func New(ctx context.Context, cfg *config.Config, log logger.Logger, opts ...Option) (_ *App, err error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	a := &App{Config: cfg, Log: log, Health: health.NewRegistry()}
	defer func() {
		if err != nil {
			_ = a.Close(context.WithoutCancel(ctx))
		}
	}()

	info := version.Current(cfg.Service.Name)
	log.Info("application version metadata",
		"service", info.Service,
		"version", info.Version,
		"commit", info.Commit,
		"build_time", info.BuildTime,
	)

	_, tracingHook, err := server.InitTracing(ctx, cfg, info)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, tracingHook)

	docStore := o.docStore
	if docStore == nil {
		docStore, err = store.NewDocumentStore(ctx, cfg.Database, cfg.Service.Name, log)
		if err != nil {
			return nil, fmt.Errorf("connect document store: %w", err)
		}
		a.closers = append(a.closers, closeHook("document-store", docStore))
	}
	a.Health.Register(health.NewDatabaseChecker(cfg.Database.Type, docStore))

	repos, err := domain.Open(ctx, docStore, domain.Options{
		Provision:    cfg.Database.Provision,
		Transactions: cfg.Database.Transactions,
		Logger:       log,
		Observer: repository.Observers(
			metrics.RepositoryObserver(),
			tracing.RepositoryObserver(cfg.Database.Type),
		),
	})
	if err != nil {
		return nil, fmt.Errorf("open repositories: %w", err)
	}

	cache, err := a.responseCache(ctx)
	if err != nil {
		return nil, err
	}
	limiter, err := a.rateLimiter(ctx)
	if err != nil {
		return nil, err
	}

	clientOpts := []apiclient.Option{apiclient.WithLogger(log), apiclient.WithCache(cache)}
	if o.httpClient != nil {
		clientOpts = append(clientOpts, apiclient.WithHTTPClient(o.httpClient))
	}
	newClient := func(name string, p config.ProviderConfig) (*apiclient.Client, error) {
		c, err := apiclient.New(apiclient.FromProvider(name, p, cfg.Providers.Cache), clientOpts...)
		if err != nil {
			return nil, err
		}
		a.Health.Register(health.NewBreakerChecker(name, c.Breaker()))
		return c, nil
	}

	jikanAPI, err := newClient(jikan.Name, cfg.Providers.Jikan)
	if err != nil {
		return nil, err
	}
	tmdbAPI, err := newClient(tmdb.Name, cfg.Providers.TMDB.ProviderConfig)
	if err != nil {
		return nil, err
	}
	w2gAPI, err := newClient(watch2gether.Name, cfg.Providers.Watch2Gether)
	if err != nil {
		return nil, err
	}
	youtubeAPI, err := newClient(youtube.Name, cfg.Providers.YouTube)
	if err != nil {
		return nil, err
	}

	tokens, err := auth.NewHMACService(auth.HMACConfig{
		SigningKey: cfg.Auth.SigningKey,
		Issuer:     cfg.Auth.Issuer,
		Audience:   cfg.Auth.Audience,
		TTL:        cfg.Auth.TokenTTL,
	}, log)
	if err != nil {
		return nil, err
	}

	watchlist := service.NewWatchlist(repos.Profiles, repos.Animes, repos.Tx, log)
	accounts := service.NewAccounts(repos.Users, tokens, auth.NewHasher(cfg.Auth.BcryptCost), log)
	anime := service.NewAnime(jikan.New(jikanAPI), watchlist, log)
	movies := service.NewMovies(tmdb.New(tmdbAPI, cfg.Providers.TMDB.APIKey,
		tmdb.WithLanguage(cfg.Providers.TMDB.Language),
		tmdb.WithImageBaseURL(cfg.Providers.TMDB.ImageBaseURL),
	))
	videos := service.NewVideos(youtube.New(youtubeAPI, cfg.Providers.YouTube.APIKey))
	rooms := service.NewRooms(repos.Rooms, watch2gether.New(w2gAPI, cfg.Providers.Watch2Gether.APIKey), service.RoomsOptions{
		TTL:       cfg.Rooms.TTL,
		URLPrefix: cfg.Rooms.ConnectionURLPrefix,
	}, log)

	catalog, err := i18n.DefaultCatalog("en", "")
	if err != nil {
		return nil, fmt.Errorf("load message catalog: %w", err)
	}
	publicOpts := server.DefaultPublicOptions(cfg)
	publicOpts.Catalog = catalog
	publicOpts.Limiter = limiter
	public := server.NewPublicAPIServer(cfg.HTTP, ginadapter.NewRouter(), log, publicOpts)
	controller.Mount(public.Router(), []router.MiddlewareFunc{authn.Authenticate(tokens)},
		controller.NewAuthController(accounts),
		controller.NewProfileController(watchlist),
		controller.NewAnimeController(anime),
		controller.NewMovieController(movies),
		controller.NewTogetherController(rooms, videos),
	)

	a.Servers = &server.HTTPServers{Public: public}
	if cfg.Management.Enabled {
		a.Servers.Management = server.NewManagementServer(cfg.Management, ginadapter.NewRouter(), log,
			a.Health, metrics.NewRegistry(), info)
	}
	return a, nil
}

// responseCache connects Redis for provider responses when the cache is enabled.
func (a *App) responseCache(ctx context.Context) (apiclient.Cache, error) {
	cfg := a.Config.Providers.Cache
	if !cfg.Enabled {
		return apiclient.NopCache{}, nil
	}
	adapter, err := a.connectRedis(ctx, "response-cache", cfg.Redis)
	if err != nil {
		return nil, err
	}
	return apiclient.NewRedisCache(adapter, a.Log), nil
}

// rateLimiter returns nil when inbound rate limiting is disabled.
func (a *App) rateLimiter(ctx context.Context) (ratelimit.RateLimiter, error) {
	cfg := a.Config.RateLimit
	if !cfg.Enabled {
		return nil, nil
	}
	if cfg.Type != "redis" {
		return ratelimit.NewTokenBucketLimiter(cfg.RequestsPerSecond, cfg.Burst), nil
	}
	adapter, err := a.connectRedis(ctx, "rate-limit", cfg.Redis)
	if err != nil {
		return nil, err
	}
	return ratelimit.NewRedisRateLimiter(adapter, cfg.RequestsPerSecond, cfg.Burst, cfg.Window,
		cfg.Redis.OperationTimeout, a.Log), nil
}

func (a *App) connectRedis(ctx context.Context, name string, cfg config.RedisConfig) (*redis.Adapter, error) {
	adapter, err := store.NewRedisAdapter(ctx, cfg, a.Log)
	if err != nil {
		return nil, fmt.Errorf("connect redis for %s: %w", name, err)
	}
	a.closers = append(a.closers, closeHook(name, adapter))
	a.Health.Register(health.NewCacheChecker(name, adapter))
	return adapter, nil
}

// Run serves until ctx is cancelled or a signal arrives, then releases every resource.
func (a *App) Run(ctx context.Context) error {
	closers := a.closers
	a.closers = nil
	return server.RunWithSignals(ctx, a.Servers, server.RunOptions{
		Logger:        a.Log,
		ShutdownHooks: reversed(closers),
	})
}

// Close releases the stores and the tracer provider in reverse order of acquisition.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	for _, hook := range reversed(a.closers) {
		if err := hook.Fn(ctx); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", hook.Name, err))
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

// CheckDependencies connects to the configured stores once and reports the first
// unreachable one.
func CheckDependencies(ctx context.Context, cfg *config.Config, log logger.Logger) error {
	registry := health.NewRegistry()

	docStore, err := store.NewDocumentStore(ctx, cfg.Database, cfg.Service.Name, log)
	if err != nil {
		return fmt.Errorf("%s: %w", cfg.Database.Type, err)
	}
	defer func() { _ = docStore.Close() }()
	registry.Register(health.NewDatabaseChecker(cfg.Database.Type, docStore))

	for name, redisCfg := range map[string]config.RedisConfig{
		"response-cache": cfg.Providers.Cache.Redis,
		"rate-limit":     cfg.RateLimit.Redis,
	} {
		if redisCfg.URL == "" {
			continue
		}
		adapter, err := store.NewRedisAdapter(ctx, redisCfg, log)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		defer func() { _ = adapter.Close() }()
		registry.Register(health.NewCacheChecker(name, adapter))
	}

	result := registry.Check(ctx)
	for _, check := range result.Checks {
		log.Info("dependency check", "name", check.Name, "status", check.Status, "duration", check.Duration.String())
		if check.Status != health.StatusHealthy {
			return fmt.Errorf("%s: %s", check.Name, check.Error)
		}
	}
	return nil
}

func closeHook(name string, c interface{ Close() error }) server.LifecycleHook {
	return server.LifecycleHook{Name: name, Fn: func(context.Context) error { return c.Close() }}
}

func reversed(hooks []server.LifecycleHook) []server.LifecycleHook {
	out := slices.Clone(hooks)
	slices.Reverse(out)
	return out
}
