// Package config loads kaminari's configuration from defaults, an optional YAML/JSON
// file, an optional secrets file and KAMINARI_* environment variables.
package config

import "time"

// Config is the root configuration.
type Config struct {
	Service       ServiceConfig       `mapstructure:"service"`
	HTTP          HTTPConfig          `mapstructure:"http"`
	Management    ManagementConfig    `mapstructure:"management"`
	CORS          CORSConfig          `mapstructure:"cors"`
	Auth          AuthConfig          `mapstructure:"auth"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Providers     ProvidersConfig     `mapstructure:"providers"`
	Rooms         RoomsConfig         `mapstructure:"rooms"`
	Observability ObservabilityConfig `mapstructure:"observability"`
	RateLimit     RateLimitConfig     `mapstructure:"rate_limit"`
}

type ServiceConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
}

// HTTPConfig configures the public API server.
type HTTPConfig struct {
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	MaxRequestSize  int64         `mapstructure:"max_request_size"`
}

// ManagementConfig configures the health/metrics server.
type ManagementConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

type CORSConfig struct {
	Enabled          bool     `mapstructure:"enabled"`
	AllowOrigins     []string `mapstructure:"allow_origins"`
	AllowMethods     []string `mapstructure:"allow_methods"`
	AllowHeaders     []string `mapstructure:"allow_headers"`
	ExposeHeaders    []string `mapstructure:"expose_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
	MaxAge           int      `mapstructure:"max_age"`
}

// AuthConfig configures token issuance and validation.
type AuthConfig struct {
	SigningKey string        `mapstructure:"signing_key" secret:"true"`
	Issuer     string        `mapstructure:"issuer"`
	Audience   string        `mapstructure:"audience"`
	TokenTTL   time.Duration `mapstructure:"token_ttl"`
	BcryptCost int           `mapstructure:"bcrypt_cost"`
}

// DatabaseConfig selects and configures the document store.
type DatabaseConfig struct {
	// Type is mongodb or memory.
	Type             string        `mapstructure:"type"`
	URL              string        `mapstructure:"url" secret:"true"`
	DatabaseName     string        `mapstructure:"database_name"`
	ConnectTimeout   time.Duration `mapstructure:"connect_timeout"`
	OperationTimeout time.Duration `mapstructure:"operation_timeout"`
	MaxPoolSize      uint64        `mapstructure:"max_pool_size"`
	// Provision creates missing collections and indexes at startup.
	Provision bool `mapstructure:"provision"`
	// Transactions groups multi-document writes; MongoDB needs a replica set for it.
	Transactions bool `mapstructure:"transactions"`
}

// ProviderConfig configures one outbound API.
type ProviderConfig struct {
	BaseURL           string        `mapstructure:"base_url"`
	APIKey            string        `mapstructure:"api_key" secret:"true"`
	Timeout           time.Duration `mapstructure:"timeout"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
	Burst             int           `mapstructure:"burst"`
	// BreakerFailures consecutive failures open the provider's circuit breaker for
	// BreakerCooldown.
	BreakerFailures int           `mapstructure:"breaker_failures"`
	BreakerCooldown time.Duration `mapstructure:"breaker_cooldown"`
}

type ProvidersConfig struct {
	Jikan        ProviderConfig      `mapstructure:"jikan"`
	TMDB         TMDBConfig          `mapstructure:"tmdb"`
	Watch2Gether ProviderConfig      `mapstructure:"watch2gether"`
	YouTube      ProviderConfig      `mapstructure:"youtube"`
	Cache        ResponseCacheConfig `mapstructure:"cache"`
}

type TMDBConfig struct {
	ProviderConfig `mapstructure:",squash"`
	ImageBaseURL   string `mapstructure:"image_base_url"`
	Language       string `mapstructure:"language"`
}

// ResponseCacheConfig caches successful GET responses of the read-only providers in Redis.
type ResponseCacheConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	TTL     time.Duration `mapstructure:"ttl"`
	Redis   RedisConfig   `mapstructure:"redis"`
}

type RoomsConfig struct {
	TTL                 time.Duration `mapstructure:"ttl"`
	ConnectionURLPrefix string        `mapstructure:"connection_url_prefix"`
}

type ObservabilityConfig struct {
	LogLevel          string         `mapstructure:"log_level"`
	LogFormat         string         `mapstructure:"log_format"`
	LogQueue          LogQueueConfig `mapstructure:"log_queue"`
	TracingEnabled    bool           `mapstructure:"tracing_enabled"`
	TracingEndpoint   string         `mapstructure:"tracing_endpoint"`
	TracingInsecure   bool           `mapstructure:"tracing_insecure"`
	TracingSampleRate float64        `mapstructure:"tracing_sample_rate"`
}

type LogQueueConfig struct {
	Enabled      bool `mapstructure:"enabled"`
	Size         int  `mapstructure:"size"`
	DropWhenFull bool `mapstructure:"drop_when_full"`
}

// RateLimitConfig configures inbound request throttling per client IP.
type RateLimitConfig struct {
	Enabled           bool          `mapstructure:"enabled"`
	Type              string        `mapstructure:"type"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
	Burst             int           `mapstructure:"burst"`
	Window            time.Duration `mapstructure:"window"`
	Redis             RedisConfig   `mapstructure:"redis"`
}

type RedisConfig struct {
	URL              string        `mapstructure:"url" secret:"true"`
	MaxConns         int           `mapstructure:"max_conns"`
	OperationTimeout time.Duration `mapstructure:"operation_timeout"`
	Prefix           string        `mapstructure:"prefix"`
}

// DefaultConfig returns a configuration that runs locally against mongodb://localhost.
func DefaultConfig() *Config {
	return &Config{
		Service: ServiceConfig{
			Name:        "kaminari",
			Environment: "development",
		},
		HTTP: HTTPConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			IdleTimeout:     120 * time.Second,
			ShutdownTimeout: 15 * time.Second,
			MaxRequestSize:  4 << 20,
		},
		Management: ManagementConfig{
			Enabled:      true,
			Port:         9090,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
		CORS: CORSConfig{
			Enabled:      true,
			AllowOrigins: []string{"*"},
			AllowMethods: []string{"GET", "POST", "OPTIONS"},
			AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
			MaxAge:       600,
		},
		Auth: AuthConfig{
			Issuer:     "kaminari",
			Audience:   "kaminari-web",
			TokenTTL:   24 * time.Hour,
			BcryptCost: 10,
		},
		Database: DatabaseConfig{
			Type:             "mongodb",
			URL:              "mongodb://localhost:27017",
			DatabaseName:     "kaminari",
			ConnectTimeout:   10 * time.Second,
			OperationTimeout: 5 * time.Second,
			Provision:        true,
		},
		Providers: ProvidersConfig{
			Jikan: ProviderConfig{
				BaseURL:           "https://api.jikan.moe/v4",
				Timeout:           10 * time.Second,
				RequestsPerSecond: 3,
				Burst:             3,
				BreakerFailures:   5,
				BreakerCooldown:   30 * time.Second,
			},
			TMDB: TMDBConfig{
				ProviderConfig: ProviderConfig{
					BaseURL:           "https://api.themoviedb.org/3",
					Timeout:           10 * time.Second,
					RequestsPerSecond: 40,
					Burst:             20,
					BreakerFailures:   5,
					BreakerCooldown:   30 * time.Second,
				},
				ImageBaseURL: "https://image.tmdb.org/t/p/original",
				Language:     "tr-TR",
			},
			Watch2Gether: ProviderConfig{
				BaseURL:           "https://api.w2g.tv",
				Timeout:           10 * time.Second,
				RequestsPerSecond: 5,
				Burst:             5,
				BreakerFailures:   5,
				BreakerCooldown:   30 * time.Second,
			},
			YouTube: ProviderConfig{
				BaseURL:           "https://www.googleapis.com/youtube/v3",
				Timeout:           10 * time.Second,
				RequestsPerSecond: 10,
				Burst:             10,
				BreakerFailures:   5,
				BreakerCooldown:   30 * time.Second,
			},
			Cache: ResponseCacheConfig{
				TTL: 10 * time.Minute,
				Redis: RedisConfig{
					MaxConns:         10,
					OperationTimeout: 2 * time.Second,
					Prefix:           "kaminari:http:",
				},
			},
		},
		Rooms: RoomsConfig{
			TTL:                 24 * time.Hour,
			ConnectionURLPrefix: "https://w2g.tv/tr/room/?r=",
		},
		Observability: ObservabilityConfig{
			LogLevel:          "info",
			LogFormat:         "json",
			LogQueue:          LogQueueConfig{Size: 1024},
			TracingSampleRate: 0.1,
		},
		RateLimit: RateLimitConfig{
			Type:              "local",
			RequestsPerSecond: 20,
			Burst:             40,
			Window:            time.Second,
			Redis: RedisConfig{
				MaxConns:         10,
				OperationTimeout: time.Second,
				Prefix:           "kaminari:rl:",
			},
		},
	}
}
