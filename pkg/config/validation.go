package config

import (
	"errors"
	"fmt"
	"reflect"
	"slices"
	"strings"
	"time"
)

func (c *Config) normalize() {
	c.Database.Type = strings.ToLower(strings.TrimSpace(c.Database.Type))
	c.RateLimit.Type = strings.ToLower(strings.TrimSpace(c.RateLimit.Type))
	c.CORS.AllowOrigins = compact(c.CORS.AllowOrigins)
	c.CORS.AllowMethods = compact(c.CORS.AllowMethods)
	c.CORS.AllowHeaders = compact(c.CORS.AllowHeaders)
}

func compact(values []string) []string {
	out := values[:0:0]
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error

	if c.Service.Name == "" {
		errs = append(errs, errors.New("service.name is required"))
	}
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		errs = append(errs, fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port))
	}
	if c.Management.Enabled {
		if c.Management.Port <= 0 || c.Management.Port > 65535 {
			errs = append(errs, fmt.Errorf("management.port must be between 1 and 65535, got %d", c.Management.Port))
		}
		if c.Management.Port == c.HTTP.Port {
			errs = append(errs, errors.New("management.port must differ from http.port"))
		}
	}

	if len(c.Auth.SigningKey) < 32 {
		errs = append(errs, errors.New("auth.signing_key must be at least 32 bytes"))
	}
	if c.Auth.TokenTTL <= 0 {
		errs = append(errs, errors.New("auth.token_ttl must be positive"))
	}
	if c.Auth.BcryptCost < 4 || c.Auth.BcryptCost > 31 {
		errs = append(errs, fmt.Errorf("auth.bcrypt_cost must be between 4 and 31, got %d", c.Auth.BcryptCost))
	}

	switch c.Database.Type {
	case "mongodb":
		if c.Database.URL == "" {
			errs = append(errs, errors.New("database.url is required for mongodb"))
		}
		if c.Database.DatabaseName == "" {
			errs = append(errs, errors.New("database.database_name is required for mongodb"))
		}
	case "memory":
	default:
		errs = append(errs, fmt.Errorf("database.type must be one of [mongodb memory], got %q", c.Database.Type))
	}

	for name, p := range map[string]ProviderConfig{
		"jikan":        c.Providers.Jikan,
		"tmdb":         c.Providers.TMDB.ProviderConfig,
		"watch2gether": c.Providers.Watch2Gether,
		"youtube":      c.Providers.YouTube,
	} {
		if p.BaseURL == "" {
			errs = append(errs, fmt.Errorf("providers.%s.base_url is required", name))
		}
		if p.RequestsPerSecond < 0 {
			errs = append(errs, fmt.Errorf("providers.%s.requests_per_second cannot be negative", name))
		}
		if p.BreakerFailures < 0 || p.BreakerCooldown < 0 {
			errs = append(errs, fmt.Errorf("providers.%s breaker settings cannot be negative", name))
		}
	}
	if c.Providers.Cache.Enabled {
		if c.Providers.Cache.Redis.URL == "" {
			errs = append(errs, errors.New("providers.cache.redis.url is required when the response cache is enabled"))
		}
		if c.Providers.Cache.TTL <= 0 {
			errs = append(errs, errors.New("providers.cache.ttl must be positive"))
		}
	}

	if c.Rooms.TTL <= 0 {
		errs = append(errs, errors.New("rooms.ttl must be positive"))
	}

	if c.Observability.TracingEnabled && c.Observability.TracingEndpoint == "" {
		errs = append(errs, errors.New("observability.tracing_endpoint is required when tracing is enabled"))
	}
	if r := c.Observability.TracingSampleRate; r < 0 || r > 1 {
		errs = append(errs, fmt.Errorf("observability.tracing_sample_rate must be within [0,1], got %v", r))
	}

	if c.RateLimit.Enabled {
		if !slices.Contains([]string{"local", "redis"}, c.RateLimit.Type) {
			errs = append(errs, fmt.Errorf("rate_limit.type must be one of [local redis], got %q", c.RateLimit.Type))
		}
		if c.RateLimit.RequestsPerSecond <= 0 {
			errs = append(errs, errors.New("rate_limit.requests_per_second must be positive"))
		}
		if c.RateLimit.Type == "redis" && c.RateLimit.Redis.URL == "" {
			errs = append(errs, errors.New("rate_limit.redis.url is required when rate_limit.type is redis"))
		}
	}

	return errors.Join(errs...)
}

// String renders the configuration as indented key/value lines with every field tagged
// secret:"true" masked.
func (c *Config) String() string {
	var sb strings.Builder
	format(&sb, reflect.ValueOf(c).Elem(), "")
	return sb.String()
}

func format(sb *strings.Builder, v reflect.Value, indent string) {
	t := v.Type()
	for i := range t.NumField() {
		f := t.Field(i)
		value := v.Field(i)
		name, squash := tagName(f)

		if value.Kind() == reflect.Struct && !isLeafStruct(f.Type) {
			if squash {
				format(sb, value, indent)
				continue
			}
			fmt.Fprintf(sb, "%s%s:\n", indent, name)
			format(sb, value, indent+"  ")
			continue
		}

		display := value.Interface()
		if f.Tag.Get("secret") == "true" && !value.IsZero() {
			display = "***"
		}
		if value.Kind() == reflect.Slice {
			if value.Len() == 0 {
				fmt.Fprintf(sb, "%s%s: []\n", indent, name)
				continue
			}
			fmt.Fprintf(sb, "%s%s:\n", indent, name)
			for j := range value.Len() {
				fmt.Fprintf(sb, "%s  - %v\n", indent, value.Index(j).Interface())
			}
			continue
		}
		fmt.Fprintf(sb, "%s%s: %v\n", indent, name, display)
	}
}

// Settings returns the configuration as nested maps keyed like the config file, with
// secrets masked. time.Duration values are rendered as strings.
func (c *Config) Settings() map[string]any {
	return settingsMap(reflect.ValueOf(c).Elem())
}

func settingsMap(v reflect.Value) map[string]any {
	out := make(map[string]any)
	t := v.Type()
	for i := range t.NumField() {
		f := t.Field(i)
		value := v.Field(i)
		name, squash := tagName(f)

		if value.Kind() == reflect.Struct && !isLeafStruct(f.Type) {
			nested := settingsMap(value)
			if !squash {
				out[name] = nested
				continue
			}
			for k, val := range nested {
				out[k] = val
			}
			continue
		}

		switch {
		case f.Tag.Get("secret") == "true" && !value.IsZero():
			out[name] = "***"
		case f.Type == reflect.TypeOf(time.Duration(0)):
			out[name] = time.Duration(value.Int()).String()
		default:
			out[name] = value.Interface()
		}
	}
	return out
}
