package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// DefaultEnvPrefix prefixes every environment variable read by the loader.
const DefaultEnvPrefix = "KAMINARI"

// Loader loads and validates a Config.
type Loader interface {
	Load() (*Config, error)
}

// ViperLoader loads configuration with precedence flags > ENV > secrets file > config file > defaults.
type ViperLoader struct {
	configFile string
	envPrefix  string
	flags      *pflag.FlagSet
}

// NewViperLoader creates a loader. configFile may be empty; envPrefix defaults to KAMINARI.
func NewViperLoader(configFile, envPrefix string) *ViperLoader {
	if envPrefix == "" {
		envPrefix = DefaultEnvPrefix
	}
	return &ViperLoader{configFile: configFile, envPrefix: envPrefix}
}

// WithFlags binds every flag of fs whose name is a config key, e.g. --http.port.
func (l *ViperLoader) WithFlags(fs *pflag.FlagSet) *ViperLoader {
	l.flags = fs
	return l
}

// Load reads, merges, unmarshals and validates the configuration.
func (l *ViperLoader) Load() (*Config, error) {
	v := viper.New()

	keys := settingKeys(reflect.TypeOf(Config{}), "")
	defaults := DefaultConfig()
	for key, value := range settingValues(reflect.ValueOf(defaults).Elem(), "") {
		v.SetDefault(key, value)
	}

	if l.configFile != "" {
		v.SetConfigFile(l.configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", l.configFile, err)
		}
	}

	secretsFile, err := l.secretsFile()
	if err != nil {
		return nil, err
	}
	if secretsFile != "" {
		v.SetConfigFile(secretsFile)
		if err := v.MergeInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read secrets file %s: %w", secretsFile, err)
		}
	}

	for _, key := range keys {
		if err := v.BindEnv(key, l.EnvName(key)); err != nil {
			return nil, fmt.Errorf("bind env for %s: %w", key, err)
		}
	}

	if l.flags != nil {
		for _, key := range keys {
			if f := l.flags.Lookup(key); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("bind flag %s: %w", key, err)
				}
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

// EnvName returns the environment variable bound to key, e.g. KAMINARI_DATABASE_URL.
func (l *ViperLoader) EnvName(key string) string {
	return l.envPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

// secretsFile returns <PREFIX>_SECRETS_FILE when set, otherwise secrets.<ext> next to
// the config file when it exists.
func (l *ViperLoader) secretsFile() (string, error) {
	if explicit := strings.TrimSpace(os.Getenv(l.envPrefix + "_SECRETS_FILE")); explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("secrets file %s: %w", explicit, err)
		}
		return explicit, nil
	}
	if l.configFile == "" {
		return "", nil
	}
	candidate := filepath.Join(filepath.Dir(l.configFile), "secrets"+filepath.Ext(l.configFile))
	if _, err := os.Stat(candidate); err != nil {
		return "", nil
	}
	return candidate, nil
}

// settingKeys lists the dotted keys of every leaf field, following mapstructure tags.
func settingKeys(t reflect.Type, prefix string) []string {
	var keys []string
	for i := range t.NumField() {
		f := t.Field(i)
		name, squash := tagName(f)
		if f.Type.Kind() == reflect.Struct && !isLeafStruct(f.Type) {
			next := prefix + name + "."
			if squash {
				next = prefix
			}
			keys = append(keys, settingKeys(f.Type, next)...)
			continue
		}
		keys = append(keys, prefix+name)
	}
	return keys
}

func settingValues(v reflect.Value, prefix string) map[string]any {
	out := make(map[string]any)
	t := v.Type()
	for i := range t.NumField() {
		f := t.Field(i)
		name, squash := tagName(f)
		if f.Type.Kind() == reflect.Struct && !isLeafStruct(f.Type) {
			next := prefix + name + "."
			if squash {
				next = prefix
			}
			for k, val := range settingValues(v.Field(i), next) {
				out[k] = val
			}
			continue
		}
		out[prefix+name] = v.Field(i).Interface()
	}
	return out
}

func tagName(f reflect.StructField) (string, bool) {
	tag := f.Tag.Get("mapstructure")
	name, opts, _ := strings.Cut(tag, ",")
	if name == "" {
		name = strings.ToLower(f.Name)
	}
	return name, strings.Contains(opts, "squash")
}

func isLeafStruct(t reflect.Type) bool {
	return t.PkgPath() == "time"
}
