// Package cli builds the kaminari command line: serve, healthcheck, config and version.
package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/kaminari-anilist/kaminari/pkg/config"
	"github.com/kaminari-anilist/kaminari/pkg/observability/logger"
)

// Options wires the commands to the application.
type Options struct {
	Name        string
	Description string
	// ConfigPath is the default for --config-file.
	ConfigPath string
	// EnvPrefix defaults to config.DefaultEnvPrefix.
	EnvPrefix string

	// RunServer backs serve and the bare root command.
	RunServer func(ctx context.Context, cfg *config.Config, log logger.Logger) error
	// CheckDependencies backs healthcheck. The command is omitted when nil.
	CheckDependencies func(ctx context.Context, cfg *config.Config, log logger.Logger) error
}

// NewRootCommand builds the command tree. Without a subcommand it serves.
func NewRootCommand(opts Options) *cobra.Command {
	if opts.EnvPrefix == "" {
		opts.EnvPrefix = config.DefaultEnvPrefix
	}
	l := &loader{envPrefix: opts.EnvPrefix}

	root := &cobra.Command{
		Use:           opts.Name,
		Short:         opts.Description,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	flags := root.PersistentFlags()
	flags.StringVarP(&l.configPath, "config-file", "c", opts.ConfigPath, "config file path")
	flags.StringVar(&l.secretFile, "secret-file", "", "secrets file (sets "+opts.EnvPrefix+"_SECRETS_FILE)")
	registerOverrideFlags(flags)

	root.AddCommand(newVersionCommand(opts.Name), newConfigCommand(l))
	if opts.RunServer != nil {
		serve := newServeCommand(l, opts.RunServer)
		root.AddCommand(serve)
		root.RunE = serve.RunE
	}
	if opts.CheckDependencies != nil {
		root.AddCommand(newHealthcheckCommand(l, opts.CheckDependencies))
	}
	return root
}

// Execute runs cmd and exits with status 1 on error.
func Execute(cmd *cobra.Command) {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// registerOverrideFlags exposes the settings most often changed per deployment. The
// flag names are config keys, so the loader ranks them above environment variables.
func registerOverrideFlags(fs *pflag.FlagSet) {
	fs.Int("http.port", 0, "public API port")
	fs.Int("management.port", 0, "management port")
	fs.String("database.type", "", "document store: mongodb or memory")
	fs.String("database.url", "", "MongoDB connection string")
	fs.String("observability.log_level", "", "log level: debug, info, warn or error")
	fs.String("observability.log_format", "", "log format: json or text")
}

// loader resolves the configuration from the root flags.
type loader struct {
	envPrefix  string
	configPath string
	secretFile string
}

func (l *loader) config(flags *pflag.FlagSet) (*config.Config, error) {
	if err := l.exportSecretFile(); err != nil {
		return nil, err
	}
	cfg, err := config.NewViperLoader(l.configPath, l.envPrefix).WithFlags(flags).Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func (l *loader) configAndLogger(flags *pflag.FlagSet) (*config.Config, logger.Logger, error) {
	cfg, err := l.config(flags)
	if err != nil {
		return nil, nil, err
	}
	log, err := NewLogger(cfg)
	if err != nil {
		return nil, nil, err
	}
	if strings.EqualFold(cfg.Observability.LogLevel, string(logger.DebugLevel)) {
		log.Debug("effective configuration", "config", cfg.String())
	}
	return cfg, log, nil
}

// exportSecretFile hands --secret-file to the config loader through the environment.
func (l *loader) exportSecretFile() error {
	if l.secretFile == "" {
		return nil
	}
	info, err := os.Stat(l.secretFile)
	switch {
	case err != nil:
		return fmt.Errorf("secret file %s is not accessible: %w", l.secretFile, err)
	case info.IsDir():
		return fmt.Errorf("secret file %s must not be a directory", l.secretFile)
	}
	return os.Setenv(strings.ToUpper(l.envPrefix)+"_SECRETS_FILE", filepath.Clean(l.secretFile))
}
