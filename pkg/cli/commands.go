package cli

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	yaml "go.yaml.in/yaml/v3"

	"github.com/kaminari-anilist/kaminari/pkg/config"
	"github.com/kaminari-anilist/kaminari/pkg/observability/logger"
	"github.com/kaminari-anilist/kaminari/pkg/version"
)

type runFunc func(ctx context.Context, cfg *config.Config, log logger.Logger) error

func newVersionCommand(service string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		RunE: func(cmd *cobra.Command, _ []string) error {
			info := version.Current(service)
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 1, ' ', 0)
			fmt.Fprintf(w, "Service:\t%s\n", info.Service)
			fmt.Fprintf(w, "Version:\t%s\n", info.Version)
			fmt.Fprintf(w, "Commit:\t%s\n", info.Commit)
			fmt.Fprintf(w, "Build Time:\t%s\n", info.BuildTime)
			return w.Flush()
		},
	}
}

func newServeCommand(l *loader, run runFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the public API and management servers",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := l.configAndLogger(cmd.Flags())
			if err != nil {
				return err
			}
			defer flushLogger(log)
			return run(cmd.Context(), cfg, log)
		},
	}
}

func newHealthcheckCommand(l *loader, check runFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "healthcheck",
		Short: "Check that the document store and Redis are reachable",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := l.configAndLogger(cmd.Flags())
			if err != nil {
				return err
			}
			defer flushLogger(log)
			if err := check(cmd.Context(), cfg, log); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "dependencies are reachable")
			return nil
		},
	}
}

func newConfigCommand(l *loader) *cobra.Command {
	cmd := &cobra.Command{Use: "config", Short: "Inspect the effective configuration"}

	cmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Load and validate the configuration",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := l.config(cmd.Flags()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "configuration is valid")
			return nil
		},
	})

	var format string
	show := &cobra.Command{
		Use:   "show",
		Short: "Print the configuration with secrets masked",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := l.config(cmd.Flags())
			if err != nil {
				return err
			}
			switch strings.ToLower(format) {
			case "", "yaml":
				out, err := yaml.Marshal(cfg.Settings())
				if err != nil {
					return fmt.Errorf("marshal config: %w", err)
				}
				_, err = cmd.OutOrStdout().Write(out)
				return err
			case "text":
				fmt.Fprint(cmd.OutOrStdout(), cfg.String())
				return nil
			default:
				return fmt.Errorf("unknown format %q, want yaml or text", format)
			}
		},
	}
	show.Flags().StringVar(&format, "format", "yaml", "yaml or text")
	cmd.AddCommand(show)
	return cmd
}
