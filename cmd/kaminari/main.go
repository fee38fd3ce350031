// Command kaminari serves the kaminari backend-for-frontend API.
package main

import (
	"context"

	"github.com/kaminari-anilist/kaminari/pkg/app"
	"github.com/kaminari-anilist/kaminari/pkg/cli"
	"github.com/kaminari-anilist/kaminari/pkg/config"
	"github.com/kaminari-anilist/kaminari/pkg/observability/logger"
)

func main() {
	cli.Execute(cli.NewRootCommand(cli.Options{
		Name:        "kaminari",
		Description: "Anime, movie and watch-together API backed by MongoDB",
		EnvPrefix:   config.DefaultEnvPrefix,
		RunServer: func(ctx context.Context, cfg *config.Config, log logger.Logger) error {
			a, err := app.New(ctx, cfg, log)
			if err != nil {
				return err
			}
			return a.Run(ctx)
		},
		CheckDependencies: app.CheckDependencies,
	}))
}
