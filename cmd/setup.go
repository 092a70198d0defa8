package main

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/crossfade-dev/crossfade/internal/cache"
	"github.com/crossfade-dev/crossfade/internal/shared"
)

func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Write a starter config file and initialize the track cache database",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   "config.toml",
			},
		},
		Action: r.Setup,
	}
}

// Setup writes the example config to disk and creates the cache database so
// later runs start from a working state.
func (r *Runner) Setup(ctx context.Context, cmd *cli.Command) error {
	path := cmd.String("config")

	if err := shared.CreateConfigFile(path); err != nil {
		r.logger.Warn("config file not written", "path", path, "error", err)
	} else {
		r.writePlain("wrote %s\n", path)
	}

	if r.config.Cache.Path != "" && r.store == nil {
		store, err := cache.Open(r.config.Cache.Path)
		if err != nil {
			return err
		}
		defer store.Close()
		r.writePlain("initialized track cache at %s\n", r.config.Cache.Path)
	}

	return nil
}
