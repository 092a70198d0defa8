package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/crossfade-dev/crossfade/internal/shared"
)

func cacheCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "cache",
		Usage: "Inspect or clear the persistent track cache",
		Commands: []*cli.Command{
			{
				Name:   "stats",
				Usage:  "Show cached entry counts per service",
				Action: r.CacheStats,
			},
			{
				Name:  "purge",
				Usage: "Remove cached entries",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "service",
						Aliases: []string{"s"},
						Usage:   "Only purge entries for this service",
					},
				},
				Action: r.CachePurge,
			},
		},
	}
}

// CacheStats prints per-service entry counts.
func (r *Runner) CacheStats(ctx context.Context, cmd *cli.Command) error {
	if r.store == nil {
		return fmt.Errorf("%w: no track cache configured", shared.ErrMissingConfig)
	}

	stats, err := r.store.Stats()
	if err != nil {
		return err
	}
	return r.writeJSON(stats, true)
}

// CachePurge removes cached entries, scoped to one service when requested.
func (r *Runner) CachePurge(ctx context.Context, cmd *cli.Command) error {
	if r.store == nil {
		return fmt.Errorf("%w: no track cache configured", shared.ErrMissingConfig)
	}

	removed, err := r.store.Purge(cmd.String("service"))
	if err != nil {
		return err
	}
	return r.writePlain("removed %d cached entries\n", removed)
}
