package main

import (
	"context"

	"github.com/urfave/cli/v3"
)

func breakersCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "breakers",
		Usage: "Inspect or reset provider circuit breakers",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "reset",
				Usage: "Reset the named provider's breaker",
			},
			&cli.BoolFlag{
				Name:  "reset-all",
				Usage: "Reset every provider's breaker",
			},
		},
		Action: r.Breakers,
	}
}

// Breakers prints per-provider breaker metrics, optionally resetting first.
func (r *Runner) Breakers(ctx context.Context, cmd *cli.Command) error {
	if cmd.Bool("reset-all") {
		r.registry.ResetAll()
		r.writePlain("reset all breakers\n")
	} else if provider := cmd.String("reset"); provider != "" {
		r.registry.Reset(provider)
		r.writePlain("reset breaker for %s\n", provider)
	}

	return r.writeJSON(r.registry.GetAllMetrics(), true)
}
