package main

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/crossfade-dev/crossfade/internal/pif"
)

func exportCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Create a provider playlist from a PIF document",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "in",
				Aliases:  []string{"i"},
				Usage:    "PIF document to export",
				Required: true,
			},
			&cli.StringFlag{
				Name:    "name",
				Aliases: []string{"n"},
				Usage:   "Destination playlist name; defaults to the document's name",
			},
			&cli.StringFlag{
				Name:    "description",
				Aliases: []string{"d"},
				Usage:   "Destination playlist description",
			},
		},
		Action: r.Export,
	}
}

// Export runs the write pipeline and prints the run report.
func (r *Runner) Export(ctx context.Context, cmd *cli.Command) error {
	playlist, err := pif.ReadFile(cmd.String("in"))
	if err != nil {
		return err
	}

	report, err := r.pipeline.WritePlaylist(ctx, playlist, cmd.String("name"), cmd.String("description"))
	if err != nil {
		return err
	}

	return r.writeJSON(report, true)
}
