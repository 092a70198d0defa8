package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/crossfade-dev/crossfade/internal/pif"
	"github.com/crossfade-dev/crossfade/internal/shared"
)

func importCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "import",
		Usage: "Fetch a provider playlist and write it as a PIF document",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "playlist",
				Aliases:  []string{"p"},
				Usage:    "Source playlist id",
				Required: true,
			},
			&cli.StringFlag{
				Name:    "out",
				Aliases: []string{"o"},
				Usage:   "Output file path; omit to print to stdout",
			},
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "Output format: json or csv",
				Value:   "json",
			},
		},
		Action: r.Import,
	}
}

// Import runs the read pipeline and writes the resulting document.
func (r *Runner) Import(ctx context.Context, cmd *cli.Command) error {
	format := cmd.String("format")
	out := cmd.String("out")

	if format != "json" && format != "csv" {
		return fmt.Errorf("%w: unsupported format %q", shared.ErrInvalidFlag, format)
	}
	if format == "csv" && out == "" {
		return fmt.Errorf("%w: csv output requires --out", shared.ErrInvalidFlag)
	}

	playlist, err := r.pipeline.ReadPlaylist(ctx, cmd.String("playlist"))
	if err != nil {
		return err
	}

	switch {
	case out == "":
		return r.writeJSON(playlist, true)
	case format == "csv":
		if err := pif.WriteCSV(playlist, out); err != nil {
			return err
		}
	default:
		if err := pif.WriteFile(playlist, out); err != nil {
			return err
		}
	}

	return r.writePlain("wrote %d tracks to %s\n", len(playlist.Tracks), out)
}
