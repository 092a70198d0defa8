package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/crossfade-dev/crossfade/internal/catalog"
	"github.com/crossfade-dev/crossfade/internal/pif"
	"github.com/crossfade-dev/crossfade/internal/tasks"
)

func resolveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "resolve",
		Usage: "Annotate a PIF document's tracks with MusicBrainz recording ids",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "in",
				Aliases:  []string{"i"},
				Usage:    "PIF document to annotate",
				Required: true,
			},
			&cli.StringFlag{
				Name:    "out",
				Aliases: []string{"o"},
				Usage:   "Output file path; defaults to rewriting the input",
			},
			&cli.FloatFlag{
				Name:    "threshold",
				Aliases: []string{"t"},
				Usage:   "Fuzzy match threshold between 0 and 1; 0 uses the default",
			},
			&cli.StringFlag{
				Name:  "catalog",
				Usage: "JSON file of candidate recordings to match against instead of MusicBrainz",
			},
		},
		Action: r.Resolve,
	}
}

// fileCatalog serves a fixed candidate list loaded from disk, for offline
// annotation runs.
type fileCatalog struct {
	candidates []catalog.Candidate
}

func (f *fileCatalog) SearchRecordings(ctx context.Context, title, artist string, limit int) ([]catalog.Candidate, error) {
	return f.candidates, nil
}

func loadCatalogFile(path string) (*fileCatalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file: %w", err)
	}
	var candidates []catalog.Candidate
	if err := json.Unmarshal(data, &candidates); err != nil {
		return nil, fmt.Errorf("failed to parse catalog file: %w", err)
	}
	return &fileCatalog{candidates: candidates}, nil
}

// Resolve annotates the document in place and prints the run report.
func (r *Runner) Resolve(ctx context.Context, cmd *cli.Command) error {
	in := cmd.String("in")
	out := cmd.String("out")
	if out == "" {
		out = in
	}

	playlist, err := pif.ReadFile(in)
	if err != nil {
		return err
	}

	pipeline := r.pipeline
	if path := cmd.String("catalog"); path != "" {
		local, err := loadCatalogFile(path)
		if err != nil {
			return err
		}
		pipeline = tasks.NewPipeline(r.youtube, tasks.PipelineOptions{
			Resolver: local,
			Logger:   r.logger,
		})
	}

	report, err := pipeline.AnnotateMBIDs(ctx, playlist, cmd.Float("threshold"))
	if err != nil {
		return err
	}

	if err := pif.WriteFile(playlist, out); err != nil {
		return err
	}

	return r.writeJSON(report, true)
}
