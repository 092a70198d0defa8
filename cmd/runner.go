package main

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"

	"github.com/crossfade-dev/crossfade/internal/cache"
	"github.com/crossfade-dev/crossfade/internal/resilience"
	"github.com/crossfade-dev/crossfade/internal/services"
	"github.com/crossfade-dev/crossfade/internal/shared"
	"github.com/crossfade-dev/crossfade/internal/tasks"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config   *shared.Config
	logger   *log.Logger
	output   io.Writer
	registry *resilience.Registry
	youtube  *services.YouTubeClient
	resolver tasks.RecordingSearcher
	store    *cache.Store
	pipeline *tasks.Pipeline
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config   *shared.Config
	Logger   *log.Logger
	Output   io.Writer
	Registry *resilience.Registry
	YouTube  *services.YouTubeClient
	Resolver tasks.RecordingSearcher
	Store    *cache.Store
}

// NewRunner creates a new Runner with the provided configuration.
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}

	// Progress updates are drained for the life of the process and surfaced
	// as debug logs; the pipeline drops them if this consumer falls behind.
	updates := make(chan tasks.ProgressUpdate, 64)
	go func() {
		for update := range updates {
			opts.Logger.Debug("pipeline progress",
				"run", update.RunID,
				"phase", update.Phase,
				"message", update.Message,
				"current", update.Current,
				"total", update.Total)
		}
	}()

	pipelineOpts := tasks.PipelineOptions{
		Resolver: opts.Resolver,
		Logger:   opts.Logger,
		Updates:  updates,
	}
	if opts.Store != nil {
		pipelineOpts.Cache = opts.Store
	}

	return &Runner{
		config:   opts.Config,
		logger:   opts.Logger,
		output:   opts.Output,
		registry: opts.Registry,
		youtube:  opts.YouTube,
		resolver: opts.Resolver,
		store:    opts.Store,
		pipeline: tasks.NewPipeline(opts.YouTube, pipelineOpts),
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, importCommand, exportCommand, resolveCommand, breakersCommand, cacheCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	output, err := shared.MarshalJSON(data, pretty)
	if err != nil {
		return err
	}

	if _, err := r.output.Write(append(output, '\n')); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
