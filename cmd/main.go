package main

import (
	"context"
	"os"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/crossfade-dev/crossfade/internal/cache"
	"github.com/crossfade-dev/crossfade/internal/resilience"
	"github.com/crossfade-dev/crossfade/internal/services"
	"github.com/crossfade-dev/crossfade/internal/shared"
	"github.com/crossfade-dev/crossfade/internal/tasks"
)

func main() {
	logger := shared.NewLogger(nil)

	config := shared.DefaultConfig()
	if _, err := os.Stat("config.toml"); err == nil {
		if loadedConfig, err := shared.LoadConfig("config.toml"); err == nil {
			config = loadedConfig
		} else {
			logger.Warn("ignoring unreadable config.toml", "error", err)
		}
	}

	breakerDefaults := resilience.Config{
		FailureThreshold: config.Breaker.FailureThreshold,
		Cooldown:         time.Duration(config.Breaker.CooldownMS) * time.Millisecond,
	}
	registry := resilience.NewRegistry(breakerDefaults, func(provider string, from, to resilience.State, reason string) {
		logger.Warn("circuit breaker state change", "provider", provider, "from", from, "to", to, "reason", reason)
	})

	ctx := context.Background()
	youtube := services.NewYouTubeClient(ctx, services.YouTubeOptions{
		BaseURL:           config.Providers.YouTube.BaseURL,
		APIKey:            config.Providers.YouTube.APIKey,
		AccessToken:       config.Providers.YouTube.AccessToken,
		PageSize:          config.Providers.YouTube.PageSize,
		RequestsPerSecond: config.Providers.YouTube.RequestsPerSecond,
	}, registry.GetOrCreate(services.YouTubeName))

	var resolver tasks.RecordingSearcher
	if mb, err := services.NewMusicBrainzClient(services.MusicBrainzOptions{
		BaseURL:           config.Providers.MusicBrainz.BaseURL,
		UserAgent:         config.Providers.MusicBrainz.UserAgent,
		RequestsPerSecond: config.Providers.MusicBrainz.RequestsPerSecond,
	}, registry.GetOrCreate(services.MusicBrainzName)); err == nil {
		resolver = mb
	} else {
		logger.Warn("mbid resolution disabled", "error", err)
	}

	var store *cache.Store
	if config.Cache.Path != "" {
		if opened, err := cache.Open(config.Cache.Path); err == nil {
			store = opened
			defer store.Close()
		} else {
			logger.Warn("track cache disabled", "error", err)
		}
	}

	runner := NewRunner(RunnerOpts{
		Config:   config,
		Logger:   logger,
		Registry: registry,
		YouTube:  youtube,
		Resolver: resolver,
		Store:    store,
	})

	app := &cli.Command{
		Name:     "crossfade",
		Usage:    "Move playlists between music services through a portable interchange format",
		Version:  "0.1.0",
		Commands: runner.register(),
	}

	if err := app.Run(ctx, os.Args); err != nil {
		logger.Fatalf("application error: %v", err)
	}
}
