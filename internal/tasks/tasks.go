// package tasks implements the import and export pipelines that move
// playlists between providers through the PIF interchange format.
//
// A Pipeline owns one provider client plus optional collaborators (a
// persistent track cache, a MusicBrainz resolver, a progress channel) and
// exposes the three long-running operations the CLI drives: ReadPlaylist,
// WritePlaylist, and AnnotateMBIDs.
package tasks

import (
	"context"
	"io"

	"github.com/charmbracelet/log"

	"github.com/crossfade-dev/crossfade/internal/catalog"
	"github.com/crossfade-dev/crossfade/internal/services"
)

// maxPageIterations bounds playlist pagination so a provider that keeps
// returning page tokens cannot loop the importer forever.
const maxPageIterations = 1000

// defaultBatchSize is how many tracks are fetched or inserted per provider
// call, matching the provider API ceiling.
const defaultBatchSize = 50

// Provider is the surface a provider client exposes to the pipelines.
//
// IDKey names the PIF provider_ids key the provider's track ids live under,
// e.g. "youtube_video_id". Search returns an empty id, not an error, when
// the provider has no match for the query.
type Provider interface {
	Name() string
	IDKey() string
	Playlist(ctx context.Context, playlistID string) (*services.PlaylistInfo, error)
	PlaylistItems(ctx context.Context, playlistID, pageToken string) (*services.ItemPage, error)
	Tracks(ctx context.Context, ids []string) ([]services.TrackDetail, error)
	Search(ctx context.Context, query string) (string, error)
	CreatePlaylist(ctx context.Context, name, description string) (string, error)
	AddTracks(ctx context.Context, playlistID string, ids []string) error
}

// RecordingSearcher resolves track metadata against a recordings index.
type RecordingSearcher interface {
	SearchRecordings(ctx context.Context, title, artist string, limit int) ([]catalog.Candidate, error)
}

// TrackCache persists resolved track ids across runs. Implementations must
// tolerate concurrent pipelines; lookups that miss return found=false, not an
// error.
type TrackCache interface {
	Get(service, key string) (id string, found bool, err error)
	Put(service, key, id string) error
}

// PipelineOptions carries the optional collaborators of a Pipeline. Zero
// values are all usable: no persistent cache, no resolver, no progress
// channel, discarded logs, default batch size.
type PipelineOptions struct {
	Cache     TrackCache
	Resolver  RecordingSearcher
	Logger    *log.Logger
	Updates   chan<- ProgressUpdate
	BatchSize int
}

// Pipeline runs imports and exports against a single provider.
type Pipeline struct {
	provider  Provider
	cache     TrackCache
	resolver  RecordingSearcher
	logger    *log.Logger
	updates   chan<- ProgressUpdate
	batchSize int
}

// NewPipeline builds a pipeline for the given provider.
func NewPipeline(provider Provider, opts PipelineOptions) *Pipeline {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	batchSize := opts.BatchSize
	if batchSize < 1 || batchSize > defaultBatchSize {
		batchSize = defaultBatchSize
	}
	return &Pipeline{
		provider:  provider,
		cache:     opts.Cache,
		resolver:  opts.Resolver,
		logger:    logger,
		updates:   opts.Updates,
		batchSize: batchSize,
	}
}

// batchIDs splits ids into slices of at most size elements, preserving order.
func batchIDs(ids []string, size int) [][]string {
	var batches [][]string
	for start := 0; start < len(ids); start += size {
		end := start + size
		if end > len(ids) {
			end = len(ids)
		}
		batches = append(batches, ids[start:end])
	}
	return batches
}
