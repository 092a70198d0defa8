package tasks

import (
	"context"
	"fmt"

	"github.com/crossfade-dev/crossfade/internal/pif"
	"github.com/crossfade-dev/crossfade/internal/shared"
)

// unknownArtist is the fallback artist label for tracks whose provider
// reports no uploader at all.
const unknownArtist = "Unknown Artist"

// ReadPlaylist fetches a provider playlist and converts it to a PIF document.
//
// Membership is walked page by page, then track metadata is fetched in
// batches. Items the provider no longer has metadata for, and items without a
// title, are dropped without error; positions are reassigned 1-based over the
// surviving tracks.
func (p *Pipeline) ReadPlaylist(ctx context.Context, playlistID string) (*pif.Playlist, error) {
	runID := shared.GenerateID()
	p.sendProgress(ProgressUpdate{RunID: runID, Phase: PhaseStarted, Message: "import " + playlistID})

	info, err := p.provider.Playlist(ctx, playlistID)
	if err != nil {
		p.sendProgress(ProgressUpdate{RunID: runID, Phase: PhaseFailed, Message: err.Error()})
		return nil, err
	}

	ids, err := p.collectItemIDs(ctx, runID, playlistID, info.ItemCount)
	if err != nil {
		p.sendProgress(ProgressUpdate{RunID: runID, Phase: PhaseFailed, Message: err.Error()})
		return nil, err
	}

	playlist := &pif.Playlist{
		Name:             info.Title,
		Description:      info.Description,
		SourceService:    p.provider.Name(),
		SourcePlaylistID: info.ID,
	}

	dropped := 0
	for _, batch := range batchIDs(ids, p.batchSize) {
		details, err := p.provider.Tracks(ctx, batch)
		if err != nil {
			p.sendProgress(ProgressUpdate{RunID: runID, Phase: PhaseFailed, Message: err.Error()})
			return nil, err
		}

		byID := make(map[string]int, len(details))
		for i, detail := range details {
			byID[detail.ID] = i
		}

		// Walk the batch in playlist order, not response order.
		for _, id := range batch {
			i, ok := byID[id]
			if !ok {
				dropped++
				continue
			}
			detail := details[i]
			if detail.Title == "" {
				dropped++
				continue
			}

			artist := detail.ArtistLabel
			if artist == "" {
				artist = unknownArtist
			}

			track := pif.Track{
				Position:   len(playlist.Tracks) + 1,
				Title:      detail.Title,
				Artists:    []string{artist},
				DurationMS: detail.DurationMS,
				ISRC:       detail.ISRC,
			}
			track.SetProviderID(p.provider.IDKey(), id)
			playlist.Tracks = append(playlist.Tracks, track)
		}

		p.sendProgress(ProgressUpdate{
			RunID:   runID,
			Phase:   PhaseFetching,
			Message: "fetching track metadata",
			Current: len(playlist.Tracks) + dropped,
			Total:   len(ids),
		})
	}

	if dropped > 0 {
		p.logger.Warn("dropped unusable playlist items", "playlist", playlistID, "dropped", dropped)
	}

	p.sendProgress(ProgressUpdate{RunID: runID, Phase: PhaseComplete, Current: len(playlist.Tracks), Total: len(ids)})
	p.logger.Info("imported playlist", "playlist", playlistID, "tracks", len(playlist.Tracks))
	return playlist, nil
}

// collectItemIDs walks every membership page of a playlist.
func (p *Pipeline) collectItemIDs(ctx context.Context, runID, playlistID string, expected int) ([]string, error) {
	var ids []string
	token := ""
	for iteration := 0; ; iteration++ {
		if iteration >= maxPageIterations {
			return nil, fmt.Errorf("%w: playlist %s pagination exceeded %d pages", shared.ErrAPIRequest, playlistID, maxPageIterations)
		}

		page, err := p.provider.PlaylistItems(ctx, playlistID, token)
		if err != nil {
			return nil, err
		}
		ids = append(ids, page.TrackIDs...)

		p.sendProgress(ProgressUpdate{
			RunID:   runID,
			Phase:   PhaseFetching,
			Message: "listing playlist items",
			Current: len(ids),
			Total:   expected,
		})

		if page.NextPageToken == "" {
			return ids, nil
		}
		token = page.NextPageToken
	}
}
