package tasks

import (
	"context"
	"fmt"
	"strings"

	"github.com/crossfade-dev/crossfade/internal/pif"
	"github.com/crossfade-dev/crossfade/internal/shared"
)

// WriteReport summarizes an export run.
//
// Attempted counts tracks that resolved to a provider id and were handed to
// the insert stage. Skipped counts tracks that never resolved; they are not
// failures. Failed counts tracks belonging to insert batches that the
// provider rejected.
type WriteReport struct {
	RunID      string `json:"run_id"`
	PlaylistID string `json:"playlist_id,omitempty"`
	Attempted  int    `json:"attempted"`
	Added      int    `json:"added"`
	Failed     int    `json:"failed"`
	Skipped    int    `json:"skipped"`
	Note       string `json:"note,omitempty"`
}

// WritePlaylist creates a playlist on the provider and fills it from a PIF
// document.
//
// The destination playlist is created before any track resolution, so a run
// that fails partway still leaves a playlist behind and its id in the
// report. Tracks resolve in order: an existing provider id on the track, a
// per-run search cache, the persistent track cache, and finally a provider
// search. Inserts go out in fixed-size batches; each batch is all-or-nothing,
// and a rejected batch is fatal: its tracks count as failed, no further
// batches are attempted, and the provider error propagates alongside the
// report, which still reflects the batches added before the failure.
func (p *Pipeline) WritePlaylist(ctx context.Context, playlist *pif.Playlist, name, description string) (*WriteReport, error) {
	runID := shared.GenerateID()
	report := &WriteReport{RunID: runID}

	if name == "" {
		name = playlist.Name
	}
	if description == "" {
		description = playlist.Description
	}

	p.sendProgress(ProgressUpdate{RunID: runID, Phase: PhaseStarted, Message: "export to " + p.provider.Name()})

	playlistID, err := p.provider.CreatePlaylist(ctx, name, description)
	if err != nil {
		p.sendProgress(ProgressUpdate{RunID: runID, Phase: PhaseFailed, Message: err.Error()})
		return report, fmt.Errorf("failed to create playlist: %w", err)
	}
	report.PlaylistID = playlistID

	ids := p.resolveTrackIDs(ctx, runID, playlist, report)
	report.Attempted = len(ids)

	for _, batch := range batchIDs(ids, p.batchSize) {
		if err := p.provider.AddTracks(ctx, playlistID, batch); err != nil {
			report.Failed += len(batch)
			report.Note = fmt.Sprintf("insert batch of %d tracks rejected: %v", len(batch), err)
			p.logger.Error("insert batch failed", "playlist", playlistID, "size", len(batch), "error", err)
			p.sendProgress(ProgressUpdate{RunID: runID, Phase: PhaseFailed, Message: err.Error()})
			return report, fmt.Errorf("failed to insert batch into playlist %s: %w", playlistID, err)
		}
		report.Added += len(batch)
		p.sendProgress(ProgressUpdate{
			RunID:   runID,
			Phase:   PhaseWriting,
			Message: "inserting tracks",
			Current: report.Added,
			Total:   report.Attempted,
		})
	}

	if report.Skipped > 0 {
		report.Note = fmt.Sprintf("%d tracks skipped (no match found)", report.Skipped)
	}

	p.sendProgress(ProgressUpdate{RunID: runID, Phase: PhaseComplete, Current: report.Added, Total: report.Attempted})
	p.logger.Info("exported playlist",
		"playlist", playlistID,
		"attempted", report.Attempted,
		"added", report.Added,
		"failed", report.Failed,
		"skipped", report.Skipped)
	return report, nil
}

// resolveTrackIDs maps PIF tracks to provider ids, counting unresolvable
// tracks as skips on the report.
//
// The per-run cache keys on normalized title plus artists and remembers
// misses as empty strings, so a playlist with duplicate entries costs one
// search per distinct track.
func (p *Pipeline) resolveTrackIDs(ctx context.Context, runID string, playlist *pif.Playlist, report *WriteReport) []string {
	searchCache := make(map[string]string)
	var ids []string

	for i, track := range playlist.Tracks {
		p.sendProgress(ProgressUpdate{
			RunID:   runID,
			Phase:   PhaseResolving,
			Message: "resolving tracks",
			Current: i + 1,
			Total:   len(playlist.Tracks),
		})

		if id, ok := track.ProviderID(p.provider.IDKey()); ok {
			ids = append(ids, id)
			continue
		}

		key := shared.NormalizeTrackKey(track.Title, track.Artists)
		if id, seen := searchCache[key]; seen {
			if id == "" {
				report.Skipped++
				continue
			}
			ids = append(ids, id)
			continue
		}

		if p.cache != nil {
			id, found, err := p.cache.Get(p.provider.Name(), key)
			if err != nil {
				p.logger.Warn("track cache lookup failed", "key", key, "error", err)
			} else if found {
				searchCache[key] = id
				ids = append(ids, id)
				continue
			}
		}

		query := strings.TrimSpace(track.Title + " " + strings.Join(track.Artists, " "))
		id, err := p.provider.Search(ctx, query)
		if err != nil {
			// Do not poison the caches on transport errors; the track is
			// skipped for this run only.
			p.logger.Warn("search failed, skipping track", "title", track.Title, "error", err)
			report.Skipped++
			continue
		}

		searchCache[key] = id
		if id == "" {
			report.Skipped++
			continue
		}
		if p.cache != nil {
			if err := p.cache.Put(p.provider.Name(), key, id); err != nil {
				p.logger.Warn("track cache write failed", "key", key, "error", err)
			}
		}
		ids = append(ids, id)
	}
	return ids
}
