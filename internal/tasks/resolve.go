package tasks

import (
	"context"
	"fmt"
	"strings"

	"github.com/crossfade-dev/crossfade/internal/catalog"
	"github.com/crossfade-dev/crossfade/internal/pif"
	"github.com/crossfade-dev/crossfade/internal/shared"
)

// mbCandidateLimit is how many recordings each MusicBrainz lookup pulls for
// the matching cascade.
const mbCandidateLimit = 10

// ResolveReport summarizes an MBID annotation pass.
type ResolveReport struct {
	RunID     string         `json:"run_id"`
	Total     int            `json:"total"`
	Annotated int            `json:"annotated"`
	ByRule    map[string]int `json:"by_rule,omitempty"`
}

// AnnotateMBIDs looks up each track that lacks an MBID against the
// recordings index and writes matches back into the document in place.
//
// threshold tunes the fuzzy matching rule; pass 0 to use the default.
// Tracks that already carry an MBID are counted but left untouched. Lookup
// errors abort the pass, since a tripped resolver would otherwise silently
// annotate nothing.
func (p *Pipeline) AnnotateMBIDs(ctx context.Context, playlist *pif.Playlist, threshold float64) (*ResolveReport, error) {
	if p.resolver == nil {
		return nil, fmt.Errorf("%w: no recording resolver configured", shared.ErrMissingConfig)
	}

	runID := shared.GenerateID()
	report := &ResolveReport{
		RunID:  runID,
		Total:  len(playlist.Tracks),
		ByRule: make(map[string]int),
	}

	p.sendProgress(ProgressUpdate{RunID: runID, Phase: PhaseStarted, Message: "annotating mbids"})

	for i := range playlist.Tracks {
		track := &playlist.Tracks[i]
		p.sendProgress(ProgressUpdate{
			RunID:   runID,
			Phase:   PhaseResolving,
			Message: "resolving recordings",
			Current: i + 1,
			Total:   len(playlist.Tracks),
		})

		if track.MBID != "" {
			report.Annotated++
			report.ByRule[string(catalog.RuleMBID)]++
			continue
		}

		artist := strings.Join(track.Artists, " ")
		candidates, err := p.resolver.SearchRecordings(ctx, track.Title, artist, mbCandidateLimit)
		if err != nil {
			p.sendProgress(ProgressUpdate{RunID: runID, Phase: PhaseFailed, Message: err.Error()})
			return report, fmt.Errorf("failed to search recordings for %q: %w", track.Title, err)
		}

		match := catalog.Resolve(catalog.Input{
			Title:          track.Title,
			Artist:         artist,
			DurationMS:     track.DurationMS,
			ISRC:           track.ISRC,
			FuzzyThreshold: threshold,
		}, candidates)
		if match == nil {
			continue
		}

		track.MBID = match.MBID
		report.Annotated++
		report.ByRule[string(match.Rule)]++
		p.logger.Debug("annotated track",
			"title", track.Title,
			"mbid", match.MBID,
			"rule", match.Rule,
			"confidence", match.Confidence)
	}

	p.sendProgress(ProgressUpdate{RunID: runID, Phase: PhaseComplete, Current: report.Annotated, Total: report.Total})
	p.logger.Info("annotated playlist", "total", report.Total, "annotated", report.Annotated)
	return report, nil
}
