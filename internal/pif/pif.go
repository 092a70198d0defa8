// package pif defines the Playlist Intermediate Format, the provider-agnostic
// interchange representation produced by imports and consumed by exports.
//
// A PIF document is immutable once produced by a single pipeline run; any
// importer's output can feed any exporter's input.
package pif

import (
	"fmt"
	"os"

	"github.com/crossfade-dev/crossfade/internal/shared"
)

// Playlist is a provider-agnostic playlist.
type Playlist struct {
	Name             string  `json:"name"`
	Description      string  `json:"description,omitempty"`
	SourceService    string  `json:"source_service"`
	SourcePlaylistID string  `json:"source_playlist_id"`
	Tracks           []Track `json:"tracks"`
}

// Track is one entry in a PIF playlist.
//
// Position is 1-based and mirrors the source playlist order. ProviderIDs maps
// a provider id key (e.g. "youtube_video_id") to that provider's track id.
// DurationMS of 0 means the duration is unknown.
type Track struct {
	Position    int               `json:"position"`
	Title       string            `json:"title"`
	Artists     []string          `json:"artists"`
	Album       string            `json:"album,omitempty"`
	DurationMS  int               `json:"duration_ms,omitempty"`
	ISRC        string            `json:"isrc,omitempty"`
	MBID        string            `json:"mbid,omitempty"`
	ProviderIDs map[string]string `json:"provider_ids,omitempty"`
}

// ProviderID returns the track's id under the given provider id key, if any.
func (t *Track) ProviderID(key string) (string, bool) {
	if t.ProviderIDs == nil {
		return "", false
	}
	id, ok := t.ProviderIDs[key]
	return id, ok && id != ""
}

// SetProviderID records a provider-specific id on the track.
func (t *Track) SetProviderID(key, id string) {
	if t.ProviderIDs == nil {
		t.ProviderIDs = make(map[string]string)
	}
	t.ProviderIDs[key] = id
}

// Validate checks the structural invariants of a PIF document.
func (p *Playlist) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("%w: playlist name is required", shared.ErrInvalidInput)
	}
	for i, tr := range p.Tracks {
		if tr.Title == "" {
			return fmt.Errorf("%w: track %d has no title", shared.ErrInvalidInput, i+1)
		}
		if tr.Position != i+1 {
			return fmt.Errorf("%w: track %d has position %d, expected %d", shared.ErrInvalidInput, i+1, tr.Position, i+1)
		}
	}
	return nil
}

// ReadFile loads a PIF document from a JSON file and validates it.
func ReadFile(path string) (*Playlist, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read PIF file: %w", err)
	}
	return Unmarshal(data)
}

// WriteFile writes a PIF document to path as indented JSON.
func WriteFile(p *Playlist, path string) error {
	data, err := shared.MarshalJSON(p, true)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("failed to write PIF file: %w", err)
	}
	return nil
}
