package pif

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Unmarshal parses a PIF document from JSON and validates it.
func Unmarshal(data []byte) (*Playlist, error) {
	var p Playlist
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to parse PIF document: %w", err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// WriteCSV writes the playlist's tracks to path as a CSV listing.
//
// Columns: position, title, artists (semicolon-joined), album, duration_ms,
// isrc, mbid. Provider ids are omitted; CSV is a human-facing listing, the
// JSON form is the interchange format.
func WriteCSV(p *Playlist, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"position", "title", "artists", "album", "duration_ms", "isrc", "mbid"}); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, tr := range p.Tracks {
		duration := ""
		if tr.DurationMS > 0 {
			duration = strconv.Itoa(tr.DurationMS)
		}
		record := []string{
			strconv.Itoa(tr.Position),
			tr.Title,
			strings.Join(tr.Artists, "; "),
			tr.Album,
			duration,
			tr.ISRC,
			tr.MBID,
		}
		if err := w.Write(record); err != nil {
			return fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to flush CSV: %w", err)
	}
	return nil
}
