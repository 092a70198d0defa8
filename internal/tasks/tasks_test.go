package tasks

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/crossfade-dev/crossfade/internal/catalog"
	"github.com/crossfade-dev/crossfade/internal/pif"
	"github.com/crossfade-dev/crossfade/internal/services"
)

// fakeProvider scripts provider behavior for pipeline tests.
type fakeProvider struct {
	info         *services.PlaylistInfo
	pages        map[string]*services.ItemPage
	details      map[string]services.TrackDetail
	searches     map[string]string
	searchErr    error
	searchCalls  []string
	createErr    error
	createdName  string
	added        [][]string
	failBatchOf  string
	endlessPages bool
}

func (f *fakeProvider) Name() string  { return "youtube" }
func (f *fakeProvider) IDKey() string { return "youtube_video_id" }

func (f *fakeProvider) Playlist(ctx context.Context, playlistID string) (*services.PlaylistInfo, error) {
	if f.info == nil {
		return nil, errors.New("playlist not found")
	}
	return f.info, nil
}

func (f *fakeProvider) PlaylistItems(ctx context.Context, playlistID, pageToken string) (*services.ItemPage, error) {
	if f.endlessPages {
		return &services.ItemPage{TrackIDs: []string{"vid"}, NextPageToken: "again"}, nil
	}
	page, ok := f.pages[pageToken]
	if !ok {
		return nil, fmt.Errorf("unknown page token %q", pageToken)
	}
	return page, nil
}

func (f *fakeProvider) Tracks(ctx context.Context, ids []string) ([]services.TrackDetail, error) {
	var details []services.TrackDetail
	for _, id := range ids {
		if detail, ok := f.details[id]; ok {
			details = append(details, detail)
		}
	}
	return details, nil
}

func (f *fakeProvider) Search(ctx context.Context, query string) (string, error) {
	f.searchCalls = append(f.searchCalls, query)
	if f.searchErr != nil {
		return "", f.searchErr
	}
	return f.searches[query], nil
}

func (f *fakeProvider) CreatePlaylist(ctx context.Context, name, description string) (string, error) {
	if f.createErr != nil {
		return "", f.createErr
	}
	f.createdName = name
	return "PLnew", nil
}

func (f *fakeProvider) AddTracks(ctx context.Context, playlistID string, ids []string) error {
	for _, id := range ids {
		if id == f.failBatchOf {
			return errors.New("insert rejected")
		}
	}
	f.added = append(f.added, ids)
	return nil
}

// memoryCache is a map-backed TrackCache.
type memoryCache struct {
	entries map[string]string
	puts    int
}

func newMemoryCache() *memoryCache { return &memoryCache{entries: make(map[string]string)} }

func (m *memoryCache) Get(service, key string) (string, bool, error) {
	id, ok := m.entries[service+"|"+key]
	return id, ok, nil
}

func (m *memoryCache) Put(service, key, id string) error {
	m.entries[service+"|"+key] = id
	m.puts++
	return nil
}

func importProvider() *fakeProvider {
	return &fakeProvider{
		info: &services.PlaylistInfo{ID: "PL123", Title: "Road Trip", Description: "Summer songs", ItemCount: 3},
		pages: map[string]*services.ItemPage{
			"":      {TrackIDs: []string{"vid1", "vid2"}, NextPageToken: "page2"},
			"page2": {TrackIDs: []string{"vid3", "vidgone"}},
		},
		details: map[string]services.TrackDetail{
			"vid1": {ID: "vid1", Title: "Song One (Official Video)", ArtistLabel: "Artist One", DurationMS: 185000},
			"vid2": {ID: "vid2", Title: "", ArtistLabel: "Artist Two", DurationMS: 250000},
			"vid3": {ID: "vid3", Title: "Song Three", DurationMS: 200000},
		},
	}
}

func TestReadPlaylist(t *testing.T) {
	provider := importProvider()
	pipeline := NewPipeline(provider, PipelineOptions{})

	playlist, err := pipeline.ReadPlaylist(context.Background(), "PL123")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if playlist.Name != "Road Trip" || playlist.SourceService != "youtube" || playlist.SourcePlaylistID != "PL123" {
		t.Errorf("unexpected playlist header: %+v", playlist)
	}

	// vid2 has no title and vidgone has no metadata; both drop silently.
	if len(playlist.Tracks) != 2 {
		t.Fatalf("expected 2 tracks, got %d", len(playlist.Tracks))
	}

	first := playlist.Tracks[0]
	if first.Position != 1 || first.Title != "Song One (Official Video)" || first.DurationMS != 185000 {
		t.Errorf("unexpected first track: %+v", first)
	}
	if id, ok := first.ProviderID("youtube_video_id"); !ok || id != "vid1" {
		t.Errorf("expected provider id vid1, got %q", id)
	}

	second := playlist.Tracks[1]
	if second.Position != 2 {
		t.Errorf("expected positions reassigned after drops, got %d", second.Position)
	}
	if len(second.Artists) != 1 || second.Artists[0] != "Unknown Artist" {
		t.Errorf("expected unknown artist fallback, got %v", second.Artists)
	}

	if err := playlist.Validate(); err != nil {
		t.Errorf("imported document should validate: %v", err)
	}

	t.Run("pagination guard aborts runaway providers", func(t *testing.T) {
		pipeline := NewPipeline(&fakeProvider{
			info:         &services.PlaylistInfo{ID: "PL123", Title: "Loop"},
			endlessPages: true,
		}, PipelineOptions{})
		if _, err := pipeline.ReadPlaylist(context.Background(), "PL123"); err == nil {
			t.Fatal("expected pagination guard error")
		}
	})

	t.Run("progress updates never block without a consumer", func(t *testing.T) {
		updates := make(chan ProgressUpdate) // unbuffered, never read
		pipeline := NewPipeline(importProvider(), PipelineOptions{Updates: updates})
		if _, err := pipeline.ReadPlaylist(context.Background(), "PL123"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
	})
}

func exportPlaylist() *pif.Playlist {
	return &pif.Playlist{
		Name:             "Road Trip",
		Description:      "Summer songs",
		SourceService:    "youtube",
		SourcePlaylistID: "PL123",
		Tracks: []pif.Track{
			{Position: 1, Title: "Song One", Artists: []string{"Artist One"}, ProviderIDs: map[string]string{"youtube_video_id": "vid1"}},
			{Position: 2, Title: "Song Two", Artists: []string{"Artist Two"}},
		},
	}
}

func TestWritePlaylist(t *testing.T) {
	t.Run("round trip adds every resolved track", func(t *testing.T) {
		provider := &fakeProvider{searches: map[string]string{"Song Two Artist Two": "vid2"}}
		pipeline := NewPipeline(provider, PipelineOptions{})

		report, err := pipeline.WritePlaylist(context.Background(), exportPlaylist(), "", "")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		if provider.createdName != "Road Trip" {
			t.Errorf("expected playlist name to default from the document, got %q", provider.createdName)
		}
		if report.PlaylistID != "PLnew" {
			t.Errorf("expected playlist id on report, got %q", report.PlaylistID)
		}
		if report.Attempted != 2 || report.Added != 2 || report.Failed != 0 || report.Skipped != 0 {
			t.Errorf("unexpected report: %+v", report)
		}
		if len(provider.added) != 1 || strings.Join(provider.added[0], ",") != "vid1,vid2" {
			t.Errorf("expected one ordered batch, got %v", provider.added)
		}
	})

	t.Run("duplicate tracks cost one search", func(t *testing.T) {
		playlist := &pif.Playlist{
			Name: "Dupes",
			Tracks: []pif.Track{
				{Position: 1, Title: "Song Two", Artists: []string{"Artist Two"}},
				{Position: 2, Title: "song two", Artists: []string{"ARTIST TWO"}},
			},
		}
		provider := &fakeProvider{searches: map[string]string{"Song Two Artist Two": "vid2"}}
		pipeline := NewPipeline(provider, PipelineOptions{})

		report, err := pipeline.WritePlaylist(context.Background(), playlist, "", "")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(provider.searchCalls) != 1 {
			t.Errorf("expected a single search, got %v", provider.searchCalls)
		}
		if report.Added != 2 {
			t.Errorf("expected both duplicates added, got %+v", report)
		}
	})

	t.Run("unmatched tracks are skipped, not failed", func(t *testing.T) {
		playlist := &pif.Playlist{
			Name: "Sparse",
			Tracks: []pif.Track{
				{Position: 1, Title: "Obscure B-Side", Artists: []string{"Nobody"}},
				{Position: 2, Title: "obscure b-side", Artists: []string{"nobody"}},
				{Position: 3, Title: "Song One", Artists: []string{"Artist One"}, ProviderIDs: map[string]string{"youtube_video_id": "vid1"}},
			},
		}
		provider := &fakeProvider{searches: map[string]string{}}
		pipeline := NewPipeline(provider, PipelineOptions{})

		report, err := pipeline.WritePlaylist(context.Background(), playlist, "", "")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if report.Skipped != 2 || report.Failed != 0 || report.Added != 1 {
			t.Errorf("unexpected report: %+v", report)
		}
		// The second miss must come from the per-run cache.
		if len(provider.searchCalls) != 1 {
			t.Errorf("expected one search for the repeated miss, got %v", provider.searchCalls)
		}
		if !strings.Contains(report.Note, "skipped") {
			t.Errorf("expected skip note, got %q", report.Note)
		}
	})

	t.Run("rejected insert batch is fatal", func(t *testing.T) {
		playlist := &pif.Playlist{Name: "Big"}
		for i := 1; i <= 4; i++ {
			playlist.Tracks = append(playlist.Tracks, pif.Track{
				Position:    i,
				Title:       fmt.Sprintf("Song %d", i),
				Artists:     []string{"Artist"},
				ProviderIDs: map[string]string{"youtube_video_id": fmt.Sprintf("vid%d", i)},
			})
		}
		provider := &fakeProvider{failBatchOf: "vid3"}
		pipeline := NewPipeline(provider, PipelineOptions{BatchSize: 2})

		report, err := pipeline.WritePlaylist(context.Background(), playlist, "", "")
		if err == nil {
			t.Fatal("expected error from rejected batch")
		}
		if report.Attempted != 4 || report.Added != 2 || report.Failed != 2 {
			t.Errorf("unexpected report: %+v", report)
		}
		// Only the batch before the failure may land.
		if len(provider.added) != 1 || strings.Join(provider.added[0], ",") != "vid1,vid2" {
			t.Errorf("expected insertion to stop at the rejected batch, got %v", provider.added)
		}
		if !strings.Contains(report.Note, "rejected") {
			t.Errorf("expected rejection note, got %q", report.Note)
		}
		if report.PlaylistID != "PLnew" {
			t.Errorf("expected created playlist id on the report, got %q", report.PlaylistID)
		}
	})

	t.Run("first batch rejection leaves nothing added", func(t *testing.T) {
		provider := &fakeProvider{failBatchOf: "vid1"}
		pipeline := NewPipeline(provider, PipelineOptions{})
		playlist := &pif.Playlist{
			Name: "Doomed",
			Tracks: []pif.Track{
				{Position: 1, Title: "Song One", Artists: []string{"Artist One"}, ProviderIDs: map[string]string{"youtube_video_id": "vid1"}},
			},
		}

		report, err := pipeline.WritePlaylist(context.Background(), playlist, "", "")
		if err == nil {
			t.Fatal("expected error from rejected batch")
		}
		if report.Attempted != 1 || report.Added != 0 || report.Failed != 1 {
			t.Errorf("unexpected report: %+v", report)
		}
		if len(provider.added) != 0 {
			t.Errorf("expected no batches to land, got %v", provider.added)
		}
	})

	t.Run("create failure aborts the run", func(t *testing.T) {
		provider := &fakeProvider{createErr: errors.New("quota exceeded")}
		pipeline := NewPipeline(provider, PipelineOptions{})
		if _, err := pipeline.WritePlaylist(context.Background(), exportPlaylist(), "", ""); err == nil {
			t.Fatal("expected error from create failure")
		}
	})

	t.Run("persistent cache hits avoid searching", func(t *testing.T) {
		cache := newMemoryCache()
		cache.entries["youtube|song two|artist two"] = "vid2"
		provider := &fakeProvider{}
		pipeline := NewPipeline(provider, PipelineOptions{Cache: cache})

		report, err := pipeline.WritePlaylist(context.Background(), exportPlaylist(), "", "")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(provider.searchCalls) != 0 {
			t.Errorf("expected no searches, got %v", provider.searchCalls)
		}
		if report.Added != 2 {
			t.Errorf("expected cache hit to resolve, got %+v", report)
		}
	})

	t.Run("search results populate the persistent cache", func(t *testing.T) {
		cache := newMemoryCache()
		provider := &fakeProvider{searches: map[string]string{"Song Two Artist Two": "vid2"}}
		pipeline := NewPipeline(provider, PipelineOptions{Cache: cache})

		if _, err := pipeline.WritePlaylist(context.Background(), exportPlaylist(), "", ""); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if cache.puts != 1 {
			t.Errorf("expected one cache write, got %d", cache.puts)
		}
		if id, found, _ := cache.Get("youtube", "song two|artist two"); !found || id != "vid2" {
			t.Errorf("expected cached id vid2, got %q (found=%v)", id, found)
		}
	})

	t.Run("search errors degrade to skips", func(t *testing.T) {
		provider := &fakeProvider{searchErr: errors.New("service unavailable")}
		pipeline := NewPipeline(provider, PipelineOptions{})

		report, err := pipeline.WritePlaylist(context.Background(), exportPlaylist(), "", "")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if report.Skipped != 1 || report.Added != 1 {
			t.Errorf("unexpected report: %+v", report)
		}
	})
}

// fakeResolver scripts recording lookups for annotation tests.
type fakeResolver struct {
	candidates map[string][]catalog.Candidate
	err        error
}

func (f *fakeResolver) SearchRecordings(ctx context.Context, title, artist string, limit int) ([]catalog.Candidate, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.candidates[title], nil
}

func TestAnnotateMBIDs(t *testing.T) {
	t.Run("annotates matches in place", func(t *testing.T) {
		resolver := &fakeResolver{candidates: map[string][]catalog.Candidate{
			"Song One": {
				{MBID: "mbid-1", Title: "Song One", Artist: "Artist One", DurationMS: 185000},
			},
			"Song Two": {
				{MBID: "mbid-2", Title: "Song Two", Artist: "Artist Two", ISRC: "USABC1234567"},
			},
		}}
		pipeline := NewPipeline(&fakeProvider{}, PipelineOptions{Resolver: resolver})

		playlist := &pif.Playlist{
			Name: "Road Trip",
			Tracks: []pif.Track{
				{Position: 1, Title: "Song One", Artists: []string{"Artist One"}, DurationMS: 185000},
				{Position: 2, Title: "Song Two", Artists: []string{"Artist Two"}, ISRC: "usabc1234567"},
				{Position: 3, Title: "No Match Here", Artists: []string{"Ghost"}},
			},
		}

		report, err := pipeline.AnnotateMBIDs(context.Background(), playlist, 0)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if report.Total != 3 || report.Annotated != 2 {
			t.Errorf("unexpected report: %+v", report)
		}
		if playlist.Tracks[0].MBID != "mbid-1" {
			t.Errorf("expected mbid-1, got %q", playlist.Tracks[0].MBID)
		}
		if playlist.Tracks[1].MBID != "mbid-2" {
			t.Errorf("expected isrc match mbid-2, got %q", playlist.Tracks[1].MBID)
		}
		if report.ByRule["isrc"] != 1 {
			t.Errorf("expected one isrc match, got %v", report.ByRule)
		}
		if playlist.Tracks[2].MBID != "" {
			t.Errorf("expected no annotation, got %q", playlist.Tracks[2].MBID)
		}
	})

	t.Run("existing mbids are preserved", func(t *testing.T) {
		pipeline := NewPipeline(&fakeProvider{}, PipelineOptions{Resolver: &fakeResolver{}})
		playlist := &pif.Playlist{
			Name:   "Done",
			Tracks: []pif.Track{{Position: 1, Title: "Song One", Artists: []string{"Artist One"}, MBID: "mbid-existing"}},
		}

		report, err := pipeline.AnnotateMBIDs(context.Background(), playlist, 0)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if playlist.Tracks[0].MBID != "mbid-existing" {
			t.Errorf("expected existing mbid untouched, got %q", playlist.Tracks[0].MBID)
		}
		if report.Annotated != 1 {
			t.Errorf("expected existing mbid counted, got %+v", report)
		}
	})

	t.Run("lookup errors abort the pass", func(t *testing.T) {
		pipeline := NewPipeline(&fakeProvider{}, PipelineOptions{Resolver: &fakeResolver{err: errors.New("boom")}})
		playlist := &pif.Playlist{
			Name:   "Err",
			Tracks: []pif.Track{{Position: 1, Title: "Song One", Artists: []string{"Artist One"}}},
		}
		if _, err := pipeline.AnnotateMBIDs(context.Background(), playlist, 0); err == nil {
			t.Fatal("expected error")
		}
	})

	t.Run("missing resolver is a configuration error", func(t *testing.T) {
		pipeline := NewPipeline(&fakeProvider{}, PipelineOptions{})
		if _, err := pipeline.AnnotateMBIDs(context.Background(), &pif.Playlist{Name: "x"}, 0); err == nil {
			t.Fatal("expected error without a resolver")
		}
	})
}

func TestPhaseString(t *testing.T) {
	cases := map[Phase]string{
		PhaseStarted:   "started",
		PhaseFetching:  "fetching",
		PhaseResolving: "resolving",
		PhaseWriting:   "writing",
		PhaseComplete:  "complete",
		PhaseFailed:    "failed",
		Phase(99):      "unknown",
	}
	for phase, want := range cases {
		if got := phase.String(); got != want {
			t.Errorf("Phase(%d).String() = %q, want %q", phase, got, want)
		}
	}
}
