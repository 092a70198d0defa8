package cache

import (
	"path/filepath"
	"testing"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestStore(t *testing.T) {
	store := openTestStore(t)

	t.Run("miss returns found=false", func(t *testing.T) {
		id, found, err := store.Get("youtube", "song one|artist one")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if found || id != "" {
			t.Errorf("expected miss, got %q (found=%v)", id, found)
		}
	})

	t.Run("put then get", func(t *testing.T) {
		if err := store.Put("youtube", "song one|artist one", "vid1"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		id, found, err := store.Get("youtube", "song one|artist one")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !found || id != "vid1" {
			t.Errorf("expected vid1, got %q (found=%v)", id, found)
		}
	})

	t.Run("put replaces on conflict", func(t *testing.T) {
		if err := store.Put("youtube", "song one|artist one", "vid1-new"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		id, _, err := store.Get("youtube", "song one|artist one")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if id != "vid1-new" {
			t.Errorf("expected replacement, got %q", id)
		}
	})

	t.Run("keys are service scoped", func(t *testing.T) {
		if _, found, _ := store.Get("spotify", "song one|artist one"); found {
			t.Error("expected no entry under another service")
		}
	})

	t.Run("stats counts per service", func(t *testing.T) {
		if err := store.Put("spotify", "song two|artist two", "track2"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		stats, err := store.Stats()
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if stats["youtube"] != 1 || stats["spotify"] != 1 {
			t.Errorf("unexpected stats: %v", stats)
		}
	})

	t.Run("purge one service", func(t *testing.T) {
		removed, err := store.Purge("spotify")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if removed != 1 {
			t.Errorf("expected 1 row removed, got %d", removed)
		}
		if _, found, _ := store.Get("spotify", "song two|artist two"); found {
			t.Error("expected purged entry gone")
		}
		if _, found, _ := store.Get("youtube", "song one|artist one"); !found {
			t.Error("expected other service untouched")
		}
	})

	t.Run("purge all", func(t *testing.T) {
		if _, err := store.Purge(""); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		stats, err := store.Stats()
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(stats) != 0 {
			t.Errorf("expected empty cache, got %v", stats)
		}
	})
}
