package stories

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/typolo/ultimessenger/internal/models"
	"github.com/typolo/ultimessenger/internal/notify"
	"github.com/typolo/ultimessenger/internal/store"
)

func newTestService(t *testing.T, ttl time.Duration) *Service {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "db"))
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return New(st, notify.New(), ttl)
}

func TestAddStampsExpiry(t *testing.T) {
	svc := newTestService(t, 24*time.Hour)

	before := time.Now().UnixMilli()
	story, err := svc.Add(models.Story{UserID: "u1", Frames: []models.StoryFrame{{ID: "f1"}}})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if story.ID == "" {
		t.Fatalf("ID not assigned")
	}
	if story.CreatedAt < before {
		t.Fatalf("CreatedAt = %d, want >= %d", story.CreatedAt, before)
	}
	wantExpiry := story.CreatedAt + (24 * time.Hour).Milliseconds()
	if story.ExpiresAt < wantExpiry-1000 || story.ExpiresAt > wantExpiry+1000 {
		t.Fatalf("ExpiresAt = %d, want about %d", story.ExpiresAt, wantExpiry)
	}
}

func TestActiveFiltersExpired(t *testing.T) {
	svc := newTestService(t, 24*time.Hour)
	now := time.Now().UnixMilli()

	svc.Add(models.Story{ID: "fresh", UserID: "u1", CreatedAt: now, ExpiresAt: now + 10_000})
	svc.Add(models.Story{ID: "stale", UserID: "u2", CreatedAt: now - 100_000, ExpiresAt: now - 1})

	active, err := svc.Active()
	if err != nil {
		t.Fatalf("Active: %v", err)
	}
	if len(active) != 1 || active[0].ID != "fresh" {
		t.Fatalf("Active = %v, want only the fresh story", active)
	}

	// The stale record is filtered, never removed.
	all, _ := svc.All()
	if len(all) != 2 {
		t.Fatalf("All = %d records, want 2", len(all))
	}
	stale, err := svc.StaleCount()
	if err != nil {
		t.Fatalf("StaleCount: %v", err)
	}
	if stale != 1 {
		t.Fatalf("StaleCount = %d, want 1", stale)
	}
}

func TestActiveSortsNewestFirst(t *testing.T) {
	svc := newTestService(t, 24*time.Hour)
	now := time.Now().UnixMilli()

	svc.Add(models.Story{ID: "older", CreatedAt: now - 5000, ExpiresAt: now + 10_000})
	svc.Add(models.Story{ID: "newer", CreatedAt: now - 1000, ExpiresAt: now + 10_000})

	active, _ := svc.Active()
	if len(active) != 2 || active[0].ID != "newer" {
		t.Fatalf("Active order = %v, want newest first", active)
	}
}
