package sqlite

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/phmapp/phm-server/internal/domain"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "test.db")
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	s, err := Open(dbPath, logger)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// seedUser inserts a user row so rows with foreign keys can reference it.
func seedUser(t *testing.T, s *Store, id string) *domain.User {
	t.Helper()
	now := time.Now().UTC()
	u := &domain.User{
		ID:           id,
		Email:        id + "@example.com",
		PasswordHash: "not-a-real-hash",
		DisplayName:  "Test User",
		Timezone:     "UTC",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.CreateUser(context.Background(), u); err != nil {
		t.Fatalf("seed user %s: %v", id, err)
	}
	return u
}

func seedSource(t *testing.T, s *Store, userID, id string) *domain.Source {
	t.Helper()
	now := time.Now().UTC()
	src := &domain.Source{
		ID:          id,
		UserID:      userID,
		Type:        domain.SourceWeb,
		IdentityKey: id + ".example.com",
		Title:       "Example Source " + id,
		URL:         "https://" + id + ".example.com/article",
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.CreateSource(context.Background(), src); err != nil {
		t.Fatalf("seed source %s: %v", id, err)
	}
	return src
}

func seedHighlight(t *testing.T, s *Store, userID, sourceID, id string) *domain.Highlight {
	t.Helper()
	now := time.Now().UTC()
	h := &domain.Highlight{
		ID:        id,
		UserID:    userID,
		SourceID:  sourceID,
		Text:      "Highlighted text for " + id,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.CreateHighlightWithTags(context.Background(), h, nil); err != nil {
		t.Fatalf("seed highlight %s: %v", id, err)
	}
	return h
}

func TestOpen(t *testing.T) {
	s := newTestStore(t)

	// Verify WAL mode is set.
	var journalMode string
	err := s.db.QueryRow("PRAGMA journal_mode").Scan(&journalMode)
	if err != nil {
		t.Fatalf("query journal_mode: %v", err)
	}
	if journalMode != "wal" {
		t.Errorf("expected wal, got %s", journalMode)
	}

	// Verify foreign keys are enabled.
	var fk int
	err = s.db.QueryRow("PRAGMA foreign_keys").Scan(&fk)
	if err != nil {
		t.Fatalf("query foreign_keys: %v", err)
	}
	if fk != 1 {
		t.Errorf("expected foreign_keys=1, got %d", fk)
	}

	// Verify tables exist.
	tables := []string{
		"users", "sessions", "devices", "sources", "tags",
		"highlights", "highlight_tags", "highlight_links",
		"collections", "collection_items", "digest_configs", "reminders",
	}
	for _, table := range tables {
		var name string
		err := s.db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		if err != nil {
			t.Errorf("table %s not found: %v", table, err)
		}
	}
}

func TestOpenClose(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "test.db")
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	s, err := Open(dbPath, logger)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}

	if err := s.Close(); err != nil {
		t.Fatalf("close store: %v", err)
	}

	// Re-open should work (schema is idempotent).
	s2, err := Open(dbPath, logger)
	if err != nil {
		t.Fatalf("re-open store: %v", err)
	}
	s2.Close()
}
