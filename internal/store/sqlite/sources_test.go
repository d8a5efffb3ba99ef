package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/phmapp/phm-server/internal/domain"
	"github.com/phmapp/phm-server/internal/store"
)

func TestCreateAndGetSource(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedUser(t, s, "user-1")

	now := time.Now().UTC()
	src := &domain.Source{
		ID:          "src-1",
		UserID:      "user-1",
		Type:        domain.SourceBook,
		IdentityKey: "the pragmatic programmer",
		Title:       "The Pragmatic Programmer",
		Author:      "Hunt & Thomas",
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.CreateSource(ctx, src); err != nil {
		t.Fatalf("CreateSource: %v", err)
	}

	got, err := s.GetSource(ctx, "user-1", "src-1")
	if err != nil {
		t.Fatalf("GetSource: %v", err)
	}
	if got.Type != domain.SourceBook {
		t.Errorf("Type: got %q, want %q", got.Type, domain.SourceBook)
	}
	if got.IdentityKey != "the pragmatic programmer" {
		t.Errorf("IdentityKey: got %q", got.IdentityKey)
	}
	if got.Author != "Hunt & Thomas" {
		t.Errorf("Author: got %q", got.Author)
	}
}

func TestCreateSource_DuplicateIdentity(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedUser(t, s, "user-1")

	first := seedSource(t, s, "user-1", "src-a")

	dup := &domain.Source{
		ID:          "src-b",
		UserID:      "user-1",
		Type:        first.Type,
		IdentityKey: first.IdentityKey,
		Title:       "Different Title, Same Identity",
		CreatedAt:   time.Now().UTC(),
		UpdatedAt:   time.Now().UTC(),
	}
	err := s.CreateSource(ctx, dup)
	if !errors.Is(err, store.ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}
}

func TestGetSourceByIdentity(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedUser(t, s, "user-1")
	src := seedSource(t, s, "user-1", "src-1")

	got, err := s.GetSourceByIdentity(ctx, "user-1", domain.SourceWeb, src.IdentityKey)
	if err != nil {
		t.Fatalf("GetSourceByIdentity: %v", err)
	}
	if got.ID != "src-1" {
		t.Errorf("ID: got %q, want src-1", got.ID)
	}

	// Same identity key under a different type is a different source.
	_, err = s.GetSourceByIdentity(ctx, "user-1", domain.SourceBook, src.IdentityKey)
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for other type, got %v", err)
	}
}

func TestSourcesScopedPerUser(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedUser(t, s, "user-1")
	seedUser(t, s, "user-2")
	src := seedSource(t, s, "user-1", "src-1")

	// The same identity key is free for another user.
	other := &domain.Source{
		ID:          "src-2",
		UserID:      "user-2",
		Type:        src.Type,
		IdentityKey: src.IdentityKey,
		Title:       src.Title,
		CreatedAt:   time.Now().UTC(),
		UpdatedAt:   time.Now().UTC(),
	}
	if err := s.CreateSource(ctx, other); err != nil {
		t.Fatalf("CreateSource for second user: %v", err)
	}

	// And user-2 cannot read user-1's source.
	_, err := s.GetSource(ctx, "user-2", "src-1")
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound across users, got %v", err)
	}
}

func TestUpdateSourceKeepsIdentityKey(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedUser(t, s, "user-1")
	src := seedSource(t, s, "user-1", "src-1")

	originalKey := src.IdentityKey
	src.Title = "Renamed"
	src.IdentityKey = "attempted-rewrite"
	src.UpdatedAt = time.Now().UTC()
	if err := s.UpdateSource(ctx, src); err != nil {
		t.Fatalf("UpdateSource: %v", err)
	}

	got, err := s.GetSource(ctx, "user-1", "src-1")
	if err != nil {
		t.Fatalf("GetSource: %v", err)
	}
	if got.Title != "Renamed" {
		t.Errorf("Title: got %q, want Renamed", got.Title)
	}
	if got.IdentityKey != originalKey {
		t.Errorf("IdentityKey changed: got %q, want %q", got.IdentityKey, originalKey)
	}
}

func TestListSourcesWithCounts(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedUser(t, s, "user-1")
	seedSource(t, s, "user-1", "src-1")
	seedSource(t, s, "user-1", "src-2")
	seedHighlight(t, s, "user-1", "src-1", "hl-1")
	seedHighlight(t, s, "user-1", "src-1", "hl-2")

	sources, err := s.ListSources(ctx, "user-1")
	if err != nil {
		t.Fatalf("ListSources: %v", err)
	}
	if len(sources) != 2 {
		t.Fatalf("expected 2 sources, got %d", len(sources))
	}

	counts := map[string]int{}
	for _, src := range sources {
		counts[src.ID] = src.HighlightCount
	}
	if counts["src-1"] != 2 {
		t.Errorf("src-1 count: got %d, want 2", counts["src-1"])
	}
	if counts["src-2"] != 0 {
		t.Errorf("src-2 count: got %d, want 0", counts["src-2"])
	}
}

func TestDeleteOrphanedSources(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedUser(t, s, "user-1")
	seedSource(t, s, "user-1", "src-used")
	seedSource(t, s, "user-1", "src-orphan")
	seedHighlight(t, s, "user-1", "src-used", "hl-1")

	n, err := s.DeleteOrphanedSources(ctx, "user-1")
	if err != nil {
		t.Fatalf("DeleteOrphanedSources: %v", err)
	}
	if n != 1 {
		t.Errorf("deleted: got %d, want 1", n)
	}

	if _, err := s.GetSource(ctx, "user-1", "src-orphan"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("orphan still present, err=%v", err)
	}
	if _, err := s.GetSource(ctx, "user-1", "src-used"); err != nil {
		t.Errorf("used source was deleted: %v", err)
	}
}
