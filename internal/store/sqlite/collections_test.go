package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/phmapp/phm-server/internal/domain"
	"github.com/phmapp/phm-server/internal/store"
)

func seedCollection(t *testing.T, s *Store, userID, id, name string) *domain.Collection {
	t.Helper()
	now := time.Now().UTC()
	c := &domain.Collection{
		ID: id, UserID: userID, Name: name,
		CreatedAt: now, UpdatedAt: now,
	}
	if err := s.CreateCollection(context.Background(), c); err != nil {
		t.Fatalf("seed collection %s: %v", id, err)
	}
	return c
}

func TestCollectionCRUD(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedUser(t, s, "user-1")

	c := seedCollection(t, s, "user-1", "col-1", "Best of 2026")

	got, err := s.GetCollection(ctx, "user-1", "col-1")
	if err != nil {
		t.Fatalf("GetCollection: %v", err)
	}
	if got.Name != "Best of 2026" {
		t.Errorf("Name: got %q", got.Name)
	}

	c.Name = "Renamed"
	c.Description = "pure gold"
	c.UpdatedAt = time.Now().UTC()
	if err := s.UpdateCollection(ctx, c); err != nil {
		t.Fatalf("UpdateCollection: %v", err)
	}
	got, err = s.GetCollection(ctx, "user-1", "col-1")
	if err != nil {
		t.Fatalf("GetCollection after update: %v", err)
	}
	if got.Name != "Renamed" || got.Description != "pure gold" {
		t.Errorf("update not persisted: %+v", got)
	}

	if err := s.DeleteCollection(ctx, "user-1", "col-1"); err != nil {
		t.Fatalf("DeleteCollection: %v", err)
	}
	if _, err := s.GetCollection(ctx, "user-1", "col-1"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestCollectionMembership(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedUser(t, s, "user-1")
	seedSource(t, s, "user-1", "src-1")
	seedHighlight(t, s, "user-1", "src-1", "hl-1")
	seedHighlight(t, s, "user-1", "src-1", "hl-2")
	seedHighlight(t, s, "user-1", "src-1", "hl-3")
	seedCollection(t, s, "user-1", "col-1", "Reading list")

	// Out of insertion order on purpose; position decides.
	if err := s.AddToCollection(ctx, "col-1", "hl-2", 20); err != nil {
		t.Fatalf("AddToCollection: %v", err)
	}
	if err := s.AddToCollection(ctx, "col-1", "hl-1", 10); err != nil {
		t.Fatalf("AddToCollection: %v", err)
	}
	if err := s.AddToCollection(ctx, "col-1", "hl-3", 30); err != nil {
		t.Fatalf("AddToCollection: %v", err)
	}

	if err := s.AddToCollection(ctx, "col-1", "hl-1", 99); !errors.Is(err, store.ErrAlreadyExists) {
		t.Fatalf("duplicate add: expected ErrAlreadyExists, got %v", err)
	}

	highlights, err := s.ListCollectionHighlights(ctx, "user-1", "col-1")
	if err != nil {
		t.Fatalf("ListCollectionHighlights: %v", err)
	}
	if len(highlights) != 3 {
		t.Fatalf("expected 3 highlights, got %d", len(highlights))
	}
	if highlights[0].ID != "hl-1" || highlights[1].ID != "hl-2" || highlights[2].ID != "hl-3" {
		t.Errorf("position order: got %q, %q, %q", highlights[0].ID, highlights[1].ID, highlights[2].ID)
	}

	if err := s.RemoveFromCollection(ctx, "col-1", "hl-2"); err != nil {
		t.Fatalf("RemoveFromCollection: %v", err)
	}
	if err := s.RemoveFromCollection(ctx, "col-1", "hl-2"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("second remove: expected ErrNotFound, got %v", err)
	}

	collections, err := s.ListCollections(ctx, "user-1")
	if err != nil {
		t.Fatalf("ListCollections: %v", err)
	}
	if len(collections) != 1 {
		t.Fatalf("expected 1 collection, got %d", len(collections))
	}
	if collections[0].ItemCount != 2 {
		t.Errorf("ItemCount: got %d, want 2", collections[0].ItemCount)
	}
}
