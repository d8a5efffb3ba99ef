package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/phmapp/phm-server/internal/domain"
	"github.com/phmapp/phm-server/internal/store"
)

func seedLink(t *testing.T, s *Store, id, userID, fromID, toID string) *domain.Link {
	t.Helper()
	l := &domain.Link{
		ID: id, UserID: userID, FromID: fromID, ToID: toID,
		Type:      domain.LinkRelated,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.CreateLink(context.Background(), l); err != nil {
		t.Fatalf("seed link %s: %v", id, err)
	}
	return l
}

func TestCreateLink_DuplicatePair(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedUser(t, s, "user-1")
	seedSource(t, s, "user-1", "src-1")
	seedHighlight(t, s, "user-1", "src-1", "hl-1")
	seedHighlight(t, s, "user-1", "src-1", "hl-2")

	seedLink(t, s, "link-1", "user-1", "hl-1", "hl-2")

	dup := &domain.Link{
		ID: "link-2", UserID: "user-1", FromID: "hl-1", ToID: "hl-2",
		Type:      domain.LinkRelated,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.CreateLink(ctx, dup); !errors.Is(err, store.ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}

	// The same pair with a different type is a distinct link.
	typed := &domain.Link{
		ID: "link-typed", UserID: "user-1", FromID: "hl-1", ToID: "hl-2",
		Type:      domain.LinkSupports,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.CreateLink(ctx, typed); err != nil {
		t.Fatalf("typed link: %v", err)
	}

	// The reverse direction is a distinct link.
	reverse := &domain.Link{
		ID: "link-3", UserID: "user-1", FromID: "hl-2", ToID: "hl-1",
		Type:      domain.LinkRelated,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.CreateLink(ctx, reverse); err != nil {
		t.Fatalf("reverse link: %v", err)
	}
}

func TestListLinksForHighlight(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedUser(t, s, "user-1")
	seedSource(t, s, "user-1", "src-1")
	seedHighlight(t, s, "user-1", "src-1", "hl-1")
	seedHighlight(t, s, "user-1", "src-1", "hl-2")
	seedHighlight(t, s, "user-1", "src-1", "hl-3")

	seedLink(t, s, "link-out", "user-1", "hl-1", "hl-2")
	seedLink(t, s, "link-in", "user-1", "hl-3", "hl-1")
	seedLink(t, s, "link-other", "user-1", "hl-2", "hl-3")

	links, err := s.ListLinksForHighlight(ctx, "user-1", "hl-1")
	if err != nil {
		t.Fatalf("ListLinksForHighlight: %v", err)
	}
	if len(links) != 2 {
		t.Fatalf("expected 2 links touching hl-1, got %d", len(links))
	}
}

func TestGetLinkDegrees(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedUser(t, s, "user-1")
	seedSource(t, s, "user-1", "src-1")
	seedHighlight(t, s, "user-1", "src-1", "hl-1")
	seedHighlight(t, s, "user-1", "src-1", "hl-2")
	seedHighlight(t, s, "user-1", "src-1", "hl-3")
	seedHighlight(t, s, "user-1", "src-1", "hl-lonely")

	seedLink(t, s, "l1", "user-1", "hl-1", "hl-2")
	seedLink(t, s, "l2", "user-1", "hl-1", "hl-3")
	seedLink(t, s, "l3", "user-1", "hl-2", "hl-1")

	degrees, err := s.GetLinkDegrees(ctx, "user-1")
	if err != nil {
		t.Fatalf("GetLinkDegrees: %v", err)
	}
	// In and out directions both count.
	if degrees["hl-1"] != 3 {
		t.Errorf("hl-1 degree: got %d, want 3", degrees["hl-1"])
	}
	if degrees["hl-2"] != 2 {
		t.Errorf("hl-2 degree: got %d, want 2", degrees["hl-2"])
	}
	if degrees["hl-3"] != 1 {
		t.Errorf("hl-3 degree: got %d, want 1", degrees["hl-3"])
	}
	if _, ok := degrees["hl-lonely"]; ok {
		t.Error("unlinked highlight should be absent from the map")
	}
}

func TestDeleteLink(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedUser(t, s, "user-1")
	seedSource(t, s, "user-1", "src-1")
	seedHighlight(t, s, "user-1", "src-1", "hl-1")
	seedHighlight(t, s, "user-1", "src-1", "hl-2")
	seedLink(t, s, "link-1", "user-1", "hl-1", "hl-2")

	if err := s.DeleteLink(ctx, "user-1", "link-1"); err != nil {
		t.Fatalf("DeleteLink: %v", err)
	}
	if err := s.DeleteLink(ctx, "user-1", "link-1"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("second delete: expected ErrNotFound, got %v", err)
	}
}
