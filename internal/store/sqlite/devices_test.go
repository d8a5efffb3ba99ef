package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/phmapp/phm-server/internal/domain"
	"github.com/phmapp/phm-server/internal/store"
)

func seedDevice(t *testing.T, s *Store, userID, id, digest string) *domain.Device {
	t.Helper()
	now := time.Now().UTC()
	d := &domain.Device{
		ID: id, UserID: userID, Name: "Test Device",
		Platform: "browser-extension", KeyDigest: digest,
		KeyPrefix: "phm_live_abcd", CreatedAt: now, UpdatedAt: now,
	}
	if err := s.CreateDevice(context.Background(), d); err != nil {
		t.Fatalf("seed device %s: %v", id, err)
	}
	return d
}

func TestGetDeviceByKeyDigest(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedUser(t, s, "user-1")
	seedDevice(t, s, "user-1", "dev-1", "digest-one")
	seedDevice(t, s, "user-1", "dev-2", "digest-two")

	got, err := s.GetDeviceByKeyDigest(ctx, "digest-two")
	if err != nil {
		t.Fatalf("GetDeviceByKeyDigest: %v", err)
	}
	if got.ID != "dev-2" {
		t.Errorf("ID: got %q, want dev-2", got.ID)
	}

	_, err = s.GetDeviceByKeyDigest(ctx, "no-such-digest")
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestTouchDeviceLastUsed(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedUser(t, s, "user-1")
	d := seedDevice(t, s, "user-1", "dev-1", "digest-one")

	at := time.Now().UTC().Add(time.Minute)
	if err := s.TouchDeviceLastUsed(ctx, d.ID, at); err != nil {
		t.Fatalf("TouchDeviceLastUsed: %v", err)
	}

	got, err := s.GetDevice(ctx, "user-1", d.ID)
	if err != nil {
		t.Fatalf("GetDevice: %v", err)
	}
	if got.LastUsedAt == nil {
		t.Fatal("LastUsedAt not set")
	}
	// Auth usage is not a config change; updated_at stays put.
	if !got.UpdatedAt.Equal(d.UpdatedAt) {
		t.Errorf("UpdatedAt moved: got %v, want %v", got.UpdatedAt, d.UpdatedAt)
	}
}

func TestUpdateDevice_Revoke(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedUser(t, s, "user-1")
	d := seedDevice(t, s, "user-1", "dev-1", "digest-one")

	revokedAt := time.Now().UTC()
	d.RevokedAt = &revokedAt
	d.UpdatedAt = revokedAt
	if err := s.UpdateDevice(ctx, d); err != nil {
		t.Fatalf("UpdateDevice: %v", err)
	}

	got, err := s.GetDevice(ctx, "user-1", d.ID)
	if err != nil {
		t.Fatalf("GetDevice: %v", err)
	}
	if !got.IsRevoked() {
		t.Error("device should be revoked")
	}
}
