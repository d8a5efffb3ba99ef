package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/phmapp/phm-server/internal/domain"
	"github.com/phmapp/phm-server/internal/store"
)

func seedReminder(t *testing.T, s *Store, id, userID, highlightID string, remindAt time.Time) *domain.Reminder {
	t.Helper()
	r := &domain.Reminder{
		ID: id, UserID: userID, HighlightID: highlightID,
		RemindAt: remindAt, CreatedAt: time.Now().UTC(),
	}
	if err := s.CreateReminder(context.Background(), r); err != nil {
		t.Fatalf("seed reminder %s: %v", id, err)
	}
	return r
}

func TestListDueReminders(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedUser(t, s, "user-1")
	seedSource(t, s, "user-1", "src-1")
	seedHighlight(t, s, "user-1", "src-1", "hl-1")

	now := time.Now().UTC()
	seedReminder(t, s, "rem-past", "user-1", "hl-1", now.Add(-time.Hour))
	seedReminder(t, s, "rem-future", "user-1", "hl-1", now.Add(time.Hour))
	fired := seedReminder(t, s, "rem-fired", "user-1", "hl-1", now.Add(-2*time.Hour))

	if err := s.MarkReminderFired(ctx, fired.ID, now.Add(-time.Hour)); err != nil {
		t.Fatalf("MarkReminderFired: %v", err)
	}

	due, err := s.ListDueReminders(ctx, now)
	if err != nil {
		t.Fatalf("ListDueReminders: %v", err)
	}
	if len(due) != 1 || due[0].ID != "rem-past" {
		t.Fatalf("due: got %d rows, first %v", len(due), due)
	}
}

func TestMarkReminderFired_OnlyOnce(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedUser(t, s, "user-1")
	seedSource(t, s, "user-1", "src-1")
	seedHighlight(t, s, "user-1", "src-1", "hl-1")

	now := time.Now().UTC()
	r := seedReminder(t, s, "rem-1", "user-1", "hl-1", now.Add(-time.Minute))

	if err := s.MarkReminderFired(ctx, r.ID, now); err != nil {
		t.Fatalf("MarkReminderFired: %v", err)
	}
	// Already fired: no row matches.
	if err := s.MarkReminderFired(ctx, r.ID, now); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("second fire: expected ErrNotFound, got %v", err)
	}

	got, err := s.GetReminder(ctx, "user-1", r.ID)
	if err != nil {
		t.Fatalf("GetReminder: %v", err)
	}
	if got.FiredAt == nil {
		t.Error("FiredAt not persisted")
	}
}

func TestDeleteReminder(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedUser(t, s, "user-1")
	seedSource(t, s, "user-1", "src-1")
	seedHighlight(t, s, "user-1", "src-1", "hl-1")

	r := seedReminder(t, s, "rem-1", "user-1", "hl-1", time.Now().UTC())

	if err := s.DeleteReminder(ctx, "user-1", r.ID); err != nil {
		t.Fatalf("DeleteReminder: %v", err)
	}
	if _, err := s.GetReminder(ctx, "user-1", r.ID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
}
