package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phmapp/phm-server/internal/domain"
	"github.com/phmapp/phm-server/internal/store/sqlite"
	"github.com/phmapp/phm-server/internal/validation"
)

func setupTestReminder(t *testing.T) (*ReminderService, *sqlite.Store) {
	t.Helper()
	s := newServiceTestStore(t)
	svc := NewReminderService(s, validation.New(), discardLogger())
	return svc, s
}

func TestCreateReminderPresets(t *testing.T) {
	svc, s := setupTestReminder(t)
	ctx := context.Background()
	seedTestUser(t, s, "user-1")
	seedTestSource(t, s, "user-1", "src-1")
	h := seedTestHighlight(t, s, "user-1", "src-1", "hl-1", time.Now().UTC())

	cases := []struct {
		preset string
		min    time.Duration
		max    time.Duration
	}{
		{"tomorrow", 23 * time.Hour, 25 * time.Hour},
		{"next_week", 6 * 24 * time.Hour, 8 * 24 * time.Hour},
		{"next_month", 27 * 24 * time.Hour, 32 * 24 * time.Hour},
		{"next_year", 364 * 24 * time.Hour, 367 * 24 * time.Hour},
	}
	for _, tc := range cases {
		reminder, err := svc.Create(ctx, "user-1", CreateReminderRequest{
			HighlightID: h.ID,
			Preset:      tc.preset,
		})
		require.NoError(t, err, tc.preset)
		until := time.Until(reminder.RemindAt)
		assert.Greater(t, until, tc.min, tc.preset)
		assert.Less(t, until, tc.max, tc.preset)
	}
}

func TestCreateReminderExplicitTime(t *testing.T) {
	svc, s := setupTestReminder(t)
	ctx := context.Background()
	seedTestUser(t, s, "user-1")
	seedTestSource(t, s, "user-1", "src-1")
	h := seedTestHighlight(t, s, "user-1", "src-1", "hl-1", time.Now().UTC())

	at := time.Now().Add(48 * time.Hour).UTC()
	reminder, err := svc.Create(ctx, "user-1", CreateReminderRequest{
		HighlightID: h.ID,
		RemindAt:    &at,
		Note:        "revisit this",
	})
	require.NoError(t, err)
	assert.WithinDuration(t, at, reminder.RemindAt, time.Second)
	assert.Equal(t, "revisit this", reminder.Note)

	// Past times are rejected.
	past := time.Now().Add(-time.Hour)
	_, err = svc.Create(ctx, "user-1", CreateReminderRequest{HighlightID: h.ID, RemindAt: &past})
	assert.Error(t, err)

	// Neither preset nor time is rejected.
	_, err = svc.Create(ctx, "user-1", CreateReminderRequest{HighlightID: h.ID})
	assert.Error(t, err)
}

func TestCreateReminderArchivedHighlight(t *testing.T) {
	svc, s := setupTestReminder(t)
	ctx := context.Background()
	seedTestUser(t, s, "user-1")
	seedTestSource(t, s, "user-1", "src-1")
	h := seedTestHighlight(t, s, "user-1", "src-1", "hl-1", time.Now().UTC())
	require.NoError(t, s.ArchiveHighlight(ctx, "user-1", h.ID))

	_, err := svc.Create(ctx, "user-1", CreateReminderRequest{HighlightID: h.ID, Preset: "tomorrow"})
	assert.Error(t, err)
}

func TestFireDue(t *testing.T) {
	svc, s := setupTestReminder(t)
	ctx := context.Background()
	seedTestUser(t, s, "user-1")
	seedTestSource(t, s, "user-1", "src-1")
	h := seedTestHighlight(t, s, "user-1", "src-1", "hl-1", time.Now().UTC())

	now := time.Now().UTC()
	due := &domain.Reminder{
		ID: "rem-due", UserID: "user-1", HighlightID: h.ID,
		RemindAt: now.Add(-time.Minute), CreatedAt: now.Add(-time.Hour),
	}
	future := &domain.Reminder{
		ID: "rem-future", UserID: "user-1", HighlightID: h.ID,
		RemindAt: now.Add(time.Hour), CreatedAt: now,
	}
	require.NoError(t, s.CreateReminder(ctx, due))
	require.NoError(t, s.CreateReminder(ctx, future))

	fired, err := svc.FireDue(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, fired)

	// A second sweep finds nothing new.
	fired, err = svc.FireDue(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, fired)

	got, err := s.GetReminder(ctx, "user-1", "rem-due")
	require.NoError(t, err)
	assert.NotNil(t, got.FiredAt)
}
