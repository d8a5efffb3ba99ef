package jobs

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/phmapp/phm-server/internal/auth"
	"github.com/phmapp/phm-server/internal/domain"
	"github.com/phmapp/phm-server/internal/service"
	"github.com/phmapp/phm-server/internal/store/sqlite"
	"github.com/phmapp/phm-server/internal/validation"
)

func newTestScheduler(t *testing.T) (*Scheduler, *sqlite.Store) {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	st, err := sqlite.Open(filepath.Join(t.TempDir(), "test.db"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	validator := validation.New()
	tokens, err := auth.NewTokenService(make([]byte, 32), 15*time.Minute, time.Hour)
	require.NoError(t, err)

	sched, err := NewScheduler(
		st,
		service.NewDigestService(st, validator, logger),
		service.NewReminderService(st, validator, logger),
		service.NewSourceService(st, validator, logger),
		service.NewSessionService(st, tokens, logger),
		true,
		logger,
	)
	require.NoError(t, err)
	return sched, st
}

func TestSweepsOnEmptyDatabase(t *testing.T) {
	sched, _ := newTestScheduler(t)
	ctx := context.Background()

	sched.fireReminders(ctx)
	sched.generateDailyDigests(ctx)
	sched.cleanup(ctx)
}

func TestCleanupDropsOrphanedSources(t *testing.T) {
	sched, st := newTestScheduler(t)
	ctx := context.Background()

	now := time.Now()
	user := &domain.User{
		ID:           "user-1",
		Email:        "reader@example.com",
		PasswordHash: "x",
		Timezone:     "UTC",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	require.NoError(t, st.CreateUser(ctx, user))
	require.NoError(t, st.CreateSource(ctx, &domain.Source{
		ID:          "src-orphan",
		UserID:      user.ID,
		Type:        domain.SourceWeb,
		IdentityKey: "example.com/orphan",
		CreatedAt:   now,
		UpdatedAt:   now,
	}))

	sched.cleanup(ctx)

	_, err := st.GetSource(ctx, user.ID, "src-orphan")
	require.Error(t, err)
}
