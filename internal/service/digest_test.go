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

func setupTestDigest(t *testing.T) (*DigestService, *sqlite.Store) {
	t.Helper()
	s := newServiceTestStore(t)
	svc := NewDigestService(s, validation.New(), discardLogger())
	return svc, s
}

func TestScoreStaleness(t *testing.T) {
	now := time.Now()
	cfg := domain.DefaultDigestConfig("user-1")

	fresh := &domain.Highlight{ID: "hl-fresh", CreatedAt: now.Add(-time.Hour)}
	month := &domain.Highlight{ID: "hl-month", CreatedAt: now.AddDate(0, 0, -domain.DefaultStalenessDays)}
	year := &domain.Highlight{ID: "hl-year", CreatedAt: now.AddDate(-1, 0, 0)}

	sFresh := Score(fresh, &cfg, 0, now)
	sMonth := Score(month, &cfg, 0, now)
	sYear := Score(year, &cfg, 0, now)

	assert.Less(t, sFresh, sMonth)
	assert.Less(t, sMonth, sYear)
	// One e-folding period gives e-1.
	assert.InDelta(t, 1.718, sMonth, 0.01)
}

func TestScoreReviewResetsStaleness(t *testing.T) {
	now := time.Now()
	cfg := domain.DefaultDigestConfig("user-1")

	old := &domain.Highlight{ID: "hl-old", CreatedAt: now.AddDate(0, -6, 0)}
	reviewedAt := now.Add(-time.Hour)
	reviewed := &domain.Highlight{
		ID:             "hl-reviewed",
		CreatedAt:      now.AddDate(0, -6, 0),
		LastReviewedAt: &reviewedAt,
	}

	assert.Greater(t, Score(old, &cfg, 0, now), Score(reviewed, &cfg, 0, now))
}

func TestScoreBonuses(t *testing.T) {
	now := time.Now()
	created := now.AddDate(0, 0, -10)
	cfg := domain.DefaultDigestConfig("user-1")
	cfg.FocusTags = []string{"tag-go", "tag-db"}

	base := &domain.Highlight{ID: "hl-base", CreatedAt: created}
	baseScore := Score(base, &cfg, 0, now)

	fav := &domain.Highlight{ID: "hl-fav", CreatedAt: created, Favorite: true}
	assert.InDelta(t, baseScore+favoriteBonus, Score(fav, &cfg, 0, now), 1e-9)

	focused := &domain.Highlight{
		ID: "hl-focus", CreatedAt: created,
		Tags: []domain.Tag{{ID: "tag-go"}, {ID: "tag-db"}, {ID: "tag-other"}},
	}
	assert.InDelta(t, baseScore+2*focusTagBonus, Score(focused, &cfg, 0, now), 1e-9)

	linked := Score(base, &cfg, 3, now)
	assert.InDelta(t, baseScore+3*linkDegreeBonus, linked, 1e-9)

	// Degree contribution is capped.
	capped := Score(base, &cfg, 100, now)
	assert.InDelta(t, baseScore+domain.MaxLinkDegreeBoost*linkDegreeBonus, capped, 1e-9)
}

func TestRankDeterministicTieBreak(t *testing.T) {
	now := time.Now()
	created := now.AddDate(0, 0, -5)
	cfg := domain.DefaultDigestConfig("user-1")

	highlights := []*domain.Highlight{
		{ID: "hl-c", CreatedAt: created},
		{ID: "hl-a", CreatedAt: created},
		{ID: "hl-b", CreatedAt: created},
	}

	for range 3 {
		scored := rank(highlights, &cfg, nil, now)
		require.Len(t, scored, 3)
		assert.Equal(t, "hl-a", scored[0].Highlight.ID)
		assert.Equal(t, "hl-b", scored[1].Highlight.ID)
		assert.Equal(t, "hl-c", scored[2].Highlight.ID)
	}
}

func TestRankExcludesArchived(t *testing.T) {
	now := time.Now()
	cfg := domain.DefaultDigestConfig("user-1")

	highlights := []*domain.Highlight{
		{ID: "hl-1", CreatedAt: now.AddDate(-1, 0, 0), Archived: true},
		{ID: "hl-2", CreatedAt: now.Add(-time.Hour)},
	}
	scored := rank(highlights, &cfg, nil, now)
	require.Len(t, scored, 1)
	assert.Equal(t, "hl-2", scored[0].Highlight.ID)
}

func TestDailyDigest(t *testing.T) {
	svc, s := setupTestDigest(t)
	ctx := context.Background()
	seedTestUser(t, s, "user-1")
	seedTestSource(t, s, "user-1", "src-1")

	now := time.Now().UTC()
	// Oldest first so staleness ranks hl-old > hl-mid > hl-new.
	seedTestHighlight(t, s, "user-1", "src-1", "hl-old", now.AddDate(0, -6, 0))
	seedTestHighlight(t, s, "user-1", "src-1", "hl-mid", now.AddDate(0, -2, 0))
	seedTestHighlight(t, s, "user-1", "src-1", "hl-new", now.Add(-time.Hour))

	cfg := domain.DefaultDigestConfig("user-1")
	cfg.DailyCount = 2
	require.NoError(t, s.UpsertDigestConfig(ctx, &cfg))

	digest, err := svc.Daily(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, digest.Entries, 2)
	assert.Equal(t, "hl-old", digest.Entries[0].Highlight.ID)
	assert.Equal(t, "hl-mid", digest.Entries[1].Highlight.ID)
	assert.Greater(t, digest.Entries[0].Score, digest.Entries[1].Score)
	assert.Equal(t, now.Format("2006-01-02"), digest.Date)
}

func TestDailyDigestExcludesArchived(t *testing.T) {
	svc, s := setupTestDigest(t)
	ctx := context.Background()
	seedTestUser(t, s, "user-1")
	seedTestSource(t, s, "user-1", "src-1")

	now := time.Now().UTC()
	stale := seedTestHighlight(t, s, "user-1", "src-1", "hl-stale", now.AddDate(-1, 0, 0))
	seedTestHighlight(t, s, "user-1", "src-1", "hl-keep", now.AddDate(0, 0, -3))
	require.NoError(t, s.ArchiveHighlight(ctx, "user-1", stale.ID))

	digest, err := svc.Daily(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, digest.Entries, 1)
	assert.Equal(t, "hl-keep", digest.Entries[0].Highlight.ID)
}

func TestWeeklyDigest(t *testing.T) {
	svc, s := setupTestDigest(t)
	ctx := context.Background()
	seedTestUser(t, s, "user-1")
	seedTestSource(t, s, "user-1", "src-1")
	seedTestSource(t, s, "user-1", "src-2")

	tag, _, err := s.FindOrCreateTag(ctx, "user-1", "golang")
	require.NoError(t, err)

	// 2026-W35 runs Mon Aug 24 through Sun Aug 30.
	inWeek := time.Date(2026, 8, 26, 12, 0, 0, 0, time.UTC)
	before := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)

	seedTestHighlight(t, s, "user-1", "src-1", "hl-1", inWeek, tag.ID)
	seedTestHighlight(t, s, "user-1", "src-2", "hl-2", inWeek.Add(24*time.Hour))
	seedTestHighlight(t, s, "user-1", "src-1", "hl-outside", before)

	digest, err := svc.Weekly(ctx, "user-1", "2026-W35")
	require.NoError(t, err)

	assert.Equal(t, "2026-W35", digest.Week)
	assert.Equal(t, 2, digest.TotalAdded)
	require.Len(t, digest.ByTag, 1)
	assert.Equal(t, "golang", digest.ByTag[0].Name)
	assert.Equal(t, 1, digest.ByTag[0].Count)
	require.Len(t, digest.BySource, 2)
	require.Len(t, digest.Top, 2)
	for _, entry := range digest.Top {
		assert.NotEqual(t, "hl-outside", entry.Highlight.ID)
	}
}

func TestWeeklyDigestRejectsBadWeek(t *testing.T) {
	svc, s := setupTestDigest(t)
	ctx := context.Background()
	seedTestUser(t, s, "user-1")

	for _, week := range []string{"2026", "2026-W00", "2026-W60", "W35-2026", "2026-w35"} {
		_, err := svc.Weekly(ctx, "user-1", week)
		assert.Error(t, err, "week %q", week)
	}
}

func TestIsoWeekBounds(t *testing.T) {
	start, end, err := isoWeekBounds("2026-W01", time.UTC)
	require.NoError(t, err)
	// ISO week 1 of 2026 starts Monday December 29, 2025.
	assert.Equal(t, time.Date(2025, 12, 29, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, start.AddDate(0, 0, 7), end)

	// 2026 has 53 weeks.
	start, _, err = isoWeekBounds("2026-W53", time.UTC)
	require.NoError(t, err)
	y, w := start.ISOWeek()
	assert.Equal(t, 2026, y)
	assert.Equal(t, 53, w)

	// 2025 does not.
	_, _, err = isoWeekBounds("2025-W53", time.UTC)
	assert.Error(t, err)
}

func TestGetConfigDefaults(t *testing.T) {
	svc, s := setupTestDigest(t)
	ctx := context.Background()
	seedTestUser(t, s, "user-1")

	cfg, err := svc.GetConfig(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultDailyCount, cfg.DailyCount)
	assert.True(t, cfg.Enabled)
}

func TestUpdateConfig(t *testing.T) {
	svc, s := setupTestDigest(t)
	ctx := context.Background()
	seedTestUser(t, s, "user-1")

	tag, _, err := s.FindOrCreateTag(ctx, "user-1", "golang")
	require.NoError(t, err)

	count := 10
	hour := 7
	focus := []string{tag.ID}
	cfg, err := svc.UpdateConfig(ctx, "user-1", UpdateDigestConfigRequest{
		DailyCount: &count,
		Hour:       &hour,
		FocusTags:  &focus,
	})
	require.NoError(t, err)
	assert.Equal(t, 10, cfg.DailyCount)
	assert.Equal(t, 7, cfg.Hour)
	assert.Equal(t, []string{tag.ID}, cfg.FocusTags)

	// Persisted.
	cfg, err = svc.GetConfig(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 10, cfg.DailyCount)
}

func TestUpdateConfigUnknownFocusTag(t *testing.T) {
	svc, s := setupTestDigest(t)
	ctx := context.Background()
	seedTestUser(t, s, "user-1")

	focus := []string{"tag-missing"}
	_, err := svc.UpdateConfig(ctx, "user-1", UpdateDigestConfigRequest{FocusTags: &focus})
	assert.Error(t, err)
}

func TestUpdateConfigTimezone(t *testing.T) {
	svc, s := setupTestDigest(t)
	ctx := context.Background()
	seedTestUser(t, s, "user-1")

	tz := "America/New_York"
	_, err := svc.UpdateConfig(ctx, "user-1", UpdateDigestConfigRequest{Timezone: &tz})
	require.NoError(t, err)

	user, err := s.GetUser(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, tz, user.Timezone)

	bad := "Mars/Olympus_Mons"
	_, err = svc.UpdateConfig(ctx, "user-1", UpdateDigestConfigRequest{Timezone: &bad})
	assert.Error(t, err)
}
