package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"regexp"
	"sort"
	"strconv"
	"time"

	"github.com/phmapp/phm-server/internal/domain"
	domainerrors "github.com/phmapp/phm-server/internal/errors"
	"github.com/phmapp/phm-server/internal/store"
	"github.com/phmapp/phm-server/internal/validation"
)

// Scoring weights. The staleness term dominates for old material; the
// bonuses nudge favorites, focused topics, and well-connected highlights
// toward the top without drowning out staleness.
const (
	favoriteBonus   = 1.0
	focusTagBonus   = 0.5
	linkDegreeBonus = 0.25 // per edge, degree capped at domain.MaxLinkDegreeBoost
)

var isoWeekPattern = regexp.MustCompile(`^(\d{4})-W(\d{2})$`)

// DigestService scores highlights for resurfacing and assembles the daily
// and weekly digests. Scoring is pure: given the same highlights, config,
// link degrees, and instant, the output is identical.
type DigestService struct {
	store     store.Store
	validator *validation.Validator
	logger    *slog.Logger
}

// NewDigestService creates a new digest service.
func NewDigestService(store store.Store, validator *validation.Validator, logger *slog.Logger) *DigestService {
	return &DigestService{
		store:     store,
		validator: validator,
		logger:    logger,
	}
}

// UpdateDigestConfigRequest contains the editable resurfacing preferences.
type UpdateDigestConfigRequest struct {
	DailyCount *int      `json:"daily_count,omitempty" validate:"omitempty,min=1,max=50"`
	FocusTags  *[]string `json:"focus_tags,omitempty" validate:"omitempty,max=20"`
	Enabled    *bool     `json:"enabled,omitempty"`
	Hour       *int      `json:"hour,omitempty" validate:"omitempty,min=0,max=23"`
	Timezone   *string   `json:"timezone,omitempty" validate:"omitempty,max=64"`
}

// Score computes the resurfacing score for one highlight.
//
// The staleness term grows exponentially in days since the highlight was
// last reviewed (or created, if never reviewed), with an e-folding period
// of domain.DefaultStalenessDays. Favorites, focus-tag overlap, and link
// degree add fixed bonuses on top.
func Score(h *domain.Highlight, cfg *domain.DigestConfig, linkDegree int, now time.Time) float64 {
	days := now.Sub(h.StalenessAnchor()).Hours() / 24
	if days < 0 {
		days = 0
	}
	score := math.Exp(days/domain.DefaultStalenessDays) - 1

	if h.Favorite {
		score += favoriteBonus
	}

	if len(cfg.FocusTags) > 0 && len(h.Tags) > 0 {
		focus := make(map[string]struct{}, len(cfg.FocusTags))
		for _, id := range cfg.FocusTags {
			focus[id] = struct{}{}
		}
		for _, tag := range h.Tags {
			if _, ok := focus[tag.ID]; ok {
				score += focusTagBonus
			}
		}
	}

	if linkDegree > domain.MaxLinkDegreeBoost {
		linkDegree = domain.MaxLinkDegreeBoost
	}
	score += float64(linkDegree) * linkDegreeBonus

	return score
}

// rank scores the given highlights and orders them best-first, breaking
// score ties by highlight id so the output is stable.
func rank(highlights []*domain.Highlight, cfg *domain.DigestConfig, degrees map[string]int, now time.Time) []domain.ScoredHighlight {
	scored := make([]domain.ScoredHighlight, 0, len(highlights))
	for _, h := range highlights {
		if h.Archived {
			continue
		}
		scored = append(scored, domain.ScoredHighlight{
			Highlight: *h,
			Score:     Score(h, cfg, degrees[h.ID], now),
		})
	}
	sort.Slice(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].Highlight.ID < scored[j].Highlight.ID
	})
	return scored
}

// Daily returns today's resurfacing selection: the top daily_count
// highlights by score. It never mutates review state; reviews are recorded
// only through the explicit review operation.
func (s *DigestService) Daily(ctx context.Context, userID string) (*domain.DailyDigest, error) {
	cfg, err := s.GetConfig(ctx, userID)
	if err != nil {
		return nil, err
	}

	loc, err := s.userLocation(ctx, userID)
	if err != nil {
		return nil, err
	}
	now := time.Now()

	highlights, err := s.store.ListHighlightsWithTags(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list highlights: %w", err)
	}
	degrees, err := s.store.GetLinkDegrees(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("link degrees: %w", err)
	}

	scored := rank(highlights, cfg, degrees, now)
	if len(scored) > cfg.DailyCount {
		scored = scored[:cfg.DailyCount]
	}

	return &domain.DailyDigest{
		Date:        now.In(loc).Format("2006-01-02"),
		GeneratedAt: now,
		Entries:     scored,
	}, nil
}

// Weekly aggregates one ISO week of activity ("2026-W35") and picks a
// representative top selection from the highlights created that week.
func (s *DigestService) Weekly(ctx context.Context, userID, week string) (*domain.WeeklyDigest, error) {
	cfg, err := s.GetConfig(ctx, userID)
	if err != nil {
		return nil, err
	}
	loc, err := s.userLocation(ctx, userID)
	if err != nil {
		return nil, err
	}

	from, to, err := isoWeekBounds(week, loc)
	if err != nil {
		return nil, err
	}
	now := time.Now()

	created, err := s.store.ListHighlightsCreatedBetween(ctx, userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("list highlights for week: %w", err)
	}
	reviewed, err := s.store.CountHighlightsReviewedBetween(ctx, userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("count reviews: %w", err)
	}
	byTag, err := s.store.TagCountsBetween(ctx, userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("tag counts: %w", err)
	}
	bySource, err := s.store.SourceCountsBetween(ctx, userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("source counts: %w", err)
	}
	degrees, err := s.store.GetLinkDegrees(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("link degrees: %w", err)
	}

	top := rank(created, cfg, degrees, now)
	if len(top) > cfg.DailyCount {
		top = top[:cfg.DailyCount]
	}

	return &domain.WeeklyDigest{
		Week:          week,
		GeneratedAt:   now,
		TotalAdded:    len(created),
		TotalReviewed: reviewed,
		ByTag:         byTag,
		BySource:      bySource,
		Top:           top,
	}, nil
}

// GetConfig returns the user's resurfacing config, falling back to the
// defaults for users who never customized anything.
func (s *DigestService) GetConfig(ctx context.Context, userID string) (*domain.DigestConfig, error) {
	cfg, err := s.store.GetDigestConfig(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		def := domain.DefaultDigestConfig(userID)
		return &def, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get digest config: %w", err)
	}
	return cfg, nil
}

// UpdateConfig applies partial changes to the resurfacing config. Focus
// tags must reference the user's existing tags. A timezone change is
// stored on the user record, which owns day/week boundaries.
func (s *DigestService) UpdateConfig(ctx context.Context, userID string, req UpdateDigestConfigRequest) (*domain.DigestConfig, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	cfg, err := s.GetConfig(ctx, userID)
	if err != nil {
		return nil, err
	}

	if req.DailyCount != nil {
		cfg.DailyCount = *req.DailyCount
	}
	if req.Enabled != nil {
		cfg.Enabled = *req.Enabled
	}
	if req.Hour != nil {
		cfg.Hour = *req.Hour
	}
	if req.FocusTags != nil {
		tags := *req.FocusTags
		for _, tagID := range tags {
			if _, err := s.store.GetTag(ctx, userID, tagID); err != nil {
				if errors.Is(err, store.ErrNotFound) {
					return nil, domainerrors.Validationf("unknown focus tag %q", tagID)
				}
				return nil, fmt.Errorf("check focus tag: %w", err)
			}
		}
		cfg.FocusTags = tags
	}

	if req.Timezone != nil {
		if _, err := time.LoadLocation(*req.Timezone); err != nil {
			return nil, domainerrors.Validationf("unknown timezone %q", *req.Timezone)
		}
		user, err := s.store.GetUser(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("get user: %w", err)
		}
		user.Timezone = *req.Timezone
		user.Touch()
		if err := s.store.UpdateUser(ctx, user); err != nil {
			return nil, fmt.Errorf("update user timezone: %w", err)
		}
	}

	cfg.UpdatedAt = time.Now()
	if err := s.store.UpsertDigestConfig(ctx, cfg); err != nil {
		return nil, fmt.Errorf("save digest config: %w", err)
	}

	s.logger.Info("digest config updated",
		"user_id", userID,
		"daily_count", cfg.DailyCount,
		"focus_tags", len(cfg.FocusTags),
		"enabled", cfg.Enabled,
	)
	return cfg, nil
}

// userLocation loads the user's IANA timezone, defaulting to UTC when the
// stored name is empty or no longer resolvable.
func (s *DigestService) userLocation(ctx context.Context, userID string) (*time.Location, error) {
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if user.Timezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(user.Timezone)
	if err != nil {
		s.logger.Warn("unresolvable user timezone, using UTC",
			"user_id", userID,
			"timezone", user.Timezone,
		)
		return time.UTC, nil
	}
	return loc, nil
}

// isoWeekBounds returns the [start, end) window of an ISO 8601 week
// identifier like "2026-W35", with the Monday boundary taken in loc.
func isoWeekBounds(week string, loc *time.Location) (time.Time, time.Time, error) {
	m := isoWeekPattern.FindStringSubmatch(week)
	if m == nil {
		return time.Time{}, time.Time{}, domainerrors.Validationf("invalid week %q, expected YYYY-Www", week)
	}
	year, _ := strconv.Atoi(m[1])
	num, _ := strconv.Atoi(m[2])
	if num < 1 || num > 53 {
		return time.Time{}, time.Time{}, domainerrors.Validationf("invalid week number %d", num)
	}

	// January 4th is always in ISO week 1. Walk back to that week's Monday,
	// then forward to the requested week.
	jan4 := time.Date(year, time.January, 4, 0, 0, 0, 0, loc)
	weekday := int(jan4.Weekday())
	if weekday == 0 {
		weekday = 7 // Sunday
	}
	monday := jan4.AddDate(0, 0, -(weekday - 1))
	start := monday.AddDate(0, 0, (num-1)*7)

	if y, w := start.ISOWeek(); y != year || w != num {
		return time.Time{}, time.Time{}, domainerrors.Validationf("year %d has no week %d", year, num)
	}
	return start, start.AddDate(0, 0, 7), nil
}
