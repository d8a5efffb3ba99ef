package sqlite

import (
	"context"
	"database/sql"
	"strings"

	"github.com/phmapp/phm-server/internal/domain"
	"github.com/phmapp/phm-server/internal/store"
)

// focusTagSeparator joins focus tag IDs into a single TEXT column.
// US (unit separator) cannot appear in nanoid-generated IDs.
const focusTagSeparator = "\x1f"

// GetDigestConfig retrieves a user's digest config.
// Returns store.ErrNotFound if the user has never customized it.
func (s *Store) GetDigestConfig(ctx context.Context, userID string) (*domain.DigestConfig, error) {
	var c domain.DigestConfig
	var focusTags string
	var updatedAt string

	err := s.db.QueryRowContext(ctx, `
		SELECT user_id, daily_count, focus_tags, enabled, hour, updated_at
		FROM digest_configs WHERE user_id = ?`, userID).
		Scan(&c.UserID, &c.DailyCount, &focusTags, &c.Enabled, &c.Hour, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if focusTags != "" {
		c.FocusTags = strings.Split(focusTags, focusTagSeparator)
	}
	if c.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

// UpsertDigestConfig creates or replaces a user's digest config.
func (s *Store) UpsertDigestConfig(ctx context.Context, c *domain.DigestConfig) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO digest_configs (user_id, daily_count, focus_tags, enabled, hour, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			daily_count = excluded.daily_count,
			focus_tags = excluded.focus_tags,
			enabled = excluded.enabled,
			hour = excluded.hour,
			updated_at = excluded.updated_at`,
		c.UserID,
		c.DailyCount,
		strings.Join(c.FocusTags, focusTagSeparator),
		boolToInt(c.Enabled),
		c.Hour,
		formatTime(c.UpdatedAt),
	)
	return err
}
