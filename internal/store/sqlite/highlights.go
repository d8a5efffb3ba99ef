package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/phmapp/phm-server/internal/domain"
	"github.com/phmapp/phm-server/internal/store"
)

const highlightColumns = `id, user_id, source_id, device_id, text, note, favorite, archived, color, location_page, location_chapter, url, title, author, fingerprint, created_at, updated_at, last_reviewed_at, review_count`

const defaultListLimit = 100

func scanHighlight(scanner interface{ Scan(dest ...any) error }) (*domain.Highlight, error) {
	var h domain.Highlight

	var (
		favorite       int
		archived       int
		sourceID       sql.NullString
		fingerprint    sql.NullString
		createdAt      string
		updatedAt      string
		lastReviewedAt sql.NullString
	)

	err := scanner.Scan(
		&h.ID,
		&h.UserID,
		&sourceID,
		&h.DeviceID,
		&h.Text,
		&h.Note,
		&favorite,
		&archived,
		&h.Color,
		&h.Location.Page,
		&h.Location.Chapter,
		&h.URL,
		&h.Title,
		&h.Author,
		&fingerprint,
		&createdAt,
		&updatedAt,
		&lastReviewedAt,
		&h.ReviewCount,
	)
	if err != nil {
		return nil, err
	}

	h.Favorite = favorite != 0
	h.Archived = archived != 0
	h.SourceID = sourceID.String
	h.Fingerprint = fingerprint.String
	h.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, err
	}
	h.UpdatedAt, err = parseTime(updatedAt)
	if err != nil {
		return nil, err
	}
	h.LastReviewedAt, err = parseNullableTime(lastReviewedAt)
	if err != nil {
		return nil, err
	}

	return &h, nil
}

// CreateHighlightWithTags inserts a highlight and its tag associations in a
// single transaction: either everything lands or nothing does.
// Returns store.ErrAlreadyExists if the fingerprint is already present.
func (s *Store) CreateHighlightWithTags(ctx context.Context, h *domain.Highlight, tagIDs []string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO highlights (`+highlightColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		h.ID,
		h.UserID,
		nullString(h.SourceID),
		h.DeviceID,
		h.Text,
		h.Note,
		boolToInt(h.Favorite),
		boolToInt(h.Archived),
		h.Color,
		h.Location.Page,
		h.Location.Chapter,
		h.URL,
		h.Title,
		h.Author,
		nullString(h.Fingerprint),
		formatTime(h.CreatedAt),
		formatTime(h.UpdatedAt),
		nullTimeString(h.LastReviewedAt),
		h.ReviewCount,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return store.ErrAlreadyExists
		}
		return fmt.Errorf("insert highlight: %w", err)
	}

	now := formatTime(time.Now().UTC())
	for _, tagID := range tagIDs {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO highlight_tags (highlight_id, tag_id, created_at)
			VALUES (?, ?, ?)`,
			h.ID,
			tagID,
			now,
		)
		if err != nil {
			return fmt.Errorf("insert highlight_tag: %w", err)
		}
	}

	return tx.Commit()
}

// GetHighlight retrieves a highlight by ID with its tags, scoped to its owner.
func (s *Store) GetHighlight(ctx context.Context, userID, highlightID string) (*domain.Highlight, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+highlightColumns+` FROM highlights WHERE id = ? AND user_id = ?`, highlightID, userID)

	h, err := scanHighlight(row)
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if err := s.attachTags(ctx, []*domain.Highlight{h}); err != nil {
		return nil, err
	}
	return h, nil
}

// GetHighlightByFingerprint retrieves a highlight by its import fingerprint.
// Returns store.ErrNotFound if no highlight matches.
func (s *Store) GetHighlightByFingerprint(ctx context.Context, userID, fingerprint string) (*domain.Highlight, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+highlightColumns+` FROM highlights WHERE user_id = ? AND fingerprint = ?`, userID, fingerprint)

	h, err := scanHighlight(row)
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return h, nil
}

// UpdateHighlight persists changes to an existing highlight.
func (s *Store) UpdateHighlight(ctx context.Context, h *domain.Highlight) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE highlights
		SET text = ?, note = ?, favorite = ?, archived = ?, color = ?, location_page = ?, location_chapter = ?, url = ?, title = ?, author = ?, updated_at = ?, last_reviewed_at = ?, review_count = ?
		WHERE id = ?`,
		h.Text,
		h.Note,
		boolToInt(h.Favorite),
		boolToInt(h.Archived),
		h.Color,
		h.Location.Page,
		h.Location.Chapter,
		h.URL,
		h.Title,
		h.Author,
		formatTime(h.UpdatedAt),
		nullTimeString(h.LastReviewedAt),
		h.ReviewCount,
		h.ID,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

// SetHighlightTags replaces all tags for a highlight in a single transaction.
func (s *Store) SetHighlightTags(ctx context.Context, highlightID string, tagIDs []string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM highlight_tags WHERE highlight_id = ?`, highlightID); err != nil {
		return fmt.Errorf("delete highlight_tags: %w", err)
	}

	now := formatTime(time.Now().UTC())
	for _, tagID := range tagIDs {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO highlight_tags (highlight_id, tag_id, created_at)
			VALUES (?, ?, ?)`,
			highlightID,
			tagID,
			now,
		)
		if err != nil {
			return fmt.Errorf("insert highlight_tag: %w", err)
		}
	}

	return tx.Commit()
}

// ArchiveHighlight marks a highlight archived and drops its pending
// reminders, in one transaction. Idempotent for already-archived rows.
func (s *Store) ArchiveHighlight(ctx context.Context, userID, highlightID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE highlights SET archived = 1, updated_at = ? WHERE id = ? AND user_id = ?`,
		formatTime(time.Now().UTC()), highlightID, userID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM reminders WHERE highlight_id = ? AND fired_at IS NULL`, highlightID); err != nil {
		return fmt.Errorf("delete reminders: %w", err)
	}

	return tx.Commit()
}

// UnarchiveHighlight restores an archived highlight.
func (s *Store) UnarchiveHighlight(ctx context.Context, userID, highlightID string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE highlights SET archived = 0, updated_at = ? WHERE id = ? AND user_id = ?`,
		formatTime(time.Now().UTC()), highlightID, userID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

// ListHighlights returns highlights matching the filter, newest first, with
// tags attached. Archived rows are excluded unless the filter asks for them.
func (s *Store) ListHighlights(ctx context.Context, userID string, filter store.HighlightFilter) ([]*domain.Highlight, error) {
	query := `SELECT ` + qualified(highlightColumns, "h") + ` FROM highlights h`
	args := []any{}

	if filter.TagID != "" {
		query += ` JOIN highlight_tags ht ON ht.highlight_id = h.id AND ht.tag_id = ?`
		args = append(args, filter.TagID)
	}

	query += ` WHERE h.user_id = ?`
	args = append(args, userID)

	switch filter.Status {
	case store.StatusAll:
	case store.StatusArchived:
		query += ` AND h.archived = 1`
	default:
		query += ` AND h.archived = 0`
	}

	if filter.SourceID != "" {
		query += ` AND h.source_id = ?`
		args = append(args, filter.SourceID)
	}
	if filter.DeviceID != "" {
		query += ` AND h.device_id = ?`
		args = append(args, filter.DeviceID)
	}
	if filter.Favorite != nil {
		query += ` AND h.favorite = ?`
		args = append(args, boolToInt(*filter.Favorite))
	}
	if filter.Query != "" {
		query += ` AND (h.text LIKE ? ESCAPE '\' OR h.note LIKE ? ESCAPE '\')`
		pattern := "%" + escapeLike(filter.Query) + "%"
		args = append(args, pattern, pattern)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	query += ` ORDER BY h.created_at DESC, h.id ASC LIMIT ? OFFSET ?`
	args = append(args, limit, filter.Offset)

	return s.queryHighlights(ctx, query, args...)
}

// ListHighlightsWithTags returns all of a user's active highlights with tags
// attached. Used by the resurfacing engine, which scores the full corpus.
func (s *Store) ListHighlightsWithTags(ctx context.Context, userID string) ([]*domain.Highlight, error) {
	return s.queryHighlights(ctx,
		`SELECT `+highlightColumns+` FROM highlights WHERE user_id = ? AND archived = 0 ORDER BY created_at ASC`, userID)
}

// ListHighlightsCreatedBetween returns active highlights created in
// [from, to), with tags attached.
func (s *Store) ListHighlightsCreatedBetween(ctx context.Context, userID string, from, to time.Time) ([]*domain.Highlight, error) {
	return s.queryHighlights(ctx, `
		SELECT `+highlightColumns+` FROM highlights
		WHERE user_id = ? AND archived = 0 AND created_at >= ? AND created_at < ?
		ORDER BY created_at ASC`,
		userID, formatTime(from), formatTime(to))
}

// CountHighlightsReviewedBetween counts highlights whose last review falls in [from, to).
func (s *Store) CountHighlightsReviewedBetween(ctx context.Context, userID string, from, to time.Time) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM highlights
		WHERE user_id = ? AND last_reviewed_at >= ? AND last_reviewed_at < ?`,
		userID, formatTime(from), formatTime(to)).Scan(&count)
	return count, err
}

// TagCountsBetween aggregates tag usage over active highlights created in [from, to).
func (s *Store) TagCountsBetween(ctx context.Context, userID string, from, to time.Time) ([]domain.TagCount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT t.id, t.name, COUNT(*)
		FROM highlights h
		JOIN highlight_tags ht ON ht.highlight_id = h.id
		JOIN tags t ON t.id = ht.tag_id
		WHERE h.user_id = ? AND h.archived = 0 AND h.created_at >= ? AND h.created_at < ?
		GROUP BY t.id
		ORDER BY COUNT(*) DESC, t.name_norm ASC`,
		userID, formatTime(from), formatTime(to))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := []domain.TagCount{}
	for rows.Next() {
		var tc domain.TagCount
		if err := rows.Scan(&tc.TagID, &tc.Name, &tc.Count); err != nil {
			return nil, err
		}
		counts = append(counts, tc)
	}
	return counts, rows.Err()
}

// SourceCountsBetween aggregates source usage over active highlights created in [from, to).
func (s *Store) SourceCountsBetween(ctx context.Context, userID string, from, to time.Time) ([]domain.SourceCount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT src.id, src.title, COUNT(*)
		FROM highlights h
		JOIN sources src ON src.id = h.source_id
		WHERE h.user_id = ? AND h.archived = 0 AND h.created_at >= ? AND h.created_at < ?
		GROUP BY src.id
		ORDER BY COUNT(*) DESC, src.title ASC`,
		userID, formatTime(from), formatTime(to))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := []domain.SourceCount{}
	for rows.Next() {
		var sc domain.SourceCount
		if err := rows.Scan(&sc.SourceID, &sc.Title, &sc.Count); err != nil {
			return nil, err
		}
		counts = append(counts, sc)
	}
	return counts, rows.Err()
}

// queryHighlights runs a highlight query and attaches tags to the results.
func (s *Store) queryHighlights(ctx context.Context, query string, args ...any) ([]*domain.Highlight, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var highlights []*domain.Highlight
	for rows.Next() {
		h, err := scanHighlight(rows)
		if err != nil {
			return nil, err
		}
		highlights = append(highlights, h)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if highlights == nil {
		highlights = []*domain.Highlight{}
	}

	if err := s.attachTags(ctx, highlights); err != nil {
		return nil, err
	}
	return highlights, nil
}

// attachTags loads tags for a batch of highlights in one query.
func (s *Store) attachTags(ctx context.Context, highlights []*domain.Highlight) error {
	if len(highlights) == 0 {
		return nil
	}

	byID := make(map[string]*domain.Highlight, len(highlights))
	placeholders := make([]string, 0, len(highlights))
	args := make([]any, 0, len(highlights))
	for _, h := range highlights {
		h.Tags = []domain.Tag{}
		byID[h.ID] = h
		placeholders = append(placeholders, "?")
		args = append(args, h.ID)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT ht.highlight_id, t.id, t.user_id, t.name, t.name_norm, t.created_at, t.updated_at
		FROM highlight_tags ht
		JOIN tags t ON t.id = ht.tag_id
		WHERE ht.highlight_id IN (`+strings.Join(placeholders, ",")+`)
		ORDER BY t.name_norm ASC`, args...)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var highlightID string
		var t domain.Tag
		var createdAt, updatedAt string
		if err := rows.Scan(&highlightID, &t.ID, &t.UserID, &t.Name, &t.NameNorm, &createdAt, &updatedAt); err != nil {
			return err
		}
		if t.CreatedAt, err = parseTime(createdAt); err != nil {
			return err
		}
		if t.UpdatedAt, err = parseTime(updatedAt); err != nil {
			return err
		}
		if h, ok := byID[highlightID]; ok {
			h.Tags = append(h.Tags, t)
		}
	}
	return rows.Err()
}

// qualified prefixes every column in a comma-separated list with a table alias.
func qualified(columns, alias string) string {
	parts := strings.Split(columns, ", ")
	for i, p := range parts {
		parts[i] = alias + "." + p
	}
	return strings.Join(parts, ", ")
}

// escapeLike escapes LIKE wildcards in user-supplied search terms.
func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `%`, `\%`)
	s = strings.ReplaceAll(s, `_`, `\_`)
	return s
}
