package sqlite

import (
	"context"
	"database/sql"
	"strings"

	"github.com/phmapp/phm-server/internal/domain"
	"github.com/phmapp/phm-server/internal/store"
)

const sourceColumns = `id, user_id, type, identity_key, title, author, url, created_at, updated_at`

func scanSource(scanner interface{ Scan(dest ...any) error }) (*domain.Source, error) {
	var src domain.Source

	var (
		sourceType string
		createdAt  string
		updatedAt  string
	)

	err := scanner.Scan(
		&src.ID,
		&src.UserID,
		&sourceType,
		&src.IdentityKey,
		&src.Title,
		&src.Author,
		&src.URL,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	src.Type = domain.SourceType(sourceType)
	src.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, err
	}
	src.UpdatedAt, err = parseTime(updatedAt)
	if err != nil {
		return nil, err
	}

	return &src, nil
}

// CreateSource inserts a new source.
// Returns store.ErrAlreadyExists when (user, type, identity_key) is taken,
// which callers use to recover from concurrent find-or-create races.
func (s *Store) CreateSource(ctx context.Context, src *domain.Source) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sources (id, user_id, type, identity_key, title, author, url, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		src.ID,
		src.UserID,
		string(src.Type),
		src.IdentityKey,
		src.Title,
		src.Author,
		src.URL,
		formatTime(src.CreatedAt),
		formatTime(src.UpdatedAt),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return store.ErrAlreadyExists
		}
		return err
	}
	return nil
}

// GetSource retrieves a source by ID, scoped to its owner.
func (s *Store) GetSource(ctx context.Context, userID, id string) (*domain.Source, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+sourceColumns+` FROM sources WHERE id = ? AND user_id = ?`, id, userID)

	src, err := scanSource(row)
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return src, nil
}

// GetSourceByIdentity retrieves a source by its dedup identity.
// Returns store.ErrNotFound if no source matches.
func (s *Store) GetSourceByIdentity(ctx context.Context, userID string, sourceType domain.SourceType, identityKey string) (*domain.Source, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+sourceColumns+` FROM sources WHERE user_id = ? AND type = ? AND identity_key = ?`,
		userID, string(sourceType), identityKey)

	src, err := scanSource(row)
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return src, nil
}

// UpdateSource persists display metadata changes. The identity key is
// immutable and deliberately not part of the UPDATE.
func (s *Store) UpdateSource(ctx context.Context, src *domain.Source) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE sources
		SET title = ?, author = ?, url = ?, updated_at = ?
		WHERE id = ?`,
		src.Title,
		src.Author,
		src.URL,
		formatTime(src.UpdatedAt),
		src.ID,
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

// ListSources returns all sources for a user with their highlight counts,
// most recently updated first.
func (s *Store) ListSources(ctx context.Context, userID string) ([]*domain.Source, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT s.id, s.user_id, s.type, s.identity_key, s.title, s.author, s.url, s.created_at, s.updated_at,
		       COUNT(h.id)
		FROM sources s
		LEFT JOIN highlights h ON h.source_id = s.id AND h.archived = 0
		WHERE s.user_id = ?
		GROUP BY s.id
		ORDER BY s.updated_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sources []*domain.Source
	for rows.Next() {
		var src domain.Source
		var sourceType, createdAt, updatedAt string
		err := rows.Scan(
			&src.ID,
			&src.UserID,
			&sourceType,
			&src.IdentityKey,
			&src.Title,
			&src.Author,
			&src.URL,
			&createdAt,
			&updatedAt,
			&src.HighlightCount,
		)
		if err != nil {
			return nil, err
		}
		src.Type = domain.SourceType(sourceType)
		if src.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		if src.UpdatedAt, err = parseTime(updatedAt); err != nil {
			return nil, err
		}
		sources = append(sources, &src)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if sources == nil {
		sources = []*domain.Source{}
	}
	return sources, nil
}

// DeleteOrphanedSources removes sources with no remaining highlights.
// Returns the number of sources deleted.
func (s *Store) DeleteOrphanedSources(ctx context.Context, userID string) (int, error) {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM sources
		WHERE user_id = ?
		  AND NOT EXISTS (SELECT 1 FROM highlights h WHERE h.source_id = sources.id)`,
		userID)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}
