package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/phmapp/phm-server/internal/domain"
	"github.com/phmapp/phm-server/internal/id"
	"github.com/phmapp/phm-server/internal/normalize"
	"github.com/phmapp/phm-server/internal/store"
)

const tagColumns = `id, user_id, name, name_norm, created_at, updated_at`

func scanTag(scanner interface{ Scan(dest ...any) error }) (*domain.Tag, error) {
	var t domain.Tag

	var (
		createdAt string
		updatedAt string
	)

	err := scanner.Scan(
		&t.ID,
		&t.UserID,
		&t.Name,
		&t.NameNorm,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	t.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, err
	}
	t.UpdatedAt, err = parseTime(updatedAt)
	if err != nil {
		return nil, err
	}

	return &t, nil
}

// CreateTag inserts a new tag.
// Returns store.ErrAlreadyExists on duplicate normalized name for the user.
func (s *Store) CreateTag(ctx context.Context, t *domain.Tag) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tags (id, user_id, name, name_norm, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		t.ID,
		t.UserID,
		t.Name,
		t.NameNorm,
		formatTime(t.CreatedAt),
		formatTime(t.UpdatedAt),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return store.ErrAlreadyExists
		}
		return err
	}
	return nil
}

// GetTag retrieves a tag by ID, scoped to its owner.
func (s *Store) GetTag(ctx context.Context, userID, tagID string) (*domain.Tag, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+tagColumns+` FROM tags WHERE id = ? AND user_id = ?`, tagID, userID)

	t, err := scanTag(row)
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return t, nil
}

// GetTagByNameNorm retrieves a tag by its normalized name.
func (s *Store) GetTagByNameNorm(ctx context.Context, userID, nameNorm string) (*domain.Tag, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+tagColumns+` FROM tags WHERE user_id = ? AND name_norm = ?`, userID, nameNorm)

	t, err := scanTag(row)
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return t, nil
}

// FindOrCreateTag finds an existing tag by normalized name or creates a new one.
// Returns (tag, created, error) where created is true if a new tag was made.
// Safe under concurrency: a losing racer re-reads the winner's row.
func (s *Store) FindOrCreateTag(ctx context.Context, userID, name string) (*domain.Tag, bool, error) {
	nameNorm := normalize.TagName(name)

	existing, err := s.GetTagByNameNorm(ctx, userID, nameNorm)
	if err == nil {
		return existing, false, nil
	}
	if err != store.ErrNotFound {
		return nil, false, err
	}

	tagID, err := id.Generate("tag")
	if err != nil {
		return nil, false, fmt.Errorf("generate tag id: %w", err)
	}

	now := time.Now().UTC()
	t := &domain.Tag{
		ID:        tagID,
		UserID:    userID,
		Name:      strings.TrimSpace(name),
		NameNorm:  nameNorm,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.CreateTag(ctx, t); err != nil {
		if err == store.ErrAlreadyExists {
			// Race: another request created it between our read and write.
			existing, err := s.GetTagByNameNorm(ctx, userID, nameNorm)
			if err != nil {
				return nil, false, err
			}
			return existing, false, nil
		}
		return nil, false, err
	}

	return t, true, nil
}

// UpdateTag persists a rename. Returns store.ErrAlreadyExists if the new
// normalized name collides with another tag.
func (s *Store) UpdateTag(ctx context.Context, t *domain.Tag) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE tags SET name = ?, name_norm = ?, updated_at = ? WHERE id = ?`,
		t.Name,
		t.NameNorm,
		formatTime(t.UpdatedAt),
		t.ID,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return store.ErrAlreadyExists
		}
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

// ListTags returns all tags for a user with highlight counts, ordered by name.
func (s *Store) ListTags(ctx context.Context, userID string) ([]*domain.Tag, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT t.id, t.user_id, t.name, t.name_norm, t.created_at, t.updated_at,
		       COUNT(ht.highlight_id)
		FROM tags t
		LEFT JOIN highlight_tags ht ON ht.tag_id = t.id
		WHERE t.user_id = ?
		GROUP BY t.id
		ORDER BY t.name_norm ASC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tags []*domain.Tag
	for rows.Next() {
		var t domain.Tag
		var createdAt, updatedAt string
		err := rows.Scan(&t.ID, &t.UserID, &t.Name, &t.NameNorm, &createdAt, &updatedAt, &t.HighlightCount)
		if err != nil {
			return nil, err
		}
		if t.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		if t.UpdatedAt, err = parseTime(updatedAt); err != nil {
			return nil, err
		}
		tags = append(tags, &t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if tags == nil {
		tags = []*domain.Tag{}
	}
	return tags, nil
}

// DeleteTag removes a tag. Highlight associations cascade.
func (s *Store) DeleteTag(ctx context.Context, userID, tagID string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM tags WHERE id = ? AND user_id = ?`, tagID, userID)
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
