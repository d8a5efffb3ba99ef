package sqlite

import (
	"context"
	"database/sql"
	"strings"

	"github.com/phmapp/phm-server/internal/domain"
	"github.com/phmapp/phm-server/internal/store"
)

const collectionColumns = `id, user_id, name, description, created_at, updated_at`

func scanCollection(scanner interface{ Scan(dest ...any) error }) (*domain.Collection, error) {
	var c domain.Collection
	var createdAt, updatedAt string

	err := scanner.Scan(
		&c.ID,
		&c.UserID,
		&c.Name,
		&c.Description,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	if c.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if c.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

// CreateCollection inserts a new collection.
func (s *Store) CreateCollection(ctx context.Context, c *domain.Collection) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO collections (id, user_id, name, description, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		c.ID,
		c.UserID,
		c.Name,
		c.Description,
		formatTime(c.CreatedAt),
		formatTime(c.UpdatedAt),
	)
	if err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return store.ErrAlreadyExists
	}
	return err
}

// GetCollection retrieves a collection by ID, scoped to its owner.
func (s *Store) GetCollection(ctx context.Context, userID, collectionID string) (*domain.Collection, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+collectionColumns+` FROM collections WHERE id = ? AND user_id = ?`, collectionID, userID)

	c, err := scanCollection(row)
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	return c, err
}

// UpdateCollection persists changes to an existing collection.
func (s *Store) UpdateCollection(ctx context.Context, c *domain.Collection) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE collections SET name = ?, description = ?, updated_at = ? WHERE id = ?`,
		c.Name,
		c.Description,
		formatTime(c.UpdatedAt),
		c.ID,
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

// DeleteCollection removes a collection. Item rows cascade.
func (s *Store) DeleteCollection(ctx context.Context, userID, collectionID string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM collections WHERE id = ? AND user_id = ?`, collectionID, userID)
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

// ListCollections returns all of a user's collections ordered by name,
// with item counts populated.
func (s *Store) ListCollections(ctx context.Context, userID string) ([]*domain.Collection, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+qualified(collectionColumns, "c")+`, COUNT(ci.highlight_id)
		FROM collections c
		LEFT JOIN collection_items ci ON ci.collection_id = c.id
		WHERE c.user_id = ?
		GROUP BY c.id
		ORDER BY c.name ASC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	collections := []*domain.Collection{}
	for rows.Next() {
		var c domain.Collection
		var createdAt, updatedAt string
		err := rows.Scan(&c.ID, &c.UserID, &c.Name, &c.Description, &createdAt, &updatedAt, &c.ItemCount)
		if err != nil {
			return nil, err
		}
		if c.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		if c.UpdatedAt, err = parseTime(updatedAt); err != nil {
			return nil, err
		}
		collections = append(collections, &c)
	}
	return collections, rows.Err()
}

// AddToCollection adds a highlight to a collection at the given position.
// Returns store.ErrAlreadyExists if the highlight is already a member.
func (s *Store) AddToCollection(ctx context.Context, collectionID, highlightID string, position int) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO collection_items (collection_id, highlight_id, position, added_at)
		VALUES (?, ?, ?, ?)`,
		collectionID,
		highlightID,
		position,
		formatTime(nowUTC()),
	)
	if err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return store.ErrAlreadyExists
	}
	return err
}

// RemoveFromCollection removes a highlight from a collection.
func (s *Store) RemoveFromCollection(ctx context.Context, collectionID, highlightID string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM collection_items WHERE collection_id = ? AND highlight_id = ?`,
		collectionID, highlightID)
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

// ListCollectionHighlights returns a collection's highlights in position
// order, with tags attached.
func (s *Store) ListCollectionHighlights(ctx context.Context, userID, collectionID string) ([]*domain.Highlight, error) {
	return s.queryHighlights(ctx, `
		SELECT `+qualified(highlightColumns, "h")+`
		FROM collection_items ci
		JOIN highlights h ON h.id = ci.highlight_id
		WHERE ci.collection_id = ? AND h.user_id = ?
		ORDER BY ci.position ASC, ci.added_at ASC`,
		collectionID, userID)
}
