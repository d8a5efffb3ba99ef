package sqlite

import (
	"context"
	"strings"

	"github.com/phmapp/phm-server/internal/domain"
	"github.com/phmapp/phm-server/internal/store"
)

// CreateLink inserts a directed typed link between two highlights.
// Returns store.ErrAlreadyExists if the same (from, to, type) triple exists.
func (s *Store) CreateLink(ctx context.Context, l *domain.Link) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO highlight_links (id, user_id, from_id, to_id, type, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		l.ID,
		l.UserID,
		l.FromID,
		l.ToID,
		string(l.Type),
		formatTime(l.CreatedAt),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return store.ErrAlreadyExists
		}
		return err
	}
	return nil
}

// DeleteLink removes a link by ID, scoped to its owner.
func (s *Store) DeleteLink(ctx context.Context, userID, linkID string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM highlight_links WHERE id = ? AND user_id = ?`, linkID, userID)
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

// ListLinksForHighlight returns links touching a highlight in either direction.
func (s *Store) ListLinksForHighlight(ctx context.Context, userID, highlightID string) ([]*domain.Link, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, from_id, to_id, type, created_at
		FROM highlight_links
		WHERE user_id = ? AND (from_id = ? OR to_id = ?)
		ORDER BY created_at ASC`,
		userID, highlightID, highlightID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	links := []*domain.Link{}
	for rows.Next() {
		var l domain.Link
		var linkType string
		var createdAt string
		if err := rows.Scan(&l.ID, &l.UserID, &l.FromID, &l.ToID, &linkType, &createdAt); err != nil {
			return nil, err
		}
		l.Type = domain.LinkType(linkType)
		if l.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		links = append(links, &l)
	}
	return links, rows.Err()
}

// GetLinkDegrees returns how many links touch each of a user's highlights,
// counting both directions. Highlights with no links are absent from the map.
func (s *Store) GetLinkDegrees(ctx context.Context, userID string) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT highlight_id, COUNT(*)
		FROM (
			SELECT from_id AS highlight_id FROM highlight_links WHERE user_id = ?
			UNION ALL
			SELECT to_id AS highlight_id FROM highlight_links WHERE user_id = ?
		)
		GROUP BY highlight_id`,
		userID, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	degrees := make(map[string]int)
	for rows.Next() {
		var id string
		var count int
		if err := rows.Scan(&id, &count); err != nil {
			return nil, err
		}
		degrees[id] = count
	}
	return degrees, rows.Err()
}
