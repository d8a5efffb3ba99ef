package domain

import "time"

// Tag represents a user-scoped label for highlights.
// Name keeps the casing the user first typed; NameNorm is the canonical
// lower-cased whitespace-collapsed form that uniqueness is enforced on.
type Tag struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Name      string    `json:"name"`
	NameNorm  string    `json:"-"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// HighlightCount is denormalized for list views; populated by queries.
	HighlightCount int `json:"highlight_count,omitempty"`
}

// Touch updates the UpdatedAt timestamp.
func (t *Tag) Touch() {
	t.UpdatedAt = time.Now()
}

// HighlightTag represents the many-to-many relationship between highlights and tags.
type HighlightTag struct {
	HighlightID string    `json:"highlight_id"`
	TagID       string    `json:"tag_id"`
	CreatedAt   time.Time `json:"created_at"`
}
