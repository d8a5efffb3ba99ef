package domain

import "time"

// Collection is a manually curated, ordered set of highlights.
type Collection struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	// ItemCount is denormalized for list views; populated by queries.
	ItemCount int `json:"item_count,omitempty"`
}

// Touch updates the UpdatedAt timestamp.
func (c *Collection) Touch() {
	c.UpdatedAt = time.Now()
}

// CollectionItem places a highlight in a collection at a position.
// Position is a sparse integer ordering; gaps are fine.
type CollectionItem struct {
	CollectionID string    `json:"collection_id"`
	HighlightID  string    `json:"highlight_id"`
	Position     int       `json:"position"`
	AddedAt      time.Time `json:"added_at"`
}
