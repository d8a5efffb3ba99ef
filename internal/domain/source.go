package domain

import "time"

// SourceType distinguishes the two kinds of sources PHM tracks.
type SourceType string

const (
	// SourceWeb is an article or page identified by its domain.
	SourceWeb SourceType = "web"
	// SourceBook is a book identified by its normalized title.
	SourceBook SourceType = "book"
)

// Valid reports whether t is a known source type.
func (t SourceType) Valid() bool {
	return t == SourceWeb || t == SourceBook
}

// Source represents where a highlight came from: a website or a book.
//
// Sources are deduplicated per user on (Type, IdentityKey). IdentityKey is
// derived at resolve time — lower-cased www-stripped domain for web, casefolded
// whitespace-collapsed title for books — and never edited afterwards. Title and
// Author are display metadata; the first capture's values win and later
// captures do not overwrite them.
type Source struct {
	ID          string     `json:"id"`
	UserID      string     `json:"user_id"`
	Type        SourceType `json:"type"`
	IdentityKey string     `json:"identity_key"`
	Title       string     `json:"title"`
	Author      string     `json:"author,omitempty"`
	URL         string     `json:"url,omitempty"` // first URL seen, web sources only
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`

	// HighlightCount is denormalized for list views; populated by queries,
	// not stored on the row.
	HighlightCount int `json:"highlight_count,omitempty"`
}

// Touch updates the UpdatedAt timestamp.
func (s *Source) Touch() {
	s.UpdatedAt = time.Now()
}
