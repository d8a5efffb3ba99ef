package domain

import "time"

// Location pinpoints where in a source a highlight was captured.
// All fields are optional; web captures usually carry none of them.
type Location struct {
	Page    int    `json:"page,omitempty"`
	Chapter string `json:"chapter,omitempty"`
}

// IsZero reports whether no location information is present.
func (l Location) IsZero() bool {
	return l.Page == 0 && l.Chapter == ""
}

// Highlight is the core entity: a passage of text captured from a source,
// with optional note, tags, and cross-links to related highlights.
//
// Highlights are never hard-deleted: "delete" archives them. Archived
// highlights are excluded from listings and resurfacing but keep their
// source row alive.
type Highlight struct {
	ID       string `json:"id"`
	UserID   string `json:"user_id"`
	SourceID string `json:"source_id"`

	// DeviceID records the capture device, empty for UI-created highlights.
	DeviceID string `json:"device_id,omitempty"`

	Text     string   `json:"text"`
	Note     string   `json:"note,omitempty"`
	Favorite bool     `json:"favorite"`
	Archived bool     `json:"archived"`
	Color    string   `json:"color,omitempty"` // client-chosen swatch name, free-form
	Location Location `json:"location,omitzero"`

	// Per-article metadata for web captures. The source row holds only the
	// domain; the specific page lives here.
	URL    string `json:"url,omitempty"`
	Title  string `json:"title,omitempty"`
	Author string `json:"author,omitempty"`

	// Fingerprint deduplicates repeated imports of the same capture.
	// Empty for highlights created without dedupe (manual entry).
	Fingerprint string `json:"-"`

	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
	LastReviewedAt *time.Time `json:"last_reviewed_at,omitempty"`
	ReviewCount    int        `json:"review_count"`

	// Tags is populated by queries that join the tag table; nil means
	// the query did not load them, empty slice means no tags.
	Tags []Tag `json:"tags,omitempty"`
}

// Touch updates the UpdatedAt timestamp.
func (h *Highlight) Touch() {
	h.UpdatedAt = time.Now()
}

// MarkReviewed records a review: bumps the counter and resets staleness.
func (h *Highlight) MarkReviewed() {
	now := time.Now()
	h.LastReviewedAt = &now
	h.ReviewCount++
	h.UpdatedAt = now
}

// StalenessAnchor returns the instant staleness is measured from:
// the last review if one happened, otherwise creation.
func (h *Highlight) StalenessAnchor() time.Time {
	if h.LastReviewedAt != nil {
		return *h.LastReviewedAt
	}
	return h.CreatedAt
}

// LinkType describes how two highlights relate.
type LinkType string

const (
	LinkRelated     LinkType = "related"
	LinkSupports    LinkType = "supports"
	LinkContradicts LinkType = "contradicts"
	LinkExample     LinkType = "example"
	LinkExpands     LinkType = "expands"
)

// Valid reports whether t is a known link type.
func (t LinkType) Valid() bool {
	switch t {
	case LinkRelated, LinkSupports, LinkContradicts, LinkExample, LinkExpands:
		return true
	}
	return false
}

// Link is a directed typed edge between two highlights owned by the same
// user. No self-loops; at most one edge per (from, to, type) triple. Link
// degree (in + out) feeds resurfacing scores.
type Link struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	FromID    string    `json:"from_id"`
	ToID      string    `json:"to_id"`
	Type      LinkType  `json:"type"`
	CreatedAt time.Time `json:"created_at"`
}
