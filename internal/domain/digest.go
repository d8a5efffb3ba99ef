package domain

import "time"

// Default resurfacing parameters, applied when a user has no stored config.
const (
	DefaultDailyCount    = 5
	DefaultStalenessDays = 30 // e-folding period of the staleness curve
	MaxLinkDegreeBoost   = 5  // link degree contribution is capped here
)

// DigestConfig holds a user's resurfacing preferences.
type DigestConfig struct {
	UserID     string    `json:"user_id"`
	DailyCount int       `json:"daily_count"` // N highlights per daily digest
	FocusTags  []string  `json:"focus_tags,omitempty"`
	Enabled    bool      `json:"enabled"`
	Hour       int       `json:"hour"` // local hour (0-23) the daily digest is generated at
	UpdatedAt  time.Time `json:"updated_at"`
}

// DefaultDigestConfig returns the config used before a user customizes anything.
func DefaultDigestConfig(userID string) DigestConfig {
	return DigestConfig{
		UserID:     userID,
		DailyCount: DefaultDailyCount,
		Enabled:    true,
		Hour:       8,
	}
}

// ScoredHighlight pairs a highlight with its resurfacing score.
type ScoredHighlight struct {
	Highlight Highlight `json:"highlight"`
	Score     float64   `json:"score"`
}

// DailyDigest is the top-N resurfacing selection for one calendar day.
type DailyDigest struct {
	Date        string            `json:"date"` // YYYY-MM-DD in the user's timezone
	GeneratedAt time.Time         `json:"generated_at"`
	Entries     []ScoredHighlight `json:"entries"`
}

// TagCount is an aggregate row: how many of the week's highlights carry a tag.
type TagCount struct {
	TagID string `json:"tag_id"`
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// SourceCount is an aggregate row: how many of the week's highlights come from a source.
type SourceCount struct {
	SourceID string `json:"source_id"`
	Title    string `json:"title"`
	Count    int    `json:"count"`
}

// WeeklyDigest aggregates activity over one ISO week.
type WeeklyDigest struct {
	Week          string            `json:"week"` // ISO 8601, e.g. "2026-W35"
	GeneratedAt   time.Time         `json:"generated_at"`
	TotalAdded    int               `json:"total_added"`
	TotalReviewed int               `json:"total_reviewed"`
	ByTag         []TagCount        `json:"by_tag"`
	BySource      []SourceCount     `json:"by_source"`
	Top           []ScoredHighlight `json:"top"`
}
