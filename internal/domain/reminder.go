package domain

import "time"

// Reminder schedules a highlight to resurface at a specific time,
// independent of the scoring-based digests.
type Reminder struct {
	ID          string     `json:"id"`
	UserID      string     `json:"user_id"`
	HighlightID string     `json:"highlight_id"`
	RemindAt    time.Time  `json:"remind_at"`
	Note        string     `json:"note,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	FiredAt     *time.Time `json:"fired_at,omitempty"`
}

// IsDue reports whether the reminder should fire at the given instant.
func (r *Reminder) IsDue(now time.Time) bool {
	return r.FiredAt == nil && !now.Before(r.RemindAt)
}

// MarkFired records that the reminder has been delivered.
func (r *Reminder) MarkFired(now time.Time) {
	r.FiredAt = &now
}
