package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/phmapp/phm-server/internal/domain"
	"github.com/phmapp/phm-server/internal/store"
)

const reminderColumns = `id, user_id, highlight_id, remind_at, note, created_at, fired_at`

func scanReminder(scanner interface{ Scan(dest ...any) error }) (*domain.Reminder, error) {
	var r domain.Reminder
	var remindAt, createdAt string
	var firedAt sql.NullString

	err := scanner.Scan(
		&r.ID,
		&r.UserID,
		&r.HighlightID,
		&remindAt,
		&r.Note,
		&createdAt,
		&firedAt,
	)
	if err != nil {
		return nil, err
	}

	if r.RemindAt, err = parseTime(remindAt); err != nil {
		return nil, err
	}
	if r.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if r.FiredAt, err = parseNullableTime(firedAt); err != nil {
		return nil, err
	}
	return &r, nil
}

// CreateReminder inserts a new reminder.
func (s *Store) CreateReminder(ctx context.Context, r *domain.Reminder) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO reminders (id, user_id, highlight_id, remind_at, note, created_at, fired_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.ID,
		r.UserID,
		r.HighlightID,
		formatTime(r.RemindAt),
		r.Note,
		formatTime(r.CreatedAt),
		nullTimeString(r.FiredAt),
	)
	return err
}

// GetReminder retrieves a reminder by ID, scoped to its owner.
func (s *Store) GetReminder(ctx context.Context, userID, reminderID string) (*domain.Reminder, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+reminderColumns+` FROM reminders WHERE id = ? AND user_id = ?`, reminderID, userID)

	r, err := scanReminder(row)
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	return r, err
}

// ListReminders returns all of a user's reminders, soonest first.
func (s *Store) ListReminders(ctx context.Context, userID string) ([]*domain.Reminder, error) {
	return s.queryReminders(ctx,
		`SELECT `+reminderColumns+` FROM reminders WHERE user_id = ? ORDER BY remind_at ASC`, userID)
}

// ListDueReminders returns unfired reminders across all users whose
// remind_at has passed. Used by the scheduler.
func (s *Store) ListDueReminders(ctx context.Context, before time.Time) ([]*domain.Reminder, error) {
	return s.queryReminders(ctx, `
		SELECT `+reminderColumns+` FROM reminders
		WHERE fired_at IS NULL AND remind_at <= ?
		ORDER BY remind_at ASC`,
		formatTime(before))
}

// MarkReminderFired records the delivery time for a reminder.
func (s *Store) MarkReminderFired(ctx context.Context, reminderID string, at time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE reminders SET fired_at = ? WHERE id = ? AND fired_at IS NULL`,
		formatTime(at), reminderID)
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

// DeleteReminder removes a reminder, scoped to its owner.
func (s *Store) DeleteReminder(ctx context.Context, userID, reminderID string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM reminders WHERE id = ? AND user_id = ?`, reminderID, userID)
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

// DeleteRemindersForHighlight drops a highlight's pending reminders.
func (s *Store) DeleteRemindersForHighlight(ctx context.Context, highlightID string) (int, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM reminders WHERE highlight_id = ? AND fired_at IS NULL`, highlightID)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

func (s *Store) queryReminders(ctx context.Context, query string, args ...any) ([]*domain.Reminder, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	reminders := []*domain.Reminder{}
	for rows.Next() {
		r, err := scanReminder(rows)
		if err != nil {
			return nil, err
		}
		reminders = append(reminders, r)
	}
	return reminders, rows.Err()
}
