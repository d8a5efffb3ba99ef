package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/phmapp/phm-server/internal/domain"
	domainerrors "github.com/phmapp/phm-server/internal/errors"
	"github.com/phmapp/phm-server/internal/id"
	"github.com/phmapp/phm-server/internal/store"
	"github.com/phmapp/phm-server/internal/validation"
)

// ReminderService schedules highlights to resurface at explicit times,
// independent of the scoring-based digests.
type ReminderService struct {
	store     store.Store
	validator *validation.Validator
	logger    *slog.Logger
}

// NewReminderService creates a new reminder service.
func NewReminderService(store store.Store, validator *validation.Validator, logger *slog.Logger) *ReminderService {
	return &ReminderService{
		store:     store,
		validator: validator,
		logger:    logger,
	}
}

// CreateReminderRequest schedules a reminder. Either a preset or an
// explicit remind_at must be given; the preset wins if both are set.
type CreateReminderRequest struct {
	HighlightID string     `json:"highlight_id" validate:"required"`
	Preset      string     `json:"preset,omitempty" validate:"omitempty,oneof=tomorrow next_week next_month next_year"`
	RemindAt    *time.Time `json:"remind_at,omitempty"`
	Note        string     `json:"note,omitempty" validate:"max=2000"`
}

// Create schedules a reminder for one of the user's active highlights.
func (s *ReminderService) Create(ctx context.Context, userID string, req CreateReminderRequest) (*domain.Reminder, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	now := time.Now()
	remindAt, err := resolveRemindAt(req, now)
	if err != nil {
		return nil, err
	}

	highlight, err := s.store.GetHighlight(ctx, userID, req.HighlightID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domainerrors.NotFound("highlight not found")
		}
		return nil, fmt.Errorf("get highlight: %w", err)
	}
	if highlight.Archived {
		return nil, domainerrors.Conflict("cannot set a reminder on an archived highlight")
	}

	reminderID, err := id.Generate("rem")
	if err != nil {
		return nil, fmt.Errorf("generate reminder ID: %w", err)
	}

	reminder := &domain.Reminder{
		ID:          reminderID,
		UserID:      userID,
		HighlightID: highlight.ID,
		RemindAt:    remindAt.UTC(),
		Note:        req.Note,
		CreatedAt:   now,
	}
	if err := s.store.CreateReminder(ctx, reminder); err != nil {
		return nil, fmt.Errorf("create reminder: %w", err)
	}

	s.logger.Info("reminder scheduled",
		"reminder_id", reminder.ID,
		"highlight_id", highlight.ID,
		"user_id", userID,
		"remind_at", reminder.RemindAt,
	)
	return reminder, nil
}

func resolveRemindAt(req CreateReminderRequest, now time.Time) (time.Time, error) {
	switch req.Preset {
	case "tomorrow":
		return now.AddDate(0, 0, 1), nil
	case "next_week":
		return now.AddDate(0, 0, 7), nil
	case "next_month":
		return now.AddDate(0, 1, 0), nil
	case "next_year":
		return now.AddDate(1, 0, 0), nil
	}
	if req.RemindAt == nil {
		return time.Time{}, domainerrors.Validation("either preset or remind_at is required")
	}
	if !req.RemindAt.After(now) {
		return time.Time{}, domainerrors.Validation("remind_at must be in the future")
	}
	return *req.RemindAt, nil
}

// Get returns a single reminder.
func (s *ReminderService) Get(ctx context.Context, userID, reminderID string) (*domain.Reminder, error) {
	reminder, err := s.store.GetReminder(ctx, userID, reminderID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, domainerrors.NotFound("reminder not found")
	}
	return reminder, err
}

// List returns the user's reminders, soonest first.
func (s *ReminderService) List(ctx context.Context, userID string) ([]*domain.Reminder, error) {
	return s.store.ListReminders(ctx, userID)
}

// Delete cancels a reminder.
func (s *ReminderService) Delete(ctx context.Context, userID, reminderID string) error {
	err := s.store.DeleteReminder(ctx, userID, reminderID)
	if errors.Is(err, store.ErrNotFound) {
		return domainerrors.NotFound("reminder not found")
	}
	return err
}

// FireDue marks every due reminder as fired and returns how many fired.
// Called from the scheduler; a reminder that loses the mark race (already
// fired by a concurrent run) is skipped silently.
func (s *ReminderService) FireDue(ctx context.Context) (int, error) {
	now := time.Now()
	due, err := s.store.ListDueReminders(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("list due reminders: %w", err)
	}

	fired := 0
	for _, reminder := range due {
		if err := s.store.MarkReminderFired(ctx, reminder.ID, now); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				continue
			}
			return fired, fmt.Errorf("mark reminder %s fired: %w", reminder.ID, err)
		}
		s.logger.Info("reminder fired",
			"reminder_id", reminder.ID,
			"highlight_id", reminder.HighlightID,
			"user_id", reminder.UserID,
		)
		fired++
	}
	return fired, nil
}
