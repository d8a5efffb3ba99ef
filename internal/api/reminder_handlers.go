package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/phmapp/phm-server/internal/domain"
	"github.com/phmapp/phm-server/internal/service"
)

func (s *Server) registerReminderRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "createReminder",
		Method:      http.MethodPost,
		Path:        "/api/v1/highlights/{id}/reminders",
		Summary:     "Create reminder",
		Description: "Schedules this highlight to resurface at a preset or explicit time",
		Tags:        []string{"Reminders"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleCreateReminder)

	huma.Register(s.api, huma.Operation{
		OperationID: "listReminders",
		Method:      http.MethodGet,
		Path:        "/api/v1/reminders",
		Summary:     "List reminders",
		Description: "Returns the user's reminders, soonest first",
		Tags:        []string{"Reminders"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleListReminders)

	huma.Register(s.api, huma.Operation{
		OperationID: "deleteReminder",
		Method:      http.MethodDelete,
		Path:        "/api/v1/reminders/{id}",
		Summary:     "Delete reminder",
		Description: "Cancels a reminder",
		Tags:        []string{"Reminders"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleDeleteReminder)
}

// === DTOs ===

// ReminderResponse contains reminder data in API responses.
type ReminderResponse struct {
	ID          string     `json:"id" doc:"Reminder ID"`
	HighlightID string     `json:"highlight_id" doc:"Highlight to resurface"`
	RemindAt    time.Time  `json:"remind_at" doc:"When the reminder fires"`
	Note        string     `json:"note,omitempty" doc:"Optional note"`
	CreatedAt   time.Time  `json:"created_at" doc:"Creation time"`
	FiredAt     *time.Time `json:"fired_at,omitempty" doc:"Delivery time, if fired"`
}

// CreateReminderInput wraps the reminder creation request for Huma.
type CreateReminderInput struct {
	Authorization string `header:"Authorization"`
	ID            string `path:"id" doc:"Highlight ID"`
	Body          struct {
		Preset   string     `json:"preset,omitempty" enum:"tomorrow,next_week,next_month,next_year" doc:"Relative schedule preset, wins over remind_at"`
		RemindAt *time.Time `json:"remind_at,omitempty" doc:"Explicit time, must be in the future"`
		Note     string     `json:"note,omitempty" doc:"Optional note"`
	}
}

// ListRemindersInput contains query filters for listing reminders.
type ListRemindersInput struct {
	Authorization string `header:"Authorization"`
	Due           bool   `query:"due" doc:"Only reminders whose time has arrived and that have not fired"`
}

// ReminderOutput wraps a single reminder response for Huma.
type ReminderOutput struct {
	Body ReminderResponse
}

// ListRemindersOutput wraps the reminder list for Huma.
type ListRemindersOutput struct {
	Body struct {
		Reminders []ReminderResponse `json:"reminders" doc:"User's reminders"`
	}
}

func toReminderResponse(r *domain.Reminder) ReminderResponse {
	return ReminderResponse{
		ID:          r.ID,
		HighlightID: r.HighlightID,
		RemindAt:    r.RemindAt,
		Note:        r.Note,
		CreatedAt:   r.CreatedAt,
		FiredAt:     r.FiredAt,
	}
}

// === Handlers ===

func (s *Server) handleCreateReminder(ctx context.Context, input *CreateReminderInput) (*ReminderOutput, error) {
	identity, err := s.requireSession(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	reminder, err := s.services.Reminder.Create(ctx, identity.UserID, service.CreateReminderRequest{
		HighlightID: input.ID,
		Preset:      input.Body.Preset,
		RemindAt:    input.Body.RemindAt,
		Note:        input.Body.Note,
	})
	if err != nil {
		return nil, err
	}
	return &ReminderOutput{Body: toReminderResponse(reminder)}, nil
}

func (s *Server) handleListReminders(ctx context.Context, input *ListRemindersInput) (*ListRemindersOutput, error) {
	identity, err := s.requireSession(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	reminders, err := s.services.Reminder.List(ctx, identity.UserID)
	if err != nil {
		return nil, err
	}

	if input.Due {
		now := time.Now()
		due := reminders[:0]
		for _, r := range reminders {
			if r.FiredAt == nil && !r.RemindAt.After(now) {
				due = append(due, r)
			}
		}
		reminders = due
	}

	out := &ListRemindersOutput{}
	out.Body.Reminders = make([]ReminderResponse, len(reminders))
	for i, r := range reminders {
		out.Body.Reminders[i] = toReminderResponse(r)
	}
	return out, nil
}

func (s *Server) handleDeleteReminder(ctx context.Context, input *authWithID) (*MessageOutput, error) {
	identity, err := s.requireSession(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	if err := s.services.Reminder.Delete(ctx, identity.UserID, input.ID); err != nil {
		return nil, err
	}
	return &MessageOutput{Body: MessageResponse{Message: "Reminder deleted"}}, nil
}
