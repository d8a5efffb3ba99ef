package api

import (
	"github.com/phmapp/phm-server/internal/service"
)

// Services groups all business logic services used by the API server.
// This reduces the parameter count for NewServer and improves testability.
type Services struct {
	Auth       *service.AuthService
	Session    *service.SessionService
	Device     *service.DeviceService
	Source     *service.SourceService
	Highlight  *service.HighlightService
	Tag        *service.TagService
	Link       *service.LinkService
	Collection *service.CollectionService
	Digest     *service.DigestService
	Reminder   *service.ReminderService
}
