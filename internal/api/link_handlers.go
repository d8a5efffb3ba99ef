package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/phmapp/phm-server/internal/domain"
)

func (s *Server) registerLinkRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "createLink",
		Method:      http.MethodPost,
		Path:        "/api/v1/highlights/{id}/links",
		Summary:     "Create link",
		Description: "Creates a directed typed link from this highlight to another",
		Tags:        []string{"Links"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleCreateLink)

	huma.Register(s.api, huma.Operation{
		OperationID: "deleteLink",
		Method:      http.MethodDelete,
		Path:        "/api/v1/links/{id}",
		Summary:     "Delete link",
		Description: "Removes a link between highlights",
		Tags:        []string{"Links"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleDeleteLink)
}

// === DTOs ===

// LinkResponse contains link data in API responses.
type LinkResponse struct {
	ID        string    `json:"id" doc:"Link ID"`
	FromID    string    `json:"from_id" doc:"Source highlight"`
	ToID      string    `json:"to_id" doc:"Target highlight"`
	Type      string    `json:"type" doc:"Link type: related, supports, contradicts, example, or expands"`
	CreatedAt time.Time `json:"created_at" doc:"Creation time"`
}

// CreateLinkInput wraps the link creation request for Huma.
type CreateLinkInput struct {
	Authorization string `header:"Authorization"`
	ID            string `path:"id" doc:"Source highlight ID"`
	Body          struct {
		ToID string `json:"to_id" validate:"required" doc:"Target highlight ID"`
		Type string `json:"type,omitempty" enum:"related,supports,contradicts,example,expands" doc:"Link type, default related"`
	}
}

// LinkOutput wraps a single link response for Huma.
type LinkOutput struct {
	Body LinkResponse
}

// ListLinksOutput wraps a link list for Huma.
type ListLinksOutput struct {
	Body struct {
		Links []LinkResponse `json:"links" doc:"Links touching the highlight"`
	}
}

func toLinkResponse(l *domain.Link) LinkResponse {
	return LinkResponse{
		ID:        l.ID,
		FromID:    l.FromID,
		ToID:      l.ToID,
		Type:      string(l.Type),
		CreatedAt: l.CreatedAt,
	}
}

// === Handlers ===

func (s *Server) handleCreateLink(ctx context.Context, input *CreateLinkInput) (*LinkOutput, error) {
	identity, err := s.requireSession(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	link, err := s.services.Link.Create(ctx, identity.UserID, input.ID, input.Body.ToID, domain.LinkType(input.Body.Type))
	if err != nil {
		return nil, err
	}
	return &LinkOutput{Body: toLinkResponse(link)}, nil
}

func (s *Server) handleDeleteLink(ctx context.Context, input *authWithID) (*MessageOutput, error) {
	identity, err := s.requireSession(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	if err := s.services.Link.Delete(ctx, identity.UserID, input.ID); err != nil {
		return nil, err
	}
	return &MessageOutput{Body: MessageResponse{Message: "Link deleted"}}, nil
}
