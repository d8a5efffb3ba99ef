package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/phmapp/phm-server/internal/domain"
)

func (s *Server) registerTagRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listTags",
		Method:      http.MethodGet,
		Path:        "/api/v1/tags",
		Summary:     "List tags",
		Description: "Returns all tags for the current user with usage counts",
		Tags:        []string{"Tags"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleListTags)

	huma.Register(s.api, huma.Operation{
		OperationID: "renameTag",
		Method:      http.MethodPatch,
		Path:        "/api/v1/tags/{id}",
		Summary:     "Rename tag",
		Description: "Renames a tag. Fails with a conflict if another tag normalizes to the same name.",
		Tags:        []string{"Tags"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleRenameTag)

	huma.Register(s.api, huma.Operation{
		OperationID: "deleteTag",
		Method:      http.MethodDelete,
		Path:        "/api/v1/tags/{id}",
		Summary:     "Delete tag",
		Description: "Removes the tag from all highlights and deletes it",
		Tags:        []string{"Tags"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleDeleteTag)
}

// === DTOs ===

// TagResponse contains tag data in API responses.
type TagResponse struct {
	ID             string    `json:"id" doc:"Tag ID"`
	Name           string    `json:"name" doc:"Tag name as typed"`
	HighlightCount int       `json:"highlight_count" doc:"Active highlights carrying this tag"`
	CreatedAt      time.Time `json:"created_at" doc:"Creation time"`
	UpdatedAt      time.Time `json:"updated_at" doc:"Last update time"`
}

// ListTagsOutput wraps the tag list for Huma.
type ListTagsOutput struct {
	Body struct {
		Tags []TagResponse `json:"tags" doc:"User's tags"`
	}
}

// RenameTagInput wraps the tag rename request for Huma.
type RenameTagInput struct {
	Authorization string `header:"Authorization"`
	ID            string `path:"id" doc:"Tag ID"`
	Body          struct {
		Name string `json:"name" validate:"required,min=1,max=100" doc:"New tag name"`
	}
}

// TagOutput wraps a single tag response for Huma.
type TagOutput struct {
	Body TagResponse
}

func toTagResponse(t *domain.Tag) TagResponse {
	return TagResponse{
		ID:             t.ID,
		Name:           t.Name,
		HighlightCount: t.HighlightCount,
		CreatedAt:      t.CreatedAt,
		UpdatedAt:      t.UpdatedAt,
	}
}

// === Handlers ===

func (s *Server) handleListTags(ctx context.Context, input *authOnly) (*ListTagsOutput, error) {
	identity, err := s.authenticate(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	tags, err := s.services.Tag.List(ctx, identity.UserID)
	if err != nil {
		return nil, err
	}

	out := &ListTagsOutput{}
	out.Body.Tags = make([]TagResponse, len(tags))
	for i, t := range tags {
		out.Body.Tags[i] = toTagResponse(t)
	}
	return out, nil
}

func (s *Server) handleRenameTag(ctx context.Context, input *RenameTagInput) (*TagOutput, error) {
	identity, err := s.requireSession(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	tag, err := s.services.Tag.Rename(ctx, identity.UserID, input.ID, input.Body.Name)
	if err != nil {
		return nil, err
	}
	return &TagOutput{Body: toTagResponse(tag)}, nil
}

func (s *Server) handleDeleteTag(ctx context.Context, input *authWithID) (*MessageOutput, error) {
	identity, err := s.requireSession(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	if err := s.services.Tag.Delete(ctx, identity.UserID, input.ID); err != nil {
		return nil, err
	}
	return &MessageOutput{Body: MessageResponse{Message: "Tag deleted"}}, nil
}
