package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/phmapp/phm-server/internal/domain"
	"github.com/phmapp/phm-server/internal/service"
)

func (s *Server) registerSourceRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listSources",
		Method:      http.MethodGet,
		Path:        "/api/v1/sources",
		Summary:     "List sources",
		Description: "Returns all of the user's sources with active highlight counts",
		Tags:        []string{"Sources"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleListSources)

	huma.Register(s.api, huma.Operation{
		OperationID: "getSource",
		Method:      http.MethodGet,
		Path:        "/api/v1/sources/{id}",
		Summary:     "Get source",
		Description: "Returns a source by ID",
		Tags:        []string{"Sources"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleGetSource)

	huma.Register(s.api, huma.Operation{
		OperationID: "updateSource",
		Method:      http.MethodPatch,
		Path:        "/api/v1/sources/{id}",
		Summary:     "Update source",
		Description: "Updates display metadata. The identity key never changes.",
		Tags:        []string{"Sources"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleUpdateSource)
}

// === DTOs ===

// SourceResponse contains source data in API responses.
type SourceResponse struct {
	ID             string    `json:"id" doc:"Source ID"`
	Type           string    `json:"type" doc:"Source type: web or book"`
	IdentityKey    string    `json:"identity_key" doc:"Normalized dedupe key: domain or title"`
	Title          string    `json:"title" doc:"Display title"`
	Author         string    `json:"author,omitempty" doc:"Author, book sources"`
	URL            string    `json:"url,omitempty" doc:"First URL seen, web sources"`
	HighlightCount int       `json:"highlight_count" doc:"Active highlights from this source"`
	CreatedAt      time.Time `json:"created_at" doc:"First capture time"`
	UpdatedAt      time.Time `json:"updated_at" doc:"Last update time"`
}

// ListSourcesOutput wraps the source list for Huma.
type ListSourcesOutput struct {
	Body struct {
		Sources []SourceResponse `json:"sources" doc:"User's sources"`
	}
}

// SourceOutput wraps a single source response for Huma.
type SourceOutput struct {
	Body SourceResponse
}

// UpdateSourceInput wraps the source update request for Huma.
type UpdateSourceInput struct {
	Authorization string `header:"Authorization"`
	ID            string `path:"id" doc:"Source ID"`
	Body          service.UpdateSourceRequest
}

func toSourceResponse(src *domain.Source) SourceResponse {
	return SourceResponse{
		ID:             src.ID,
		Type:           string(src.Type),
		IdentityKey:    src.IdentityKey,
		Title:          src.Title,
		Author:         src.Author,
		URL:            src.URL,
		HighlightCount: src.HighlightCount,
		CreatedAt:      src.CreatedAt,
		UpdatedAt:      src.UpdatedAt,
	}
}

// === Handlers ===

func (s *Server) handleListSources(ctx context.Context, input *authOnly) (*ListSourcesOutput, error) {
	identity, err := s.authenticate(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	sources, err := s.services.Source.List(ctx, identity.UserID)
	if err != nil {
		return nil, err
	}

	out := &ListSourcesOutput{}
	out.Body.Sources = make([]SourceResponse, len(sources))
	for i, src := range sources {
		out.Body.Sources[i] = toSourceResponse(src)
	}
	return out, nil
}

func (s *Server) handleGetSource(ctx context.Context, input *authWithID) (*SourceOutput, error) {
	identity, err := s.authenticate(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	src, err := s.services.Source.Get(ctx, identity.UserID, input.ID)
	if err != nil {
		return nil, err
	}
	return &SourceOutput{Body: toSourceResponse(src)}, nil
}

func (s *Server) handleUpdateSource(ctx context.Context, input *UpdateSourceInput) (*SourceOutput, error) {
	identity, err := s.requireSession(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	src, err := s.services.Source.Update(ctx, identity.UserID, input.ID, input.Body)
	if err != nil {
		return nil, err
	}
	return &SourceOutput{Body: toSourceResponse(src)}, nil
}
