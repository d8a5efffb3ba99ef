package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/phmapp/phm-server/internal/domain"
	"github.com/phmapp/phm-server/internal/service"
	"github.com/phmapp/phm-server/internal/store"
)

func (s *Server) registerHighlightRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "ingestHighlight",
		Method:      http.MethodPost,
		Path:        "/api/v1/highlights",
		Summary:     "Ingest highlight",
		Description: "Captures a highlight, resolving its source and tags. Accepts device keys and session tokens.",
		Tags:        []string{"Highlights"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleIngestHighlight)

	huma.Register(s.api, huma.Operation{
		OperationID: "listHighlights",
		Method:      http.MethodGet,
		Path:        "/api/v1/highlights",
		Summary:     "List highlights",
		Description: "Returns highlights, newest first, with optional filters",
		Tags:        []string{"Highlights"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleListHighlights)

	huma.Register(s.api, huma.Operation{
		OperationID: "getHighlight",
		Method:      http.MethodGet,
		Path:        "/api/v1/highlights/{id}",
		Summary:     "Get highlight",
		Description: "Returns a highlight by ID",
		Tags:        []string{"Highlights"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleGetHighlight)

	huma.Register(s.api, huma.Operation{
		OperationID: "updateHighlight",
		Method:      http.MethodPatch,
		Path:        "/api/v1/highlights/{id}",
		Summary:     "Update highlight",
		Description: "Updates text, note, favorite, or color",
		Tags:        []string{"Highlights"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleUpdateHighlight)

	huma.Register(s.api, huma.Operation{
		OperationID: "setHighlightFavorite",
		Method:      http.MethodPut,
		Path:        "/api/v1/highlights/{id}/favorite",
		Summary:     "Set favorite flag",
		Description: "Sets or clears the favorite flag",
		Tags:        []string{"Highlights"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleSetHighlightFavorite)

	huma.Register(s.api, huma.Operation{
		OperationID: "archiveHighlight",
		Method:      http.MethodDelete,
		Path:        "/api/v1/highlights/{id}",
		Summary:     "Archive highlight",
		Description: "Archives the highlight. Archived highlights leave listings and resurfacing but are never hard-deleted.",
		Tags:        []string{"Highlights"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleArchiveHighlight)

	huma.Register(s.api, huma.Operation{
		OperationID: "unarchiveHighlight",
		Method:      http.MethodPost,
		Path:        "/api/v1/highlights/{id}/unarchive",
		Summary:     "Unarchive highlight",
		Description: "Restores an archived highlight",
		Tags:        []string{"Highlights"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleUnarchiveHighlight)

	huma.Register(s.api, huma.Operation{
		OperationID: "setHighlightTags",
		Method:      http.MethodPut,
		Path:        "/api/v1/highlights/{id}/tags",
		Summary:     "Set highlight tags",
		Description: "Replaces the highlight's tags with the given names, creating tags as needed",
		Tags:        []string{"Highlights"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleSetHighlightTags)

	huma.Register(s.api, huma.Operation{
		OperationID: "reviewHighlight",
		Method:      http.MethodPost,
		Path:        "/api/v1/highlights/{id}/review",
		Summary:     "Mark highlight reviewed",
		Description: "Records a review: sets last_reviewed_at to now and increments review_count",
		Tags:        []string{"Highlights"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleReviewHighlight)

	huma.Register(s.api, huma.Operation{
		OperationID: "listHighlightLinks",
		Method:      http.MethodGet,
		Path:        "/api/v1/highlights/{id}/links",
		Summary:     "List highlight links",
		Description: "Returns links touching this highlight, both directions",
		Tags:        []string{"Links"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleListHighlightLinks)
}

// === DTOs ===

// TagSummary is a tag as embedded in highlight responses.
type TagSummary struct {
	ID   string `json:"id" doc:"Tag ID"`
	Name string `json:"name" doc:"Tag name"`
}

// HighlightResponse contains highlight data in API responses.
type HighlightResponse struct {
	ID             string           `json:"id" doc:"Highlight ID"`
	SourceID       string           `json:"source_id,omitempty" doc:"Owning source, absent for sourceless captures"`
	DeviceID       string           `json:"device_id,omitempty" doc:"Capture device, empty for UI captures"`
	Text           string           `json:"text" doc:"Highlighted passage"`
	Note           string           `json:"note,omitempty" doc:"User note"`
	Favorite       bool             `json:"favorite" doc:"Favorite flag"`
	Archived       bool             `json:"archived" doc:"Archive flag"`
	Color          string           `json:"color,omitempty" doc:"Display color"`
	Page           int              `json:"page,omitempty" doc:"Page number, book captures"`
	Chapter        string           `json:"chapter,omitempty" doc:"Chapter, book captures"`
	URL            string           `json:"url,omitempty" doc:"Article URL, web captures"`
	Title          string           `json:"title,omitempty" doc:"Article title, web captures"`
	Author         string           `json:"author,omitempty" doc:"Article author, web captures"`
	Tags           []TagSummary     `json:"tags" doc:"Attached tags"`
	CreatedAt      time.Time        `json:"created_at" doc:"Capture time"`
	UpdatedAt      time.Time        `json:"updated_at" doc:"Last modification time"`
	LastReviewedAt *time.Time       `json:"last_reviewed_at,omitempty" doc:"Last review time"`
	ReviewCount    int              `json:"review_count" doc:"Number of recorded reviews"`
}

// IngestInput wraps the capture request for Huma.
type IngestInput struct {
	Authorization string `header:"Authorization"`
	Body          service.IngestRequest
}

// IngestOutput wraps the ingest response for Huma.
type IngestOutput struct {
	Body struct {
		Highlight HighlightResponse `json:"highlight" doc:"Stored highlight"`
		Created   bool              `json:"created" doc:"Whether a new highlight was created"`
	}
}

// ListHighlightsInput contains query filters for listing highlights.
type ListHighlightsInput struct {
	Authorization string `header:"Authorization"`
	SourceID      string `query:"source_id" doc:"Filter by source"`
	TagID         string `query:"tag_id" doc:"Filter by tag"`
	DeviceID      string `query:"device_id" doc:"Filter by capture device"`
	Favorite      string `query:"favorite" enum:"true,false" doc:"Filter by favorite flag"`
	Status        string `query:"status" enum:"active,archived,all" doc:"Archive status filter, default active"`
	Query         string `query:"q" doc:"Substring search in text and note"`
	Limit         int    `query:"limit" minimum:"1" maximum:"500" doc:"Page size, default 100"`
	Offset        int    `query:"offset" minimum:"0" doc:"Pagination offset"`
}

// ListHighlightsOutput wraps the highlight list for Huma.
type ListHighlightsOutput struct {
	Body struct {
		Highlights []HighlightResponse `json:"highlights" doc:"Matching highlights"`
	}
}

// HighlightOutput wraps a single highlight response for Huma.
type HighlightOutput struct {
	Body HighlightResponse
}

// UpdateHighlightInput wraps the highlight update request for Huma.
type UpdateHighlightInput struct {
	Authorization string `header:"Authorization"`
	ID            string `path:"id" doc:"Highlight ID"`
	Body          service.UpdateHighlightRequest
}

// SetFavoriteInput wraps the favorite toggle request for Huma.
type SetFavoriteInput struct {
	Authorization string `header:"Authorization"`
	ID            string `path:"id" doc:"Highlight ID"`
	Body          struct {
		Favorite bool `json:"favorite" doc:"New favorite state"`
	}
}

// SetTagsInput wraps the tag replacement request for Huma.
type SetTagsInput struct {
	Authorization string `header:"Authorization"`
	ID            string `path:"id" doc:"Highlight ID"`
	Body          struct {
		Tags []string `json:"tags" validate:"max=20,dive,max=100" doc:"Tag names; replaces the current set"`
	}
}

func toHighlightResponse(h *domain.Highlight) HighlightResponse {
	tags := make([]TagSummary, len(h.Tags))
	for i, t := range h.Tags {
		tags[i] = TagSummary{ID: t.ID, Name: t.Name}
	}
	return HighlightResponse{
		ID:             h.ID,
		SourceID:       h.SourceID,
		DeviceID:       h.DeviceID,
		Text:           h.Text,
		Note:           h.Note,
		Favorite:       h.Favorite,
		Archived:       h.Archived,
		Color:          h.Color,
		Page:           h.Location.Page,
		Chapter:        h.Location.Chapter,
		URL:            h.URL,
		Title:          h.Title,
		Author:         h.Author,
		Tags:           tags,
		CreatedAt:      h.CreatedAt,
		UpdatedAt:      h.UpdatedAt,
		LastReviewedAt: h.LastReviewedAt,
		ReviewCount:    h.ReviewCount,
	}
}

// === Handlers ===

func (s *Server) handleIngestHighlight(ctx context.Context, input *IngestInput) (*IngestOutput, error) {
	identity, err := s.authenticate(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	resp, err := s.services.Highlight.Ingest(ctx, *identity, input.Body)
	if err != nil {
		return nil, err
	}

	out := &IngestOutput{}
	out.Body.Highlight = toHighlightResponse(resp.Highlight)
	out.Body.Created = resp.Created
	return out, nil
}

func (s *Server) handleListHighlights(ctx context.Context, input *ListHighlightsInput) (*ListHighlightsOutput, error) {
	identity, err := s.authenticate(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	// Absent means no filter, so an optional bool arrives as a string enum.
	var favorite *bool
	if input.Favorite != "" {
		v := input.Favorite == "true"
		favorite = &v
	}

	highlights, err := s.services.Highlight.List(ctx, identity.UserID, store.HighlightFilter{
		SourceID: input.SourceID,
		TagID:    input.TagID,
		DeviceID: input.DeviceID,
		Favorite: favorite,
		Status:   input.Status,
		Query:    input.Query,
		Limit:    input.Limit,
		Offset:   input.Offset,
	})
	if err != nil {
		return nil, err
	}

	out := &ListHighlightsOutput{}
	out.Body.Highlights = make([]HighlightResponse, len(highlights))
	for i, h := range highlights {
		out.Body.Highlights[i] = toHighlightResponse(h)
	}
	return out, nil
}

func (s *Server) handleGetHighlight(ctx context.Context, input *authWithID) (*HighlightOutput, error) {
	identity, err := s.authenticate(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	h, err := s.services.Highlight.Get(ctx, identity.UserID, input.ID)
	if err != nil {
		return nil, err
	}
	return &HighlightOutput{Body: toHighlightResponse(h)}, nil
}

func (s *Server) handleUpdateHighlight(ctx context.Context, input *UpdateHighlightInput) (*HighlightOutput, error) {
	identity, err := s.requireSession(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	h, err := s.services.Highlight.Update(ctx, identity.UserID, input.ID, input.Body)
	if err != nil {
		return nil, err
	}
	return &HighlightOutput{Body: toHighlightResponse(h)}, nil
}

func (s *Server) handleSetHighlightFavorite(ctx context.Context, input *SetFavoriteInput) (*HighlightOutput, error) {
	identity, err := s.requireSession(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	h, err := s.services.Highlight.Update(ctx, identity.UserID, input.ID, service.UpdateHighlightRequest{
		Favorite: &input.Body.Favorite,
	})
	if err != nil {
		return nil, err
	}
	return &HighlightOutput{Body: toHighlightResponse(h)}, nil
}

func (s *Server) handleArchiveHighlight(ctx context.Context, input *authWithID) (*MessageOutput, error) {
	identity, err := s.requireSession(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	if err := s.services.Highlight.Archive(ctx, identity.UserID, input.ID); err != nil {
		return nil, err
	}
	return &MessageOutput{Body: MessageResponse{Message: "Highlight archived"}}, nil
}

func (s *Server) handleUnarchiveHighlight(ctx context.Context, input *authWithID) (*MessageOutput, error) {
	identity, err := s.requireSession(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	if err := s.services.Highlight.Unarchive(ctx, identity.UserID, input.ID); err != nil {
		return nil, err
	}
	return &MessageOutput{Body: MessageResponse{Message: "Highlight restored"}}, nil
}

func (s *Server) handleSetHighlightTags(ctx context.Context, input *SetTagsInput) (*HighlightOutput, error) {
	identity, err := s.requireSession(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	h, err := s.services.Highlight.SetTags(ctx, identity.UserID, input.ID, input.Body.Tags)
	if err != nil {
		return nil, err
	}
	return &HighlightOutput{Body: toHighlightResponse(h)}, nil
}

func (s *Server) handleReviewHighlight(ctx context.Context, input *authWithID) (*HighlightOutput, error) {
	identity, err := s.requireSession(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	h, err := s.services.Highlight.Review(ctx, identity.UserID, input.ID)
	if err != nil {
		return nil, err
	}
	return &HighlightOutput{Body: toHighlightResponse(h)}, nil
}

func (s *Server) handleListHighlightLinks(ctx context.Context, input *authWithID) (*ListLinksOutput, error) {
	identity, err := s.authenticate(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	links, err := s.services.Link.ListForHighlight(ctx, identity.UserID, input.ID)
	if err != nil {
		return nil, err
	}

	out := &ListLinksOutput{}
	out.Body.Links = make([]LinkResponse, len(links))
	for i, l := range links {
		out.Body.Links[i] = toLinkResponse(l)
	}
	return out, nil
}
