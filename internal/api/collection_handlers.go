package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/phmapp/phm-server/internal/domain"
	"github.com/phmapp/phm-server/internal/service"
)

func (s *Server) registerCollectionRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "createCollection",
		Method:      http.MethodPost,
		Path:        "/api/v1/collections",
		Summary:     "Create collection",
		Description: "Creates a curated collection of highlights",
		Tags:        []string{"Collections"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleCreateCollection)

	huma.Register(s.api, huma.Operation{
		OperationID: "listCollections",
		Method:      http.MethodGet,
		Path:        "/api/v1/collections",
		Summary:     "List collections",
		Description: "Returns the user's collections with item counts",
		Tags:        []string{"Collections"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleListCollections)

	huma.Register(s.api, huma.Operation{
		OperationID: "getCollection",
		Method:      http.MethodGet,
		Path:        "/api/v1/collections/{id}",
		Summary:     "Get collection",
		Description: "Returns a collection by ID",
		Tags:        []string{"Collections"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleGetCollection)

	huma.Register(s.api, huma.Operation{
		OperationID: "updateCollection",
		Method:      http.MethodPatch,
		Path:        "/api/v1/collections/{id}",
		Summary:     "Update collection",
		Description: "Updates collection name and description",
		Tags:        []string{"Collections"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleUpdateCollection)

	huma.Register(s.api, huma.Operation{
		OperationID: "deleteCollection",
		Method:      http.MethodDelete,
		Path:        "/api/v1/collections/{id}",
		Summary:     "Delete collection",
		Description: "Deletes the collection. Highlights are untouched.",
		Tags:        []string{"Collections"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleDeleteCollection)

	huma.Register(s.api, huma.Operation{
		OperationID: "addToCollection",
		Method:      http.MethodPost,
		Path:        "/api/v1/collections/{id}/highlights",
		Summary:     "Add highlight to collection",
		Description: "Adds a highlight at the given position, or appends when position is omitted",
		Tags:        []string{"Collections"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleAddToCollection)

	huma.Register(s.api, huma.Operation{
		OperationID: "removeFromCollection",
		Method:      http.MethodDelete,
		Path:        "/api/v1/collections/{id}/highlights/{highlightID}",
		Summary:     "Remove highlight from collection",
		Description: "Removes a highlight from the collection",
		Tags:        []string{"Collections"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleRemoveFromCollection)

	huma.Register(s.api, huma.Operation{
		OperationID: "listCollectionHighlights",
		Method:      http.MethodGet,
		Path:        "/api/v1/collections/{id}/highlights",
		Summary:     "List collection highlights",
		Description: "Returns the collection's highlights in curated order",
		Tags:        []string{"Collections"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleListCollectionHighlights)
}

// === DTOs ===

// CollectionResponse contains collection data in API responses.
type CollectionResponse struct {
	ID          string    `json:"id" doc:"Collection ID"`
	Name        string    `json:"name" doc:"Collection name"`
	Description string    `json:"description,omitempty" doc:"Collection description"`
	ItemCount   int       `json:"item_count" doc:"Number of highlights in the collection"`
	CreatedAt   time.Time `json:"created_at" doc:"Creation time"`
	UpdatedAt   time.Time `json:"updated_at" doc:"Last update time"`
}

// CollectionInput wraps a collection create/update request for Huma.
type CollectionInput struct {
	Authorization string `header:"Authorization"`
	Body          service.CollectionRequest
}

// CollectionWithIDInput wraps a collection update request for Huma.
type CollectionWithIDInput struct {
	Authorization string `header:"Authorization"`
	ID            string `path:"id" doc:"Collection ID"`
	Body          service.CollectionRequest
}

// CollectionOutput wraps a single collection response for Huma.
type CollectionOutput struct {
	Body CollectionResponse
}

// ListCollectionsOutput wraps the collection list for Huma.
type ListCollectionsOutput struct {
	Body struct {
		Collections []CollectionResponse `json:"collections" doc:"User's collections"`
	}
}

// AddToCollectionInput wraps the membership request for Huma.
type AddToCollectionInput struct {
	Authorization string `header:"Authorization"`
	ID            string `path:"id" doc:"Collection ID"`
	Body          struct {
		HighlightID string `json:"highlight_id" validate:"required" doc:"Highlight to add"`
		Position    int    `json:"position,omitempty" validate:"min=0" doc:"Sort position; 0 appends"`
	}
}

// CollectionMemberInput addresses one highlight within a collection.
type CollectionMemberInput struct {
	Authorization string `header:"Authorization"`
	ID            string `path:"id" doc:"Collection ID"`
	HighlightID   string `path:"highlightID" doc:"Highlight ID"`
}

func toCollectionResponse(c *domain.Collection) CollectionResponse {
	return CollectionResponse{
		ID:          c.ID,
		Name:        c.Name,
		Description: c.Description,
		ItemCount:   c.ItemCount,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
}

// === Handlers ===

func (s *Server) handleCreateCollection(ctx context.Context, input *CollectionInput) (*CollectionOutput, error) {
	identity, err := s.requireSession(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	collection, err := s.services.Collection.Create(ctx, identity.UserID, input.Body)
	if err != nil {
		return nil, err
	}
	return &CollectionOutput{Body: toCollectionResponse(collection)}, nil
}

func (s *Server) handleListCollections(ctx context.Context, input *authOnly) (*ListCollectionsOutput, error) {
	identity, err := s.authenticate(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	collections, err := s.services.Collection.List(ctx, identity.UserID)
	if err != nil {
		return nil, err
	}

	out := &ListCollectionsOutput{}
	out.Body.Collections = make([]CollectionResponse, len(collections))
	for i, c := range collections {
		out.Body.Collections[i] = toCollectionResponse(c)
	}
	return out, nil
}

func (s *Server) handleGetCollection(ctx context.Context, input *authWithID) (*CollectionOutput, error) {
	identity, err := s.authenticate(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	collection, err := s.services.Collection.Get(ctx, identity.UserID, input.ID)
	if err != nil {
		return nil, err
	}
	return &CollectionOutput{Body: toCollectionResponse(collection)}, nil
}

func (s *Server) handleUpdateCollection(ctx context.Context, input *CollectionWithIDInput) (*CollectionOutput, error) {
	identity, err := s.requireSession(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	collection, err := s.services.Collection.Update(ctx, identity.UserID, input.ID, input.Body)
	if err != nil {
		return nil, err
	}
	return &CollectionOutput{Body: toCollectionResponse(collection)}, nil
}

func (s *Server) handleDeleteCollection(ctx context.Context, input *authWithID) (*MessageOutput, error) {
	identity, err := s.requireSession(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	if err := s.services.Collection.Delete(ctx, identity.UserID, input.ID); err != nil {
		return nil, err
	}
	return &MessageOutput{Body: MessageResponse{Message: "Collection deleted"}}, nil
}

func (s *Server) handleAddToCollection(ctx context.Context, input *AddToCollectionInput) (*MessageOutput, error) {
	identity, err := s.requireSession(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	if err := s.services.Collection.AddHighlight(ctx, identity.UserID, input.ID, input.Body.HighlightID, input.Body.Position); err != nil {
		return nil, err
	}
	return &MessageOutput{Body: MessageResponse{Message: "Highlight added to collection"}}, nil
}

func (s *Server) handleRemoveFromCollection(ctx context.Context, input *CollectionMemberInput) (*MessageOutput, error) {
	identity, err := s.requireSession(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	if err := s.services.Collection.RemoveHighlight(ctx, identity.UserID, input.ID, input.HighlightID); err != nil {
		return nil, err
	}
	return &MessageOutput{Body: MessageResponse{Message: "Highlight removed from collection"}}, nil
}

func (s *Server) handleListCollectionHighlights(ctx context.Context, input *authWithID) (*ListHighlightsOutput, error) {
	identity, err := s.authenticate(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	highlights, err := s.services.Collection.Highlights(ctx, identity.UserID, input.ID)
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
