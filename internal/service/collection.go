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

// CollectionService manages curated, ordered sets of highlights.
type CollectionService struct {
	store     store.Store
	validator *validation.Validator
	logger    *slog.Logger
}

// NewCollectionService creates a new collection service.
func NewCollectionService(store store.Store, validator *validation.Validator, logger *slog.Logger) *CollectionService {
	return &CollectionService{
		store:     store,
		validator: validator,
		logger:    logger,
	}
}

// CollectionRequest contains collection create/update data.
type CollectionRequest struct {
	Name        string `json:"name" validate:"required,max=200"`
	Description string `json:"description,omitempty" validate:"max=2000"`
}

// Create makes a new empty collection.
func (s *CollectionService) Create(ctx context.Context, userID string, req CollectionRequest) (*domain.Collection, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	collectionID, err := id.Generate("col")
	if err != nil {
		return nil, fmt.Errorf("generate collection ID: %w", err)
	}

	now := time.Now()
	collection := &domain.Collection{
		ID:          collectionID,
		UserID:      userID,
		Name:        req.Name,
		Description: req.Description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.store.CreateCollection(ctx, collection); err != nil {
		return nil, fmt.Errorf("create collection: %w", err)
	}

	s.logger.Info("collection created",
		"collection_id", collectionID,
		"user_id", userID,
		"name", req.Name,
	)
	return collection, nil
}

// Get returns a single collection.
func (s *CollectionService) Get(ctx context.Context, userID, collectionID string) (*domain.Collection, error) {
	collection, err := s.store.GetCollection(ctx, userID, collectionID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, domainerrors.NotFound("collection not found")
	}
	return collection, err
}

// List returns all of a user's collections with item counts.
func (s *CollectionService) List(ctx context.Context, userID string) ([]*domain.Collection, error) {
	return s.store.ListCollections(ctx, userID)
}

// Update edits a collection's name and description.
func (s *CollectionService) Update(ctx context.Context, userID, collectionID string, req CollectionRequest) (*domain.Collection, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	collection, err := s.Get(ctx, userID, collectionID)
	if err != nil {
		return nil, err
	}

	collection.Name = req.Name
	collection.Description = req.Description
	collection.Touch()

	if err := s.store.UpdateCollection(ctx, collection); err != nil {
		return nil, fmt.Errorf("update collection: %w", err)
	}
	return collection, nil
}

// Delete removes a collection. Its highlights survive.
func (s *CollectionService) Delete(ctx context.Context, userID, collectionID string) error {
	err := s.store.DeleteCollection(ctx, userID, collectionID)
	if errors.Is(err, store.ErrNotFound) {
		return domainerrors.NotFound("collection not found")
	}
	return err
}

// AddHighlight appends a highlight to a collection. Position defaults to the
// end; adding an existing member is a no-op.
func (s *CollectionService) AddHighlight(ctx context.Context, userID, collectionID, highlightID string, position int) error {
	if _, err := s.Get(ctx, userID, collectionID); err != nil {
		return err
	}
	if _, err := s.store.GetHighlight(ctx, userID, highlightID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domainerrors.NotFound("highlight not found")
		}
		return fmt.Errorf("lookup highlight: %w", err)
	}

	if position <= 0 {
		existing, err := s.store.ListCollectionHighlights(ctx, userID, collectionID)
		if err != nil {
			return fmt.Errorf("list collection highlights: %w", err)
		}
		position = (len(existing) + 1) * 10
	}

	err := s.store.AddToCollection(ctx, collectionID, highlightID, position)
	if errors.Is(err, store.ErrAlreadyExists) {
		return nil
	}
	return err
}

// RemoveHighlight takes a highlight out of a collection.
func (s *CollectionService) RemoveHighlight(ctx context.Context, userID, collectionID, highlightID string) error {
	if _, err := s.Get(ctx, userID, collectionID); err != nil {
		return err
	}
	err := s.store.RemoveFromCollection(ctx, collectionID, highlightID)
	if errors.Is(err, store.ErrNotFound) {
		return domainerrors.NotFound("highlight is not in this collection")
	}
	return err
}

// Highlights returns a collection's highlights in position order.
func (s *CollectionService) Highlights(ctx context.Context, userID, collectionID string) ([]*domain.Highlight, error) {
	if _, err := s.Get(ctx, userID, collectionID); err != nil {
		return nil, err
	}
	return s.store.ListCollectionHighlights(ctx, userID, collectionID)
}
