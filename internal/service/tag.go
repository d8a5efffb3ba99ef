package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/phmapp/phm-server/internal/domain"
	domainerrors "github.com/phmapp/phm-server/internal/errors"
	"github.com/phmapp/phm-server/internal/normalize"
	"github.com/phmapp/phm-server/internal/store"
)

// TagService manages user-scoped tags.
type TagService struct {
	store  store.Store
	logger *slog.Logger
}

// NewTagService creates a new tag service.
func NewTagService(store store.Store, logger *slog.Logger) *TagService {
	return &TagService{store: store, logger: logger}
}

// List returns all of a user's tags with usage counts.
func (s *TagService) List(ctx context.Context, userID string) ([]*domain.Tag, error) {
	return s.store.ListTags(ctx, userID)
}

// Get returns a single tag.
func (s *TagService) Get(ctx context.Context, userID, tagID string) (*domain.Tag, error) {
	tag, err := s.store.GetTag(ctx, userID, tagID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, domainerrors.NotFound("tag not found")
	}
	return tag, err
}

// Rename changes a tag's name. The new name must not collide with another
// tag after normalization.
func (s *TagService) Rename(ctx context.Context, userID, tagID, newName string) (*domain.Tag, error) {
	nameNorm := normalize.TagName(newName)
	if nameNorm == "" {
		return nil, domainerrors.Validation("tag name cannot be empty")
	}

	tag, err := s.Get(ctx, userID, tagID)
	if err != nil {
		return nil, err
	}

	tag.Name = newName
	tag.NameNorm = nameNorm
	tag.UpdatedAt = time.Now()

	if err := s.store.UpdateTag(ctx, tag); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return nil, domainerrors.Conflict("another tag already has this name")
		}
		return nil, fmt.Errorf("update tag: %w", err)
	}

	s.logger.Info("tag renamed",
		"tag_id", tagID,
		"user_id", userID,
		"name", newName,
	)
	return tag, nil
}

// Delete removes a tag from all highlights and deletes it.
func (s *TagService) Delete(ctx context.Context, userID, tagID string) error {
	err := s.store.DeleteTag(ctx, userID, tagID)
	if errors.Is(err, store.ErrNotFound) {
		return domainerrors.NotFound("tag not found")
	}
	return err
}
