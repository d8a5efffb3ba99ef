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
	"github.com/phmapp/phm-server/internal/normalize"
	"github.com/phmapp/phm-server/internal/store"
	"github.com/phmapp/phm-server/internal/validation"
)

// SourceService resolves captures to sources and manages source metadata.
//
// Resolution is find-or-create on a normalized identity key: the lower-cased
// www-stripped domain for web sources, the casefolded whitespace-collapsed
// title for books. Author is display metadata only and never part of identity.
type SourceService struct {
	store     store.Store
	validator *validation.Validator
	logger    *slog.Logger
}

// NewSourceService creates a new source service.
func NewSourceService(store store.Store, validator *validation.Validator, logger *slog.Logger) *SourceService {
	return &SourceService{
		store:     store,
		validator: validator,
		logger:    logger,
	}
}

// SourceInput describes where a capture came from. The source type is never
// supplied by the caller: a URL makes it a web source, otherwise the title
// makes it a book.
type SourceInput struct {
	URL    string `json:"url,omitempty" validate:"max=2000"`
	Title  string `json:"title,omitempty" validate:"max=500"`
	Author string `json:"author,omitempty" validate:"max=500"`
}

// SourceType derives the source type from which fields are present.
func (in SourceInput) SourceType() domain.SourceType {
	if in.URL != "" {
		return domain.SourceWeb
	}
	return domain.SourceBook
}

// UpdateSourceRequest contains editable source metadata.
type UpdateSourceRequest struct {
	Title  *string `json:"title,omitempty" validate:"omitempty,max=500"`
	Author *string `json:"author,omitempty" validate:"omitempty,max=500"`
}

// Resolve finds the source a capture belongs to, creating it on first sight.
// Returns (source, created, error). On a duplicate identity the first
// capture's title and author win; later captures never overwrite them.
func (s *SourceService) Resolve(ctx context.Context, userID string, input SourceInput) (*domain.Source, bool, error) {
	if err := s.validator.Validate(input); err != nil {
		return nil, false, err
	}

	sourceType := input.SourceType()
	identityKey, title, err := s.identity(sourceType, input)
	if err != nil {
		return nil, false, err
	}

	existing, err := s.store.GetSourceByIdentity(ctx, userID, sourceType, identityKey)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, false, fmt.Errorf("lookup source: %w", err)
	}

	sourceID, err := id.Generate("src")
	if err != nil {
		return nil, false, fmt.Errorf("generate source ID: %w", err)
	}

	now := time.Now()
	source := &domain.Source{
		ID:          sourceID,
		UserID:      userID,
		Type:        sourceType,
		IdentityKey: identityKey,
		Title:       title,
		Author:      input.Author,
		URL:         input.URL,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.store.CreateSource(ctx, source); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			// Race: another capture created it between our read and write.
			winner, err := s.store.GetSourceByIdentity(ctx, userID, sourceType, identityKey)
			if err != nil {
				return nil, false, fmt.Errorf("re-read source after race: %w", err)
			}
			return winner, false, nil
		}
		return nil, false, fmt.Errorf("create source: %w", err)
	}

	s.logger.Info("source created",
		"source_id", sourceID,
		"user_id", userID,
		"type", sourceType,
		"identity_key", identityKey,
	)

	return source, true, nil
}

// identity derives the identity key and display title for a capture.
func (s *SourceService) identity(sourceType domain.SourceType, input SourceInput) (identityKey, title string, err error) {
	switch sourceType {
	case domain.SourceWeb:
		domainKey := normalize.SourceDomain(input.URL)
		if domainKey == "" {
			return "", "", domainerrors.Validation("url has no usable domain")
		}
		title = input.Title
		if title == "" {
			title = domainKey
		}
		return domainKey, title, nil

	case domain.SourceBook:
		titleKey := normalize.SourceTitle(input.Title)
		if titleKey == "" {
			return "", "", domainerrors.Validation("source requires a url or a title")
		}
		return titleKey, input.Title, nil

	default:
		return "", "", domainerrors.Validationf("unknown source type %q", sourceType)
	}
}

// Get returns a single source.
func (s *SourceService) Get(ctx context.Context, userID, sourceID string) (*domain.Source, error) {
	source, err := s.store.GetSource(ctx, userID, sourceID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, domainerrors.NotFound("source not found")
	}
	return source, err
}

// List returns all of a user's sources with highlight counts.
func (s *SourceService) List(ctx context.Context, userID string) ([]*domain.Source, error) {
	return s.store.ListSources(ctx, userID)
}

// Update edits a source's display metadata. The identity key never changes.
func (s *SourceService) Update(ctx context.Context, userID, sourceID string, req UpdateSourceRequest) (*domain.Source, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	source, err := s.Get(ctx, userID, sourceID)
	if err != nil {
		return nil, err
	}

	if req.Title != nil {
		if *req.Title == "" {
			return nil, domainerrors.Validation("title cannot be empty")
		}
		source.Title = *req.Title
	}
	if req.Author != nil {
		source.Author = *req.Author
	}
	source.Touch()

	if err := s.store.UpdateSource(ctx, source); err != nil {
		return nil, fmt.Errorf("update source: %w", err)
	}
	return source, nil
}

// DeleteOrphaned removes sources with no remaining highlights.
func (s *SourceService) DeleteOrphaned(ctx context.Context, userID string) (int, error) {
	n, err := s.store.DeleteOrphanedSources(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("delete orphaned sources: %w", err)
	}
	if n > 0 {
		s.logger.Info("orphaned sources removed",
			"user_id", userID,
			"count", n,
		)
	}
	return n, nil
}
