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
)

// LinkService manages directed links between highlights.
type LinkService struct {
	store  store.Store
	logger *slog.Logger
}

// NewLinkService creates a new link service.
func NewLinkService(store store.Store, logger *slog.Logger) *LinkService {
	return &LinkService{store: store, logger: logger}
}

// Create links two highlights with a typed edge. Both must exist and belong
// to the caller; a highlight cannot link to itself. An empty type defaults
// to "related".
func (s *LinkService) Create(ctx context.Context, userID, fromID, toID string, linkType domain.LinkType) (*domain.Link, error) {
	if fromID == toID {
		return nil, domainerrors.Conflict("a highlight cannot link to itself")
	}
	if linkType == "" {
		linkType = domain.LinkRelated
	}
	if !linkType.Valid() {
		return nil, domainerrors.Validationf("unknown link type %q", linkType)
	}

	for _, hlID := range []string{fromID, toID} {
		if _, err := s.store.GetHighlight(ctx, userID, hlID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return nil, domainerrors.NotFoundf("highlight %s not found", hlID)
			}
			return nil, fmt.Errorf("lookup highlight: %w", err)
		}
	}

	linkID, err := id.Generate("link")
	if err != nil {
		return nil, fmt.Errorf("generate link ID: %w", err)
	}

	link := &domain.Link{
		ID:        linkID,
		UserID:    userID,
		FromID:    fromID,
		ToID:      toID,
		Type:      linkType,
		CreatedAt: time.Now(),
	}

	if err := s.store.CreateLink(ctx, link); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return nil, domainerrors.Conflict("these highlights are already linked with this type")
		}
		return nil, fmt.Errorf("create link: %w", err)
	}

	s.logger.Debug("link created",
		"link_id", linkID,
		"from_id", fromID,
		"to_id", toID,
		"type", linkType,
	)
	return link, nil
}

// Delete removes a link.
func (s *LinkService) Delete(ctx context.Context, userID, linkID string) error {
	err := s.store.DeleteLink(ctx, userID, linkID)
	if errors.Is(err, store.ErrNotFound) {
		return domainerrors.NotFound("link not found")
	}
	return err
}

// ListForHighlight returns links touching a highlight in either direction.
func (s *LinkService) ListForHighlight(ctx context.Context, userID, highlightID string) ([]*domain.Link, error) {
	if _, err := s.store.GetHighlight(ctx, userID, highlightID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domainerrors.NotFound("highlight not found")
		}
		return nil, fmt.Errorf("lookup highlight: %w", err)
	}
	return s.store.ListLinksForHighlight(ctx, userID, highlightID)
}
