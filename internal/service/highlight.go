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

// HighlightService ingests captures and manages highlights.
type HighlightService struct {
	store     store.Store
	sources   *SourceService
	validator *validation.Validator
	logger    *slog.Logger
}

// NewHighlightService creates a new highlight service.
func NewHighlightService(store store.Store, sources *SourceService, validator *validation.Validator, logger *slog.Logger) *HighlightService {
	return &HighlightService{
		store:     store,
		sources:   sources,
		validator: validator,
		logger:    logger,
	}
}

// IngestRequest is a capture submission from a device or the UI. The source
// fields are optional: a URL makes the capture a web highlight, a bare title
// makes it a book highlight, and with neither the highlight stays sourceless.
type IngestRequest struct {
	SourceURL    string   `json:"source_url,omitempty" validate:"max=2000"`
	SourceTitle  string   `json:"source_title,omitempty" validate:"max=500"`
	SourceAuthor string   `json:"source_author,omitempty" validate:"max=500"`
	Text         string   `json:"text" validate:"required"`
	Note         string   `json:"note,omitempty" validate:"max=10000"`
	Color        string   `json:"color,omitempty" validate:"max=20"`
	Tags         []string `json:"tags,omitempty" validate:"max=20,dive,max=100"`
	Page         int      `json:"page,omitempty" validate:"min=0"`
	Chapter      string   `json:"chapter,omitempty" validate:"max=200"`

	// Dedupe enables import-fingerprint deduplication. Repeated imports of
	// the same passage from the same source are rejected as conflicts.
	Dedupe bool `json:"dedupe,omitempty"`
}

// IngestResponse reports the stored highlight and whether it was new.
type IngestResponse struct {
	Highlight *domain.Highlight `json:"highlight"`
	Created   bool              `json:"created"`
}

// UpdateHighlightRequest contains editable highlight fields.
type UpdateHighlightRequest struct {
	Text     *string `json:"text,omitempty"`
	Note     *string `json:"note,omitempty" validate:"omitempty,max=10000"`
	Favorite *bool   `json:"favorite,omitempty"`
	Color    *string `json:"color,omitempty" validate:"omitempty,max=20"`
}

// Ingest stores a capture: resolves the source, finds or creates tags, and
// persists the highlight with its tag rows in one transaction.
func (s *HighlightService) Ingest(ctx context.Context, identity domain.Identity, req IngestRequest) (*IngestResponse, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	text := normalize.HighlightText(req.Text)
	if text == "" {
		return nil, domainerrors.Validation("text is required")
	}

	// Sourceless captures are allowed: without a URL or title the highlight
	// simply has no source row attached.
	var sourceID string
	var source *domain.Source
	if req.SourceURL != "" || req.SourceTitle != "" {
		resolved, _, err := s.sources.Resolve(ctx, identity.UserID, SourceInput{
			URL:    req.SourceURL,
			Title:  req.SourceTitle,
			Author: req.SourceAuthor,
		})
		if err != nil {
			return nil, err
		}
		source = resolved
		sourceID = resolved.ID
	}

	var fingerprint string
	if req.Dedupe {
		fingerprint = normalize.Fingerprint(sourceID, text)
		_, err := s.store.GetHighlightByFingerprint(ctx, identity.UserID, fingerprint)
		if err == nil {
			return nil, domainerrors.Conflict("highlight already imported from this source")
		}
		if !errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("lookup fingerprint: %w", err)
		}
	}

	tagIDs := make([]string, 0, len(req.Tags))
	seen := make(map[string]bool, len(req.Tags))
	for _, name := range req.Tags {
		tag, _, err := s.store.FindOrCreateTag(ctx, identity.UserID, name)
		if err != nil {
			return nil, fmt.Errorf("find or create tag %q: %w", name, err)
		}
		if seen[tag.ID] {
			continue
		}
		seen[tag.ID] = true
		tagIDs = append(tagIDs, tag.ID)
	}

	highlightID, err := id.Generate("hl")
	if err != nil {
		return nil, fmt.Errorf("generate highlight ID: %w", err)
	}

	now := time.Now()
	highlight := &domain.Highlight{
		ID:          highlightID,
		UserID:      identity.UserID,
		SourceID:    sourceID,
		DeviceID:    identity.DeviceID,
		Text:        text,
		Note:        req.Note,
		Color:       req.Color,
		Location:    domain.Location{Page: req.Page, Chapter: req.Chapter},
		Fingerprint: fingerprint,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if source != nil && source.Type == domain.SourceWeb {
		// The source row carries only the domain; the specific article
		// lives on the highlight.
		highlight.URL = req.SourceURL
		highlight.Title = req.SourceTitle
		highlight.Author = req.SourceAuthor
	}

	if err := s.store.CreateHighlightWithTags(ctx, highlight, tagIDs); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			// Fingerprint race: a concurrent import won.
			return nil, domainerrors.Conflict("highlight already imported from this source")
		}
		return nil, fmt.Errorf("create highlight: %w", err)
	}

	stored, err := s.store.GetHighlight(ctx, identity.UserID, highlightID)
	if err != nil {
		return nil, fmt.Errorf("read back highlight: %w", err)
	}

	s.logger.Info("highlight ingested",
		"highlight_id", highlightID,
		"user_id", identity.UserID,
		"source_id", sourceID,
		"device_id", identity.DeviceID,
		"tags", len(tagIDs),
	)

	return &IngestResponse{Highlight: stored, Created: true}, nil
}

// Get returns one highlight with tags.
func (s *HighlightService) Get(ctx context.Context, userID, highlightID string) (*domain.Highlight, error) {
	h, err := s.store.GetHighlight(ctx, userID, highlightID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, domainerrors.NotFound("highlight not found")
	}
	return h, err
}

// List returns highlights matching the filter.
func (s *HighlightService) List(ctx context.Context, userID string, filter store.HighlightFilter) ([]*domain.Highlight, error) {
	return s.store.ListHighlights(ctx, userID, filter)
}

// Update edits a highlight. Management-only; device keys cannot edit.
func (s *HighlightService) Update(ctx context.Context, userID, highlightID string, req UpdateHighlightRequest) (*domain.Highlight, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	h, err := s.Get(ctx, userID, highlightID)
	if err != nil {
		return nil, err
	}

	if req.Text != nil {
		text := normalize.HighlightText(*req.Text)
		if text == "" {
			return nil, domainerrors.Validation("text cannot be empty")
		}
		h.Text = text
	}
	if req.Note != nil {
		h.Note = *req.Note
	}
	if req.Favorite != nil {
		h.Favorite = *req.Favorite
	}
	if req.Color != nil {
		h.Color = *req.Color
	}
	h.Touch()

	if err := s.store.UpdateHighlight(ctx, h); err != nil {
		return nil, fmt.Errorf("update highlight: %w", err)
	}
	return h, nil
}

// SetTags replaces a highlight's tags with the given names, creating tags
// that don't exist yet.
func (s *HighlightService) SetTags(ctx context.Context, userID, highlightID string, names []string) (*domain.Highlight, error) {
	if _, err := s.Get(ctx, userID, highlightID); err != nil {
		return nil, err
	}

	tagIDs := make([]string, 0, len(names))
	seen := make(map[string]bool, len(names))
	for _, name := range names {
		tag, _, err := s.store.FindOrCreateTag(ctx, userID, name)
		if err != nil {
			return nil, fmt.Errorf("find or create tag %q: %w", name, err)
		}
		if seen[tag.ID] {
			continue
		}
		seen[tag.ID] = true
		tagIDs = append(tagIDs, tag.ID)
	}

	if err := s.store.SetHighlightTags(ctx, highlightID, tagIDs); err != nil {
		return nil, fmt.Errorf("set highlight tags: %w", err)
	}

	return s.Get(ctx, userID, highlightID)
}

// Review records that the user revisited a highlight. Reviews reset the
// staleness clock used by resurfacing.
func (s *HighlightService) Review(ctx context.Context, userID, highlightID string) (*domain.Highlight, error) {
	h, err := s.Get(ctx, userID, highlightID)
	if err != nil {
		return nil, err
	}

	h.MarkReviewed()
	if err := s.store.UpdateHighlight(ctx, h); err != nil {
		return nil, fmt.Errorf("update highlight: %w", err)
	}

	s.logger.Debug("highlight reviewed",
		"highlight_id", highlightID,
		"review_count", h.ReviewCount,
	)
	return h, nil
}

// Archive soft-deletes a highlight. It drops out of listings and
// resurfacing, and its pending reminders are removed.
func (s *HighlightService) Archive(ctx context.Context, userID, highlightID string) error {
	err := s.store.ArchiveHighlight(ctx, userID, highlightID)
	if errors.Is(err, store.ErrNotFound) {
		return domainerrors.NotFound("highlight not found")
	}
	if err == nil {
		s.logger.Info("highlight archived",
			"highlight_id", highlightID,
			"user_id", userID,
		)
	}
	return err
}

// Unarchive restores an archived highlight.
func (s *HighlightService) Unarchive(ctx context.Context, userID, highlightID string) error {
	err := s.store.UnarchiveHighlight(ctx, userID, highlightID)
	if errors.Is(err, store.ErrNotFound) {
		return domainerrors.NotFound("highlight not found")
	}
	return err
}
