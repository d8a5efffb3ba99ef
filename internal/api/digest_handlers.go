package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/phmapp/phm-server/internal/domain"
	"github.com/phmapp/phm-server/internal/service"
)

func (s *Server) registerDigestRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "getDailyDigest",
		Method:      http.MethodGet,
		Path:        "/api/v1/digest/daily",
		Summary:     "Get daily digest",
		Description: "Returns today's resurfacing selection, best-scored first",
		Tags:        []string{"Digest"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleDailyDigest)

	huma.Register(s.api, huma.Operation{
		OperationID: "getWeeklyDigest",
		Method:      http.MethodGet,
		Path:        "/api/v1/digest/weekly",
		Summary:     "Get weekly digest",
		Description: "Returns aggregates and a top selection for one ISO week",
		Tags:        []string{"Digest"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleWeeklyDigest)

	huma.Register(s.api, huma.Operation{
		OperationID: "getDigestConfig",
		Method:      http.MethodGet,
		Path:        "/api/v1/digest/config",
		Summary:     "Get digest config",
		Description: "Returns the user's resurfacing preferences",
		Tags:        []string{"Digest"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleGetDigestConfig)

	huma.Register(s.api, huma.Operation{
		OperationID: "updateDigestConfig",
		Method:      http.MethodPatch,
		Path:        "/api/v1/digest/config",
		Summary:     "Update digest config",
		Description: "Updates resurfacing preferences. Focus tags must reference existing tags.",
		Tags:        []string{"Digest"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleUpdateDigestConfig)
}

// === DTOs ===

// ScoredHighlightResponse pairs a highlight with its resurfacing score.
type ScoredHighlightResponse struct {
	Highlight HighlightResponse `json:"highlight" doc:"The highlight"`
	Score     float64           `json:"score" doc:"Resurfacing score at generation time"`
}

// DailyDigestOutput wraps the daily digest for Huma.
type DailyDigestOutput struct {
	Body struct {
		Date        string                    `json:"date" doc:"Digest date, YYYY-MM-DD in the user's timezone"`
		GeneratedAt time.Time                 `json:"generated_at" doc:"Generation instant"`
		Entries     []ScoredHighlightResponse `json:"entries" doc:"Selected highlights, best first"`
	}
}

// WeeklyDigestInput selects the ISO week to aggregate.
type WeeklyDigestInput struct {
	Authorization string `header:"Authorization"`
	Week          string `query:"week" required:"true" doc:"ISO week identifier, e.g. 2026-W35"`
}

// WeeklyDigestOutput wraps the weekly digest for Huma.
type WeeklyDigestOutput struct {
	Body struct {
		Week          string                    `json:"week" doc:"ISO week identifier"`
		GeneratedAt   time.Time                 `json:"generated_at" doc:"Generation instant"`
		TotalAdded    int                       `json:"total_added" doc:"Highlights created that week"`
		TotalReviewed int                       `json:"total_reviewed" doc:"Reviews recorded that week"`
		ByTag         []domain.TagCount         `json:"by_tag" doc:"Per-tag counts for the week"`
		BySource      []domain.SourceCount      `json:"by_source" doc:"Per-source counts for the week"`
		Top           []ScoredHighlightResponse `json:"top" doc:"Representative top selection"`
	}
}

// DigestConfigResponse contains resurfacing preferences in API responses.
type DigestConfigResponse struct {
	DailyCount int      `json:"daily_count" doc:"Highlights per daily digest"`
	FocusTags  []string `json:"focus_tags" doc:"Tag IDs boosted in scoring"`
	Enabled    bool     `json:"enabled" doc:"Whether scheduled digests run"`
	Hour       int      `json:"hour" doc:"Local hour the daily digest is generated at"`
	Timezone   string   `json:"timezone" doc:"IANA timezone owning day/week boundaries"`
}

// DigestConfigOutput wraps the config response for Huma.
type DigestConfigOutput struct {
	Body DigestConfigResponse
}

// UpdateDigestConfigInput wraps the config update request for Huma.
type UpdateDigestConfigInput struct {
	Authorization string `header:"Authorization"`
	Body          service.UpdateDigestConfigRequest
}

func toScoredResponses(entries []domain.ScoredHighlight) []ScoredHighlightResponse {
	out := make([]ScoredHighlightResponse, len(entries))
	for i, e := range entries {
		h := e.Highlight
		out[i] = ScoredHighlightResponse{
			Highlight: toHighlightResponse(&h),
			Score:     e.Score,
		}
	}
	return out
}

func (s *Server) toDigestConfigResponse(ctx context.Context, userID string, cfg *domain.DigestConfig) DigestConfigResponse {
	resp := DigestConfigResponse{
		DailyCount: cfg.DailyCount,
		FocusTags:  cfg.FocusTags,
		Enabled:    cfg.Enabled,
		Hour:       cfg.Hour,
		Timezone:   "UTC",
	}
	if resp.FocusTags == nil {
		resp.FocusTags = []string{}
	}
	if user, err := s.store.GetUser(ctx, userID); err == nil && user.Timezone != "" {
		resp.Timezone = user.Timezone
	}
	return resp
}

// === Handlers ===

func (s *Server) handleDailyDigest(ctx context.Context, input *authOnly) (*DailyDigestOutput, error) {
	identity, err := s.authenticate(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	digest, err := s.services.Digest.Daily(ctx, identity.UserID)
	if err != nil {
		return nil, err
	}

	out := &DailyDigestOutput{}
	out.Body.Date = digest.Date
	out.Body.GeneratedAt = digest.GeneratedAt
	out.Body.Entries = toScoredResponses(digest.Entries)
	return out, nil
}

func (s *Server) handleWeeklyDigest(ctx context.Context, input *WeeklyDigestInput) (*WeeklyDigestOutput, error) {
	identity, err := s.authenticate(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	digest, err := s.services.Digest.Weekly(ctx, identity.UserID, input.Week)
	if err != nil {
		return nil, err
	}

	out := &WeeklyDigestOutput{}
	out.Body.Week = digest.Week
	out.Body.GeneratedAt = digest.GeneratedAt
	out.Body.TotalAdded = digest.TotalAdded
	out.Body.TotalReviewed = digest.TotalReviewed
	out.Body.ByTag = digest.ByTag
	out.Body.BySource = digest.BySource
	out.Body.Top = toScoredResponses(digest.Top)
	return out, nil
}

func (s *Server) handleGetDigestConfig(ctx context.Context, input *authOnly) (*DigestConfigOutput, error) {
	identity, err := s.authenticate(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	cfg, err := s.services.Digest.GetConfig(ctx, identity.UserID)
	if err != nil {
		return nil, err
	}
	return &DigestConfigOutput{Body: s.toDigestConfigResponse(ctx, identity.UserID, cfg)}, nil
}

func (s *Server) handleUpdateDigestConfig(ctx context.Context, input *UpdateDigestConfigInput) (*DigestConfigOutput, error) {
	identity, err := s.requireSession(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	cfg, err := s.services.Digest.UpdateConfig(ctx, identity.UserID, input.Body)
	if err != nil {
		return nil, err
	}
	return &DigestConfigOutput{Body: s.toDigestConfigResponse(ctx, identity.UserID, cfg)}, nil
}
