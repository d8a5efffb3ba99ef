// Package service provides the business logic layer for highlights, sources,
// devices, and resurfacing.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/phmapp/phm-server/internal/auth"
	"github.com/phmapp/phm-server/internal/domain"
	domainerrors "github.com/phmapp/phm-server/internal/errors"
	"github.com/phmapp/phm-server/internal/id"
	"github.com/phmapp/phm-server/internal/ratelimit"
	"github.com/phmapp/phm-server/internal/store"
	"github.com/phmapp/phm-server/internal/validation"
)

// AuthService handles account registration, login, and token verification.
// Session management is delegated to SessionService.
type AuthService struct {
	store          store.Store
	tokenService   *auth.TokenService
	sessionService *SessionService
	validator      *validation.Validator
	loginLimiter   *ratelimit.KeyedRateLimiter
	logger         *slog.Logger
}

// NewAuthService creates a new authentication service.
// loginLimiter throttles login attempts per client IP.
func NewAuthService(
	store store.Store,
	tokenService *auth.TokenService,
	sessionService *SessionService,
	validator *validation.Validator,
	loginLimiter *ratelimit.KeyedRateLimiter,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		store:          store,
		tokenService:   tokenService,
		sessionService: sessionService,
		validator:      validator,
		loginLimiter:   loginLimiter,
		logger:         logger,
	}
}

// RegisterRequest contains new account data.
type RegisterRequest struct {
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required,min=8,max=1024"`
	DisplayName string `json:"display_name,omitempty" validate:"max=100"`
	Timezone    string `json:"timezone,omitempty" validate:"omitempty,timezone"`
}

// LoginRequest contains user credentials.
type LoginRequest struct {
	Email      string `json:"email" validate:"required,email"`
	Password   string `json:"password" validate:"required"`
	ClientName string `json:"client_name"`
	IPAddress  string `json:"-"` // extracted from the request by the handler
}

// RefreshRequest contains the refresh token to rotate.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
	IPAddress    string `json:"-"`
}

// AuthResponse contains authentication tokens and user data.
type AuthResponse struct {
	User *domain.User `json:"user"`
	SessionResponse
}

// Register creates a new account and logs it in.
func (s *AuthService) Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	passwordHash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	userID, err := id.Generate("user")
	if err != nil {
		return nil, fmt.Errorf("generate user ID: %w", err)
	}

	timezone := req.Timezone
	if timezone == "" {
		timezone = "UTC"
	}

	now := time.Now()
	user := &domain.User{
		ID:           userID,
		Email:        req.Email,
		PasswordHash: passwordHash,
		DisplayName:  req.DisplayName,
		Timezone:     timezone,
		CreatedAt:    now,
		UpdatedAt:    now,
		LastLoginAt:  now,
	}

	if err := s.store.CreateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return nil, domainerrors.AlreadyExists("email already in use")
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	sessionResp, err := s.sessionService.CreateSession(ctx, user, "PHM Web", "")
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	s.logger.Info("user registered",
		"user_id", userID,
		"email", user.Email,
	)

	return &AuthResponse{User: user, SessionResponse: *sessionResp}, nil
}

// Login authenticates a user and creates a new session.
// Attempts are throttled per client IP.
func (s *AuthService) Login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	if req.IPAddress != "" && !s.loginLimiter.Allow(req.IPAddress) {
		s.logger.Warn("login throttled", "ip", req.IPAddress)
		return nil, domainerrors.RateLimited("too many login attempts, slow down")
	}

	user, err := s.store.GetUserByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Don't leak whether the email exists.
			return nil, domainerrors.InvalidCredentials("invalid email or password")
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	valid, err := auth.VerifyPassword(user.PasswordHash, req.Password)
	if err != nil {
		return nil, fmt.Errorf("verify password: %w", err)
	}
	if !valid {
		return nil, domainerrors.InvalidCredentials("invalid email or password")
	}

	user.LastLoginAt = time.Now()
	user.Touch()
	if err := s.store.UpdateUser(ctx, user); err != nil {
		// Log but don't fail login.
		s.logger.Warn("failed to update last login time",
			"user_id", user.ID,
			"error", err,
		)
	}

	sessionResp, err := s.sessionService.CreateSession(ctx, user, req.ClientName, req.IPAddress)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	s.logger.Info("user logged in", "user_id", user.ID)

	return &AuthResponse{User: user, SessionResponse: *sessionResp}, nil
}

// RefreshTokens generates new tokens using a refresh token.
// The old refresh token is invalidated.
func (s *AuthService) RefreshTokens(ctx context.Context, req RefreshRequest) (*AuthResponse, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	sessionResp, user, err := s.sessionService.RefreshSession(ctx, req.RefreshToken, req.IPAddress)
	if err != nil {
		return nil, err
	}

	return &AuthResponse{User: user, SessionResponse: *sessionResp}, nil
}

// Logout revokes a session, invalidating its refresh token.
func (s *AuthService) Logout(ctx context.Context, userID, sessionID string) error {
	sessions, err := s.sessionService.ListUserSessions(ctx, userID)
	if err != nil {
		return err
	}
	for _, session := range sessions {
		if session.ID == sessionID {
			return s.sessionService.DeleteSession(ctx, sessionID)
		}
	}
	return domainerrors.NotFound("session not found")
}

// VerifyAccessToken validates a session token and returns the caller's
// identity. Used by the authentication middleware.
func (s *AuthService) VerifyAccessToken(ctx context.Context, tokenString string) (*domain.Identity, error) {
	claims, err := s.tokenService.VerifyAccessToken(tokenString)
	if err != nil {
		return nil, domainerrors.Unauthorized("invalid token").WithCause(err)
	}

	// Confirm the user still exists.
	if _, err := s.store.GetUser(ctx, claims.UserID); err != nil {
		return nil, domainerrors.Unauthorized("user not found").WithCause(err)
	}

	return &domain.Identity{
		UserID: claims.UserID,
		Kind:   domain.IdentityUISession,
	}, nil
}
