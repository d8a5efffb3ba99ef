package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/phmapp/phm-server/internal/domain"
	"github.com/phmapp/phm-server/internal/service"
)

func (s *Server) registerAuthRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "register",
		Method:      http.MethodPost,
		Path:        "/api/v1/auth/register",
		Summary:     "Register new user",
		Description: "Creates a new account and returns session tokens",
		Tags:        []string{"Authentication"},
	}, s.handleRegister)

	huma.Register(s.api, huma.Operation{
		OperationID: "login",
		Method:      http.MethodPost,
		Path:        "/api/v1/auth/login",
		Summary:     "User login",
		Description: "Authenticates a user and returns access and refresh tokens",
		Tags:        []string{"Authentication"},
	}, s.handleLogin)

	huma.Register(s.api, huma.Operation{
		OperationID: "refresh",
		Method:      http.MethodPost,
		Path:        "/api/v1/auth/refresh",
		Summary:     "Refresh tokens",
		Description: "Exchanges a refresh token for new tokens",
		Tags:        []string{"Authentication"},
	}, s.handleRefresh)

	huma.Register(s.api, huma.Operation{
		OperationID: "logout",
		Method:      http.MethodPost,
		Path:        "/api/v1/auth/logout",
		Summary:     "Logout",
		Description: "Revokes the specified session",
		Tags:        []string{"Authentication"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleLogout)

	huma.Register(s.api, huma.Operation{
		OperationID: "listSessions",
		Method:      http.MethodGet,
		Path:        "/api/v1/auth/sessions",
		Summary:     "List sessions",
		Description: "Returns the current user's active sessions",
		Tags:        []string{"Authentication"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleListSessions)

	huma.Register(s.api, huma.Operation{
		OperationID: "getCurrentUser",
		Method:      http.MethodGet,
		Path:        "/api/v1/users/me",
		Summary:     "Get current user",
		Description: "Returns the authenticated user's profile",
		Tags:        []string{"Authentication"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleGetCurrentUser)
}

// === DTOs ===

// UserResponse contains user data safe for API responses.
type UserResponse struct {
	ID          string    `json:"id" doc:"User ID"`
	Email       string    `json:"email" doc:"Email address"`
	DisplayName string    `json:"display_name,omitempty" doc:"Display name"`
	Timezone    string    `json:"timezone" doc:"IANA timezone for digest boundaries"`
	CreatedAt   time.Time `json:"created_at" doc:"Account creation time"`
}

// AuthResponse contains session tokens and the user profile.
type AuthResponse struct {
	User         UserResponse `json:"user"`
	AccessToken  string       `json:"access_token" doc:"PASETO access token"`
	RefreshToken string       `json:"refresh_token" doc:"Opaque refresh token"`
	TokenType    string       `json:"token_type" doc:"Always bearer"`
	ExpiresIn    int          `json:"expires_in" doc:"Access token lifetime in seconds"`
	SessionID    string       `json:"session_id" doc:"Session ID, usable for logout"`
}

// AuthOutput wraps the auth response for Huma.
type AuthOutput struct {
	Body AuthResponse
}

// RegisterInput wraps the registration request for Huma.
type RegisterInput struct {
	Body service.RegisterRequest
}

// LoginRequestBody is the request body for user login.
type LoginRequestBody struct {
	Email      string `json:"email" validate:"required,email" doc:"User email"`
	Password   string `json:"password" validate:"required" doc:"User password"`
	ClientName string `json:"client_name,omitempty" validate:"omitempty,max=100" doc:"Client name for the session list"`
}

// LoginInput wraps the login request with headers for Huma.
type LoginInput struct {
	Body          LoginRequestBody
	XForwardedFor string `header:"X-Forwarded-For"`
	XRealIP       string `header:"X-Real-IP"`
}

// RefreshInput wraps the refresh request with headers for Huma.
type RefreshInput struct {
	Body struct {
		RefreshToken string `json:"refresh_token" validate:"required" doc:"Refresh token to rotate"`
	}
	XForwardedFor string `header:"X-Forwarded-For"`
	XRealIP       string `header:"X-Real-IP"`
}

// LogoutInput wraps the logout request for Huma.
type LogoutInput struct {
	Authorization string `header:"Authorization"`
	Body          struct {
		SessionID string `json:"session_id" validate:"required" doc:"Session ID to revoke"`
	}
}

// SessionResponse contains session metadata for the session list.
type SessionResponse struct {
	ID         string    `json:"id" doc:"Session ID"`
	ClientName string    `json:"client_name,omitempty" doc:"Client that opened the session"`
	IPAddress  string    `json:"ip_address,omitempty" doc:"Client IP at login"`
	CreatedAt  time.Time `json:"created_at" doc:"Login time"`
	LastSeenAt time.Time `json:"last_seen_at" doc:"Last activity time"`
	ExpiresAt  time.Time `json:"expires_at" doc:"Session expiry"`
}

// ListSessionsOutput wraps the session list for Huma.
type ListSessionsOutput struct {
	Body struct {
		Sessions []SessionResponse `json:"sessions" doc:"Active sessions"`
	}
}

// UserOutput wraps the user response for Huma.
type UserOutput struct {
	Body UserResponse
}

// === Handlers ===

func toUserResponse(u *domain.User) UserResponse {
	return UserResponse{
		ID:          u.ID,
		Email:       u.Email,
		DisplayName: u.DisplayName,
		Timezone:    u.Timezone,
		CreatedAt:   u.CreatedAt,
	}
}

func toAuthResponse(resp *service.AuthResponse) AuthResponse {
	return AuthResponse{
		User:         toUserResponse(resp.User),
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		TokenType:    resp.TokenType,
		ExpiresIn:    resp.ExpiresIn,
		SessionID:    resp.SessionID,
	}
}

// clientIP picks the client address from proxy headers.
func clientIP(forwardedFor, realIP string) string {
	if forwardedFor != "" {
		if i := strings.IndexByte(forwardedFor, ','); i >= 0 {
			return strings.TrimSpace(forwardedFor[:i])
		}
		return forwardedFor
	}
	return realIP
}

func (s *Server) handleRegister(ctx context.Context, input *RegisterInput) (*AuthOutput, error) {
	resp, err := s.services.Auth.Register(ctx, input.Body)
	if err != nil {
		return nil, err
	}
	return &AuthOutput{Body: toAuthResponse(resp)}, nil
}

func (s *Server) handleLogin(ctx context.Context, input *LoginInput) (*AuthOutput, error) {
	resp, err := s.services.Auth.Login(ctx, service.LoginRequest{
		Email:      input.Body.Email,
		Password:   input.Body.Password,
		ClientName: input.Body.ClientName,
		IPAddress:  clientIP(input.XForwardedFor, input.XRealIP),
	})
	if err != nil {
		return nil, err
	}
	return &AuthOutput{Body: toAuthResponse(resp)}, nil
}

func (s *Server) handleRefresh(ctx context.Context, input *RefreshInput) (*AuthOutput, error) {
	resp, err := s.services.Auth.RefreshTokens(ctx, service.RefreshRequest{
		RefreshToken: input.Body.RefreshToken,
		IPAddress:    clientIP(input.XForwardedFor, input.XRealIP),
	})
	if err != nil {
		return nil, err
	}
	return &AuthOutput{Body: toAuthResponse(resp)}, nil
}

func (s *Server) handleLogout(ctx context.Context, input *LogoutInput) (*MessageOutput, error) {
	identity, err := s.requireSession(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}
	if err := s.services.Auth.Logout(ctx, identity.UserID, input.Body.SessionID); err != nil {
		return nil, err
	}
	return &MessageOutput{Body: MessageResponse{Message: "Logged out"}}, nil
}

func (s *Server) handleListSessions(ctx context.Context, input *authOnly) (*ListSessionsOutput, error) {
	identity, err := s.requireSession(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	sessions, err := s.services.Session.ListUserSessions(ctx, identity.UserID)
	if err != nil {
		return nil, err
	}

	out := &ListSessionsOutput{}
	out.Body.Sessions = make([]SessionResponse, len(sessions))
	for i, sess := range sessions {
		out.Body.Sessions[i] = SessionResponse{
			ID:         sess.ID,
			ClientName: sess.ClientName,
			IPAddress:  sess.IPAddress,
			CreatedAt:  sess.CreatedAt,
			LastSeenAt: sess.LastSeenAt,
			ExpiresAt:  sess.ExpiresAt,
		}
	}
	return out, nil
}

func (s *Server) handleGetCurrentUser(ctx context.Context, input *authOnly) (*UserOutput, error) {
	identity, err := s.authenticate(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	user, err := s.store.GetUser(ctx, identity.UserID)
	if err != nil {
		return nil, err
	}
	return &UserOutput{Body: toUserResponse(user)}, nil
}
