package api

import (
	"context"
	"errors"
	"strings"

	"github.com/danielgtaylor/huma/v2"

	"github.com/phmapp/phm-server/internal/auth"
	"github.com/phmapp/phm-server/internal/domain"
	domainerrors "github.com/phmapp/phm-server/internal/errors"
)

// authenticate resolves the Authorization header to a caller identity.
// Device keys (phm_live_ prefix) authenticate through the device gate with
// its per-device rate limit; anything else is treated as a session token.
func (s *Server) authenticate(ctx context.Context, authHeader string) (*domain.Identity, error) {
	if authHeader == "" {
		return nil, huma.Error401Unauthorized("Missing authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		return nil, huma.Error401Unauthorized("Invalid authorization header format")
	}
	credential := parts[1]

	if auth.IsDeviceKey(credential) {
		identity, err := s.services.Device.Authenticate(ctx, credential)
		if err != nil {
			var domainErr *domainerrors.Error
			if errors.As(err, &domainErr) {
				return nil, err
			}
			s.logger.Error("device authentication failed", "error", err)
			return nil, huma.Error500InternalServerError("Authentication failed")
		}
		return identity, nil
	}

	identity, err := s.services.Auth.VerifyAccessToken(ctx, credential)
	if err != nil {
		return nil, huma.Error401Unauthorized("Invalid or expired token")
	}
	return identity, nil
}

// requireSession authenticates and rejects device-key callers. Management
// operations (edit, delete, device administration) are session-only.
func (s *Server) requireSession(ctx context.Context, authHeader string) (*domain.Identity, error) {
	identity, err := s.authenticate(ctx, authHeader)
	if err != nil {
		return nil, err
	}
	if !identity.CanManage() {
		return nil, domainerrors.Forbidden("this operation requires a signed-in session")
	}
	return identity, nil
}
