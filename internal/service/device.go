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

// DeviceService manages capture devices and authenticates their keys.
type DeviceService struct {
	store     store.Store
	keys      *auth.DeviceKeyService
	limiter   *ratelimit.FixedWindow
	validator *validation.Validator
	logger    *slog.Logger
}

// NewDeviceService creates a new device service.
// limiter enforces the per-device request quota on the capture path.
func NewDeviceService(
	store store.Store,
	keys *auth.DeviceKeyService,
	limiter *ratelimit.FixedWindow,
	validator *validation.Validator,
	logger *slog.Logger,
) *DeviceService {
	return &DeviceService{
		store:     store,
		keys:      keys,
		limiter:   limiter,
		validator: validator,
		logger:    logger,
	}
}

// RegisterDeviceRequest contains new device registration data.
type RegisterDeviceRequest struct {
	Name     string `json:"name" validate:"required,max=100"`
	Platform string `json:"platform,omitempty" validate:"omitempty,oneof=browser-extension kindle cli other"`
}

// RegisterDeviceResponse returns the device and its raw key.
// The raw key is shown exactly once; only a digest is stored.
type RegisterDeviceResponse struct {
	Device *domain.Device `json:"device"`
	Key    string         `json:"key"`
}

// Register creates a new device and mints its key.
func (s *DeviceService) Register(ctx context.Context, userID string, req RegisterDeviceRequest) (*RegisterDeviceResponse, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	rawKey, err := s.keys.Generate()
	if err != nil {
		return nil, fmt.Errorf("generate device key: %w", err)
	}

	deviceID, err := id.Generate("dev")
	if err != nil {
		return nil, fmt.Errorf("generate device ID: %w", err)
	}

	now := time.Now()
	device := &domain.Device{
		ID:        deviceID,
		UserID:    userID,
		Name:      req.Name,
		Platform:  req.Platform,
		KeyDigest: s.keys.Digest(rawKey),
		KeyPrefix: auth.DisplayPrefix(rawKey),
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.store.CreateDevice(ctx, device); err != nil {
		return nil, fmt.Errorf("create device: %w", err)
	}

	s.logger.Info("device registered",
		"device_id", deviceID,
		"user_id", userID,
		"name", req.Name,
	)

	return &RegisterDeviceResponse{Device: device, Key: rawKey}, nil
}

// List returns all of a user's devices, including revoked ones.
func (s *DeviceService) List(ctx context.Context, userID string) ([]*domain.Device, error) {
	return s.store.ListDevices(ctx, userID)
}

// Get returns a single device.
func (s *DeviceService) Get(ctx context.Context, userID, deviceID string) (*domain.Device, error) {
	device, err := s.store.GetDevice(ctx, userID, deviceID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, domainerrors.NotFound("device not found")
	}
	return device, err
}

// Revoke disables a device key. The device stays listed for audit.
// Revocation is idempotent.
func (s *DeviceService) Revoke(ctx context.Context, userID, deviceID string) (*domain.Device, error) {
	device, err := s.Get(ctx, userID, deviceID)
	if err != nil {
		return nil, err
	}
	if device.IsRevoked() {
		return device, nil
	}

	now := time.Now()
	device.RevokedAt = &now
	device.Touch()
	if err := s.store.UpdateDevice(ctx, device); err != nil {
		return nil, fmt.Errorf("update device: %w", err)
	}

	s.logger.Info("device revoked",
		"device_id", deviceID,
		"user_id", userID,
	)
	return device, nil
}

// RollKey mints a fresh key for a device, invalidating the old one
// immediately. The new raw key is shown exactly once.
func (s *DeviceService) RollKey(ctx context.Context, userID, deviceID string) (*RegisterDeviceResponse, error) {
	device, err := s.Get(ctx, userID, deviceID)
	if err != nil {
		return nil, err
	}
	if device.IsRevoked() {
		return nil, domainerrors.KeyRevoked("cannot roll a revoked device key")
	}

	rawKey, err := s.keys.Generate()
	if err != nil {
		return nil, fmt.Errorf("generate device key: %w", err)
	}

	device.KeyDigest = s.keys.Digest(rawKey)
	device.KeyPrefix = auth.DisplayPrefix(rawKey)
	device.LastUsedAt = nil // the new key has never been used
	device.Touch()
	if err := s.store.UpdateDevice(ctx, device); err != nil {
		return nil, fmt.Errorf("update device: %w", err)
	}

	s.logger.Info("device key rolled",
		"device_id", deviceID,
		"user_id", userID,
	)

	return &RegisterDeviceResponse{Device: device, Key: rawKey}, nil
}

// Authenticate resolves a raw device key to an identity, enforcing the
// per-device rate limit. On a limit breach it returns a RateLimited error;
// RetryAfter reports how long the caller should wait.
func (s *DeviceService) Authenticate(ctx context.Context, rawKey string) (*domain.Identity, error) {
	if err := s.keys.Validate(rawKey); err != nil {
		return nil, domainerrors.MalformedKey("malformed device key").WithCause(err)
	}

	// The digest-keyed lookup is the verification: only the holder of the
	// raw key can produce the digest the row is indexed by.
	digest := s.keys.Digest(rawKey)
	device, err := s.store.GetDeviceByKeyDigest(ctx, digest)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domainerrors.Unauthorized("unknown device key")
		}
		return nil, fmt.Errorf("lookup device: %w", err)
	}

	if device.IsRevoked() {
		return nil, domainerrors.KeyRevoked("device key has been revoked")
	}

	if !s.limiter.Allow(device.ID) {
		retry := s.limiter.RetryAfter(device.ID)
		return nil, domainerrors.RateLimited("device request quota exceeded").
			WithDetails(map[string]any{"retry_after_seconds": int(retry.Seconds()) + 1})
	}

	// Best effort; a failed touch must not fail the request.
	if err := s.store.TouchDeviceLastUsed(ctx, device.ID, time.Now()); err != nil {
		s.logger.Warn("failed to touch device last used",
			"device_id", device.ID,
			"error", err,
		)
	}

	return &domain.Identity{
		UserID:   device.UserID,
		DeviceID: device.ID,
		Kind:     domain.IdentityDeviceKey,
	}, nil
}

// RetryAfter reports how long a rate-limited device must wait.
func (s *DeviceService) RetryAfter(deviceID string) time.Duration {
	return s.limiter.RetryAfter(deviceID)
}
