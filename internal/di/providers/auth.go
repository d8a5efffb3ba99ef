package providers

import (
	"github.com/samber/do/v2"

	"github.com/phmapp/phm-server/internal/auth"
	"github.com/phmapp/phm-server/internal/config"
	"github.com/phmapp/phm-server/internal/logger"
	"github.com/phmapp/phm-server/internal/ratelimit"
)

// AuthKeys holds the server's secret key material.
type AuthKeys struct {
	AccessTokenKey  []byte
	DeviceKeyPepper []byte
}

// ProvideAuthKeys loads or generates the token signing key and device key pepper.
func ProvideAuthKeys(i do.Injector) (*AuthKeys, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	tokenKey, err := auth.LoadOrGenerateKey(cfg.Data.BasePath, "token.key")
	if err != nil {
		return nil, err
	}
	pepper, err := auth.LoadOrGenerateKey(cfg.Data.BasePath, "pepper.key")
	if err != nil {
		return nil, err
	}

	cfg.Auth.AccessTokenKey = tokenKey
	cfg.Auth.DeviceKeyPepper = pepper

	log.Info("Authentication keys loaded",
		"access_token_duration", cfg.Auth.AccessTokenDuration,
		"refresh_token_duration", cfg.Auth.RefreshTokenDuration,
	)

	return &AuthKeys{AccessTokenKey: tokenKey, DeviceKeyPepper: pepper}, nil
}

// ProvideTokenService provides the PASETO token service.
func ProvideTokenService(i do.Injector) (*auth.TokenService, error) {
	cfg := do.MustInvoke[*config.Config](i)
	keys := do.MustInvoke[*AuthKeys](i)

	return auth.NewTokenService(keys.AccessTokenKey, cfg.Auth.AccessTokenDuration, cfg.Auth.RefreshTokenDuration)
}

// ProvideDeviceKeyService provides the device key minting and verification service.
func ProvideDeviceKeyService(i do.Injector) (*auth.DeviceKeyService, error) {
	keys := do.MustInvoke[*AuthKeys](i)
	return auth.NewDeviceKeyService(keys.DeviceKeyPepper)
}

// ProvideDeviceLimiter provides the fixed-window quota for device ingestion.
func ProvideDeviceLimiter(i do.Injector) (*ratelimit.FixedWindow, error) {
	cfg := do.MustInvoke[*config.Config](i)
	return ratelimit.NewFixedWindow(cfg.RateLimit.DeviceWindow, cfg.RateLimit.DeviceMax), nil
}

// ProvideLoginLimiter provides the per-IP token bucket for login attempts.
func ProvideLoginLimiter(i do.Injector) (*ratelimit.KeyedRateLimiter, error) {
	cfg := do.MustInvoke[*config.Config](i)
	return ratelimit.New(cfg.RateLimit.LoginRPS, cfg.RateLimit.LoginBurst), nil
}
