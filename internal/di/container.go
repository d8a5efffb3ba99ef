// Package di provides dependency injection configuration for the PHM server.
package di

import (
	"github.com/samber/do/v2"

	"github.com/phmapp/phm-server/internal/auth"
	"github.com/phmapp/phm-server/internal/config"
	"github.com/phmapp/phm-server/internal/di/providers"
	"github.com/phmapp/phm-server/internal/logger"
	"github.com/phmapp/phm-server/internal/ratelimit"
	"github.com/phmapp/phm-server/internal/service"
	"github.com/phmapp/phm-server/internal/validation"
)

// NewContainer creates and configures the DI container with all providers.
func NewContainer() *do.RootScope {
	injector := do.New()

	// Core infrastructure
	do.Provide(injector, providers.ProvideConfig)
	do.Provide(injector, providers.ProvideLogger)
	do.Provide(injector, providers.ProvideAuthKeys)
	do.Provide(injector, providers.ProvideValidator)

	// Database layer
	do.Provide(injector, providers.ProvideStore)

	// Auth layer
	do.Provide(injector, providers.ProvideTokenService)
	do.Provide(injector, providers.ProvideDeviceKeyService)
	do.Provide(injector, providers.ProvideDeviceLimiter)
	do.Provide(injector, providers.ProvideLoginLimiter)

	// Business services
	do.Provide(injector, providers.ProvideSessionService)
	do.Provide(injector, providers.ProvideAuthService)
	do.Provide(injector, providers.ProvideDeviceService)
	do.Provide(injector, providers.ProvideSourceService)
	do.Provide(injector, providers.ProvideHighlightService)
	do.Provide(injector, providers.ProvideTagService)
	do.Provide(injector, providers.ProvideLinkService)
	do.Provide(injector, providers.ProvideCollectionService)
	do.Provide(injector, providers.ProvideDigestService)
	do.Provide(injector, providers.ProvideReminderService)

	// Workers
	do.Provide(injector, providers.ProvideScheduler)

	// Server
	do.Provide(injector, providers.ProvideHTTPServer)

	return injector
}

// Bootstrap initializes all services and returns once they are running.
// This triggers lazy initialization of every provider.
func Bootstrap(injector *do.RootScope) error {
	// Invoke core services to trigger initialization
	_ = do.MustInvoke[*config.Config](injector)
	_ = do.MustInvoke[*logger.Logger](injector)
	_ = do.MustInvoke[*providers.AuthKeys](injector)
	_ = do.MustInvoke[*validation.Validator](injector)
	_ = do.MustInvoke[*providers.StoreHandle](injector)
	_ = do.MustInvoke[*auth.TokenService](injector)
	_ = do.MustInvoke[*auth.DeviceKeyService](injector)
	_ = do.MustInvoke[*ratelimit.FixedWindow](injector)
	_ = do.MustInvoke[*ratelimit.KeyedRateLimiter](injector)

	// Business services
	_ = do.MustInvoke[*service.SessionService](injector)
	_ = do.MustInvoke[*service.AuthService](injector)
	_ = do.MustInvoke[*service.DeviceService](injector)
	_ = do.MustInvoke[*service.SourceService](injector)
	_ = do.MustInvoke[*service.HighlightService](injector)
	_ = do.MustInvoke[*service.TagService](injector)
	_ = do.MustInvoke[*service.LinkService](injector)
	_ = do.MustInvoke[*service.CollectionService](injector)
	_ = do.MustInvoke[*service.DigestService](injector)
	_ = do.MustInvoke[*service.ReminderService](injector)

	// Workers
	_ = do.MustInvoke[*providers.SchedulerHandle](injector)

	// Server
	_ = do.MustInvoke[*providers.HTTPServerHandle](injector)

	return nil
}
