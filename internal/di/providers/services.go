package providers

import (
	"github.com/samber/do/v2"

	"github.com/phmapp/phm-server/internal/auth"
	"github.com/phmapp/phm-server/internal/logger"
	"github.com/phmapp/phm-server/internal/ratelimit"
	"github.com/phmapp/phm-server/internal/service"
	"github.com/phmapp/phm-server/internal/validation"
)

// ProvideValidator provides the request validator.
func ProvideValidator(i do.Injector) (*validation.Validator, error) {
	return validation.New(), nil
}

// ProvideSessionService provides the session service.
func ProvideSessionService(i do.Injector) (*service.SessionService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	tokens := do.MustInvoke[*auth.TokenService](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewSessionService(storeHandle.Store, tokens, log.Logger), nil
}

// ProvideAuthService provides the authentication service.
func ProvideAuthService(i do.Injector) (*service.AuthService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	tokens := do.MustInvoke[*auth.TokenService](i)
	sessions := do.MustInvoke[*service.SessionService](i)
	validator := do.MustInvoke[*validation.Validator](i)
	loginLimiter := do.MustInvoke[*ratelimit.KeyedRateLimiter](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewAuthService(storeHandle.Store, tokens, sessions, validator, loginLimiter, log.Logger), nil
}

// ProvideDeviceService provides the device registration and key service.
func ProvideDeviceService(i do.Injector) (*service.DeviceService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	keys := do.MustInvoke[*auth.DeviceKeyService](i)
	limiter := do.MustInvoke[*ratelimit.FixedWindow](i)
	validator := do.MustInvoke[*validation.Validator](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewDeviceService(storeHandle.Store, keys, limiter, validator, log.Logger), nil
}

// ProvideSourceService provides the source resolution service.
func ProvideSourceService(i do.Injector) (*service.SourceService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	validator := do.MustInvoke[*validation.Validator](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewSourceService(storeHandle.Store, validator, log.Logger), nil
}

// ProvideHighlightService provides the highlight ingestion service.
func ProvideHighlightService(i do.Injector) (*service.HighlightService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	sources := do.MustInvoke[*service.SourceService](i)
	validator := do.MustInvoke[*validation.Validator](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewHighlightService(storeHandle.Store, sources, validator, log.Logger), nil
}

// ProvideTagService provides the tag management service.
func ProvideTagService(i do.Injector) (*service.TagService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewTagService(storeHandle.Store, log.Logger), nil
}

// ProvideLinkService provides the highlight link service.
func ProvideLinkService(i do.Injector) (*service.LinkService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewLinkService(storeHandle.Store, log.Logger), nil
}

// ProvideCollectionService provides the collection service.
func ProvideCollectionService(i do.Injector) (*service.CollectionService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	validator := do.MustInvoke[*validation.Validator](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewCollectionService(storeHandle.Store, validator, log.Logger), nil
}

// ProvideDigestService provides the resurfacing digest service.
func ProvideDigestService(i do.Injector) (*service.DigestService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	validator := do.MustInvoke[*validation.Validator](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewDigestService(storeHandle.Store, validator, log.Logger), nil
}

// ProvideReminderService provides the reminder service.
func ProvideReminderService(i do.Injector) (*service.ReminderService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	validator := do.MustInvoke[*validation.Validator](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewReminderService(storeHandle.Store, validator, log.Logger), nil
}
