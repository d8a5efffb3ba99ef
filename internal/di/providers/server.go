package providers

import (
	"context"
	"net/http"

	"github.com/samber/do/v2"

	"github.com/phmapp/phm-server/internal/api"
	"github.com/phmapp/phm-server/internal/config"
	"github.com/phmapp/phm-server/internal/logger"
	"github.com/phmapp/phm-server/internal/service"
)

// HTTPServerHandle wraps http.Server with Shutdownable.
type HTTPServerHandle struct {
	*http.Server
}

// Shutdown implements do.Shutdownable.
func (h *HTTPServerHandle) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return h.Server.Shutdown(ctx)
}

// ProvideHTTPServer provides the HTTP server.
func ProvideHTTPServer(i do.Injector) (*HTTPServerHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	services := &api.Services{
		Auth:       do.MustInvoke[*service.AuthService](i),
		Session:    do.MustInvoke[*service.SessionService](i),
		Device:     do.MustInvoke[*service.DeviceService](i),
		Source:     do.MustInvoke[*service.SourceService](i),
		Highlight:  do.MustInvoke[*service.HighlightService](i),
		Tag:        do.MustInvoke[*service.TagService](i),
		Link:       do.MustInvoke[*service.LinkService](i),
		Collection: do.MustInvoke[*service.CollectionService](i),
		Digest:     do.MustInvoke[*service.DigestService](i),
		Reminder:   do.MustInvoke[*service.ReminderService](i),
	}

	handler := api.NewServer(storeHandle.Store, services, log.Logger)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start in background
	go func() {
		log.Info("HTTP server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("HTTP server error", "error", err)
		}
	}()

	log.Info("Server running", "addr", srv.Addr)

	return &HTTPServerHandle{Server: srv}, nil
}
