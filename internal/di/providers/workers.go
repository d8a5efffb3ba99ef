package providers

import (
	"github.com/samber/do/v2"

	"github.com/phmapp/phm-server/internal/config"
	"github.com/phmapp/phm-server/internal/jobs"
	"github.com/phmapp/phm-server/internal/logger"
	"github.com/phmapp/phm-server/internal/service"
)

// SchedulerHandle wraps the job scheduler with shutdown capability.
type SchedulerHandle struct {
	*jobs.Scheduler
}

// Shutdown implements do.Shutdownable.
func (h *SchedulerHandle) Shutdown() error {
	h.Stop()
	return nil
}

// ProvideScheduler provides the background job scheduler.
// Reminder delivery and session cleanup always run; the hourly digest
// sweep is gated by the digest config.
func ProvideScheduler(i do.Injector) (*SchedulerHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	digests := do.MustInvoke[*service.DigestService](i)
	reminders := do.MustInvoke[*service.ReminderService](i)
	sources := do.MustInvoke[*service.SourceService](i)
	sessions := do.MustInvoke[*service.SessionService](i)
	log := do.MustInvoke[*logger.Logger](i)

	sched, err := jobs.NewScheduler(storeHandle.Store, digests, reminders, sources, sessions, cfg.Digest.Enabled, log.Logger)
	if err != nil {
		return nil, err
	}

	if !cfg.Digest.Enabled {
		log.Info("Scheduled digest generation disabled by configuration")
	}

	sched.Start()

	return &SchedulerHandle{Scheduler: sched}, nil
}
