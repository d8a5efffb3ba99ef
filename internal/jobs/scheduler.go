// Package jobs runs the background maintenance work: firing due reminders,
// generating daily digests, and sweeping expired sessions and orphaned
// sources.
package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	cron "github.com/robfig/cron"

	"github.com/phmapp/phm-server/internal/service"
	"github.com/phmapp/phm-server/internal/store"
)

// Scheduler owns the cron loop. Each job runs in its own goroutine inside
// the cron runtime; jobs are independent and a failing sweep only logs.
type Scheduler struct {
	store     store.Store
	digests   *service.DigestService
	reminders *service.ReminderService
	sources   *service.SourceService
	sessions  *service.SessionService
	logger    *slog.Logger

	cron *cron.Cron
}

// NewScheduler creates the scheduler with all jobs registered but not started.
// digestsEnabled gates the hourly digest sweep; reminder delivery and cleanup
// always run.
func NewScheduler(
	st store.Store,
	digests *service.DigestService,
	reminders *service.ReminderService,
	sources *service.SourceService,
	sessions *service.SessionService,
	digestsEnabled bool,
	logger *slog.Logger,
) (*Scheduler, error) {
	s := &Scheduler{
		store:     st,
		digests:   digests,
		reminders: reminders,
		sources:   sources,
		sessions:  sessions,
		logger:    logger.With("component", "jobs"),
		cron:      cron.New(),
	}

	type job struct {
		schedule string
		name     string
		run      func(context.Context)
	}
	jobs := []job{
		{"@every 1m", "fire_reminders", s.fireReminders},
		{"@daily", "cleanup", s.cleanup},
	}
	if digestsEnabled {
		jobs = append(jobs, job{"0 0 * * * *", "daily_digests", s.generateDailyDigests})
	}
	for _, job := range jobs {
		name := job.name
		run := job.run
		if err := s.cron.AddFunc(job.schedule, func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
			defer cancel()
			run(ctx)
		}); err != nil {
			return nil, fmt.Errorf("schedule %s: %w", name, err)
		}
	}
	return s, nil
}

// Start begins executing scheduled jobs.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("background jobs started")
}

// Stop halts the cron loop. Jobs already running finish on their own.
func (s *Scheduler) Stop() {
	s.cron.Stop()
	s.logger.Info("background jobs stopped")
}

func (s *Scheduler) fireReminders(ctx context.Context) {
	fired, err := s.reminders.FireDue(ctx)
	if err != nil {
		s.logger.Error("reminder sweep failed", "error", err)
		return
	}
	if fired > 0 {
		s.logger.Info("reminders fired", "count", fired)
	}
}

// generateDailyDigests runs at the top of every hour and generates the
// digest for each user whose configured local digest hour has arrived.
func (s *Scheduler) generateDailyDigests(ctx context.Context) {
	users, err := s.store.ListUsers(ctx)
	if err != nil {
		s.logger.Error("digest sweep: list users failed", "error", err)
		return
	}

	now := time.Now()
	for _, user := range users {
		cfg, err := s.digests.GetConfig(ctx, user.ID)
		if err != nil {
			s.logger.Error("digest sweep: load config failed", "user_id", user.ID, "error", err)
			continue
		}
		if !cfg.Enabled {
			continue
		}

		loc := time.UTC
		if user.Timezone != "" {
			if l, err := time.LoadLocation(user.Timezone); err == nil {
				loc = l
			}
		}
		if now.In(loc).Hour() != cfg.Hour {
			continue
		}

		digest, err := s.digests.Daily(ctx, user.ID)
		if err != nil {
			s.logger.Error("daily digest failed", "user_id", user.ID, "error", err)
			continue
		}
		s.logger.Info("daily digest generated",
			"user_id", user.ID,
			"date", digest.Date,
			"entries", len(digest.Entries),
		)
	}
}

// cleanup drops expired sessions and sources no highlight references anymore.
func (s *Scheduler) cleanup(ctx context.Context) {
	deleted, err := s.sessions.DeleteExpiredSessions(ctx)
	if err != nil {
		s.logger.Error("session cleanup failed", "error", err)
	} else if deleted > 0 {
		s.logger.Info("expired sessions deleted", "count", deleted)
	}

	users, err := s.store.ListUsers(ctx)
	if err != nil {
		s.logger.Error("source cleanup: list users failed", "error", err)
		return
	}
	for _, user := range users {
		removed, err := s.sources.DeleteOrphaned(ctx, user.ID)
		if err != nil {
			s.logger.Error("source cleanup failed", "user_id", user.ID, "error", err)
			continue
		}
		if removed > 0 {
			s.logger.Info("orphaned sources deleted", "user_id", user.ID, "count", removed)
		}
	}
}
