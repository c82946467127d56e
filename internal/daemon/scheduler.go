package daemon

import (
	"fmt"
	"log/slog"

	"github.com/go-co-op/gocron/v2"

	"git.home.luguber.info/inful/docpub/internal/config"
	"git.home.luguber.info/inful/docpub/internal/logfields"
	"git.home.luguber.info/inful/docpub/internal/run"
)

// Scheduler wraps gocron for the cron and interval triggers.
type Scheduler struct {
	scheduler gocron.Scheduler
	submit    func(reason run.Reason)
}

// NewScheduler creates a scheduler that submits runs through the given
// callback.
func NewScheduler(submit func(reason run.Reason)) (*Scheduler, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create gocron scheduler: %w", err)
	}
	return &Scheduler{scheduler: s, submit: submit}, nil
}

// Configure registers jobs for the workflow's schedule and interval triggers.
func (s *Scheduler) Configure(trigger config.TriggerConfig) error {
	if trigger.Schedule != "" {
		_, err := s.scheduler.NewJob(
			gocron.CronJob(trigger.Schedule, false),
			gocron.NewTask(s.fire),
			gocron.WithName("schedule-trigger"),
		)
		if err != nil {
			return fmt.Errorf("failed to create cron job %q: %w", trigger.Schedule, err)
		}
		slog.Info("Scheduled cron trigger", slog.String("schedule", trigger.Schedule))
	}

	if trigger.Interval > 0 {
		_, err := s.scheduler.NewJob(
			gocron.DurationJob(trigger.Interval),
			gocron.NewTask(s.fire),
			gocron.WithName("interval-trigger"),
		)
		if err != nil {
			return fmt.Errorf("failed to create interval job: %w", err)
		}
		slog.Info("Scheduled interval trigger", slog.Duration("interval", trigger.Interval))
	}
	return nil
}

// Start begins the scheduler.
func (s *Scheduler) Start() {
	slog.Info("Starting scheduler")
	s.scheduler.Start()
}

// Stop gracefully shuts down the scheduler.
func (s *Scheduler) Stop() error {
	slog.Info("Stopping scheduler")
	return s.scheduler.Shutdown()
}

func (s *Scheduler) fire() {
	slog.Debug("Schedule trigger fired", logfields.Reason(string(run.ReasonSchedule)))
	s.submit(run.ReasonSchedule)
}
