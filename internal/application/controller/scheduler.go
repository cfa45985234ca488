package controller

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"
)

// Scheduler runs the controller's recurring jobs on cron expressions.
// Job bodies are already serialized by the controller mutex, so overlapping
// triggers just queue behind the running one.
type Scheduler struct {
	cron *cron.Cron
	ctrl *Controller
}

// NewScheduler builds a scheduler over the given controller.
func NewScheduler(ctrl *Controller) *Scheduler {
	return &Scheduler{
		cron: cron.New(),
		ctrl: ctrl,
	}
}

// Register installs the three recurring jobs. Cron specs come from config
// and support the standard five-field syntax plus descriptors like @hourly.
func (s *Scheduler) Register(dataSpec, evalSpec, backfillSpec string) error {
	jobs := []struct {
		name string
		spec string
		run  func(context.Context) error
	}{
		{"data_cycle", dataSpec, s.ctrl.RunDataCycle},
		{"full_evaluation", evalSpec, s.ctrl.RunFullEvaluation},
		{"backfill", backfillSpec, s.ctrl.RunBackfill},
	}

	for _, job := range jobs {
		job := job
		_, err := s.cron.AddFunc(job.spec, func() {
			slog.Info("scheduled job starting", "job", job.name)
			if err := job.run(context.Background()); err != nil {
				slog.Error("scheduled job failed", "job", job.name, "err", err)
			}
		})
		if err != nil {
			return fmt.Errorf("controller.Register: job %s spec %q: %w", job.name, job.spec, err)
		}
	}
	return nil
}

// Start launches the cron loop in its own goroutine.
func (s *Scheduler) Start() {
	s.cron.Start()
	slog.Info("scheduler started", "jobs", len(s.cron.Entries()))
}

// Stop halts scheduling and waits for any running job to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	slog.Info("scheduler stopped")
}
