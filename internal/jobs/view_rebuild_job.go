package jobs

import (
	"context"
	"log/slog"

	"allocation/internal/core/application/viewrebuild"
	"allocation/internal/core/ports"

	"github.com/robfig/cron/v3"
)

// ViewRebuildJob periodically reconstructs the allocations read model from
// the event history. A projection can diverge from the write side, for
// example after a crash between the write commit and the view update; the
// rebuild converges it back.
type ViewRebuildJob struct {
	log      ports.EventLog
	view     ports.AllocationViewRepository
	schedule string
	cron     *cron.Cron
	logger   *slog.Logger
}

// NewViewRebuildJob creates a rebuild job running on the given cron
// schedule, e.g. "@every 1h".
func NewViewRebuildJob(
	log ports.EventLog,
	view ports.AllocationViewRepository,
	schedule string,
	logger *slog.Logger,
) *ViewRebuildJob {
	return &ViewRebuildJob{
		log:      log,
		view:     view,
		schedule: schedule,
		cron:     cron.New(),
		logger:   logger.With("component", "view_rebuild_job"),
	}
}

// Start schedules the rebuild. Returns an error for an invalid schedule.
func (j *ViewRebuildJob) Start() error {
	_, err := j.cron.AddFunc(j.schedule, func() {
		ctx := context.Background()

		if err := viewrebuild.Rebuild(ctx, j.log, j.view); err != nil {
			j.logger.ErrorContext(ctx, "Read model rebuild failed", "error", err)
			return
		}
		j.logger.InfoContext(ctx, "Read model rebuilt from event history")
	})
	if err != nil {
		return err
	}

	j.cron.Start()
	j.logger.InfoContext(context.Background(), "View rebuild job started", "schedule", j.schedule)
	return nil
}

// Stop stops the job. Runs already in flight finish on their own.
func (j *ViewRebuildJob) Stop() {
	j.cron.Stop()
	j.logger.InfoContext(context.Background(), "View rebuild job stopped")
}
