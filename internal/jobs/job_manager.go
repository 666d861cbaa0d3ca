package jobs

import (
	"fmt"
	"log/slog"

	"allocation/internal/core/ports"
)

// JobManager coordinates the application's scheduled jobs behind a single
// start/stop interface.
type JobManager struct {
	viewRebuildJob *ViewRebuildJob
}

// NewJobManager creates a job manager wiring the read-model rebuild job.
func NewJobManager(
	log ports.EventLog,
	view ports.AllocationViewRepository,
	rebuildSchedule string,
	logger *slog.Logger,
) *JobManager {
	return &JobManager{
		viewRebuildJob: NewViewRebuildJob(log, view, rebuildSchedule, logger),
	}
}

// StartAll starts all scheduled jobs.
func (jm *JobManager) StartAll() error {
	if err := jm.viewRebuildJob.Start(); err != nil {
		return fmt.Errorf("failed to start view rebuild job: %w", err)
	}
	return nil
}

// StopAll stops all scheduled jobs gracefully.
func (jm *JobManager) StopAll() {
	jm.viewRebuildJob.Stop()
}
