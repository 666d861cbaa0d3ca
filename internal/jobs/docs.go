// Package jobs provides scheduled background tasks for the allocation
// service, implemented with github.com/robfig/cron/v3.
//
// # Available Jobs
//
// 1. ViewRebuildJob - Periodically rebuilds the allocations read model by
// replaying the committed event history against a cleared view store.
//
// # Usage
//
// Jobs are managed through JobManager which provides a unified interface:
//
//	jobManager := jobs.NewJobManager(eventLog, viewRepo, "@every 1h", logger)
//
//	if err := jobManager.StartAll(); err != nil {
//		log.Fatal("Failed to start jobs:", err)
//	}
//
//	defer jobManager.StopAll()
//
// # Error Handling
//
// A failed rebuild run is logged and retried on the next tick; the view
// keeps serving its last state in the meantime.
package jobs
