// Package jobs provides scheduled background tasks for the lifecycle engine.
//
// Jobs use github.com/robfig/cron/v3 with second-resolution schedules and are
// started and stopped together through JobManager:
//
//	manager := jobs.NewJobManager(jobs.NewDocumentRetryJob(store, retryHandler, cfg, logger))
//	if err := manager.StartAll(); err != nil {
//		return err
//	}
//	defer manager.StopAll()
//
// DocumentRetryJob sweeps booked shipments whose BOL or carrier confirmation
// has not been generated yet. Runs never overlap.
package jobs
