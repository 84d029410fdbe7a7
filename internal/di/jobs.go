// Package di provides dependency injection for scheduler jobs.
package di

import (
	"fmt"

	"github.com/aristath/investlog/internal/clientdata"
	"github.com/aristath/investlog/internal/config"
	"github.com/aristath/investlog/internal/reliability"
	"github.com/aristath/investlog/internal/scheduler"
	"github.com/rs/zerolog"
)

// Housekeeping schedules (cron with seconds, in the configured time zone)
const (
	scheduleWALCheckpoints    = "0 */30 * * * *"
	scheduleCoreDatabases     = "0 15 3 * * *"
	scheduleDailyMaintenance  = "0 0 4 * * *"
	scheduleClientDataCleanup = "0 5 * * * *"
)

// RegisterJobs creates every background job. Jobs are scheduled separately
// by ScheduleJobs so the CLI can run them without starting cron.
func RegisterJobs(container *Container, cfg *config.Config, log zerolog.Logger) (*JobInstances, error) {
	if container == nil {
		return nil, fmt.Errorf("container cannot be nil")
	}

	instances := &JobInstances{}

	// ==========================================
	// Daily refresh: prices -> snapshots -> profit
	// ==========================================
	instances.DailyRefresh = scheduler.NewDailyRefreshJob(scheduler.DailyRefreshConfig{
		Symbols:   container.Aggregator,
		Prices:    container.PriceService,
		Snapshots: container.SnapshotRepo,
		Profits:   container.Calculator,
		Today:     container.Today,
		Retries:   cfg.Quotes.BatchRetries,
		Delay:     cfg.Schedule.RefreshDelay,
		Log:       log,
	})

	// ==========================================
	// Database health
	// ==========================================
	instances.WALCheckpoints = scheduler.NewCheckWALCheckpointsJob(container.Databases()...)
	instances.WALCheckpoints.SetLogger(log)

	// The cache database can be rebuilt, so only the ledger and history
	// are integrity checked.
	instances.CoreDatabases = scheduler.NewCheckCoreDatabasesJob(container.LedgerDB, container.HistoryDB)
	instances.CoreDatabases.SetLogger(log)

	instances.DailyMaintenance = reliability.NewDailyMaintenanceJob(container.Databases(), cfg.DataDir, log)
	instances.ClientDataCleanup = clientdata.NewCleanupJob(container.ClientDataRepo, log)

	// ==========================================
	// Backups (optional)
	// ==========================================
	if container.BackupService != nil {
		instances.Backup = reliability.NewBackupJob(container.BackupService, cfg.Backup.RetentionDays, log)
	}

	log.Info().Msg("Jobs registered")
	return instances, nil
}

// ScheduleJobs adds every registered job to sched
func ScheduleJobs(sched *scheduler.Scheduler, jobs *JobInstances, cfg *config.Config) error {
	entries := []struct {
		schedule string
		job      scheduler.Job
	}{
		{cfg.Schedule.Refresh, jobs.DailyRefresh},
		{scheduleWALCheckpoints, jobs.WALCheckpoints},
		{scheduleCoreDatabases, jobs.CoreDatabases},
		{scheduleDailyMaintenance, jobs.DailyMaintenance},
		{scheduleClientDataCleanup, jobs.ClientDataCleanup},
	}
	if jobs.Backup != nil {
		entries = append(entries, struct {
			schedule string
			job      scheduler.Job
		}{cfg.Schedule.Backup, jobs.Backup})
	}

	for _, e := range entries {
		if err := sched.AddJob(e.schedule, e.job); err != nil {
			return err
		}
	}
	return nil
}
