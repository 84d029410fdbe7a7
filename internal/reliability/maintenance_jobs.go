package reliability

import (
	"context"
	"fmt"
	"time"

	"github.com/aristath/investlog/internal/database"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/disk"
)

// Free space thresholds for the data directory.
const (
	diskCriticalBytes = 500 << 20 // 500 MB
	diskWarningBytes  = 5 << 30   // 5 GB
)

// DailyMaintenanceJob checkpoints WAL files, checks free disk space and
// logs database sizes
type DailyMaintenanceJob struct {
	databases []*database.DB
	dataDir   string
	usage     func(path string) (*disk.UsageStat, error)
	log       zerolog.Logger
}

// NewDailyMaintenanceJob creates a new daily maintenance job
func NewDailyMaintenanceJob(databases []*database.DB, dataDir string, log zerolog.Logger) *DailyMaintenanceJob {
	return &DailyMaintenanceJob{
		databases: databases,
		dataDir:   dataDir,
		usage:     disk.Usage,
		log:       log.With().Str("job", "daily_maintenance").Logger(),
	}
}

// Run executes the daily maintenance job
func (j *DailyMaintenanceJob) Run() error {
	j.log.Info().Msg("Starting daily maintenance")
	startTime := time.Now()

	for _, db := range j.databases {
		if err := db.WALCheckpoint("TRUNCATE"); err != nil {
			// Not critical, retried tomorrow
			j.log.Warn().Err(err).Str("database", db.Name()).Msg("WAL checkpoint failed")
		}
	}

	if err := j.checkDiskSpace(); err != nil {
		return err
	}

	j.logDatabaseSizes()

	j.log.Info().
		Dur("duration_ms", time.Since(startTime)).
		Msg("Daily maintenance completed successfully")

	return nil
}

// Name returns the job name for scheduler
func (j *DailyMaintenanceJob) Name() string {
	return "daily_maintenance"
}

// checkDiskSpace fails when the data directory is almost out of space
func (j *DailyMaintenanceJob) checkDiskSpace() error {
	stat, err := j.usage(j.dataDir)
	if err != nil {
		return fmt.Errorf("failed to stat filesystem: %w", err)
	}

	availableGB := float64(stat.Free) / 1e9
	j.log.Debug().Float64("available_gb", availableGB).Float64("used_percent", stat.UsedPercent).Msg("Disk space check")

	switch {
	case stat.Free < diskCriticalBytes:
		j.log.Error().Float64("available_gb", availableGB).Msg("CRITICAL: Insufficient disk space")
		return fmt.Errorf("only %.2f GB free in %s", availableGB, j.dataDir)
	case stat.Free < diskWarningBytes:
		j.log.Warn().Float64("available_gb", availableGB).Msg("Disk space running low")
	}

	return nil
}

func (j *DailyMaintenanceJob) logDatabaseSizes() {
	for _, db := range j.databases {
		stats, err := db.GetStats()
		if err != nil {
			j.log.Warn().Err(err).Str("database", db.Name()).Msg("Failed to get database stats")
			continue
		}
		j.log.Info().
			Str("database", db.Name()).
			Int64("size_bytes", stats.SizeBytes).
			Int64("wal_bytes", stats.WALSizeBytes).
			Int64("free_pages", stats.FreelistCount).
			Msg("Database size")
	}
}

// BackupJob uploads a backup and rotates old ones
type BackupJob struct {
	service       *BackupService
	retentionDays int
	timeout       time.Duration
	log           zerolog.Logger
}

// NewBackupJob creates a new backup job
func NewBackupJob(service *BackupService, retentionDays int, log zerolog.Logger) *BackupJob {
	return &BackupJob{
		service:       service,
		retentionDays: retentionDays,
		timeout:       30 * time.Minute,
		log:           log.With().Str("job", "backup").Logger(),
	}
}

// Run executes the backup job. A failed rotation is logged; the new
// backup is already stored.
func (j *BackupJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	if _, err := j.service.CreateAndUploadBackup(ctx); err != nil {
		return err
	}

	if _, err := j.service.RotateOldBackups(ctx, j.retentionDays); err != nil {
		j.log.Error().Err(err).Msg("Backup rotation failed")
	}
	return nil
}

// Name returns the job name for scheduler
func (j *BackupJob) Name() string {
	return "backup"
}
