package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/aristath/investlog/internal/database"
	"github.com/rs/zerolog"
)

// CheckCoreDatabasesJob verifies integrity of the databases that cannot be
// rebuilt: the ledger and the profit history
type CheckCoreDatabasesJob struct {
	log       zerolog.Logger
	databases []*database.DB
	timeout   time.Duration
}

// NewCheckCoreDatabasesJob creates a new CheckCoreDatabasesJob
func NewCheckCoreDatabasesJob(databases ...*database.DB) *CheckCoreDatabasesJob {
	return &CheckCoreDatabasesJob{
		log:       zerolog.Nop(),
		databases: databases,
		timeout:   5 * time.Minute,
	}
}

// SetLogger sets the logger for the job
func (j *CheckCoreDatabasesJob) SetLogger(log zerolog.Logger) {
	j.log = log.With().Str("job", j.Name()).Logger()
}

// Name returns the job name
func (j *CheckCoreDatabasesJob) Name() string {
	return "check_core_databases"
}

// Run executes the check core databases job
func (j *CheckCoreDatabasesJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	for _, db := range j.databases {
		if db == nil {
			j.log.Warn().Msg("Database not initialized, skipping")
			continue
		}

		if err := db.HealthCheck(ctx); err != nil {
			// Core database corruption is critical - cannot auto-recover
			j.log.Error().
				Err(err).
				Str("database", db.Name()).
				Msg("Core database integrity check failed")
			return fmt.Errorf("database %s is corrupted: %w", db.Name(), err)
		}

		j.log.Debug().Str("database", db.Name()).Msg("Database integrity OK")
	}

	j.log.Info().Msg("All core databases integrity check passed")
	return nil
}
