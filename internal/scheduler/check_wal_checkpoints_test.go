package scheduler

import (
	"testing"

	testingpkg "github.com/aristath/investlog/internal/testing"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestCheckWALCheckpointsJob_Name(t *testing.T) {
	job := &CheckWALCheckpointsJob{
		log: zerolog.Nop(),
	}
	assert.Equal(t, "check_wal_checkpoints", job.Name())
}

func TestCheckWALCheckpointsJob_Run_NoDatabases(t *testing.T) {
	log := zerolog.New(nil).Level(zerolog.Disabled)
	job := NewCheckWALCheckpointsJob(nil, nil, nil)
	job.SetLogger(log)

	err := job.Run()
	assert.NoError(t, err) // Should handle nil databases gracefully
}

func TestCheckWALCheckpointsJob_Run(t *testing.T) {
	dbs := testingpkg.NewTestDatabases(t)
	testingpkg.SeedTransaction(t, dbs.Ledger, "AAPL", "2025-12-03", 150, 10)

	job := NewCheckWALCheckpointsJob(dbs.Ledger, dbs.History, dbs.Cache)
	assert.NoError(t, job.Run())
}
