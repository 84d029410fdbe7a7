package reliability

import (
	"context"
	"errors"
	"testing"

	"github.com/aristath/investlog/internal/database"
	testingpkg "github.com/aristath/investlog/internal/testing"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func freeSpace(free uint64) func(string) (*disk.UsageStat, error) {
	return func(path string) (*disk.UsageStat, error) {
		return &disk.UsageStat{Path: path, Free: free}, nil
	}
}

func TestDailyMaintenanceJob_Run(t *testing.T) {
	dbs := testingpkg.NewTestDatabases(t)
	job := NewDailyMaintenanceJob([]*database.DB{dbs.Ledger, dbs.History, dbs.Cache}, t.TempDir(), zerolog.Nop())
	job.usage = freeSpace(100 << 30)

	assert.Equal(t, "daily_maintenance", job.Name())
	require.NoError(t, job.Run())
}

func TestDailyMaintenanceJob_DiskSpace(t *testing.T) {
	job := NewDailyMaintenanceJob(nil, t.TempDir(), zerolog.Nop())

	job.usage = freeSpace(1 << 30)
	assert.NoError(t, job.Run(), "low but not critical")

	job.usage = freeSpace(100 << 20)
	assert.Error(t, job.Run())

	job.usage = func(string) (*disk.UsageStat, error) { return nil, errors.New("no such device") }
	assert.Error(t, job.Run())
}

func TestBackupJob_Run(t *testing.T) {
	dbs := testingpkg.NewTestDatabases(t)
	store := newMemStore()
	seedBackups(store, "2020-01-01-000000", "2020-01-02-000000", "2020-01-03-000000", "2020-01-04-000000")

	svc := NewBackupService(store, []*database.DB{dbs.Ledger}, t.TempDir(), zerolog.Nop())
	job := NewBackupJob(svc, 30, zerolog.Nop())

	assert.Equal(t, "backup", job.Name())
	require.NoError(t, job.Run())

	backups, err := svc.ListBackups(context.Background())
	require.NoError(t, err)
	assert.Len(t, backups, 3, "new backup plus the two newest old ones")
}
