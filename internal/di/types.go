// Package di provides dependency injection type definitions.
package di

import (
	"errors"
	"time"

	"github.com/aristath/investlog/internal/clientdata"
	"github.com/aristath/investlog/internal/clients/exchangerate"
	"github.com/aristath/investlog/internal/database"
	"github.com/aristath/investlog/internal/domain"
	"github.com/aristath/investlog/internal/modules/charts"
	"github.com/aristath/investlog/internal/modules/ledger"
	"github.com/aristath/investlog/internal/modules/portfolio"
	"github.com/aristath/investlog/internal/modules/prices"
	"github.com/aristath/investlog/internal/modules/profit"
	"github.com/aristath/investlog/internal/modules/quotes"
	"github.com/aristath/investlog/internal/modules/snapshots"
	"github.com/aristath/investlog/internal/reliability"
	"github.com/aristath/investlog/internal/scheduler"
	"github.com/aristath/investlog/internal/services"
)

// Container holds all dependencies for the application.
// It is created by Wire() and passed to the server and the CLI.
type Container struct {
	// Databases
	LedgerDB  *database.DB // Instruments and transactions (cannot be rebuilt)
	HistoryDB *database.DB // Price snapshots and daily profit records
	CacheDB   *database.DB // Latest quotes and cached API payloads

	// Clients
	ClientDataRepo     *clientdata.Repository
	ExchangeRateClient *exchangerate.Client
	QuoteFetcher       *quotes.Fetcher

	// Repositories
	LedgerRepo   *ledger.Repository
	SnapshotRepo *snapshots.Repository
	PriceRepo    *prices.Repository
	ProfitRepo   *profit.Repository

	// Services
	Aggregator        *portfolio.Aggregator
	PriceCache        *prices.Cache
	PriceService      *prices.Service
	Calculator        *profit.Calculator
	Recalculator      *profit.Recalculator
	Rollup            *profit.Rollup
	ChartsService     *charts.Service
	ConversionService *services.ConversionService
	BackupService     *reliability.BackupService // nil when backups are disabled

	Location *time.Location
}

// JobInstances holds the scheduled jobs so they can also be run on demand
type JobInstances struct {
	DailyRefresh      *scheduler.DailyRefreshJob
	WALCheckpoints    *scheduler.CheckWALCheckpointsJob
	CoreDatabases     *scheduler.CheckCoreDatabasesJob
	DailyMaintenance  *reliability.DailyMaintenanceJob
	ClientDataCleanup *clientdata.CleanupJob
	Backup            *reliability.BackupJob // nil when backups are disabled
}

// Today returns the current date in the configured time zone
func (c *Container) Today() string {
	return domain.FormatDate(c.PriceCache.Now())
}

// Databases returns every open database
func (c *Container) Databases() []*database.DB {
	var dbs []*database.DB
	for _, db := range []*database.DB{c.LedgerDB, c.HistoryDB, c.CacheDB} {
		if db != nil {
			dbs = append(dbs, db)
		}
	}
	return dbs
}

// Close closes all databases
func (c *Container) Close() error {
	var errs []error
	for _, db := range c.Databases() {
		if err := db.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
