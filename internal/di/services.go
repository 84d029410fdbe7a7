// Package di provides dependency injection for services.
package di

import (
	"context"
	"fmt"
	"time"

	"github.com/aristath/investlog/internal/clientdata"
	"github.com/aristath/investlog/internal/clients/alphavantage"
	"github.com/aristath/investlog/internal/clients/exchangerate"
	"github.com/aristath/investlog/internal/clients/finnhub"
	"github.com/aristath/investlog/internal/clients/yahoo"
	"github.com/aristath/investlog/internal/config"
	"github.com/aristath/investlog/internal/modules/charts"
	"github.com/aristath/investlog/internal/modules/ledger"
	"github.com/aristath/investlog/internal/modules/portfolio"
	"github.com/aristath/investlog/internal/modules/prices"
	"github.com/aristath/investlog/internal/modules/profit"
	"github.com/aristath/investlog/internal/modules/quotes"
	"github.com/aristath/investlog/internal/modules/snapshots"
	"github.com/aristath/investlog/internal/reliability"
	"github.com/aristath/investlog/internal/services"
	"github.com/rs/zerolog"
)

// InitializeServices creates repositories, clients and services on top of
// the databases already held by container
func InitializeServices(container *Container, cfg *config.Config, log zerolog.Logger) error {
	if container == nil {
		return fmt.Errorf("container cannot be nil")
	}

	loc, err := cfg.Location()
	if err != nil {
		return err
	}
	container.Location = loc

	hour, minute, err := config.ParseCutover(cfg.Valuation.CacheCutover)
	if err != nil {
		return err
	}

	// ==========================================
	// STEP 1: Repositories
	// ==========================================
	container.LedgerRepo = ledger.NewRepository(container.LedgerDB.Conn(), log)
	container.Aggregator = portfolio.NewAggregator(container.LedgerDB.Conn(), log)
	container.SnapshotRepo = snapshots.NewRepository(container.HistoryDB.Conn(), log)
	container.ProfitRepo = profit.NewRepository(container.HistoryDB.Conn(), log)
	container.PriceRepo = prices.NewRepository(container.CacheDB.Conn())
	container.ClientDataRepo = clientdata.NewRepository(container.CacheDB.Conn())

	// ==========================================
	// STEP 2: External clients
	// ==========================================
	providers, err := buildProviders(cfg, log)
	if err != nil {
		return err
	}
	container.QuoteFetcher = quotes.NewFetcher(providers, cfg.Quotes.RetryBaseDelay, log)
	container.ExchangeRateClient = exchangerate.NewClient(container.ClientDataRepo, log)

	// ==========================================
	// STEP 3: Prices
	// ==========================================
	container.PriceCache = prices.NewCache(container.PriceRepo, container.SnapshotRepo, prices.CacheConfig{
		Location:      loc,
		CutoverHour:   hour,
		CutoverMinute: minute,
	}, log)
	container.PriceService = prices.NewService(
		container.PriceCache,
		container.QuoteFetcher,
		cfg.Quotes.InteractiveRetries,
		log,
	)

	// ==========================================
	// STEP 4: Profit accounting
	// ==========================================
	container.Calculator = profit.NewCalculator(
		container.Aggregator,
		container.SnapshotRepo,
		container.PriceCache,
		container.ProfitRepo,
		cfg.Valuation.PersistIncomplete,
		log,
	)
	container.Recalculator = profit.NewRecalculator(
		container.Calculator,
		cfg.Valuation.RecalcStartDate,
		container.Today,
		log,
	)
	container.Rollup = profit.NewRollup(container.ProfitRepo, log)

	// ==========================================
	// STEP 5: Presentation
	// ==========================================
	container.ChartsService = charts.NewService(container.ProfitRepo, container.SnapshotRepo, log)
	container.ConversionService = services.NewConversionService(
		container.ExchangeRateClient,
		cfg.Currency.Base,
		cfg.Currency.Display,
		log,
	)

	// ==========================================
	// STEP 6: Backups (optional)
	// ==========================================
	if cfg.Backup.Enabled() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		store, err := reliability.NewS3Client(ctx, reliability.S3Config{
			Bucket:          cfg.Backup.Bucket,
			Prefix:          cfg.Backup.Prefix,
			Endpoint:        cfg.Backup.Endpoint,
			Region:          cfg.Backup.Region,
			AccessKeyID:     cfg.Backup.AccessKeyID,
			SecretAccessKey: cfg.Backup.SecretAccessKey,
		}, log)
		if err != nil {
			return fmt.Errorf("failed to create backup client: %w", err)
		}
		container.BackupService = reliability.NewBackupService(store, container.Databases(), cfg.DataDir, log)
	} else {
		log.Info().Msg("Backups disabled (BACKUP_BUCKET not set)")
	}

	log.Info().
		Strs("providers", container.QuoteFetcher.Providers()).
		Str("timezone", loc.String()).
		Str("cutover", cfg.Valuation.CacheCutover).
		Msg("Services initialized")

	return nil
}

// buildProviders creates the quote providers in configured fallback order.
// Providers that need an API key are skipped when none is configured.
func buildProviders(cfg *config.Config, log zerolog.Logger) ([]quotes.Provider, error) {
	var providers []quotes.Provider
	for _, name := range cfg.Quotes.Providers {
		switch name {
		case "finnhub":
			if cfg.Quotes.FinnhubKey == "" {
				log.Warn().Msg("FINNHUB_KEY not set, skipping finnhub provider")
				continue
			}
			providers = append(providers, finnhub.NewClient(cfg.Quotes.FinnhubKey, log))
		case "yahoo":
			providers = append(providers, yahoo.NewClient(log))
		case "alphavantage":
			if cfg.Quotes.AlphaVantageKey == "" {
				log.Warn().Msg("ALPHAVANTAGE_KEY not set, skipping alphavantage provider")
				continue
			}
			providers = append(providers, alphavantage.NewClient(cfg.Quotes.AlphaVantageKey, log))
		default:
			return nil, fmt.Errorf("unknown quote provider %q", name)
		}
	}

	if len(providers) == 0 {
		return nil, fmt.Errorf("no usable quote provider (configured: %v)", cfg.Quotes.Providers)
	}
	return providers, nil
}
