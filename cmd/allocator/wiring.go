package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/Rajchodisetti/allocation-engine/internal/adapters"
	"github.com/Rajchodisetti/allocation-engine/internal/config"
	"github.com/Rajchodisetti/allocation-engine/internal/domain"
	"github.com/Rajchodisetti/allocation-engine/internal/outbox"
	"github.com/Rajchodisetti/allocation-engine/internal/portfolio"
	"github.com/Rajchodisetti/allocation-engine/internal/sentiment"
	"github.com/Rajchodisetti/allocation-engine/internal/storage"
	"github.com/Rajchodisetti/allocation-engine/internal/strategy"
)

// defaultStart anchors synthetic bars when the run has no start date.
var defaultStart = time.Date(2021, 1, 8, 0, 0, 0, 0, time.UTC)

// sink holds the durable repositories; both are nil for the memory driver.
type sink struct {
	orders    storage.Repository[domain.OrderRecord]
	telemetry storage.Repository[domain.RiskTelemetryRecord]
	db        *sqlx.DB
}

func (s *sink) Close() {
	if s.db != nil {
		_ = s.db.Close()
	}
}

func openSink(ctx context.Context, cfg config.Root, logger zerolog.Logger) (*sink, error) {
	s := &sink{}
	switch cfg.Storage.Driver {
	case config.DriverMemory:
		return s, nil
	case config.DriverJSONL:
		orders, err := outbox.Orders(cfg.Storage.OrdersPath)
		if err != nil {
			return nil, domain.PersistenceFailure("open order journal", err)
		}
		telemetry, err := outbox.Telemetry(cfg.Storage.TelemetryPath)
		if err != nil {
			return nil, domain.PersistenceFailure("open telemetry journal", err)
		}
		s.orders = storage.NewBreaker[domain.OrderRecord]("orders", orders)
		s.telemetry = storage.NewBreaker[domain.RiskTelemetryRecord]("telemetry", telemetry)
	case config.DriverPostgres:
		db, err := storage.OpenPostgres(ctx, cfg.Storage.Postgres)
		if err != nil {
			return nil, err
		}
		s.db = db
		timeout := cfg.Storage.Postgres.QueryTimeout
		s.orders = storage.NewBreaker[domain.OrderRecord]("orders", storage.NewPostgresOrders(db, timeout))
		s.telemetry = storage.NewBreaker[domain.RiskTelemetryRecord]("telemetry", storage.NewPostgresTelemetry(db, timeout))
	default:
		return nil, domain.ConfigurationError(fmt.Sprintf("unknown storage driver %q", cfg.Storage.Driver))
	}
	logger.Info().Str("driver", cfg.Storage.Driver).Msg("record sink ready")
	return s, nil
}

func sentimentProvider(cfg config.Root) (sentiment.Provider, error) {
	switch cfg.Sentiment.Mode {
	case config.SentimentStatic:
		return sentiment.Static(cfg.Sentiment.Static), nil
	case config.SentimentHTTP:
		return adapters.NewHTTPSentiment(cfg.Sentiment.HTTP)
	default:
		return sentiment.NewBetaProvider(cfg.Sentiment.Shapes), nil
	}
}

// buildMarket loads CSV bars for the universe and fills any symbol without a
// file with synthetic bars.
func buildMarket(cfg config.Root, logger zerolog.Logger) (*adapters.SimMarket, error) {
	rng, err := cfg.Run.Range()
	if err != nil {
		return nil, err
	}
	symbols := cfg.Universe.Symbols()
	bars, missing, err := adapters.LoadBarsDir(cfg.Run.DataDir, symbols, rng)
	if err != nil {
		return nil, domain.DataUnavailable("", fmt.Sprintf("load bars from %s: %v", cfg.Run.DataDir, err))
	}
	if len(missing) > 0 {
		start := rng.From
		if start.IsZero() {
			start = defaultStart
		}
		logger.Warn().Strs("symbols", missing).Int64("seed", cfg.Run.SyntheticSeed).Msg("no bar files, using synthetic bars")
		for sym, series := range adapters.NewSynthetic(cfg.Run.SyntheticSeed, nil).Generate(missing, start, cfg.Run.SyntheticDays) {
			bars[sym] = clip(series, rng)
		}
	}

	for _, sym := range symbols {
		logger.Debug().Str("symbol", sym).Int("bars", len(bars[sym])).Msg("bars loaded")
	}
	m := adapters.NewSimMarket(bars, portfolio.NewLedger(cfg.Run.LedgerPath, cfg.Run.InitialCash))
	m.RSIPeriod = strategy.RSIPeriod
	m.VolatilityWindow = strategy.VolatilityWindow
	return m, nil
}

func clip(series []domain.Bar, rng adapters.DateRange) []domain.Bar {
	if rng.To.IsZero() {
		return series
	}
	out := series[:0]
	for _, b := range series {
		if !b.Date.After(rng.To) {
			out = append(out, b)
		}
	}
	return out
}

func generateBars(cmd *cobra.Command, _ []string) error {
	cfg, err := setup()
	if err != nil {
		return err
	}
	dir := outDir
	if dir == "" {
		dir = cfg.Run.DataDir
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	rng, err := cfg.Run.Range()
	if err != nil {
		return err
	}
	start := rng.From
	if start.IsZero() {
		start = defaultStart
	}

	gen := adapters.NewSynthetic(cfg.Run.SyntheticSeed, nil)
	for sym, series := range gen.Generate(cfg.Universe.Symbols(), start, cfg.Run.SyntheticDays) {
		path := filepath.Join(dir, sym+".csv")
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		series = clip(series, rng)
		if err := adapters.WriteBars(f, series); err != nil {
			f.Close()
			return fmt.Errorf("write %s: %w", path, err)
		}
		if err := f.Close(); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d bars)\n", path, len(series))
	}
	return nil
}
