package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Rajchodisetti/allocation-engine/internal/api"
	"github.com/Rajchodisetti/allocation-engine/internal/backtest"
	"github.com/Rajchodisetti/allocation-engine/internal/config"
	"github.com/Rajchodisetti/allocation-engine/internal/domain"
	"github.com/Rajchodisetti/allocation-engine/internal/engine"
	"github.com/Rajchodisetti/allocation-engine/internal/observ"
	"github.com/Rajchodisetti/allocation-engine/internal/report"
)

const version = "0.3.0"

var (
	configPath string
	logLevel   string
	page       int
	pageSize   int
	outDir     string
)

var rootCmd = &cobra.Command{
	Use:   "allocator",
	Short: "Rules-based multi-asset allocation engine",
	Long: `allocator replays daily bars through a rules-based portfolio engine:
initial allocation, drift rebalancing, adaptive hedging and risk control,
with every order and telemetry record written to the configured sink.`,
	SilenceUsage: true,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a backtest over the configured date range",
	RunE:  runBacktest,
}

var ordersCmd = &cobra.Command{
	Use:   "orders",
	Short: "List recorded orders from the configured sink",
	RunE:  listOrders,
}

var telemetryCmd = &cobra.Command{
	Use:   "telemetry",
	Short: "List recorded risk telemetry from the configured sink",
	RunE:  listTelemetry,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve health, metrics and record listings over HTTP",
	RunE:  serve,
}

var barsCmd = &cobra.Command{
	Use:   "gen-bars",
	Short: "Write synthetic CSV bars for the configured universe",
	RunE:  generateBars,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "configs/allocator.yaml", "path to the YAML configuration")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override the configured log level")

	for _, cmd := range []*cobra.Command{ordersCmd, telemetryCmd} {
		cmd.Flags().IntVar(&page, "page", 1, "page number, from 1")
		cmd.Flags().IntVar(&pageSize, "page-size", 10, "records per page")
	}
	barsCmd.Flags().StringVar(&outDir, "out", "", "output directory (defaults to run.data_dir)")

	rootCmd.AddCommand(runCmd, ordersCmd, telemetryCmd, serveCmd, barsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// setup loads and validates configuration and configures logging.
func setup() (config.Root, error) {
	cfg, err := config.Load(configPath)
	if err != nil && os.IsNotExist(err) && !rootCmd.PersistentFlags().Changed("config") {
		cfg, err = config.Load("")
	}
	if err != nil {
		return cfg, fmt.Errorf("load config: %w", err)
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	if err := observ.Setup(cfg.Log.Level, cfg.Log.Format, os.Stderr); err != nil {
		return cfg, err
	}
	observ.SetVersion(version)
	return cfg, nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func runBacktest(cmd *cobra.Command, _ []string) error {
	cfg, err := setup()
	if err != nil {
		return err
	}
	ctx, cancel := signalContext()
	defer cancel()
	logger := observ.Logger()

	s, err := openSink(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer s.Close()

	provider, err := sentimentProvider(cfg)
	if err != nil {
		return err
	}
	market, err := buildMarket(cfg, logger)
	if err != nil {
		return err
	}

	eng, err := engine.New(cfg.Strategy, cfg.Universe, provider, engine.NewRecorder(s.orders, s.telemetry, logger), logger)
	if err != nil {
		return err
	}

	out := report.NewPrinter(cmd.OutOrStdout())
	runner := backtest.NewRunner(eng, market, logger)
	initialCash := market.Cash()
	runner.OnBar(func(b backtest.Bar) {
		if len(b.Orders) > 0 && b.Orders[0].Stage == domain.StageAllocation {
			fmt.Fprintf(cmd.OutOrStdout(), "\nInitial allocation on %s\n", b.Date.Format("2006-01-02"))
			_ = out.Allocation(cfg.Universe, cfg.Strategy.Weights(), initialCash, b.Orders)
			fmt.Fprintln(cmd.OutOrStdout())
			_ = out.Orders(b.Orders)
			return
		}
		if cfg.Run.PrintDaily {
			fmt.Fprintln(cmd.OutOrStdout())
			_ = out.DailyStats(b)
			if len(b.Orders) > 0 {
				_ = out.Rebalance(cfg.Universe, b.Orders)
				_ = out.Orders(b.Orders)
			}
		}
	})

	res, runErr := runner.Run(ctx)
	if err := market.Ledger().Save(); err != nil {
		logger.Error().Err(err).Str("path", cfg.Run.LedgerPath).Msg("failed to save ledger")
	}
	fmt.Fprintln(cmd.OutOrStdout())
	if err := out.Result(res); err != nil {
		return err
	}
	return runErr
}

func listOrders(cmd *cobra.Command, _ []string) error {
	cfg, err := setup()
	if err != nil {
		return err
	}
	ctx, cancel := signalContext()
	defer cancel()

	s, err := openSink(ctx, cfg, observ.Logger())
	if err != nil {
		return err
	}
	defer s.Close()
	if s.orders == nil {
		return fmt.Errorf("storage driver %q keeps no records between runs", cfg.Storage.Driver)
	}

	res, err := s.orders.List(ctx, page, pageSize)
	if err != nil {
		return err
	}
	if err := report.NewPrinter(cmd.OutOrStdout()).Orders(res.Data); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "page %d of %d (%d records)\n", res.Page, res.Pages, res.Records)
	return nil
}

func listTelemetry(cmd *cobra.Command, _ []string) error {
	cfg, err := setup()
	if err != nil {
		return err
	}
	ctx, cancel := signalContext()
	defer cancel()

	s, err := openSink(ctx, cfg, observ.Logger())
	if err != nil {
		return err
	}
	defer s.Close()
	if s.telemetry == nil {
		return fmt.Errorf("storage driver %q keeps no records between runs", cfg.Storage.Driver)
	}

	res, err := s.telemetry.List(ctx, page, pageSize)
	if err != nil {
		return err
	}
	out := report.NewPrinter(cmd.OutOrStdout())
	for _, t := range res.Data {
		if err := out.DailyStats(backtest.Bar{Date: t.Date, PortfolioValue: t.PortfolioValue, Cash: t.Cash, Telemetry: &t}); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout())
	}
	fmt.Fprintf(cmd.OutOrStdout(), "page %d of %d (%d records)\n", res.Page, res.Pages, res.Records)
	return nil
}

func serve(_ *cobra.Command, _ []string) error {
	cfg, err := setup()
	if err != nil {
		return err
	}
	ctx, cancel := signalContext()
	defer cancel()
	logger := observ.Logger()

	s, err := openSink(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer s.Close()
	rec := engine.NewRecorder(s.orders, s.telemetry, logger)

	srv := api.NewServer(cfg.Server.Addr, rec.Orders(), rec.TelemetryRepository(), logger)
	errc := make(chan error, 1)
	go func() { errc <- srv.Start() }()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
	defer done()
	return srv.Shutdown(shutdownCtx)
}
