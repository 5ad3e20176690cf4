// Package backtest drives an engine across a replayed market and summarises
// the run.
package backtest

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/Rajchodisetti/allocation-engine/internal/domain"
	"github.com/Rajchodisetti/allocation-engine/internal/engine"
	"github.com/Rajchodisetti/allocation-engine/internal/observ"
	"github.com/Rajchodisetti/allocation-engine/internal/risk"
)

// Market is an engine market that can be stepped through time.
type Market interface {
	engine.Market
	Advance() bool
}

// Bar is what the runner knows after one engine step.
type Bar struct {
	Date           time.Time
	PortfolioValue float64
	Cash           float64
	Orders         []domain.OrderRecord
	Telemetry      *domain.RiskTelemetryRecord
}

type Runner struct {
	engine *engine.Engine
	market Market
	log    zerolog.Logger
	onBar  func(Bar)
}

func NewRunner(e *engine.Engine, m Market, logger zerolog.Logger) *Runner {
	return &Runner{engine: e, market: m, log: logger}
}

// OnBar registers a callback invoked after every processed bar.
func (r *Runner) OnBar(fn func(Bar)) {
	r.onBar = fn
}

// Run replays the market to its end. On cancellation it returns the result
// accumulated so far together with the context error.
func (r *Runner) Run(ctx context.Context) (*Result, error) {
	rec := r.engine.Recorder()
	res := &Result{InitialValue: r.market.PortfolioValue()}
	dd := risk.NewDrawdownTracker()
	started := time.Now()

	r.log.Info().Str("run_id", r.engine.RunID()).Float64("initial_value", res.InitialValue).Msg("backtest started")

	var runErr error
	for r.market.Advance() {
		trades, telemetry := rec.TradeCount(), rec.TelemetryCount()
		if err := r.engine.Step(ctx, r.market); err != nil {
			runErr = fmt.Errorf("step %s: %w", r.market.Date().Format("2006-01-02"), err)
			break
		}
		bar := Bar{
			Date:           r.market.Date(),
			PortfolioValue: r.market.PortfolioValue(),
			Cash:           r.market.Cash(),
			Orders:         rec.TradesSince(trades),
		}
		if t := rec.TelemetrySince(telemetry); len(t) > 0 {
			bar.Telemetry = &t[len(t)-1]
		}
		res.Equity = append(res.Equity, EquityPoint{Date: bar.Date, Value: bar.PortfolioValue, Cash: bar.Cash})
		dd.UpdateNAV(bar.PortfolioValue)
		if r.onBar != nil {
			r.onBar(bar)
		}
	}

	res.finish(rec.Trades(), dd)
	observ.RecordDuration("backtest", time.Since(started), nil)
	r.log.Info().
		Int("bars", len(res.Equity)).
		Int("orders", res.Orders).
		Float64("final_value", res.FinalValue).
		Float64("total_return_pct", res.TotalReturnPct).
		Float64("max_drawdown_pct", res.MaxDrawdownPct).
		Msg("backtest finished")
	return res, runErr
}
