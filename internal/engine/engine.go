// Package engine implements the per-bar allocation state machine: initial
// allocation once, then rebalancing, hedging and risk control on every
// following bar.
package engine

import (
	"context"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Rajchodisetti/allocation-engine/internal/domain"
	"github.com/Rajchodisetti/allocation-engine/internal/observ"
	"github.com/Rajchodisetti/allocation-engine/internal/risk"
	"github.com/Rajchodisetti/allocation-engine/internal/sentiment"
	"github.com/Rajchodisetti/allocation-engine/internal/strategy"
	"github.com/Rajchodisetti/allocation-engine/internal/universe"
)

// Market is the execution engine the core trades against. Cash and
// positions are owned by the Market; every stage re-reads them.
type Market interface {
	Date() time.Time
	HasData(symbol string) bool
	// Price is the latest close.
	Price(symbol string) (float64, error)
	// TrailingCloses returns up to n closes, oldest first.
	TrailingCloses(symbol string, n int) ([]float64, error)
	Position(symbol string) int
	// Positions lists symbols with a non-zero position in stable order.
	Positions() []string
	Buy(symbol string, size int) (domain.Fill, error)
	Sell(symbol string, size int) (domain.Fill, error)
	Cash() float64
	AddCash(delta float64)
	PortfolioValue() float64
	Indicator(name, symbol string) (float64, error)
}

// Indicator names requested from the Market.
const (
	IndicatorRSI        = "rsi"
	IndicatorVolatility = "volatility"
	IndicatorPanic      = "panic"
)

type Engine struct {
	params    strategy.Params
	universe  universe.Universe
	sentiment sentiment.Provider
	recorder  *Recorder
	log       zerolog.Logger

	stop          risk.VolatilityStop
	concentration risk.ConcentrationCap

	initialized bool
	runID       string
}

// New validates the configuration and builds an engine. A nil provider means
// sentiment is always unavailable; a nil recorder keeps records in memory only.
func New(p strategy.Params, u universe.Universe, provider sentiment.Provider, rec *Recorder, logger zerolog.Logger) (*Engine, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if err := u.Validate(p.Weights()); err != nil {
		return nil, err
	}
	if rec == nil {
		rec = NewRecorder(nil, nil, logger)
	}
	runID := uuid.NewString()
	return &Engine{
		params:    p,
		universe:  u,
		sentiment: provider,
		recorder:  rec,
		log:       logger.With().Str("run_id", runID).Logger(),
		stop: risk.VolatilityStop{
			Threshold:      p.VolatilityStopZScore,
			ReduceFraction: p.VolatilityStopReduceFraction,
			Window:         strategy.VolatilityWindow,
		},
		concentration: risk.ConcentrationCap{
			Limit:          p.ConcentrationLimit,
			ReduceFraction: p.ConcentrationReduceFraction,
		},
		runID: runID,
	}, nil
}

func (e *Engine) Initialized() bool {
	return e.initialized
}

func (e *Engine) RunID() string {
	return e.runID
}

func (e *Engine) Recorder() *Recorder {
	return e.recorder
}

func (e *Engine) Params() strategy.Params {
	return e.params
}

// Step processes one bar. The first bar with any instrument data runs the
// initial allocation only; later bars run rebalancing, hedging and risk
// control in that order. Cancellation is checked between stages.
func (e *Engine) Step(ctx context.Context, m Market) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	start := time.Now()
	defer func() {
		observ.RecordDuration("bar_step", time.Since(start), nil)
	}()
	observ.IncCounter("bars_total", nil)

	if !e.initialized {
		if !e.anyData(m) {
			e.log.Debug().Time("date", m.Date()).Msg("no instrument data yet")
			return nil
		}
		e.allocate(ctx, m)
		e.initialized = true
		e.publishGauges(m)
		return nil
	}

	stages := []func(context.Context, Market){e.rebalance, e.hedge, e.riskControl}
	for _, stage := range stages {
		if err := ctx.Err(); err != nil {
			return err
		}
		stage(ctx, m)
	}
	e.publishGauges(m)
	return nil
}

func (e *Engine) anyData(m Market) bool {
	for _, c := range universe.All {
		for _, sym := range e.universe.Instruments(c) {
			if m.HasData(sym) {
				return true
			}
		}
	}
	return false
}

func (e *Engine) publishGauges(m Market) {
	observ.SetGauge("portfolio_value", m.PortfolioValue(), nil)
	observ.SetGauge("cash", m.Cash(), nil)
}

// CategoryWeights returns each category's held market value over the
// portfolio value. Only long positions count.
func (e *Engine) CategoryWeights(m Market) (map[universe.Category]float64, error) {
	pv := m.PortfolioValue()
	if pv <= 0 {
		return nil, domain.DataUnavailable("", "portfolio value is not positive")
	}
	out := make(map[universe.Category]float64, len(universe.All))
	for _, c := range universe.All {
		out[c] = e.categoryValue(m, e.universe.Instruments(c)) / pv
	}
	return out, nil
}

func (e *Engine) categoryValue(m Market, symbols []string) float64 {
	total := 0.0
	for _, sym := range symbols {
		size := m.Position(sym)
		if size <= 0 {
			continue
		}
		px, err := m.Price(sym)
		if err != nil || px <= 0 {
			continue
		}
		total += float64(size) * px
	}
	return total
}

// execute places one order, charges commission and slippage, and records it.
// It reports false when the market rejected the order.
func (e *Engine) execute(ctx context.Context, m Market, stage domain.Stage, action domain.Action, symbol string, size int) bool {
	var (
		fill domain.Fill
		err  error
	)
	if action == domain.ActionBuy {
		size = e.affordable(m, stage, symbol, size)
		if size <= 0 {
			e.skip(stage, symbol, "insufficient_cash", nil)
			return false
		}
		fill, err = m.Buy(symbol, size)
	} else {
		fill, err = m.Sell(symbol, size)
	}
	if err != nil {
		e.log.Warn().Err(err).Str("symbol", symbol).Str("stage", string(stage)).
			Str("action", string(action)).Int("size", size).Msg("order rejected")
		observ.IncCounter("order_rejections_total", map[string]string{"stage": string(stage)})
		return false
	}

	m.AddCash(-fill.Notional() * e.params.CostRate())

	rec := domain.OrderRecord{
		ID:            uuid.NewString(),
		Symbol:        symbol,
		Date:          m.Date(),
		Action:        action,
		Stage:         stage,
		Price:         fill.Price,
		Size:          fill.Size,
		TotalNotional: fill.Notional(),
		CashAfter:     m.Cash(),
		RealizedPnL:   fill.RealizedPnL,
	}
	e.recorder.RecordOrder(ctx, rec)
	observ.IncCounter("orders_total", map[string]string{"stage": string(stage), "action": string(action)})
	e.log.Info().Str("symbol", symbol).Str("stage", string(stage)).Str("action", string(action)).
		Int("size", fill.Size).Float64("price", fill.Price).Float64("cash_after", rec.CashAfter).Msg("order executed")
	return true
}

// affordable trims a buy so that notional plus costs fits in cash. Cash must
// never go negative or portfolio value drops below the held market value.
func (e *Engine) affordable(m Market, stage domain.Stage, symbol string, size int) int {
	px, err := m.Price(symbol)
	if err != nil || px <= 0 {
		return size // the market rejects it
	}
	most := floorSize(m.Cash() / (px * (1 + e.params.CostRate())))
	if most >= size {
		return size
	}
	if most > 0 {
		e.log.Debug().Str("symbol", symbol).Str("stage", string(stage)).
			Int("size", size).Int("capped", most).Msg("buy capped to cash")
		observ.IncCounter("buys_capped_total", map[string]string{"stage": string(stage)})
	}
	return most
}

func (e *Engine) skip(stage domain.Stage, symbol, reason string, err error) {
	ev := e.log.Debug().Str("stage", string(stage)).Str("reason", reason)
	if symbol != "" {
		ev = ev.Str("symbol", symbol)
	}
	if err != nil {
		ev = ev.Err(err)
	}
	ev.Msg("skipped")
	observ.IncCounter("skips_total", map[string]string{"stage": string(stage), "reason": reason})
}

func floorSize(v float64) int {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return int(math.Floor(v))
}
