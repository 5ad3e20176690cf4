package engine

import (
	"context"
	"errors"

	"github.com/Rajchodisetti/allocation-engine/internal/domain"
)

// riskControl walks open positions in stable order. The volatility stop runs
// first; the concentration cap then sees the position left after it.
func (e *Engine) riskControl(ctx context.Context, m Market) {
	for _, sym := range m.Positions() {
		if err := ctx.Err(); err != nil {
			return
		}
		if m.Position(sym) == 0 {
			continue
		}
		e.volatilityStop(ctx, m, sym)
		e.concentrationCap(ctx, m, sym)
	}
}

func (e *Engine) volatilityStop(ctx context.Context, m Market, sym string) {
	closes, err := m.TrailingCloses(sym, e.stop.Window)
	if err != nil {
		e.skip(domain.StageVolatilityStop, sym, "short_history", err)
		return
	}
	d, err := e.stop.Check(sym, closes, m.Position(sym))
	if err != nil {
		reason := "check_failed"
		if errors.Is(err, domain.ErrDataUnavailable) {
			reason = "short_history"
		}
		e.skip(domain.StageVolatilityStop, sym, reason, err)
		return
	}
	if !d.Triggered || d.SellSize <= 0 {
		return
	}
	e.log.Info().Str("symbol", sym).Float64("z_score", d.ZScore).Int("sell_size", d.SellSize).Msg("volatility stop")
	e.execute(ctx, m, domain.StageVolatilityStop, domain.ActionSell, sym, d.SellSize)
}

func (e *Engine) concentrationCap(ctx context.Context, m Market, sym string) {
	size := m.Position(sym)
	if size == 0 {
		return
	}
	px, err := m.Price(sym)
	if err != nil {
		e.skip(domain.StageConcentration, sym, "no_price", err)
		return
	}
	d, err := e.concentration.Check(sym, size, px, m.PortfolioValue())
	if err != nil {
		e.skip(domain.StageConcentration, sym, "no_portfolio_value", err)
		return
	}
	if !d.Triggered || d.SellSize <= 0 {
		return
	}
	e.log.Info().Str("symbol", sym).Float64("concentration", d.Concentration).Int("sell_size", d.SellSize).Msg("concentration cap")
	e.execute(ctx, m, domain.StageConcentration, domain.ActionSell, sym, d.SellSize)
}
