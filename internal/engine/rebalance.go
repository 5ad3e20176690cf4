package engine

import (
	"context"
	"math"

	"github.com/Rajchodisetti/allocation-engine/internal/domain"
	"github.com/Rajchodisetti/allocation-engine/internal/universe"
)

// rebalance moves each weighted category back toward its target once its
// drift exceeds the deviation threshold and the value gap exceeds the
// minimum adjustment. Both gates must pass.
func (e *Engine) rebalance(ctx context.Context, m Market) {
	weights := e.params.Weights()
	for _, c := range universe.Allocated {
		if err := ctx.Err(); err != nil {
			return
		}
		e.rebalanceCategory(ctx, m, c, weights[c])
	}
}

func (e *Engine) rebalanceCategory(ctx context.Context, m Market, c universe.Category, target float64) {
	symbols := e.universe.Instruments(c)
	if len(symbols) == 0 {
		return
	}
	pv := m.PortfolioValue()
	if pv <= 0 {
		e.skip(domain.StageRebalance, "", "no_portfolio_value", nil)
		return
	}

	current := e.categoryValue(m, symbols)
	weight := current / pv
	if math.Abs(weight-target) <= e.params.RebalanceDeviationThreshold {
		return
	}

	diff := pv*target - current
	if math.Abs(diff) <= pv*e.params.RebalanceMinAdjustmentThreshold {
		e.skip(domain.StageRebalance, "", "below_min_adjustment", nil)
		return
	}

	type tradable struct {
		symbol string
		price  float64
	}
	var legs []tradable
	for _, sym := range symbols {
		px, err := m.Price(sym)
		if err != nil || px <= 0 {
			e.skip(domain.StageRebalance, sym, "no_price", err)
			continue
		}
		legs = append(legs, tradable{sym, px})
	}
	if len(legs) == 0 {
		return
	}

	e.log.Info().Str("category", string(c)).Float64("weight", weight).Float64("target", target).
		Float64("value_difference", diff).Msg("rebalancing category")

	perInstrument := diff / float64(len(legs))
	for _, leg := range legs {
		change := floorSize(perInstrument / leg.price)
		switch {
		case change > 0:
			e.execute(ctx, m, domain.StageRebalance, domain.ActionBuy, leg.symbol, change)
		case change < 0:
			e.execute(ctx, m, domain.StageRebalance, domain.ActionSell, leg.symbol, -change)
		}
	}
}
