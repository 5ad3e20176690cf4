package engine

import (
	"context"

	"github.com/Rajchodisetti/allocation-engine/internal/domain"
	"github.com/Rajchodisetti/allocation-engine/internal/universe"
)

// allocate splits the cash on hand across the weighted categories, evenly
// within each category. Hedge instruments are not bought here.
func (e *Engine) allocate(ctx context.Context, m Market) {
	cash := m.Cash()
	weights := e.params.Weights()
	e.log.Info().Time("date", m.Date()).Float64("cash", cash).Msg("initial allocation")

	for _, c := range universe.Allocated {
		symbols := e.universe.Instruments(c)
		if len(symbols) == 0 {
			e.skip(domain.StageAllocation, "", "empty_category", nil)
			continue
		}
		budget := cash * weights[c]
		perInstrument := budget / float64(len(symbols))
		e.log.Info().Str("category", string(c)).Float64("budget", budget).
			Float64("per_instrument", perInstrument).Msg("category allocation")

		for _, sym := range symbols {
			if err := ctx.Err(); err != nil {
				return
			}
			px, err := m.Price(sym)
			if err != nil {
				e.skip(domain.StageAllocation, sym, "no_price", err)
				continue
			}
			if px <= 0 {
				e.skip(domain.StageAllocation, sym, "non_positive_price", nil)
				continue
			}
			size := floorSize(perInstrument / px)
			if size <= 0 {
				e.skip(domain.StageAllocation, sym, "zero_size", nil)
				continue
			}
			e.execute(ctx, m, domain.StageAllocation, domain.ActionBuy, sym, size)
		}
	}
}
