package risk

import (
	"math"

	"github.com/Rajchodisetti/allocation-engine/internal/domain"
	"github.com/Rajchodisetti/allocation-engine/internal/observ"
)

// CapDecision is the outcome of one concentration check.
type CapDecision struct {
	Symbol        string  `json:"symbol"`
	Concentration float64 `json:"concentration"`
	Triggered     bool    `json:"triggered"`
	SellSize      int     `json:"sell_size"`
}

// ConcentrationCap trims any single position whose market value exceeds a
// share of the portfolio.
type ConcentrationCap struct {
	Limit          float64 // strictly above triggers
	ReduceFraction float64
}

func (c ConcentrationCap) Check(symbol string, size int, price, portfolioValue float64) (CapDecision, error) {
	d := CapDecision{Symbol: symbol}
	if portfolioValue <= 0 {
		return d, domain.DataUnavailable(symbol, "portfolio value is not positive")
	}
	if price <= 0 {
		return d, domain.DataUnavailable(symbol, "no usable close")
	}
	d.Concentration = float64(size) * price / portfolioValue
	observ.SetGauge("position_concentration", d.Concentration, map[string]string{"symbol": symbol})

	if d.Concentration <= c.Limit {
		return d, nil
	}
	d.Triggered = true
	d.SellSize = int(math.Floor(float64(size) * c.ReduceFraction))
	observ.IncCounter("concentration_triggers_total", map[string]string{"symbol": symbol})
	return d, nil
}
