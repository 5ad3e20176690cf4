package risk

import (
	"fmt"
	"math"

	"github.com/Rajchodisetti/allocation-engine/internal/domain"
	"github.com/Rajchodisetti/allocation-engine/internal/indicators"
	"github.com/Rajchodisetti/allocation-engine/internal/observ"
)

// StopDecision is the outcome of one volatility-stop evaluation.
type StopDecision struct {
	Symbol    string  `json:"symbol"`
	ZScore    float64 `json:"z_score"`
	Triggered bool    `json:"triggered"`
	SellSize  int     `json:"sell_size"`
}

// VolatilityStop cuts part of a position whose latest close falls too many
// standard deviations below its trailing mean.
type VolatilityStop struct {
	Threshold      float64 // z-score; strictly below triggers
	ReduceFraction float64
	Window         int
}

// Check evaluates the stop against the trailing closes, latest last. Fewer
// than Window closes, or a flat window, yields ErrDataUnavailable.
func (v VolatilityStop) Check(symbol string, closes []float64, size int) (StopDecision, error) {
	d := StopDecision{Symbol: symbol}
	if len(closes) < v.Window {
		return d, domain.DataUnavailable(symbol, fmt.Sprintf("volatility stop needs %d closes, have %d", v.Window, len(closes)))
	}
	z, err := indicators.ZScore(closes[len(closes)-v.Window:])
	if err != nil {
		return d, domain.DataUnavailable(symbol, err.Error())
	}
	d.ZScore = z
	observ.SetGauge("volatility_zscore", z, map[string]string{"symbol": symbol})

	if z >= v.Threshold {
		return d, nil
	}
	d.Triggered = true
	d.SellSize = int(math.Floor(float64(size) * v.ReduceFraction))
	observ.IncCounter("stop_triggers_total", map[string]string{"symbol": symbol, "type": "volatility"})
	return d, nil
}
