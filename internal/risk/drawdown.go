package risk

import (
	"github.com/Rajchodisetti/allocation-engine/internal/observ"
)

// DrawdownTracker follows a portfolio's high-water mark across bars and
// remembers the deepest fall from it.
type DrawdownTracker struct {
	highWaterMark  float64
	currentPct     float64
	maxDrawdownPct float64
	maxDrawdownAbs float64
}

func NewDrawdownTracker() *DrawdownTracker {
	return &DrawdownTracker{}
}

// UpdateNAV folds one portfolio valuation into the tracker.
func (dm *DrawdownTracker) UpdateNAV(nav float64) {
	if nav > dm.highWaterMark {
		dm.highWaterMark = nav
	}
	dm.currentPct = calculateDrawdown(dm.highWaterMark, nav)
	if dm.currentPct > dm.maxDrawdownPct {
		dm.maxDrawdownPct = dm.currentPct
		dm.maxDrawdownAbs = dm.highWaterMark - nav
	}

	observ.SetGauge("drawdown_pct", dm.currentPct, nil)
	observ.SetGauge("drawdown_pct_max", dm.maxDrawdownPct, nil)
}

// Current returns the drawdown from the high-water mark in percent.
func (dm *DrawdownTracker) Current() float64 {
	return dm.currentPct
}

// Max returns the deepest drawdown seen, in percent and in money.
func (dm *DrawdownTracker) Max() (pct, amount float64) {
	return dm.maxDrawdownPct, dm.maxDrawdownAbs
}

func (dm *DrawdownTracker) HighWaterMark() float64 {
	return dm.highWaterMark
}

// calculateDrawdown computes drawdown percentage from peak to current NAV
func calculateDrawdown(peak, current float64) float64 {
	if peak <= 0 {
		return 0.0
	}

	drawdown := ((peak - current) / peak) * 100

	// Drawdown is positive when we lose money
	if drawdown < 0 {
		return 0.0
	}
	return drawdown
}
