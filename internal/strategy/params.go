// Package strategy defines the tunable parameters of the allocation engine.
package strategy

import (
	"fmt"

	"github.com/Rajchodisetti/allocation-engine/internal/domain"
	"github.com/Rajchodisetti/allocation-engine/internal/universe"
)

// Params is read-only for the duration of a run.
type Params struct {
	CoreAllocation      float64 `yaml:"core_allocation" json:"core_allocation"`
	SafeHavenAllocation float64 `yaml:"safe_haven_allocation" json:"safe_haven_allocation"`
	DividendAllocation  float64 `yaml:"dividend_allocation" json:"dividend_allocation"`
	MaxHedgeRatio       float64 `yaml:"max_hedge_ratio" json:"max_hedge_ratio"`

	RebalanceDeviationThreshold     float64 `yaml:"rebalance_deviation_threshold" json:"rebalance_deviation_threshold"`
	RebalanceMinAdjustmentThreshold float64 `yaml:"rebalance_min_adjustment_threshold" json:"rebalance_min_adjustment_threshold"`

	AISentimentWeight float64 `yaml:"ai_sentiment_weight" json:"ai_sentiment_weight"`

	VolatilityStopZScore         float64 `yaml:"volatility_stop_zscore" json:"volatility_stop_zscore"`
	VolatilityStopReduceFraction float64 `yaml:"volatility_stop_reduce_fraction" json:"volatility_stop_reduce_fraction"`
	ConcentrationLimit           float64 `yaml:"concentration_limit" json:"concentration_limit"`
	ConcentrationReduceFraction  float64 `yaml:"concentration_reduce_fraction" json:"concentration_reduce_fraction"`

	// TimeStopLossDays is reported in telemetry; no rule acts on it.
	TimeStopLossDays int `yaml:"time_stop_loss_days" json:"time_stop_loss_days"`

	CommissionRate float64 `yaml:"commission_rate" json:"commission_rate"`
	SlippageRate   float64 `yaml:"slippage_rate" json:"slippage_rate"`
}

// Hedge trigger thresholds.
const (
	RSIOversold        = 30.0
	PanicThreshold     = 25.0
	SentimentThreshold = 0.4
	RSIPeriod          = 14
	VolatilityWindow   = 20
)

func Defaults() Params {
	return Params{
		CoreAllocation:                  0.45,
		SafeHavenAllocation:             0.28,
		DividendAllocation:              0.15,
		MaxHedgeRatio:                   0.3,
		RebalanceDeviationThreshold:     0.08,
		RebalanceMinAdjustmentThreshold: 0.02,
		AISentimentWeight:               0.7,
		VolatilityStopZScore:            -1.5,
		VolatilityStopReduceFraction:    0.3,
		ConcentrationLimit:              0.08,
		ConcentrationReduceFraction:     0.2,
		TimeStopLossDays:                5,
		CommissionRate:                  0.001,
		SlippageRate:                    0.005,
	}
}

// Weights maps each allocated category to its target weight.
func (p Params) Weights() map[universe.Category]float64 {
	return map[universe.Category]float64{
		universe.Core:      p.CoreAllocation,
		universe.SafeHaven: p.SafeHavenAllocation,
		universe.Dividend:  p.DividendAllocation,
	}
}

// CostRate is the combined commission and slippage charged per unit notional.
func (p Params) CostRate() float64 {
	return p.CommissionRate + p.SlippageRate
}

func (p Params) Validate() error {
	unit := []struct {
		name  string
		value float64
	}{
		{"core_allocation", p.CoreAllocation},
		{"safe_haven_allocation", p.SafeHavenAllocation},
		{"dividend_allocation", p.DividendAllocation},
		{"max_hedge_ratio", p.MaxHedgeRatio},
		{"rebalance_deviation_threshold", p.RebalanceDeviationThreshold},
		{"rebalance_min_adjustment_threshold", p.RebalanceMinAdjustmentThreshold},
		{"ai_sentiment_weight", p.AISentimentWeight},
		{"volatility_stop_reduce_fraction", p.VolatilityStopReduceFraction},
		{"concentration_limit", p.ConcentrationLimit},
		{"concentration_reduce_fraction", p.ConcentrationReduceFraction},
		{"commission_rate", p.CommissionRate},
		{"slippage_rate", p.SlippageRate},
	}
	for _, f := range unit {
		if f.value < 0 || f.value > 1 {
			return domain.ConfigurationError(fmt.Sprintf("%s must be in [0,1], got %v", f.name, f.value))
		}
	}
	if p.VolatilityStopZScore >= 0 {
		return domain.ConfigurationError(fmt.Sprintf("volatility_stop_zscore must be negative, got %v", p.VolatilityStopZScore))
	}
	if p.TimeStopLossDays < 0 {
		return domain.ConfigurationError("time_stop_loss_days must not be negative")
	}
	return nil
}
