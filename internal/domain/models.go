package domain

import "time"

// Action is the side of an executed order.
type Action string

const (
	ActionBuy  Action = "buy"
	ActionSell Action = "sell"
)

// Stage names the engine stage that issued an order.
type Stage string

const (
	StageAllocation     Stage = "allocation"
	StageRebalance      Stage = "rebalance"
	StageHedge          Stage = "hedge"
	StageVolatilityStop Stage = "volatility_stop"
	StageConcentration  Stage = "concentration"
)

// Bar is one daily OHLCV observation for a symbol.
type Bar struct {
	Symbol string    `json:"symbol"`
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// Fill is what the execution engine reports back for an accepted order.
type Fill struct {
	Symbol      string
	Action      Action
	Size        int
	Price       float64
	RealizedPnL float64 // sells only
}

// Notional returns price times size.
func (f Fill) Notional() float64 {
	return f.Price * float64(f.Size)
}

// OrderRecord is the immutable audit entry for one executed trade.
type OrderRecord struct {
	ID            string    `json:"id" db:"id"`
	Symbol        string    `json:"symbol" db:"symbol"`
	Date          time.Time `json:"date" db:"date"`
	Action        Action    `json:"action" db:"action"`
	Stage         Stage     `json:"stage" db:"stage"`
	Price         float64   `json:"price" db:"price"`
	Size          int       `json:"size" db:"size"`
	TotalNotional float64   `json:"total_notional" db:"total_notional"`
	CashAfter     float64   `json:"cash_after" db:"cash_after"`
	RealizedPnL   float64   `json:"realized_pnl" db:"realized_pnl"`
}

// RiskTelemetryRecord captures one bar's indicator and configuration state.
// Pointer fields are nil when the signal was unavailable on that bar.
type RiskTelemetryRecord struct {
	Date                        time.Time `json:"date" db:"date"`
	BenchmarkRSI1               *float64  `json:"benchmark_rsi_1" db:"benchmark_rsi_1"`
	BenchmarkRSI2               *float64  `json:"benchmark_rsi_2" db:"benchmark_rsi_2"`
	SentimentMean               *float64  `json:"sentiment_mean" db:"sentiment_mean"`
	SentimentWeight             float64   `json:"sentiment_weight" db:"sentiment_weight"`
	MaxHedgeRatio               float64   `json:"max_hedge_ratio" db:"max_hedge_ratio"`
	RebalanceDeviationThreshold float64   `json:"rebalance_deviation_threshold" db:"rebalance_deviation_threshold"`
	RebalanceMinAdjustment      float64   `json:"rebalance_min_adjustment" db:"rebalance_min_adjustment"`
	PanicLevel                  *float64  `json:"panic_level" db:"panic_level"`
	CommissionRate              float64   `json:"commission_rate" db:"commission_rate"`
	SlippageRate                float64   `json:"slippage_rate" db:"slippage_rate"`
	TimeStopLossDays            int       `json:"time_stop_loss_days" db:"time_stop_loss_days"`
	Cash                        float64   `json:"cash" db:"cash"`
	PortfolioValue              float64   `json:"portfolio_value" db:"portfolio_value"`
	HedgeTriggered              bool      `json:"hedge_triggered" db:"hedge_triggered"`
}
