package backtest

import (
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/Rajchodisetti/allocation-engine/internal/domain"
	"github.com/Rajchodisetti/allocation-engine/internal/risk"
)

const (
	tradingDaysPerYear = 252
	firstTradesShown   = 5
)

type EquityPoint struct {
	Date  time.Time `json:"date"`
	Value float64   `json:"value"`
	Cash  float64   `json:"cash"`
}

// YearReturn is the return of one calendar year in percent.
type YearReturn struct {
	Year      int     `json:"year"`
	ReturnPct float64 `json:"return_pct"`
}

// Result summarises a run. Sharpe and annualised return are nil when the
// equity curve is too short to estimate them.
type Result struct {
	Start        time.Time `json:"start"`
	End          time.Time `json:"end"`
	InitialValue float64   `json:"initial_value"`
	FinalValue   float64   `json:"final_value"`

	TotalReturnPct      float64  `json:"total_return_pct"`
	AnnualizedReturnPct *float64 `json:"annualized_return_pct,omitempty"`
	SharpeRatio         *float64 `json:"sharpe_ratio,omitempty"`
	MaxDrawdownPct      float64  `json:"max_drawdown_pct"`
	MaxDrawdown         float64  `json:"max_drawdown"`

	AnnualReturns []YearReturn `json:"annual_returns"`

	Orders       int                  `json:"orders"`
	ClosedTrades int                  `json:"closed_trades"`
	Won          int                  `json:"won"`
	Lost         int                  `json:"lost"`
	AvgWin       float64              `json:"avg_win"`
	AvgLoss      float64              `json:"avg_loss"`
	FirstTrades  []domain.OrderRecord `json:"first_trades"`

	Equity []EquityPoint `json:"-"`
}

func (r *Result) finish(trades []domain.OrderRecord, dd *risk.DrawdownTracker) {
	r.FinalValue = r.InitialValue
	if n := len(r.Equity); n > 0 {
		r.Start = r.Equity[0].Date
		r.End = r.Equity[n-1].Date
		r.FinalValue = r.Equity[n-1].Value
	}
	if r.InitialValue > 0 {
		r.TotalReturnPct = (r.FinalValue/r.InitialValue - 1) * 100
	}
	r.MaxDrawdownPct, r.MaxDrawdown = dd.Max()
	r.SharpeRatio = sharpe(r.Equity)
	r.AnnualizedReturnPct = annualized(r.InitialValue, r.FinalValue, len(r.Equity))
	r.AnnualReturns = annualReturns(r.InitialValue, r.Equity)
	r.tradeStats(trades)
}

// tradeStats counts sells that realised a profit or a loss.
func (r *Result) tradeStats(trades []domain.OrderRecord) {
	r.Orders = len(trades)
	var wins, losses float64
	for _, t := range trades {
		if t.Action != domain.ActionSell {
			continue
		}
		r.ClosedTrades++
		switch {
		case t.RealizedPnL > 0:
			r.Won++
			wins += t.RealizedPnL
		case t.RealizedPnL < 0:
			r.Lost++
			losses += t.RealizedPnL
		}
	}
	if r.Won > 0 {
		r.AvgWin = wins / float64(r.Won)
	}
	if r.Lost > 0 {
		r.AvgLoss = losses / float64(r.Lost)
	}
	n := len(trades)
	if n > firstTradesShown {
		n = firstTradesShown
	}
	r.FirstTrades = append([]domain.OrderRecord(nil), trades[:n]...)
}

func dailyReturns(equity []EquityPoint) []float64 {
	out := make([]float64, 0, len(equity))
	for i := 1; i < len(equity); i++ {
		prev := equity[i-1].Value
		if prev <= 0 {
			continue
		}
		out = append(out, equity[i].Value/prev-1)
	}
	return out
}

// sharpe annualises the mean daily return over its sample deviation with a
// zero risk-free rate.
func sharpe(equity []EquityPoint) *float64 {
	rets := dailyReturns(equity)
	if len(rets) < 2 {
		return nil
	}
	mean, std := stat.MeanStdDev(rets, nil)
	if std == 0 || math.IsNaN(std) {
		return nil
	}
	s := mean / std * math.Sqrt(tradingDaysPerYear)
	return &s
}

func annualized(initial, final float64, bars int) *float64 {
	if initial <= 0 || final <= 0 || bars < 2 {
		return nil
	}
	v := (math.Pow(final/initial, float64(tradingDaysPerYear)/float64(bars)) - 1) * 100
	return &v
}

// annualReturns compares each calendar year's last value with the previous
// year's last value, starting from the initial value.
func annualReturns(initial float64, equity []EquityPoint) []YearReturn {
	closing := map[int]float64{}
	for _, p := range equity {
		closing[p.Date.Year()] = p.Value
	}
	years := make([]int, 0, len(closing))
	for y := range closing {
		years = append(years, y)
	}
	sort.Ints(years)

	out := make([]YearReturn, 0, len(years))
	base := initial
	for _, y := range years {
		end := closing[y]
		yr := YearReturn{Year: y}
		if base > 0 {
			yr.ReturnPct = (end/base - 1) * 100
		}
		out = append(out, yr)
		base = end
	}
	return out
}
