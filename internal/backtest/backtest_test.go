package backtest

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Rajchodisetti/allocation-engine/internal/adapters"
	"github.com/Rajchodisetti/allocation-engine/internal/domain"
	"github.com/Rajchodisetti/allocation-engine/internal/engine"
	"github.com/Rajchodisetti/allocation-engine/internal/portfolio"
	"github.com/Rajchodisetti/allocation-engine/internal/risk"
	"github.com/Rajchodisetti/allocation-engine/internal/sentiment"
	"github.com/Rajchodisetti/allocation-engine/internal/strategy"
	"github.com/Rajchodisetti/allocation-engine/internal/universe"
)

func syntheticRun(t *testing.T, days int) (*Runner, *engine.Engine, *adapters.SimMarket) {
	t.Helper()
	u := universe.Default()
	bars := adapters.NewSynthetic(7, nil).Generate(u.Symbols(), time.Date(2023, 12, 1, 0, 0, 0, 0, time.UTC), days)
	m := adapters.NewSimMarket(bars, portfolio.NewLedger("", 15_000_000))

	e, err := engine.New(strategy.Defaults(), u, sentiment.Static{"00700.HK": 0.9, "AAPL.US": 0.8}, nil, zerolog.Nop())
	require.NoError(t, err)
	return NewRunner(e, m, zerolog.Nop()), e, m
}

func TestRunOverSyntheticMarket(t *testing.T) {
	r, e, m := syntheticRun(t, 80)

	var bars []Bar
	r.OnBar(func(b Bar) {
		w, err := e.CategoryWeights(m)
		require.NoError(t, err)
		sum := 0.0
		for c, v := range w {
			assert.GreaterOrEqual(t, v, 0.0, "%s on %s", c, b.Date)
			sum += v
		}
		assert.LessOrEqual(t, sum, 1+1e-9, b.Date.String())
		assert.GreaterOrEqual(t, b.Cash, 0.0, b.Date.String())
		bars = append(bars, b)
	})

	res, err := r.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, bars, 80)
	require.Len(t, res.Equity, 80)
	assert.True(t, e.Initialized())
	assert.Nil(t, bars[0].Telemetry, "the allocation bar records no telemetry")
	assert.NotEmpty(t, bars[0].Orders)
	for _, o := range bars[0].Orders {
		assert.Equal(t, domain.StageAllocation, o.Stage)
	}
	for _, b := range bars[1:] {
		require.NotNil(t, b.Telemetry, b.Date.String())
		assert.Equal(t, b.Date, b.Telemetry.Date)
	}

	assert.Equal(t, 15_000_000.0, res.InitialValue)
	assert.Equal(t, m.PortfolioValue(), res.FinalValue)
	assert.Equal(t, len(e.Recorder().Trades()), res.Orders)
	assert.LessOrEqual(t, len(res.FirstTrades), 5)
	assert.GreaterOrEqual(t, res.MaxDrawdownPct, 0.0)
	require.NotNil(t, res.SharpeRatio)
	assert.Equal(t, res.Start, bars[0].Date)
	assert.Equal(t, res.End, bars[79].Date)
}

func TestRunStopsOnCancellation(t *testing.T) {
	r, _, _ := syntheticRun(t, 30)
	ctx, cancel := context.WithCancel(context.Background())

	seen := 0
	r.OnBar(func(Bar) {
		seen++
		if seen == 3 {
			cancel()
		}
	})
	res, err := r.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 3, seen)
	assert.Len(t, res.Equity, 3)
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestResultMetrics(t *testing.T) {
	res := &Result{
		InitialValue: 100,
		Equity: []EquityPoint{
			{Date: day(2023, 12, 28), Value: 100},
			{Date: day(2023, 12, 29), Value: 110},
			{Date: day(2024, 1, 2), Value: 99},
			{Date: day(2024, 1, 3), Value: 121},
		},
	}
	dd := risk.NewDrawdownTracker()
	for _, p := range res.Equity {
		dd.UpdateNAV(p.Value)
	}
	trades := []domain.OrderRecord{
		{ID: "1", Action: domain.ActionBuy},
		{ID: "2", Action: domain.ActionSell, RealizedPnL: 30},
		{ID: "3", Action: domain.ActionSell, RealizedPnL: -10},
		{ID: "4", Action: domain.ActionSell, RealizedPnL: 10},
		{ID: "5", Action: domain.ActionSell},
		{ID: "6", Action: domain.ActionSell, RealizedPnL: -20},
	}
	res.finish(trades, dd)

	assert.Equal(t, 121.0, res.FinalValue)
	assert.InDelta(t, 21.0, res.TotalReturnPct, 1e-9)
	assert.InDelta(t, 10.0, res.MaxDrawdownPct, 1e-9)
	assert.InDelta(t, 11.0, res.MaxDrawdown, 1e-9)
	require.Len(t, res.AnnualReturns, 2)
	assert.Equal(t, 2023, res.AnnualReturns[0].Year)
	assert.InDelta(t, 10.0, res.AnnualReturns[0].ReturnPct, 1e-9)
	assert.InDelta(t, 10.0, res.AnnualReturns[1].ReturnPct, 1e-9)

	assert.Equal(t, 6, res.Orders)
	assert.Equal(t, 5, res.ClosedTrades)
	assert.Equal(t, 2, res.Won)
	assert.Equal(t, 2, res.Lost)
	assert.Equal(t, 20.0, res.AvgWin)
	assert.Equal(t, -15.0, res.AvgLoss)
	require.Len(t, res.FirstTrades, 5)
	assert.Equal(t, "5", res.FirstTrades[4].ID)
	require.NotNil(t, res.SharpeRatio)
	require.NotNil(t, res.AnnualizedReturnPct)
}

func TestResultWithoutBars(t *testing.T) {
	res := &Result{InitialValue: 50}
	res.finish(nil, risk.NewDrawdownTracker())

	assert.Equal(t, 50.0, res.FinalValue)
	assert.Zero(t, res.TotalReturnPct)
	assert.Nil(t, res.SharpeRatio)
	assert.Nil(t, res.AnnualizedReturnPct)
	assert.Empty(t, res.AnnualReturns)
	assert.Empty(t, res.FirstTrades)
}

func TestSharpeFlatCurve(t *testing.T) {
	flat := []EquityPoint{{Value: 10}, {Value: 10}, {Value: 10}}
	assert.Nil(t, sharpe(flat))
}

func TestFullyInvestedWeightsStayWithinPortfolio(t *testing.T) {
	u := universe.Default()
	p := strategy.Defaults()
	p.CoreAllocation, p.SafeHavenAllocation, p.DividendAllocation = 0.5, 0.3, 0.2

	bars := adapters.NewSynthetic(11, nil).Generate(u.Symbols(), time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), 40)
	m := adapters.NewSimMarket(bars, portfolio.NewLedger("", 1_000_000))
	e, err := engine.New(p, u, sentiment.Static{"00700.HK": 0.9, "AAPL.US": 0.8}, nil, zerolog.Nop())
	require.NoError(t, err)

	r := NewRunner(e, m, zerolog.Nop())
	r.OnBar(func(b Bar) {
		w, err := e.CategoryWeights(m)
		require.NoError(t, err)
		sum := 0.0
		for _, v := range w {
			sum += v
		}
		assert.LessOrEqual(t, sum, 1+1e-9, b.Date.String())
		assert.GreaterOrEqual(t, b.Cash, 0.0, b.Date.String())
	})
	_, err = r.Run(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, e.Recorder().Trades())
}
