package report

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Rajchodisetti/allocation-engine/internal/backtest"
	"github.com/Rajchodisetti/allocation-engine/internal/domain"
	"github.com/Rajchodisetti/allocation-engine/internal/universe"
)

var jan2 = time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

func orders() []domain.OrderRecord {
	return []domain.OrderRecord{
		{Symbol: "AAPL.US", Date: jan2, Stage: domain.StageAllocation, Action: domain.ActionBuy, Price: 200, Size: 10, TotalNotional: 2000, CashAfter: 7988},
		{Symbol: "GLD.US", Date: jan2, Stage: domain.StageRebalance, Action: domain.ActionSell, Price: 100, Size: 5, TotalNotional: 500, CashAfter: 8485},
		{Symbol: "GLD.US", Date: jan2, Stage: domain.StageRebalance, Action: domain.ActionBuy, Price: 100, Size: 2, TotalNotional: 200, CashAfter: 8283.8},
	}
}

func TestOrdersTable(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewPrinter(&buf).Orders(orders()))

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 5)
	assert.True(t, strings.HasPrefix(lines[0], "Symbol"))
	assert.Contains(t, lines[2], "AAPL.US")
	assert.Contains(t, lines[2], "2024-01-02")
	assert.Contains(t, lines[2], "2000.00")
	assert.Contains(t, lines[3], "sell")
	// columns line up
	assert.Equal(t, strings.Index(lines[0], "Date"), strings.Index(lines[2], "2024-01-02"))
}

func TestAllocationAndRebalance(t *testing.T) {
	u := universe.Default()
	weights := map[universe.Category]float64{universe.Core: 0.45, universe.SafeHaven: 0.28, universe.Dividend: 0.15}

	var buf bytes.Buffer
	p := NewPrinter(&buf)
	require.NoError(t, p.Allocation(u, weights, 10000, orders()))
	out := buf.String()
	assert.Contains(t, out, "45.00%")
	assert.Contains(t, out, "4500.00")
	assert.Contains(t, out, "1125.00") // per core instrument
	assert.Contains(t, out, "2000.00")

	buf.Reset()
	require.NoError(t, p.Rebalance(u, orders()))
	out = buf.String()
	assert.Contains(t, out, "safe_haven")
	assert.Contains(t, out, "-300.00")
	assert.NotContains(t, out, "core")
}

func TestDailyStatsMarksMissingIndicators(t *testing.T) {
	rsi := 28.5
	var buf bytes.Buffer
	require.NoError(t, NewPrinter(&buf).DailyStats(backtest.Bar{
		Date:           jan2,
		Cash:           10,
		PortfolioValue: 20,
		Telemetry:      &domain.RiskTelemetryRecord{BenchmarkRSI1: &rsi},
	}))
	out := buf.String()
	assert.Contains(t, out, "28.50 / N/A")
	assert.Contains(t, out, "Hedge Triggered")
	assert.Contains(t, out, "false")
}

func TestResultBlock(t *testing.T) {
	sharpe := 1.234
	res := &backtest.Result{
		Start:          jan2,
		End:            jan2.AddDate(1, 0, 0),
		InitialValue:   100,
		FinalValue:     120,
		TotalReturnPct: 20,
		SharpeRatio:    &sharpe,
		AnnualReturns:  []backtest.YearReturn{{Year: 2024, ReturnPct: 12.5}},
		Won:            3,
		Lost:           1,
		FirstTrades:    orders()[:1],
	}
	var buf bytes.Buffer
	require.NoError(t, NewPrinter(&buf).Result(res))
	out := buf.String()
	assert.Contains(t, out, "20.00%")
	assert.Contains(t, out, "1.23")
	assert.Contains(t, out, "Annualized Return")
	assert.Contains(t, out, "N/A")
	assert.Contains(t, out, "Return 2024")
	assert.Contains(t, out, "3 / 1")
	assert.Contains(t, out, "First trades:")
	assert.Contains(t, out, "AAPL.US")
}
