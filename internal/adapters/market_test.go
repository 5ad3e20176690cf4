package adapters

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Rajchodisetti/allocation-engine/internal/domain"
	"github.com/Rajchodisetti/allocation-engine/internal/portfolio"
)

func d(day int) time.Time {
	return time.Date(2024, 1, day, 0, 0, 0, 0, time.UTC)
}

func series(sym string, start int, closes ...float64) []domain.Bar {
	out := make([]domain.Bar, len(closes))
	for i, c := range closes {
		out[i] = domain.Bar{Symbol: sym, Date: d(start + i), Open: c, High: c, Low: c, Close: c}
	}
	return out
}

func TestSimMarketUnionTimeline(t *testing.T) {
	m := NewSimMarket(map[string][]domain.Bar{
		"A": series("A", 1, 10, 11, 12),
		"B": series("B", 3, 50, 51),
	}, portfolio.NewLedger("", 1000))

	assert.Equal(t, 4, m.Len())
	assert.True(t, m.Date().IsZero())

	require.True(t, m.Advance())
	assert.Equal(t, d(1), m.Date())
	assert.True(t, m.HasData("A"))
	assert.False(t, m.HasData("B"))
	_, err := m.Price("B")
	assert.True(t, errors.Is(err, domain.ErrDataUnavailable))

	require.True(t, m.Advance())
	require.True(t, m.Advance())
	px, err := m.Price("B")
	require.NoError(t, err)
	assert.Equal(t, 50.0, px)

	require.True(t, m.Advance())
	assert.Equal(t, d(4), m.Date())
	assert.False(t, m.HasData("A"), "A stopped printing")
	px, err = m.Price("A")
	require.NoError(t, err)
	assert.Equal(t, 12.0, px, "stale symbols keep their last close")
	assert.False(t, m.Advance())
}

func TestSimMarketOrdersAndValue(t *testing.T) {
	m := NewSimMarket(map[string][]domain.Bar{
		"A": series("A", 1, 10, 20),
		"B": series("B", 1, 5),
	}, portfolio.NewLedger("", 1000))
	require.True(t, m.Advance())

	fill, err := m.Buy("A", 50)
	require.NoError(t, err)
	assert.Equal(t, 500.0, fill.Notional())
	_, err = m.Buy("B", 20)
	require.NoError(t, err)
	assert.Equal(t, 400.0, m.Cash())
	assert.Equal(t, []string{"A", "B"}, m.Positions())

	_, err = m.Buy("A", 100)
	assert.True(t, errors.Is(err, domain.ErrOrderRejected))

	require.True(t, m.Advance())
	// B has no bar on day 2 and is marked at its last close
	assert.Equal(t, 400.0+50*20+20*5, m.PortfolioValue())

	fill, err = m.Sell("B", 1)
	require.NoError(t, err)
	assert.Equal(t, 5.0, fill.Price, "fills at the last close")
	_, err = m.Sell("B", 100)
	assert.True(t, errors.Is(err, domain.ErrOrderRejected), "no shorting")

	fill, err = m.Sell("A", 10)
	require.NoError(t, err)
	assert.Equal(t, 100.0, fill.RealizedPnL)
	assert.Equal(t, 40, m.Position("A"))

	m.AddCash(-1.5)
	assert.Equal(t, 603.5, m.Cash())
}

func TestSimMarketIndicators(t *testing.T) {
	closes := make([]float64, 20)
	for i := range closes {
		closes[i] = 100 + float64(i)
	}
	m := NewSimMarket(map[string][]domain.Bar{
		"IDX": series("IDX", 1, closes...),
		"VIX": series("VIX", 1, closes...),
	}, portfolio.NewLedger("", 0))

	require.True(t, m.Advance())
	_, err := m.Indicator(IndicatorRSI, "IDX")
	assert.True(t, errors.Is(err, domain.ErrDataUnavailable))

	for m.Advance() {
	}
	rsi, err := m.Indicator(IndicatorRSI, "IDX")
	require.NoError(t, err)
	assert.Equal(t, 100.0, rsi)

	vol, err := m.Indicator(IndicatorVolatility, "IDX")
	require.NoError(t, err)
	assert.InDelta(t, 5.766, vol, 1e-3)

	level, err := m.Indicator(IndicatorPanic, "VIX")
	require.NoError(t, err)
	assert.Equal(t, 119.0, level)

	window, err := m.TrailingCloses("IDX", 3)
	require.NoError(t, err)
	assert.Equal(t, []float64{117, 118, 119}, window)

	_, err = m.TrailingCloses("IDX", 21)
	assert.True(t, errors.Is(err, domain.ErrDataUnavailable))

	_, err = m.Indicator("macd", "IDX")
	assert.Error(t, err)
}
