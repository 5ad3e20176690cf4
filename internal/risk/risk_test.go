package risk

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Rajchodisetti/allocation-engine/internal/domain"
)

// window of 20 closes with population mean 103 and stdev 2
func window(last float64) []float64 {
	devs := []float64{1, 1, 1, -1, 2, 2, 2, -2, -2, -2, -2, -2, -2, -2, 3, 3, 3, 0, 0}
	w := make([]float64, 0, 20)
	for _, d := range devs {
		w = append(w, 103+d)
	}
	return append(w, last)
}

var stop = VolatilityStop{Threshold: -1.5, ReduceFraction: 0.3, Window: 20}

func TestVolatilityStopBoundary(t *testing.T) {
	tests := []struct {
		name      string
		closes    []float64
		size      int
		triggered bool
		sell      int
	}{
		{name: "exactly at threshold does not trigger", closes: window(100), size: 1000},
		{name: "just below threshold", closes: window(99.9), size: 1000, triggered: true, sell: 300},
		{name: "small position floors to zero", closes: window(99.9), size: 3, triggered: true, sell: 0},
		{name: "above mean", closes: window(106), size: 1000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := stop.Check("GLD.US", tt.closes, tt.size)
			require.NoError(t, err)
			assert.Equal(t, tt.triggered, d.Triggered)
			assert.Equal(t, tt.sell, d.SellSize)
		})
	}
}

func TestVolatilityStopUsesLastWindow(t *testing.T) {
	// extra older closes are ignored
	closes := append([]float64{500, 1, 900}, window(100)...)
	d, err := stop.Check("GLD.US", closes, 1000)
	require.NoError(t, err)
	assert.Equal(t, -1.5, d.ZScore)
	assert.False(t, d.Triggered)
}

func TestVolatilityStopNeedsFullWindow(t *testing.T) {
	_, err := stop.Check("GLD.US", window(99)[:19], 100)
	assert.True(t, errors.Is(err, domain.ErrDataUnavailable))
}

func TestConcentrationCap(t *testing.T) {
	c := ConcentrationCap{Limit: 0.08, ReduceFraction: 0.2}

	tests := []struct {
		name      string
		size      int
		price, pv float64
		triggered bool
		sell      int
	}{
		{name: "exactly at limit", size: 80, price: 100, pv: 100000},
		{name: "just above limit", size: 81, price: 100, pv: 100000, triggered: true, sell: 16},
		{name: "well above", size: 500, price: 100, pv: 100000, triggered: true, sell: 100},
		{name: "tiny position floors to zero", size: 4, price: 10000, pv: 100000, triggered: true, sell: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := c.Check("AAPL.US", tt.size, tt.price, tt.pv)
			require.NoError(t, err)
			assert.Equal(t, tt.triggered, d.Triggered)
			assert.Equal(t, tt.sell, d.SellSize)
		})
	}

	_, err := c.Check("AAPL.US", 10, 100, 0)
	assert.True(t, errors.Is(err, domain.ErrDataUnavailable))
}
