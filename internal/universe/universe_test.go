package universe

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Rajchodisetti/allocation-engine/internal/domain"
)

func TestDefaultUniverse(t *testing.T) {
	u := Default()
	assert.Equal(t, []string{"00700.HK", "AAPL.US", "NVDA.US", "MSFT.US"}, u.Instruments(Core))
	assert.Len(t, u.Instruments(Hedge), 4)
	assert.Equal(t, "VXX.US", u.PanicIndex)

	c, ok := u.CategoryOf("JPM.US")
	require.True(t, ok)
	assert.Equal(t, Dividend, c)

	_, ok = u.CategoryOf("TSLA.US")
	assert.False(t, ok)
}

func TestSymbolsIncludesIndicators(t *testing.T) {
	syms := Default().Symbols()
	assert.Contains(t, syms, "VXX.US")
	assert.Contains(t, syms, "HSI.HK")
	// HSI.HK is both a hedge instrument and a benchmark
	count := 0
	for _, s := range syms {
		if s == "HSI.HK" {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

func TestValidate(t *testing.T) {
	weights := map[Category]float64{Core: 0.45, SafeHaven: 0.28, Dividend: 0.15}

	tests := []struct {
		name    string
		mutate  func(u *Universe, w map[Category]float64)
		wantErr bool
	}{
		{name: "default", mutate: func(*Universe, map[Category]float64) {}},
		{
			name:    "empty category with weight",
			mutate:  func(u *Universe, _ map[Category]float64) { u.Dividend = nil },
			wantErr: true,
		},
		{
			name: "empty category without weight",
			mutate: func(u *Universe, w map[Category]float64) {
				u.Dividend = nil
				w[Dividend] = 0
			},
		},
		{
			name:    "weight above one",
			mutate:  func(_ *Universe, w map[Category]float64) { w[Core] = 1.2 },
			wantErr: true,
		},
		{
			name:    "duplicate symbol",
			mutate:  func(u *Universe, _ map[Category]float64) { u.SafeHaven = append(u.SafeHaven, "AAPL.US") },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := Default()
			w := map[Category]float64{}
			for k, v := range weights {
				w[k] = v
			}
			tt.mutate(&u, w)
			err := u.Validate(w)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, domain.ErrConfiguration))
				return
			}
			assert.NoError(t, err)
		})
	}
}
