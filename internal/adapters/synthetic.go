package adapters

import (
	"math"
	"math/rand"
	"time"

	"github.com/Rajchodisetti/allocation-engine/internal/domain"
)

// SeriesSpec describes one synthetic instrument.
type SeriesSpec struct {
	BasePrice  float64
	Volatility float64 // daily volatility as decimal (e.g. 0.02 for 2%)
	Drift      float64 // daily drift as decimal
	Volume     float64
}

// DefaultSeries gives every symbol of the default universe a plausible
// starting level. Unknown symbols fall back to a 100.00 base.
var DefaultSeries = map[string]SeriesSpec{
	"00700.HK": {BasePrice: 320, Volatility: 0.022, Drift: 0.0003, Volume: 18e6},
	"AAPL.US":  {BasePrice: 206.8, Volatility: 0.018, Drift: 0.0004, Volume: 55e6},
	"NVDA.US":  {BasePrice: 450, Volatility: 0.032, Drift: 0.0008, Volume: 40e6},
	"MSFT.US":  {BasePrice: 415.75, Volatility: 0.016, Drift: 0.0004, Volume: 22e6},
	"GLD.US":   {BasePrice: 185, Volatility: 0.009, Drift: 0.0002, Volume: 8e6},
	"SLV.US":   {BasePrice: 22.5, Volatility: 0.017, Drift: 0.0001, Volume: 20e6},
	"USO.US":   {BasePrice: 72, Volatility: 0.021, Volume: 4e6},
	"COPX.US":  {BasePrice: 38, Volatility: 0.02, Drift: 0.0002, Volume: 2e6},
	"00939.HK": {BasePrice: 5.4, Volatility: 0.012, Drift: 0.0002, Volume: 250e6},
	"JPM.US":   {BasePrice: 172, Volatility: 0.013, Drift: 0.0003, Volume: 9e6},
	"BRK.B.US": {BasePrice: 360, Volatility: 0.009, Drift: 0.0003, Volume: 3.5e6},
	"SQQQ.US":  {BasePrice: 12.5, Volatility: 0.045, Drift: -0.0015, Volume: 110e6},
	"07552.HK": {BasePrice: 6.1, Volatility: 0.04, Drift: -0.001, Volume: 90e6},
	"SPY.US":   {BasePrice: 470, Volatility: 0.011, Drift: 0.0004, Volume: 70e6},
	"HSI.HK":   {BasePrice: 16800, Volatility: 0.015, Volume: 1e9},
	"VXX.US":   {BasePrice: 18, Volatility: 0.05, Drift: -0.0005, Volume: 30e6},
}

// Synthetic generates reproducible random-walk daily bars, weekdays only.
type Synthetic struct {
	random *rand.Rand
	specs  map[string]SeriesSpec
}

func NewSynthetic(seed int64, specs map[string]SeriesSpec) *Synthetic {
	if specs == nil {
		specs = DefaultSeries
	}
	return &Synthetic{random: rand.New(rand.NewSource(seed)), specs: specs}
}

// Generate produces days weekday bars per symbol starting at start.
func (s *Synthetic) Generate(symbols []string, start time.Time, days int) map[string][]domain.Bar {
	dates := weekdays(start, days)
	out := make(map[string][]domain.Bar, len(symbols))
	for _, sym := range symbols {
		spec, ok := s.specs[sym]
		if !ok {
			spec = SeriesSpec{BasePrice: 100, Volatility: 0.02, Volume: 1e6}
		}
		series := make([]domain.Bar, 0, len(dates))
		last := spec.BasePrice
		for _, d := range dates {
			open := last
			cl := open * (1 + spec.Drift + s.random.NormFloat64()*spec.Volatility)
			cl = math.Max(roundToTick(cl), 0.01)
			wick := math.Abs(s.random.NormFloat64()) * spec.Volatility * 0.5
			high := roundToTick(math.Max(open, cl) * (1 + wick))
			low := roundToTick(math.Min(open, cl) * (1 - wick))
			volume := math.Round(spec.Volume * (0.7 + s.random.Float64()*0.6)) // 70%-130% of base
			series = append(series, domain.Bar{
				Symbol: sym, Date: d,
				Open: open, High: high, Low: math.Max(low, 0.01), Close: cl, Volume: volume,
			})
			last = cl
		}
		out[sym] = series
	}
	return out
}

func weekdays(start time.Time, n int) []time.Time {
	out := make([]time.Time, 0, n)
	d := dayOf(start)
	for len(out) < n {
		if wd := d.Weekday(); wd != time.Saturday && wd != time.Sunday {
			out = append(out, d)
		}
		d = d.AddDate(0, 0, 1)
	}
	return out
}

func roundToTick(price float64) float64 {
	tick := 0.01
	if price < 1 {
		tick = 0.0001
	}
	return math.Round(price/tick) * tick
}
