// Package sentiment supplies per-instrument sentiment scores in [0,1].
package sentiment

import (
	"context"
	"sync"
	"time"

	"gonum.org/v1/gonum/stat/distuv"
)

// Provider returns a score per requested symbol. Symbols without a score are
// omitted from the result.
type Provider interface {
	Scores(ctx context.Context, date time.Time, symbols []string) (map[string]float64, error)
}

// Shape holds the two parameters of a Beta distribution.
type Shape struct {
	Alpha float64 `yaml:"alpha" json:"alpha"`
	Beta  float64 `yaml:"beta" json:"beta"`
}

// DefaultShapes are the per-name distributions used when no feed is configured.
func DefaultShapes() map[string]Shape {
	return map[string]Shape{
		"00700.HK": {Alpha: 2, Beta: 1},
		"AAPL.US":  {Alpha: 1.5, Beta: 1.2},
	}
}

// BetaProvider draws each score from a per-symbol Beta distribution.
type BetaProvider struct {
	mu       sync.Mutex
	dists    map[string]distuv.Beta
	fallback Shape
}

func NewBetaProvider(shapes map[string]Shape) *BetaProvider {
	if len(shapes) == 0 {
		shapes = DefaultShapes()
	}
	dists := make(map[string]distuv.Beta, len(shapes))
	for sym, s := range shapes {
		dists[sym] = distuv.Beta{Alpha: s.Alpha, Beta: s.Beta}
	}
	return &BetaProvider{
		dists:    dists,
		fallback: Shape{Alpha: 2, Beta: 2},
	}
}

func (p *BetaProvider) Scores(ctx context.Context, _ time.Time, symbols []string) (map[string]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make(map[string]float64, len(symbols))
	for _, sym := range symbols {
		d, ok := p.dists[sym]
		if !ok {
			d = distuv.Beta{Alpha: p.fallback.Alpha, Beta: p.fallback.Beta}
			p.dists[sym] = d
		}
		out[sym] = d.Rand()
	}
	return out, nil
}

// Static returns fixed scores, clamped to [0,1]. Missing symbols are treated
// as unavailable.
type Static map[string]float64

func (s Static) Scores(_ context.Context, _ time.Time, symbols []string) (map[string]float64, error) {
	out := make(map[string]float64, len(symbols))
	for _, sym := range symbols {
		if v, ok := s[sym]; ok {
			out[sym] = Clamp(v)
		}
	}
	return out, nil
}

// Clamp bounds a raw score to [0,1].
func Clamp(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
