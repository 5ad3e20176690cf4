// Package universe holds the fixed instrument categories a run trades.
package universe

import (
	"fmt"
	"sort"

	"github.com/Rajchodisetti/allocation-engine/internal/domain"
)

type Category string

const (
	Core      Category = "core"
	SafeHaven Category = "safe_haven"
	Dividend  Category = "dividend"
	Hedge     Category = "hedge"
)

// Allocated lists the categories that carry a target weight, in processing order.
var Allocated = []Category{Core, SafeHaven, Dividend}

// All lists every category including hedge.
var All = []Category{Core, SafeHaven, Dividend, Hedge}

// Universe is immutable for the duration of a run.
type Universe struct {
	Core      []string `yaml:"core" json:"core"`
	SafeHaven []string `yaml:"safe_haven" json:"safe_haven"`
	Dividend  []string `yaml:"dividend" json:"dividend"`
	Hedge     []string `yaml:"hedge" json:"hedge"`

	// Benchmarks are the two indices whose RSI feeds the hedge trigger.
	Benchmarks [2]string `yaml:"benchmarks" json:"benchmarks"`
	PanicIndex string    `yaml:"panic_index" json:"panic_index"`

	// SentimentSymbols are the names averaged into the sentiment signal.
	SentimentSymbols []string `yaml:"sentiment_symbols" json:"sentiment_symbols"`
}

func Default() Universe {
	return Universe{
		Core:             []string{"00700.HK", "AAPL.US", "NVDA.US", "MSFT.US"},
		SafeHaven:        []string{"GLD.US", "SLV.US", "USO.US", "COPX.US"},
		Dividend:         []string{"00939.HK", "JPM.US", "BRK.B.US"},
		Hedge:            []string{"SQQQ.US", "07552.HK", "SPY.US", "HSI.HK"},
		Benchmarks:       [2]string{"HSI.HK", "SPY.US"},
		PanicIndex:       "VXX.US",
		SentimentSymbols: []string{"00700.HK", "AAPL.US"},
	}
}

// Instruments returns the ordered symbols of one category.
func (u Universe) Instruments(c Category) []string {
	switch c {
	case Core:
		return u.Core
	case SafeHaven:
		return u.SafeHaven
	case Dividend:
		return u.Dividend
	case Hedge:
		return u.Hedge
	}
	return nil
}

// CategoryOf reports which category a symbol is configured under.
func (u Universe) CategoryOf(symbol string) (Category, bool) {
	for _, c := range All {
		for _, s := range u.Instruments(c) {
			if s == symbol {
				return c, true
			}
		}
	}
	return "", false
}

// Symbols returns every symbol the run needs data for, sorted and deduplicated.
func (u Universe) Symbols() []string {
	seen := map[string]struct{}{}
	add := func(s string) {
		if s != "" {
			seen[s] = struct{}{}
		}
	}
	for _, c := range All {
		for _, s := range u.Instruments(c) {
			add(s)
		}
	}
	add(u.Benchmarks[0])
	add(u.Benchmarks[1])
	add(u.PanicIndex)
	out := make([]string, 0, len(seen))
	for s := range seen {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// Validate checks the universe against the weights that will be applied to it.
// A category with a positive weight must have at least one instrument.
func (u Universe) Validate(weights map[Category]float64) error {
	for _, c := range Allocated {
		w := weights[c]
		if w < 0 || w > 1 {
			return domain.ConfigurationError(fmt.Sprintf("weight for %s must be in [0,1], got %v", c, w))
		}
		if w > 0 && len(u.Instruments(c)) == 0 {
			return domain.ConfigurationError(fmt.Sprintf("category %s has weight %v but no instruments", c, w))
		}
	}
	seen := map[string]Category{}
	for _, c := range All {
		for _, s := range u.Instruments(c) {
			if s == "" {
				return domain.ConfigurationError(fmt.Sprintf("empty symbol in category %s", c))
			}
			if prev, dup := seen[s]; dup {
				return domain.ConfigurationError(fmt.Sprintf("symbol %s listed under both %s and %s", s, prev, c))
			}
			seen[s] = c
		}
	}
	return nil
}
