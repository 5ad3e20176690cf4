package engine

import (
	"fmt"
	"sort"
	"time"

	"github.com/Rajchodisetti/allocation-engine/internal/domain"
)

// fakeMarket fills at the configured price and refuses buys beyond cash and
// sells beyond the position.
type fakeMarket struct {
	date       time.Time
	prices     map[string]float64
	positions  map[string]int
	trailing   map[string][]float64
	indicators map[string]float64 // name + ":" + symbol
	cash       float64
	reject     map[string]bool
}

func newFakeMarket(cash float64) *fakeMarket {
	return &fakeMarket{
		date:       time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
		prices:     map[string]float64{},
		positions:  map[string]int{},
		trailing:   map[string][]float64{},
		indicators: map[string]float64{},
		cash:       cash,
		reject:     map[string]bool{},
	}
}

func (f *fakeMarket) Date() time.Time { return f.date }

func (f *fakeMarket) HasData(symbol string) bool {
	_, ok := f.prices[symbol]
	return ok
}

func (f *fakeMarket) Price(symbol string) (float64, error) {
	px, ok := f.prices[symbol]
	if !ok {
		return 0, domain.DataUnavailable(symbol, "no price")
	}
	return px, nil
}

func (f *fakeMarket) TrailingCloses(symbol string, n int) ([]float64, error) {
	c := f.trailing[symbol]
	if len(c) < n {
		return c, domain.DataUnavailable(symbol, "short window")
	}
	return c[len(c)-n:], nil
}

func (f *fakeMarket) Position(symbol string) int { return f.positions[symbol] }

func (f *fakeMarket) Positions() []string {
	var out []string
	for sym, size := range f.positions {
		if size != 0 {
			out = append(out, sym)
		}
	}
	sort.Strings(out)
	return out
}

func (f *fakeMarket) Buy(symbol string, size int) (domain.Fill, error) {
	px, err := f.Price(symbol)
	if err != nil || size <= 0 || f.reject[symbol] {
		return domain.Fill{}, domain.OrderRejected(symbol, "refused")
	}
	if float64(size)*px > f.cash {
		return domain.Fill{}, domain.OrderRejected(symbol, "insufficient cash")
	}
	f.cash -= float64(size) * px
	f.positions[symbol] += size
	return domain.Fill{Symbol: symbol, Action: domain.ActionBuy, Size: size, Price: px}, nil
}

func (f *fakeMarket) Sell(symbol string, size int) (domain.Fill, error) {
	px, err := f.Price(symbol)
	if err != nil || size <= 0 || size > f.positions[symbol] || f.reject[symbol] {
		return domain.Fill{}, domain.OrderRejected(symbol, "refused")
	}
	f.cash += float64(size) * px
	f.positions[symbol] -= size
	return domain.Fill{Symbol: symbol, Action: domain.ActionSell, Size: size, Price: px}, nil
}

func (f *fakeMarket) Cash() float64 { return f.cash }

func (f *fakeMarket) AddCash(delta float64) { f.cash += delta }

func (f *fakeMarket) PortfolioValue() float64 {
	v := f.cash
	for sym, size := range f.positions {
		v += float64(size) * f.prices[sym]
	}
	return v
}

func (f *fakeMarket) Indicator(name, symbol string) (float64, error) {
	v, ok := f.indicators[name+":"+symbol]
	if !ok {
		return 0, domain.DataUnavailable(symbol, fmt.Sprintf("no %s", name))
	}
	return v, nil
}

func (f *fakeMarket) setIndicator(name, symbol string, v float64) {
	f.indicators[name+":"+symbol] = v
}
