package adapters

import (
	"fmt"
	"sort"
	"time"

	"github.com/Rajchodisetti/allocation-engine/internal/domain"
	"github.com/Rajchodisetti/allocation-engine/internal/indicators"
	"github.com/Rajchodisetti/allocation-engine/internal/portfolio"
)

// Indicator names understood by SimMarket.Indicator.
const (
	IndicatorRSI        = "rsi"
	IndicatorVolatility = "volatility"
	IndicatorPanic      = "panic"
)

// SimMarket replays daily bars over a union timeline and fills orders
// immediately at the current close against a portfolio.Ledger.
type SimMarket struct {
	bars     map[string][]domain.Bar // per symbol, ascending by date
	timeline []time.Time
	cursor   int            // index into timeline; -1 before the first Advance
	seen     map[string]int // per symbol, number of bars dated <= current date
	ledger   *portfolio.Ledger

	RSIPeriod        int
	VolatilityWindow int
}

// NewSimMarket builds a market from per-symbol bars. Bars need not be sorted.
func NewSimMarket(bars map[string][]domain.Bar, ledger *portfolio.Ledger) *SimMarket {
	sorted := make(map[string][]domain.Bar, len(bars))
	days := map[time.Time]struct{}{}
	for sym, series := range bars {
		s := make([]domain.Bar, len(series))
		copy(s, series)
		sort.SliceStable(s, func(i, j int) bool { return s[i].Date.Before(s[j].Date) })
		sorted[sym] = s
		for _, b := range s {
			days[dayOf(b.Date)] = struct{}{}
		}
	}
	timeline := make([]time.Time, 0, len(days))
	for d := range days {
		timeline = append(timeline, d)
	}
	sort.Slice(timeline, func(i, j int) bool { return timeline[i].Before(timeline[j]) })

	return &SimMarket{
		bars:             sorted,
		timeline:         timeline,
		cursor:           -1,
		seen:             make(map[string]int, len(sorted)),
		ledger:           ledger,
		RSIPeriod:        14,
		VolatilityWindow: 20,
	}
}

func dayOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Advance moves to the next date in the timeline. It returns false once the
// timeline is exhausted.
func (m *SimMarket) Advance() bool {
	if m.cursor+1 >= len(m.timeline) {
		return false
	}
	m.cursor++
	today := m.timeline[m.cursor]
	for sym, series := range m.bars {
		n := m.seen[sym]
		for n < len(series) && !dayOf(series[n].Date).After(today) {
			n++
		}
		m.seen[sym] = n
	}
	return true
}

// Len is the number of bars in the timeline.
func (m *SimMarket) Len() int {
	return len(m.timeline)
}

func (m *SimMarket) Date() time.Time {
	if m.cursor < 0 {
		return time.Time{}
	}
	return m.timeline[m.cursor]
}

// HasData reports whether symbol printed a bar on the current date.
func (m *SimMarket) HasData(symbol string) bool {
	_, ok := m.today(symbol)
	return ok
}

func (m *SimMarket) today(symbol string) (domain.Bar, bool) {
	n := m.seen[symbol]
	if m.cursor < 0 || n == 0 {
		return domain.Bar{}, false
	}
	b := m.bars[symbol][n-1]
	if !dayOf(b.Date).Equal(m.timeline[m.cursor]) {
		return domain.Bar{}, false
	}
	return b, true
}

// Price is the latest close at or before today. Symbols that have not
// printed a bar yet are unavailable.
func (m *SimMarket) Price(symbol string) (float64, error) {
	px, ok := m.lastClose(symbol)
	if !ok {
		return 0, domain.DataUnavailable(symbol, "no bar on or before "+m.Date().Format("2006-01-02"))
	}
	return px, nil
}

func (m *SimMarket) lastClose(symbol string) (float64, bool) {
	n := m.seen[symbol]
	if m.cursor < 0 || n == 0 {
		return 0, false
	}
	return m.bars[symbol][n-1].Close, true
}

// TrailingCloses returns the last n closes up to and including today.
func (m *SimMarket) TrailingCloses(symbol string, n int) ([]float64, error) {
	avail := m.seen[symbol]
	if avail < n {
		return nil, domain.DataUnavailable(symbol, fmt.Sprintf("need %d closes, have %d", n, avail))
	}
	return m.closes(symbol, avail-n, avail), nil
}

func (m *SimMarket) closes(symbol string, from, to int) []float64 {
	series := m.bars[symbol]
	out := make([]float64, 0, to-from)
	for _, b := range series[from:to] {
		out = append(out, b.Close)
	}
	return out
}

func (m *SimMarket) Position(symbol string) int {
	pos, _ := m.ledger.GetPosition(symbol)
	return pos.Quantity
}

// Positions returns the symbols with a non-zero position in sorted order.
func (m *SimMarket) Positions() []string {
	return m.ledger.Symbols()
}

func (m *SimMarket) Buy(symbol string, size int) (domain.Fill, error) {
	px, err := m.Price(symbol)
	if err != nil {
		return domain.Fill{}, domain.OrderRejected(symbol, err.Error())
	}
	if err := m.ledger.Buy(symbol, size, px, m.Date()); err != nil {
		return domain.Fill{}, err
	}
	return domain.Fill{Symbol: symbol, Action: domain.ActionBuy, Size: size, Price: px}, nil
}

func (m *SimMarket) Sell(symbol string, size int) (domain.Fill, error) {
	px, err := m.Price(symbol)
	if err != nil {
		return domain.Fill{}, domain.OrderRejected(symbol, err.Error())
	}
	realized, err := m.ledger.Sell(symbol, size, px, m.Date())
	if err != nil {
		return domain.Fill{}, err
	}
	return domain.Fill{Symbol: symbol, Action: domain.ActionSell, Size: size, Price: px, RealizedPnL: realized}, nil
}

func (m *SimMarket) Cash() float64 {
	return m.ledger.Cash()
}

func (m *SimMarket) AddCash(delta float64) {
	m.ledger.AddCash(delta)
}

// PortfolioValue marks every position at its last known close.
func (m *SimMarket) PortfolioValue() float64 {
	prices := map[string]float64{}
	for _, sym := range m.ledger.Symbols() {
		if px, ok := m.lastClose(sym); ok {
			prices[sym] = px
		}
	}
	return m.ledger.Value(prices)
}

// Indicator computes a named indicator for symbol over the closes seen so far.
func (m *SimMarket) Indicator(name, symbol string) (float64, error) {
	if m.seen[symbol] == 0 {
		return 0, domain.DataUnavailable(symbol, name+" has no history")
	}
	switch name {
	case IndicatorRSI:
		v, err := indicators.RSI(m.closes(symbol, 0, m.seen[symbol]), m.RSIPeriod)
		if err != nil {
			return 0, domain.DataUnavailable(symbol, err.Error())
		}
		return v, nil
	case IndicatorVolatility:
		v, err := indicators.Volatility(m.closes(symbol, 0, m.seen[symbol]), m.VolatilityWindow)
		if err != nil {
			return 0, domain.DataUnavailable(symbol, err.Error())
		}
		return v, nil
	case IndicatorPanic:
		return m.Price(symbol)
	}
	return 0, fmt.Errorf("unknown indicator %q", name)
}

// Ledger exposes the underlying account for snapshots.
func (m *SimMarket) Ledger() *portfolio.Ledger {
	return m.ledger
}
