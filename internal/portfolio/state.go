package portfolio

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/Rajchodisetti/allocation-engine/internal/domain"
)

// Position represents a holding for a single symbol
type Position struct {
	Quantity      int     `json:"quantity"`        // Current position size (shares)
	AvgEntryPrice float64 `json:"avg_entry_price"` // Average entry price
	RealizedPnL   float64 `json:"realized_pnl"`    // Realized P&L since the position was opened
	LastTradeAt   string  `json:"last_trade_at"`   // Bar date of last trade
	TradeCount    int     `json:"trade_count"`
}

// State represents the complete ledger state
type State struct {
	Version   int64               `json:"version"`    // Monotonic version for atomic updates
	UpdatedAt string              `json:"updated_at"` // Last update timestamp
	Cash      float64             `json:"cash"`
	Positions map[string]Position `json:"positions"` // Positions by symbol
	Trades    int                 `json:"trades"`
}

// Ledger tracks cash and positions for the simulated broker. It does not
// allow short positions: a sell may only reduce an existing holding.
type Ledger struct {
	filePath string
	state    State
	mu       sync.RWMutex
}

// NewLedger creates a ledger funded with the given starting cash. filePath may
// be empty, in which case Save is a no-op.
func NewLedger(filePath string, startingCash float64) *Ledger {
	return &Ledger{
		filePath: filePath,
		state: State{
			Cash:      startingCash,
			Positions: make(map[string]Position),
		},
	}
}

// Load replaces the ledger state with the snapshot on disk, if one exists
func (l *Ledger) Load() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.filePath == "" {
		return nil
	}
	data, err := os.ReadFile(l.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read ledger state: %w", err)
	}

	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		return fmt.Errorf("failed to unmarshal ledger state: %w", err)
	}
	if st.Positions == nil {
		st.Positions = make(map[string]Position)
	}
	l.state = st
	return nil
}

// Save atomically writes the ledger state to disk
func (l *Ledger) Save() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.saveUnsafe()
}

func (l *Ledger) saveUnsafe() error {
	if l.filePath == "" {
		return nil
	}
	l.state.Version++
	l.state.UpdatedAt = time.Now().UTC().Format(time.RFC3339)

	data, err := json.MarshalIndent(l.state, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal ledger state: %w", err)
	}

	// Atomic write using temp file + rename
	tempPath := l.filePath + ".tmp"
	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write temp ledger state: %w", err)
	}
	if err := os.Rename(tempPath, l.filePath); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to rename ledger state: %w", err)
	}
	return nil
}

func (l *Ledger) Cash() float64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state.Cash
}

// AddCash adjusts cash by delta. Negative deltas are used for trading costs.
func (l *Ledger) AddCash(delta float64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.state.Cash += delta
}

// GetPosition returns the current position for a symbol
func (l *Ledger) GetPosition(symbol string) (Position, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	pos, ok := l.state.Positions[symbol]
	return pos, ok && pos.Quantity != 0
}

// Symbols returns the symbols with a non-zero position in sorted order
func (l *Ledger) Symbols() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]string, 0, len(l.state.Positions))
	for sym, pos := range l.state.Positions {
		if pos.Quantity != 0 {
			out = append(out, sym)
		}
	}
	sort.Strings(out)
	return out
}

// Snapshot returns a copy of the state
func (l *Ledger) Snapshot() State {
	l.mu.RLock()
	defer l.mu.RUnlock()
	st := l.state
	st.Positions = make(map[string]Position, len(l.state.Positions))
	for sym, pos := range l.state.Positions {
		st.Positions[sym] = pos
	}
	return st
}

// Buy debits size*price from cash and adds to the position.
func (l *Ledger) Buy(symbol string, size int, price float64, at time.Time) error {
	if size <= 0 || price <= 0 {
		return domain.OrderRejected(symbol, fmt.Sprintf("invalid buy size=%d price=%v", size, price))
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	cost := float64(size) * price
	if cost > l.state.Cash {
		return domain.OrderRejected(symbol, fmt.Sprintf("insufficient cash: need %.2f, have %.2f", cost, l.state.Cash))
	}

	pos := l.state.Positions[symbol]
	totalCost := pos.AvgEntryPrice*float64(pos.Quantity) + cost
	pos.Quantity += size
	pos.AvgEntryPrice = totalCost / float64(pos.Quantity)
	pos.LastTradeAt = at.Format("2006-01-02")
	pos.TradeCount++

	l.state.Cash -= cost
	l.state.Positions[symbol] = pos
	l.state.Trades++
	return nil
}

// Sell credits size*price to cash and reduces the position. It returns the
// realized P&L of the sold shares against the average entry price.
func (l *Ledger) Sell(symbol string, size int, price float64, at time.Time) (float64, error) {
	if size <= 0 || price <= 0 {
		return 0, domain.OrderRejected(symbol, fmt.Sprintf("invalid sell size=%d price=%v", size, price))
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	pos := l.state.Positions[symbol]
	if size > pos.Quantity {
		return 0, domain.OrderRejected(symbol, fmt.Sprintf("sell %d exceeds position %d", size, pos.Quantity))
	}

	realized := float64(size) * (price - pos.AvgEntryPrice)
	pos.Quantity -= size
	pos.RealizedPnL += realized
	pos.LastTradeAt = at.Format("2006-01-02")
	pos.TradeCount++
	if pos.Quantity == 0 {
		pos.AvgEntryPrice = 0
	}

	l.state.Cash += float64(size) * price
	l.state.Positions[symbol] = pos
	l.state.Trades++
	return realized, nil
}

// Value returns cash plus the marked value of every position. Symbols missing
// from prices are marked at their average entry price.
func (l *Ledger) Value(prices map[string]float64) float64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	total := l.state.Cash
	for sym, pos := range l.state.Positions {
		if pos.Quantity == 0 {
			continue
		}
		px, ok := prices[sym]
		if !ok {
			px = pos.AvgEntryPrice
		}
		total += float64(pos.Quantity) * px
	}
	return total
}
