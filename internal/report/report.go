// Package report prints run output as aligned text tables.
package report

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/Rajchodisetti/allocation-engine/internal/backtest"
	"github.com/Rajchodisetti/allocation-engine/internal/domain"
	"github.com/Rajchodisetti/allocation-engine/internal/universe"
)

const dateLayout = "2006-01-02"

type Printer struct {
	w io.Writer
}

func NewPrinter(w io.Writer) *Printer {
	return &Printer{w: w}
}

func (p *Printer) table() *tabwriter.Writer {
	return tabwriter.NewWriter(p.w, 0, 0, 2, ' ', 0)
}

// Orders prints one row per order under a header.
func (p *Printer) Orders(orders []domain.OrderRecord) error {
	w := p.table()
	fmt.Fprintln(w, "Symbol\tDate\tStage\tAction\tPrice\tSize\tTotal\tCash After")
	fmt.Fprintln(w, "------\t----\t-----\t------\t-----\t----\t-----\t----------")
	for _, o := range orders {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%.2f\t%d\t%.2f\t%.2f\n",
			o.Symbol, o.Date.Format(dateLayout), o.Stage, o.Action, o.Price, o.Size, o.TotalNotional, o.CashAfter)
	}
	return w.Flush()
}

// Allocation summarises the initial allocation per category: target budget
// against what was actually bought.
func (p *Printer) Allocation(u universe.Universe, weights map[universe.Category]float64, cash float64, orders []domain.OrderRecord) error {
	invested := map[universe.Category]float64{}
	for _, o := range orders {
		if o.Stage != domain.StageAllocation {
			continue
		}
		if c, ok := u.CategoryOf(o.Symbol); ok {
			invested[c] += o.TotalNotional
		}
	}

	w := p.table()
	fmt.Fprintln(w, "Category\tWeight\tBudget\tPer Instrument\tInvested")
	fmt.Fprintln(w, "--------\t------\t------\t--------------\t--------")
	for _, c := range universe.Allocated {
		budget := cash * weights[c]
		per := 0.0
		if n := len(u.Instruments(c)); n > 0 {
			per = budget / float64(n)
		}
		fmt.Fprintf(w, "%s\t%.2f%%\t%.2f\t%.2f\t%.2f\n", c, weights[c]*100, budget, per, invested[c])
	}
	return w.Flush()
}

// Rebalance prints net rebalancing flow per category for the given orders.
func (p *Printer) Rebalance(u universe.Universe, orders []domain.OrderRecord) error {
	type flow struct{ bought, sold float64 }
	flows := map[universe.Category]*flow{}
	for _, o := range orders {
		if o.Stage != domain.StageRebalance {
			continue
		}
		c, ok := u.CategoryOf(o.Symbol)
		if !ok {
			continue
		}
		f := flows[c]
		if f == nil {
			f = &flow{}
			flows[c] = f
		}
		if o.Action == domain.ActionBuy {
			f.bought += o.TotalNotional
		} else {
			f.sold += o.TotalNotional
		}
	}

	w := p.table()
	fmt.Fprintln(w, "Category\tBought\tSold\tNet")
	fmt.Fprintln(w, "--------\t------\t----\t---")
	for _, c := range universe.Allocated {
		f := flows[c]
		if f == nil {
			continue
		}
		fmt.Fprintf(w, "%s\t%.2f\t%.2f\t%.2f\n", c, f.bought, f.sold, f.bought-f.sold)
	}
	return w.Flush()
}

// DailyStats prints the state of one bar.
func (p *Printer) DailyStats(b backtest.Bar) error {
	w := p.table()
	fmt.Fprintf(w, "Date\t%s\n", b.Date.Format(dateLayout))
	if t := b.Telemetry; t != nil {
		fmt.Fprintf(w, "Benchmark RSI\t%s / %s\n", optional(t.BenchmarkRSI1), optional(t.BenchmarkRSI2))
		fmt.Fprintf(w, "Panic Index\t%s\n", optional(t.PanicLevel))
		fmt.Fprintf(w, "Sentiment\t%s\n", optional(t.SentimentMean))
		fmt.Fprintf(w, "Hedge Triggered\t%t\n", t.HedgeTriggered)
	}
	fmt.Fprintf(w, "Cash\t%.2f\n", b.Cash)
	fmt.Fprintf(w, "Portfolio Value\t%.2f\n", b.PortfolioValue)
	fmt.Fprintf(w, "Orders\t%d\n", len(b.Orders))
	return w.Flush()
}

// Result prints the run summary followed by the first trades.
func (p *Printer) Result(r *backtest.Result) error {
	w := p.table()
	fmt.Fprintf(w, "Period\t%s .. %s\n", day(r.Start), day(r.End))
	fmt.Fprintf(w, "Initial Value\t%.2f\n", r.InitialValue)
	fmt.Fprintf(w, "Final Value\t%.2f\n", r.FinalValue)
	fmt.Fprintf(w, "Total Return\t%.2f%%\n", r.TotalReturnPct)
	fmt.Fprintf(w, "Annualized Return\t%s\n", optionalPct(r.AnnualizedReturnPct))
	fmt.Fprintf(w, "Sharpe Ratio\t%s\n", optional(r.SharpeRatio))
	fmt.Fprintf(w, "Max Drawdown\t%.2f%% (%.2f)\n", r.MaxDrawdownPct, r.MaxDrawdown)
	for _, y := range r.AnnualReturns {
		fmt.Fprintf(w, "Return %d\t%.2f%%\n", y.Year, y.ReturnPct)
	}
	fmt.Fprintf(w, "Orders\t%d\n", r.Orders)
	fmt.Fprintf(w, "Closed Trades\t%d\n", r.ClosedTrades)
	fmt.Fprintf(w, "Won / Lost\t%d / %d\n", r.Won, r.Lost)
	fmt.Fprintf(w, "Avg Win / Avg Loss\t%.2f / %.2f\n", r.AvgWin, r.AvgLoss)
	if err := w.Flush(); err != nil {
		return err
	}
	if len(r.FirstTrades) == 0 {
		return nil
	}
	fmt.Fprintln(p.w)
	fmt.Fprintln(p.w, "First trades:")
	return p.Orders(r.FirstTrades)
}

func optional(v *float64) string {
	if v == nil {
		return "N/A"
	}
	return fmt.Sprintf("%.2f", *v)
}

func optionalPct(v *float64) string {
	if v == nil {
		return "N/A"
	}
	return fmt.Sprintf("%.2f%%", *v)
}

func day(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format(dateLayout)
}
