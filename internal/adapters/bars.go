package adapters

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/Rajchodisetti/allocation-engine/internal/domain"
)

const dateLayout = "2006-01-02"

// DateRange bounds a bar load. Zero values leave that side open.
type DateRange struct {
	From time.Time
	To   time.Time
}

func (r DateRange) contains(t time.Time) bool {
	if !r.From.IsZero() && t.Before(r.From) {
		return false
	}
	if !r.To.IsZero() && t.After(r.To) {
		return false
	}
	return true
}

// ReadBars parses date,open,high,low,close,volume rows. A header row is
// detected by a non-date first column and skipped.
func ReadBars(r io.Reader, symbol string, rng DateRange) ([]domain.Bar, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1

	var out []domain.Bar
	line := 0
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", symbol, err)
		}
		line++
		if len(rec) < 6 {
			return nil, fmt.Errorf("%s line %d: want 6 columns, got %d", symbol, line, len(rec))
		}
		date, err := time.Parse(dateLayout, strings.TrimSpace(rec[0]))
		if err != nil {
			if line == 1 {
				continue
			}
			return nil, fmt.Errorf("%s line %d: bad date %q", symbol, line, rec[0])
		}
		if !rng.contains(date) {
			continue
		}
		vals := make([]float64, 5)
		for i := range vals {
			vals[i], err = strconv.ParseFloat(strings.TrimSpace(rec[i+1]), 64)
			if err != nil {
				return nil, fmt.Errorf("%s line %d column %d: %w", symbol, line, i+2, err)
			}
		}
		out = append(out, domain.Bar{
			Symbol: symbol, Date: date,
			Open: vals[0], High: vals[1], Low: vals[2], Close: vals[3], Volume: vals[4],
		})
	}
	return out, nil
}

// LoadBarsDir reads <dir>/<symbol>.csv for each symbol. Missing files are
// reported through missing rather than failing the load.
func LoadBarsDir(dir string, symbols []string, rng DateRange) (bars map[string][]domain.Bar, missing []string, err error) {
	bars = make(map[string][]domain.Bar, len(symbols))
	for _, sym := range symbols {
		f, err := os.Open(filepath.Join(dir, sym+".csv"))
		if err != nil {
			if os.IsNotExist(err) {
				missing = append(missing, sym)
				continue
			}
			return nil, nil, err
		}
		series, err := ReadBars(f, sym, rng)
		f.Close()
		if err != nil {
			return nil, nil, err
		}
		bars[sym] = series
	}
	return bars, missing, nil
}

// WriteBars writes bars in the format ReadBars accepts.
func WriteBars(w io.Writer, bars []domain.Bar) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"date", "open", "high", "low", "close", "volume"}); err != nil {
		return err
	}
	for _, b := range bars {
		row := []string{
			b.Date.Format(dateLayout),
			strconv.FormatFloat(b.Open, 'f', -1, 64),
			strconv.FormatFloat(b.High, 'f', -1, 64),
			strconv.FormatFloat(b.Low, 'f', -1, 64),
			strconv.FormatFloat(b.Close, 'f', -1, 64),
			strconv.FormatFloat(b.Volume, 'f', -1, 64),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
