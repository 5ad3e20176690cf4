// Package indicators computes the per-bar technical signals the engine reads.
package indicators

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/Rajchodisetti/allocation-engine/internal/domain"
)

// RSI returns the Wilder relative strength index of the last close.
// The first average is a simple mean over the first period changes,
// later bars are smoothed with alpha = 1/period.
func RSI(closes []float64, period int) (float64, error) {
	if period <= 0 {
		return 0, fmt.Errorf("rsi period must be positive, got %d", period)
	}
	if len(closes) < period+1 {
		return 0, domain.DataUnavailable("", fmt.Sprintf("rsi(%d) needs %d closes, have %d", period, period+1, len(closes)))
	}

	var gain, loss float64
	for i := 1; i <= period; i++ {
		up, down := split(closes[i] - closes[i-1])
		gain += up
		loss += down
	}
	avgGain := gain / float64(period)
	avgLoss := loss / float64(period)

	for i := period + 1; i < len(closes); i++ {
		up, down := split(closes[i] - closes[i-1])
		avgGain = (avgGain*float64(period-1) + up) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + down) / float64(period)
	}

	if avgLoss == 0 {
		if avgGain == 0 {
			return 50, nil
		}
		return 100, nil
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs), nil
}

func split(change float64) (up, down float64) {
	if change > 0 {
		return change, 0
	}
	return 0, -change
}

// ZScore returns the standard score of the last value in window against the
// population mean and standard deviation of the whole window.
func ZScore(window []float64) (float64, error) {
	if len(window) < 2 {
		return 0, domain.DataUnavailable("", "z-score needs at least two observations")
	}
	mean, std := stat.PopMeanStdDev(window, nil)
	if std == 0 || math.IsNaN(std) {
		return 0, domain.DataUnavailable("", "z-score undefined for a flat window")
	}
	return stat.StdScore(window[len(window)-1], mean, std), nil
}

// Volatility is the population standard deviation of the last n closes.
func Volatility(closes []float64, n int) (float64, error) {
	if n <= 1 || len(closes) < n {
		return 0, domain.DataUnavailable("", fmt.Sprintf("volatility(%d) needs %d closes, have %d", n, n, len(closes)))
	}
	_, std := stat.PopMeanStdDev(closes[len(closes)-n:], nil)
	return std, nil
}
