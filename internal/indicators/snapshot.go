package indicators

import (
	"time"

	"gonum.org/v1/gonum/stat"
)

// Snapshot is the ephemeral indicator state for one bar.
// Nil pointers and missing map keys mean the signal was unavailable.
type Snapshot struct {
	Date         time.Time
	BenchmarkRSI [2]*float64
	Volatility   map[string]float64
	Panic        *float64
	Sentiment    map[string]float64
}

// SentimentMean averages the available sentiment scores.
func (s Snapshot) SentimentMean() (float64, bool) {
	if len(s.Sentiment) == 0 {
		return 0, false
	}
	scores := make([]float64, 0, len(s.Sentiment))
	for _, v := range s.Sentiment {
		scores = append(scores, v)
	}
	return stat.Mean(scores, nil), true
}

// Float returns a pointer to v, or nil when err is set.
func Float(v float64, err error) *float64 {
	if err != nil {
		return nil
	}
	return &v
}
