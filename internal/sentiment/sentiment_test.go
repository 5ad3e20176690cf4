package sentiment

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBetaProviderScoresInRange(t *testing.T) {
	p := NewBetaProvider(nil)
	syms := []string{"00700.HK", "AAPL.US", "UNKNOWN"}
	for i := 0; i < 200; i++ {
		scores, err := p.Scores(context.Background(), time.Now(), syms)
		require.NoError(t, err)
		require.Len(t, scores, 3)
		for sym, v := range scores {
			assert.GreaterOrEqual(t, v, 0.0, sym)
			assert.LessOrEqual(t, v, 1.0, sym)
		}
	}
}

func TestBetaProviderHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewBetaProvider(nil).Scores(ctx, time.Now(), []string{"AAPL.US"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestStaticOmitsMissing(t *testing.T) {
	s := Static{"AAPL.US": 0.3}
	scores, err := s.Scores(context.Background(), time.Now(), []string{"AAPL.US", "00700.HK"})
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"AAPL.US": 0.3}, scores)
}

func TestStaticClampsScores(t *testing.T) {
	s := Static{"AAPL.US": 5, "00700.HK": -1}
	scores, err := s.Scores(context.Background(), time.Now(), []string{"AAPL.US", "00700.HK"})
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"AAPL.US": 1, "00700.HK": 0}, scores)
}

func TestClamp(t *testing.T) {
	assert.Equal(t, 0.0, Clamp(-0.2))
	assert.Equal(t, 1.0, Clamp(1.7))
	assert.Equal(t, 0.5, Clamp(0.5))
}
