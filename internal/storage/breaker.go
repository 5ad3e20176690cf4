package storage

import (
	"context"
	"time"

	"github.com/sony/gobreaker"

	"github.com/Rajchodisetti/allocation-engine/internal/domain"
	"github.com/Rajchodisetti/allocation-engine/internal/observ"
)

// Breaker stops hammering a failing durable store. While open, saves fail
// fast with a persistence error.
type Breaker[T any] struct {
	next Repository[T]
	cb   *gobreaker.CircuitBreaker
}

func NewBreaker[T any](name string, next Repository[T]) *Breaker[T] {
	st := gobreaker.Settings{Name: name}
	st.Interval = 60 * time.Second
	st.Timeout = 30 * time.Second
	st.ReadyToTrip = func(counts gobreaker.Counts) bool {
		return counts.ConsecutiveFailures >= 3
	}
	st.OnStateChange = func(name string, from, to gobreaker.State) {
		l := observ.Logger()
		l.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("sink breaker state change")
		observ.SetGauge("sink_breaker_open", boolGauge(to == gobreaker.StateOpen), map[string]string{"sink": name})
	}
	return &Breaker[T]{next: next, cb: gobreaker.NewCircuitBreaker(st)}
}

func (b *Breaker[T]) Save(ctx context.Context, record T) error {
	_, err := b.cb.Execute(func() (interface{}, error) {
		return nil, b.next.Save(ctx, record)
	})
	if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
		return domain.PersistenceFailure("sink "+b.cb.Name()+" unavailable", err)
	}
	return err
}

func (b *Breaker[T]) List(ctx context.Context, page, pageSize int) (PageResult[T], error) {
	return b.next.List(ctx, page, pageSize)
}

// State reports the breaker state name.
func (b *Breaker[T]) State() string {
	return b.cb.State().String()
}

func boolGauge(v bool) float64 {
	if v {
		return 1
	}
	return 0
}
