package engine

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/Rajchodisetti/allocation-engine/internal/domain"
	"github.com/Rajchodisetti/allocation-engine/internal/observ"
	"github.com/Rajchodisetti/allocation-engine/internal/storage"
)

// Recorder is the trade and telemetry sink. Records always land in the
// in-memory logs first; a durable write failure is logged and counted but
// never undoes the trade it describes.
type Recorder struct {
	trades    *storage.Memory[domain.OrderRecord]
	telemetry *storage.Memory[domain.RiskTelemetryRecord]

	durableOrders    storage.Repository[domain.OrderRecord]
	durableTelemetry storage.Repository[domain.RiskTelemetryRecord]
	log              zerolog.Logger
}

// NewRecorder wires optional durable repositories behind the in-memory logs.
func NewRecorder(orders storage.Repository[domain.OrderRecord], telemetry storage.Repository[domain.RiskTelemetryRecord], logger zerolog.Logger) *Recorder {
	return &Recorder{
		trades:           storage.NewMemory[domain.OrderRecord](),
		telemetry:        storage.NewMemory[domain.RiskTelemetryRecord](),
		durableOrders:    orders,
		durableTelemetry: telemetry,
		log:              logger,
	}
}

// RecordOrder returns the durable error, if any, for callers that care.
func (r *Recorder) RecordOrder(ctx context.Context, rec domain.OrderRecord) error {
	// the in-memory log ignores cancellation so reporting stays complete
	_ = r.trades.Save(context.Background(), rec)
	if r.durableOrders == nil {
		return nil
	}
	if err := r.durableOrders.Save(ctx, rec); err != nil {
		r.log.Error().Err(err).Str("order_id", rec.ID).Str("symbol", rec.Symbol).Msg("failed to persist order")
		observ.IncCounter("persistence_failures_total", map[string]string{"kind": "order"})
		return err
	}
	return nil
}

func (r *Recorder) RecordTelemetry(ctx context.Context, rec domain.RiskTelemetryRecord) error {
	_ = r.telemetry.Save(context.Background(), rec)
	if r.durableTelemetry == nil {
		return nil
	}
	if err := r.durableTelemetry.Save(ctx, rec); err != nil {
		r.log.Error().Err(err).Time("date", rec.Date).Msg("failed to persist telemetry")
		observ.IncCounter("persistence_failures_total", map[string]string{"kind": "telemetry"})
		return err
	}
	return nil
}

// Trades returns every order recorded this run.
func (r *Recorder) Trades() []domain.OrderRecord {
	return r.trades.All()
}

// Telemetry returns every telemetry record of this run.
func (r *Recorder) Telemetry() []domain.RiskTelemetryRecord {
	return r.telemetry.All()
}

// TradesSince returns the orders recorded after the first n, so a caller
// can pick up what a single bar produced.
func (r *Recorder) TradesSince(n int) []domain.OrderRecord {
	return r.trades.Since(n)
}

func (r *Recorder) TradeCount() int {
	return r.trades.Len()
}

func (r *Recorder) TelemetrySince(n int) []domain.RiskTelemetryRecord {
	return r.telemetry.Since(n)
}

func (r *Recorder) TelemetryCount() int {
	return r.telemetry.Len()
}

// Orders exposes the listing side of the sink, preferring the durable store.
func (r *Recorder) Orders() storage.Repository[domain.OrderRecord] {
	if r.durableOrders != nil {
		return r.durableOrders
	}
	return r.trades
}

func (r *Recorder) TelemetryRepository() storage.Repository[domain.RiskTelemetryRecord] {
	if r.durableTelemetry != nil {
		return r.durableTelemetry
	}
	return r.telemetry
}
