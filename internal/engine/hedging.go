package engine

import (
	"context"

	"github.com/Rajchodisetti/allocation-engine/internal/domain"
	"github.com/Rajchodisetti/allocation-engine/internal/indicators"
	"github.com/Rajchodisetti/allocation-engine/internal/observ"
	"github.com/Rajchodisetti/allocation-engine/internal/strategy"
	"github.com/Rajchodisetti/allocation-engine/internal/universe"
)

// HedgeTriggered requires an oversold benchmark, an elevated panic index and
// bearish sentiment at once. Any unavailable input counts as not met.
func HedgeTriggered(s indicators.Snapshot) bool {
	oversold := false
	for _, rsi := range s.BenchmarkRSI {
		if rsi != nil && *rsi < strategy.RSIOversold {
			oversold = true
		}
	}
	panicking := s.Panic != nil && *s.Panic > strategy.PanicThreshold
	mean, ok := s.SentimentMean()
	bearish := ok && mean < strategy.SentimentThreshold
	return oversold && panicking && bearish
}

// snapshot gathers this bar's indicator state from the market and the
// sentiment provider.
func (e *Engine) snapshot(ctx context.Context, m Market) indicators.Snapshot {
	s := indicators.Snapshot{
		Date:       m.Date(),
		Volatility: map[string]float64{},
	}
	for i, sym := range e.universe.Benchmarks {
		s.BenchmarkRSI[i] = indicators.Float(m.Indicator(IndicatorRSI, sym))
	}
	s.Panic = indicators.Float(m.Indicator(IndicatorPanic, e.universe.PanicIndex))

	for _, c := range universe.All {
		for _, sym := range e.universe.Instruments(c) {
			v, err := m.Indicator(IndicatorVolatility, sym)
			if err != nil {
				continue
			}
			s.Volatility[sym] = v
			observ.SetGauge("asset_volatility", v, map[string]string{"symbol": sym})
		}
	}

	if e.sentiment != nil && len(e.universe.SentimentSymbols) > 0 {
		scores, err := e.sentiment.Scores(ctx, s.Date, e.universe.SentimentSymbols)
		if err != nil {
			e.log.Warn().Err(err).Msg("sentiment unavailable")
			observ.IncCounter("skips_total", map[string]string{"stage": string(domain.StageHedge), "reason": "sentiment_unavailable"})
		} else {
			s.Sentiment = scores
		}
	}
	return s
}

// hedge always records telemetry for the bar, then buys the hedge basket
// when the trigger holds.
func (e *Engine) hedge(ctx context.Context, m Market) {
	snap := e.snapshot(ctx, m)
	triggered := HedgeTriggered(snap)
	pv := m.PortfolioValue()

	rec := domain.RiskTelemetryRecord{
		Date:                        snap.Date,
		BenchmarkRSI1:               snap.BenchmarkRSI[0],
		BenchmarkRSI2:               snap.BenchmarkRSI[1],
		PanicLevel:                  snap.Panic,
		SentimentWeight:             e.params.AISentimentWeight,
		MaxHedgeRatio:               e.params.MaxHedgeRatio,
		RebalanceDeviationThreshold: e.params.RebalanceDeviationThreshold,
		RebalanceMinAdjustment:      e.params.RebalanceMinAdjustmentThreshold,
		CommissionRate:              e.params.CommissionRate,
		SlippageRate:                e.params.SlippageRate,
		TimeStopLossDays:            e.params.TimeStopLossDays,
		Cash:                        m.Cash(),
		PortfolioValue:              pv,
		HedgeTriggered:              triggered,
	}
	if mean, ok := snap.SentimentMean(); ok {
		rec.SentimentMean = &mean
	}
	e.recorder.RecordTelemetry(ctx, rec)

	if !triggered {
		return
	}
	observ.IncCounter("hedge_triggers_total", nil)

	symbols := e.universe.Instruments(universe.Hedge)
	if len(symbols) == 0 || pv <= 0 {
		e.skip(domain.StageHedge, "", "nothing_to_hedge", nil)
		return
	}
	amount := pv * e.params.MaxHedgeRatio
	perInstrument := amount / float64(len(symbols))
	e.log.Info().Float64("hedge_amount", amount).Msg("hedge triggered")

	for _, sym := range symbols {
		if err := ctx.Err(); err != nil {
			return
		}
		px, err := m.Price(sym)
		if err != nil || px <= 0 {
			e.skip(domain.StageHedge, sym, "no_price", err)
			continue
		}
		size := floorSize(perInstrument / px)
		if size <= 0 {
			e.skip(domain.StageHedge, sym, "zero_size", nil)
			continue
		}
		e.execute(ctx, m, domain.StageHedge, domain.ActionBuy, sym, size)
	}
}
