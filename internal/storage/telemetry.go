package storage

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/Rajchodisetti/allocation-engine/internal/domain"
)

// PostgresTelemetry stores RiskTelemetryRecords in the risk_telemetry table.
type PostgresTelemetry struct {
	db      *sqlx.DB
	timeout time.Duration
}

func NewPostgresTelemetry(db *sqlx.DB, timeout time.Duration) *PostgresTelemetry {
	if timeout <= 0 {
		timeout = DefaultPostgresConfig().QueryTimeout
	}
	return &PostgresTelemetry{db: db, timeout: timeout}
}

type telemetryRow struct {
	Date                        time.Time           `db:"date"`
	BenchmarkRSI1               decimal.NullDecimal `db:"benchmark_rsi_1"`
	BenchmarkRSI2               decimal.NullDecimal `db:"benchmark_rsi_2"`
	SentimentMean               decimal.NullDecimal `db:"sentiment_mean"`
	SentimentWeight             decimal.Decimal     `db:"sentiment_weight"`
	MaxHedgeRatio               decimal.Decimal     `db:"max_hedge_ratio"`
	RebalanceDeviationThreshold decimal.Decimal     `db:"rebalance_deviation_threshold"`
	RebalanceMinAdjustment      decimal.Decimal     `db:"rebalance_min_adjustment"`
	PanicLevel                  decimal.NullDecimal `db:"panic_level"`
	CommissionRate              decimal.Decimal     `db:"commission_rate"`
	SlippageRate                decimal.Decimal     `db:"slippage_rate"`
	TimeStopLossDays            int                 `db:"time_stop_loss_days"`
	Cash                        decimal.Decimal     `db:"cash"`
	PortfolioValue              decimal.Decimal     `db:"portfolio_value"`
	HedgeTriggered              bool                `db:"hedge_triggered"`
}

func (r telemetryRow) record() domain.RiskTelemetryRecord {
	return domain.RiskTelemetryRecord{
		Date:                        r.Date,
		BenchmarkRSI1:               fromNullable(r.BenchmarkRSI1),
		BenchmarkRSI2:               fromNullable(r.BenchmarkRSI2),
		SentimentMean:               fromNullable(r.SentimentMean),
		SentimentWeight:             r.SentimentWeight.InexactFloat64(),
		MaxHedgeRatio:               r.MaxHedgeRatio.InexactFloat64(),
		RebalanceDeviationThreshold: r.RebalanceDeviationThreshold.InexactFloat64(),
		RebalanceMinAdjustment:      r.RebalanceMinAdjustment.InexactFloat64(),
		PanicLevel:                  fromNullable(r.PanicLevel),
		CommissionRate:              r.CommissionRate.InexactFloat64(),
		SlippageRate:                r.SlippageRate.InexactFloat64(),
		TimeStopLossDays:            r.TimeStopLossDays,
		Cash:                        r.Cash.InexactFloat64(),
		PortfolioValue:              r.PortfolioValue.InexactFloat64(),
		HedgeTriggered:              r.HedgeTriggered,
	}
}

const insertTelemetry = `
	INSERT INTO risk_telemetry (date, benchmark_rsi_1, benchmark_rsi_2, sentiment_mean, sentiment_weight,
		max_hedge_ratio, rebalance_deviation_threshold, rebalance_min_adjustment, panic_level,
		commission_rate, slippage_rate, time_stop_loss_days, cash, portfolio_value, hedge_triggered)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`

func (p *PostgresTelemetry) Save(ctx context.Context, t domain.RiskTelemetryRecord) error {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	_, err := p.db.ExecContext(ctx, insertTelemetry,
		t.Date, nullable(t.BenchmarkRSI1, 4), nullable(t.BenchmarkRSI2, 4), nullable(t.SentimentMean, 6),
		ratio(t.SentimentWeight), ratio(t.MaxHedgeRatio), ratio(t.RebalanceDeviationThreshold),
		ratio(t.RebalanceMinAdjustment), nullable(t.PanicLevel, 4), ratio(t.CommissionRate),
		ratio(t.SlippageRate), t.TimeStopLossDays, money(t.Cash), money(t.PortfolioValue), t.HedgeTriggered)
	if err != nil {
		return persistErr("insert telemetry", err)
	}
	return nil
}

func (p *PostgresTelemetry) List(ctx context.Context, page, pageSize int) (PageResult[domain.RiskTelemetryRecord], error) {
	page, pageSize, err := normalizePage(page, pageSize)
	if err != nil {
		return PageResult[domain.RiskTelemetryRecord]{}, err
	}
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	var total int
	if err := p.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM risk_telemetry`); err != nil {
		return PageResult[domain.RiskTelemetryRecord]{}, persistErr("count telemetry", err)
	}

	var rows []telemetryRow
	err = p.db.SelectContext(ctx, &rows, `
		SELECT date, benchmark_rsi_1, benchmark_rsi_2, sentiment_mean, sentiment_weight, max_hedge_ratio,
			rebalance_deviation_threshold, rebalance_min_adjustment, panic_level, commission_rate,
			slippage_rate, time_stop_loss_days, cash, portfolio_value, hedge_triggered
		FROM risk_telemetry
		ORDER BY seq
		LIMIT $1 OFFSET $2`, pageSize, Offset(page, pageSize))
	if err != nil {
		return PageResult[domain.RiskTelemetryRecord]{}, persistErr("list telemetry", err)
	}

	data := make([]domain.RiskTelemetryRecord, 0, len(rows))
	for _, r := range rows {
		data = append(data, r.record())
	}
	return NewPageResult(page, pageSize, total, data), nil
}
