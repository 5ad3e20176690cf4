package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/Rajchodisetti/allocation-engine/internal/domain"
)

// PostgresConfig holds database connection configuration
type PostgresConfig struct {
	DSN             string        `yaml:"dsn"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	QueryTimeout    time.Duration `yaml:"query_timeout"`
}

// DefaultPostgresConfig returns reasonable pool defaults
func DefaultPostgresConfig() PostgresConfig {
	return PostgresConfig{
		MaxOpenConns:    5,
		MaxIdleConns:    2,
		ConnMaxLifetime: 30 * time.Minute,
		QueryTimeout:    10 * time.Second,
	}
}

// OpenPostgres connects, pings and migrates the schema.
func OpenPostgres(ctx context.Context, cfg PostgresConfig) (*sqlx.DB, error) {
	if cfg.DSN == "" {
		return nil, domain.ConfigurationError("postgres DSN is required")
	}
	db, err := sqlx.Open("postgres", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if err := Migrate(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS orders (
		seq            BIGSERIAL PRIMARY KEY,
		id             UUID NOT NULL UNIQUE,
		symbol         TEXT NOT NULL,
		date           DATE NOT NULL,
		action         TEXT NOT NULL,
		stage          TEXT NOT NULL,
		price          NUMERIC(18,4) NOT NULL,
		size           INTEGER NOT NULL,
		total_notional NUMERIC(20,2) NOT NULL,
		cash_after     NUMERIC(20,2) NOT NULL,
		realized_pnl   NUMERIC(20,2) NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS risk_telemetry (
		seq                           BIGSERIAL PRIMARY KEY,
		date                          DATE NOT NULL,
		benchmark_rsi_1               NUMERIC(10,4),
		benchmark_rsi_2               NUMERIC(10,4),
		sentiment_mean                NUMERIC(10,6),
		sentiment_weight              NUMERIC(10,6) NOT NULL,
		max_hedge_ratio               NUMERIC(10,6) NOT NULL,
		rebalance_deviation_threshold NUMERIC(10,6) NOT NULL,
		rebalance_min_adjustment      NUMERIC(10,6) NOT NULL,
		panic_level                   NUMERIC(18,4),
		commission_rate               NUMERIC(10,6) NOT NULL,
		slippage_rate                 NUMERIC(10,6) NOT NULL,
		time_stop_loss_days           INTEGER NOT NULL,
		cash                          NUMERIC(20,2) NOT NULL,
		portfolio_value               NUMERIC(20,2) NOT NULL,
		hedge_triggered               BOOLEAN NOT NULL
	)`,
}

// Migrate creates the tables if they do not exist.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to migrate schema: %w", err)
		}
	}
	return nil
}

func money(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v).Round(2)
}

func price(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v).Round(4)
}

func ratio(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v).Round(6)
}

func nullable(v *float64, places int32) decimal.NullDecimal {
	if v == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(decimal.NewFromFloat(*v).Round(places))
}

func fromNullable(d decimal.NullDecimal) *float64 {
	if !d.Valid {
		return nil
	}
	f := d.Decimal.InexactFloat64()
	return &f
}

func persistErr(op string, err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return domain.PersistenceFailure(op+": duplicate record", err)
	}
	return domain.PersistenceFailure(op, err)
}
