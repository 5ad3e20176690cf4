package storage

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/Rajchodisetti/allocation-engine/internal/domain"
)

// PostgresOrders stores OrderRecords in the orders table.
type PostgresOrders struct {
	db      *sqlx.DB
	timeout time.Duration
}

func NewPostgresOrders(db *sqlx.DB, timeout time.Duration) *PostgresOrders {
	if timeout <= 0 {
		timeout = DefaultPostgresConfig().QueryTimeout
	}
	return &PostgresOrders{db: db, timeout: timeout}
}

type orderRow struct {
	ID            string          `db:"id"`
	Symbol        string          `db:"symbol"`
	Date          time.Time       `db:"date"`
	Action        string          `db:"action"`
	Stage         string          `db:"stage"`
	Price         decimal.Decimal `db:"price"`
	Size          int             `db:"size"`
	TotalNotional decimal.Decimal `db:"total_notional"`
	CashAfter     decimal.Decimal `db:"cash_after"`
	RealizedPnL   decimal.Decimal `db:"realized_pnl"`
}

func (r orderRow) record() domain.OrderRecord {
	return domain.OrderRecord{
		ID:            r.ID,
		Symbol:        r.Symbol,
		Date:          r.Date,
		Action:        domain.Action(r.Action),
		Stage:         domain.Stage(r.Stage),
		Price:         r.Price.InexactFloat64(),
		Size:          r.Size,
		TotalNotional: r.TotalNotional.InexactFloat64(),
		CashAfter:     r.CashAfter.InexactFloat64(),
		RealizedPnL:   r.RealizedPnL.InexactFloat64(),
	}
}

const insertOrder = `
	INSERT INTO orders (id, symbol, date, action, stage, price, size, total_notional, cash_after, realized_pnl)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

func (p *PostgresOrders) Save(ctx context.Context, o domain.OrderRecord) error {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	_, err := p.db.ExecContext(ctx, insertOrder,
		o.ID, o.Symbol, o.Date, string(o.Action), string(o.Stage),
		price(o.Price), o.Size, money(o.TotalNotional), money(o.CashAfter), money(o.RealizedPnL))
	if err != nil {
		return persistErr("insert order", err)
	}
	return nil
}

func (p *PostgresOrders) List(ctx context.Context, page, pageSize int) (PageResult[domain.OrderRecord], error) {
	page, pageSize, err := normalizePage(page, pageSize)
	if err != nil {
		return PageResult[domain.OrderRecord]{}, err
	}
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	var total int
	if err := p.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM orders`); err != nil {
		return PageResult[domain.OrderRecord]{}, persistErr("count orders", err)
	}

	var rows []orderRow
	err = p.db.SelectContext(ctx, &rows, `
		SELECT id, symbol, date, action, stage, price, size, total_notional, cash_after, realized_pnl
		FROM orders
		ORDER BY seq
		LIMIT $1 OFFSET $2`, pageSize, Offset(page, pageSize))
	if err != nil {
		return PageResult[domain.OrderRecord]{}, persistErr("list orders", err)
	}

	data := make([]domain.OrderRecord, 0, len(rows))
	for _, r := range rows {
		data = append(data, r.record())
	}
	return NewPageResult(page, pageSize, total, data), nil
}
