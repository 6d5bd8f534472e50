package storage

import (
	"context"
	"database/sql"

	"costs/internal/core"
)

type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type queries struct {
	db dbtx
}

func newQueries(db dbtx) *queries {
	return &queries{db: db}
}

func (q *queries) withTx(tx *sql.Tx) *queries {
	return &queries{db: tx}
}

const insertCost = `
INSERT INTO costs (sum, currency, category, description, year, month, day)
VALUES (?, ?, ?, ?, ?, ?, ?)`

func (q *queries) insertCost(ctx context.Context, c core.CostItem) (int64, error) {
	res, err := q.db.ExecContext(ctx, insertCost,
		c.Sum, c.Currency, c.Category, c.Description, c.Year, c.Month, c.Day)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// Equality on both columns of idx_costs_year_month; rows come back in key order.
const costsByMonth = `
SELECT id, sum, currency, category, description, year, month, day
FROM costs
WHERE year = ? AND month = ?
ORDER BY id`

func (q *queries) costsByMonth(ctx context.Context, year, month int) ([]core.CostItem, error) {
	rows, err := q.db.QueryContext(ctx, costsByMonth, year, month)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []core.CostItem{}
	for rows.Next() {
		var c core.CostItem
		if err := rows.Scan(&c.ID, &c.Sum, &c.Currency, &c.Category, &c.Description,
			&c.Year, &c.Month, &c.Day); err != nil {
			return nil, err
		}
		items = append(items, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const schemaVersion = `SELECT version, dirty FROM schema_migrations LIMIT 1`

func (q *queries) schemaVersion(ctx context.Context) (uint, bool, error) {
	var (
		version int64
		dirty   bool
	)
	if err := q.db.QueryRowContext(ctx, schemaVersion).Scan(&version, &dirty); err != nil {
		return 0, false, err
	}
	return uint(version), dirty, nil
}
