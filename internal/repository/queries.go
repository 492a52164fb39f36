package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
)

// DBTX is satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Queries struct {
	db DBTX
}

func NewQueries(db DBTX) *Queries {
	return &Queries{db: db}
}

type symbolRow struct {
	ID              int32
	Ticker          string
	Instrument      string
	Name            string
	Sector          *string
	Currency        *string
	CreatedDate     *time.Time
	LastUpdatedDate *time.Time
}

const getSymbolByTicker = `-- name: GetSymbolByTicker :one
SELECT id, ticker, instrument, name, sector, currency, created_date, last_updated_date
FROM symbol
WHERE ticker = $1
`

func (q *Queries) GetSymbolByTicker(ctx context.Context, ticker string) (symbolRow, error) {
	row := q.db.QueryRow(ctx, getSymbolByTicker, ticker)
	var i symbolRow
	err := row.Scan(
		&i.ID,
		&i.Ticker,
		&i.Instrument,
		&i.Name,
		&i.Sector,
		&i.Currency,
		&i.CreatedDate,
		&i.LastUpdatedDate,
	)
	return i, err
}

type getDailyPricesParams struct {
	SymbolID     int32
	DataVendorID *int32
	Start        time.Time
	End          time.Time
}

type dailyPriceRow struct {
	PriceDate     time.Time
	OpenPrice     decimal.Decimal
	HighPrice     decimal.Decimal
	LowPrice      decimal.Decimal
	ClosePrice    decimal.Decimal
	AdjClosePrice decimal.Decimal
	Volume        int64
}

const getDailyPrices = `-- name: GetDailyPrices :many
SELECT price_date, open_price, high_price, low_price, close_price, adj_close_price, volume
FROM daily_price
WHERE symbol_id = $1
  AND ($2::int IS NULL OR data_vendor_id = $2)
  AND price_date >= $3
  AND price_date <= $4
ORDER BY price_date ASC
`

func (q *Queries) GetDailyPrices(ctx context.Context, arg getDailyPricesParams) ([]dailyPriceRow, error) {
	rows, err := q.db.Query(ctx, getDailyPrices, arg.SymbolID, arg.DataVendorID, arg.Start, arg.End)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []dailyPriceRow
	for rows.Next() {
		var i dailyPriceRow
		if err := rows.Scan(
			&i.PriceDate,
			&i.OpenPrice,
			&i.HighPrice,
			&i.LowPrice,
			&i.ClosePrice,
			&i.AdjClosePrice,
			&i.Volume,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
