package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"eventbacktester/types"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// GetDailyBars returns the daily bars of asset between start and end inclusive,
// oldest first.
func (db *Database) GetDailyBars(ctx context.Context, asset *types.Asset, start, end time.Time) ([]types.Bar, error) {
	args := getDailyPricesParams{
		SymbolID:     int32(asset.Id),
		DataVendorID: db.vendorID,
		Start:        start,
		End:          end,
	}
	rows, err := db.prices.GetDailyPrices(ctx, args)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("ticker %s %w", asset.Ticker, ErrNoBars)
		}
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("ticker %s %w", asset.Ticker, ErrNoBars)
	}
	return convertDailyPrices(rows, asset.Ticker), nil
}

func convertDailyPrices(rows []dailyPriceRow, ticker string) []types.Bar {
	bars := make([]types.Bar, 0, len(rows))
	for _, dao := range rows {
		bars = append(bars, types.Bar{
			Symbol:    ticker,
			Timestamp: dao.PriceDate,
			Open:      dao.OpenPrice,
			High:      dao.HighPrice,
			Low:       dao.LowPrice,
			Close:     dao.ClosePrice,
			Volume:    decimal.NewFromInt(dao.Volume),
			AdjClose:  dao.AdjClosePrice,
		})
	}
	return bars
}
