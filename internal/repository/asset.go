package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"eventbacktester/types"

	"github.com/jackc/pgx/v5"
)

// GetAssetByTicker retrieves a types.Asset by its ticker.
func (db *Database) GetAssetByTicker(ctx context.Context, ticker string) (*types.Asset, error) {
	row, err := db.symbols.GetSymbolByTicker(ctx, ticker)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("ticker %s %w", ticker, ErrAssetNotFound)
		}
		return nil, err
	}
	asset := &types.Asset{
		Id:     int(row.ID),
		Ticker: row.Ticker,
		Name:   row.Name,
		Type:   types.AssetType(strings.ToUpper(row.Instrument)),
	}
	if row.Sector != nil {
		asset.Sector = *row.Sector
	}
	if row.Currency != nil {
		asset.Currency = *row.Currency
	}
	if row.CreatedDate != nil {
		asset.CreatedAt = *row.CreatedDate
	}
	if row.LastUpdatedDate != nil {
		asset.ModifiedAt = *row.LastUpdatedDate
	}
	return asset, nil
}
