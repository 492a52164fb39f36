package data

import (
	"context"
	"time"

	"eventbacktester/types"
)

type barStore interface {
	GetAssetByTicker(ctx context.Context, ticker string) (*types.Asset, error)
	GetDailyBars(ctx context.Context, asset *types.Asset, start, end time.Time) ([]types.Bar, error)
}

// DatabaseLoader reads daily bars from the securities master. The store is owned
// by the caller and must outlive the load.
type DatabaseLoader struct {
	store barStore
	start time.Time
	end   time.Time
}

func NewDatabaseLoader(store barStore, start, end time.Time) *DatabaseLoader {
	return &DatabaseLoader{
		store: store,
		start: start,
		end:   end,
	}
}

func (l *DatabaseLoader) Load(ctx context.Context, symbol string) ([]types.Bar, error) {
	asset, err := l.store.GetAssetByTicker(ctx, symbol)
	if err != nil {
		return nil, err
	}
	return l.store.GetDailyBars(ctx, asset, l.start, l.end)
}
