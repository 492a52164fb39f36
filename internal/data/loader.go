package data

import (
	"context"
	"fmt"
	"time"

	"eventbacktester/types"
)

// Loader fetches the full bar history of one symbol.
type Loader interface {
	Load(ctx context.Context, symbol string) ([]types.Bar, error)
}

// LoadSeries loads every symbol with loader. The first failure aborts the load.
func LoadSeries(ctx context.Context, loader Loader, symbols []string) (map[string][]types.Bar, error) {
	series := make(map[string][]types.Bar, len(symbols))
	for _, sym := range symbols {
		bars, err := loader.Load(ctx, sym)
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", sym, err)
		}
		series[sym] = bars
	}
	return series, nil
}

// TrimSeries keeps the bars with start <= timestamp <= end. A zero end keeps
// everything from start on.
func TrimSeries(series map[string][]types.Bar, start, end time.Time) map[string][]types.Bar {
	out := make(map[string][]types.Bar, len(series))
	for sym, bars := range series {
		kept := make([]types.Bar, 0, len(bars))
		for _, b := range bars {
			if b.Timestamp.Before(start) || (!end.IsZero() && b.Timestamp.After(end)) {
				continue
			}
			kept = append(kept, b)
		}
		out[sym] = kept
	}
	return out
}
