package donchian

import (
	"errors"
	"testing"
	"time"

	"eventbacktester/internal/data"
	"eventbacktester/internal/events"
	"eventbacktester/types"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var day0 = time.Date(2024, time.January, 2, 0, 0, 0, 0, time.UTC)

type ohlc struct {
	high, low, close float64
}

func mockBars(symbol string, rows ...ohlc) []types.Bar {
	out := make([]types.Bar, len(rows))
	for i, r := range rows {
		out[i] = types.Bar{
			Symbol:    symbol,
			Timestamp: day0.AddDate(0, 0, i),
			Open:      decimal.NewFromFloat(r.close),
			High:      decimal.NewFromFloat(r.high),
			Low:       decimal.NewFromFloat(r.low),
			Close:     decimal.NewFromFloat(r.close),
			AdjClose:  decimal.NewFromFloat(r.close),
		}
	}
	return out
}

func flat(n int) []ohlc {
	rows := make([]ohlc, n)
	for i := range rows {
		rows[i] = ohlc{11, 9, 10}
	}
	return rows
}

func replay(t *testing.T, bars []types.Bar, cfg Config) map[int]types.SignalEvent {
	t.Helper()
	queue := events.NewQueue()
	provider, err := data.NewHistoricProvider(queue, []string{"AAA"}, map[string][]types.Bar{"AAA": bars})
	require.NoError(t, err)
	strat, err := New(provider, queue, cfg, nil)
	require.NoError(t, err)

	out := make(map[int]types.SignalEvent)
	for i := 0; provider.Continue(); i++ {
		provider.UpdateBars()
		require.NoError(t, strat.CalculateSignals(types.MarketEvent{}))
		for !queue.Empty() {
			ev, _ := queue.Pop()
			if sig, ok := ev.(types.SignalEvent); ok {
				if _, dup := out[i]; dup {
					t.Fatalf("more than one signal on bar %d", i)
				}
				out[i] = sig
			}
		}
	}
	return out
}

func TestNew_InvalidConfig(t *testing.T) {
	for _, cfg := range []Config{
		{Lookback: 0},
		{Lookback: 20, ATRMultiplier: 2},
	} {
		_, err := New(nil, events.NewQueue(), cfg, nil)
		if !errors.Is(err, ErrInvalidLookback) {
			t.Fatalf("config %+v: expected ErrInvalidLookback, got %v", cfg, err)
		}
	}
}

func TestCalculateSignals_Breakouts(t *testing.T) {
	rows := append(flat(5),
		ohlc{11, 9, 10},    // 5: inside the channel
		ohlc{12, 10, 11.5}, // 6: breaks the high of 11
		ohlc{13, 11, 12},   // 7: already long
		ohlc{12, 8.5, 9},   // 8: breaks the low of 9
		ohlc{10, 8, 8.5},   // 9: no short entries
	)
	got := replay(t, mockBars("AAA", rows...), Config{Lookback: 5})

	require.Len(t, got, 2)
	assert.Equal(t, types.DirectionLong, got[6].Direction)
	assert.Equal(t, day0.AddDate(0, 0, 6), got[6].Timestamp)
	assert.Equal(t, ID, got[6].StrategyID)
	assert.Equal(t, types.DirectionExit, got[8].Direction)
}

func TestCalculateSignals_NeedsFullChannel(t *testing.T) {
	rows := append(flat(3), ohlc{20, 19, 19.5})
	got := replay(t, mockBars("AAA", rows...), Config{Lookback: 5})
	assert.Empty(t, got)
}

func TestCalculateSignals_ATRStop(t *testing.T) {
	rows := append(flat(5),
		ohlc{15, 13, 14},     // 5: breakout, stop = 14 - 0.5*ATR
		ohlc{14, 13.1, 13.6}, // 6: above any stop between 11.5 and 13.5
		ohlc{12, 11, 11.4},   // 7: through the stop, channel low is still 9
	)
	got := replay(t, mockBars("AAA", rows...), Config{Lookback: 5, ATRPeriod: 2, ATRMultiplier: 0.5})

	require.Len(t, got, 2)
	assert.Equal(t, types.DirectionLong, got[5].Direction)
	assert.Equal(t, types.DirectionExit, got[7].Direction)
}

func TestDonchianHighLow(t *testing.T) {
	bars := mockBars("AAA", ohlc{11, 9, 10}, ohlc{14, 10, 12}, ohlc{12, 7, 8})
	high, low := donchianHighLow(bars)
	assert.True(t, high.Equal(decimal.NewFromInt(14)))
	assert.True(t, low.Equal(decimal.NewFromInt(7)))

	high, low = donchianHighLow(nil)
	assert.True(t, high.IsZero())
	assert.True(t, low.IsZero())
}
