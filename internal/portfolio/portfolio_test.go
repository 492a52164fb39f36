package portfolio

import (
	"errors"
	"fmt"
	"math"
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

func day(i int) time.Time {
	return day0.AddDate(0, 0, i)
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

type mockPrices struct {
	symbols []string
	now     time.Time
	closes  map[string]decimal.Decimal
}

func (m *mockPrices) Symbols() []string      { return m.symbols }
func (m *mockPrices) CurrentTime() time.Time { return m.now }

func (m *mockPrices) LatestBarValue(symbol string, field types.BarField) (decimal.Decimal, error) {
	if field != types.FieldClose {
		return decimal.Zero, fmt.Errorf("unexpected field %s", field)
	}
	v, ok := m.closes[symbol]
	if !ok {
		return decimal.Zero, fmt.Errorf("%s: %w", symbol, data.ErrNoBars)
	}
	return v, nil
}

func newMockPortfolio(t *testing.T, symbols ...string) (*NaivePortfolio, *mockPrices, *events.Queue) {
	t.Helper()
	prices := &mockPrices{symbols: symbols, now: day(0), closes: map[string]decimal.Decimal{}}
	queue := events.NewQueue()
	p, err := New(prices, queue, day(-1), dec("100000"), WithIDGenerator(func() string { return "order-1" }))
	require.NoError(t, err)
	return p, prices, queue
}

func popOrder(t *testing.T, q *events.Queue) types.OrderEvent {
	t.Helper()
	ev, ok := q.Pop()
	require.True(t, ok, "expected an order on the queue")
	order, ok := ev.(types.OrderEvent)
	require.True(t, ok, "expected OrderEvent, got %T", ev)
	return order
}

func fillFor(order types.OrderEvent, price, commission string) types.FillEvent {
	fee := dec(commission)
	cost := dec(price).Mul(decimal.NewFromInt(order.Quantity))
	return types.NewFillEvent(order.ID, order.Timestamp, order.Symbol, "ARCA", order.Quantity, order.Side, cost, &fee, nil)
}

func TestNew_RejectsNonPositiveCapital(t *testing.T) {
	prices := &mockPrices{symbols: []string{"AAA"}}
	for _, capital := range []string{"0", "-1"} {
		_, err := New(prices, events.NewQueue(), day(0), dec(capital))
		if !errors.Is(err, ErrNonPositiveCapital) {
			t.Fatalf("capital %s: expected ErrNonPositiveCapital, got %v", capital, err)
		}
	}
}

func TestNew_InitialRow(t *testing.T) {
	p, _, _ := newMockPortfolio(t, "AAA", "BBB")

	positions, holdings := p.History()
	require.Len(t, positions, 1)
	require.Len(t, holdings, 1)
	assert.Equal(t, day(-1), holdings[0].Timestamp)
	assert.True(t, holdings[0].Cash.Equal(dec("100000")))
	assert.True(t, holdings[0].Total.Equal(dec("100000")))
	assert.True(t, holdings[0].Commission.IsZero())
	assert.Equal(t, map[string]int64{"AAA": 0, "BBB": 0}, positions[0].Quantities)
}

func TestUpdateSignal_OrderRules(t *testing.T) {
	tests := []struct {
		name      string
		position  int64
		direction types.SignalDirection
		wantOrder bool
		wantSide  types.Side
		wantQty   int64
	}{
		{"long while flat", 0, types.DirectionLong, true, types.SideTypeBuy, 100},
		{"short while flat", 0, types.DirectionShort, true, types.SideTypeSell, 100},
		{"exit while long", 100, types.DirectionExit, true, types.SideTypeSell, 100},
		{"exit while short", -100, types.DirectionExit, true, types.SideTypeBuy, 100},
		{"exit while flat", 0, types.DirectionExit, false, "", 0},
		{"long while long", 100, types.DirectionLong, false, "", 0},
		{"short while long", 100, types.DirectionShort, false, "", 0},
		{"long while short", -100, types.DirectionLong, false, "", 0},
		{"short while short", -100, types.DirectionShort, false, "", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, _, queue := newMockPortfolio(t, "AAA")
			p.currentPositions["AAA"] = tt.position

			err := p.UpdateSignal(types.NewSignalEvent("test", "AAA", day(0), tt.direction, 1))
			require.NoError(t, err)

			if !tt.wantOrder {
				if !queue.Empty() {
					t.Fatalf("expected no order, queue has %d events", queue.Len())
				}
				return
			}
			order := popOrder(t, queue)
			assert.Equal(t, "order-1", order.ID)
			assert.Equal(t, "AAA", order.Symbol)
			assert.Equal(t, types.TypeMarket, order.OrderType)
			assert.Equal(t, tt.wantSide, order.Side)
			assert.Equal(t, tt.wantQty, order.Quantity)
			assert.Equal(t, day(0), order.Timestamp)
		})
	}
}

func TestUpdateSignal_UnknownSymbol(t *testing.T) {
	p, _, _ := newMockPortfolio(t, "AAA")
	err := p.UpdateSignal(types.NewSignalEvent("test", "ZZZ", day(0), types.DirectionLong, 1))
	if !errors.Is(err, data.ErrSymbolNotFound) {
		t.Fatalf("expected ErrSymbolNotFound, got %v", err)
	}
}

func TestUpdateSignal_Sizers(t *testing.T) {
	tests := []struct {
		name     string
		sizer    Sizer
		strength float64
		wantQty  int64
	}{
		{"fixed ignores strength", FixedSizer{Quantity: 250}, 0.1, 250},
		{"strength scales base", StrengthSizer{Base: 100}, 1.5, 150},
		{"strength rounds down", StrengthSizer{Base: 100}, 0.333, 33},
		{"zero strength means no order", StrengthSizer{Base: 100}, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prices := &mockPrices{symbols: []string{"AAA"}, now: day(0)}
			queue := events.NewQueue()
			p, err := New(prices, queue, day(-1), dec("1000"), WithSizer(tt.sizer))
			require.NoError(t, err)

			require.NoError(t, p.UpdateSignal(types.NewSignalEvent("test", "AAA", day(0), types.DirectionLong, tt.strength)))
			if tt.wantQty == 0 {
				assert.True(t, queue.Empty())
				return
			}
			assert.Equal(t, tt.wantQty, popOrder(t, queue).Quantity)
		})
	}
}

func TestUpdateFill_Accounting(t *testing.T) {
	p, prices, _ := newMockPortfolio(t, "AAA")
	prices.closes["AAA"] = dec("10")

	buy := types.NewOrderEvent("b", "AAA", types.TypeMarket, 100, types.SideTypeBuy, day(0))
	require.NoError(t, p.UpdateFill(fillFor(buy, "10", "1.30")))

	h := p.CurrentHoldings()
	assert.Equal(t, int64(100), p.Position("AAA"))
	assert.True(t, h.Cash.Equal(dec("98998.70")), "cash %s", h.Cash)
	assert.True(t, h.Commission.Equal(dec("1.30")), "commission %s", h.Commission)
	assert.True(t, h.Values["AAA"].Equal(dec("1000")), "holdings %s", h.Values["AAA"])

	prices.closes["AAA"] = dec("12")
	sell := types.NewOrderEvent("s", "AAA", types.TypeMarket, 100, types.SideTypeSell, day(1))
	require.NoError(t, p.UpdateFill(fillFor(sell, "12", "1.30")))

	h = p.CurrentHoldings()
	assert.Equal(t, int64(0), p.Position("AAA"))
	assert.True(t, h.Cash.Equal(dec("100197.40")), "cash %s", h.Cash)
	assert.True(t, h.Commission.Equal(dec("2.60")), "commission %s", h.Commission)
}

func TestUpdateFill_UsesCloseNotFillCost(t *testing.T) {
	p, prices, _ := newMockPortfolio(t, "AAA")
	prices.closes["AAA"] = dec("10")

	buy := types.NewOrderEvent("b", "AAA", types.TypeMarket, 10, types.SideTypeBuy, day(0))
	require.NoError(t, p.UpdateFill(fillFor(buy, "99", "0")))

	assert.True(t, p.CurrentHoldings().Cash.Equal(dec("99900")))
}

func TestUpdateFill_Errors(t *testing.T) {
	p, prices, _ := newMockPortfolio(t, "AAA")
	prices.closes["AAA"] = dec("10")

	bad := types.FillEvent{Symbol: "AAA", Quantity: 1, Side: "HOLD"}
	if err := p.UpdateFill(bad); !errors.Is(err, ErrUnknownSide) {
		t.Fatalf("expected ErrUnknownSide, got %v", err)
	}

	unknown := types.FillEvent{Symbol: "ZZZ", Quantity: 1, Side: types.SideTypeBuy}
	if err := p.UpdateFill(unknown); !errors.Is(err, data.ErrSymbolNotFound) {
		t.Fatalf("expected ErrSymbolNotFound, got %v", err)
	}
	assert.Equal(t, int64(0), p.Position("AAA"))
}

func TestUpdateTimeIndex_SymbolWithoutBarsIsZero(t *testing.T) {
	p, prices, _ := newMockPortfolio(t, "AAA", "BBB")
	prices.closes["AAA"] = dec("10")

	require.NoError(t, p.UpdateTimeIndex(types.MarketEvent{}))

	_, holdings := p.History()
	last := holdings[len(holdings)-1]
	assert.True(t, last.Values["BBB"].IsZero())
	assert.True(t, last.Total.Equal(dec("100000")))
}

// Closes 10, 12, 11 with a LONG after the first bar.
func TestScenario_SingleSymbol(t *testing.T) {
	queue := events.NewQueue()
	series := map[string][]types.Bar{
		"AAA": {
			{Symbol: "AAA", Timestamp: day(0), Close: dec("10")},
			{Symbol: "AAA", Timestamp: day(1), Close: dec("12")},
			{Symbol: "AAA", Timestamp: day(2), Close: dec("11")},
		},
	}
	provider, err := data.NewHistoricProvider(queue, []string{"AAA"}, series)
	require.NoError(t, err)
	p, err := New(provider, queue, day(-1), dec("100000"))
	require.NoError(t, err)

	provider.UpdateBars()
	require.NoError(t, p.UpdateTimeIndex(types.MarketEvent{}))
	require.NoError(t, p.UpdateSignal(types.NewSignalEvent("test", "AAA", day(0), types.DirectionLong, 1)))

	_, _ = queue.Pop() // market event
	order := popOrder(t, queue)
	assert.Equal(t, types.SideTypeBuy, order.Side)
	assert.Equal(t, int64(100), order.Quantity)
	require.NoError(t, p.UpdateFill(fillFor(order, "10", "1.30")))
	assert.True(t, p.CurrentHoldings().Cash.Equal(dec("98998.70")))

	// a second LONG while already long is a no-op
	require.NoError(t, p.UpdateSignal(types.NewSignalEvent("test", "AAA", day(0), types.DirectionLong, 1)))
	assert.True(t, queue.Empty())

	provider.UpdateBars()
	require.NoError(t, p.UpdateTimeIndex(types.MarketEvent{}))
	provider.UpdateBars()
	require.NoError(t, p.UpdateTimeIndex(types.MarketEvent{}))

	positions, holdings := p.History()
	require.Len(t, holdings, 4)
	require.Len(t, positions, 4)

	bar1 := holdings[1]
	assert.Equal(t, day(0), bar1.Timestamp)
	assert.True(t, bar1.Total.Equal(dec("100000")), "bar1 total %s", bar1.Total)

	bar2 := holdings[2]
	assert.Equal(t, day(1), bar2.Timestamp)
	assert.Equal(t, int64(100), positions[2].Quantities["AAA"])
	assert.True(t, bar2.Values["AAA"].Equal(dec("1200")), "bar2 holdings %s", bar2.Values["AAA"])
	assert.True(t, bar2.Total.Equal(dec("100198.70")), "bar2 total %s", bar2.Total)

	bar3 := holdings[3]
	assert.True(t, bar3.Total.Equal(dec("100098.70")), "bar3 total %s", bar3.Total)

	for i, h := range holdings {
		sum := h.Cash
		for _, v := range h.Values {
			sum = sum.Add(v)
		}
		if !sum.Equal(h.Total) {
			t.Fatalf("row %d: total %s != cash + holdings %s", i, h.Total, sum)
		}
	}

	curve := p.EquityCurve()
	require.Len(t, curve, 4)
	assert.InDelta(t, 1.0009870, curve[3].EquityCurve, 1e-9)
	assert.NotEmpty(t, p.SummaryStats(252))
}

func TestUpdateSignal_ExitIsIdempotent(t *testing.T) {
	p, prices, queue := newMockPortfolio(t, "AAA")
	prices.closes["AAA"] = dec("10")
	p.currentPositions["AAA"] = 100

	require.NoError(t, p.UpdateSignal(types.NewSignalEvent("test", "AAA", day(0), types.DirectionExit, 1)))
	order := popOrder(t, queue)
	require.NoError(t, p.UpdateFill(fillFor(order, "10", "1.30")))
	require.Equal(t, int64(0), p.Position("AAA"))

	require.NoError(t, p.UpdateSignal(types.NewSignalEvent("test", "AAA", day(0), types.DirectionExit, 1)))
	assert.True(t, queue.Empty())
}

func TestUpdateSignal_NonPositiveStrength(t *testing.T) {
	tests := []struct {
		name      string
		direction types.SignalDirection
		strength  float64
	}{
		{"zero long", types.DirectionLong, 0},
		{"negative short", types.DirectionShort, -1},
		{"nan long", types.DirectionLong, math.NaN()},
		{"zero exit", types.DirectionExit, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, prices, queue := newMockPortfolio(t, "AAA")
			prices.closes["AAA"] = dec("10")
			buy := types.NewOrderEvent("b", "AAA", types.TypeMarket, 100, types.SideTypeBuy, day(0))
			if tt.direction == types.DirectionExit {
				require.NoError(t, p.UpdateFill(fillFor(buy, "10", "1.30")))
			}

			require.NoError(t, p.UpdateSignal(types.NewSignalEvent("test", "AAA", day(0), tt.direction, tt.strength)))
			assert.True(t, queue.Empty())
		})
	}
}
