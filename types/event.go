package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// Event is one of MarketEvent, SignalEvent, OrderEvent or FillEvent. The set is
// closed: only types in this package can implement it.
type Event interface {
	isEvent()
}

// MarketEvent marks that a new bar is available for every tracked symbol.
type MarketEvent struct{}

// SignalEvent is advice from a strategy. It is not an order.
type SignalEvent struct {
	StrategyID string
	Symbol     string
	Timestamp  time.Time
	Direction  SignalDirection
	Strength   float64
}

type OrderEvent struct {
	ID        string
	Symbol    string
	OrderType OrderType
	Quantity  int64
	Side      Side
	Timestamp time.Time
}

type FillEvent struct {
	OrderID    string
	Timestamp  time.Time
	Symbol     string
	Exchange   string
	Quantity   int64
	Side       Side
	FillCost   decimal.Decimal
	Commission decimal.Decimal
}

// CommissionFunc derives a commission from the filled quantity.
type CommissionFunc func(quantity int64) decimal.Decimal

func (MarketEvent) isEvent() {}
func (SignalEvent) isEvent() {}
func (OrderEvent) isEvent()  {}
func (FillEvent) isEvent()   {}

func NewSignalEvent(strategyID, symbol string, ts time.Time, direction SignalDirection, strength float64) SignalEvent {
	return SignalEvent{
		StrategyID: strategyID,
		Symbol:     symbol,
		Timestamp:  ts,
		Direction:  direction,
		Strength:   strength,
	}
}

func NewOrderEvent(id, symbol string, orderType OrderType, quantity int64, side Side, ts time.Time) OrderEvent {
	return OrderEvent{
		ID:        id,
		Symbol:    symbol,
		OrderType: orderType,
		Quantity:  quantity,
		Side:      side,
		Timestamp: ts,
	}
}

// NewFillEvent builds a fill. When the venue does not report a commission
// (commission == nil) it is derived from model, or zero if model is nil.
func NewFillEvent(
	orderID string,
	ts time.Time,
	symbol string,
	exchange string,
	quantity int64,
	side Side,
	fillCost decimal.Decimal,
	commission *decimal.Decimal,
	model CommissionFunc,
) FillEvent {
	fee := decimal.Zero
	switch {
	case commission != nil:
		fee = *commission
	case model != nil:
		fee = model(quantity)
	}
	return FillEvent{
		OrderID:    orderID,
		Timestamp:  ts,
		Symbol:     symbol,
		Exchange:   exchange,
		Quantity:   quantity,
		Side:       side,
		FillCost:   fillCost,
		Commission: fee,
	}
}
