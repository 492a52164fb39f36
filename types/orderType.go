package types

type Side string

type SignalDirection string

type OrderType string

const (
	SideTypeBuy  Side = "BUY"
	SideTypeSell Side = "SELL"

	DirectionLong  SignalDirection = "LONG"
	DirectionShort SignalDirection = "SHORT"
	DirectionExit  SignalDirection = "EXIT"

	TypeMarket OrderType = "MARKET"
	TypeLimit  OrderType = "LIMIT"
)

// Multiplier returns +1 for buys, -1 for sells and 0 for anything else.
func (s Side) Multiplier() int64 {
	switch s {
	case SideTypeBuy:
		return 1
	case SideTypeSell:
		return -1
	}
	return 0
}
