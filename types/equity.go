package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// Holdings is the mark-to-market state of a portfolio at one point of the time index.
type Holdings struct {
	Timestamp  time.Time
	Values     map[string]decimal.Decimal
	Cash       decimal.Decimal
	Commission decimal.Decimal
	Total      decimal.Decimal
}

// Positions is the signed quantity held per symbol at one point of the time index.
type Positions struct {
	Timestamp  time.Time
	Quantities map[string]int64
}

// EquityPoint is one row of the equity curve.
type EquityPoint struct {
	Holdings
	Returns     float64
	EquityCurve float64
	Drawdown    float64
}

// Stat is a labelled, already formatted summary statistic.
type Stat struct {
	Label string
	Value string
}
