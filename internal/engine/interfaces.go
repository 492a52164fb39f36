package engine

import (
	"time"

	"eventbacktester/types"

	"github.com/shopspring/decimal"
)

// DataProvider serves bars to every other component. Only the bars released by
// UpdateBars are ever visible through the Latest* accessors.
type DataProvider interface {
	Symbols() []string
	LatestBar(symbol string) (types.Bar, error)
	LatestBars(symbol string, n int) ([]types.Bar, error)
	LatestBarDatetime(symbol string) (time.Time, error)
	LatestBarValue(symbol string, field types.BarField) (decimal.Decimal, error)
	LatestBarValues(symbol string, field types.BarField, n int) ([]decimal.Decimal, error)
	CurrentTime() time.Time
	UpdateBars()
	Continue() bool
	Len() int
}

type Strategy interface {
	CalculateSignals(ev types.MarketEvent) error
}

type Portfolio interface {
	UpdateTimeIndex(ev types.MarketEvent) error
	UpdateSignal(ev types.SignalEvent) error
	UpdateFill(ev types.FillEvent) error
	EquityCurve() []types.EquityPoint
	SummaryStats(periodsPerYear float64) []types.Stat
}

type ExecutionHandler interface {
	ExecuteOrder(ev types.OrderEvent) error
}
