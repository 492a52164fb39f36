package engine

import (
	"errors"
	"fmt"
	"time"

	"eventbacktester/internal/events"

	"github.com/shopspring/decimal"
)

var ErrInvalidConfig = errors.New("invalid backtest configuration")

type Config struct {
	Symbols        []string
	InitialCapital decimal.Decimal
	// Heartbeat is the pause between two bars. It only sets the pace of the run.
	Heartbeat      time.Duration
	Start          time.Time
	PeriodsPerYear float64
}

func (c Config) validate() error {
	switch {
	case len(c.Symbols) == 0:
		return fmt.Errorf("symbols: empty: %w", ErrInvalidConfig)
	case !c.InitialCapital.IsPositive():
		return fmt.Errorf("initial capital: %s: %w", c.InitialCapital, ErrInvalidConfig)
	case c.Heartbeat < 0:
		return fmt.Errorf("heartbeat: %s: %w", c.Heartbeat, ErrInvalidConfig)
	case c.PeriodsPerYear <= 0:
		return fmt.Errorf("periods per year: %v: %w", c.PeriodsPerYear, ErrInvalidConfig)
	}
	for _, sym := range c.Symbols {
		if sym == "" {
			return fmt.Errorf("symbols: blank symbol: %w", ErrInvalidConfig)
		}
	}
	return nil
}

// Factories build the components of one run. Every component is handed the
// run's queue so it can push events; strategies, portfolio and execution also
// get the data provider for read access.
type Factories struct {
	Data      func(sink events.Sink, cfg Config) (DataProvider, error)
	Strategy  func(bars DataProvider, sink events.Sink) (Strategy, error)
	Portfolio func(bars DataProvider, sink events.Sink, cfg Config) (Portfolio, error)
	Execution func(bars DataProvider, sink events.Sink) (ExecutionHandler, error)
}

func (f Factories) validate() error {
	switch {
	case f.Data == nil:
		return fmt.Errorf("data factory missing: %w", ErrInvalidConfig)
	case f.Strategy == nil:
		return fmt.Errorf("strategy factory missing: %w", ErrInvalidConfig)
	case f.Portfolio == nil:
		return fmt.Errorf("portfolio factory missing: %w", ErrInvalidConfig)
	case f.Execution == nil:
		return fmt.Errorf("execution factory missing: %w", ErrInvalidConfig)
	}
	return nil
}
