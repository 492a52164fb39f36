// Package mac implements a moving average crossover strategy on adjusted closes.
package mac

import (
	"errors"
	"fmt"
	"time"

	"eventbacktester/internal/events"
	"eventbacktester/types"

	"github.com/shopspring/decimal"
	"github.com/thrasher-corp/gct-ta/indicators"
	"go.uber.org/zap"
)

const (
	ID                 = "MAC"
	DefaultShortWindow = 100
	DefaultLongWindow  = 400
)

var ErrInvalidWindow = errors.New("invalid moving average window")

type barSource interface {
	Symbols() []string
	LatestBarDatetime(symbol string) (time.Time, error)
	LatestBarValues(symbol string, field types.BarField, n int) ([]decimal.Decimal, error)
}

// Strategy goes LONG when the short SMA crosses above the long SMA and EXITs when
// it crosses back below. Nothing is emitted until a symbol has a full long
// window of bars.
type Strategy struct {
	bars     barSource
	sink     events.Sink
	short    int
	long     int
	invested map[string]bool
	logger   *zap.Logger
}

func New(bars barSource, sink events.Sink, short, long int, logger *zap.Logger) (*Strategy, error) {
	if short <= 0 || long <= 0 || short >= long {
		return nil, fmt.Errorf("short %d, long %d: %w", short, long, ErrInvalidWindow)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Strategy{
		bars:     bars,
		sink:     sink,
		short:    short,
		long:     long,
		invested: make(map[string]bool),
		logger:   logger,
	}, nil
}

func (s *Strategy) CalculateSignals(_ types.MarketEvent) error {
	for _, sym := range s.bars.Symbols() {
		values, err := s.bars.LatestBarValues(sym, types.FieldAdjClose, s.long)
		if err != nil {
			return err
		}
		if len(values) < s.long {
			continue
		}

		closes := make([]float64, len(values))
		for i, v := range values {
			closes[i] = v.InexactFloat64()
		}
		shortSMA := last(indicators.SMA(closes, s.short))
		longSMA := last(indicators.SMA(closes, s.long))

		var direction types.SignalDirection
		switch {
		case shortSMA > longSMA && !s.invested[sym]:
			direction = types.DirectionLong
			s.invested[sym] = true
		case shortSMA < longSMA && s.invested[sym]:
			direction = types.DirectionExit
			s.invested[sym] = false
		default:
			continue
		}

		ts, err := s.bars.LatestBarDatetime(sym)
		if err != nil {
			return err
		}
		s.logger.Debug("crossover",
			zap.String("symbol", sym),
			zap.String("direction", string(direction)),
			zap.Float64("short_sma", shortSMA),
			zap.Float64("long_sma", longSMA))
		s.sink.Push(types.NewSignalEvent(ID, sym, ts, direction, 1.0))
	}
	return nil
}

func last(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return values[len(values)-1]
}
