// Package donchian trades breakouts of a Donchian channel, optionally protected
// by an ATR stop.
package donchian

import (
	"errors"
	"fmt"

	"eventbacktester/internal/events"
	"eventbacktester/types"

	"github.com/shopspring/decimal"
	"github.com/thrasher-corp/gct-ta/indicators"
	"go.uber.org/zap"
)

const ID = "DONCHIAN"

var ErrInvalidLookback = errors.New("invalid channel lookback")

type barSource interface {
	Symbols() []string
	LatestBars(symbol string, n int) ([]types.Bar, error)
}

type Config struct {
	// Lookback is the number of completed bars forming the channel.
	Lookback int
	// ATRPeriod and ATRMultiplier place a stop at close - multiplier*ATR on entry.
	// A zero multiplier disables the stop.
	ATRPeriod     int
	ATRMultiplier float64
}

type Strategy struct {
	bars     barSource
	sink     events.Sink
	cfg      Config
	invested map[string]bool
	stopLoss map[string]decimal.Decimal
	logger   *zap.Logger
}

func New(bars barSource, sink events.Sink, cfg Config, logger *zap.Logger) (*Strategy, error) {
	if cfg.Lookback <= 0 {
		return nil, fmt.Errorf("lookback %d: %w", cfg.Lookback, ErrInvalidLookback)
	}
	if cfg.ATRMultiplier > 0 && cfg.ATRPeriod <= 0 {
		return nil, fmt.Errorf("atr period %d: %w", cfg.ATRPeriod, ErrInvalidLookback)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Strategy{
		bars:     bars,
		sink:     sink,
		cfg:      cfg,
		invested: make(map[string]bool),
		stopLoss: make(map[string]decimal.Decimal),
		logger:   logger,
	}, nil
}

// CalculateSignals goes LONG on a break of the highest high of the preceding
// Lookback bars and EXITs on a break of the lowest low, or when the close falls
// through the ATR stop.
func (s *Strategy) CalculateSignals(_ types.MarketEvent) error {
	for _, sym := range s.bars.Symbols() {
		hist, err := s.bars.LatestBars(sym, s.window())
		if err != nil {
			return err
		}
		if len(hist) < s.cfg.Lookback+1 {
			continue
		}

		cur := hist[len(hist)-1]
		highestHigh, lowestLow := donchianHighLow(hist[len(hist)-1-s.cfg.Lookback : len(hist)-1])

		switch {
		case !s.invested[sym] && cur.High.GreaterThan(highestHigh):
			s.invested[sym] = true
			s.stopLoss[sym] = s.stopLevel(hist)
			s.emit(cur, types.DirectionLong, "break of highest high")
		case s.invested[sym] && cur.Low.LessThan(lowestLow):
			s.invested[sym] = false
			s.stopLoss[sym] = decimal.Zero
			s.emit(cur, types.DirectionExit, "break of lowest low")
		case s.invested[sym] && s.stopLoss[sym].IsPositive() && cur.Close.LessThan(s.stopLoss[sym]):
			s.invested[sym] = false
			s.stopLoss[sym] = decimal.Zero
			s.emit(cur, types.DirectionExit, "atr stop")
		}
	}
	return nil
}

func (s *Strategy) emit(bar types.Bar, direction types.SignalDirection, reason string) {
	s.logger.Debug("breakout",
		zap.String("symbol", bar.Symbol),
		zap.String("direction", string(direction)),
		zap.String("reason", reason))
	s.sink.Push(types.NewSignalEvent(ID, bar.Symbol, bar.Timestamp, direction, 1.0))
}

func (s *Strategy) window() int {
	n := s.cfg.Lookback + 1
	if s.cfg.ATRMultiplier > 0 {
		// ATR needs period+1 bars, extra history lets Wilder smoothing settle
		n = max(n, 3*s.cfg.ATRPeriod+1)
	}
	return n
}

// stopLevel is zero when the stop is disabled or there is not enough history.
func (s *Strategy) stopLevel(hist []types.Bar) decimal.Decimal {
	if s.cfg.ATRMultiplier <= 0 || len(hist) < s.cfg.ATRPeriod+1 {
		return decimal.Zero
	}
	high := make([]float64, len(hist))
	low := make([]float64, len(hist))
	closes := make([]float64, len(hist))
	for i, b := range hist {
		high[i] = b.High.InexactFloat64()
		low[i] = b.Low.InexactFloat64()
		closes[i] = b.Close.InexactFloat64()
	}
	atr := indicators.ATR(high, low, closes, s.cfg.ATRPeriod)
	if len(atr) == 0 {
		return decimal.Zero
	}
	offset := decimal.NewFromFloat(atr[len(atr)-1] * s.cfg.ATRMultiplier)
	return hist[len(hist)-1].Close.Sub(offset)
}

func donchianHighLow(bars []types.Bar) (decimal.Decimal, decimal.Decimal) {
	if len(bars) == 0 {
		return decimal.Zero, decimal.Zero
	}

	highest := bars[0].High
	lowest := bars[0].Low

	for _, b := range bars {
		if b.High.GreaterThan(highest) {
			highest = b.High
		}
		if b.Low.LessThan(lowest) {
			lowest = b.Low
		}
	}
	return highest, lowest
}
