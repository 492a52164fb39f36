package portfolio

import (
	"errors"
	"fmt"
	"time"

	"eventbacktester/internal/data"
	"eventbacktester/internal/events"
	"eventbacktester/internal/performance"
	"eventbacktester/types"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var ErrNonPositiveCapital = errors.New("initial capital must be positive")
var ErrUnknownSide = errors.New("unknown fill side")

type priceSource interface {
	Symbols() []string
	CurrentTime() time.Time
	LatestBarValue(symbol string, field types.BarField) (decimal.Decimal, error)
}

// NaivePortfolio sizes orders with a Sizer (a fixed 100 units by default), keeps
// signed positions per symbol and marks them to the latest close once per bar.
//
// Fills are booked at the latest close rather than the reported fill cost. For
// liquid, low frequency strategies the difference is small; it understates
// slippage for anything else.
type NaivePortfolio struct {
	bars    priceSource
	sink    events.Sink
	symbols []string
	sizer   Sizer
	logger  *zap.Logger
	newID   func() string

	start          time.Time
	initialCapital decimal.Decimal

	currentPositions map[string]int64
	currentHoldings  types.Holdings
	allPositions     []types.Positions
	allHoldings      []types.Holdings

	equityCurve []types.EquityPoint
}

type Option func(*NaivePortfolio)

func WithSizer(s Sizer) Option {
	return func(p *NaivePortfolio) { p.sizer = s }
}

func WithLogger(l *zap.Logger) Option {
	return func(p *NaivePortfolio) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithIDGenerator replaces the uuid order ids, mostly for tests.
func WithIDGenerator(f func() string) Option {
	return func(p *NaivePortfolio) { p.newID = f }
}

func New(bars priceSource, sink events.Sink, start time.Time, initialCapital decimal.Decimal, opts ...Option) (*NaivePortfolio, error) {
	if !initialCapital.IsPositive() {
		return nil, fmt.Errorf("%s: %w", initialCapital, ErrNonPositiveCapital)
	}
	symbols := bars.Symbols()
	p := &NaivePortfolio{
		bars:             bars,
		sink:             sink,
		symbols:          symbols,
		sizer:            FixedSizer{Quantity: defaultOrderQuantity},
		logger:           zap.NewNop(),
		newID:            uuid.NewString,
		start:            start,
		initialCapital:   initialCapital,
		currentPositions: make(map[string]int64, len(symbols)),
	}
	for _, opt := range opts {
		opt(p)
	}
	for _, sym := range symbols {
		p.currentPositions[sym] = 0
	}
	p.currentHoldings = p.emptyHoldings(start)
	p.allPositions = []types.Positions{p.positionsSnapshot(start)}
	p.allHoldings = []types.Holdings{copyHoldings(p.currentHoldings)}
	return p, nil
}

// UpdateTimeIndex appends one positions row and one holdings row for the current
// bar. The rows reflect every fill processed so far, i.e. up to the previous bar.
func (p *NaivePortfolio) UpdateTimeIndex(_ types.MarketEvent) error {
	ts := p.bars.CurrentTime()

	p.allPositions = append(p.allPositions, p.positionsSnapshot(ts))

	h := types.Holdings{
		Timestamp:  ts,
		Values:     make(map[string]decimal.Decimal, len(p.symbols)),
		Cash:       p.currentHoldings.Cash,
		Commission: p.currentHoldings.Commission,
		Total:      p.currentHoldings.Cash,
	}
	for _, sym := range p.symbols {
		closePrice, err := p.latestClose(sym)
		if err != nil {
			return err
		}
		value := closePrice.Mul(decimal.NewFromInt(p.currentPositions[sym]))
		h.Values[sym] = value
		h.Total = h.Total.Add(value)
	}
	p.allHoldings = append(p.allHoldings, h)
	p.currentHoldings = copyHoldings(h)
	return nil
}

// UpdateSignal turns a signal into at most one market order:
//   - LONG/SHORT while flat opens a BUY/SELL position sized by the Sizer
//   - EXIT while long sells the whole position, EXIT while short buys it back
//
// Every other combination is ignored, as is any signal whose strength is not
// positive.
func (p *NaivePortfolio) UpdateSignal(signal types.SignalEvent) error {
	position, ok := p.currentPositions[signal.Symbol]
	if !ok {
		return fmt.Errorf("%s: %w", signal.Symbol, data.ErrSymbolNotFound)
	}
	if !(signal.Strength > 0) {
		p.logger.Debug("signal ignored: non-positive strength",
			zap.String("symbol", signal.Symbol),
			zap.String("direction", string(signal.Direction)),
			zap.Float64("strength", signal.Strength))
		return nil
	}

	var (
		side     types.Side
		quantity int64
	)
	switch {
	case signal.Direction == types.DirectionLong && position == 0:
		side, quantity = types.SideTypeBuy, p.sizer.Size(signal, position)
	case signal.Direction == types.DirectionShort && position == 0:
		side, quantity = types.SideTypeSell, p.sizer.Size(signal, position)
	case signal.Direction == types.DirectionExit && position > 0:
		side, quantity = types.SideTypeSell, position
	case signal.Direction == types.DirectionExit && position < 0:
		side, quantity = types.SideTypeBuy, -position
	}
	if quantity <= 0 {
		p.logger.Debug("signal ignored",
			zap.String("symbol", signal.Symbol),
			zap.String("direction", string(signal.Direction)),
			zap.Int64("position", position))
		return nil
	}

	order := types.NewOrderEvent(p.newID(), signal.Symbol, types.TypeMarket, quantity, side, p.bars.CurrentTime())
	p.logger.Debug("order generated",
		zap.String("order_id", order.ID),
		zap.String("symbol", order.Symbol),
		zap.String("side", string(order.Side)),
		zap.Int64("quantity", order.Quantity))
	p.sink.Push(order)
	return nil
}

// UpdateFill books a fill against positions, cash and commission.
func (p *NaivePortfolio) UpdateFill(fill types.FillEvent) error {
	dir := fill.Side.Multiplier()
	if dir == 0 {
		return fmt.Errorf("%q: %w", fill.Side, ErrUnknownSide)
	}
	if _, ok := p.currentPositions[fill.Symbol]; !ok {
		return fmt.Errorf("%s: %w", fill.Symbol, data.ErrSymbolNotFound)
	}
	closePrice, err := p.bars.LatestBarValue(fill.Symbol, types.FieldClose)
	if err != nil {
		return err
	}

	p.currentPositions[fill.Symbol] += dir * fill.Quantity

	cost := closePrice.Mul(decimal.NewFromInt(dir * fill.Quantity))
	outflow := cost.Add(fill.Commission)
	h := &p.currentHoldings
	h.Values[fill.Symbol] = h.Values[fill.Symbol].Add(cost)
	h.Commission = h.Commission.Add(fill.Commission)
	h.Cash = h.Cash.Sub(outflow)
	h.Total = h.Total.Sub(outflow)
	return nil
}

// EquityCurve builds the equity curve from the holdings history. It is computed
// on the first call and cached; call it once the run is over.
func (p *NaivePortfolio) EquityCurve() []types.EquityPoint {
	if p.equityCurve == nil {
		p.equityCurve = performance.EquityCurve(p.allHoldings)
	}
	return p.equityCurve
}

func (p *NaivePortfolio) SummaryStats(periodsPerYear float64) []types.Stat {
	return performance.Summary(p.EquityCurve(), periodsPerYear)
}

// Position returns the signed quantity currently held in symbol.
func (p *NaivePortfolio) Position(symbol string) int64 {
	return p.currentPositions[symbol]
}

func (p *NaivePortfolio) CurrentHoldings() types.Holdings {
	return copyHoldings(p.currentHoldings)
}

// History returns the positions and holdings rows recorded so far, starting with
// the initial row at the start date.
func (p *NaivePortfolio) History() ([]types.Positions, []types.Holdings) {
	return append([]types.Positions(nil), p.allPositions...), append([]types.Holdings(nil), p.allHoldings...)
}

func (p *NaivePortfolio) latestClose(symbol string) (decimal.Decimal, error) {
	v, err := p.bars.LatestBarValue(symbol, types.FieldClose)
	if errors.Is(err, data.ErrNoBars) {
		// nothing traded before the first bar, value the position at zero
		return decimal.Zero, nil
	}
	return v, err
}

func (p *NaivePortfolio) emptyHoldings(ts time.Time) types.Holdings {
	values := make(map[string]decimal.Decimal, len(p.symbols))
	for _, sym := range p.symbols {
		values[sym] = decimal.Zero
	}
	return types.Holdings{
		Timestamp:  ts,
		Values:     values,
		Cash:       p.initialCapital,
		Commission: decimal.Zero,
		Total:      p.initialCapital,
	}
}

func (p *NaivePortfolio) positionsSnapshot(ts time.Time) types.Positions {
	q := make(map[string]int64, len(p.currentPositions))
	for sym, qty := range p.currentPositions {
		q[sym] = qty
	}
	return types.Positions{Timestamp: ts, Quantities: q}
}

func copyHoldings(h types.Holdings) types.Holdings {
	values := make(map[string]decimal.Decimal, len(h.Values))
	for sym, v := range h.Values {
		values[sym] = v
	}
	h.Values = values
	return h
}
