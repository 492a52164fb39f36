package execution

import (
	"errors"
	"fmt"
	"time"

	"eventbacktester/internal/events"
	"eventbacktester/types"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const DefaultExchange = "ARCA"

var ErrInvalidOrder = errors.New("invalid order")

type priceSource interface {
	LatestBarDatetime(symbol string) (time.Time, error)
	LatestBarValue(symbol string, field types.BarField) (decimal.Decimal, error)
}

// SimulatedHandler fills every order in full at the latest close of its symbol.
// There is no latency, slippage or partial fill.
type SimulatedHandler struct {
	bars     priceSource
	sink     events.Sink
	exchange string
	fee      func(quantity int64, tradeValue decimal.Decimal) decimal.Decimal
	logger   *zap.Logger
}

type Option func(*SimulatedHandler)

func WithExchange(name string) Option {
	return func(h *SimulatedHandler) { h.exchange = name }
}

// WithCommission sets a per-quantity commission model. The default is IBCommission.
func WithCommission(model types.CommissionFunc) Option {
	return func(h *SimulatedHandler) {
		h.fee = func(quantity int64, _ decimal.Decimal) decimal.Decimal { return model(quantity) }
	}
}

// WithValueCommission charges by trade value instead of quantity.
func WithValueCommission(s ValueSchedule) Option {
	return func(h *SimulatedHandler) {
		h.fee = func(_ int64, tradeValue decimal.Decimal) decimal.Decimal { return s.Fee(tradeValue) }
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(h *SimulatedHandler) {
		if l != nil {
			h.logger = l
		}
	}
}

func NewSimulatedHandler(bars priceSource, sink events.Sink, opts ...Option) *SimulatedHandler {
	h := &SimulatedHandler{
		bars:     bars,
		sink:     sink,
		exchange: DefaultExchange,
		logger:   zap.NewNop(),
	}
	WithCommission(IBCommission)(h)
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// ExecuteOrder pushes exactly one FillEvent for order. A symbol without a bar is
// treated as a venue failure.
func (h *SimulatedHandler) ExecuteOrder(order types.OrderEvent) error {
	if order.Quantity <= 0 {
		return fmt.Errorf("order %s: quantity %d: %w", order.ID, order.Quantity, ErrInvalidOrder)
	}
	if order.Side.Multiplier() == 0 {
		return fmt.Errorf("order %s: side %q: %w", order.ID, order.Side, ErrInvalidOrder)
	}

	ts, err := h.bars.LatestBarDatetime(order.Symbol)
	if err != nil {
		return fmt.Errorf("order %s: %w", order.ID, err)
	}
	closePrice, err := h.bars.LatestBarValue(order.Symbol, types.FieldClose)
	if err != nil {
		return fmt.Errorf("order %s: %w", order.ID, err)
	}

	fillCost := closePrice.Mul(decimal.NewFromInt(order.Quantity))
	fee := h.fee(order.Quantity, fillCost)
	fill := types.NewFillEvent(order.ID, ts, order.Symbol, h.exchange, order.Quantity, order.Side, fillCost, &fee, nil)

	h.logger.Debug("order filled",
		zap.String("order_id", order.ID),
		zap.String("symbol", fill.Symbol),
		zap.String("side", string(fill.Side)),
		zap.Int64("quantity", fill.Quantity),
		zap.String("fill_cost", fill.FillCost.String()),
		zap.String("commission", fill.Commission.String()))
	h.sink.Push(fill)
	return nil
}
