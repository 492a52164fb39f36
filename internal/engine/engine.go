package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"eventbacktester/internal/events"
	"eventbacktester/types"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrAlreadyRun   = errors.New("backtest has already been run")
	ErrUnknownEvent = errors.New("unknown event type")
)

// Counters tracks how many events of each kind were dispatched during a run.
type Counters struct {
	Markets int
	Signals int
	Orders  int
	Fills   int
}

type Result struct {
	RunID       string
	Counters    Counters
	Symbols     []string
	EquityCurve []types.EquityPoint
	Stats       []types.Stat
	Fills       []types.FillEvent
	Trades      *TradeReport
}

type Engine struct {
	cfg       Config
	factories Factories
	logger    *zap.Logger
	progress  io.Writer
	runID     string
	ran       bool
}

type Option func(*Engine)

func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithProgressWriter sets where the progress bar is drawn. Defaults to stderr.
func WithProgressWriter(w io.Writer) Option {
	return func(e *Engine) { e.progress = w }
}

func WithRunID(id string) Option {
	return func(e *Engine) { e.runID = id }
}

func NewEngine(cfg Config, factories Factories, opts ...Option) (*Engine, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if err := factories.validate(); err != nil {
		return nil, err
	}
	e := &Engine{
		cfg:       cfg,
		factories: factories,
		logger:    zap.NewNop(),
		progress:  os.Stderr,
		runID:     uuid.NewString(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.With(zap.String("run_id", e.runID))
	return e, nil
}

// Run builds the components, replays the whole data set and computes the
// statistics. An Engine can only be run once.
func (e *Engine) Run(ctx context.Context) (*Result, error) {
	if e.ran {
		return nil, ErrAlreadyRun
	}
	e.ran = true

	queue := events.NewQueue()
	bars, err := e.factories.Data(queue, e.cfg)
	if err != nil {
		return nil, fmt.Errorf("data provider: %w", err)
	}
	strat, err := e.factories.Strategy(bars, queue)
	if err != nil {
		return nil, fmt.Errorf("strategy: %w", err)
	}
	pf, err := e.factories.Portfolio(bars, queue, e.cfg)
	if err != nil {
		return nil, fmt.Errorf("portfolio: %w", err)
	}
	exec, err := e.factories.Execution(bars, queue)
	if err != nil {
		return nil, fmt.Errorf("execution handler: %w", err)
	}

	e.logger.Info("backtest started",
		zap.Strings("symbols", bars.Symbols()),
		zap.Int("bars", bars.Len()),
		zap.String("initial_capital", e.cfg.InitialCapital.String()),
		zap.Duration("heartbeat", e.cfg.Heartbeat))

	bt := newBacktester(queue, bars, strat, pf, exec, e.cfg.Heartbeat, e.logger, initProgressBar(bars.Len(), e.progress))
	if err := bt.run(ctx); err != nil {
		e.logger.Error("backtest aborted", zap.Error(err), zap.Int("markets", bt.counters.Markets))
		return nil, err
	}

	res := &Result{
		RunID:       e.runID,
		Counters:    bt.counters,
		Symbols:     bars.Symbols(),
		EquityCurve: pf.EquityCurve(),
		Stats:       pf.SummaryStats(e.cfg.PeriodsPerYear),
		Fills:       bt.fills,
	}
	res.Trades = generateTradeReport(res.EquityCurve, res.Fills)

	e.logger.Info("backtest finished",
		zap.Int("markets", res.Counters.Markets),
		zap.Int("signals", res.Counters.Signals),
		zap.Int("orders", res.Counters.Orders),
		zap.Int("fills", res.Counters.Fills))
	return res, nil
}
