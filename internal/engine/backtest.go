package engine

import (
	"context"
	"fmt"
	"io"
	"time"

	"eventbacktester/internal/events"
	"eventbacktester/types"

	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"
)

type backtester struct {
	queue     *events.Queue
	bars      DataProvider
	strategy  Strategy
	portfolio Portfolio
	execution ExecutionHandler
	heartbeat time.Duration
	logger    *zap.Logger
	progress  *progressbar.ProgressBar

	counters Counters
	fills    []types.FillEvent
}

func newBacktester(
	queue *events.Queue,
	bars DataProvider,
	strat Strategy,
	pf Portfolio,
	exec ExecutionHandler,
	heartbeat time.Duration,
	logger *zap.Logger,
	progress *progressbar.ProgressBar,
) *backtester {
	return &backtester{
		queue:     queue,
		bars:      bars,
		strategy:  strat,
		portfolio: pf,
		execution: exec,
		heartbeat: heartbeat,
		logger:    logger,
		progress:  progress,
	}
}

// run releases one bar per cycle and drains the queue completely before the
// next bar, so nothing can react to data it should not have seen yet.
func (b *backtester) run(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	for b.bars.Continue() {
		b.bars.UpdateBars()
		if err := b.drain(); err != nil {
			return err
		}
		_ = b.progress.Add(1)
		if err := b.wait(ctx); err != nil {
			return err
		}
	}
	_ = b.progress.Finish()
	return nil
}

func (b *backtester) drain() error {
	for {
		ev, ok := b.queue.Pop()
		if !ok {
			return nil
		}
		if err := b.dispatch(ev); err != nil {
			return fmt.Errorf("%s: %w", b.bars.CurrentTime().Format(time.RFC3339), err)
		}
	}
}

func (b *backtester) dispatch(ev types.Event) error {
	switch e := ev.(type) {
	case types.MarketEvent:
		b.counters.Markets++
		if err := b.strategy.CalculateSignals(e); err != nil {
			return fmt.Errorf("calculate signals: %w", err)
		}
		if err := b.portfolio.UpdateTimeIndex(e); err != nil {
			return fmt.Errorf("update time index: %w", err)
		}
	case types.SignalEvent:
		b.counters.Signals++
		b.logger.Debug("signal", zap.String("symbol", e.Symbol), zap.String("direction", string(e.Direction)))
		if err := b.portfolio.UpdateSignal(e); err != nil {
			return fmt.Errorf("update signal: %w", err)
		}
	case types.OrderEvent:
		b.counters.Orders++
		b.logger.Debug("order",
			zap.String("order_id", e.ID),
			zap.String("symbol", e.Symbol),
			zap.String("side", string(e.Side)),
			zap.Int64("quantity", e.Quantity))
		if err := b.execution.ExecuteOrder(e); err != nil {
			return fmt.Errorf("execute order: %w", err)
		}
	case types.FillEvent:
		b.counters.Fills++
		b.fills = append(b.fills, e)
		if err := b.portfolio.UpdateFill(e); err != nil {
			return fmt.Errorf("update fill: %w", err)
		}
	default:
		return fmt.Errorf("%T: %w", ev, ErrUnknownEvent)
	}
	return nil
}

// wait sleeps for the heartbeat. Cancellation is only noticed here, between
// two bars.
func (b *backtester) wait(ctx context.Context) error {
	if b.heartbeat <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(b.heartbeat)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func initProgressBar(maxTicks int, w io.Writer) *progressbar.ProgressBar {
	return progressbar.NewOptions(maxTicks,
		progressbar.OptionSetWriter(w),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetElapsedTime(true),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetDescription("Backtesting in progress..."),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}))
}
