package main

import (
	"context"
	"fmt"
	"io"

	"eventbacktester/internal/config"
	"eventbacktester/internal/data"
	"eventbacktester/internal/engine"
	"eventbacktester/internal/events"
	"eventbacktester/internal/execution"
	"eventbacktester/internal/portfolio"
	"eventbacktester/internal/repository"
	"eventbacktester/strategies/donchian"
	"eventbacktester/strategies/mac"
	"eventbacktester/types"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// runBacktest loads the bars, wires the components described by cfg and runs
// the engine. cfg must have been validated.
func runBacktest(ctx context.Context, cfg *config.Config, log *zap.Logger, progress io.Writer) (*engine.Result, error) {
	series, err := loadSeries(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	capital, err := cfg.Capital()
	if err != nil {
		return nil, err
	}
	start, err := cfg.StartTime()
	if err != nil {
		return nil, err
	}
	factories, err := buildFactories(cfg, series, log)
	if err != nil {
		return nil, err
	}

	eng, err := engine.NewEngine(engine.Config{
		Symbols:        cfg.Symbols,
		InitialCapital: capital,
		Heartbeat:      cfg.Heartbeat,
		Start:          start,
		PeriodsPerYear: cfg.Periods(),
	}, factories, engine.WithLogger(log), engine.WithProgressWriter(progress))
	if err != nil {
		return nil, err
	}
	return eng.Run(ctx)
}

func loadSeries(ctx context.Context, cfg *config.Config, log *zap.Logger) (map[string][]types.Bar, error) {
	start, err := cfg.StartTime()
	if err != nil {
		return nil, err
	}
	end, err := cfg.EndTime()
	if err != nil {
		return nil, err
	}

	var loader data.Loader
	switch cfg.Data.Source {
	case "database":
		var opts []repository.Option
		if cfg.Data.VendorID != 0 {
			opts = append(opts, repository.WithDataVendor(cfg.Data.VendorID))
		}
		db, err := repository.NewDatabase(ctx, cfg.Data.DatabaseURL, opts...)
		if err != nil {
			return nil, err
		}
		defer db.Close()
		loader = data.NewDatabaseLoader(db, start, end)
	case "csv":
		loader = data.NewCSVLoader(cfg.Data.CSVDir)
	default:
		return nil, fmt.Errorf("data source %q: %w", cfg.Data.Source, config.ErrInvalidConfig)
	}

	series, err := data.LoadSeries(ctx, loader, cfg.Symbols)
	if err != nil {
		return nil, err
	}
	series = data.TrimSeries(series, start, end)
	for sym, bars := range series {
		log.Debug("bars loaded", zap.String("symbol", sym), zap.Int("count", len(bars)))
	}
	return series, nil
}

func buildFactories(cfg *config.Config, series map[string][]types.Bar, log *zap.Logger) (engine.Factories, error) {
	newStrategy, err := strategyFactory(cfg.Strategy, log.Named("strategy"))
	if err != nil {
		return engine.Factories{}, err
	}
	sizer, err := newSizer(cfg.Portfolio)
	if err != nil {
		return engine.Factories{}, err
	}
	execOpts, err := executionOptions(cfg.Execution)
	if err != nil {
		return engine.Factories{}, err
	}
	execOpts = append(execOpts, execution.WithLogger(log.Named("execution")))

	return engine.Factories{
		Data: func(sink events.Sink, ec engine.Config) (engine.DataProvider, error) {
			p, err := data.NewHistoricProvider(sink, ec.Symbols, series)
			if err != nil {
				return nil, err
			}
			return p, nil
		},
		Strategy: newStrategy,
		Portfolio: func(bars engine.DataProvider, sink events.Sink, ec engine.Config) (engine.Portfolio, error) {
			p, err := portfolio.New(bars, sink, ec.Start, ec.InitialCapital,
				portfolio.WithSizer(sizer),
				portfolio.WithLogger(log.Named("portfolio")))
			if err != nil {
				return nil, err
			}
			return p, nil
		},
		Execution: func(bars engine.DataProvider, sink events.Sink) (engine.ExecutionHandler, error) {
			return execution.NewSimulatedHandler(bars, sink, execOpts...), nil
		},
	}, nil
}

type strategyBuilder func(bars engine.DataProvider, sink events.Sink) (engine.Strategy, error)

func strategyFactory(cfg config.StrategyConfig, log *zap.Logger) (strategyBuilder, error) {
	switch cfg.Name {
	case "mac":
		return func(bars engine.DataProvider, sink events.Sink) (engine.Strategy, error) {
			s, err := mac.New(bars, sink, cfg.ShortWindow, cfg.LongWindow, log)
			if err != nil {
				return nil, err
			}
			return s, nil
		}, nil
	case "donchian":
		return func(bars engine.DataProvider, sink events.Sink) (engine.Strategy, error) {
			s, err := donchian.New(bars, sink, donchian.Config{
				Lookback:      cfg.Lookback,
				ATRPeriod:     cfg.ATRPeriod,
				ATRMultiplier: cfg.ATRMultiplier,
			}, log)
			if err != nil {
				return nil, err
			}
			return s, nil
		}, nil
	}
	return nil, fmt.Errorf("strategy %q: %w", cfg.Name, config.ErrInvalidConfig)
}

func newSizer(cfg config.PortfolioConfig) (portfolio.Sizer, error) {
	switch cfg.Sizer {
	case "fixed":
		return portfolio.FixedSizer{Quantity: cfg.Quantity}, nil
	case "strength":
		return portfolio.StrengthSizer{Base: cfg.Quantity}, nil
	}
	return nil, fmt.Errorf("sizer %q: %w", cfg.Sizer, config.ErrInvalidConfig)
}

func executionOptions(cfg config.ExecutionConfig) ([]execution.Option, error) {
	var opts []execution.Option
	if cfg.Exchange != "" {
		opts = append(opts, execution.WithExchange(cfg.Exchange))
	}
	switch cfg.Commission {
	case "ib":
		opts = append(opts, execution.WithCommission(execution.IBCommission))
	case "fixed":
		fee, err := decimal.NewFromString(cfg.FixedFee)
		if err != nil {
			return nil, fmt.Errorf("fixed fee %q: %w", cfg.FixedFee, config.ErrInvalidConfig)
		}
		opts = append(opts, execution.WithCommission(execution.FixedCommission(fee)))
	case "netherlands":
		opts = append(opts, execution.WithValueCommission(execution.NetherlandsSchedule()))
	default:
		return nil, fmt.Errorf("commission %q: %w", cfg.Commission, config.ErrInvalidConfig)
	}
	return opts, nil
}

func writeOutputs(w io.Writer, cfg *config.Config, res *engine.Result) error {
	if cfg.Output.EquityFile != "" {
		if err := engine.WriteEquityCSVFile(cfg.Output.EquityFile, res.EquityCurve, res.Symbols); err != nil {
			return err
		}
	}
	if cfg.Output.TradesFile != "" {
		if err := engine.WriteTradesCSVFile(cfg.Output.TradesFile, res.Fills); err != nil {
			return err
		}
	}
	if cfg.Output.ChartFile != "" {
		if err := engine.WriteEquityChartFile(cfg.Output.ChartFile, res.EquityCurve); err != nil {
			return err
		}
	}
	engine.PrintSummary(w, res.Stats, res.Counters)
	engine.PrintTradeReport(w, res.Trades)
	return nil
}
