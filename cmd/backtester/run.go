package main

import (
	"fmt"
	"io"
	"os"

	"eventbacktester/internal/config"
	"eventbacktester/internal/logger"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

var runCommand = &cli.Command{
	Name:      "run",
	Usage:     "replays historical bars through a strategy and reports the results",
	ArgsUsage: "[--config backtest.yaml]",
	Action:    runBacktestCommand,
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "path to the yaml config, defaults to ./backtest.yaml when present",
		},
		&cli.StringSliceFlag{
			Name:    "symbols",
			Aliases: []string{"s"},
			Usage:   "symbols to trade, comma separated",
		},
		&cli.StringFlag{
			Name:  "capital",
			Usage: "initial capital",
		},
		&cli.StringFlag{
			Name:  "start",
			Usage: "first date of the run, YYYY-MM-DD",
		},
		&cli.StringFlag{
			Name:  "end",
			Usage: "last date of the run, YYYY-MM-DD",
		},
		&cli.StringFlag{
			Name:  "strategy",
			Usage: "mac or donchian",
		},
		&cli.StringFlag{
			Name:  "source",
			Usage: "csv or database",
		},
		&cli.StringFlag{
			Name:  "csv-dir",
			Usage: "directory holding one <SYMBOL>.csv per symbol",
		},
		&cli.StringFlag{
			Name:    "database-url",
			Usage:   "postgres url of the securities master",
			EnvVars: []string{"DATABASE_URL"},
		},
		&cli.DurationFlag{
			Name:  "heartbeat",
			Usage: "pause between two bars",
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "equity curve csv file",
		},
		&cli.StringFlag{
			Name:  "trades",
			Usage: "trades csv file",
		},
		&cli.StringFlag{
			Name:  "chart",
			Usage: "equity chart png file",
		},
		&cli.StringFlag{
			Name:  "log-level",
			Usage: "debug, info, warn or error",
		},
		&cli.StringFlag{
			Name:  "log-format",
			Usage: "console or json",
		},
		&cli.BoolFlag{
			Name:    "quiet",
			Aliases: []string{"q"},
			Usage:   "hide the progress bar",
		},
	},
}

func runBacktestCommand(c *cli.Context) error {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return err
	}
	applyFlags(c, cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	log := logger.New(cfg.Log.Level, cfg.Log.Format)
	defer func() { _ = log.Sync() }()

	var progress io.Writer = os.Stderr
	if c.Bool("quiet") {
		progress = io.Discard
	}

	res, err := runBacktest(c.Context, cfg, log, progress)
	if err != nil {
		log.Error("backtest failed", zap.Error(err))
		return fmt.Errorf("backtest: %w", err)
	}
	return writeOutputs(c.App.Writer, cfg, res)
}

// applyFlags overrides the loaded configuration with the flags given on the
// command line.
func applyFlags(c *cli.Context, cfg *config.Config) {
	if c.IsSet("symbols") {
		cfg.Symbols = c.StringSlice("symbols")
	}
	if c.IsSet("capital") {
		cfg.InitialCapital = c.String("capital")
	}
	if c.IsSet("start") {
		cfg.Start = c.String("start")
	}
	if c.IsSet("end") {
		cfg.End = c.String("end")
	}
	if c.IsSet("strategy") {
		cfg.Strategy.Name = c.String("strategy")
	}
	if c.IsSet("source") {
		cfg.Data.Source = c.String("source")
	}
	if c.IsSet("csv-dir") {
		cfg.Data.CSVDir = c.String("csv-dir")
	}
	if c.IsSet("database-url") {
		cfg.Data.DatabaseURL = c.String("database-url")
	}
	if c.IsSet("heartbeat") {
		cfg.Heartbeat = c.Duration("heartbeat")
	}
	if c.IsSet("output") {
		cfg.Output.EquityFile = c.String("output")
	}
	if c.IsSet("trades") {
		cfg.Output.TradesFile = c.String("trades")
	}
	if c.IsSet("chart") {
		cfg.Output.ChartFile = c.String("chart")
	}
	if c.IsSet("log-level") {
		cfg.Log.Level = c.String("log-level")
	}
	if c.IsSet("log-format") {
		cfg.Log.Format = c.String("log-format")
	}
}
