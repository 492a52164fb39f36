package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"eventbacktester/types"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

const (
	EnvPrefix      = "BACKTEST"
	DefaultName    = "backtest"
	dateLayout     = "2006-01-02"
	defaultCapital = "100000.0"
)

var ErrInvalidConfig = errors.New("invalid configuration")

type DataConfig struct {
	// Source is "csv" or "database".
	Source      string `mapstructure:"source"`
	CSVDir      string `mapstructure:"csv_dir"`
	DatabaseURL string `mapstructure:"database_url"`
	// VendorID filters daily_price rows when non-zero.
	VendorID int32 `mapstructure:"vendor_id"`
}

type StrategyConfig struct {
	// Name is "mac" or "donchian".
	Name          string  `mapstructure:"name"`
	ShortWindow   int     `mapstructure:"short_window"`
	LongWindow    int     `mapstructure:"long_window"`
	Lookback      int     `mapstructure:"lookback"`
	ATRPeriod     int     `mapstructure:"atr_period"`
	ATRMultiplier float64 `mapstructure:"atr_multiplier"`
}

type PortfolioConfig struct {
	// Sizer is "fixed" or "strength".
	Sizer    string `mapstructure:"sizer"`
	Quantity int64  `mapstructure:"quantity"`
}

type ExecutionConfig struct {
	Exchange string `mapstructure:"exchange"`
	// Commission is "ib", "fixed" or "netherlands".
	Commission string `mapstructure:"commission"`
	FixedFee   string `mapstructure:"fixed_fee"`
}

type OutputConfig struct {
	EquityFile string `mapstructure:"equity_file"`
	TradesFile string `mapstructure:"trades_file"`
	ChartFile  string `mapstructure:"chart_file"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type Config struct {
	Symbols        []string       `mapstructure:"symbols"`
	InitialCapital string         `mapstructure:"initial_capital"`
	Start          string         `mapstructure:"start"`
	End            string         `mapstructure:"end"`
	Heartbeat      time.Duration  `mapstructure:"heartbeat"`
	Interval       types.Interval `mapstructure:"interval"`
	// PeriodsPerYear overrides the value derived from Interval when positive.
	PeriodsPerYear float64         `mapstructure:"periods_per_year"`
	Data           DataConfig      `mapstructure:"data"`
	Strategy       StrategyConfig  `mapstructure:"strategy"`
	Portfolio      PortfolioConfig `mapstructure:"portfolio"`
	Execution      ExecutionConfig `mapstructure:"execution"`
	Output         OutputConfig    `mapstructure:"output"`
	Log            LogConfig       `mapstructure:"log"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("symbols", []string{})
	v.SetDefault("initial_capital", defaultCapital)
	v.SetDefault("start", "1990-01-01")
	v.SetDefault("end", "")
	v.SetDefault("heartbeat", time.Duration(0))
	v.SetDefault("interval", string(types.Day))
	v.SetDefault("periods_per_year", 0.0)

	v.SetDefault("data.source", "csv")
	v.SetDefault("data.csv_dir", "./data")
	v.SetDefault("data.database_url", "")
	v.SetDefault("data.vendor_id", 0)

	v.SetDefault("strategy.name", "mac")
	v.SetDefault("strategy.short_window", 100)
	v.SetDefault("strategy.long_window", 400)
	v.SetDefault("strategy.lookback", 20)
	v.SetDefault("strategy.atr_period", 14)
	v.SetDefault("strategy.atr_multiplier", 0.0)

	v.SetDefault("portfolio.sizer", "fixed")
	v.SetDefault("portfolio.quantity", 100)

	v.SetDefault("execution.exchange", "ARCA")
	v.SetDefault("execution.commission", "ib")
	v.SetDefault("execution.fixed_fee", "0")

	v.SetDefault("output.equity_file", "equity.csv")
	v.SetDefault("output.trades_file", "")
	v.SetDefault("output.chart_file", "")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
}

// Load reads the configuration. A .env file in the working directory is loaded
// into the environment first, then path (or backtest.yaml in the working
// directory when path is empty) is read, and BACKTEST_* variables override both.
// BACKTEST_DATA_DATABASE_URL sets data.database_url, for example.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(DefaultName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}

// Validate checks the fields needed to start a run.
func (c *Config) Validate() error {
	if len(c.Symbols) == 0 {
		return fmt.Errorf("symbols: empty: %w", ErrInvalidConfig)
	}
	if _, err := c.Capital(); err != nil {
		return err
	}
	if _, err := c.StartTime(); err != nil {
		return err
	}
	if _, err := c.EndTime(); err != nil {
		return err
	}
	if c.Heartbeat < 0 {
		return fmt.Errorf("heartbeat: %s: %w", c.Heartbeat, ErrInvalidConfig)
	}
	if _, ok := types.ConvertInterval[string(c.Interval)]; !ok {
		return fmt.Errorf("interval: %q: %w", c.Interval, ErrInvalidConfig)
	}
	switch c.Data.Source {
	case "csv":
	case "database":
		if c.Data.DatabaseURL == "" {
			return fmt.Errorf("data.database_url: empty: %w", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("data.source: %q: %w", c.Data.Source, ErrInvalidConfig)
	}
	switch c.Execution.Commission {
	case "ib", "netherlands":
	case "fixed":
		if _, err := decimal.NewFromString(c.Execution.FixedFee); err != nil {
			return fmt.Errorf("execution.fixed_fee: %q: %w", c.Execution.FixedFee, ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("execution.commission: %q: %w", c.Execution.Commission, ErrInvalidConfig)
	}
	switch c.Strategy.Name {
	case "mac", "donchian":
	default:
		return fmt.Errorf("strategy.name: %q: %w", c.Strategy.Name, ErrInvalidConfig)
	}
	switch c.Portfolio.Sizer {
	case "fixed", "strength":
	default:
		return fmt.Errorf("portfolio.sizer: %q: %w", c.Portfolio.Sizer, ErrInvalidConfig)
	}
	return nil
}

func (c *Config) Capital() (decimal.Decimal, error) {
	d, err := decimal.NewFromString(c.InitialCapital)
	if err != nil || !d.IsPositive() {
		return decimal.Zero, fmt.Errorf("initial_capital: %q: %w", c.InitialCapital, ErrInvalidConfig)
	}
	return d, nil
}

func (c *Config) StartTime() (time.Time, error) {
	t, err := time.Parse(dateLayout, c.Start)
	if err != nil {
		return time.Time{}, fmt.Errorf("start: %q: %w", c.Start, ErrInvalidConfig)
	}
	return t, nil
}

// EndTime defaults to now when end is not set.
func (c *Config) EndTime() (time.Time, error) {
	if c.End == "" {
		return time.Now().UTC(), nil
	}
	t, err := time.Parse(dateLayout, c.End)
	if err != nil {
		return time.Time{}, fmt.Errorf("end: %q: %w", c.End, ErrInvalidConfig)
	}
	return t, nil
}

func (c *Config) Periods() float64 {
	if c.PeriodsPerYear > 0 {
		return c.PeriodsPerYear
	}
	return types.PeriodsPerYear(c.Interval)
}
