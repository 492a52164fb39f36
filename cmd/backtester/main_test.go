package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"eventbacktester/internal/config"
	"eventbacktester/internal/execution"
	"eventbacktester/internal/portfolio"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Closes 10,10,10,12,12,8 with a 2/3 crossover: LONG on the 4th bar, EXIT on
// the 6th.
var closes = []string{"10", "10", "10", "12", "12", "8"}

func writeBars(t *testing.T, dir, symbol string) {
	t.Helper()
	var b strings.Builder
	b.WriteString("datetime,open,high,low,close,volume,adj_close\n")
	for i, c := range closes {
		fmt.Fprintf(&b, "2024-01-%02d,%s,%s,%s,%s,1000,%s\n", i+2, c, c, c, c, c)
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, symbol+".csv"), []byte(b.String()), 0o600))
}

func writeYAML(t *testing.T, dir, csvDir string) string {
	t.Helper()
	content := fmt.Sprintf(`
symbols: [AAPL]
initial_capital: "100000"
start: "2024-01-01"
end: "2024-12-31"
data:
  source: csv
  csv_dir: %s
strategy:
  name: mac
  short_window: 2
  long_window: 3
output:
  equity_file: ""
log:
  level: error
`, csvDir)
	path := filepath.Join(dir, "backtest.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func runApp(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	app := newApp()
	app.Writer = &out
	app.ErrWriter = &out
	err := app.RunContext(context.Background(), append([]string{"backtester", "run"}, args...))
	return out.String(), err
}

func TestRunCommand(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	writeBars(t, dir, "AAPL")
	cfgPath := writeYAML(t, dir, dir)

	equity := filepath.Join(dir, "equity.csv")
	trades := filepath.Join(dir, "trades.csv")
	chart := filepath.Join(dir, "equity.png")
	out, err := runApp(t, "--config", cfgPath, "--quiet",
		"--output", equity, "--trades", trades, "--chart", chart)
	require.NoError(t, err)

	assert.Contains(t, out, "===== Performance Summary =====")
	assert.Contains(t, out, "===== Trading Report =====")
	assert.Contains(t, out, fmt.Sprintf("%-23s%d", "Bars:", len(closes)))
	assert.Contains(t, out, fmt.Sprintf("%-23s%d", "Fills:", 2))

	raw, err := os.ReadFile(equity)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	assert.Equal(t, "datetime,cash,commission,AAPL,total,returns,equity_curve,drawdown", lines[0])
	// initial row plus one per bar
	assert.Len(t, lines, len(closes)+2)

	raw, err = os.ReadFile(trades)
	require.NoError(t, err)
	assert.Len(t, strings.Split(strings.TrimSpace(string(raw)), "\n"), 3)

	info, err := os.Stat(chart)
	require.NoError(t, err)
	assert.Positive(t, info.Size())
}

func TestRunCommand_FlagsOverrideConfig(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	writeBars(t, dir, "AAPL")
	cfgPath := writeYAML(t, dir, dir)

	_, err := runApp(t, "--config", cfgPath, "--quiet", "--strategy", "momentum")
	if !errors.Is(err, config.ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}

	_, err = runApp(t, "--config", cfgPath, "--quiet", "--symbols", "MSFT")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MSFT")

	// the window excludes every bar
	_, err = runApp(t, "--config", cfgPath, "--quiet", "--start", "2025-01-01", "--end", "2025-02-01")
	require.Error(t, err)
}

func TestNewSizer(t *testing.T) {
	s, err := newSizer(config.PortfolioConfig{Sizer: "fixed", Quantity: 50})
	require.NoError(t, err)
	assert.Equal(t, portfolio.FixedSizer{Quantity: 50}, s)

	s, err = newSizer(config.PortfolioConfig{Sizer: "strength", Quantity: 50})
	require.NoError(t, err)
	assert.Equal(t, portfolio.StrengthSizer{Base: 50}, s)

	_, err = newSizer(config.PortfolioConfig{Sizer: "kelly"})
	assert.ErrorIs(t, err, config.ErrInvalidConfig)
}

func TestExecutionOptions(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.ExecutionConfig
		wantLen int
		wantErr error
	}{
		{"ib with exchange", config.ExecutionConfig{Exchange: "NYSE", Commission: "ib"}, 2, nil},
		{"fixed", config.ExecutionConfig{Commission: "fixed", FixedFee: "1.5"}, 1, nil},
		{"netherlands", config.ExecutionConfig{Commission: "netherlands"}, 1, nil},
		{"bad fee", config.ExecutionConfig{Commission: "fixed", FixedFee: "x"}, 0, config.ErrInvalidConfig},
		{"unknown", config.ExecutionConfig{Commission: "free"}, 0, config.ErrInvalidConfig},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts, err := executionOptions(tt.cfg)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Len(t, opts, tt.wantLen)
			assert.NotNil(t, execution.NewSimulatedHandler(nil, nil, opts...))
		})
	}
}

// chdir changes the working directory for the duration of the test
// (equivalent of testing.T.Chdir, which requires Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(old); err != nil {
			t.Fatal(err)
		}
	})
}
