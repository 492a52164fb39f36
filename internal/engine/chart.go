package engine

import (
	"errors"
	"fmt"
	"os"

	"eventbacktester/types"

	"github.com/vicanso/go-charts/v2"
)

var ErrEmptyCurve = errors.New("equity curve is empty")

// RenderEquityChart draws the equity curve and the drawdown series as a PNG.
func RenderEquityChart(curve []types.EquityPoint) ([]byte, error) {
	if len(curve) == 0 {
		return nil, ErrEmptyCurve
	}

	labels := make([]string, len(curve))
	equity := make([]float64, len(curve))
	drawdown := make([]float64, len(curve))
	for i, p := range curve {
		labels[i] = p.Timestamp.Format("2006-01-02")
		equity[i] = p.EquityCurve
		drawdown[i] = -p.Drawdown
	}

	splitNum := 6
	if len(labels) <= 30 {
		splitNum = max(len(labels)/3, 1)
	}

	p, err := charts.LineRender(
		[][]float64{equity, drawdown},
		charts.TitleTextOptionFunc("Portfolio value", "equity curve and drawdown"),
		charts.XAxisOptionFunc(charts.XAxisOption{
			Data:        labels,
			SplitNumber: splitNum,
			BoundaryGap: charts.FalseFlag(),
		}),
		charts.LegendOptionFunc(charts.LegendOption{
			Data: []string{"Equity", "Drawdown"},
		}),
		charts.WidthOptionFunc(1000),
		charts.HeightOptionFunc(600),
		charts.ThemeOptionFunc(charts.ThemeLight),
	)
	if err != nil {
		return nil, fmt.Errorf("render chart: %w", err)
	}

	buf, err := p.Bytes()
	if err != nil {
		return nil, fmt.Errorf("chart bytes: %w", err)
	}
	return buf, nil
}

func WriteEquityChartFile(path string, curve []types.EquityPoint) error {
	buf, err := RenderEquityChart(curve)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, buf, 0o644); err != nil {
		return fmt.Errorf("write chart file: %w", err)
	}
	return nil
}
