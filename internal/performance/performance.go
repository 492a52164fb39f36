// Package performance turns a holdings history into an equity curve and the
// summary statistics reported at the end of a run.
package performance

import (
	"fmt"
	"math"

	"eventbacktester/types"
)

// EquityCurve derives returns, the cumulative equity curve and drawdowns from a
// chronological holdings history. The first point has equity 1 and no return;
// its Returns field is left at zero but is not a period return.
func EquityCurve(history []types.Holdings) []types.EquityPoint {
	curve := make([]types.EquityPoint, len(history))
	equity := make([]float64, len(history))
	for i, h := range history {
		curve[i].Holdings = h
		if i == 0 {
			curve[i].EquityCurve = 1.0
			equity[i] = 1.0
			continue
		}
		prev := history[i-1].Total.InexactFloat64()
		if prev != 0 {
			curve[i].Returns = h.Total.InexactFloat64()/prev - 1
		}
		curve[i].EquityCurve = curve[i-1].EquityCurve * (1 + curve[i].Returns)
		equity[i] = curve[i].EquityCurve
	}

	drawdown, _, _ := Drawdowns(equity)
	for i := range curve {
		curve[i].Drawdown = drawdown[i]
	}
	return curve
}

// SharpeRatio is the annualised Sharpe ratio of a return series, assuming the
// returns are already in excess of the benchmark. It is zero when the sample
// standard deviation is undefined or zero.
func SharpeRatio(returns []float64, periods float64) float64 {
	if len(returns) < 2 {
		return 0
	}
	var sum float64
	for _, r := range returns {
		sum += r
	}
	mean := sum / float64(len(returns))

	var varianceSum float64
	for _, r := range returns {
		diff := r - mean
		varianceSum += diff * diff
	}
	std := math.Sqrt(varianceSum / float64(len(returns)-1))
	if std == 0 {
		return 0
	}
	return math.Sqrt(periods) * mean / std
}

// Drawdowns returns the fractional drawdown from the high-water mark at every
// point, the largest such drawdown and the longest run of consecutive points
// spent below a prior peak.
func Drawdowns(equity []float64) ([]float64, float64, int) {
	drawdown := make([]float64, len(equity))
	var (
		hwm         float64
		maxDD       float64
		duration    int
		maxDuration int
	)
	for i, eq := range equity {
		if i == 0 || eq > hwm {
			hwm = eq
		}
		if hwm > 0 {
			drawdown[i] = (hwm - eq) / hwm
		}
		if drawdown[i] == 0 {
			duration = 0
		} else {
			duration++
		}
		if drawdown[i] > maxDD {
			maxDD = drawdown[i]
		}
		if duration > maxDuration {
			maxDuration = duration
		}
	}
	return drawdown, maxDD, maxDuration
}

// Summary reports, in order: Total Return, Sharpe Ratio, Max Drawdown and
// Drawdown Duration. The Sharpe ratio only uses the returns from the second
// point on.
func Summary(curve []types.EquityPoint, periods float64) []types.Stat {
	totalReturn := 0.0
	returns := make([]float64, len(curve))
	equity := make([]float64, len(curve))
	for i, p := range curve {
		returns[i] = p.Returns
		equity[i] = p.EquityCurve
	}
	if len(curve) > 0 {
		totalReturn = curve[len(curve)-1].EquityCurve - 1
	}
	_, maxDD, duration := Drawdowns(equity)

	return []types.Stat{
		{Label: "Total Return", Value: fmt.Sprintf("%0.2f%%", totalReturn*100)},
		{Label: "Sharpe Ratio", Value: fmt.Sprintf("%0.2f", SharpeRatio(periodReturns(returns), periods))},
		{Label: "Max Drawdown", Value: fmt.Sprintf("%0.2f%%", maxDD*100)},
		{Label: "Drawdown Duration", Value: fmt.Sprintf("%d", duration)},
	}
}

func periodReturns(returns []float64) []float64 {
	if len(returns) == 0 {
		return nil
	}
	return returns[1:]
}
