package engine

import (
	"fmt"
	"io"
	"time"

	"eventbacktester/types"
)

// PrintSummary prints the statistics in order, followed by the event counters.
func PrintSummary(w io.Writer, stats []types.Stat, counters Counters) {
	fmt.Fprintln(w, "===== Performance Summary =====")
	for _, s := range stats {
		fmt.Fprintf(w, "%-23s%s\n", s.Label+":", s.Value)
	}

	fmt.Fprintln(w, "\n-- Events --")
	fmt.Fprintf(w, "%-23s%d\n", "Bars:", counters.Markets)
	fmt.Fprintf(w, "%-23s%d\n", "Signals:", counters.Signals)
	fmt.Fprintf(w, "%-23s%d\n", "Orders:", counters.Orders)
	fmt.Fprintf(w, "%-23s%d\n", "Fills:", counters.Fills)
	fmt.Fprintln(w, "===============================")
}

func PrintTradeReport(w io.Writer, report *TradeReport) {
	fmt.Fprintln(w, "===== Trading Report =====")
	fmt.Fprintf(w, "Start Date:            %s\n", report.StartDate.Format("2006-01-02"))
	fmt.Fprintf(w, "Total Period:          %d days\n", report.TotalPeriod/(24*time.Hour))
	fmt.Fprintf(w, "Total Trades:          %d\n", report.TotalTrades)

	fmt.Fprintln(w, "\n-- Absolute Performance --")
	fmt.Fprintf(w, "Net Profit:            %s\n", report.NetProfit.StringFixed(2))
	fmt.Fprintf(w, "Avg Profit/Trade:      %s\n", report.NetAvgProfitPerTrade.StringFixed(2))
	fmt.Fprintf(w, "CAGR:                  %s%%\n", report.CAGR.Shift(2).StringFixed(2))

	fmt.Fprintln(w, "\n-- Trade-Level Metrics --")
	fmt.Fprintf(w, "Avg Win:               %s\n", report.AvgWin.StringFixed(2))
	fmt.Fprintf(w, "Avg Loss:              %s\n", report.AvgLoss.StringFixed(2))
	fmt.Fprintf(w, "Max Consecutive Losses:%d\n", report.MaxConsecutiveLosses)

	fmt.Fprintln(w, "\n-- Costs --")
	fmt.Fprintf(w, "Total Fees:            %s\n", report.TotalFees.StringFixed(2))

	fmt.Fprintln(w, "==========================")
}
