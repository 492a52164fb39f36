package engine

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"eventbacktester/types"
)

const csvTimeLayout = "2006-01-02 15:04:05"

// WriteEquityCSVFile writes the equity curve to a CSV file at the given path.
func WriteEquityCSVFile(path string, curve []types.EquityPoint, symbols []string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create equity file: %w", err)
	}
	defer f.Close()

	return WriteEquityCSV(f, curve, symbols)
}

// WriteEquityCSV writes one row per equity point, oldest first. Symbol columns
// hold the market value of each position.
func WriteEquityCSV(w io.Writer, curve []types.EquityPoint, symbols []string) error {
	cw := csv.NewWriter(w)

	header := make([]string, 0, len(symbols)+7)
	header = append(header, "datetime", "cash", "commission")
	header = append(header, symbols...)
	header = append(header, "total", "returns", "equity_curve", "drawdown")
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for _, p := range curve {
		record := make([]string, 0, len(header))
		record = append(record, p.Timestamp.Format(csvTimeLayout), p.Cash.String(), p.Commission.String())
		for _, sym := range symbols {
			record = append(record, p.Values[sym].String())
		}
		record = append(record,
			p.Total.String(),
			formatFloat(p.Returns),
			formatFloat(p.EquityCurve),
			formatFloat(p.Drawdown),
		)
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write record: %w", err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

// WriteTradesCSVFile writes every fill, grouped into round trips, to path.
func WriteTradesCSVFile(path string, fills []types.FillEvent) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create trades file: %w", err)
	}
	defer f.Close()

	return WriteTradesCSV(f, fills)
}

func WriteTradesCSV(w io.Writer, fills []types.FillEvent) error {
	cw := csv.NewWriter(w)

	header := []string{
		"trade_id",
		"leg", // "open" or "close"
		"order_id",
		"symbol",
		"side",
		"quantity",
		"fill_cost",
		"commission",
		"exchange",
		"timestamp", // RFC3339
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for i, t := range fillsToTrades(fills) {
		tradeID := strconv.Itoa(i)
		if err := writeFillRow(cw, tradeID, "open", t.open); err != nil {
			return err
		}
		if t.close != nil {
			if err := writeFillRow(cw, tradeID, "close", t.close); err != nil {
				return err
			}
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

func writeFillRow(cw *csv.Writer, tradeID, leg string, f *types.FillEvent) error {
	record := []string{
		tradeID,
		leg,
		f.OrderID,
		f.Symbol,
		string(f.Side),
		strconv.FormatInt(f.Quantity, 10),
		f.FillCost.String(),
		f.Commission.String(),
		f.Exchange,
		f.Timestamp.Format(time.RFC3339),
	}
	if err := cw.Write(record); err != nil {
		return fmt.Errorf("write record: %w", err)
	}
	return nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
