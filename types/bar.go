package types

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// BarField names one of the numeric columns of a Bar.
type BarField string

const (
	FieldOpen     BarField = "open"
	FieldHigh     BarField = "high"
	FieldLow      BarField = "low"
	FieldClose    BarField = "close"
	FieldVolume   BarField = "volume"
	FieldAdjClose BarField = "adj_close"
)

type Bar struct {
	Symbol    string          `json:"symbol"`
	Timestamp time.Time       `json:"timestamp"`
	Open      decimal.Decimal `json:"open"`
	High      decimal.Decimal `json:"high"`
	Low       decimal.Decimal `json:"low"`
	Close     decimal.Decimal `json:"close"`
	Volume    decimal.Decimal `json:"volume"`
	AdjClose  decimal.Decimal `json:"adjClose"`
}

// Value returns the column named by field.
func (b Bar) Value(field BarField) (decimal.Decimal, error) {
	switch field {
	case FieldOpen:
		return b.Open, nil
	case FieldHigh:
		return b.High, nil
	case FieldLow:
		return b.Low, nil
	case FieldClose:
		return b.Close, nil
	case FieldVolume:
		return b.Volume, nil
	case FieldAdjClose:
		return b.AdjClose, nil
	}
	return decimal.Zero, fmt.Errorf("unknown bar field %q", field)
}
