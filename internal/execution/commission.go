package execution

import (
	"eventbacktester/types"

	"github.com/shopspring/decimal"
)

var (
	ibMinimum     = decimal.RequireFromString("1.30")
	ibSmallRate   = decimal.RequireFromString("0.013")
	ibLargeRate   = decimal.RequireFromString("0.008")
	ibRateCutover = int64(500)
)

// IBCommission is the Interactive Brokers US API fixed per-share schedule,
// without exchange or ECN fees:
//   - 0.013 USD per share up to 500 shares
//   - 0.008 USD per share above that
//   - 1.30 USD minimum per order
func IBCommission(quantity int64) decimal.Decimal {
	rate := ibSmallRate
	if quantity > ibRateCutover {
		rate = ibLargeRate
	}
	return decimal.Max(ibMinimum, rate.Mul(decimal.NewFromInt(quantity)))
}

// FixedCommission charges v for every order regardless of size.
func FixedCommission(v decimal.Decimal) types.CommissionFunc {
	return func(int64) decimal.Decimal { return v }
}

// ValueSchedule charges a fraction of the trade value, clamped to [Min, Max].
// A zero Max means no cap.
//
// IBKR fixed pricing for USD-denominated Netherlands stocks is
// ValueSchedule{Rate: 0.0005, Min: 1.70, Max: 39}.
type ValueSchedule struct {
	Rate decimal.Decimal
	Min  decimal.Decimal
	Max  decimal.Decimal
}

func NetherlandsSchedule() ValueSchedule {
	return ValueSchedule{
		Rate: decimal.RequireFromString("0.0005"),
		Min:  decimal.RequireFromString("1.70"),
		Max:  decimal.RequireFromString("39"),
	}
}

func (s ValueSchedule) Fee(tradeValue decimal.Decimal) decimal.Decimal {
	tradeValue = tradeValue.Abs()
	if tradeValue.IsZero() {
		return decimal.Zero
	}
	fee := tradeValue.Mul(s.Rate)
	if fee.LessThan(s.Min) {
		fee = s.Min
	}
	if s.Max.IsPositive() && fee.GreaterThan(s.Max) {
		fee = s.Max
	}
	return fee
}
