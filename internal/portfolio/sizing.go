package portfolio

import (
	"math"

	"eventbacktester/types"
)

const defaultOrderQuantity = 100

// Sizer decides how many units an opening order should be for. It is only asked
// when the portfolio is flat in the signal's symbol; exits always close the full
// position.
type Sizer interface {
	Size(signal types.SignalEvent, position int64) int64
}

// FixedSizer ignores the signal and always returns Quantity.
type FixedSizer struct {
	Quantity int64
}

func (s FixedSizer) Size(_ types.SignalEvent, _ int64) int64 {
	return s.Quantity
}

// StrengthSizer scales Base by the signal strength, rounding down.
type StrengthSizer struct {
	Base int64
}

func (s StrengthSizer) Size(signal types.SignalEvent, _ int64) int64 {
	if signal.Strength <= 0 || math.IsNaN(signal.Strength) {
		return 0
	}
	return int64(math.Floor(float64(s.Base) * signal.Strength))
}
