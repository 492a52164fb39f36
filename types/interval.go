package types

import "time"

type Interval string

const (
	OneMinute      Interval = "1"
	FiveMinutes    Interval = "5"
	FifteenMinutes Interval = "15"
	ThirtyMinutes  Interval = "30"
	Hour           Interval = "60"
	Day            Interval = "D"
	Week           Interval = "W"
	Month          Interval = "M"
)

const (
	tradingDaysPerYear = 252
	tradingHoursPerDay = 6.5
)

var IntervalToTime = map[Interval]time.Duration{
	OneMinute:      time.Minute,
	FiveMinutes:    time.Minute * 5,
	FifteenMinutes: time.Minute * 15,
	ThirtyMinutes:  time.Minute * 30,
	Hour:           time.Hour,
	Day:            time.Hour * 24,
}

var ConvertInterval = map[string]Interval{
	"1":  OneMinute,
	"5":  FiveMinutes,
	"15": FifteenMinutes,
	"30": ThirtyMinutes,
	"60": Hour,
	"D":  Day,
	"W":  Week,
	"M":  Month,
}

// PeriodsPerYear is the annualisation factor used by the Sharpe ratio for bars of
// the given interval. Intraday bars assume a 6.5 hour US equity session.
func PeriodsPerYear(interval Interval) float64 {
	switch interval {
	case Day:
		return tradingDaysPerYear
	case Week:
		return 52
	case Month:
		return 12
	}
	d, ok := IntervalToTime[interval]
	if !ok || d <= 0 {
		return tradingDaysPerYear
	}
	perSession := (tradingHoursPerDay * float64(time.Hour)) / float64(d)
	return tradingDaysPerYear * perSession
}
