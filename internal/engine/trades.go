package engine

import (
	"math"
	"sort"
	"sync"
	"time"

	"eventbacktester/types"

	"github.com/shopspring/decimal"
)

// TradeReport summarises round trips rather than the equity curve. A round trip
// is an opening fill paired with the next fill in the same symbol.
type TradeReport struct {
	StartDate   time.Time
	TotalPeriod time.Duration
	TotalTrades int

	NetProfit            decimal.Decimal
	NetAvgProfitPerTrade decimal.Decimal
	CAGR                 decimal.Decimal

	AvgWin  decimal.Decimal
	AvgLoss decimal.Decimal

	MaxConsecutiveLosses int

	TotalFees decimal.Decimal
}

type trade struct {
	open  *types.FillEvent
	close *types.FillEvent
}

func (t trade) closed() bool {
	return t.open != nil && t.close != nil
}

func (t trade) legs() []*types.FillEvent {
	return []*types.FillEvent{t.open, t.close}
}

// grossPnL is sell proceeds minus buy cost, before fees.
func (t trade) grossPnL() decimal.Decimal {
	pnl := decimal.Zero
	for _, leg := range t.legs() {
		if leg == nil {
			continue
		}
		switch leg.Side {
		case types.SideTypeBuy:
			pnl = pnl.Sub(leg.FillCost)
		case types.SideTypeSell:
			pnl = pnl.Add(leg.FillCost)
		}
	}
	return pnl
}

func (t trade) fees() decimal.Decimal {
	fees := decimal.Zero
	for _, leg := range t.legs() {
		if leg != nil {
			fees = fees.Add(leg.Commission)
		}
	}
	return fees
}

func (t trade) netPnL() decimal.Decimal {
	return t.grossPnL().Sub(t.fees())
}

func (t trade) closeTime() time.Time {
	if t.close != nil {
		return t.close.Timestamp
	}
	return t.open.Timestamp
}

func generateTradeReport(curve []types.EquityPoint, fills []types.FillEvent) *TradeReport {
	trades := fillsToTrades(fills)

	report := &TradeReport{TotalTrades: len(trades)}
	if len(curve) > 0 {
		report.StartDate = curve[0].Timestamp
		report.TotalPeriod = curve[len(curve)-1].Timestamp.Sub(curve[0].Timestamp).Truncate(24 * time.Hour)
	}

	var wg sync.WaitGroup
	wg.Add(5)
	go func() {
		report.NetProfit, report.NetAvgProfitPerTrade = calcNetProfit(trades, &wg)
	}()
	go func() {
		report.AvgWin, report.AvgLoss = calcAvgWinLossPerTrade(trades, &wg)
	}()
	go func() {
		report.CAGR = calcCAGR(curve, &wg)
	}()
	go func() {
		report.MaxConsecutiveLosses = calcMaxConsecutiveLosses(trades, &wg)
	}()
	go func() {
		report.TotalFees = calcTotalFees(fills, &wg)
	}()
	wg.Wait()

	return report
}

// calcNetProfit realizes PnL for closed trades only, but every fee counts,
// including those of trades still open.
func calcNetProfit(trades []trade, wg *sync.WaitGroup) (decimal.Decimal, decimal.Decimal) {
	defer wg.Done()

	gross := decimal.Zero
	fees := decimal.Zero
	realized := 0
	for _, tr := range trades {
		fees = fees.Add(tr.fees())
		if tr.closed() {
			gross = gross.Add(tr.grossPnL())
			realized++
		}
	}

	net := gross.Sub(fees)
	if realized == 0 {
		return net, decimal.Zero
	}
	return net, net.Div(decimal.NewFromInt(int64(realized)))
}

func calcAvgWinLossPerTrade(trades []trade, wg *sync.WaitGroup) (decimal.Decimal, decimal.Decimal) {
	defer wg.Done()

	sumWins, sumLosses := decimal.Zero, decimal.Zero
	wins, losses := 0, 0
	for _, tr := range trades {
		if !tr.closed() {
			continue
		}
		net := tr.netPnL()
		switch {
		case net.IsPositive():
			sumWins = sumWins.Add(net)
			wins++
		case net.IsNegative():
			sumLosses = sumLosses.Add(net.Abs())
			losses++
		}
	}

	avgWin, avgLoss := decimal.Zero, decimal.Zero
	if wins > 0 {
		avgWin = sumWins.Div(decimal.NewFromInt(int64(wins)))
	}
	if losses > 0 {
		avgLoss = sumLosses.Div(decimal.NewFromInt(int64(losses)))
	}
	return avgWin, avgLoss
}

// calcCAGR uses 365.25 day years.
func calcCAGR(curve []types.EquityPoint, wg *sync.WaitGroup) decimal.Decimal {
	defer wg.Done()
	if len(curve) < 2 {
		return decimal.Zero
	}
	first, last := curve[0], curve[len(curve)-1]
	if !first.Total.IsPositive() || !last.Total.IsPositive() {
		return decimal.Zero
	}
	years := last.Timestamp.Sub(first.Timestamp).Hours() / (24.0 * 365.25)
	if years <= 0 {
		return decimal.Zero
	}
	ratio := last.Total.Div(first.Total).InexactFloat64()
	return decimal.NewFromFloat(math.Pow(ratio, 1.0/years) - 1.0)
}

func calcMaxConsecutiveLosses(trades []trade, wg *sync.WaitGroup) int {
	defer wg.Done()

	closed := make([]trade, 0, len(trades))
	for _, tr := range trades {
		if tr.closed() {
			closed = append(closed, tr)
		}
	}
	sort.SliceStable(closed, func(i, j int) bool {
		return closed[i].closeTime().Before(closed[j].closeTime())
	})

	maxStreak, streak := 0, 0
	for _, tr := range closed {
		if tr.netPnL().IsNegative() {
			streak++
			maxStreak = max(maxStreak, streak)
		} else {
			streak = 0
		}
	}
	return maxStreak
}

func calcTotalFees(fills []types.FillEvent, wg *sync.WaitGroup) decimal.Decimal {
	defer wg.Done()
	total := decimal.Zero
	for _, f := range fills {
		total = total.Add(f.Commission)
	}
	return total
}

// fillsToTrades pairs fills per symbol in chronological order: [0,1], [2,3], ...
// A trailing unpaired fill is an open trade.
func fillsToTrades(fills []types.FillEvent) []trade {
	bySymbol := make(map[string][]types.FillEvent)
	var symbols []string
	for _, f := range fills {
		if _, ok := bySymbol[f.Symbol]; !ok {
			symbols = append(symbols, f.Symbol)
		}
		bySymbol[f.Symbol] = append(bySymbol[f.Symbol], f)
	}

	var trades []trade
	for _, sym := range symbols {
		legs := bySymbol[sym]
		sort.SliceStable(legs, func(i, j int) bool {
			return legs[i].Timestamp.Before(legs[j].Timestamp)
		})
		for i := 0; i < len(legs); i += 2 {
			t := trade{open: &legs[i]}
			if i+1 < len(legs) {
				t.close = &legs[i+1]
			}
			trades = append(trades, t)
		}
	}

	sort.SliceStable(trades, func(i, j int) bool {
		return trades[i].open.Timestamp.Before(trades[j].open.Timestamp)
	})
	return trades
}
