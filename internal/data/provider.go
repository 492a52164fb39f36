package data

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"eventbacktester/internal/events"
	"eventbacktester/types"

	"github.com/shopspring/decimal"
)

// Global error declarations.
var (
	ErrSymbolNotFound  = errors.New("symbol not available in the data set")
	ErrNoBars          = errors.New("no bars available yet")
	ErrNoSymbols       = errors.New("symbol universe is empty")
	ErrEmptySeries     = errors.New("price series is empty")
	ErrMissingDataFile = errors.New("missing data file")
)

// HistoricProvider replays pre-loaded bar series one master timestamp at a time.
//
// The master index is the sorted union of every symbol's timestamps. Each series
// is reindexed against it with forward fill, so a symbol that has no observation
// at a master timestamp repeats its last known bar. Before a symbol's first
// observation there is nothing to repeat and the symbol is simply skipped.
type HistoricProvider struct {
	sink    events.Sink
	symbols []string
	index   []time.Time
	aligned map[string][]*types.Bar
	latest  map[string][]types.Bar
	cursor  int
}

// NewHistoricProvider aligns series onto a common index. Every symbol must have a
// non-empty series.
func NewHistoricProvider(sink events.Sink, symbols []string, series map[string][]types.Bar) (*HistoricProvider, error) {
	if len(symbols) == 0 {
		return nil, ErrNoSymbols
	}

	sorted := make(map[string][]types.Bar, len(symbols))
	for _, sym := range symbols {
		bars, ok := series[sym]
		if !ok {
			return nil, fmt.Errorf("%s: %w", sym, ErrSymbolNotFound)
		}
		if len(bars) == 0 {
			return nil, fmt.Errorf("%s: %w", sym, ErrEmptySeries)
		}
		sorted[sym] = sortAndDedupe(sym, bars)
	}

	index := masterIndex(sorted)
	aligned := make(map[string][]*types.Bar, len(symbols))
	latest := make(map[string][]types.Bar, len(symbols))
	for _, sym := range symbols {
		aligned[sym] = forwardFill(sorted[sym], index)
		latest[sym] = make([]types.Bar, 0, len(index))
	}

	return &HistoricProvider{
		sink:    sink,
		symbols: append([]string(nil), symbols...),
		index:   index,
		aligned: aligned,
		latest:  latest,
	}, nil
}

// Symbols returns the tracked universe in configuration order.
func (p *HistoricProvider) Symbols() []string {
	return append([]string(nil), p.symbols...)
}

// Len is the length of the master index.
func (p *HistoricProvider) Len() int {
	return len(p.index)
}

// Continue reports whether another UpdateBars call will produce bars.
func (p *HistoricProvider) Continue() bool {
	return p.cursor < len(p.index)
}

// CurrentTime is the master timestamp of the last UpdateBars call, or the zero
// time before the first one.
func (p *HistoricProvider) CurrentTime() time.Time {
	if p.cursor == 0 {
		return time.Time{}
	}
	return p.index[p.cursor-1]
}

// UpdateBars exposes the next master timestamp for every symbol and pushes one
// MarketEvent. It does nothing once the index is exhausted.
func (p *HistoricProvider) UpdateBars() {
	if !p.Continue() {
		return
	}
	for _, sym := range p.symbols {
		if bar := p.aligned[sym][p.cursor]; bar != nil {
			p.latest[sym] = append(p.latest[sym], *bar)
		}
	}
	p.cursor++
	p.sink.Push(types.MarketEvent{})
}

func (p *HistoricProvider) LatestBar(symbol string) (types.Bar, error) {
	bars, err := p.bars(symbol)
	if err != nil {
		return types.Bar{}, err
	}
	if len(bars) == 0 {
		return types.Bar{}, fmt.Errorf("%s: %w", symbol, ErrNoBars)
	}
	return bars[len(bars)-1], nil
}

// LatestBars returns up to n bars, oldest first. Fewer are returned when the
// history is shorter than n.
func (p *HistoricProvider) LatestBars(symbol string, n int) ([]types.Bar, error) {
	bars, err := p.bars(symbol)
	if err != nil {
		return nil, err
	}
	if n <= 0 {
		return []types.Bar{}, nil
	}
	if n > len(bars) {
		n = len(bars)
	}
	out := make([]types.Bar, n)
	copy(out, bars[len(bars)-n:])
	return out, nil
}

func (p *HistoricProvider) LatestBarDatetime(symbol string) (time.Time, error) {
	bar, err := p.LatestBar(symbol)
	if err != nil {
		return time.Time{}, err
	}
	return bar.Timestamp, nil
}

func (p *HistoricProvider) LatestBarValue(symbol string, field types.BarField) (decimal.Decimal, error) {
	bar, err := p.LatestBar(symbol)
	if err != nil {
		return decimal.Zero, err
	}
	return bar.Value(field)
}

func (p *HistoricProvider) LatestBarValues(symbol string, field types.BarField, n int) ([]decimal.Decimal, error) {
	bars, err := p.LatestBars(symbol, n)
	if err != nil {
		return nil, err
	}
	values := make([]decimal.Decimal, 0, len(bars))
	for _, bar := range bars {
		v, err := bar.Value(field)
		if err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	return values, nil
}

func (p *HistoricProvider) bars(symbol string) ([]types.Bar, error) {
	bars, ok := p.latest[symbol]
	if !ok {
		return nil, fmt.Errorf("%s: %w", symbol, ErrSymbolNotFound)
	}
	return bars, nil
}

// sortAndDedupe orders bars by time. For duplicate timestamps the later row wins.
func sortAndDedupe(symbol string, bars []types.Bar) []types.Bar {
	cp := append([]types.Bar(nil), bars...)
	sort.SliceStable(cp, func(i, j int) bool { return cp[i].Timestamp.Before(cp[j].Timestamp) })

	out := cp[:0]
	for _, bar := range cp {
		bar.Symbol = symbol
		if n := len(out); n > 0 && out[n-1].Timestamp.Equal(bar.Timestamp) {
			out[n-1] = bar
			continue
		}
		out = append(out, bar)
	}
	return out
}

func masterIndex(series map[string][]types.Bar) []time.Time {
	seen := make(map[int64]time.Time)
	for _, bars := range series {
		for _, bar := range bars {
			key := bar.Timestamp.UnixNano()
			if _, ok := seen[key]; !ok {
				seen[key] = bar.Timestamp
			}
		}
	}
	index := make([]time.Time, 0, len(seen))
	for _, ts := range seen {
		index = append(index, ts)
	}
	sort.Slice(index, func(i, j int) bool { return index[i].Before(index[j]) })
	return index
}

// forwardFill pads bars (sorted, deduplicated) onto index. Padded bars carry the
// master timestamp so every symbol agrees on the current time.
func forwardFill(bars []types.Bar, index []time.Time) []*types.Bar {
	out := make([]*types.Bar, len(index))
	var last *types.Bar
	j := 0
	for i, ts := range index {
		for j < len(bars) && !bars[j].Timestamp.After(ts) {
			b := bars[j]
			last = &b
			j++
		}
		if last == nil {
			continue
		}
		padded := *last
		padded.Timestamp = ts
		out[i] = &padded
	}
	return out
}
