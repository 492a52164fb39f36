package data

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"eventbacktester/types"

	"github.com/shopspring/decimal"
)

var datetimeLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	time.RFC3339,
}

var requiredColumns = []string{"datetime", "open", "high", "low", "close", "volume", "adj_close"}

// CSVLoader reads one <Dir>/<SYMBOL>.csv file per symbol with the header
// datetime,open,high,low,close,volume,adj_close.
type CSVLoader struct {
	Dir string
}

func NewCSVLoader(dir string) CSVLoader {
	return CSVLoader{Dir: dir}
}

func (l CSVLoader) Load(ctx context.Context, symbol string) ([]types.Bar, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path := filepath.Join(l.Dir, symbol+".csv")
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", path, ErrMissingDataFile)
		}
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	return readBarsCSV(f, symbol, path)
}

// readBarsCSV parses bars from r. source is only used in error messages.
func readBarsCSV(r io.Reader, symbol, source string) ([]types.Bar, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("%s: read header: %w", source, err)
	}
	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[normalizeColumn(name)] = i
	}
	for _, name := range requiredColumns {
		if _, ok := cols[name]; !ok {
			return nil, fmt.Errorf("%s: missing column %q", source, name)
		}
	}

	var bars []types.Bar
	line := 1
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("%s:%d: %w", source, line, err)
		}
		bar, err := parseBarRecord(record, cols)
		if err != nil {
			return nil, fmt.Errorf("%s:%d: %w", source, line, err)
		}
		bar.Symbol = symbol
		bars = append(bars, bar)
	}
	return bars, nil
}

func parseBarRecord(record []string, cols map[string]int) (types.Bar, error) {
	ts, err := parseDatetime(record[cols["datetime"]])
	if err != nil {
		return types.Bar{}, err
	}
	var values [6]decimal.Decimal
	for i, name := range requiredColumns[1:] {
		v, err := decimal.NewFromString(strings.TrimSpace(record[cols[name]]))
		if err != nil {
			return types.Bar{}, fmt.Errorf("column %s: %w", name, err)
		}
		values[i] = v
	}
	return types.Bar{
		Timestamp: ts,
		Open:      values[0],
		High:      values[1],
		Low:       values[2],
		Close:     values[3],
		Volume:    values[4],
		AdjClose:  values[5],
	}, nil
}

func parseDatetime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range datetimeLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable datetime %q", s)
}

// normalizeColumn maps header spellings like "Adj Close" onto adj_close.
func normalizeColumn(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	name = strings.ReplaceAll(name, " ", "_")
	switch name {
	case "date", "timestamp", "time":
		return "datetime"
	case "adjclose", "adjusted_close":
		return "adj_close"
	}
	return name
}
