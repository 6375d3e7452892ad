package engine

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/jaxquant/backtest/internal/resample"
)

// LoadCSVBars reads an OHLCV CSV file into a slice of resample.Bar,
// using column lookup by case-insensitive header and multi-format date
// parsing.
//
// Expected header (case-insensitive): date,open,high,low,close,volume[,oi]
// Date formats supported: 2006-01-02, RFC3339, "2006-01-02 15:04:05".
func LoadCSVBars(filePath string) ([]resample.Bar, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("engine.LoadCSVBars: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("engine.LoadCSVBars: read header: %w", err)
	}
	colIdx := make(map[string]int, len(header))
	for i, h := range header {
		colIdx[strings.ToLower(strings.TrimSpace(h))] = i
	}
	idx := func(name string) (int, error) {
		i, ok := colIdx[name]
		if !ok {
			return 0, fmt.Errorf("CSV missing column %q", name)
		}
		return i, nil
	}

	dateCol, err := idx("date")
	if err != nil {
		return nil, fmt.Errorf("engine.LoadCSVBars: %w", err)
	}
	openCol, err := idx("open")
	if err != nil {
		return nil, fmt.Errorf("engine.LoadCSVBars: %w", err)
	}
	highCol, err := idx("high")
	if err != nil {
		return nil, fmt.Errorf("engine.LoadCSVBars: %w", err)
	}
	lowCol, err := idx("low")
	if err != nil {
		return nil, fmt.Errorf("engine.LoadCSVBars: %w", err)
	}
	closeCol, err := idx("close")
	if err != nil {
		return nil, fmt.Errorf("engine.LoadCSVBars: %w", err)
	}
	volCol, err := idx("volume")
	if err != nil {
		return nil, fmt.Errorf("engine.LoadCSVBars: %w", err)
	}
	oiCol := -1
	if i, ok := colIdx["oi"]; ok {
		oiCol = i
	}

	dateFormats := []string{"2006-01-02", time.RFC3339, "2006-01-02 15:04:05"}
	parseDate := func(s string) (time.Time, error) {
		s = strings.TrimSpace(s)
		for _, layout := range dateFormats {
			if t, err := time.Parse(layout, s); err == nil {
				return t.UTC(), nil
			}
		}
		return time.Time{}, fmt.Errorf("unrecognised date format %q", s)
	}
	parseFloat := func(s string) (float64, error) {
		return strconv.ParseFloat(strings.TrimSpace(s), 64)
	}

	var bars []resample.Bar
	lineNo := 1
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("engine.LoadCSVBars: line %d: %w", lineNo+1, err)
		}
		lineNo++

		dt, err := parseDate(row[dateCol])
		if err != nil {
			return nil, fmt.Errorf("engine.LoadCSVBars: line %d: %w", lineNo, err)
		}
		open, err := parseFloat(row[openCol])
		if err != nil {
			return nil, fmt.Errorf("engine.LoadCSVBars: line %d: open: %w", lineNo, err)
		}
		high, err := parseFloat(row[highCol])
		if err != nil {
			return nil, fmt.Errorf("engine.LoadCSVBars: line %d: high: %w", lineNo, err)
		}
		low, err := parseFloat(row[lowCol])
		if err != nil {
			return nil, fmt.Errorf("engine.LoadCSVBars: line %d: low: %w", lineNo, err)
		}
		cls, err := parseFloat(row[closeCol])
		if err != nil {
			return nil, fmt.Errorf("engine.LoadCSVBars: line %d: close: %w", lineNo, err)
		}
		vol, err := parseFloat(row[volCol])
		if err != nil {
			return nil, fmt.Errorf("engine.LoadCSVBars: line %d: volume: %w", lineNo, err)
		}
		var oi float64
		if oiCol >= 0 {
			oi, _ = parseFloat(row[oiCol])
		}

		bars = append(bars, resample.Bar{
			DateTime: dt, Open: open, High: high, Low: low, Close: cls, Volume: vol, OI: oi,
		})
	}
	return bars, nil
}
