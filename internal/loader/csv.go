// Package loader reads bar series from CSV files and writes trade lists
// back out. File formats belong to the CLI, not the computational core,
// which only ever sees ordered Bar slices.
package loader

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/znyinc/scanner-sub000/internal/backtest"
	"github.com/znyinc/scanner-sub000/internal/core"
)

// ReadBarsCSV loads one symbol's bar series from a CSV file with columns
// timestamp,open,high,low,close,volume. Timestamps are RFC3339 or unix
// seconds; a header row is skipped when present. Bars are returned in
// file order; ordering is validated downstream.
func ReadBarsCSV(path, symbol string, tf core.Timeframe) ([]core.Bar, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = 6

	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	bars := make([]core.Bar, 0, len(records))
	for i, rec := range records {
		if i == 0 && isHeader(rec) {
			continue
		}

		ts, err := parseTimestamp(rec[0])
		if err != nil {
			return nil, fmt.Errorf("%s line %d: %w", path, i+1, err)
		}

		var prices [4]float64
		for j := 1; j <= 4; j++ {
			prices[j-1], err = strconv.ParseFloat(rec[j], 64)
			if err != nil {
				return nil, fmt.Errorf("%s line %d col %d: %w", path, i+1, j+1, err)
			}
		}
		volume, err := strconv.ParseInt(rec[5], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%s line %d volume: %w", path, i+1, err)
		}

		bars = append(bars, core.Bar{
			Symbol:    symbol,
			Timeframe: tf,
			Timestamp: ts,
			Open:      prices[0],
			High:      prices[1],
			Low:       prices[2],
			Close:     prices[3],
			Volume:    volume,
		})
	}
	return bars, nil
}

// WriteTradesCSV writes closed trades to a CSV file
func WriteTradesCSV(trades []backtest.Trade, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	if err := w.Write([]string{
		"symbol", "trade_type", "entry_date", "entry_price",
		"exit_date", "exit_price", "pnl", "pnl_percent", "exit_reason",
	}); err != nil {
		return err
	}
	for _, t := range trades {
		if err := w.Write([]string{
			t.Symbol,
			string(t.Type),
			t.EntryDate.Format(time.RFC3339),
			formatFloat(t.EntryPrice),
			t.ExitDate.Format(time.RFC3339),
			formatFloat(t.ExitPrice),
			formatFloat(t.PnL),
			formatFloat(t.PnLPercent),
			string(t.ExitReason),
		}); err != nil {
			return err
		}
	}
	return nil
}

func parseTimestamp(s string) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339, s); err == nil {
		return ts, nil
	}
	if unix, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(unix, 0).UTC(), nil
	}
	return time.Time{}, fmt.Errorf("unparseable timestamp %q", s)
}

func isHeader(rec []string) bool {
	_, err := strconv.ParseFloat(rec[1], 64)
	return err != nil || strings.EqualFold(rec[0], "timestamp")
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
