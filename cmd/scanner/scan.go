package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/znyinc/scanner-sub000/internal/config"
	"github.com/znyinc/scanner-sub000/internal/core"
	"github.com/znyinc/scanner-sub000/internal/loader"
	"github.com/znyinc/scanner-sub000/internal/scanner"
)

var (
	scanDataDir string
	scanSymbols []string
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Run a one-shot live scan over the watchlist",
	Long: `Scan evaluates the most recent bar of each symbol and prints any
generated signals as JSON. Bar data is read from CSV files under the
data directory: <SYMBOL>.csv for the primary series and
<SYMBOL>_<higher_timeframe>.csv for confirmation.`,
	RunE: runScan,
}

func init() {
	scanCmd.Flags().StringVar(&scanDataDir, "data-dir", "", "directory with per-symbol CSV bar files (required)")
	scanCmd.Flags().StringSliceVar(&scanSymbols, "symbol", nil, "symbols to scan (default: config watchlist)")

	scanCmd.MarkFlagRequired("data-dir")

	rootCmd.AddCommand(scanCmd)
}

func runScan(cmd *cobra.Command, args []string) error {
	cfg, log, sc, _, err := setup()
	if err != nil {
		return err
	}
	defer log.Sync()

	series, err := loadSeries(cfg, log, scanDataDir, scanSymbols)
	if err != nil {
		return err
	}

	report := sc.ScanAll(cmd.Context(), series)
	return printJSON(report)
}

// symbolList resolves the symbols for a run: an explicit --symbol list
// wins, otherwise the config watchlist.
func symbolList(cfg *config.Config, override []string) ([]string, error) {
	if len(override) > 0 {
		return override, nil
	}
	if len(cfg.Watchlist) == 0 {
		return nil, fmt.Errorf("no symbols: pass --symbol or configure a watchlist")
	}
	symbols := make([]string, len(cfg.Watchlist))
	for i, item := range cfg.Watchlist {
		symbols[i] = item.Symbol
	}
	return symbols, nil
}

// loadSeries reads each symbol's primary and higher-timeframe CSV
// files. A missing higher-timeframe file leaves confirmation failing
// closed for that symbol; a missing primary file fails the run, since
// it usually means a wrong --data-dir.
func loadSeries(cfg *config.Config, log *zap.Logger, dataDir string, override []string) (map[string]scanner.SymbolSeries, error) {
	symbols, err := symbolList(cfg, override)
	if err != nil {
		return nil, err
	}

	htf := core.Timeframe(cfg.Algorithm.HigherTimeframe)
	series := make(map[string]scanner.SymbolSeries, len(symbols))
	for _, symbol := range symbols {
		primary, err := loader.ReadBarsCSV(filepath.Join(dataDir, symbol+".csv"), symbol, core.TF5m)
		if err != nil {
			return nil, fmt.Errorf("loading %s: %w", symbol, err)
		}

		var higher []core.Bar
		htfPath := filepath.Join(dataDir, fmt.Sprintf("%s_%s.csv", symbol, htf))
		if _, statErr := os.Stat(htfPath); statErr == nil {
			higher, err = loader.ReadBarsCSV(htfPath, symbol, htf)
			if err != nil {
				return nil, fmt.Errorf("loading %s higher timeframe: %w", symbol, err)
			}
		} else {
			log.Warn("no higher-timeframe file, confirmation will fail closed",
				zap.String("symbol", symbol),
				zap.String("path", htfPath),
			)
		}

		series[symbol] = scanner.SymbolSeries{Primary: primary, Higher: higher}
	}
	return series, nil
}

func printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
