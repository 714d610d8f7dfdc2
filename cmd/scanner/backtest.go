package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/znyinc/scanner-sub000/internal/backtest"
	"github.com/znyinc/scanner-sub000/internal/config"
	"github.com/znyinc/scanner-sub000/internal/loader"
	"github.com/znyinc/scanner-sub000/internal/scanner"
	"github.com/znyinc/scanner-sub000/internal/storage/archive"
)

var (
	backtestDataDir string
	backtestSymbols []string
	backtestTrades  string
)

var backtestCmd = &cobra.Command{
	Use:   "backtest",
	Short: "Replay historical bars and report performance",
	Long: `Backtest replays each symbol's full bar history through the signal
rules and exit policy, printing per-symbol trades and aggregate
performance metrics as JSON. With archiving enabled the report is also
persisted under its run ID.`,
	RunE: runBacktestCmd,
}

func init() {
	backtestCmd.Flags().StringVar(&backtestDataDir, "data-dir", "", "directory with per-symbol CSV bar files (required)")
	backtestCmd.Flags().StringSliceVar(&backtestSymbols, "symbol", nil, "symbols to backtest (default: config watchlist)")
	backtestCmd.Flags().StringVar(&backtestTrades, "trades-out", "", "write the trade log to this CSV file")

	backtestCmd.MarkFlagRequired("data-dir")

	rootCmd.AddCommand(backtestCmd)
}

func runBacktestCmd(cmd *cobra.Command, args []string) error {
	cfg, log, sc, _, err := setup()
	if err != nil {
		return err
	}
	defer log.Sync()

	series, err := loadSeries(cfg, log, backtestDataDir, backtestSymbols)
	if err != nil {
		return err
	}

	report := sc.BacktestAll(cmd.Context(), series)

	if backtestTrades != "" {
		var all []backtest.Trade
		for _, result := range report.Results {
			all = append(all, result.Trades...)
		}
		if err := loader.WriteTradesCSV(all, backtestTrades); err != nil {
			return fmt.Errorf("writing trades: %w", err)
		}
		log.Info("trade log written",
			zap.String("path", backtestTrades),
			zap.Int("trades", len(all)),
		)
	}

	if cfg.Storage.Archive.Enabled {
		if err := archiveReport(cmd, cfg, log, report); err != nil {
			return err
		}
	}

	return printJSON(report)
}

// archiveReport persists the run report to the configured backend
func archiveReport(cmd *cobra.Command, cfg *config.Config, log *zap.Logger, report *scanner.BacktestReport) error {
	var backend archive.Backend
	var err error
	switch cfg.Storage.Archive.Type {
	case "s3":
		backend, err = archive.NewS3(archive.S3Config{
			Bucket:    cfg.Storage.Archive.S3.Bucket,
			Endpoint:  cfg.Storage.Archive.S3.Endpoint,
			Region:    cfg.Storage.Archive.S3.Region,
			AccessKey: cfg.Storage.Archive.S3.AccessKey,
			SecretKey: cfg.Storage.Archive.S3.SecretKey,
			Prefix:    cfg.Storage.Archive.S3.Prefix,
		})
	default:
		backend, err = archive.NewLocalFS(cfg.Storage.Archive.Path)
	}
	if err != nil {
		return fmt.Errorf("opening archive: %w", err)
	}

	if err := archive.New(backend).SaveReport(cmd.Context(), "backtest", report.RunID, report); err != nil {
		return fmt.Errorf("archiving report: %w", err)
	}
	log.Info("report archived",
		zap.String("run_id", report.RunID),
		zap.String("backend", cfg.Storage.Archive.Type),
	)
	return nil
}
