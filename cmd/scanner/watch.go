package main

import (
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	watchDataDir  string
	watchSymbols  []string
	watchInterval time.Duration
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Scan the watchlist repeatedly at a fixed interval",
	Long: `Watch re-reads the CSV data directory and scans the watchlist on
every tick, printing each run's signals as JSON. When metrics are
enabled a Prometheus endpoint is served for the lifetime of the
process.`,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringVar(&watchDataDir, "data-dir", "", "directory with per-symbol CSV bar files (required)")
	watchCmd.Flags().StringSliceVar(&watchSymbols, "symbol", nil, "symbols to scan (default: config watchlist)")
	watchCmd.Flags().DurationVar(&watchInterval, "interval", 5*time.Minute, "time between scans")

	watchCmd.MarkFlagRequired("data-dir")

	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, log, sc, reg, err := setup()
	if err != nil {
		return err
	}
	defer log.Sync()

	if reg != nil {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		srv := &http.Server{Addr: cfg.Metrics.Addr, Handler: mux}
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Error("metrics server error", zap.Error(err))
			}
		}()
		defer srv.Close()
		log.Info("serving metrics", zap.String("addr", cfg.Metrics.Addr))
	}

	scanOnce := func() {
		series, err := loadSeries(cfg, log, watchDataDir, watchSymbols)
		if err != nil {
			log.Error("loading bar data", zap.Error(err))
			return
		}
		report := sc.ScanAll(cmd.Context(), series)
		if err := printJSON(report); err != nil {
			log.Error("writing report", zap.Error(err))
		}
	}

	log.Info("watching", zap.Duration("interval", watchInterval))
	scanOnce()

	ticker := time.NewTicker(watchInterval)
	defer ticker.Stop()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	for {
		select {
		case <-ticker.C:
			scanOnce()
		case <-quit:
			log.Info("shutting down")
			return nil
		case <-cmd.Context().Done():
			return nil
		}
	}
}
