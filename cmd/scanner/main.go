package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/znyinc/scanner-sub000/internal/backtest"
	"github.com/znyinc/scanner-sub000/internal/config"
	"github.com/znyinc/scanner-sub000/internal/logger"
	"github.com/znyinc/scanner-sub000/internal/metrics"
	"github.com/znyinc/scanner-sub000/internal/notifier"
	"github.com/znyinc/scanner-sub000/internal/notifier/telegram"
	"github.com/znyinc/scanner-sub000/internal/notifier/webhook"
	"github.com/znyinc/scanner-sub000/internal/scanner"
	sigstore "github.com/znyinc/scanner-sub000/internal/storage/signal"
)

var (
	cfgFile string
	debug   bool
)

var rootCmd = &cobra.Command{
	Use:   "scanner",
	Short: "EMA/ATR equity signal scanner",
	Long: `Scanner evaluates EMA crossover and ATR envelope rules over equity
bar series, producing trading signals and historical backtests.`,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "enable debug mode")
}

// setup loads config, builds the logger and the scanner. Shared by all
// run commands so they agree on defaults and validation.
func setup() (*config.Config, *zap.Logger, *scanner.Scanner, *metrics.Registry, error) {
	log := logger.Must(debug)

	var cfg *config.Config
	var err error
	if cfgFile != "" {
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return nil, nil, nil, nil, fmt.Errorf("loading config: %w", err)
		}
	} else {
		cfg = config.Defaults()
		log.Warn("no config file specified, using defaults")
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("config validation failed: %w", err)
	}

	if !debug && cfg.Log.Level != "" {
		log, err = logger.NewWithLevel(cfg.Log.Development, cfg.Log.Level)
		if err != nil {
			return nil, nil, nil, nil, fmt.Errorf("building logger: %w", err)
		}
	}

	exit, err := backtest.ExitPolicyByName(cfg.Backtest.ExitPolicy)
	if err != nil {
		return nil, nil, nil, nil, err
	}

	var reg *metrics.Registry
	opts := []scanner.Option{scanner.WithLogger(log)}
	if cfg.Metrics.Enabled {
		reg = metrics.NewRegistry()
		opts = append(opts, scanner.WithMetrics(reg))
	}
	if cfg.SignalHistory > 0 {
		opts = append(opts, scanner.WithSignalStore(sigstore.NewMemoryStore(cfg.SignalHistory)))
	}
	if len(cfg.Notifiers) > 0 {
		notifiers, err := buildNotifiers(cfg.Notifiers)
		if err != nil {
			return nil, nil, nil, nil, err
		}
		opts = append(opts, scanner.WithNotifiers(notifiers))
	}

	sc, err := scanner.New(cfg.Algorithm, backtest.Options{
		Weights: cfg.Confidence,
		Exit:    exit,
		Aggregation: backtest.AggregatorOptions{
			Compounding:   cfg.Backtest.Compounding,
			Annualization: cfg.Backtest.Annualization,
		},
	}, opts...)
	if err != nil {
		return nil, nil, nil, nil, err
	}

	return cfg, log, sc, reg, nil
}

// buildNotifiers instantiates and initializes each configured channel
func buildNotifiers(configs []notifier.Config) (*notifier.Registry, error) {
	reg := notifier.NewRegistry()
	for _, cfg := range configs {
		var n notifier.Notifier
		switch cfg.Type {
		case "webhook":
			n = &webhook.Webhook{}
		case "telegram":
			n = &telegram.Telegram{}
		default:
			return nil, fmt.Errorf("unknown notifier type %q", cfg.Type)
		}
		if err := n.Init(cfg); err != nil {
			return nil, fmt.Errorf("initializing %s notifier: %w", cfg.Type, err)
		}
		if err := reg.Register(n); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
