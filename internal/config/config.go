package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
	"github.com/znyinc/scanner-sub000/internal/backtest"
	"github.com/znyinc/scanner-sub000/internal/core"
	"github.com/znyinc/scanner-sub000/internal/notifier"
	"github.com/znyinc/scanner-sub000/internal/signal"
)

type Config struct {
	Log           LogConfig                `mapstructure:"log"`
	Algorithm     core.AlgorithmSettings   `mapstructure:"algorithm"`
	Confidence    signal.ConfidenceWeights `mapstructure:"confidence"`
	Backtest      BacktestConfig           `mapstructure:"backtest"`
	Storage       StorageConfig            `mapstructure:"storage"`
	Metrics       MetricsConfig            `mapstructure:"metrics"`
	Notifiers     []notifier.Config        `mapstructure:"notifiers"`
	Watchlist     []WatchlistItem          `mapstructure:"watchlist"`
	SignalHistory int                      `mapstructure:"signal_history"`
}

type LogConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

type BacktestConfig struct {
	ExitPolicy    string  `mapstructure:"exit_policy"`
	Compounding   bool    `mapstructure:"compounding"`
	Annualization float64 `mapstructure:"annualization"`
}

type StorageConfig struct {
	Archive ArchiveConfig `mapstructure:"archive"`
}

type ArchiveConfig struct {
	Enabled bool     `mapstructure:"enabled"`
	Type    string   `mapstructure:"type"` // "localfs" or "s3"
	Path    string   `mapstructure:"path"` // For localfs
	S3      S3Config `mapstructure:"s3"`   // For S3
}

type S3Config struct {
	Bucket    string `mapstructure:"bucket"`
	Endpoint  string `mapstructure:"endpoint"`
	Region    string `mapstructure:"region"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Prefix    string `mapstructure:"prefix"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
}

type WatchlistItem struct {
	Symbol string `mapstructure:"symbol"`
	Name   string `mapstructure:"name"`
}

// Load reads configuration from file
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	// Support environment variable overrides
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	// Expand environment variables in string values
	for _, key := range v.AllKeys() {
		val := v.GetString(key)
		if strings.HasPrefix(val, "${") && strings.HasSuffix(val, "}") {
			envKey := strings.TrimSuffix(strings.TrimPrefix(val, "${"), "}")
			v.Set(key, os.Getenv(envKey))
		}
	}

	cfg := Defaults()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	return cfg, nil
}

// Defaults returns a config with sensible defaults
func Defaults() *Config {
	return &Config{
		Log: LogConfig{
			Development: false,
			Level:       "",
		},
		Algorithm:  core.DefaultSettings(),
		Confidence: signal.DefaultConfidenceWeights(),
		Backtest: BacktestConfig{
			ExitPolicy:    backtest.PolicyFirstEvent,
			Compounding:   false,
			Annualization: 1,
		},
		Storage: StorageConfig{
			Archive: ArchiveConfig{
				Enabled: false,
				Type:    "localfs",
				Path:    "./data/archive",
			},
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Addr:    ":9100",
		},
		SignalHistory: 1000,
	}
}

// Validate checks the whole configuration before any symbol is
// processed; any violation is fatal for the run.
func (c *Config) Validate() error {
	if err := c.Algorithm.Validate(); err != nil {
		return err
	}
	if _, err := backtest.ExitPolicyByName(c.Backtest.ExitPolicy); err != nil {
		return err
	}
	if c.Backtest.Annualization < 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("backtest.annualization must be non-negative, got %v", c.Backtest.Annualization))
	}
	if c.SignalHistory < 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("signal_history must be non-negative, got %d", c.SignalHistory))
	}
	switch c.Storage.Archive.Type {
	case "localfs", "s3":
	default:
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("storage.archive.type must be localfs or s3, got %q", c.Storage.Archive.Type))
	}
	for _, n := range c.Notifiers {
		switch n.Type {
		case "webhook", "telegram":
		default:
			return core.WrapError(core.ErrConfigInvalid,
				fmt.Errorf("notifiers.type must be webhook or telegram, got %q", n.Type))
		}
	}
	return nil
}
