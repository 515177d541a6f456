package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/eleven-am/subflow/internal/domain"
	"github.com/spf13/viper"
)

const EnvPrefix = "SUBFLOW"

// Load reads the configuration from path (optional) and SUBFLOW_* environment
// variables, e.g. SUBFLOW_DRIVER_RETRY_WINDOW=5m. Unset fields take defaults.
func Load(path string) (*domain.Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v, domain.DefaultConfig())

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, domain.NewConfigError("file", fmt.Errorf("reading %s: %w", path, err))
		}
	} else {
		v.SetConfigName("subflow")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, domain.NewConfigError("file", err)
			}
		}
	}

	var cfg domain.Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, domain.NewConfigError("decode", err)
	}
	if err := cfg.ApplyDefaults(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// setDefaults registers every key so AutomaticEnv overrides reach Unmarshal.
func setDefaults(v *viper.Viper, cfg *domain.Config) {
	v.SetDefault("driver.retry_window", cfg.Driver.RetryWindow)
	v.SetDefault("driver.retry_anchor", string(cfg.Driver.RetryAnchor))
	v.SetDefault("sweeper.disabled", cfg.Sweeper.Disabled)
	v.SetDefault("sweeper.interval", cfg.Sweeper.Interval)
	v.SetDefault("sweeper.concurrency", cfg.Sweeper.Concurrency)
	v.SetDefault("storage.data_dir", cfg.Storage.DataDir)
	v.SetDefault("storage.in_memory", cfg.Storage.InMemory)
	v.SetDefault("api.addr", cfg.API.Addr)
	v.SetDefault("api.shutdown_timeout", cfg.API.ShutdownTimeout)
	v.SetDefault("log.level", cfg.Log.Level)
	v.SetDefault("log.format", string(cfg.Log.Format))
}

// NewLogger builds the process logger described by cfg.
func NewLogger(cfg domain.LogConfig, w io.Writer) (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		return nil, domain.NewConfigError("log.level", err)
	}

	opts := &slog.HandlerOptions{Level: level}
	switch cfg.Format {
	case domain.LogFormatJSON:
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	case domain.LogFormatText, "":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	default:
		return nil, domain.NewConfigError("log.format", fmt.Errorf("unknown format %q", cfg.Format))
	}
}
