package domain

import (
	"fmt"
	"time"

	"dario.cat/mergo"
)

const DefaultRetryWindow = 600_000 * time.Millisecond

func DefaultConfig() *Config {
	return &Config{
		Driver:  DefaultDriverConfig(),
		Sweeper: DefaultSweeperConfig(),
		Storage: StorageConfig{
			DataDir: "./data",
		},
		API: APIConfig{
			Addr:            ":8080",
			ShutdownTimeout: 10 * time.Second,
		},
		Log: LogConfig{
			Level:  "info",
			Format: LogFormatText,
		},
	}
}

func DefaultDriverConfig() DriverConfig {
	return DriverConfig{
		RetryWindow: DefaultRetryWindow,
		RetryAnchor: RetryAnchorScheduledTime,
	}
}

func DefaultSweeperConfig() SweeperConfig {
	return SweeperConfig{
		Interval:    30 * time.Second,
		Concurrency: 4,
	}
}

// ApplyDefaults fills every zero-valued field from DefaultConfig. Boolean
// fields default to false so they are never overridden.
func (c *Config) ApplyDefaults() error {
	if err := mergo.Merge(c, DefaultConfig()); err != nil {
		return NewConfigError("defaults", err)
	}
	return nil
}

func (c *Config) Validate() error {
	if c.Driver.RetryWindow <= 0 {
		return NewConfigError("driver.retry_window", ErrInvalidInput)
	}
	switch c.Driver.RetryAnchor {
	case RetryAnchorScheduledTime, RetryAnchorLastAttempt:
	default:
		return NewConfigError("driver.retry_anchor", fmt.Errorf("unknown anchor %q", c.Driver.RetryAnchor))
	}

	if !c.Sweeper.Disabled {
		if c.Sweeper.Interval <= 0 {
			return NewConfigError("sweeper.interval", ErrInvalidInput)
		}
		if c.Sweeper.Concurrency <= 0 {
			return NewConfigError("sweeper.concurrency", ErrInvalidInput)
		}
	}

	if !c.Storage.InMemory && c.Storage.DataDir == "" {
		return NewConfigError("storage.data_dir", ErrInvalidInput)
	}

	switch c.Log.Format {
	case LogFormatText, LogFormatJSON:
	default:
		return NewConfigError("log.format", fmt.Errorf("unknown format %q", c.Log.Format))
	}

	return nil
}

type ConfigError struct {
	Field string
	Err   error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config field %s: %v", e.Field, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

func NewConfigError(field string, err error) *ConfigError {
	return &ConfigError{
		Field: field,
		Err:   err,
	}
}
