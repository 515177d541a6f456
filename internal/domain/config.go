package domain

import (
	"time"
)

type RetryAnchor string

const (
	// RetryAnchorScheduledTime measures the retry window from the task's
	// scheduled time only. Once the window has passed every poll retries.
	RetryAnchorScheduledTime RetryAnchor = "scheduled_time"
	// RetryAnchorLastAttempt measures the window from the most recent failed
	// start attempt, so retries stay one window apart.
	RetryAnchorLastAttempt RetryAnchor = "last_attempt"
)

type LogFormat string

const (
	LogFormatText LogFormat = "text"
	LogFormatJSON LogFormat = "json"
)

type Config struct {
	Driver  DriverConfig  `json:"driver" mapstructure:"driver"`
	Sweeper SweeperConfig `json:"sweeper" mapstructure:"sweeper"`
	Storage StorageConfig `json:"storage" mapstructure:"storage"`
	API     APIConfig     `json:"api" mapstructure:"api"`
	Log     LogConfig     `json:"log" mapstructure:"log"`
}

type DriverConfig struct {
	RetryWindow time.Duration `json:"retry_window" mapstructure:"retry_window"`
	RetryAnchor RetryAnchor   `json:"retry_anchor" mapstructure:"retry_anchor"`
}

type SweeperConfig struct {
	Disabled    bool          `json:"disabled" mapstructure:"disabled"`
	Interval    time.Duration `json:"interval" mapstructure:"interval"`
	Concurrency int           `json:"concurrency" mapstructure:"concurrency"`
}

type StorageConfig struct {
	DataDir  string `json:"data_dir" mapstructure:"data_dir"`
	InMemory bool   `json:"in_memory" mapstructure:"in_memory"`
}

type APIConfig struct {
	Addr            string        `json:"addr" mapstructure:"addr"`
	ShutdownTimeout time.Duration `json:"shutdown_timeout" mapstructure:"shutdown_timeout"`
}

type LogConfig struct {
	Level  string    `json:"level" mapstructure:"level"`
	Format LogFormat `json:"format" mapstructure:"format"`
}
