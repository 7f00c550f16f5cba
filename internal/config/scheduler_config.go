package config

import "time"

// SchedulerConfig defines configuration for the polling loop
type SchedulerConfig struct {
	IntervalMs             int `json:"interval_ms,omitempty" yaml:"interval_ms,omitempty" validate:"min=1" env:"POLL_INTERVAL_MS"`
	InitialLookbackSeconds int `json:"initial_lookback_seconds,omitempty" yaml:"initial_lookback_seconds,omitempty" validate:"min=0" env:"POLL_INITIAL_LOOKBACK_SECONDS"`
	StopTimeoutSeconds     int `json:"stop_timeout_seconds,omitempty" yaml:"stop_timeout_seconds,omitempty" validate:"min=1"`
}

// NewDefaultSchedulerConfig creates default scheduler configuration
func NewDefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		IntervalMs:             DefaultPollIntervalMs,
		InitialLookbackSeconds: DefaultInitialLookbackSeconds,
		StopTimeoutSeconds:     DefaultStopTimeoutSeconds,
	}
}

// Interval returns the poll interval as a duration.
func (c SchedulerConfig) Interval() time.Duration {
	return time.Duration(c.IntervalMs) * time.Millisecond
}

// InitialLookback is how far back a source is scanned the first time it is seen.
func (c SchedulerConfig) InitialLookback() time.Duration {
	return time.Duration(c.InitialLookbackSeconds) * time.Second
}
