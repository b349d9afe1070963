package scheduler

import (
	"os"
	"strconv"
	"time"
)

// Config controls sweep cadence and batch sizes.
type Config struct {
	RunInterval    time.Duration
	SweepBatchSize int
	DrainBatchSize int
	JobTimeout     time.Duration
}

func DefaultConfig() Config {
	return Config{
		RunInterval:    time.Minute,
		SweepBatchSize: 200,
		DrainBatchSize: 50,
		JobTimeout:     30 * time.Second,
	}
}

func ProvideConfig() Config {
	cfg := Config{}
	if v, err := time.ParseDuration(os.Getenv("SCHEDULER_RUN_INTERVAL")); err == nil {
		cfg.RunInterval = v
	}
	if v, err := strconv.Atoi(os.Getenv("SCHEDULER_SWEEP_BATCH_SIZE")); err == nil {
		cfg.SweepBatchSize = v
	}
	if v, err := strconv.Atoi(os.Getenv("SCHEDULER_DRAIN_BATCH_SIZE")); err == nil {
		cfg.DrainBatchSize = v
	}
	if v, err := time.ParseDuration(os.Getenv("SCHEDULER_JOB_TIMEOUT")); err == nil {
		cfg.JobTimeout = v
	}
	return cfg.withDefaults()
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if c.RunInterval <= 0 {
		c.RunInterval = defaults.RunInterval
	}
	if c.SweepBatchSize <= 0 {
		c.SweepBatchSize = defaults.SweepBatchSize
	}
	if c.DrainBatchSize <= 0 {
		c.DrainBatchSize = defaults.DrainBatchSize
	}
	if c.JobTimeout <= 0 {
		c.JobTimeout = defaults.JobTimeout
	}
	return c
}
