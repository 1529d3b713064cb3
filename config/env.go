package config

import (
	"os"
	"strconv"
)

// FromEnv overlays EELOG_* environment variables onto cfg.
func FromEnv(cfg *Config) {
	if v := os.Getenv("EELOG_DEVICE"); v != "" {
		cfg.Device.Path = v
	}
	if v := os.Getenv("EELOG_ATTEMPTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Channel.Attempts = n
		}
	}
	if v := os.Getenv("EELOG_RETRY_DELAY"); v != "" {
		cfg.Channel.RetryDelay = v
	}
	if v := os.Getenv("EELOG_STEP_DELAY"); v != "" {
		cfg.Machine.StepDelay = v
	}
	if v := os.Getenv("EELOG_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("EELOG_LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
}
