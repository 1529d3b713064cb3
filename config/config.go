package config

import (
	"os"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/outofforest/eelog/machine"
	"github.com/outofforest/eelog/medium"
	"github.com/outofforest/eelog/pkg/logger"
)

// DeviceConfig configures the device image.
type DeviceConfig struct {
	Path string `yaml:"path"`
}

// ChannelConfig configures the retry policy of the medium channel.
type ChannelConfig struct {
	Attempts   int    `yaml:"attempts"`
	RetryDelay string `yaml:"retry_delay"`
}

// MachineConfig configures the command state machine.
type MachineConfig struct {
	StepDelay string `yaml:"step_delay"`
}

// Config is the top-level configuration.
type Config struct {
	Device  DeviceConfig  `yaml:"device"`
	Channel ChannelConfig `yaml:"channel"`
	Machine MachineConfig `yaml:"machine"`
	Log     logger.Config `yaml:"log"`
}

// Default returns built-in defaults.
func Default() Config {
	return Config{
		Device: DeviceConfig{
			Path: "eeprom.img",
		},
		Channel: ChannelConfig{
			Attempts:   medium.DefaultAttempts,
			RetryDelay: medium.DefaultRetryDelay.String(),
		},
		Machine: MachineConfig{
			StepDelay: machine.DefaultStepDelay.String(),
		},
		Log: logger.DefaultConfig(),
	}
}

// Load reads configuration from the YAML file. Fields missing in the file keep their default values.
// If path is empty, defaults are returned.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.WithStack(err)
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return Config{}, errors.Wrapf(err, "parsing config file %s", path)
	}
	return cfg, nil
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.Device.Path == "" {
		return errors.New("device path is empty")
	}
	if c.Channel.Attempts <= 0 {
		return errors.Errorf("number of attempts must be positive, got %d", c.Channel.Attempts)
	}
	if _, err := c.RetryDelay(); err != nil {
		return err
	}
	if _, err := c.StepDelay(); err != nil {
		return err
	}
	if _, err := logger.ParseLevel(c.Log.Level); err != nil {
		return err
	}
	return nil
}

// RetryDelay returns the parsed retry delay.
func (c Config) RetryDelay() (time.Duration, error) {
	return parseDuration("channel.retry_delay", c.Channel.RetryDelay)
}

// StepDelay returns the parsed step delay.
func (c Config) StepDelay() (time.Duration, error) {
	return parseDuration("machine.step_delay", c.Machine.StepDelay)
}

func parseDuration(name, value string) (time.Duration, error) {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, errors.Wrapf(err, "invalid %s", name)
	}
	if d < 0 {
		return 0, errors.Errorf("%s must not be negative, got %s", name, value)
	}
	return d, nil
}
