package medium

import (
	"io"
	"log/slog"
	"time"

	"github.com/pkg/errors"

	"github.com/outofforest/eelog/pkg/logger"
	"github.com/outofforest/eelog/slot"
)

const (
	// DefaultAttempts is the default number of attempts made by the channel before giving up.
	DefaultAttempts = 5

	// DefaultRetryDelay is the default delay between attempts.
	DefaultRetryDelay = 5 * time.Millisecond
)

// ErrChannelFailure is returned if the medium does not acknowledge the operation within the retry budget.
var ErrChannelFailure = errors.New("medium did not acknowledge the operation")

// Channel is the blocking read/write access to the medium addressed by offsets.
type Channel interface {
	Read(offset slot.Offset, n int) ([]byte, error)
	Write(offset slot.Offset, p []byte) error
}

// Dev is the interface required from the device.
type Dev interface {
	io.ReadWriteSeeker
	Sync() error
	Size() int64
}

// Config holds the channel configuration.
type Config struct {
	// Attempts is the number of attempts made for each operation.
	Attempts int

	// RetryDelay is the delay applied after each failed attempt.
	RetryDelay time.Duration

	// Logger is used to report failed attempts.
	Logger *slog.Logger
}

// Option is a functional option for configuring the channel.
type Option func(*Config)

// WithAttempts sets the number of attempts made for each operation.
func WithAttempts(attempts int) Option {
	return func(c *Config) {
		if attempts > 0 {
			c.Attempts = attempts
		}
	}
}

// WithRetryDelay sets the delay between attempts.
func WithRetryDelay(delay time.Duration) Option {
	return func(c *Config) {
		if delay >= 0 {
			c.RetryDelay = delay
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Config) {
		if logger != nil {
			c.Logger = logger
		}
	}
}

var _ Channel = &DevChannel{}

// DevChannel implements the channel on top of the device. Each operation is retried until it succeeds or
// the attempts are exhausted.
type DevChannel struct {
	dev    Dev
	config Config
	sleep  func(time.Duration)
}

// New returns new channel operating on dev.
func New(dev Dev, opts ...Option) (*DevChannel, error) {
	if size := dev.Size(); size < slot.Capacity {
		return nil, errors.Errorf("device is too small, minimum size is: %d bytes, provided: %d", slot.Capacity, size)
	}

	config := Config{
		Attempts:   DefaultAttempts,
		RetryDelay: DefaultRetryDelay,
		Logger:     logger.Discard(),
	}
	for _, opt := range opts {
		opt(&config)
	}

	return &DevChannel{
		dev:    dev,
		config: config,
		sleep:  time.Sleep,
	}, nil
}

// Read reads n bytes starting at offset.
func (c *DevChannel) Read(offset slot.Offset, n int) ([]byte, error) {
	if err := checkRange(offset, n); err != nil {
		return nil, err
	}

	p := make([]byte, n)
	err := c.retry("read", offset, n, func() error {
		if _, err := c.dev.Seek(int64(offset), io.SeekStart); err != nil {
			return errors.WithStack(err)
		}
		read, err := io.ReadFull(c.dev, p)
		if err != nil {
			return errors.Wrapf(err, "short read: %d of %d bytes", read, n)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Write writes p starting at offset.
func (c *DevChannel) Write(offset slot.Offset, p []byte) error {
	if err := checkRange(offset, len(p)); err != nil {
		return err
	}

	return c.retry("write", offset, len(p), func() error {
		if _, err := c.dev.Seek(int64(offset), io.SeekStart); err != nil {
			return errors.WithStack(err)
		}
		written, err := c.dev.Write(p)
		if err != nil {
			return errors.WithStack(err)
		}
		if written != len(p) {
			return errors.Errorf("short write: %d of %d bytes", written, len(p))
		}
		return c.dev.Sync()
	})
}

func (c *DevChannel) retry(op string, offset slot.Offset, n int, fn func() error) error {
	var err error
	for attempt := 1; attempt <= c.config.Attempts; attempt++ {
		if err = fn(); err == nil {
			return nil
		}

		c.config.Logger.Debug("medium operation failed",
			"op", op,
			"offset", offset,
			"bytes", n,
			"attempt", attempt,
			"error", err,
		)
		if attempt < c.config.Attempts {
			c.sleep(c.config.RetryDelay)
		}
	}

	c.config.Logger.Warn("medium operation abandoned",
		"op", op,
		"offset", offset,
		"bytes", n,
		"attempts", c.config.Attempts,
		"error", err,
	)
	return errors.Wrapf(ErrChannelFailure, "%s of %d bytes at 0x%04X after %d attempts: %s",
		op, n, offset, c.config.Attempts, err)
}

func checkRange(offset slot.Offset, n int) error {
	if n <= 0 || int64(offset)+int64(n) > slot.Capacity {
		return errors.Errorf("invalid range, offset: %d, size: %d, capacity: %d", offset, n, slot.Capacity)
	}
	return nil
}
