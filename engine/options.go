package engine

import (
	"time"

	"github.com/moffa90/go-nvdec/memmgr"
	"github.com/moffa90/go-nvdec/poll"
	"github.com/moffa90/go-nvdec/regs"
	"github.com/moffa90/go-nvdec/ucode"
)

// Config holds the engine configuration.
type Config struct {
	// ProgressCallback is called during boot to report progress (optional)
	ProgressCallback ProgressCallback

	// Logger is used for logging operations (optional)
	Logger Logger

	// Layout maps logical registers to offsets
	Layout regs.Layout

	// PollInterval is the sleep between register samples
	PollInterval time.Duration

	// DMATimeout bounds the wait for each DMA chunk
	DMATimeout time.Duration

	// BootTimeout bounds the wait for the falcon to go idle after start
	BootTimeout time.Duration

	// Sleep performs poll sleeps. Tests replace it to run without delay.
	Sleep poll.Sleeper

	// PageSize is the allocation granularity of the firmware buffer
	PageSize int

	// FirmwarePrefix is prepended to "<major><minor>.fw" by Driver
	FirmwarePrefix string
}

// defaultConfig returns the default configuration.
func defaultConfig() Config {
	return Config{
		Layout:         regs.DefaultLayout(),
		PollInterval:   poll.DefaultInterval,
		DMATimeout:     poll.DefaultTimeout,
		BootTimeout:    poll.DefaultTimeout,
		Sleep:          time.Sleep,
		PageSize:       memmgr.DefaultPageSize,
		FirmwarePrefix: ucode.DefaultFirmwarePrefix,
	}
}

func (c Config) dmaWait() poll.Config {
	return poll.Config{Timeout: c.DMATimeout, Interval: c.PollInterval, Sleep: c.Sleep}
}

func (c Config) bootWait() poll.Config {
	return poll.Config{Timeout: c.BootTimeout, Interval: c.PollInterval, Sleep: c.Sleep}
}

// Option is a functional option for configuring a Handle or Driver.
type Option func(*Config)

// WithProgressCallback sets a callback function to track boot progress.
//
// Example:
//
//	h := engine.New(bus, mgr,
//	    engine.WithProgressCallback(func(p engine.Progress) {
//	        fmt.Printf("%s %.1f%%\n", p.State, p.Percentage)
//	    }),
//	)
func WithProgressCallback(callback ProgressCallback) Option {
	return func(c *Config) {
		c.ProgressCallback = callback
	}
}

// WithLogger sets a logger for engine operations.
//
// Example:
//
//	h := engine.New(bus, mgr, engine.WithLogger(logging.New("nvdec")))
func WithLogger(logger Logger) Option {
	return func(c *Config) {
		c.Logger = logger
	}
}

// WithLayout sets the register layout, for chip revisions whose falcon
// block differs from the default.
//
// Example:
//
//	layout, err := regs.LoadLayout(f)
//	h := engine.New(bus, mgr, engine.WithLayout(layout))
func WithLayout(layout regs.Layout) Option {
	return func(c *Config) {
		c.Layout = layout
	}
}

// WithPollInterval sets the sleep between register samples.
func WithPollInterval(interval time.Duration) Option {
	return func(c *Config) {
		if interval > 0 {
			c.PollInterval = interval
		}
	}
}

// WithTimeout sets both the DMA and boot timeouts.
//
// Example:
//
//	h := engine.New(bus, mgr, engine.WithTimeout(2*time.Second))
func WithTimeout(timeout time.Duration) Option {
	return func(c *Config) {
		if timeout > 0 {
			c.DMATimeout = timeout
			c.BootTimeout = timeout
		}
	}
}

// WithDMATimeout sets the per-chunk DMA timeout.
func WithDMATimeout(timeout time.Duration) Option {
	return func(c *Config) {
		if timeout > 0 {
			c.DMATimeout = timeout
		}
	}
}

// WithBootTimeout sets the timeout for the falcon to go idle after start.
func WithBootTimeout(timeout time.Duration) Option {
	return func(c *Config) {
		if timeout > 0 {
			c.BootTimeout = timeout
		}
	}
}

// WithSleep replaces the poll sleeper.
//
// Example:
//
//	var slept time.Duration
//	h := engine.New(bus, mgr, engine.WithSleep(func(d time.Duration) { slept += d }))
func WithSleep(sleep poll.Sleeper) Option {
	return func(c *Config) {
		if sleep != nil {
			c.Sleep = sleep
		}
	}
}

// WithPageSize sets the firmware buffer allocation granularity.
func WithPageSize(size int) Option {
	return func(c *Config) {
		if size > 0 {
			c.PageSize = size
		}
	}
}

// WithFirmwarePrefix sets the prefix Driver uses to name firmware files.
//
// Example:
//
//	d := engine.NewDriver(mgr, src, engine.WithFirmwarePrefix("nvhost_nvdec_bl0"))
func WithFirmwarePrefix(prefix string) Option {
	return func(c *Config) {
		if prefix != "" {
			c.FirmwarePrefix = prefix
		}
	}
}
