// Package poll implements the bounded busy-wait used for every hardware
// idle check.
//
// The loader never overlaps hardware operations and never yields: a wait
// samples a condition, sleeps a fixed interval, and gives up once the
// configured budget has been spent. The budget is accounted per interval
// rather than by wall clock, so a wait that never succeeds sleeps at least
// Timeout and at most Timeout plus one Interval.
package poll

import (
	"errors"
	"time"
)

const (
	// DefaultTimeout is the default wait budget.
	DefaultTimeout = 1000000 * time.Microsecond

	// DefaultInterval is the default sleep between samples.
	DefaultInterval = 100 * time.Microsecond
)

// ErrTimeout is returned when the budget is exhausted before the condition holds.
var ErrTimeout = errors.New("poll timeout")

// Sleeper pauses the caller for d.
type Sleeper func(d time.Duration)

// Config bounds a wait.
type Config struct {
	// Timeout is the total budget. Zero selects DefaultTimeout.
	Timeout time.Duration

	// Interval is the sleep between samples. Zero selects DefaultInterval.
	Interval time.Duration

	// Sleep performs the pause. Nil selects time.Sleep.
	Sleep Sleeper
}

// DefaultConfig returns the default wait bounds.
func DefaultConfig() Config {
	return Config{
		Timeout:  DefaultTimeout,
		Interval: DefaultInterval,
		Sleep:    time.Sleep,
	}
}

func (c Config) normalized() Config {
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.Interval <= 0 {
		c.Interval = DefaultInterval
	}
	if c.Sleep == nil {
		c.Sleep = time.Sleep
	}
	return c
}

// Until samples cond until it reports true or the budget runs out.
// It returns the budget consumed and ErrTimeout on expiry.
//
// Example:
//
//	waited, err := poll.Until(func() bool {
//	    return bus.Read32(layout.IdleState) == 0
//	}, poll.DefaultConfig())
func Until(cond func() bool, cfg Config) (time.Duration, error) {
	cfg = cfg.normalized()

	var waited time.Duration
	remaining := cfg.Timeout
	for {
		if cond() {
			return waited, nil
		}

		cfg.Sleep(cfg.Interval)
		waited += cfg.Interval

		if remaining <= cfg.Interval {
			return waited, ErrTimeout
		}
		remaining -= cfg.Interval
	}
}
