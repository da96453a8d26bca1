package worker

import (
	"fmt"
	"time"
)

// Config tunes the job worker. Jobs here are short calls to the geo
// providers, so the defaults favour low concurrency and tight timeouts.
type Config struct {
	// Concurrency is the number of polling goroutines. Public Nominatim
	// allows one request per second, so the default is 1.
	Concurrency int

	// PollInterval is the idle wait between dequeue attempts.
	PollInterval time.Duration

	// JobTimeout bounds one job, including provider retries.
	JobTimeout time.Duration

	// ShutdownTimeout is how long Stop waits for in-flight jobs.
	ShutdownTimeout time.Duration

	// StaleJobThreshold is the age after which a running job left behind by
	// a crashed process is put back in the queue on Start.
	StaleJobThreshold time.Duration
}

// DefaultConfig returns the settings used when nothing is overridden.
func DefaultConfig() Config {
	return Config{
		Concurrency:       1,
		PollInterval:      5 * time.Second,
		JobTimeout:        time.Minute,
		ShutdownTimeout:   15 * time.Second,
		StaleJobThreshold: 5 * time.Minute,
	}
}

// Validate rejects settings that would spin or never finish.
func (c Config) Validate() error {
	switch {
	case c.Concurrency < 1 || c.Concurrency > 32:
		return fmt.Errorf("concurrency must be between 1 and 32, got %d", c.Concurrency)
	case c.PollInterval < time.Second:
		return fmt.Errorf("poll interval must be at least 1s, got %v", c.PollInterval)
	case c.JobTimeout < time.Second:
		return fmt.Errorf("job timeout must be at least 1s, got %v", c.JobTimeout)
	case c.ShutdownTimeout < time.Second:
		return fmt.Errorf("shutdown timeout must be at least 1s, got %v", c.ShutdownTimeout)
	case c.StaleJobThreshold < c.JobTimeout:
		return fmt.Errorf("stale job threshold (%v) must not be shorter than the job timeout (%v)", c.StaleJobThreshold, c.JobTimeout)
	}
	return nil
}
