package config

import (
	"fmt"
	"time"
)

// Defaults applied by Normalize for unspecified fields.
const (
	DefaultAddr            = ":8080"
	DefaultLockFile        = "/tmp/inferd.lock"
	DefaultLogLevel        = "info"
	DefaultJobTTL          = 10 * time.Minute
	DefaultSweepInterval   = time.Minute
	DefaultPollInterval    = 2 * time.Second
	DefaultPollMaxAttempts = 40
)

// Runtime is the parsed, defaulted view of Config that the daemon consumes.
type Runtime struct {
	Addr     string
	LockFile string
	LogLevel string

	JobTTL        time.Duration
	SweepInterval time.Duration

	PollInterval    time.Duration
	PollMaxAttempts int

	CORS   CORS
	Models []Model
}

// Normalize validates durations, applies defaults, and requires at least one
// model with a unique id.
func (c Config) Normalize() (Runtime, error) {
	rt := Runtime{
		Addr:     orDefault(c.Addr, DefaultAddr),
		LockFile: orDefault(c.LockFile, DefaultLockFile),
		LogLevel: orDefault(c.LogLevel, DefaultLogLevel),
		CORS:     c.CORS,
		Models:   c.Models,
	}
	var err error
	if rt.JobTTL, err = parseDuration("job_ttl", c.JobTTL, DefaultJobTTL); err != nil {
		return rt, err
	}
	if rt.SweepInterval, err = parseDuration("sweep_interval", c.SweepInterval, DefaultSweepInterval); err != nil {
		return rt, err
	}
	if rt.PollInterval, rt.PollMaxAttempts, err = c.PollDefaults(); err != nil {
		return rt, err
	}

	if len(rt.Models) == 0 {
		return rt, fmt.Errorf("at least one model must be configured")
	}
	seen := make(map[string]bool, len(rt.Models))
	for i, m := range rt.Models {
		if m.ID == "" {
			return rt, fmt.Errorf("models[%d]: id is required", i)
		}
		if seen[m.ID] {
			return rt, fmt.Errorf("duplicate model id: %s", m.ID)
		}
		seen[m.ID] = true
		if _, err := parseDuration("admit_backoff", m.AdmitBackoff, 0); err != nil {
			return rt, fmt.Errorf("model %s: %w", m.ID, err)
		}
	}
	return rt, nil
}

// PollDefaults returns the client-side poll cadence, defaulted and validated.
// The CLI commands use this directly: a client does not need (and may not
// have) the daemon's model section, so it must not go through Normalize.
func (c Config) PollDefaults() (time.Duration, int, error) {
	interval, err := parseDuration("poll_interval", c.PollInterval, DefaultPollInterval)
	if err != nil {
		return 0, 0, err
	}
	attempts := c.PollMaxAttempts
	if attempts <= 0 {
		attempts = DefaultPollMaxAttempts
	}
	return interval, attempts, nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func parseDuration(field, v string, def time.Duration) (time.Duration, error) {
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", field, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s: must not be negative", field)
	}
	return d, nil
}
