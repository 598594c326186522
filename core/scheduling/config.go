package scheduling

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/kilianp07/cpm/core/cpm"
)

// Config defines scheduler settings.
type Config struct {
	IterationFactor   int  `json:"iteration_factor"`
	StrictConvergence bool `json:"strict_convergence"`
	// Cron reschedules every project on the given standard cron expression.
	Cron string `json:"cron"`
	// TimeoutSeconds bounds a single project run including persistence.
	TimeoutSeconds int `json:"timeout_seconds"`
	// Parallelism limits concurrent runs in ScheduleAll.
	Parallelism int `json:"parallelism"`
}

// SetDefaults applies sane defaults.
func (c *Config) SetDefaults() {
	if c.IterationFactor <= 0 {
		c.IterationFactor = cpm.DefaultIterationFactor
	}
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = 30
	}
	if c.Parallelism <= 0 {
		c.Parallelism = 4
	}
}

// Validate checks the cron expression when one is set.
func (c Config) Validate() error {
	if c.IterationFactor < 0 {
		return fmt.Errorf("iteration_factor must not be negative")
	}
	if c.Cron != "" {
		if _, err := cron.ParseStandard(c.Cron); err != nil {
			return fmt.Errorf("invalid cron %q: %w", c.Cron, err)
		}
	}
	return nil
}

// Options converts the config into engine options.
func (c Config) Options() cpm.Options {
	return cpm.Options{IterationFactor: c.IterationFactor, StrictConvergence: c.StrictConvergence}
}

// Timeout returns the per-run deadline.
func (c Config) Timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}
