package config

import (
	"strings"
	"time"
)

const (
	// DefaultPollMaxAttempts is the number of retries after the first status request.
	DefaultPollMaxAttempts = 10
	// DefaultPollInterval is the fixed wait between status requests.
	DefaultPollInterval = 60 * time.Second
)

// JobConfig selects the report to run and where the decoded file goes.
// Both values may also come from command line flags, so they are checked by
// Validate rather than by env parsing.
type JobConfig struct {
	TemplateID string `env:"TEMPLATE_ID"`
	OutputPath string `env:"OUTPUT_PATH"`
}

// Sanitize trims both values.
func (c *JobConfig) Sanitize() {
	c.TemplateID = strings.TrimSpace(c.TemplateID)
	c.OutputPath = strings.TrimSpace(c.OutputPath)
}

// Validate requires a template ID and an output path.
func (c *JobConfig) Validate() error {
	return firstBlank(
		requiredValue{"REPORT_TEMPLATE_ID", c.TemplateID},
		requiredValue{"REPORT_OUTPUT_PATH", c.OutputPath},
	)
}

// PollConfig bounds the job status polling loop.
type PollConfig struct {
	// MaxAttempts is the retry budget; a run issues at most MaxAttempts+1 requests.
	MaxAttempts int           `env:"MAX_ATTEMPTS" envDefault:"10"`
	Interval    time.Duration `env:"INTERVAL"     envDefault:"60s"`
}

// Sanitize clamps a negative budget to zero and resets a non-positive interval.
func (c *PollConfig) Sanitize() {
	if c.MaxAttempts < 0 {
		c.MaxAttempts = 0
	}
	if c.Interval <= 0 {
		c.Interval = DefaultPollInterval
	}
}
