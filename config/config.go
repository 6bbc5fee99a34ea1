package config

import (
	"strings"

	apperrors "github.com/target/reportfetch/internal/errors"
)

// AppConfig is the main application configuration struct that composes
// domain-specific configuration from separate files.
//
// Configuration is loaded from environment variables using the
// github.com/caarlos0/env library. See individual domain config
// files for details on available environment variables:
//   - vendor.go: Reporting API credentials and endpoints
//   - job.go: Report template, output path and poll budget
//   - observability.go: Metrics and failure notifications
//   - log.go: Log level and format
type AppConfig struct {
	// Vendor holds the reporting API credentials and endpoints.
	Vendor VendorConfig `envPrefix:"REPORT_"`

	// Job selects the report template and where to write it.
	Job JobConfig `envPrefix:"REPORT_"`

	// Poll bounds the job status polling loop.
	Poll PollConfig `envPrefix:"REPORT_POLL_"`

	// Observability configuration
	Observability ObservabilityConfig

	// Log configuration
	Log LogConfig
}

// Sanitize applies guardrails to configuration values loaded from env.
// This should be called after loading configuration from environment variables.
func (c *AppConfig) Sanitize() {
	c.Vendor.Sanitize()
	c.Job.Sanitize()
	c.Poll.Sanitize()
	c.Observability.Sanitize()
	c.Log.Sanitize()
}

// Validate reports the first missing required value as a validation error.
// Values set to whitespace pass env parsing but are rejected here.
func (c *AppConfig) Validate() error {
	if err := c.Vendor.Validate(); err != nil {
		return err
	}
	return c.Job.Validate()
}

type requiredValue struct {
	name  string
	value string
}

func firstBlank(values ...requiredValue) error {
	for _, r := range values {
		if strings.TrimSpace(r.value) == "" {
			return apperrors.Validationf("%s is required", r.name)
		}
	}
	return nil
}
