package config

import (
	"strings"
	"time"
)

const (
	// DefaultTokenURL is the vendor's password-grant token endpoint.
	DefaultTokenURL = "https://api.incontact.com/InContactAuthorizationServer/Token"
	// DefaultAPIVersion is the reporting API version segment.
	DefaultAPIVersion = "v13.0"

	defaultRequestTimeout = 60 * time.Second
)

// VendorConfig contains the reporting API credentials and endpoints.
// Environment variables carry the REPORT_ prefix from AppConfig.
type VendorConfig struct {
	// Application, Vendor and BusinessUnit form the basic credential of the token request.
	Application  string `env:"APPLICATION,required"`
	Vendor       string `env:"VENDOR,required"`
	BusinessUnit string `env:"BUSINESS_UNIT,required"`

	// Username and Password are sent as the password grant.
	Username string `env:"USERNAME,required"`
	Password string `env:"PASSWORD,required"`

	TokenURL   string `env:"TOKEN_URL"   envDefault:"https://api.incontact.com/InContactAuthorizationServer/Token"`
	APIVersion string `env:"API_VERSION" envDefault:"v13.0"`

	// RequestTimeout bounds each individual HTTP request, not the whole run.
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT" envDefault:"60s"`
}

// Sanitize trims identifiers and restores defaults for blank optional values.
func (c *VendorConfig) Sanitize() {
	c.Application = strings.TrimSpace(c.Application)
	c.Vendor = strings.TrimSpace(c.Vendor)
	c.BusinessUnit = strings.TrimSpace(c.BusinessUnit)
	c.Username = strings.TrimSpace(c.Username)

	if c.TokenURL = strings.TrimSpace(c.TokenURL); c.TokenURL == "" {
		c.TokenURL = DefaultTokenURL
	}
	if c.APIVersion = strings.Trim(strings.TrimSpace(c.APIVersion), "/"); c.APIVersion == "" {
		c.APIVersion = DefaultAPIVersion
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = defaultRequestTimeout
	}
}

// Validate requires every credential part and a token URL.
func (c *VendorConfig) Validate() error {
	return firstBlank(
		requiredValue{"REPORT_APPLICATION", c.Application},
		requiredValue{"REPORT_VENDOR", c.Vendor},
		requiredValue{"REPORT_BUSINESS_UNIT", c.BusinessUnit},
		requiredValue{"REPORT_USERNAME", c.Username},
		requiredValue{"REPORT_PASSWORD", c.Password},
		requiredValue{"REPORT_TOKEN_URL", c.TokenURL},
	)
}
