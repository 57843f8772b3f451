package httpclient

import (
	"fmt"
	"time"

	"github.com/taoxee/scribeflow/resilience"
)

const defaultTimeout = 120 * time.Second

// Config configures a vendor HTTP client.
type Config struct {
	// Vendor is the vendor id used to tag classified errors.
	Vendor string `yaml:"vendor" mapstructure:"vendor"`

	// BaseURL is the base URL prepended to all request paths.
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`

	// Timeout is the per-call timeout. Defaults to 120s; media uploads are slow.
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`

	// Headers are default headers applied to all requests.
	Headers map[string]string `yaml:"headers" mapstructure:"headers"`

	// Retry configures retry behavior. Nil disables retry.
	Retry *resilience.RetryConfig `yaml:"-" mapstructure:"-"`

	// DisableProxyFallback turns off the one-shot direct retry after a
	// proxied connection failure.
	DisableProxyFallback bool `yaml:"disable_proxy_fallback" mapstructure:"disable_proxy_fallback"`
}

// ApplyDefaults fills in zero-value fields with sensible defaults.
func (c *Config) ApplyDefaults() {
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("httpclient: timeout must be positive")
	}
	return nil
}

// DefaultRetryConfig returns the vendor-call retry policy for HTTP clients.
func DefaultRetryConfig() *resilience.RetryConfig {
	cfg := resilience.DefaultRetryConfig()
	return &cfg
}
