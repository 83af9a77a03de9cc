package rest

import (
	"errors"
	"fmt"
	"net/url"
	"time"
)

const (
	defaultTimeout    = 10 * time.Second
	defaultHealthPath = "/q/health"
)

// Config holds the configuration for the REST job service client.
type Config struct {
	// URL is the base URL of the remote job service. Jobs live under {URL}/jobs.
	URL string `yaml:"url"`

	// CallbackURL is the base URL the remote service calls back when a job fires.
	CallbackURL string `yaml:"callback_url"`

	// Timeout bounds every request. Defaults to 10s.
	Timeout string `yaml:"timeout"`

	// Token is sent as a bearer token when set.
	Token string `yaml:"token"`

	// HealthPath is probed by HealthCheck, relative to URL.
	HealthPath string `yaml:"health_path"`
}

// defaults fills zero-valued fields with sensible defaults.
func (c *Config) defaults() {
	if c.Timeout == "" {
		c.Timeout = defaultTimeout.String()
	}
	if c.HealthPath == "" {
		c.HealthPath = defaultHealthPath
	}
}

// parsedTimeout returns the timeout as a time.Duration.
// Assumes the value has been validated.
func (c *Config) parsedTimeout() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil || d <= 0 {
		return defaultTimeout
	}
	return d
}

// validate reports every configuration problem at once.
func (c *Config) validate() error {
	var errs []error
	if err := validateBaseURL("url", c.URL); err != nil {
		errs = append(errs, err)
	}
	if err := validateBaseURL("callback_url", c.CallbackURL); err != nil {
		errs = append(errs, err)
	}
	if d, err := time.ParseDuration(c.Timeout); err != nil {
		errs = append(errs, fmt.Errorf("jobs.rest: invalid timeout %q: %w", c.Timeout, err))
	} else if d <= 0 {
		errs = append(errs, fmt.Errorf("jobs.rest: timeout must be positive, got %s", d))
	}
	return errors.Join(errs...)
}

func validateBaseURL(field, raw string) error {
	if raw == "" {
		return fmt.Errorf("jobs.rest: %s is required", field)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("jobs.rest: invalid %s %q: %w", field, raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("jobs.rest: %s must be an http or https URL, got %q", field, raw)
	}
	if u.Host == "" {
		return fmt.Errorf("jobs.rest: %s has no host: %q", field, raw)
	}
	return nil
}
