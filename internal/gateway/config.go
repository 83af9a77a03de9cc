package gateway

import (
	"time"

	"github.com/flemzord/sjobs/internal/security"
)

// Config is the gateway.http module configuration.
type Config struct {
	// Bind is the listen address. The default is loopback only.
	Bind string     `yaml:"bind"`
	Auth AuthConfig `yaml:"auth"`

	// CallbackSecret, when set, requires job service callbacks to carry an
	// X-Signature-256 HMAC of the body.
	CallbackSecret string `yaml:"callback_secret"`

	// MaxBodySize caps callback and admin request bodies, in bytes.
	MaxBodySize int `yaml:"max_body_size"`

	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

func (c *Config) defaults() {
	if c.Bind == "" {
		c.Bind = "127.0.0.1:8080"
	}
	if c.MaxBodySize <= 0 {
		c.MaxBodySize = security.DefaultMaxBodySize
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = 10 * time.Second
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = 30 * time.Second
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = 5 * time.Second
	}
}

// AuthConfig protects the admin API. Bearer and basic credentials may be
// combined; either one is accepted.
type AuthConfig struct {
	BearerToken string `yaml:"bearer_token"`
	BasicUser   string `yaml:"basic_user"`
	BasicPass   string `yaml:"basic_pass"`
}

// IsConfigured reports whether any credential is set. Without one the
// admin API is not mounted.
func (a AuthConfig) IsConfigured() bool {
	return a.BearerToken != "" || (a.BasicUser != "" && a.BasicPass != "")
}
