package security

import (
	"errors"
	"time"

	"golang.org/x/time/rate"
)

// ErrRateLimited is returned when a request exceeds the rate limit.
var ErrRateLimited = errors.New("rate limit exceeded")

// Rate limit kinds.
const (
	KindAdmin    = "admin"
	KindCallback = "callback"
)

// RateLimitConfig holds per-minute limits for inbound gateway traffic.
type RateLimitConfig struct {
	AdminPerMin    int `yaml:"admin_per_min"`
	CallbackPerMin int `yaml:"callback_per_min"`
}

func rateLimitConfigDefaults() RateLimitConfig {
	return RateLimitConfig{
		AdminPerMin:    120,
		CallbackPerMin: 1200,
	}
}

// RateLimiter holds one token bucket per request kind. Each bucket refills
// at limit per minute with a burst of limit.
type RateLimiter struct {
	limiters map[string]*rate.Limiter
	now      func() time.Time
}

// NewRateLimiter creates a rate limiter with the given config.
// Zero-value fields in cfg are replaced with defaults.
func NewRateLimiter(cfg RateLimitConfig) *RateLimiter {
	defaults := rateLimitConfigDefaults()
	if cfg.AdminPerMin <= 0 {
		cfg.AdminPerMin = defaults.AdminPerMin
	}
	if cfg.CallbackPerMin <= 0 {
		cfg.CallbackPerMin = defaults.CallbackPerMin
	}

	return &RateLimiter{
		now: time.Now,
		limiters: map[string]*rate.Limiter{
			KindAdmin:    perMinute(cfg.AdminPerMin),
			KindCallback: perMinute(cfg.CallbackPerMin),
		},
	}
}

func perMinute(n int) *rate.Limiter {
	return rate.NewLimiter(rate.Every(time.Minute/time.Duration(n)), n)
}

// Allow reports whether one request of the given kind may proceed.
// Unknown kinds are never limited. A nil limiter allows everything.
func (rl *RateLimiter) Allow(kind string) error {
	if rl == nil {
		return nil
	}
	l, ok := rl.limiters[kind]
	if !ok {
		return nil
	}
	if !l.AllowN(rl.now(), 1) {
		return ErrRateLimited
	}
	return nil
}
