package jobs

import (
	"fmt"
	"time"
)

// PolicyOptions is the textual form of an expiration policy accepted from
// the admin API and the command line. Exactly one of At, Delay or Cron must
// be set.
type PolicyOptions struct {
	// At is an RFC 3339 instant.
	At string `json:"expirationTime,omitempty"`

	// Delay is a Go duration from now. Interval and Limit make it repeat;
	// a negative Limit repeats without bound.
	Delay    string `json:"delay,omitempty"`
	Interval string `json:"repeatInterval,omitempty"`
	Limit    int    `json:"repeatLimit,omitempty"`

	// Cron is a 5-field cron expression evaluated in Timezone (an IANA
	// name, default UTC).
	Cron     string `json:"cron,omitempty"`
	Timezone string `json:"timezone,omitempty"`
}

// Policy converts the options into an ExpirationPolicy. Every error wraps
// ErrInvalidJobRequest.
func (o PolicyOptions) Policy() (ExpirationPolicy, error) {
	set := 0
	for _, v := range []string{o.At, o.Delay, o.Cron} {
		if v != "" {
			set++
		}
	}
	if set != 1 {
		return nil, fmt.Errorf("%w: exactly one of expiration time, delay or cron is required", ErrInvalidJobRequest)
	}
	if o.Delay == "" && (o.Interval != "" || o.Limit != 0) {
		return nil, fmt.Errorf("%w: repeat interval and limit require a delay", ErrInvalidJobRequest)
	}
	if o.Cron == "" && o.Timezone != "" {
		return nil, fmt.Errorf("%w: timezone requires a cron expression", ErrInvalidJobRequest)
	}

	switch {
	case o.At != "":
		at, err := time.Parse(time.RFC3339Nano, o.At)
		if err != nil {
			return nil, fmt.Errorf("%w: expiration time %q: %v", ErrInvalidJobRequest, o.At, err)
		}
		return ExactAt(at), nil

	case o.Delay != "":
		delay, err := time.ParseDuration(o.Delay)
		if err != nil {
			return nil, fmt.Errorf("%w: delay %q: %v", ErrInvalidJobRequest, o.Delay, err)
		}
		if delay < 0 {
			return nil, fmt.Errorf("%w: delay %q is negative", ErrInvalidJobRequest, o.Delay)
		}
		if o.Interval == "" {
			if o.Limit != 0 {
				return nil, fmt.Errorf("%w: repeat limit requires a repeat interval", ErrInvalidJobRequest)
			}
			return After(delay), nil
		}
		interval, err := time.ParseDuration(o.Interval)
		if err != nil || interval <= 0 {
			return nil, fmt.Errorf("%w: repeat interval %q must be a positive duration", ErrInvalidJobRequest, o.Interval)
		}
		return Every(delay, interval, o.Limit), nil

	default:
		loc := time.UTC
		if o.Timezone != "" {
			l, err := time.LoadLocation(o.Timezone)
			if err != nil {
				return nil, fmt.Errorf("%w: timezone %q: %v", ErrInvalidJobRequest, o.Timezone, err)
			}
			loc = l
		}
		return ParseCron(o.Cron, loc)
	}
}
