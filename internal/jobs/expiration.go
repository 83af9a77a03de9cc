package jobs

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// ExpirationPolicy describes when a job fires. The set of variants is closed:
// ExactExpiration, DurationExpiration and CronExpiration.
type ExpirationPolicy interface {
	// Next returns the first fire instant governed by the policy relative to
	// the reference instant, or false when the policy is exhausted.
	Next(ref time.Time) (time.Time, bool)

	// RepeatInterval is the period between repetitions, zero for one-shot policies.
	RepeatInterval() time.Duration

	// RepeatLimit is the number of repetitions after the first firing.
	// Negative means unbounded.
	RepeatLimit() int

	expirationPolicy()
}

var (
	_ ExpirationPolicy = ExactExpiration{}
	_ ExpirationPolicy = DurationExpiration{}
	_ ExpirationPolicy = CronExpiration{}
)

// ExactExpiration fires once at a fixed instant. Instants in the past are
// valid; the remote service decides how to treat them.
type ExactExpiration struct {
	At time.Time
}

// ExactAt returns a policy firing once at t.
func ExactAt(t time.Time) ExactExpiration {
	return ExactExpiration{At: t}
}

// ExactNow returns a policy firing once at the current instant.
func ExactNow() ExactExpiration {
	return ExactExpiration{At: time.Now()}
}

// Next implements ExpirationPolicy. The reference instant is ignored.
func (e ExactExpiration) Next(_ time.Time) (time.Time, bool) {
	if e.At.IsZero() {
		return time.Time{}, false
	}
	return e.At, true
}

// RepeatInterval implements ExpirationPolicy.
func (ExactExpiration) RepeatInterval() time.Duration { return 0 }

// RepeatLimit implements ExpirationPolicy.
func (ExactExpiration) RepeatLimit() int { return 0 }

func (ExactExpiration) expirationPolicy() {}

// DurationExpiration fires Delay after the reference instant, then every
// Interval for Limit more times.
type DurationExpiration struct {
	Delay    time.Duration
	Interval time.Duration
	Limit    int
}

// After returns a one-shot policy firing d after scheduling.
func After(d time.Duration) DurationExpiration {
	return DurationExpiration{Delay: d}
}

// Every returns a policy firing after delay and then every interval,
// limit more times (negative for unbounded).
func Every(delay, interval time.Duration, limit int) DurationExpiration {
	return DurationExpiration{Delay: delay, Interval: interval, Limit: limit}
}

// Next implements ExpirationPolicy.
func (e DurationExpiration) Next(ref time.Time) (time.Time, bool) {
	if e.Delay < 0 {
		return time.Time{}, false
	}
	return ref.Add(e.Delay), true
}

// RepeatInterval implements ExpirationPolicy.
func (e DurationExpiration) RepeatInterval() time.Duration {
	if e.Limit == 0 {
		return 0
	}
	return e.Interval
}

// RepeatLimit implements ExpirationPolicy.
func (e DurationExpiration) RepeatLimit() int {
	if e.Interval <= 0 {
		return 0
	}
	return e.Limit
}

func (DurationExpiration) expirationPolicy() {}

// CronExpiration fires at the next activation of a 5-field cron expression.
// Location defaults to the location of the reference instant.
type CronExpiration struct {
	Expr     string
	Location *time.Location
}

// Cron returns a policy for the given cron expression.
func Cron(expr string) CronExpiration {
	return CronExpiration{Expr: expr}
}

// ParseCron validates expr and returns the matching policy.
func ParseCron(expr string, loc *time.Location) (CronExpiration, error) {
	if _, err := cron.ParseStandard(expr); err != nil {
		return CronExpiration{}, fmt.Errorf("%w: cron %q: %v", ErrInvalidJobRequest, expr, err)
	}
	return CronExpiration{Expr: expr, Location: loc}, nil
}

// Next implements ExpirationPolicy. It reports false when the expression
// does not parse or never activates again.
func (e CronExpiration) Next(ref time.Time) (time.Time, bool) {
	sched, err := cron.ParseStandard(e.Expr)
	if err != nil {
		return time.Time{}, false
	}
	if e.Location != nil {
		ref = ref.In(e.Location)
	}
	next := sched.Next(ref)
	if next.IsZero() {
		return time.Time{}, false
	}
	return next, true
}

// RepeatInterval implements ExpirationPolicy. Cron activations are not
// evenly spaced, so each firing is rescheduled by the engine.
func (CronExpiration) RepeatInterval() time.Duration { return 0 }

// RepeatLimit implements ExpirationPolicy.
func (CronExpiration) RepeatLimit() int { return 0 }

func (CronExpiration) expirationPolicy() {}
