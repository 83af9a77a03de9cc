package jobs

import (
	"errors"
	"testing"
	"time"
)

func FuzzCronExpiration(f *testing.F) {
	f.Add("*/5 * * * *", "UTC")
	f.Add("0 0 1 1 *", "Europe/Paris")
	f.Add("0 0 30 2 *", "")
	f.Add("@every 30s", "")
	f.Add("@hourly", "America/New_York")
	f.Add("60 * * * *", "")
	f.Add("TZ=Asia/Tokyo 0 9 * * 1-5", "")
	f.Add("", "Nowhere/Invalid")
	f.Add("invalid", "")

	ref := time.Date(2030, 6, 1, 12, 0, 0, 0, time.UTC)

	f.Fuzz(func(t *testing.T, expr, zone string) {
		policy, err := PolicyOptions{Cron: expr, Timezone: zone}.Policy()
		if err != nil {
			if !errors.Is(err, ErrInvalidJobRequest) {
				t.Fatalf("Policy(%q, %q) error %v does not wrap ErrInvalidJobRequest", expr, zone, err)
			}
			if _, perr := ParseCron(expr, time.UTC); perr == nil && zone == "" {
				t.Fatalf("Policy rejected %q that ParseCron accepts", expr)
			}
			return
		}

		first, ok := policy.Next(ref)
		if !ok {
			return
		}
		if !first.After(ref) {
			t.Fatalf("Next(%v) = %v for %q, want a later instant", ref, first, expr)
		}
		if second, ok := policy.Next(first); ok && !second.After(first) {
			t.Fatalf("Next is not increasing for %q: %v then %v", expr, first, second)
		}
		if policy.RepeatInterval() != 0 || policy.RepeatLimit() != 0 {
			t.Fatalf("cron policy %q reports a fixed repeat", expr)
		}
	})
}
