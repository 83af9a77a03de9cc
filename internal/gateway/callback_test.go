package gateway

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/http"
	"strings"
	"sync"
	"testing"

	"github.com/flemzord/sjobs/internal/jobs"
	"github.com/flemzord/sjobs/internal/security"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

// triggerRecorder is a TriggerHandler that records every trigger.
type triggerRecorder struct {
	mu       sync.Mutex
	triggers []jobs.Trigger
	err      error
}

func (r *triggerRecorder) HandleTrigger(_ context.Context, t jobs.Trigger) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.triggers = append(r.triggers, t)
	return r.err
}

func (r *triggerRecorder) all() []jobs.Trigger {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]jobs.Trigger(nil), r.triggers...)
}

func sign(body, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(body))
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

const timerPath = "/management/jobs/orders/instances/inst-1/timers/job-1"

func TestCallback_Dispatch(t *testing.T) {
	t.Parallel()

	tg := newTestGateway(t, nil)
	rec := &triggerRecorder{}
	tg.dispatcher.Register("orders", rec)

	resp := tg.do(t, http.MethodPost, timerPath, `{"limit":3,"executionCounter":2}`, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	got := rec.all()
	if len(got) != 1 {
		t.Fatalf("triggers = %d, want 1", len(got))
	}
	want := jobs.Trigger{JobID: "job-1", ProcessID: "orders", ProcessInstanceID: "inst-1", Limit: 3, ExecutionCounter: 2}
	if got[0] != want {
		t.Errorf("trigger = %+v, want %+v", got[0], want)
	}

	if v := testutil.ToFloat64(tg.metrics.callbacks.WithLabelValues("dispatched")); v != 1 {
		t.Errorf("dispatched callbacks = %v, want 1", v)
	}

	events := tg.events.all()
	if len(events) != 1 || events[0].Type != security.EventJobTriggered || events[0].Outcome != "ok" {
		t.Errorf("audit events = %+v", events)
	}
}

func TestCallback_EmptyBody(t *testing.T) {
	t.Parallel()

	tg := newTestGateway(t, nil)
	rec := &triggerRecorder{}
	tg.dispatcher.Register("orders", rec)

	resp := tg.do(t, http.MethodPost, timerPath, "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if got := rec.all(); len(got) != 1 || got[0].Limit != 0 || got[0].ExecutionCounter != 0 {
		t.Errorf("triggers = %+v", got)
	}
}

func TestCallback_LimitQueryOverridesBody(t *testing.T) {
	t.Parallel()

	tg := newTestGateway(t, nil)
	rec := &triggerRecorder{}
	tg.dispatcher.Register("orders", rec)

	resp := tg.do(t, http.MethodPost, timerPath+"?limit=7", `{"limit":3,"extra":"ignored"}`, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if got := rec.all(); len(got) != 1 || got[0].Limit != 7 {
		t.Errorf("triggers = %+v, want limit 7", got)
	}
}

func TestCallback_BadPayload(t *testing.T) {
	t.Parallel()

	tg := newTestGateway(t, nil)
	rec := &triggerRecorder{}
	tg.dispatcher.Register("orders", rec)

	for _, tc := range []struct {
		name, path, body string
	}{
		{"invalid json", timerPath, `{"limit":`},
		{"wrong type", timerPath, `{"limit":"three"}`},
		{"bad query", timerPath + "?limit=abc", ""},
		{"too deep", timerPath, strings.Repeat("[", 40) + strings.Repeat("]", 40)},
	} {
		resp := tg.do(t, http.MethodPost, tc.path, tc.body, nil)
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", tc.name, resp.StatusCode)
		}
	}
	if got := rec.all(); len(got) != 0 {
		t.Errorf("handler called %d times, want 0", len(got))
	}
	if v := testutil.ToFloat64(tg.metrics.callbacks.WithLabelValues("rejected")); v != 4 {
		t.Errorf("rejected callbacks = %v, want 4", v)
	}
}

func TestCallback_BodyTooLarge(t *testing.T) {
	t.Parallel()

	tg := newTestGateway(t, nil)
	tg.dispatcher.Register(AnyProcess, &triggerRecorder{})

	body := `{"x":"` + strings.Repeat("a", security.DefaultMaxBodySize) + `"}`
	resp := tg.do(t, http.MethodPost, timerPath, body, nil)
	if resp.StatusCode != http.StatusRequestEntityTooLarge {
		t.Errorf("status = %d, want 413", resp.StatusCode)
	}
}

func TestCallback_ConfiguredBodyLimit(t *testing.T) {
	t.Parallel()

	tg := newTestGateway(t, nil, withConfig(func(c *Config) { c.MaxBodySize = 16 }))
	rec := &triggerRecorder{}
	tg.dispatcher.Register(AnyProcess, rec)

	resp := tg.do(t, http.MethodPost, timerPath, `{"limit": 1234567890123}`, nil)
	if resp.StatusCode != http.StatusRequestEntityTooLarge {
		t.Errorf("status = %d, want 413", resp.StatusCode)
	}
}

func TestCallback_FallbackHandler(t *testing.T) {
	t.Parallel()

	tg := newTestGateway(t, nil)
	fallback := &triggerRecorder{}
	dedicated := &triggerRecorder{}
	tg.dispatcher.Register(AnyProcess, fallback)
	tg.dispatcher.Register("billing", dedicated)

	resp := tg.do(t, http.MethodPost, timerPath, "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if len(fallback.all()) != 1 || len(dedicated.all()) != 0 {
		t.Errorf("fallback = %d, dedicated = %d", len(fallback.all()), len(dedicated.all()))
	}
}

func TestCallback_UnknownProcess(t *testing.T) {
	t.Parallel()

	tg := newTestGateway(t, nil)
	rec := &triggerRecorder{}
	tg.dispatcher.Register("orders", rec)
	tg.dispatcher.Unregister("orders")

	resp := tg.do(t, http.MethodPost, timerPath, "", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
	if v := testutil.ToFloat64(tg.metrics.callbacks.WithLabelValues("unknown_process")); v != 1 {
		t.Errorf("unknown_process callbacks = %v, want 1", v)
	}
}

func TestCallback_HandlerError(t *testing.T) {
	t.Parallel()

	tg := newTestGateway(t, nil)
	tg.dispatcher.Register("orders", &triggerRecorder{err: errors.New("instance gone")})

	resp := tg.do(t, http.MethodPost, timerPath, "", nil)
	if resp.StatusCode != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", resp.StatusCode)
	}
	body := readAll(t, resp.Body)
	if strings.Contains(body, "instance gone") {
		t.Errorf("handler error leaked to caller: %s", body)
	}

	events := tg.events.all()
	if len(events) != 1 || events[0].Outcome != "error" {
		t.Errorf("audit events = %+v", events)
	}
}

func TestCallback_Signature(t *testing.T) {
	t.Parallel()

	const secret = "cb-secret"
	tg := newTestGateway(t, nil, withConfig(func(c *Config) { c.CallbackSecret = secret }))
	rec := &triggerRecorder{}
	tg.dispatcher.Register("orders", rec)

	body := `{"limit":1}`
	tests := []struct {
		name   string
		header http.Header
		want   int
	}{
		{"missing", nil, http.StatusUnauthorized},
		{"wrong secret", http.Header{"X-Signature-256": {sign(body, "other")}}, http.StatusUnauthorized},
		{"valid", http.Header{"X-Signature-256": {sign(body, secret)}}, http.StatusOK},
	}
	for _, tt := range tests {
		resp := tg.do(t, http.MethodPost, timerPath, body, tt.header)
		if resp.StatusCode != tt.want {
			t.Errorf("%s: status = %d, want %d", tt.name, resp.StatusCode, tt.want)
		}
	}

	if got := rec.all(); len(got) != 1 {
		t.Errorf("triggers = %d, want 1", len(got))
	}

	failures := 0
	for _, e := range tg.events.all() {
		if e.Type == security.EventAuthFailure {
			failures++
		}
	}
	if failures != 2 {
		t.Errorf("auth failure events = %d, want 2", failures)
	}
}

func TestCallback_RateLimited(t *testing.T) {
	t.Parallel()

	tg := newTestGateway(t, nil, withLimiter(security.RateLimitConfig{CallbackPerMin: 1}))
	tg.dispatcher.Register(AnyProcess, &triggerRecorder{})

	first := tg.do(t, http.MethodPost, timerPath, "", nil)
	second := tg.do(t, http.MethodPost, timerPath, "", nil)
	if first.StatusCode != http.StatusOK {
		t.Errorf("first status = %d, want 200", first.StatusCode)
	}
	if second.StatusCode != http.StatusTooManyRequests {
		t.Errorf("second status = %d, want 429", second.StatusCode)
	}
}

func TestValidateHMAC(t *testing.T) {
	t.Parallel()

	body := []byte(`{"limit":2}`)
	if !validateHMAC(body, sign(string(body), "s"), "s") {
		t.Error("valid signature rejected")
	}
	if validateHMAC(body, "sha256=00", "s") {
		t.Error("short signature accepted")
	}
	if validateHMAC(body, strings.TrimPrefix(sign(string(body), "s"), "sha256="), "s") {
		t.Error("signature without prefix accepted")
	}
}
