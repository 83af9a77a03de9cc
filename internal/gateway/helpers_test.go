package gateway

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/flemzord/sjobs/internal/core"
	"github.com/flemzord/sjobs/internal/jobs"
	"github.com/flemzord/sjobs/internal/security"
	"github.com/prometheus/client_golang/prometheus"
	"gopkg.in/yaml.v3"
)

const testToken = "admin-token"

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// auditRecorder collects audit events.
type auditRecorder struct {
	mu     sync.Mutex
	events []security.AuditEvent
}

func (a *auditRecorder) logger() *security.AuditLogger {
	return security.NewAuditLogger(security.AuditLoggerConfig{
		OnEvent: func(e security.AuditEvent) {
			a.mu.Lock()
			defer a.mu.Unlock()
			a.events = append(a.events, e)
		},
	})
}

func (a *auditRecorder) all() []security.AuditEvent {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]security.AuditEvent(nil), a.events...)
}

type testGateway struct {
	*Gateway
	srv      *httptest.Server
	registry *prometheus.Registry
	events   *auditRecorder
}

// gatewayOption adjusts services or config before provisioning.
type gatewayOption func(*core.AppContext, *Config)

func withConfig(mutate func(*Config)) gatewayOption {
	return func(_ *core.AppContext, c *Config) { mutate(c) }
}

func withLimiter(cfg security.RateLimitConfig) gatewayOption {
	return func(ctx *core.AppContext, _ *Config) {
		ctx.RegisterService("security.ratelimiter", security.NewRateLimiter(cfg))
	}
}

func withProbe(p *jobs.ProbeStatus) gatewayOption {
	return func(ctx *core.AppContext, _ *Config) {
		ctx.RegisterService("jobs.probe", p)
	}
}

// newTestGateway provisions a gateway around svc (may be nil) and serves
// its router on an httptest server.
func newTestGateway(t *testing.T, svc jobs.Service, opts ...gatewayOption) *testGateway {
	t.Helper()

	reg := prometheus.NewRegistry()
	rec := &auditRecorder{}
	appCtx := core.NewAppContext(testLogger(), t.TempDir())
	appCtx.RegisterService("metrics.registry", reg)
	appCtx.RegisterService("security.audit", rec.logger())
	appCtx.RegisterService("security.redactor", security.NewRedactor())
	if svc != nil {
		appCtx.RegisterService("jobs.service", svc)
	}

	g := &Gateway{config: Config{Auth: AuthConfig{BearerToken: testToken}}}
	for _, opt := range opts {
		opt(appCtx, &g.config)
	}
	if err := g.Provision(appCtx); err != nil {
		t.Fatalf("Provision: %v", err)
	}
	g.resolve()

	srv := httptest.NewServer(g.buildRouter())
	t.Cleanup(srv.Close)
	return &testGateway{Gateway: g, srv: srv, registry: reg, events: rec}
}

func (tg *testGateway) do(t *testing.T, method, path, body string, header http.Header) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequestWithContext(t.Context(), method, tg.srv.URL+path, reader)
	if err != nil {
		t.Fatal(err)
	}
	for k, v := range header {
		req.Header[k] = v
	}
	resp, err := tg.srv.Client().Do(req)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func (tg *testGateway) admin(t *testing.T, method, path, body string) *http.Response {
	t.Helper()
	return tg.do(t, method, path, body, http.Header{"Authorization": {"Bearer " + testToken}})
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}

func mustYAMLNode(t *testing.T, s string) *yaml.Node {
	t.Helper()
	var doc yaml.Node
	if err := yaml.Unmarshal([]byte(s), &doc); err != nil {
		t.Fatal(err)
	}
	if len(doc.Content) == 0 {
		t.Fatal("empty yaml document")
	}
	return doc.Content[0]
}

func readAll(t *testing.T, r io.Reader) string {
	t.Helper()
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(r); err != nil {
		t.Fatal(err)
	}
	return buf.String()
}
