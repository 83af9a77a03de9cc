package gateway

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/flemzord/sjobs/internal/security"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthMiddleware(t *testing.T) {
	t.Parallel()

	cfg := AuthConfig{BearerToken: "tok", BasicUser: "admin", BasicPass: "pw"}

	tests := []struct {
		name  string
		setup func(*http.Request)
		want  int
	}{
		{"bearer", func(r *http.Request) { r.Header.Set("Authorization", "Bearer tok") }, http.StatusOK},
		{"basic", func(r *http.Request) { r.SetBasicAuth("admin", "pw") }, http.StatusOK},
		{"missing", func(*http.Request) {}, http.StatusUnauthorized},
		{"wrong bearer", func(r *http.Request) { r.Header.Set("Authorization", "Bearer nope") }, http.StatusUnauthorized},
		{"wrong basic", func(r *http.Request) { r.SetBasicAuth("admin", "nope") }, http.StatusUnauthorized},
		{"bearer without scheme", func(r *http.Request) { r.Header.Set("Authorization", "tok") }, http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			rec := &auditRecorder{}
			h := authMiddleware(cfg, rec.logger(), nil)(okHandler())
			req := httptest.NewRequest(http.MethodGet, "/status", nil)
			tt.setup(req)
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)

			if w.Code != tt.want {
				t.Errorf("status = %d, want %d", w.Code, tt.want)
			}
			events := rec.all()
			if tt.want == http.StatusUnauthorized {
				if len(events) != 1 || events[0].Type != security.EventAuthFailure {
					t.Errorf("audit events = %+v, want one auth failure", events)
				} else if events[0].Metadata["path"] != "/status" {
					t.Errorf("metadata = %v", events[0].Metadata)
				}
			} else if len(events) != 0 {
				t.Errorf("unexpected audit events: %+v", events)
			}
		})
	}
}

func TestAuthMiddleware_BearerOnlyRejectsBasic(t *testing.T) {
	t.Parallel()

	h := authMiddleware(AuthConfig{BearerToken: "tok"}, nil, nil)(okHandler())
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.SetBasicAuth("", "tok")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestAuthMiddleware_RateLimit(t *testing.T) {
	t.Parallel()

	rec := &auditRecorder{}
	limiter := security.NewRateLimiter(security.RateLimitConfig{AdminPerMin: 2})
	h := authMiddleware(AuthConfig{BearerToken: "tok"}, rec.logger(), limiter)(okHandler())

	codes := make([]int, 0, 3)
	for range 3 {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer tok")
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		codes = append(codes, w.Code)
	}

	if codes[0] != http.StatusOK || codes[1] != http.StatusOK || codes[2] != http.StatusTooManyRequests {
		t.Errorf("codes = %v, want [200 200 429]", codes)
	}
	events := rec.all()
	if len(events) != 1 || events[0].Type != security.EventRateLimit {
		t.Errorf("audit events = %+v", events)
	}
}

func TestAdmin_RequiresAuth(t *testing.T) {
	t.Parallel()

	tg := newTestGateway(t, nil)
	resp := tg.do(t, http.MethodGet, "/api/modules", "", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", resp.StatusCode)
	}
}
