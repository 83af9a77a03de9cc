package gateway

import (
	"net/http"

	"github.com/flemzord/sjobs/internal/jobs"
)

// HealthResponse is the JSON response for GET /health.
type HealthResponse struct {
	Status     string            `json:"status"` // "ok" or "degraded"
	JobService *jobs.ProbeReport `json:"job_service,omitempty"`
}

// handleHealth returns 200 while the last jobs service probe succeeded and
// 503 once it fails.
func (g *Gateway) handleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		resp := HealthResponse{Status: "ok"}
		code := http.StatusOK

		if g.probe != nil {
			report := g.probe.Report()
			resp.JobService = &report
			if !report.Available {
				resp.Status = "degraded"
				code = http.StatusServiceUnavailable
			}
		}

		writeJSON(w, code, resp)
	}
}
