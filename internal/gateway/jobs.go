package gateway

import (
	"net/http"
	"time"

	"github.com/flemzord/sjobs/internal/jobs"
	"github.com/flemzord/sjobs/internal/security"
	"github.com/go-chi/chi/v5"
)

// jobResponse is returned by the admin job endpoints.
type jobResponse struct {
	ID             string    `json:"id"`
	ExpirationTime time.Time `json:"expirationTime,omitzero"`
}

func (g *Gateway) handleScheduleJob() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if g.jobs == nil {
			writeError(w, http.StatusServiceUnavailable, "jobs service not configured")
			return
		}

		var req jobs.ScheduleRequest
		if err := security.DecodeJSONBody(r.Body, g.config.MaxBodySize, &req); err != nil {
			g.writeJobError(w, http.StatusBadRequest, err)
			return
		}
		desc, err := req.Description()
		if err != nil {
			g.writeJobError(w, statusFor(err), err)
			return
		}

		err = jobs.Schedule(r.Context(), g.jobs, desc)
		g.auditJob(r, security.EventJobScheduled, desc.ID, req.ProcessID, req.ProcessInstanceID, err)
		if err != nil {
			g.logger.Warn("admin schedule failed", "job_id", desc.ID, "error", err)
			g.writeJobError(w, statusFor(err), err)
			return
		}
		writeJSON(w, http.StatusCreated, jobResponse{ID: desc.ID})
	}
}

func (g *Gateway) handleGetJob() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if g.jobs == nil {
			writeError(w, http.StatusServiceUnavailable, "jobs service not configured")
			return
		}
		id := chi.URLParam(r, "id")

		at, err := g.jobs.ScheduledTime(r.Context(), id)
		g.auditJob(r, security.EventJobQueried, id, "", "", err)
		if err != nil {
			g.writeJobError(w, statusFor(err), err)
			return
		}
		writeJSON(w, http.StatusOK, jobResponse{ID: id, ExpirationTime: at})
	}
}

func (g *Gateway) handleCancelJob() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if g.jobs == nil {
			writeError(w, http.StatusServiceUnavailable, "jobs service not configured")
			return
		}
		id := chi.URLParam(r, "id")

		err := g.jobs.CancelJob(r.Context(), id)
		g.auditJob(r, security.EventJobCancelled, id, "", "", err)
		if err != nil {
			g.writeJobError(w, statusFor(err), err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// writeJobError answers with err's message passed through the redactor.
// Remote service errors quote the service's response body, which may echo
// credentials.
func (g *Gateway) writeJobError(w http.ResponseWriter, code int, err error) {
	msg := err.Error()
	if g.redactor != nil {
		msg = g.redactor.Redact(msg)
	}
	writeError(w, code, msg)
}

func (g *Gateway) auditJob(r *http.Request, typ security.EventType, jobID, processID, instanceID string, err error) {
	outcome := "ok"
	detail := ""
	if err != nil {
		outcome = "error"
		detail = err.Error()
	}
	g.audit.Log(security.AuditEvent{
		Type:              typ,
		JobID:             jobID,
		ProcessID:         processID,
		ProcessInstanceID: instanceID,
		Remote:            r.RemoteAddr,
		Outcome:           outcome,
		Detail:            detail,
	})
}
