package gateway

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"sync"

	"github.com/flemzord/sjobs/internal/jobs"
	"github.com/flemzord/sjobs/internal/security"
	"github.com/go-chi/chi/v5"
)

// AnyProcess registers a handler for callbacks whose process has no
// dedicated handler.
const AnyProcess = "*"

// callbackPayload is the optional JSON body of a timer callback.
type callbackPayload struct {
	Limit            *int `json:"limit"`
	ExecutionCounter *int `json:"executionCounter"`
}

// CallbackDispatcher routes job service callbacks to the trigger handler
// registered for the target process.
type CallbackDispatcher struct {
	mu       sync.RWMutex
	handlers map[string]jobs.TriggerHandler
	secret   string
	maxBody  int
	logger   *slog.Logger

	metrics *Metrics
	audit   *security.AuditLogger
	limiter *security.RateLimiter
}

// NewCallbackDispatcher creates a ready-to-use dispatcher. A non-empty
// secret enables HMAC validation of callback bodies.
func NewCallbackDispatcher(logger *slog.Logger, secret string) *CallbackDispatcher {
	return &CallbackDispatcher{
		handlers: make(map[string]jobs.TriggerHandler),
		secret:   secret,
		maxBody:  security.DefaultMaxBodySize,
		logger:   logger,
	}
}

// Register sets the handler for processID, replacing any previous one.
// Use AnyProcess for the fallback handler.
func (d *CallbackDispatcher) Register(processID string, h jobs.TriggerHandler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[processID] = h
}

// Unregister removes the handler for processID.
func (d *CallbackDispatcher) Unregister(processID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.handlers, processID)
}

func (d *CallbackDispatcher) handler(processID string) (jobs.TriggerHandler, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if h, ok := d.handlers[processID]; ok {
		return h, true
	}
	h, ok := d.handlers[AnyProcess]
	return h, ok
}

// ServeHTTP implements http.Handler. It must be mounted on a chi route that
// defines processId, processInstanceId and timerId.
func (d *CallbackDispatcher) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if err := d.limiter.Allow(security.KindCallback); err != nil {
		d.audit.Log(security.AuditEvent{Type: security.EventRateLimit, Remote: r.RemoteAddr, Detail: r.URL.Path})
		d.metrics.RecordCallback("rejected")
		writeError(w, http.StatusTooManyRequests, "too many requests")
		return
	}

	trigger := jobs.Trigger{
		JobID:             chi.URLParam(r, "timerId"),
		ProcessID:         chi.URLParam(r, "processId"),
		ProcessInstanceID: chi.URLParam(r, "processInstanceId"),
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, int64(d.maxBody)+1))
	if err != nil {
		d.reject(w, http.StatusBadRequest, "failed to read body")
		return
	}
	if len(body) > d.maxBody {
		d.reject(w, http.StatusRequestEntityTooLarge, "body too large")
		return
	}

	if d.secret != "" && !validateHMAC(body, r.Header.Get("X-Signature-256"), d.secret) {
		d.audit.Log(security.AuditEvent{
			Type:   security.EventAuthFailure,
			JobID:  trigger.JobID,
			Remote: r.RemoteAddr,
			Detail: "invalid callback signature",
		})
		d.reject(w, http.StatusUnauthorized, "invalid signature")
		return
	}

	if err := applyPayload(&trigger, body, r); err != nil {
		d.reject(w, http.StatusBadRequest, err.Error())
		return
	}

	h, ok := d.handler(trigger.ProcessID)
	if !ok {
		d.logger.Warn("callback for process without handler",
			"process_id", trigger.ProcessID,
			"job_id", trigger.JobID,
		)
		d.metrics.RecordCallback("unknown_process")
		writeError(w, http.StatusNotFound, "no handler for process")
		return
	}

	if err := h.HandleTrigger(r.Context(), trigger); err != nil {
		d.logger.Error("trigger handler failed",
			"process_id", trigger.ProcessID,
			"process_instance_id", trigger.ProcessInstanceID,
			"job_id", trigger.JobID,
			"error", err,
		)
		d.metrics.RecordCallback("handler_error")
		d.auditTrigger(r, trigger, "error")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	d.metrics.RecordCallback("dispatched")
	d.auditTrigger(r, trigger, "ok")
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (d *CallbackDispatcher) reject(w http.ResponseWriter, code int, msg string) {
	d.metrics.RecordCallback("rejected")
	writeError(w, code, msg)
}

func (d *CallbackDispatcher) auditTrigger(r *http.Request, t jobs.Trigger, outcome string) {
	d.audit.Log(security.AuditEvent{
		Type:              security.EventJobTriggered,
		JobID:             t.JobID,
		ProcessID:         t.ProcessID,
		ProcessInstanceID: t.ProcessInstanceID,
		Remote:            r.RemoteAddr,
		Outcome:           outcome,
	})
}

// applyPayload fills the repetition fields from the optional JSON body and
// the "limit" query parameter, which wins when both are present.
func applyPayload(t *jobs.Trigger, body []byte, r *http.Request) error {
	if len(bytes.TrimSpace(body)) > 0 {
		if err := security.ValidateJSONDepth(body, 0); err != nil {
			return err
		}
		var p callbackPayload
		if err := json.Unmarshal(body, &p); err != nil {
			return err
		}
		if p.Limit != nil {
			t.Limit = *p.Limit
		}
		if p.ExecutionCounter != nil {
			t.ExecutionCounter = *p.ExecutionCounter
		}
	}
	if q := r.URL.Query().Get("limit"); q != "" {
		n, err := strconv.Atoi(q)
		if err != nil {
			return err
		}
		t.Limit = n
	}
	return nil
}

// validateHMAC checks HMAC-SHA256 signature in constant time.
func validateHMAC(body []byte, signature, secret string) bool {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := "sha256=" + hex.EncodeToString(mac.Sum(nil))
	return subtle.ConstantTimeCompare([]byte(expected), []byte(signature)) == 1
}
