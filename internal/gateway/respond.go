package gateway

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/flemzord/sjobs/internal/jobs"
)

// errorResponse is the JSON body of every non-2xx gateway answer.
type errorResponse struct {
	Error string `json:"error"`
}

// writeJSON encodes v as JSON with the given status code.
func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, errorResponse{Error: msg})
}

// statusFor maps a jobs error to the HTTP status the admin API answers with.
func statusFor(err error) int {
	switch {
	case errors.Is(err, jobs.ErrJobNotFound):
		return http.StatusNotFound
	case errors.Is(err, jobs.ErrInvalidJobRequest):
		return http.StatusBadRequest
	case errors.Is(err, jobs.ErrUnsupportedCapability):
		return http.StatusNotImplemented
	case errors.Is(err, jobs.ErrServiceUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
