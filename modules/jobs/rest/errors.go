package rest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/flemzord/sjobs/internal/jobs"
)

// maxErrorMessage caps how much of a remote error body ends up in an error.
const maxErrorMessage = 512

// operation names a remote call. It scopes status mapping and labels
// metrics and spans.
type operation string

const (
	opSchedule operation = "schedule"
	opCancel   operation = "cancel"
	opQuery    operation = "query"
	opHealth   operation = "health"
)

// addressesJob reports whether the operation targets a single job URL, where
// 404 means the job is gone rather than the request being wrong.
func (op operation) addressesJob() bool {
	return op == opCancel || op == opQuery
}

// mapHTTPError maps an HTTP status code and response body to a jobs sentinel
// error. Returns nil for 2xx status codes. Unknown codes fail safe as
// ErrServiceUnavailable.
func mapHTTPError(op operation, statusCode int, body []byte) error {
	if statusCode >= 200 && statusCode < 300 {
		return nil
	}

	msg := errorMessage(body)

	switch {
	case statusCode == http.StatusNotFound && op.addressesJob():
		return fmt.Errorf("%w: HTTP %d: %s", jobs.ErrJobNotFound, statusCode, msg)
	case statusCode == http.StatusRequestTimeout || statusCode == http.StatusTooManyRequests:
		return fmt.Errorf("%w: HTTP %d: %s", jobs.ErrServiceUnavailable, statusCode, msg)
	case statusCode >= 400 && statusCode < 500:
		return fmt.Errorf("%w: HTTP %d: %s", jobs.ErrInvalidJobRequest, statusCode, msg)
	default:
		return fmt.Errorf("%w: HTTP %d: %s", jobs.ErrServiceUnavailable, statusCode, msg)
	}
}

// mapTransportError maps a failed round trip to ErrServiceUnavailable. The
// transport error is formatted, not wrapped, so net and url error types never
// reach callers.
func mapTransportError(err error) error {
	if err == nil {
		return nil
	}
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return fmt.Errorf("%w: request timed out: %v", jobs.ErrServiceUnavailable, err)
	}
	return fmt.Errorf("%w: %v", jobs.ErrServiceUnavailable, err)
}

// remoteError is the error body shape returned by the job service.
type remoteError struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

func errorMessage(body []byte) string {
	var re remoteError
	if json.Unmarshal(body, &re) == nil {
		if re.Message != "" {
			return re.Message
		}
		if re.Error != "" {
			return re.Error
		}
	}
	msg := strings.TrimSpace(string(body))
	if len(msg) > maxErrorMessage {
		msg = msg[:maxErrorMessage] + "..."
	}
	if msg == "" {
		msg = "empty response"
	}
	return msg
}

// outcome classifies an operation result for metrics and spans.
func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, jobs.ErrJobNotFound):
		return "not_found"
	case errors.Is(err, jobs.ErrInvalidJobRequest):
		return "invalid"
	case errors.Is(err, jobs.ErrUnsupportedCapability):
		return "unsupported"
	default:
		return "unavailable"
	}
}
