package jobs

import "errors"

// Sentinel errors for job service operations. Implementations wrap them
// with context; callers branch with errors.Is.
var (
	// ErrUnsupportedCapability indicates the operation is not implemented
	// by this service. Never worth retrying.
	ErrUnsupportedCapability = errors.New("jobs: unsupported capability")

	// ErrInvalidJobRequest indicates the request was rejected as malformed,
	// either locally or by the remote service.
	ErrInvalidJobRequest = errors.New("jobs: invalid job request")

	// ErrServiceUnavailable indicates a transport failure, a timeout or a
	// remote server error.
	ErrServiceUnavailable = errors.New("jobs: service unavailable")

	// ErrJobNotFound indicates the remote service has no record of the job.
	ErrJobNotFound = errors.New("jobs: job not found")
)

// IsRetryable reports whether the failure is transient. Only
// ErrServiceUnavailable qualifies; retrying a create may still duplicate
// the job if the first attempt reached the service.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrServiceUnavailable)
}
