package jobs

import (
	"context"
	"fmt"
	"time"
)

// Service schedules, cancels and queries jobs held by a remote job service.
// Implementations hold no per-job state: every query is answered by the
// remote service.
type Service interface {
	// ScheduleProcessJob schedules a definition-level job.
	ScheduleProcessJob(ctx context.Context, desc JobDescription) error

	// ScheduleProcessInstanceJob schedules a job targeting a running
	// process instance. desc.Target must be a ProcessInstanceReference.
	ScheduleProcessInstanceJob(ctx context.Context, desc JobDescription) error

	// CancelJob removes a scheduled job. A job the remote service no longer
	// knows about yields ErrJobNotFound.
	CancelJob(ctx context.Context, id string) error

	// ScheduledTime returns the job's current expiration instant as held
	// by the remote service.
	ScheduledTime(ctx context.Context, id string) (time.Time, error)
}

// HealthChecker is implemented by services that can probe the remote side.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Schedule dispatches desc to the Service operation matching its target.
func Schedule(ctx context.Context, svc Service, desc JobDescription) error {
	switch desc.Target.(type) {
	case ProcessReference:
		return svc.ScheduleProcessJob(ctx, desc)
	case ProcessInstanceReference:
		return svc.ScheduleProcessInstanceJob(ctx, desc)
	case nil:
		return fmt.Errorf("%w: job %s has no target", ErrInvalidJobRequest, desc.ID)
	default:
		return fmt.Errorf("%w: target %T", ErrUnsupportedCapability, desc.Target)
	}
}
