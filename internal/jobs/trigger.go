package jobs

import "context"

// Trigger is delivered to the process engine when the remote service calls
// back for a fired job.
type Trigger struct {
	JobID             string
	ProcessID         string
	ProcessInstanceID string

	// Limit is the number of repetitions still pending after this firing.
	Limit int

	// ExecutionCounter is how many times the remote service has fired the job.
	ExecutionCounter int
}

// TriggerHandler resumes the process engine for a fired job.
type TriggerHandler interface {
	HandleTrigger(ctx context.Context, t Trigger) error
}

// TriggerHandlerFunc adapts a function to TriggerHandler.
type TriggerHandlerFunc func(ctx context.Context, t Trigger) error

// HandleTrigger implements TriggerHandler.
func (f TriggerHandlerFunc) HandleTrigger(ctx context.Context, t Trigger) error {
	return f(ctx, t)
}
