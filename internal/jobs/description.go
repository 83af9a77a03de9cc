// Package jobs defines the domain model for remotely scheduled jobs: when a
// job fires, what it targets, and the service contract used by the process
// engine to schedule, cancel and query jobs.
package jobs

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Target identifies what a job resumes when it fires. The set of variants is
// closed: ProcessReference and ProcessInstanceReference.
type Target interface {
	// Process returns the process definition ID the target belongs to.
	Process() string

	jobTarget()
}

var (
	_ Target = ProcessReference{}
	_ Target = ProcessInstanceReference{}
)

// ProcessReference targets a process definition, for triggers that start
// new instances rather than resume a running one.
type ProcessReference struct {
	ProcessID string
}

// Process implements Target.
func (r ProcessReference) Process() string { return r.ProcessID }

func (ProcessReference) jobTarget() {}

// ProcessInstanceReference targets a running process instance, for timers
// and deadlines attached to it.
type ProcessInstanceReference struct {
	ProcessInstanceID     string
	ProcessID             string
	RootProcessInstanceID string
	RootProcessID         string
	NodeInstanceID        string
}

// Process implements Target.
func (r ProcessInstanceReference) Process() string { return r.ProcessID }

func (ProcessInstanceReference) jobTarget() {}

// JobDescription is what the process engine asks to schedule. It is a value:
// services never retain it beyond a single call.
type JobDescription struct {
	ID         string
	Target     Target
	Priority   int
	Expiration ExpirationPolicy
}

// NewJobID returns a fresh random job identifier.
func NewJobID() string {
	return uuid.NewString()
}

// NewProcessJob describes a definition-level job with a generated ID.
func NewProcessJob(expiration ExpirationPolicy, priority int, processID string) JobDescription {
	return JobDescription{
		ID:         NewJobID(),
		Target:     ProcessReference{ProcessID: processID},
		Priority:   priority,
		Expiration: expiration,
	}
}

// NewProcessInstanceJob describes an instance-level job. An empty id is
// replaced with a generated one.
func NewProcessInstanceJob(id string, expiration ExpirationPolicy, priority int, processInstanceID, processID string) JobDescription {
	if id == "" {
		id = NewJobID()
	}
	return JobDescription{
		ID: id,
		Target: ProcessInstanceReference{
			ProcessInstanceID: processInstanceID,
			ProcessID:         processID,
		},
		Priority:   priority,
		Expiration: expiration,
	}
}

// Validate checks that every required field is present. All problems are
// reported together, each wrapping ErrInvalidJobRequest.
func (d JobDescription) Validate() error {
	var errs []error
	if d.ID == "" {
		errs = append(errs, fmt.Errorf("%w: id is required", ErrInvalidJobRequest))
	}
	if d.Expiration == nil {
		errs = append(errs, fmt.Errorf("%w: expiration is required", ErrInvalidJobRequest))
	}

	switch t := d.Target.(type) {
	case nil:
		errs = append(errs, fmt.Errorf("%w: target is required", ErrInvalidJobRequest))
	case ProcessReference:
		if t.ProcessID == "" {
			errs = append(errs, fmt.Errorf("%w: process id is required", ErrInvalidJobRequest))
		}
	case ProcessInstanceReference:
		if t.ProcessID == "" {
			errs = append(errs, fmt.Errorf("%w: process id is required", ErrInvalidJobRequest))
		}
		if t.ProcessInstanceID == "" {
			errs = append(errs, fmt.Errorf("%w: process instance id is required", ErrInvalidJobRequest))
		}
	default:
		errs = append(errs, fmt.Errorf("%w: target %T", ErrUnsupportedCapability, t))
	}

	return errors.Join(errs...)
}
