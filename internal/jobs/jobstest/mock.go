// Package jobstest provides test helpers for the jobs package.
package jobstest

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/flemzord/sjobs/internal/jobs"
)

// MockService is a configurable test double for jobs.Service.
// Set the Func fields to control behavior. Unset funcs return nil/zero values.
// All methods are safe for concurrent use.
type MockService struct {
	ScheduleProcessJobFunc         func(ctx context.Context, desc jobs.JobDescription) error
	ScheduleProcessInstanceJobFunc func(ctx context.Context, desc jobs.JobDescription) error
	CancelJobFunc                  func(ctx context.Context, id string) error
	ScheduledTimeFunc              func(ctx context.Context, id string) (time.Time, error)
	HealthCheckFunc                func(ctx context.Context) error

	mu            sync.Mutex
	Scheduled     []jobs.JobDescription
	Cancelled     []string
	Queried       []string
	ProcessCalls  int
	InstanceCalls int
	HealthCalls   int
}

// ScheduleProcessJob records the call and delegates to ScheduleProcessJobFunc.
func (m *MockService) ScheduleProcessJob(ctx context.Context, desc jobs.JobDescription) error {
	m.mu.Lock()
	m.ProcessCalls++
	m.mu.Unlock()
	if m.ScheduleProcessJobFunc == nil {
		return nil
	}
	return m.ScheduleProcessJobFunc(ctx, desc)
}

// ScheduleProcessInstanceJob records the description and delegates to
// ScheduleProcessInstanceJobFunc.
func (m *MockService) ScheduleProcessInstanceJob(ctx context.Context, desc jobs.JobDescription) error {
	m.mu.Lock()
	m.InstanceCalls++
	m.Scheduled = append(m.Scheduled, desc)
	m.mu.Unlock()
	if m.ScheduleProcessInstanceJobFunc == nil {
		return nil
	}
	return m.ScheduleProcessInstanceJobFunc(ctx, desc)
}

// CancelJob records the id and delegates to CancelJobFunc.
func (m *MockService) CancelJob(ctx context.Context, id string) error {
	m.mu.Lock()
	m.Cancelled = append(m.Cancelled, id)
	m.mu.Unlock()
	if m.CancelJobFunc == nil {
		return nil
	}
	return m.CancelJobFunc(ctx, id)
}

// ScheduledTime records the id and delegates to ScheduledTimeFunc.
func (m *MockService) ScheduledTime(ctx context.Context, id string) (time.Time, error) {
	m.mu.Lock()
	m.Queried = append(m.Queried, id)
	m.mu.Unlock()
	if m.ScheduledTimeFunc == nil {
		return time.Time{}, nil
	}
	return m.ScheduledTimeFunc(ctx, id)
}

// HealthCheck delegates to HealthCheckFunc and tracks call count.
func (m *MockService) HealthCheck(ctx context.Context) error {
	m.mu.Lock()
	m.HealthCalls++
	m.mu.Unlock()
	if m.HealthCheckFunc == nil {
		return nil
	}
	return m.HealthCheckFunc(ctx)
}

// MockCalls is a copy of the calls a MockService has recorded.
type MockCalls struct {
	Scheduled     []jobs.JobDescription
	Cancelled     []string
	Queried       []string
	ProcessCalls  int
	InstanceCalls int
	HealthCalls   int
}

// Calls returns a snapshot of the recorded calls, for assertions made while
// other goroutines may still be calling the mock.
func (m *MockService) Calls() MockCalls {
	m.mu.Lock()
	defer m.mu.Unlock()
	return MockCalls{
		Scheduled:     slices.Clone(m.Scheduled),
		Cancelled:     slices.Clone(m.Cancelled),
		Queried:       slices.Clone(m.Queried),
		ProcessCalls:  m.ProcessCalls,
		InstanceCalls: m.InstanceCalls,
		HealthCalls:   m.HealthCalls,
	}
}

// Interface guards.
var (
	_ jobs.Service       = (*MockService)(nil)
	_ jobs.HealthChecker = (*MockService)(nil)
)
