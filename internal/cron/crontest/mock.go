// Package crontest provides test doubles for the cron package.
package crontest

import (
	"context"
	"sync"
	"time"

	"github.com/flemzord/sjobs/internal/cron"
)

var _ cron.Job = (*MockJob)(nil)

// MockJob is a cron.Job whose behavior is set by RunFunc. It records every
// execution and its result.
type MockJob struct {
	NameVal     string
	ScheduleVal string
	RunFunc     func(ctx context.Context) error

	mu      sync.Mutex
	runs    []time.Time
	errs    []error
	notify  chan struct{}
	notOnce sync.Once
}

// Name implements cron.Job.
func (m *MockJob) Name() string { return m.NameVal }

// Schedule implements cron.Job.
func (m *MockJob) Schedule() string { return m.ScheduleVal }

// Run implements cron.Job.
func (m *MockJob) Run(ctx context.Context) error {
	started := time.Now()
	var err error
	if m.RunFunc != nil {
		defer func() { m.record(started, err) }()
		err = m.RunFunc(ctx)
		return err
	}
	m.record(started, nil)
	return nil
}

func (m *MockJob) record(at time.Time, err error) {
	m.mu.Lock()
	m.runs = append(m.runs, at)
	m.errs = append(m.errs, err)
	m.mu.Unlock()

	select {
	case m.ran() <- struct{}{}:
	default:
	}
}

func (m *MockJob) ran() chan struct{} {
	m.notOnce.Do(func() { m.notify = make(chan struct{}, 1) })
	return m.notify
}

// Ran receives after each completed execution. Signals are coalesced when
// nobody is waiting.
func (m *MockJob) Ran() <-chan struct{} { return m.ran() }

// CallCount returns the number of completed executions.
func (m *MockJob) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.runs)
}

// LastCall returns the start time of the latest execution.
func (m *MockJob) LastCall() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.runs) == 0 {
		return time.Time{}
	}
	return m.runs[len(m.runs)-1]
}

// Errors returns the result of every execution in order.
func (m *MockJob) Errors() []error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]error(nil), m.errs...)
}
