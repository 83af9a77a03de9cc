package jobs

import (
	"sync"
	"time"
)

// ProbeStatus holds the outcome of the latest health probe against the
// remote job service. Safe for concurrent use.
type ProbeStatus struct {
	mu        sync.RWMutex
	checked   bool
	available bool
	lastErr   string
	checkedAt time.Time
}

// ProbeReport is a point-in-time copy of a ProbeStatus.
type ProbeReport struct {
	Checked   bool      `json:"checked"`
	Available bool      `json:"available"`
	Error     string    `json:"error,omitempty"`
	CheckedAt time.Time `json:"checked_at,omitzero"`
}

// Record stores the outcome of a probe taken at the given instant.
func (s *ProbeStatus) Record(err error, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checked = true
	s.available = err == nil
	s.checkedAt = at
	s.lastErr = ""
	if err != nil {
		s.lastErr = err.Error()
	}
}

// Report returns the latest probe outcome. Before the first probe the
// service is reported as available.
func (s *ProbeStatus) Report() ProbeReport {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.checked {
		return ProbeReport{Available: true}
	}
	return ProbeReport{
		Checked:   true,
		Available: s.available,
		Error:     s.lastErr,
		CheckedAt: s.checkedAt,
	}
}
