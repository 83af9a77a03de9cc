package rest

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/flemzord/sjobs/internal/jobs"
)

// JobRecord is the wire representation of a job exchanged with the remote
// service. Status, ExecutionCounter, Retries and ScheduledID are only set by
// the service on reads.
type JobRecord struct {
	ID                    string  `json:"id"`
	ExpirationTime        Instant `json:"expirationTime"`
	Priority              int     `json:"priority"`
	CallbackEndpoint      string  `json:"callbackEndpoint,omitempty"`
	ProcessInstanceID     string  `json:"processInstanceId,omitempty"`
	RootProcessInstanceID string  `json:"rootProcessInstanceId,omitempty"`
	ProcessID             string  `json:"processId,omitempty"`
	RootProcessID         string  `json:"rootProcessId,omitempty"`
	NodeInstanceID        string  `json:"nodeInstanceId,omitempty"`

	// RepeatInterval is in milliseconds.
	RepeatInterval *int64 `json:"repeatInterval,omitempty"`
	RepeatLimit    *int   `json:"repeatLimit,omitempty"`

	Status           string `json:"status,omitempty"`
	ExecutionCounter int    `json:"executionCounter,omitempty"`
	Retries          int    `json:"retries,omitempty"`
	ScheduledID      string `json:"scheduledId,omitempty"`
}

// Instant is a timestamp with its UTC offset preserved through encoding.
// Decoding accepts RFC 3339 with an optional trailing "[Region/City]" zone ID,
// which is applied when the zone is known.
type Instant struct {
	time.Time
}

// MarshalJSON encodes the instant as RFC 3339 with nanoseconds and offset.
func (i Instant) MarshalJSON() ([]byte, error) {
	if i.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + i.Format(time.RFC3339Nano) + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (i *Instant) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		i.Time = time.Time{}
		return nil
	}
	if len(data) < 2 || data[0] != '"' || data[len(data)-1] != '"' {
		return fmt.Errorf("rest: instant must be a string, got %s", data)
	}
	raw := string(data[1 : len(data)-1])

	var zone string
	if open := strings.IndexByte(raw, '['); open >= 0 && strings.HasSuffix(raw, "]") {
		zone = raw[open+1 : len(raw)-1]
		raw = raw[:open]
	}

	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return fmt.Errorf("rest: parse instant %q: %w", raw, err)
	}
	if zone != "" {
		if loc, err := time.LoadLocation(zone); err == nil {
			t = t.In(loc)
		}
	}
	i.Time = t
	return nil
}

// buildRecord maps an instance-level description to its wire record,
// resolving the expiration policy against now.
func buildRecord(desc jobs.JobDescription, ref jobs.ProcessInstanceReference, callbackBase string, now time.Time) (JobRecord, error) {
	at, ok := desc.Expiration.Next(now)
	if !ok {
		return JobRecord{}, fmt.Errorf("%w: job %s: expiration policy has no fire instant", jobs.ErrInvalidJobRequest, desc.ID)
	}

	callback, err := CallbackURL(callbackBase, ref, desc.ID)
	if err != nil {
		return JobRecord{}, err
	}

	rec := JobRecord{
		ID:                    desc.ID,
		ExpirationTime:        Instant{at},
		Priority:              desc.Priority,
		CallbackEndpoint:      callback,
		ProcessInstanceID:     ref.ProcessInstanceID,
		RootProcessInstanceID: ref.RootProcessInstanceID,
		ProcessID:             ref.ProcessID,
		RootProcessID:         ref.RootProcessID,
		NodeInstanceID:        ref.NodeInstanceID,
	}

	if interval := desc.Expiration.RepeatInterval(); interval > 0 {
		ms := interval.Milliseconds()
		limit := desc.Expiration.RepeatLimit()
		rec.RepeatInterval = &ms
		rec.RepeatLimit = &limit
	}

	return rec, nil
}

// CallbackURL builds the address the remote service invokes when the job
// fires: {base}/management/jobs/{processId}/instances/{processInstanceId}/timers/{jobId}.
func CallbackURL(base string, ref jobs.ProcessInstanceReference, jobID string) (string, error) {
	root, err := url.JoinPath(base, "management", "jobs")
	if err != nil {
		return "", fmt.Errorf("%w: callback url: %v", jobs.ErrInvalidJobRequest, err)
	}

	parts := []struct{ name, value string }{
		{"process id", ref.ProcessID},
		{"", "instances"},
		{"process instance id", ref.ProcessInstanceID},
		{"", "timers"},
		{"job id", jobID},
	}
	var b strings.Builder
	b.WriteString(root)
	for _, p := range parts {
		seg := p.value
		if p.name != "" {
			if seg, err = pathSegment(p.name, p.value); err != nil {
				return "", err
			}
		}
		b.WriteByte('/')
		b.WriteString(seg)
	}
	return b.String(), nil
}

// pathSegment escapes value for use as one path segment. Empty and dot
// segments are rejected: path cleaning would drop them and address the
// parent resource instead.
func pathSegment(name, value string) (string, error) {
	switch value {
	case "", ".", "..":
		return "", fmt.Errorf("%w: %s %q is not a valid path segment", jobs.ErrInvalidJobRequest, name, value)
	}
	return url.PathEscape(value), nil
}
