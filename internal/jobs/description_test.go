package jobs

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestNewProcessInstanceJob_GeneratesID(t *testing.T) {
	t.Parallel()

	d := NewProcessInstanceJob("", ExactNow(), 1, "pi-1", "orders")
	if d.ID == "" {
		t.Fatal("expected generated ID")
	}

	ref, ok := d.Target.(ProcessInstanceReference)
	if !ok {
		t.Fatalf("target = %T, want ProcessInstanceReference", d.Target)
	}
	if ref.ProcessInstanceID != "pi-1" || ref.ProcessID != "orders" {
		t.Errorf("target = %+v", ref)
	}
	if err := d.Validate(); err != nil {
		t.Errorf("Validate() = %v", err)
	}
}

func TestNewProcessInstanceJob_KeepsCallerID(t *testing.T) {
	t.Parallel()

	d := NewProcessInstanceJob("123", ExactNow(), 0, "pi-1", "orders")
	if d.ID != "123" {
		t.Errorf("ID = %q, want 123", d.ID)
	}
}

func TestNewProcessJob(t *testing.T) {
	t.Parallel()

	a := NewProcessJob(ExactNow(), 1, "orders")
	b := NewProcessJob(ExactNow(), 1, "orders")
	if a.ID == b.ID {
		t.Error("expected distinct generated IDs")
	}
	if a.Target.Process() != "orders" {
		t.Errorf("Process() = %q, want orders", a.Target.Process())
	}
}

func TestJobDescription_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		desc    JobDescription
		wantSub []string
	}{
		{
			name:    "empty",
			desc:    JobDescription{},
			wantSub: []string{"id is required", "expiration is required", "target is required"},
		},
		{
			name: "instance without ids",
			desc: JobDescription{
				ID:         "x",
				Expiration: After(time.Second),
				Target:     ProcessInstanceReference{},
			},
			wantSub: []string{"process id is required", "process instance id is required"},
		},
		{
			name: "process without id",
			desc: JobDescription{
				ID:         "x",
				Expiration: After(time.Second),
				Target:     ProcessReference{},
			},
			wantSub: []string{"process id is required"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.desc.Validate()
			if !errors.Is(err, ErrInvalidJobRequest) {
				t.Fatalf("Validate() = %v, want ErrInvalidJobRequest", err)
			}
			for _, sub := range tt.wantSub {
				if !strings.Contains(err.Error(), sub) {
					t.Errorf("error %q should mention %q", err, sub)
				}
			}
		})
	}
}
