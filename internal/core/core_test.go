package core

import (
	"context"
	"errors"
	"slices"
	"testing"
	"time"
)

// lifecycleModule records Start/Stop calls into a shared log.
type lifecycleModule struct {
	id       ModuleID
	log      *[]string
	startErr error
	stopErr  error
}

func (m *lifecycleModule) ModuleInfo() ModuleInfo {
	return ModuleInfo{ID: m.id, New: func() Module { return m }}
}

func (m *lifecycleModule) Start() error {
	if m.startErr != nil {
		return m.startErr
	}
	*m.log = append(*m.log, "start:"+string(m.id))
	return nil
}

func (m *lifecycleModule) Stop(_ context.Context) error {
	*m.log = append(*m.log, "stop:"+string(m.id))
	return m.stopErr
}

func TestApp_StartStopOrder(t *testing.T) {
	var log []string
	app := NewApp(NewAppContext(nil, t.TempDir()))
	app.AppendModule("a", &lifecycleModule{id: "a", log: &log})
	app.AppendModule("b", &lifecycleModule{id: "b", log: &log})

	if err := app.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := app.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	want := []string{"start:a", "start:b", "stop:b", "stop:a"}
	if !slices.Equal(log, want) {
		t.Errorf("log = %v, want %v", log, want)
	}
}

func TestApp_StartFailureRollsBack(t *testing.T) {
	var log []string
	app := NewApp(NewAppContext(nil, t.TempDir()))
	app.AppendModule("a", &lifecycleModule{id: "a", log: &log})
	app.AppendModule("b", &lifecycleModule{id: "b", log: &log, startErr: errors.New("boom")})

	if err := app.Start(); err == nil {
		t.Fatal("expected start error")
	}

	want := []string{"start:a", "stop:a"}
	if !slices.Equal(log, want) {
		t.Errorf("log = %v, want %v", log, want)
	}
}

func TestApp_Module(t *testing.T) {
	var log []string
	app := NewApp(NewAppContext(nil, t.TempDir()))
	mod := &lifecycleModule{id: "jobs.rest", log: &log}
	app.AppendModule("jobs.rest", mod)

	got, ok := app.Module("jobs.rest")
	if !ok || got != mod {
		t.Errorf("Module(jobs.rest) = %v, %v", got, ok)
	}
	if _, ok := app.Module("gateway.http"); ok {
		t.Error("unexpected module for unknown ID")
	}
}

func TestApp_RunStopsOnContextDone(t *testing.T) {
	var log []string
	app := NewApp(NewAppContext(nil, t.TempDir()))
	app.AppendModule("a", &lifecycleModule{id: "a", log: &log})

	ctx, cancel := context.WithTimeout(t.Context(), 50*time.Millisecond)
	defer cancel()

	if err := app.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}

	want := []string{"start:a", "stop:a"}
	if !slices.Equal(log, want) {
		t.Errorf("log = %v, want %v", log, want)
	}
}

func TestApp_StopJoinsErrors(t *testing.T) {
	var log []string
	errA := errors.New("a failed")
	errB := errors.New("b failed")
	app := NewApp(NewAppContext(nil, t.TempDir()))
	app.ShutdownTimeout = time.Second
	app.AppendModule("a", &lifecycleModule{id: "a", log: &log, stopErr: errA})
	app.AppendModule("b", &lifecycleModule{id: "b", log: &log, stopErr: errB})

	if err := app.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	err := app.Stop()
	if !errors.Is(err, errA) || !errors.Is(err, errB) {
		t.Errorf("Stop() = %v, want both module errors", err)
	}

	// A second Stop is a no-op.
	if err := app.Stop(); err != nil {
		t.Errorf("second Stop() = %v, want nil", err)
	}
	want := []string{"start:a", "start:b", "stop:b", "stop:a"}
	if !slices.Equal(log, want) {
		t.Errorf("log = %v, want %v", log, want)
	}
}
