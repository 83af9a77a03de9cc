package cron_test

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/flemzord/sjobs/internal/cron"
	"github.com/flemzord/sjobs/internal/cron/crontest"
)

func TestScheduler_RegisterJob_DuplicateName(t *testing.T) {
	t.Parallel()

	s := cron.NewScheduler(slog.Default())

	err := s.RegisterJob(&crontest.MockJob{NameVal: "test", ScheduleVal: "* * * * *"})
	if err != nil {
		t.Fatalf("first registration should succeed: %v", err)
	}

	err = s.RegisterJob(&crontest.MockJob{NameVal: "test", ScheduleVal: "* * * * *"})
	if err == nil {
		t.Fatal("duplicate registration should fail")
	}
	if s.Len() != 1 {
		t.Errorf("Len() = %d, want 1", s.Len())
	}
}

func TestScheduler_Start_InvalidSchedule(t *testing.T) {
	t.Parallel()

	s := cron.NewScheduler(slog.Default())
	_ = s.RegisterJob(&crontest.MockJob{NameVal: "bad", ScheduleVal: "invalid"})

	if err := s.Start(); err == nil {
		t.Fatal("expected error for invalid schedule")
	}
}

func TestScheduler_StartStop(t *testing.T) {
	t.Parallel()

	s := cron.NewScheduler(slog.Default())
	_ = s.RegisterJob(&crontest.MockJob{NameVal: "noop", ScheduleVal: "* * * * *"})

	if err := s.Start(); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if err := s.Stop(t.Context()); err != nil {
		t.Fatalf("stop failed: %v", err)
	}
}

func TestScheduler_NilLogger(t *testing.T) {
	t.Parallel()

	s := cron.NewScheduler(nil) // should not panic
	if err := s.Start(); err != nil {
		t.Fatal(err)
	}
	if err := s.Stop(t.Context()); err != nil {
		t.Fatal(err)
	}
}

func TestScheduler_ModuleInfo(t *testing.T) {
	t.Parallel()

	if id := cron.NewScheduler(nil).ModuleInfo().ID; id != "cron.scheduler" {
		t.Errorf("ID = %q, want cron.scheduler", id)
	}
}

func TestScheduler_RunsOnSchedule(t *testing.T) {
	t.Parallel()

	job := &crontest.MockJob{NameVal: "ticker", ScheduleVal: "@every 1s"}
	s := cron.NewScheduler(slog.Default())
	if err := s.RegisterJob(job); err != nil {
		t.Fatal(err)
	}
	if err := s.Start(); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	t.Cleanup(func() { _ = s.Stop(context.Background()) })

	select {
	case <-job.Ran():
	case <-time.After(5 * time.Second):
		t.Fatal("job never ran")
	}
	if job.LastCall().IsZero() {
		t.Error("LastCall should be set after a run")
	}
}

func TestScheduler_RunNow(t *testing.T) {
	t.Parallel()

	wantErr := errors.New("probe failed")
	job := &crontest.MockJob{
		NameVal:     "probe",
		ScheduleVal: "* * * * *",
		RunFunc:     func(context.Context) error { return wantErr },
	}
	s := cron.NewScheduler(slog.Default())
	_ = s.RegisterJob(job)

	ran, err := s.RunNow(t.Context(), "probe")
	if !ran || !errors.Is(err, wantErr) {
		t.Errorf("RunNow() = %v, %v; want true, %v", ran, err, wantErr)
	}
	if errs := job.Errors(); len(errs) != 1 || !errors.Is(errs[0], wantErr) {
		t.Errorf("recorded errors = %v, want [%v]", errs, wantErr)
	}

	if _, err := s.RunNow(t.Context(), "missing"); err == nil {
		t.Error("RunNow of unknown job should fail")
	}
}

func TestScheduler_RunNow_NoParallelExecution(t *testing.T) {
	t.Parallel()

	var concurrent, maxConcurrent atomic.Int32
	release := make(chan struct{})
	job := &crontest.MockJob{
		NameVal:     "slow",
		ScheduleVal: "* * * * *",
		RunFunc: func(context.Context) error {
			c := concurrent.Add(1)
			for {
				old := maxConcurrent.Load()
				if c <= old || maxConcurrent.CompareAndSwap(old, c) {
					break
				}
			}
			<-release
			concurrent.Add(-1)
			return nil
		},
	}
	s := cron.NewScheduler(slog.Default())
	_ = s.RegisterJob(job)

	var wg sync.WaitGroup
	var ranCount atomic.Int32
	wg.Go(func() {
		if ran, _ := s.RunNow(t.Context(), "slow"); ran {
			ranCount.Add(1)
		}
	})
	for concurrent.Load() == 0 {
		time.Sleep(time.Millisecond)
	}

	for range 10 {
		wg.Go(func() {
			if ran, _ := s.RunNow(t.Context(), "slow"); ran {
				ranCount.Add(1)
			}
		})
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	if maxConcurrent.Load() > 1 {
		t.Errorf("max concurrent = %d, want <= 1", maxConcurrent.Load())
	}
	if ranCount.Load() < 1 {
		t.Error("first RunNow should have run")
	}
}

func TestScheduler_PanicRecovered(t *testing.T) {
	t.Parallel()

	var after atomic.Int32
	s := cron.NewScheduler(slog.Default())
	_ = s.RegisterJob(&crontest.MockJob{
		NameVal:     "panics",
		ScheduleVal: "@every 1s",
		RunFunc: func(context.Context) error {
			after.Add(1)
			panic("boom")
		},
	})
	if err := s.Start(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = s.Stop(context.Background()) })

	deadline := time.Now().Add(5 * time.Second)
	for after.Load() < 2 {
		if time.Now().After(deadline) {
			t.Fatal("scheduler did not survive a panicking job")
		}
		time.Sleep(50 * time.Millisecond)
	}
}

func TestScheduler_StopWithoutStart(t *testing.T) {
	t.Parallel()

	s := cron.NewScheduler(slog.Default())
	if err := s.Stop(t.Context()); err != nil {
		t.Fatalf("stop failed: %v", err)
	}
}
