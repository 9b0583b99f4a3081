package cron

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func TestRegisterEveryFiresHandler(t *testing.T) {
	var calls int32
	done := make(chan struct{}, 1)
	s := NewScheduler(func(ctx context.Context, job *Job) error {
		if atomic.AddInt32(&calls, 1) == 1 {
			done <- struct{}{}
		}
		return nil
	}, nil)
	defer s.Stop()

	if _, err := s.Register(JobSpec{ID: "tick", Schedule: ScheduleSpec{Every: 20 * time.Millisecond}}); err != nil {
		t.Fatalf("Register: %v", err)
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("handler never fired")
	}
}

func TestRegisterRejectsEmptySchedule(t *testing.T) {
	s := NewScheduler(nil, nil)
	defer s.Stop()
	if _, err := s.Register(JobSpec{ID: "x"}); err == nil {
		t.Fatalf("expected error for empty schedule")
	}
}

func TestRegisterRejectsInvalidCronExpr(t *testing.T) {
	s := NewScheduler(nil, nil)
	defer s.Stop()
	if _, err := s.Register(JobSpec{ID: "x", Schedule: ScheduleSpec{Cron: "not a cron expr"}}); err == nil {
		t.Fatalf("expected error for invalid cron expression")
	}
}

func TestUnregisterStopsFutureFires(t *testing.T) {
	var calls int32
	s := NewScheduler(func(ctx context.Context, job *Job) error {
		atomic.AddInt32(&calls, 1)
		return nil
	}, nil)
	defer s.Stop()

	if _, err := s.Register(JobSpec{ID: "tick", Schedule: ScheduleSpec{Every: 15 * time.Millisecond}}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	time.Sleep(30 * time.Millisecond)
	if !s.Unregister("tick") {
		t.Fatalf("expected job to be found for unregister")
	}
	after := atomic.LoadInt32(&calls)
	time.Sleep(60 * time.Millisecond)
	if atomic.LoadInt32(&calls) > after+1 {
		t.Fatalf("job kept firing after unregister: before=%d after=%d", after, atomic.LoadInt32(&calls))
	}
}

func TestRunNowInvokesHandlerImmediately(t *testing.T) {
	invoked := make(chan struct{}, 1)
	s := NewScheduler(func(ctx context.Context, job *Job) error {
		invoked <- struct{}{}
		return nil
	}, nil)
	defer s.Stop()

	if _, err := s.Register(JobSpec{ID: "manual", Schedule: ScheduleSpec{Cron: "@yearly"}}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := s.RunNow(context.Background(), "manual"); err != nil {
		t.Fatalf("RunNow: %v", err)
	}
	select {
	case <-invoked:
	case <-time.After(time.Second):
		t.Fatalf("RunNow did not invoke handler")
	}
}

func TestListReturnsDefensiveCopies(t *testing.T) {
	s := NewScheduler(nil, nil)
	defer s.Stop()
	if _, err := s.Register(JobSpec{ID: "a", Schedule: ScheduleSpec{Cron: "@yearly"}}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	jobs := s.List()
	jobs[0].Name = "mutated"
	if s.List()[0].Name == "mutated" {
		t.Fatalf("List leaked internal state")
	}
}
