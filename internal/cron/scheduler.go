package cron

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Scheduler tracks registered jobs and fires handler when each is due.
// Cron-kind and every-kind jobs run on the underlying robfig/cron engine;
// at-kind jobs fire once via a plain timer, since cron.Schedule has no
// native one-shot concept.
type Scheduler struct {
	mu      sync.Mutex
	jobs    map[string]*Job
	specs   map[string]schedule
	entries map[string]cron.EntryID
	timers  map[string]*time.Timer
	engine  *cron.Cron
	handler Handler
	logger  *slog.Logger
}

// NewScheduler constructs a Scheduler that invokes handler when a job
// fires. The engine is started immediately; call Stop to drain it.
func NewScheduler(handler Handler, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Scheduler{
		jobs:    map[string]*Job{},
		specs:   map[string]schedule{},
		entries: map[string]cron.EntryID{},
		timers:  map[string]*time.Timer{},
		engine:  cron.New(cron.WithParser(cronParser)),
		handler: handler,
		logger:  logger.With("component", "cron.scheduler"),
	}
	s.engine.Start()
	return s
}

// Register parses spec's schedule and adds it, replacing any prior job
// with the same id.
func (s *Scheduler) Register(spec JobSpec) (*Job, error) {
	id := strings.TrimSpace(spec.ID)
	if id == "" {
		return nil, fmt.Errorf("job id is required")
	}
	parsed, err := parseSchedule(spec.Schedule)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.unregisterLocked(id)

	job := &Job{ID: id, Name: spec.Name, Schedule: spec.Schedule}
	if next, ok, err := parsed.next(time.Now()); err == nil && ok {
		job.NextRun = next
	}
	s.jobs[id] = job
	s.specs[id] = parsed

	switch parsed.Kind {
	case "cron":
		entryID, err := s.engine.AddFunc(parsed.CronExpr, func() { s.fire(id) })
		if err != nil {
			delete(s.jobs, id)
			delete(s.specs, id)
			return nil, fmt.Errorf("schedule job: %w", err)
		}
		s.entries[id] = entryID
	case "every":
		entryID := s.engine.Schedule(cron.Every(parsed.Every), cron.FuncJob(func() { s.fire(id) }))
		s.entries[id] = entryID
	case "at":
		delay := time.Until(parsed.At)
		if delay < 0 {
			delay = 0
		}
		s.timers[id] = time.AfterFunc(delay, func() { s.fire(id) })
	}

	return job, nil
}

// fire invokes the handler for id and records the outcome. Runs on the
// cron engine's own goroutine, so it must not block the loop it reports
// into — callers wanting loop integration should hand off (e.g. enqueue)
// rather than run the Tool Loop Engine inline here.
func (s *Scheduler) fire(id string) {
	s.mu.Lock()
	job := s.jobs[id]
	handler := s.handler
	s.mu.Unlock()
	if job == nil || handler == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	err := handler(ctx, job)

	s.mu.Lock()
	defer s.mu.Unlock()
	if current := s.jobs[id]; current != nil {
		current.LastRun = time.Now()
		if err != nil {
			current.LastError = err.Error()
			s.logger.Warn("cron job failed", "job_id", id, "error", err)
		} else {
			current.LastError = ""
		}
		if spec, ok := s.specs[id]; ok {
			if next, ok, nerr := spec.next(current.LastRun); nerr == nil && ok {
				current.NextRun = next
			}
		}
	}
}

// RunNow invokes handler for id immediately, synchronously, regardless of
// its schedule.
func (s *Scheduler) RunNow(ctx context.Context, id string) error {
	s.mu.Lock()
	job := s.jobs[id]
	handler := s.handler
	s.mu.Unlock()
	if job == nil {
		return fmt.Errorf("job not found: %s", id)
	}
	if handler == nil {
		return fmt.Errorf("no handler configured")
	}
	err := handler(ctx, job)

	s.mu.Lock()
	defer s.mu.Unlock()
	if current := s.jobs[id]; current != nil {
		current.LastRun = time.Now()
		if err != nil {
			current.LastError = err.Error()
		} else {
			current.LastError = ""
		}
	}
	return err
}

// List returns all registered jobs.
func (s *Scheduler) List() []*Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Job, 0, len(s.jobs))
	for _, j := range s.jobs {
		jobCopy := *j
		out = append(out, &jobCopy)
	}
	return out
}

// Unregister removes id, returning false if it was not registered.
func (s *Scheduler) Unregister(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[id]; !ok {
		return false
	}
	s.unregisterLocked(id)
	return true
}

func (s *Scheduler) unregisterLocked(id string) {
	if entryID, ok := s.entries[id]; ok {
		s.engine.Remove(entryID)
		delete(s.entries, id)
	}
	if timer, ok := s.timers[id]; ok {
		timer.Stop()
		delete(s.timers, id)
	}
	delete(s.jobs, id)
	delete(s.specs, id)
}

// Stop drains the underlying cron engine.
func (s *Scheduler) Stop() {
	<-s.engine.Stop().Done()
}
