// Package cron implements schedule parsing and a minimal in-process
// scheduler backing the "cron" direct tool: register/list/run/unregister
// a job by id, invoking a caller-supplied handler when it fires.
package cron

import (
	"context"
	"time"
)

// ScheduleSpec is the caller-facing schedule description: exactly one of
// Cron, Every, or At must be set.
type ScheduleSpec struct {
	Cron     string        `json:"cron,omitempty"`
	Every    time.Duration `json:"every,omitempty"`
	At       string        `json:"at,omitempty"`
	Timezone string        `json:"timezone,omitempty"`
}

// JobSpec is what a caller registers.
type JobSpec struct {
	ID       string       `json:"id"`
	Name     string       `json:"name"`
	Schedule ScheduleSpec `json:"schedule"`
}

// Job is a registered, scheduled job with its run bookkeeping.
type Job struct {
	ID        string       `json:"id"`
	Name      string       `json:"name"`
	Schedule  ScheduleSpec `json:"schedule"`
	NextRun   time.Time    `json:"next_run,omitempty"`
	LastRun   time.Time    `json:"last_run,omitempty"`
	LastError string       `json:"last_error,omitempty"`
}

// Handler is invoked when a job fires, whether by the scheduler or by an
// explicit "run" action.
type Handler func(ctx context.Context, job *Job) error
