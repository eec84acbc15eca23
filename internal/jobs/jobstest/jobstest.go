// Package jobstest records enqueued jobs for assertions.
package jobstest

import (
	"context"
	"sync"

	"staybook/internal/jobs"
)

type Recorder struct {
	mu   sync.Mutex
	jobs []jobs.Job
	Err  error
}

func (r *Recorder) Enqueue(_ context.Context, job jobs.Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	r.jobs = append(r.jobs, job)
	return nil
}

// Jobs returns the recorded jobs of kind, or all of them for "".
func (r *Recorder) Jobs(kind jobs.Kind) []jobs.Job {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []jobs.Job
	for _, j := range r.jobs {
		if kind == "" || j.Kind == kind {
			out = append(out, j)
		}
	}
	return out
}

// Notifications decodes the recorded notification jobs.
func (r *Recorder) Notifications() []jobs.Notification {
	var out []jobs.Notification
	for _, j := range r.Jobs(jobs.KindNotification) {
		var n jobs.Notification
		if err := j.Decode(&n); err == nil {
			out = append(out, n)
		}
	}
	return out
}

// Actions lists the recorded audit actions in order.
func (r *Recorder) Actions() []string {
	var out []string
	for _, j := range r.Jobs(jobs.KindAudit) {
		var e jobs.AuditEntry
		if err := j.Decode(&e); err == nil {
			out = append(out, e.Action)
		}
	}
	return out
}
