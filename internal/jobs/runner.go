package jobs

import (
	"context"
	"log/slog"
	"time"
)

// Job is one unit of periodic maintenance work.
type Job struct {
	// Type labels the job in logs and metrics; use one of the JobType constants.
	Type string

	// Interval between runs. Must be > 0.
	Interval time.Duration

	// Run does the work. An error is recorded and the next tick retries.
	Run func(ctx context.Context) error
}

// Runner executes registered jobs on their intervals until the context is
// cancelled. Each job gets its own ticker goroutine.
type Runner struct {
	metrics *Metrics
	jobs    []Job
}

// NewRunner creates a runner. metrics may be nil.
func NewRunner(metrics *Metrics) *Runner {
	return &Runner{metrics: metrics}
}

// Add registers a job. Not safe to call after Start.
func (r *Runner) Add(job Job) {
	r.jobs = append(r.jobs, job)
}

// Start launches every registered job. It returns immediately; the job
// goroutines stop when ctx is cancelled.
func (r *Runner) Start(ctx context.Context) {
	for _, job := range r.jobs {
		go r.loop(ctx, job)
	}
}

func (r *Runner) loop(ctx context.Context, job Job) {
	ticker := time.NewTicker(job.Interval)
	defer ticker.Stop()

	slog.Info("background job started", "job_type", job.Type, "interval", job.Interval)
	for {
		select {
		case <-ctx.Done():
			slog.Info("background job stopped", "job_type", job.Type)
			return
		case <-ticker.C:
			r.runOnce(ctx, job)
		}
	}
}

func (r *Runner) runOnce(ctx context.Context, job Job) {
	start := time.Now()
	err := job.Run(ctx)
	r.metrics.ObserveJobDuration(job.Type, time.Since(start).Seconds())

	if err != nil {
		r.metrics.IncJobsTotal(job.Type, StatusFailure)
		r.metrics.IncJobErrors(job.Type, "run_error")
		slog.WarnContext(ctx, "background job failed", "job_type", job.Type, "error", err)
		return
	}
	r.metrics.IncJobsTotal(job.Type, StatusSuccess)
}
