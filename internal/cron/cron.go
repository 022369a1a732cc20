// Package cron schedules periodic maintenance work: dedup window sweeps,
// session eviction, and delivery journal pruning.
package cron

import "context"

// Job is a periodic background task.
type Job interface {
	// Name uniquely identifies the job in logs and the scheduler.
	Name() string
	// Schedule returns a 5-field cron expression, e.g. "*/10 * * * *".
	Schedule() string
	// Run executes one tick. Implementations should honor ctx cancellation.
	Run(ctx context.Context) error
}

// FuncJob adapts a plain function into a Job.
type FuncJob struct {
	JobName string
	Expr    string
	Fn      func(ctx context.Context) error
}

func (j FuncJob) Name() string                  { return j.JobName }
func (j FuncJob) Schedule() string              { return j.Expr }
func (j FuncJob) Run(ctx context.Context) error { return j.Fn(ctx) }
