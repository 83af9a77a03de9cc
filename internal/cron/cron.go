// Package cron runs periodic background tasks, such as the jobs service
// health probe, on 5-field cron schedules.
package cron

import "context"

// Job is a task the Scheduler fires on its schedule.
type Job interface {
	// Name identifies the job in logs and in RunNow. Names are unique per
	// scheduler.
	Name() string

	// Schedule is a 5-field cron expression or a descriptor such as
	// "@every 30s".
	Schedule() string

	// Run performs one execution. ctx is cancelled when the scheduler stops.
	Run(ctx context.Context) error
}
