package driving

import "context"

// Scheduler runs the corpus maintenance tasks on their cron schedules.
type Scheduler interface {
	// Start begins running scheduled tasks.
	// Blocks until context is cancelled or Stop is called.
	Start(ctx context.Context) error

	// Stop waits for running tasks and stops the loop.
	Stop() error

	// RunNow executes one task immediately, outside its schedule.
	RunNow(ctx context.Context, taskID string) (int, error)
}
