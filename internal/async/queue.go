package async

import (
	"context"
	"time"
)

// Job asks for one account's broker aggregates to be recomputed.
type Job struct {
	Account     string
	SubmittedAt time.Time
}

// Queue is the task-execution boundary for fire-and-forget aggregation.
// Failures inside the queue are logged, never surfaced to the request that
// enqueued the job.
type Queue interface {
	Enqueue(ctx context.Context, job Job) error
	Shutdown(ctx context.Context)
}
