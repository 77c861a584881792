package async

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// SyncFunc recomputes broker aggregates for one account.
type SyncFunc func(ctx context.Context, account string) error

// SyncQueue runs aggregation jobs on a small worker pool, detached from the
// requests that enqueue them.
type SyncQueue struct {
	run     SyncFunc
	logger  *slog.Logger
	workers int
	timeout time.Duration

	ch   chan Job
	wg   sync.WaitGroup
	once sync.Once

	mu     sync.Mutex
	closed bool
}

type Option func(*SyncQueue)

func WithWorkers(n int) Option {
	return func(q *SyncQueue) {
		if n > 0 {
			q.workers = n
		}
	}
}

func WithQueueSize(n int) Option {
	return func(q *SyncQueue) {
		if n > 0 {
			q.ch = make(chan Job, n)
		}
	}
}

func WithJobTimeout(d time.Duration) Option {
	return func(q *SyncQueue) {
		if d > 0 {
			q.timeout = d
		}
	}
}

func NewSyncQueue(run SyncFunc, logger *slog.Logger, opts ...Option) *SyncQueue {
	if logger == nil {
		logger = slog.Default()
	}
	q := &SyncQueue{
		run:     run,
		logger:  logger,
		workers: 2,
		timeout: 2 * time.Minute,
		ch:      make(chan Job, 64),
	}
	for _, o := range opts {
		o(q)
	}
	q.start()
	return q
}

func (q *SyncQueue) start() {
	q.once.Do(func() {
		for i := 0; i < q.workers; i++ {
			q.wg.Add(1)
			go func(workerID int) {
				defer q.wg.Done()
				q.logger.Info("sync worker started", "worker_id", workerID)

				for job := range q.ch {
					ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
					err := q.run(ctx, job.Account)
					cancel()

					if err != nil {
						q.logger.Error("crm sync failed", "worker_id", workerID, "account", job.Account, "error", err)
					} else {
						q.logger.Info("crm sync complete", "worker_id", workerID, "account", job.Account)
					}
				}

				q.logger.Info("sync worker stopped", "worker_id", workerID)
			}(i + 1)
		}
	})
}

func (q *SyncQueue) Enqueue(_ context.Context, job Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		q.logger.Warn("cannot enqueue: queue is shutting down", "account", job.Account)
		return nil
	}
	select {
	case q.ch <- job:
		q.logger.Info("queued crm sync", "account", job.Account)
	default:
		q.logger.Warn("sync queue full, applying backpressure", "account", job.Account)
		q.ch <- job
	}
	return nil
}

func (q *SyncQueue) Shutdown(ctx context.Context) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.ch)
	q.mu.Unlock()

	done := make(chan struct{})
	go func() { defer close(done); q.wg.Wait() }()

	select {
	case <-ctx.Done():
		q.logger.Warn("shutdown interrupted by context")
	case <-done:
		q.logger.Info("queue drained, shutdown complete")
	}
}
