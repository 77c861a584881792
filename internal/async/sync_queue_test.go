package async

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestSyncQueue_RunsJobs(t *testing.T) {
	var mu sync.Mutex
	accounts := make(map[string]int)

	q := NewSyncQueue(func(_ context.Context, account string) error {
		mu.Lock()
		accounts[account]++
		mu.Unlock()
		return nil
	}, nil, WithWorkers(2))

	for _, a := range []string{"alice@example.test", "bob@example.test", "alice@example.test"} {
		if err := q.Enqueue(context.Background(), Job{Account: a, SubmittedAt: time.Now()}); err != nil {
			t.Fatalf("enqueue: %v", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	q.Shutdown(ctx)

	mu.Lock()
	defer mu.Unlock()
	if accounts["alice@example.test"] != 2 || accounts["bob@example.test"] != 1 {
		t.Errorf("jobs run = %v, want alice twice and bob once", accounts)
	}
}

func TestSyncQueue_EnqueueAfterShutdownIsNoOp(t *testing.T) {
	q := NewSyncQueue(func(context.Context, string) error { return nil }, nil)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	q.Shutdown(ctx)

	if err := q.Enqueue(context.Background(), Job{Account: "late@example.test"}); err != nil {
		t.Fatalf("enqueue after shutdown must not error: %v", err)
	}
}
