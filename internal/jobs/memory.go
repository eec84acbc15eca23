package jobs

import (
	"context"
	"sync"
)

// MemoryQueue runs jobs on a fixed pool of in-process workers.
type MemoryQueue struct {
	d    *Dispatcher
	jobs chan Job

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

func NewMemoryQueue(d *Dispatcher, workers, buffer int) *MemoryQueue {
	if workers <= 0 {
		workers = 1
	}
	q := &MemoryQueue{d: d, jobs: make(chan Job, buffer)}
	for i := 0; i < workers; i++ {
		q.wg.Add(1)
		go q.worker()
	}
	return q
}

func (q *MemoryQueue) worker() {
	defer q.wg.Done()
	for job := range q.jobs {
		_ = q.d.run(context.Background(), job)
	}
}

// Enqueue blocks while the buffer is full.
func (q *MemoryQueue) Enqueue(ctx context.Context, job Job) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return ErrClosed
	}
	select {
	case q.jobs <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting jobs and waits for the workers to drain the buffer.
func (q *MemoryQueue) Close(ctx context.Context) error {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		close(q.jobs)
	}
	q.mu.Unlock()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
