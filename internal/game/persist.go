package game

import (
	"context"
	"log"
	"time"

	"github.com/playpong/backend/internal/metrics"
)

const (
	persistQueueSize = 256
	persistTimeout   = 5 * time.Second
)

// persistQueue serializes best-effort store writes onto a single background
// worker. Lifecycle writes stay ordered (create before join before sync), no
// caller ever waits on Redis, and a store outage is bounded by the queue
// capacity: once full, writes are dropped and counted instead of piling up
// goroutines.
type persistQueue struct {
	tasks chan persistTask
}

type persistTask struct {
	name string
	fn   func(ctx context.Context) error
}

func newPersistQueue() *persistQueue {
	q := &persistQueue{tasks: make(chan persistTask, persistQueueSize)}
	go q.run()
	return q
}

func (q *persistQueue) run() {
	for task := range q.tasks {
		ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		if err := task.fn(ctx); err != nil {
			metrics.PersistFailures.Inc()
			log.Printf("[REDIS] %s failed: %v", task.name, err)
		}
		cancel()
	}
}

// enqueue submits a write. Drops with a log line when the queue is full.
func (q *persistQueue) enqueue(name string, fn func(ctx context.Context) error) {
	select {
	case q.tasks <- persistTask{name: name, fn: fn}:
	default:
		metrics.PersistDropped.Inc()
		log.Printf("[REDIS] persist queue full, dropping %s", name)
	}
}
