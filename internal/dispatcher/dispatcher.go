// Package dispatcher manages worker fan-out over the job queue.
package dispatcher

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/articlegen/internal/article"
	"github.com/JakeFAU/articlegen/internal/metrics"
	"github.com/JakeFAU/articlegen/internal/worker"
)

// Drainer is implemented by queues that can hand back unconsumed items at
// shutdown.
type Drainer interface {
	Drain() []article.QueueItem
}

// Dispatcher fans out queue work to a pool of workers.
type Dispatcher struct {
	queue   article.Queue
	workers []*worker.Worker
	logger  *zap.Logger
}

// New creates a Dispatcher.
func New(queue article.Queue, workers []*worker.Worker, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	metrics.Init()
	return &Dispatcher{
		queue:   queue,
		workers: workers,
		logger:  logger,
	}
}

// Run starts all workers and blocks until the context finishes. Jobs still
// queued at that point are failed so none is left pending.
func (d *Dispatcher) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for _, w := range d.workers {
		wg.Add(1)
		go func(wk *worker.Worker) {
			defer wg.Done()
			wk.Run(ctx)
		}(w)
	}
	<-ctx.Done()
	wg.Wait()
	d.abandonQueued(ctx)
}

// Enqueue proxies to the underlying queue, waiting at most timeout for room.
func (d *Dispatcher) Enqueue(ctx context.Context, item article.QueueItem, timeout time.Duration) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	if err := d.queue.Enqueue(ctx, item); err != nil {
		return fmt.Errorf("queue enqueue: %w", err)
	}
	if l, ok := d.queue.(interface{ Len() int }); ok {
		metrics.SetQueueDepth(l.Len())
	}
	return nil
}

func (d *Dispatcher) abandonQueued(ctx context.Context) {
	drainer, ok := d.queue.(Drainer)
	if !ok || len(d.workers) == 0 {
		return
	}
	items := drainer.Drain()
	for _, item := range items {
		d.workers[0].Abandon(ctx, item, worker.ReasonShutdown)
	}
	if len(items) > 0 {
		d.logger.Warn("failed queued jobs at shutdown", zap.Int("count", len(items)))
	}
	metrics.SetQueueDepth(0)
}
