package engine

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/jaxquant/backtest/internal/resample"
)

// BarQueue is the thread-safe MPSC queue a live data source's own
// goroutine(s) enqueue bars onto; the engine's single logical execution
// context drains it in order. Per spec.md §5, queue draining is the only
// place inter-thread synchronization is required — once a bar is
// received off the channel it is owned exclusively by the draining
// goroutine.
type BarQueue struct {
	ch chan resample.Bar
}

// NewBarQueue returns a queue buffered to capacity bars.
func NewBarQueue(capacity int) *BarQueue {
	if capacity < 1 {
		capacity = 1
	}
	return &BarQueue{ch: make(chan resample.Bar, capacity)}
}

// Push enqueues one bar. Safe to call concurrently from any number of
// producer goroutines.
func (q *BarQueue) Push(b resample.Bar) { q.ch <- b }

// Close signals that no further bars will be pushed. Callers must not
// Push after calling Close.
func (q *BarQueue) Close() { close(q.ch) }

// Recv blocks for the next bar, returning ok=false once the queue is
// closed and drained.
func (q *BarQueue) Recv() (resample.Bar, bool) {
	b, ok := <-q.ch
	return b, ok
}

// RunProducers starts each producer on its own goroutine via an
// errgroup, cancels every producer's context as soon as one returns an
// error, and closes q once all producers have finished — so a caller
// draining q with Recv sees a clean end-of-stream rather than hanging.
func RunProducers(ctx context.Context, q *BarQueue, producers ...func(context.Context, *BarQueue) error) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, p := range producers {
		p := p
		g.Go(func() error { return p(gctx, q) })
	}
	err := g.Wait()
	q.Close()
	return err
}

// NewLiveFeed wraps a BarQueue as a Feed: instead of walking a
// preloaded slice, advance() blocks on the queue until a bar arrives or
// the producers close it. Used for the live-trading mode of spec.md §5's
// concurrency model rather than the CSV-backed backtest path.
func NewLiveFeed(dataID string, q *BarQueue, params *resample.Params) *Feed {
	f := NewFeed(dataID, nil, params)
	f.queue = q
	return f
}
