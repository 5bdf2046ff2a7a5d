package queue

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"
)

/*
The executor runs every registered producer concurrently, each on its own
goroutine, all feeding one bounded queue, and presents the queue's consumer
side as the unified output. If any producer fails, the queue is failed
immediately so the consumer sees the error on its next pull and sibling
producers blocked on insert unwind instead of hanging; remaining producers
are cancelled best-effort through the shared context. One executor serves
exactly one consumer.
*/

////////////////////////////////////////////////////////////////////////////////

// Executor orchestrates concurrent producers over one bounded queue.
type Executor[I, O any] struct {
	queue     *Bounded[I, O]
	producers []Producer[I, O]

	mtx      *sync.Mutex
	started  bool
	shutdown bool
	cancel   context.CancelFunc
	done     chan struct{}
}

// NewExecutor returns an executor over the given producers and queue.
func NewExecutor[I, O any](q *Bounded[I, O], producers ...Producer[I, O]) *Executor[I, O] {
	return &Executor[I, O]{
		queue:     q,
		producers: producers,
		mtx:       &sync.Mutex{},
		done:      make(chan struct{}),
	}
}

// Start launches all producers. When every producer has completed the queue
// is sealed; when any producer fails the queue is failed with its error.
func (e *Executor[I, O]) Start(ctx context.Context) {
	e.mtx.Lock()
	defer e.mtx.Unlock()
	if e.started || e.shutdown {
		return
	}
	e.started = true
	ctx, cancel := context.WithCancel(ctx)
	e.cancel = cancel

	g, ctx := errgroup.WithContext(ctx)
	for _, producer := range e.producers {
		producer := producer
		g.Go(func() error {
			if err := producer.Produce(ctx, e.queue); err != nil {
				// Fail before returning so that sibling producers blocked on
				// insert and the consumer blocked on pull both unwind now
				// rather than at group completion.
				e.queue.Fail(err)
				cancel()
				return err
			}
			return nil
		})
	}
	go func() {
		err := g.Wait()
		// Publish termination before releasing the consumer, so a consumer
		// woken by the seal observes Finished as true.
		close(e.done)
		if err != nil {
			e.queue.Fail(err)
			return
		}
		e.queue.Seal()
	}()
}

// Next returns the next record from the queue's consumer side. It returns
// io.EOF once all producers have finished and the queue is drained, and the
// terminal failure if any producer failed.
func (e *Executor[I, O]) Next(ctx context.Context) (O, error) {
	e.mtx.Lock()
	started := e.started
	e.mtx.Unlock()
	if !started {
		var zero O
		return zero, ErrNotStarted
	}
	return e.queue.Next(ctx)
}

// Queue returns the executor's queue, for producers that insert as a side
// effect.
func (e *Executor[I, O]) Queue() *Bounded[I, O] {
	return e.queue
}

// Shutdown forcibly cancels outstanding producer work and releases the queue.
// It is safe to call concurrently with in-flight inserts and more than once;
// outstanding work is abandoned, not awaited.
func (e *Executor[I, O]) Shutdown() {
	e.mtx.Lock()
	if e.shutdown {
		e.mtx.Unlock()
		return
	}
	e.shutdown = true
	started := e.started
	cancel := e.cancel
	e.mtx.Unlock()

	if started {
		e.queue.Fail(ErrShutdown)
		cancel()
	}
}

// Finished reports whether all producers have terminated.
func (e *Executor[I, O]) Finished() bool {
	select {
	case <-e.done:
		return true
	default:
		return false
	}
}

// Wait blocks until all producers have terminated. It is used by tests and
// callers that need producer goroutines fully unwound.
func (e *Executor[I, O]) Wait() {
	e.mtx.Lock()
	started := e.started
	e.mtx.Unlock()
	if started {
		<-e.done
	}
}
