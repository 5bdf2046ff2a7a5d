package queue

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/mortdb/mort/util/log"
)

/*
Bounded is a memory-bounded, multi-producer single-consumer record buffer. It
lets a base file scan and a log scan run in parallel while bounding peak
memory: the sum of estimated sizes of buffered records never exceeds the
configured budget, and producers block on insert until the consumer drains
enough. A record transform runs on the producer side so that conversion work
lands on producer threads rather than the consumer's pull loop.

A queue that would otherwise deadlock - a single record larger than the whole
budget - admits the record when the buffer is empty.

Cancellation is delivered by failing the queue: Fail wakes every blocked
producer and the consumer, and all subsequent operations return the failure.
The executor wires context cancellation to Fail.
*/

////////////////////////////////////////////////////////////////////////////////

// SizeEstimator estimates the in-memory footprint of a buffered record.
type SizeEstimator[T any] interface {
	Estimate(record T) int64
}

// queued pairs a buffered record with the size it was charged at, so the
// release on pop always matches the charge on insert.
type queued[O any] struct {
	record O
	size   int64
}

// Bounded is a bounded record buffer. I is the type produced into the queue
// and O the type the consumer receives.
type Bounded[I, O any] struct {
	mtx      *sync.Mutex
	notFull  *sync.Cond
	notEmpty *sync.Cond

	buf    []queued[O]
	used   int64
	budget int64

	transform func(I) O
	sizer     SizeEstimator[O]

	sealed bool
	err    error
}

// NewBounded returns a queue with the given memory budget in bytes. The
// transform converts each inserted record before buffering; the sizer charges
// the budget for the transformed record.
func NewBounded[I, O any](budget int64, transform func(I) O, sizer SizeEstimator[O]) *Bounded[I, O] {
	mtx := &sync.Mutex{}
	return &Bounded[I, O]{
		mtx:       mtx,
		notFull:   sync.NewCond(mtx),
		notEmpty:  sync.NewCond(mtx),
		budget:    budget,
		transform: transform,
		sizer:     sizer,
	}
}

// Insert transforms and buffers a record, blocking while the memory budget is
// saturated. Inserting into a sealed or failed queue returns an error.
func (q *Bounded[I, O]) Insert(ctx context.Context, item I) error {
	out := q.transform(item)
	size := q.sizer.Estimate(out)

	q.mtx.Lock()
	defer q.mtx.Unlock()
	for {
		if q.err != nil {
			return q.err
		}
		if q.sealed {
			return ErrQueueSealed
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if q.used+size <= q.budget || len(q.buf) == 0 {
			break
		}
		q.notFull.Wait()
	}
	q.buf = append(q.buf, queued[O]{record: out, size: size})
	q.used += size
	q.notEmpty.Signal()
	return nil
}

// Next returns the next buffered record in FIFO order, blocking while the
// queue is empty and producers are still running. It returns io.EOF once the
// queue is sealed and drained, and the failure once the queue has failed.
func (q *Bounded[I, O]) Next(ctx context.Context) (O, error) {
	var zero O
	q.mtx.Lock()
	defer q.mtx.Unlock()
	for {
		if q.err != nil {
			return zero, q.err
		}
		if len(q.buf) > 0 {
			break
		}
		if q.sealed {
			return zero, io.EOF
		}
		if err := ctx.Err(); err != nil {
			return zero, err
		}
		q.notEmpty.Wait()
	}
	head := q.buf[0]
	q.buf = q.buf[1:]
	q.used -= head.size
	if q.used < 0 {
		// Accounting can only go negative through a programming error.
		log.Errorf(ctx, "Queue memory accounting went negative: %d", q.used)
		panic(fmt.Sprintf("queue memory accounting went negative: %d", q.used))
	}
	q.notFull.Broadcast()
	return head.record, nil
}

// Seal marks the queue as complete: no further inserts will occur, and the
// consumer terminates with io.EOF once the buffer drains.
func (q *Bounded[I, O]) Seal() {
	q.mtx.Lock()
	defer q.mtx.Unlock()
	q.sealed = true
	q.notEmpty.Broadcast()
	q.notFull.Broadcast()
}

// Fail marks the queue as failed. Every blocked producer and the consumer
// wake with the supplied error, and the buffer is released. Only the first
// failure is retained.
func (q *Bounded[I, O]) Fail(err error) {
	q.mtx.Lock()
	defer q.mtx.Unlock()
	if q.err != nil {
		return
	}
	q.err = err
	q.buf = nil
	q.used = 0
	q.notEmpty.Broadcast()
	q.notFull.Broadcast()
}

// Used returns the current memory charge of buffered records in bytes.
func (q *Bounded[I, O]) Used() int64 {
	q.mtx.Lock()
	defer q.mtx.Unlock()
	return q.used
}

// Budget returns the configured memory budget in bytes.
func (q *Bounded[I, O]) Budget() int64 {
	return q.budget
}
