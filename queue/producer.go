package queue

import (
	"context"
	"errors"
	"fmt"
	"io"
)

/*
Producers are the units of work the executor runs concurrently, one per
physical source. There are exactly two shapes: a function producer wraps a
side-effecting scan routine that inserts into the queue as it goes (the log
scan), and an iterator producer drains a plain sequence into the queue (the
base file). A producer terminates, successfully or not, and never inserts
after termination.
*/

////////////////////////////////////////////////////////////////////////////////

// Producer pushes records into a bounded queue until its source is exhausted.
type Producer[I, O any] interface {
	Produce(ctx context.Context, q *Bounded[I, O]) error
}

// Iterator is a pull sequence terminated by io.EOF.
type Iterator[I any] interface {
	Next(ctx context.Context) (I, error)
}

// FunctionProducer wraps a routine that inserts into the queue as a side
// effect and returns when the underlying scan completes.
type FunctionProducer[I, O any] struct {
	fn func(ctx context.Context, q *Bounded[I, O]) error
}

// NewFunctionProducer returns a producer running the given routine.
func NewFunctionProducer[I, O any](fn func(ctx context.Context, q *Bounded[I, O]) error) *FunctionProducer[I, O] {
	return &FunctionProducer[I, O]{fn: fn}
}

// Produce runs the wrapped routine.
func (p *FunctionProducer[I, O]) Produce(ctx context.Context, q *Bounded[I, O]) error {
	if err := p.fn(ctx, q); err != nil {
		return fmt.Errorf("producer function failed: %w", err)
	}
	return nil
}

// IteratorProducer drains an iterator into the queue.
type IteratorProducer[I, O any] struct {
	it Iterator[I]
}

// NewIteratorProducer returns a producer draining the given iterator.
func NewIteratorProducer[I, O any](it Iterator[I]) *IteratorProducer[I, O] {
	return &IteratorProducer[I, O]{it: it}
}

// Produce inserts every element of the iterator in order, completing when the
// iterator is exhausted.
func (p *IteratorProducer[I, O]) Produce(ctx context.Context, q *Bounded[I, O]) error {
	for {
		item, err := p.it.Next(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("failed to pull next record: %w", err)
		}
		if err := q.Insert(ctx, item); err != nil {
			return fmt.Errorf("failed to insert record: %w", err)
		}
	}
}
