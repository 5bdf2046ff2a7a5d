package reconcile

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"github.com/mortdb/mort/fsview"
	"github.com/mortdb/mort/queue"
	"github.com/mortdb/mort/record"
	"github.com/mortdb/mort/scanner"
	"github.com/mortdb/mort/storage"
	"github.com/mortdb/mort/util/log"
)

/*
The reconciler is the public read cursor over one file slice. It spins up a
bounded executor with two producers - the base file sequence and the log scan
routine - feeding one memory-bounded queue, and exposes the queue's consumer
side as a pull loop. In merged mode the log side is resolved to one current
record per key before emission, in ascending key order; in unmerged mode
every surviving log record streams through untouched. Records from either
producer preserve that producer's relative order end to end; interleaving
between the two producers is unspecified and must not be relied upon.

Progress is the minimum of the two producers' individual estimates, so 100%
is only reported once both sources are fully consumed. There is no physical
read position for a dual-stream cursor: Position returns
ErrPositionUnsupported rather than a fabricated scalar.
*/

////////////////////////////////////////////////////////////////////////////////

// Mode selects merged or unmerged reconciliation.
type Mode uint8

const (
	// ModeMerged resolves the log side to the latest record per key.
	ModeMerged Mode = iota
	// ModeUnmerged streams every surviving log record without deduplication,
	// for compaction.
	ModeUnmerged
)

func (m Mode) String() string {
	if m == ModeUnmerged {
		return "unmerged"
	}
	return "merged"
}

// State is the lifecycle state of a reconciler.
type State int32

const (
	StateCreated State = iota
	StateProducing
	StateDraining
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateProducing:
		return "producing"
	case StateDraining:
		return "draining"
	case StateClosed:
		return "closed"
	default:
		return "invalid"
	}
}

// Source is a lazy, finite sequence of base file records with progress
// reporting. basefile.Reader implements it; callers with their own base
// format supply their own.
type Source interface {
	Next(ctx context.Context) (record.Record, error)
	Progress() float64
	Close() error
}

type logScanner interface {
	Progress() float64
	Close() error
}

// Reconciler is the read cursor combining a base file sequence with a log
// record scan.
type Reconciler struct {
	mode  Mode
	exec  *queue.Executor[record.Record, record.Record]
	base  Source
	scan  logScanner
	state atomic.Int32

	cancel    context.CancelFunc
	closeOnce sync.Once
	closeErr  error
}

// New constructs a reconciler over the given file slice and starts its
// producers. The base source may be nil for log-only file groups.
func New(
	ctx context.Context,
	store storage.Provider,
	slice fsview.FileSlice,
	base Source,
	opts ...Option,
) (*Reconciler, error) {
	conf := newConfig(opts)
	ctx = log.AddTags(ctx, "filegroup", slice.GroupID)
	ctx, cancel := context.WithCancel(ctx)

	if base == nil {
		base = emptySource{}
	}
	latest := conf.latestInstant
	if latest == "" {
		latest = slice.LatestInstant
	}
	scanOpts := []scanner.Option{
		scanner.WithLatestInstant(latest),
		scanner.WithLazyBlockRead(conf.lazy),
		scanner.WithSchemas(conf.readerSchema, conf.writerSchema),
	}
	if conf.bufferSize > 0 {
		scanOpts = append(scanOpts, scanner.WithBufferSize(conf.bufferSize))
	}

	q := queue.NewBounded[record.Record, record.Record](
		conf.maxMemory,
		func(r record.Record) record.Record { return r },
		conf.sizer,
	)

	r := &Reconciler{mode: conf.mode, base: base, cancel: cancel}

	var logProducer queue.Producer[record.Record, record.Record]
	switch conf.mode {
	case ModeMerged:
		s, err := scanner.NewMerged(ctx, store, slice.LogFiles, scanOpts...)
		if err != nil {
			cancel()
			return nil, fmt.Errorf("failed to create merged scanner: %w", err)
		}
		r.scan = s
		logProducer = queue.NewFunctionProducer(func(ctx context.Context, q *queue.Bounded[record.Record, record.Record]) error {
			if err := s.Scan(ctx); err != nil {
				return fmt.Errorf("log scan failed: %w", err)
			}
			for _, rec := range s.Records() {
				if err := q.Insert(ctx, rec); err != nil {
					return fmt.Errorf("failed to buffer resolved record: %w", err)
				}
			}
			return nil
		})
	case ModeUnmerged:
		s, err := scanner.NewUnmerged(ctx, store, slice.LogFiles, func(ctx context.Context, rec record.Record) error {
			return q.Insert(ctx, rec)
		}, scanOpts...)
		if err != nil {
			cancel()
			return nil, fmt.Errorf("failed to create unmerged scanner: %w", err)
		}
		r.scan = s
		logProducer = queue.NewFunctionProducer(func(ctx context.Context, _ *queue.Bounded[record.Record, record.Record]) error {
			if err := s.Scan(ctx); err != nil {
				return fmt.Errorf("log scan failed: %w", err)
			}
			return nil
		})
	default:
		cancel()
		return nil, fmt.Errorf("invalid mode: %d", conf.mode)
	}

	baseProducer := queue.NewIteratorProducer[record.Record, record.Record](base)
	r.exec = queue.NewExecutor(q, baseProducer, logProducer)
	r.exec.Start(ctx)
	r.state.Store(int32(StateProducing))
	log.Debugw(ctx, "Reconciliation started",
		"mode", conf.mode.String(),
		"logFiles", len(slice.LogFiles),
		"budget", conf.maxMemory,
	)
	return r, nil
}

// Next returns the next reconciled record. It returns io.EOF once both
// producers have finished and the queue is drained, and the terminal failure
// of the read if a producer failed.
func (r *Reconciler) Next(ctx context.Context) (record.Record, error) {
	if r.State() == StateClosed {
		return record.Record{}, ErrClosed
	}
	rec, err := r.exec.Next(ctx)
	if r.exec.Finished() {
		r.state.CompareAndSwap(int32(StateProducing), int32(StateDraining))
	}
	if err != nil {
		if errors.Is(err, io.EOF) {
			return record.Record{}, io.EOF
		}
		return record.Record{}, fmt.Errorf("reconciliation failed: %w", err)
	}
	return rec, nil
}

// Progress returns the minimum of the two producers' progress estimates, a
// conservative measure that reaches 1.0 only when both sources are fully
// consumed.
func (r *Reconciler) Progress() float64 {
	return min(clamp(r.base.Progress()), clamp(r.scan.Progress()))
}

// Position is unsupported: a single scalar cannot represent the position of
// two interleaved physical streams.
func (r *Reconciler) Position() (int64, error) {
	return 0, ErrPositionUnsupported
}

// State returns the reconciler's lifecycle state.
func (r *Reconciler) State() State {
	return State(r.state.Load())
}

// Close releases the base source, stops the log scanner, and force-shuts the
// executor. It is idempotent and safe to call while producers are mid-flight:
// the shutdown fails the queue so producers unwind promptly, and the
// underlying readers are only closed once every producer has terminated.
func (r *Reconciler) Close() error {
	r.closeOnce.Do(func() {
		r.state.Store(int32(StateClosed))
		r.exec.Shutdown()
		r.cancel()
		// Producers still inside the base source or the chain reader hold
		// these readers; closing them out from under a producer is a race.
		r.exec.Wait()
		if err := r.base.Close(); err != nil {
			r.closeErr = fmt.Errorf("failed to close base source: %w", err)
		}
		if err := r.scan.Close(); err != nil && r.closeErr == nil {
			r.closeErr = fmt.Errorf("failed to close log scanner: %w", err)
		}
	})
	return r.closeErr
}

func clamp(p float64) float64 {
	if p < 0 {
		return 0
	}
	if p > 1 {
		return 1
	}
	return p
}

type emptySource struct{}

func (emptySource) Next(context.Context) (record.Record, error) { return record.Record{}, io.EOF }
func (emptySource) Progress() float64                           { return 1 }
func (emptySource) Close() error                                { return nil }
