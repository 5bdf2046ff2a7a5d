package scanner

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/mortdb/mort/dlog"
	"github.com/mortdb/mort/record"
	"github.com/mortdb/mort/storage"
	"github.com/mortdb/mort/util/log"
)

/*
The unmerged scanner streams every surviving log record to a callback with no
deduplication and no key table. It feeds compaction, where the downstream
consumer performs the merge against the base file itself.

Retraction policy: rollbacks are honored exactly, by block-scoped retraction
before anything is emitted. Deletes are emitted in stream position as
tombstone records rather than retracting earlier emissions - the downstream
merge resolves them. This is a contract of the scanner, not an accident: a
record emitted before a later-in-chain delete of its key will reach the
callback, paired with a tombstone that supersedes it.
*/

////////////////////////////////////////////////////////////////////////////////

// EmitFunc receives each surviving record in chain order.
type EmitFunc func(ctx context.Context, rec record.Record) error

// Unmerged is the unmerged log record scanner.
type Unmerged struct {
	chain *dlog.ChainReader
	conf  *config
	emit  EmitFunc

	// done is published for Progress, which may be called from a goroutine
	// other than the one driving Scan.
	done atomic.Bool
}

// NewUnmerged creates an unmerged scanner over the ordered log files of one
// file group, streaming records to emit.
func NewUnmerged(
	ctx context.Context,
	store storage.Provider,
	files []string,
	emit EmitFunc,
	opts ...Option,
) (*Unmerged, error) {
	conf := &config{}
	for _, opt := range opts {
		opt(conf)
	}
	chain, err := newChain(ctx, store, files, conf)
	if err != nil {
		return nil, err
	}
	return &Unmerged{
		chain: chain,
		conf:  conf,
		emit:  emit,
	}, nil
}

// Scan consumes the whole block chain, emitting every surviving record in
// chain order.
func (s *Unmerged) Scan(ctx context.Context) error {
	if s.done.Load() {
		return ErrAlreadyScanned
	}
	w := &walker{chain: s.chain, latestInstant: s.conf.latestInstant}
	pending, err := w.walk(ctx)
	if err != nil {
		return err
	}
	var emitted int
	for _, block := range pending {
		switch block.Kind {
		case dlog.KindData:
			records, err := decodeData(ctx, block, s.conf)
			if err != nil {
				if errors.Is(err, dlog.TruncatedBlockError{}) {
					log.Warnf(ctx, "Dropping truncated data block in %s at offset %d", block.File, block.Offset)
					continue
				}
				return err
			}
			for _, rec := range records {
				if err := s.emit(ctx, rec); err != nil {
					return fmt.Errorf("failed to emit record: %w", err)
				}
				emitted++
			}
		case dlog.KindDelete:
			keys, err := decodeDelete(ctx, block)
			if err != nil {
				if errors.Is(err, dlog.TruncatedBlockError{}) {
					log.Warnf(ctx, "Dropping truncated delete block in %s at offset %d", block.File, block.Offset)
					continue
				}
				return err
			}
			for _, key := range keys {
				tombstone := record.NewTombstone(key.Record, key.Partition, 0)
				if err := s.emit(ctx, tombstone); err != nil {
					return fmt.Errorf("failed to emit tombstone: %w", err)
				}
				emitted++
			}
		default:
			return fmt.Errorf("unexpected block kind %d in pending set", block.Kind)
		}
	}
	s.done.Store(true)
	log.Debugw(ctx, "Unmerged scan complete", "records", emitted)
	return nil
}

// Progress returns the fraction of log bytes consumed, in [0, 1].
func (s *Unmerged) Progress() float64 {
	if s.done.Load() {
		return 1
	}
	return s.chain.Progress()
}

// Close releases the underlying chain reader.
func (s *Unmerged) Close() error {
	return s.chain.Close()
}
