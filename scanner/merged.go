package scanner

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync/atomic"

	"github.com/mortdb/mort/dlog"
	"github.com/mortdb/mort/record"
	"github.com/mortdb/mort/storage"
	"github.com/mortdb/mort/util/log"
	"golang.org/x/exp/maps"
)

/*
The merged scanner resolves the block chain into a key-to-record table
holding exactly the logically-current state implied by every block scanned: a
later block always wins over an earlier one for the same key, because log
order reflects write order; delete blocks and tombstone records remove keys
outright; rollbacks are applied exactly via block-scoped retraction during
the chain walk. After Scan returns, the table's values are the final merged
record set for the log side of the file group.

The table is mutated by exactly one scanning goroutine and is never accessed
concurrently, so it carries no locking.
*/

////////////////////////////////////////////////////////////////////////////////

// Merged is the merged log record scanner.
type Merged struct {
	chain *dlog.ChainReader
	conf  *config
	table map[record.Key]record.Record

	// done is published for Progress, which may be called from a goroutine
	// other than the one driving Scan.
	done atomic.Bool
}

// NewMerged creates a merged scanner over the ordered log files of one file
// group.
func NewMerged(
	ctx context.Context,
	store storage.Provider,
	files []string,
	opts ...Option,
) (*Merged, error) {
	conf := &config{}
	for _, opt := range opts {
		opt(conf)
	}
	chain, err := newChain(ctx, store, files, conf)
	if err != nil {
		return nil, err
	}
	return &Merged{
		chain: chain,
		conf:  conf,
		table: make(map[record.Key]record.Record),
	}, nil
}

// Scan consumes the whole block chain and resolves the key-to-record table.
func (s *Merged) Scan(ctx context.Context) error {
	if s.done.Load() {
		return ErrAlreadyScanned
	}
	w := &walker{chain: s.chain, latestInstant: s.conf.latestInstant}
	pending, err := w.walk(ctx)
	if err != nil {
		return err
	}
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
				if rec.Deleted {
					delete(s.table, rec.Key)
					continue
				}
				s.table[rec.Key] = rec
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
				// A delete for an absent key is a no-op, not an error.
				delete(s.table, key)
			}
		default:
			return fmt.Errorf("unexpected block kind %d in pending set", block.Kind)
		}
	}
	s.done.Store(true)
	log.Debugw(ctx, "Merged scan complete", "keys", len(s.table))
	return nil
}

// Get returns the resolved record for the given key.
func (s *Merged) Get(key record.Key) (record.Record, bool) {
	rec, ok := s.table[key]
	return rec, ok
}

// Keys returns the resolved keys in ascending order.
func (s *Merged) Keys() []record.Key {
	keys := maps.Keys(s.table)
	slices.SortFunc(keys, func(a, b record.Key) int {
		return strings.Compare(a.String(), b.String())
	})
	return keys
}

// Records returns the resolved records in ascending key order.
func (s *Merged) Records() []record.Record {
	keys := s.Keys()
	records := make([]record.Record, 0, len(keys))
	for _, key := range keys {
		records = append(records, s.table[key])
	}
	return records
}

// NumKeys returns the number of resolved keys.
func (s *Merged) NumKeys() int {
	return len(s.table)
}

// Progress returns the fraction of log bytes consumed, in [0, 1].
func (s *Merged) Progress() float64 {
	if s.done.Load() {
		return 1
	}
	return s.chain.Progress()
}

// Close releases the underlying chain reader.
func (s *Merged) Close() error {
	return s.chain.Close()
}

func newChain(ctx context.Context, store storage.Provider, files []string, conf *config) (*dlog.ChainReader, error) {
	opts := []dlog.Option{dlog.WithLazyBlockRead(conf.lazy)}
	if conf.bufferSize > 0 {
		opts = append(opts, dlog.WithBufferSize(conf.bufferSize))
	}
	chain, err := dlog.NewChainReader(ctx, store, files, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to open block chain: %w", err)
	}
	return chain, nil
}
