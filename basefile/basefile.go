package basefile

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync/atomic"

	"github.com/goccy/go-json"
	"github.com/mortdb/mort/record"
	"github.com/mortdb/mort/storage"
)

/*
A base file is an immutable, fully-merged snapshot of a file group written at
some commit. The physical columnar encoding used in production deployments is
owned by an external layer; this package reads and writes the newline-
delimited JSON representation used by the CLI, fixtures, and tests, exposing
the lazy record sequence plus progress reporting that the reconciler expects
from any base-file source.
*/

////////////////////////////////////////////////////////////////////////////////

// Reader is a lazy, finite, single-pass sequence of base file records.
type Reader struct {
	rsc    io.ReadSeekCloser
	br     *bufio.Reader
	size   int64
	closed bool

	// consumed is published for Progress, which may be called from a
	// goroutine other than the one driving Next.
	consumed atomic.Int64
}

// NewReader opens the given base file for reading.
func NewReader(ctx context.Context, store storage.Provider, file string) (*Reader, error) {
	size, err := store.Size(ctx, file)
	if err != nil {
		return nil, fmt.Errorf("failed to stat base file %s: %w", file, err)
	}
	rsc, err := store.Get(ctx, file)
	if err != nil {
		return nil, fmt.Errorf("failed to open base file %s: %w", file, err)
	}
	return &Reader{
		rsc:  rsc,
		br:   bufio.NewReader(rsc),
		size: size,
	}, nil
}

// Next returns the next record in the file, or io.EOF at the end.
func (r *Reader) Next(_ context.Context) (record.Record, error) {
	for {
		line, err := r.br.ReadBytes('\n')
		r.consumed.Add(int64(len(line)))
		if err != nil && !errors.Is(err, io.EOF) {
			return record.Record{}, fmt.Errorf("failed to read base file line: %w", err)
		}
		trimmed := bytes.TrimSpace(line)
		if len(trimmed) == 0 {
			if errors.Is(err, io.EOF) {
				return record.Record{}, io.EOF
			}
			continue
		}
		var rec record.Record
		if uerr := json.Unmarshal(trimmed, &rec); uerr != nil {
			return record.Record{}, fmt.Errorf("failed to unmarshal base record: %w", uerr)
		}
		return rec, nil
	}
}

// Progress returns the fraction of base file bytes consumed, in [0, 1].
func (r *Reader) Progress() float64 {
	if r.size == 0 {
		return 1
	}
	return float64(r.consumed.Load()) / float64(r.size)
}

// Close releases the underlying reader. It is safe to call more than once.
func (r *Reader) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	if err := r.rsc.Close(); err != nil {
		return fmt.Errorf("failed to close base file: %w", err)
	}
	return nil
}

// Write stores records as a base file object.
func Write(ctx context.Context, store storage.Provider, file string, records []record.Record) error {
	buf := &bytes.Buffer{}
	for _, rec := range records {
		data, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("failed to marshal base record: %w", err)
		}
		buf.Write(data)
		buf.WriteByte('\n')
	}
	if err := store.Put(ctx, file, buf.Bytes()); err != nil {
		return fmt.Errorf("failed to put base file: %w", err)
	}
	return nil
}
