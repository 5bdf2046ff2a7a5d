package dlog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync/atomic"

	"github.com/mortdb/mort/storage"
	"github.com/mortdb/mort/util/log"
)

/*
The chain reader yields validated blocks spanning an ordered list of delta log
files, in file order and within each file in append order. A truncated tail
ends the file it occurs in; the chain then moves on to the next file, since
later log files are written only after their predecessors are sealed.
Mid-file corruption is surfaced, not skipped.

Each call to NewChainReader starts a fresh forward-only pass.
*/

////////////////////////////////////////////////////////////////////////////////

// ChainReader reads the block chain of a file group.
type ChainReader struct {
	store storage.Provider
	files []string
	sizes []int64
	opts  []Option

	idx      int
	cur      *Reader
	rsc      io.ReadSeekCloser
	consumed int64
	total    int64
	closed   bool

	// pos is the consumed byte count, published for Progress, which may be
	// called from a goroutine other than the one driving Next.
	pos atomic.Int64
}

// NewChainReader creates a reader over the given ordered log files.
func NewChainReader(ctx context.Context, store storage.Provider, files []string, opts ...Option) (*ChainReader, error) {
	sizes := make([]int64, len(files))
	var total int64
	for i, file := range files {
		size, err := store.Size(ctx, file)
		if err != nil {
			return nil, fmt.Errorf("failed to stat log file %s: %w", file, err)
		}
		sizes[i] = size
		total += size
	}
	return &ChainReader{
		store: store,
		files: files,
		sizes: sizes,
		opts:  opts,
		total: total,
	}, nil
}

// Next returns the next valid block in the chain, or io.EOF once all files
// are exhausted.
func (c *ChainReader) Next(ctx context.Context) (*Block, error) {
	for {
		if c.cur == nil {
			if c.idx >= len(c.files) {
				return nil, io.EOF
			}
			if err := c.openFile(ctx); err != nil {
				return nil, err
			}
		}
		block, err := c.cur.Next()
		if err == nil {
			c.pos.Store(c.consumed + c.cur.Offset())
			return block, nil
		}
		switch {
		case errors.Is(err, io.EOF):
			c.finishFile()
		case isTruncated(err):
			log.Warnf(ctx, "Ignoring truncated tail of log file %s: %s", c.files[c.idx], err)
			c.finishFile()
		default:
			return nil, err
		}
	}
}

// Progress returns the fraction of log bytes consumed, in [0, 1].
func (c *ChainReader) Progress() float64 {
	if c.total == 0 {
		return 1
	}
	return float64(c.pos.Load()) / float64(c.total)
}

// Close releases the currently open file, if any.
func (c *ChainReader) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	if c.rsc != nil {
		if err := c.rsc.Close(); err != nil {
			return fmt.Errorf("failed to close log file: %w", err)
		}
		c.rsc = nil
		c.cur = nil
	}
	return nil
}

func (c *ChainReader) openFile(ctx context.Context) error {
	rsc, err := c.store.Get(ctx, c.files[c.idx])
	if err != nil {
		return fmt.Errorf("failed to open log file %s: %w", c.files[c.idx], err)
	}
	reader, err := NewReader(rsc, c.files[c.idx], c.sizes[c.idx], c.fetchRange, c.opts...)
	if err != nil {
		rsc.Close()
		return fmt.Errorf("failed to read log file %s: %w", c.files[c.idx], err)
	}
	c.rsc = rsc
	c.cur = reader
	return nil
}

func (c *ChainReader) finishFile() {
	if c.rsc != nil {
		c.rsc.Close()
		c.rsc = nil
	}
	c.consumed += c.sizes[c.idx]
	c.pos.Store(c.consumed)
	c.cur = nil
	c.idx++
}

func (c *ChainReader) fetchRange(ctx context.Context, file string, offset int64, length int64) ([]byte, error) {
	rsc, err := c.store.GetRange(ctx, file, int(offset), int(length))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch range: %w", err)
	}
	defer rsc.Close()
	data := make([]byte, length)
	if _, err := io.ReadFull(rsc, data); err != nil {
		return nil, fmt.Errorf("failed to read range: %w", err)
	}
	return data, nil
}

func isTruncated(err error) bool {
	return errors.Is(err, TruncatedBlockError{})
}
