package reconcile

import (
	"github.com/mortdb/mort/queue"
	"github.com/mortdb/mort/record"
	"github.com/mortdb/mort/schema"
)

/*
Options for the reconciler. The enumerated knobs of the table configuration
surface - memory budget, lazy block reads, stream buffer size - map onto
these directly.
*/

////////////////////////////////////////////////////////////////////////////////

const (
	defaultMaxMemory = 1 << 30
)

type config struct {
	mode          Mode
	maxMemory     int64
	lazy          bool
	bufferSize    int
	latestInstant string
	readerSchema  *schema.Schema
	writerSchema  *schema.Schema
	sizer         queue.SizeEstimator[record.Record]
}

// Option is a function that modifies the reconciler configuration.
type Option func(*config)

func newConfig(opts []Option) *config {
	conf := &config{
		mode:      ModeMerged,
		maxMemory: defaultMaxMemory,
		sizer:     record.NewEstimator(),
	}
	for _, opt := range opts {
		opt(conf)
	}
	return conf
}

// WithMode selects merged or unmerged reconciliation.
func WithMode(mode Mode) Option {
	return func(c *config) {
		c.mode = mode
	}
}

// WithMaxMemory sets the queue's memory budget in bytes.
func WithMaxMemory(bytes int64) Option {
	return func(c *config) {
		c.maxMemory = bytes
	}
}

// WithLazyBlockRead controls lazy versus eager log block payload reads.
func WithLazyBlockRead(lazy bool) Option {
	return func(c *config) {
		c.lazy = lazy
	}
}

// WithBufferSize sets the log stream buffer size in bytes for eager reads.
func WithBufferSize(size int) Option {
	return func(c *config) {
		c.bufferSize = size
	}
}

// WithLatestInstant overrides the latest commit instant visible to the scan.
// By default the file slice's latest instant is used.
func WithLatestInstant(instant string) Option {
	return func(c *config) {
		c.latestInstant = instant
	}
}

// WithSchemas sets the reader and writer schemas used to validate and project
// log records.
func WithSchemas(reader, writer *schema.Schema) Option {
	return func(c *config) {
		c.readerSchema = reader
		c.writerSchema = writer
	}
}

// WithSizeEstimator overrides the record size estimator charged against the
// memory budget.
func WithSizeEstimator(sizer queue.SizeEstimator[record.Record]) Option {
	return func(c *config) {
		c.sizer = sizer
	}
}
