package dlog

/*
Options for log block readers.
*/

////////////////////////////////////////////////////////////////////////////////

const (
	defaultBufferSize = 1 << 20
)

type config struct {
	lazy       bool
	bufferSize int
}

// Option is a function that modifies the reader configuration.
type Option func(*config)

// WithLazyBlockRead controls whether block payloads are fetched inline during
// the scan (eager) or deferred until a block is actually materialized (lazy).
// Lazy reads save I/O when a block is superseded or rolled back and its
// payload is never needed.
func WithLazyBlockRead(lazy bool) Option {
	return func(c *config) {
		c.lazy = lazy
	}
}

// WithBufferSize sets the stream buffer size in bytes for eager reads.
func WithBufferSize(size int) Option {
	return func(c *config) {
		c.bufferSize = size
	}
}
