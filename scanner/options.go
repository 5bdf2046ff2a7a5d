package scanner

import "github.com/mortdb/mort/schema"

/*
Options for log record scanners.
*/

////////////////////////////////////////////////////////////////////////////////

type config struct {
	latestInstant string
	lazy          bool
	bufferSize    int
	readerSchema  *schema.Schema
	writerSchema  *schema.Schema
}

// Option is a function that modifies the scanner configuration.
type Option func(*config)

// WithLatestInstant sets the latest commit instant visible to the scan.
// Blocks attributed to later instants are ignored. Empty means no bound.
func WithLatestInstant(instant string) Option {
	return func(c *config) {
		c.latestInstant = instant
	}
}

// WithLazyBlockRead controls lazy versus eager block payload reads.
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

// WithSchemas sets the reader and writer schemas used to validate and project
// decoded records. Either may be nil to skip that step.
func WithSchemas(reader, writer *schema.Schema) Option {
	return func(c *config) {
		c.readerSchema = reader
		c.writerSchema = writer
	}
}
