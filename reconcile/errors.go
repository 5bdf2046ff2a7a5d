package reconcile

import "errors"

// ErrClosed is returned when a closed reconciler is read from.
var ErrClosed = errors.New("reconciler is closed")

// ErrPositionUnsupported is returned by Position. No scalar position exists
// for a cursor over two interleaved physical streams.
var ErrPositionUnsupported = errors.New("position is not supported for a reconciled stream")
