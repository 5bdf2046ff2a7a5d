package storage

import (
	"context"
	"errors"
	"io"
)

/*
The storage provider interface describes the set of operations the
reconciliation core requires from the store holding base and log files. These
are supported by any popular object storage implementation as well as by a
local directory. Objects are immutable once written, which is what makes the
range-read based lazy block materialization safe.
*/

////////////////////////////////////////////////////////////////////////////////

// ErrObjectNotFound is returned when an object is not found.
var ErrObjectNotFound = errors.New("object not found")

// Provider is the interface for a storage provider.
type Provider interface {
	// Put stores an object under the given id.
	Put(ctx context.Context, id string, data []byte) error
	// Get returns a seekable reader over the full object.
	Get(ctx context.Context, id string) (io.ReadSeekCloser, error)
	// GetRange returns a reader over length bytes of the object starting at
	// offset.
	GetRange(ctx context.Context, id string, offset int, length int) (io.ReadSeekCloser, error)
	// Size returns the size of the object in bytes.
	Size(ctx context.Context, id string) (int64, error)
	// List returns the ids of all objects with the given prefix, in
	// lexicographic order.
	List(ctx context.Context, prefix string) ([]string, error)
	// Delete removes an object.
	Delete(ctx context.Context, id string) error
}
