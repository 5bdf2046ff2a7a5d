package util

import "io"

type readSeekNopCloser struct {
	io.ReadSeeker
}

func (r *readSeekNopCloser) Close() error {
	return nil
}

// NewReadSeekNopCloser converts an io.ReadSeeker to an io.ReadSeekCloser with
// a no-op Close method.
func NewReadSeekNopCloser(rs io.ReadSeeker) io.ReadSeekCloser {
	return &readSeekNopCloser{rs}
}
