package fsview

import "errors"

// ErrFileGroupNotFound is returned when a file group has no files in the
// store.
var ErrFileGroupNotFound = errors.New("file group not found")
