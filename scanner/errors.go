package scanner

import "errors"

// ErrAlreadyScanned is returned when Scan is called on a scanner that has
// already completed. Scanners are single-pass; construct a new one to rescan.
var ErrAlreadyScanned = errors.New("scanner already scanned")
