package dlog

import (
	"errors"
	"fmt"
)

// ErrBadMagic is returned when the log file magic is not as expected.
var ErrBadMagic = errors.New("bad log file magic")

// UnsupportedVersionError is returned when the log file version is newer than
// the reader supports.
type UnsupportedVersionError struct {
	major, minor uint8
}

func (e UnsupportedVersionError) Error() string {
	return fmt.Sprintf("unsupported log version: %d.%d (current: %d.%d)", e.major, e.minor, currentMajor, currentMinor)
}

func (e UnsupportedVersionError) Is(target error) bool {
	_, ok := target.(UnsupportedVersionError)
	return ok
}

// TruncatedBlockError indicates a block whose trailing bytes are missing, the
// expected residue of a crash mid-append. Readers treat the block, and
// everything after it in the file, as absent.
type TruncatedBlockError struct {
	File   string
	Offset int64
}

func (e TruncatedBlockError) Error() string {
	return fmt.Sprintf("truncated block in %s at offset %d", e.File, e.Offset)
}

func (e TruncatedBlockError) Is(target error) bool {
	_, ok := target.(TruncatedBlockError)
	return ok
}

// CorruptBlockError indicates a block that is structurally complete but fails
// validation somewhere other than the tail of the file. Unlike truncation,
// mid-chain corruption is ambiguous and is surfaced rather than skipped.
type CorruptBlockError struct {
	File   string
	Offset int64
	Reason string
}

func (e CorruptBlockError) Error() string {
	return fmt.Sprintf("corrupt block in %s at offset %d: %s", e.File, e.Offset, e.Reason)
}

func (e CorruptBlockError) Is(target error) bool {
	_, ok := target.(CorruptBlockError)
	return ok
}
