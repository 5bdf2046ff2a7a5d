package dlog

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/mortdb/mort/util"
)

/*
The block reader yields validated blocks from a single delta log file in
append order. It stops with io.EOF at a clean end of file, and with
TruncatedBlockError where the file ends inside a block. A trailing block that
is structurally complete but fails footer or CRC validation is also reported
as truncation: a crash mid-append and trailing corruption are
indistinguishable, and both are recovered by treating the block as absent.
The same failures anywhere before the tail are reported as CorruptBlockError.

In eager mode payload bytes are read inline through a buffered stream. In
lazy mode the reader seeks past payloads and the returned blocks fetch and
validate them on first use.
*/

////////////////////////////////////////////////////////////////////////////////

const maxInstantLength = 1024

// Reader reads blocks from a single delta log file.
type Reader struct {
	rs     io.ReadSeeker
	br     *bufio.Reader
	file   string
	size   int64
	offset int64
	fetch  RangeFetcher
}

// NewReader creates a reader over one log file of the given size. The fetcher
// may be nil in eager mode.
func NewReader(rs io.ReadSeeker, file string, size int64, fetch RangeFetcher, opts ...Option) (*Reader, error) {
	conf := &config{bufferSize: defaultBufferSize}
	for _, opt := range opts {
		opt(conf)
	}
	r := &Reader{
		rs:    rs,
		file:  file,
		size:  size,
		fetch: fetch,
	}
	if !conf.lazy {
		r.br = bufio.NewReaderSize(rs, conf.bufferSize)
	}
	if err := r.validateMagic(); err != nil {
		return nil, err
	}
	return r, nil
}

// Offset returns the reader's position in the file.
func (r *Reader) Offset() int64 {
	return r.offset
}

// Size returns the file size.
func (r *Reader) Size() int64 {
	return r.size
}

func (r *Reader) readFull(buf []byte) (int, error) {
	var n int
	var err error
	if r.br != nil {
		n, err = io.ReadFull(r.br, buf)
	} else {
		n, err = io.ReadFull(r.rs, buf)
	}
	r.offset += int64(n)
	return n, err
}

func (r *Reader) validateMagic() error {
	buf := make([]byte, 8)
	if _, err := r.readFull(buf); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return ErrBadMagic
		}
		return fmt.Errorf("failed to read log magic: %w", err)
	}
	if !bytes.Equal(buf[:6], Magic) {
		return ErrBadMagic
	}
	major := buf[6]
	minor := buf[7]
	if major > currentMajor || (major == currentMajor && minor > currentMinor) {
		return UnsupportedVersionError{major, minor}
	}
	return nil
}

// Next returns the next block in the file. It returns io.EOF at a clean end
// of file and TruncatedBlockError where the file ends mid-block.
func (r *Reader) Next() (*Block, error) {
	start := r.offset
	header := make([]byte, 1+4)
	if _, err := r.readFull(header[:1]); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("failed to read block kind: %w", err)
	}
	kind := Kind(header[0])
	if kind == KindInvalid || kind > KindCommand {
		return nil, CorruptBlockError{File: r.file, Offset: start, Reason: fmt.Sprintf("invalid block kind %d", header[0])}
	}
	if _, err := r.readFull(header[1:]); err != nil {
		return nil, r.truncated(start, err)
	}
	instantLen := int64(binary.LittleEndian.Uint32(header[1:]))
	if instantLen > maxInstantLength {
		return nil, CorruptBlockError{File: r.file, Offset: start, Reason: "implausible instant length"}
	}
	if instantLen > r.size-r.offset {
		return nil, TruncatedBlockError{File: r.file, Offset: start}
	}
	rest := make([]byte, instantLen+8)
	if _, err := r.readFull(rest); err != nil {
		return nil, r.truncated(start, err)
	}
	instant := string(rest[:instantLen])
	length := binary.LittleEndian.Uint64(rest[instantLen:])

	payloadOffset := r.offset
	blockEnd := payloadOffset + int64(length) + 12
	if blockEnd > r.size {
		return nil, TruncatedBlockError{File: r.file, Offset: start}
	}

	block := &Block{
		Kind:    kind,
		Instant: instant,
		File:    r.file,
		Offset:  payloadOffset,
		Length:  length,
		tail:    blockEnd == r.size,
	}
	if r.br != nil {
		payload := make([]byte, length)
		if _, err := r.readFull(payload); err != nil {
			return nil, r.truncated(start, err)
		}
		block.payload = payload
	} else {
		if _, err := r.rs.Seek(int64(length), io.SeekCurrent); err != nil {
			return nil, fmt.Errorf("failed to seek past payload: %w", err)
		}
		r.offset += int64(length)
		block.fetch = r.fetch
	}

	footer := make([]byte, 12)
	if _, err := r.readFull(footer); err != nil {
		return nil, r.truncated(start, err)
	}
	var footerLength uint64
	var crc uint32
	n := util.ReadU64(footer, &footerLength)
	util.ReadU32(footer[n:], &crc)
	block.CRC = crc

	if footerLength != length {
		if blockEnd == r.size {
			return nil, TruncatedBlockError{File: r.file, Offset: start}
		}
		return nil, CorruptBlockError{File: r.file, Offset: start, Reason: "footer length mismatch"}
	}
	if block.payload != nil && checksum(block.payload) != crc {
		if blockEnd == r.size {
			return nil, TruncatedBlockError{File: r.file, Offset: start}
		}
		return nil, CorruptBlockError{File: r.file, Offset: start, Reason: "payload CRC mismatch"}
	}
	return block, nil
}

func (r *Reader) truncated(start int64, err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return TruncatedBlockError{File: r.file, Offset: start}
	}
	return fmt.Errorf("failed to read block: %w", err)
}
