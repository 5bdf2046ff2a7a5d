package dlog

import (
	"fmt"
	"hash/crc32"
	"io"
	"sync"

	"github.com/mortdb/mort/record"
	"github.com/mortdb/mort/util"
)

/*
The log writer appends blocks to a delta log file. The table write path proper
lives outside this module; the writer exists for the CLI, for fixtures, and
because torn-write tolerance cannot be tested without a writer to tear.
*/

////////////////////////////////////////////////////////////////////////////////

// Writer appends blocks to a delta log file.
type Writer struct {
	w      io.Writer
	offset int64
	mtx    *sync.Mutex
}

// NewWriter creates a new log writer. If initialOffset is zero the file
// header is written first.
func NewWriter(w io.Writer, initialOffset int64) (*Writer, error) {
	if initialOffset == 0 {
		buf := make([]byte, 8)
		offset := copy(buf, Magic)
		offset += util.U8(buf[offset:], currentMajor)
		util.U8(buf[offset:], currentMinor)
		n, err := w.Write(buf)
		if err != nil {
			return nil, fmt.Errorf("failed to write log magic: %w", err)
		}
		initialOffset = int64(n)
	}
	return &Writer{
		w:      w,
		offset: initialOffset,
		mtx:    &sync.Mutex{},
	}, nil
}

// Offset returns the current end offset of the file.
func (w *Writer) Offset() int64 {
	w.mtx.Lock()
	defer w.mtx.Unlock()
	return w.offset
}

// WriteData writes a data block containing the given records, attributed to
// the given instant.
func (w *Writer) WriteData(instant string, records []record.Record) (int, error) {
	payload, err := EncodeDataPayload(records)
	if err != nil {
		return 0, fmt.Errorf("failed to encode data payload: %w", err)
	}
	return w.writeBlock(KindData, instant, payload)
}

// WriteDelete writes a delete block tombstoning the given keys, attributed to
// the given instant.
func (w *Writer) WriteDelete(instant string, keys []record.Key) (int, error) {
	return w.writeBlock(KindDelete, instant, EncodeDeletePayload(keys))
}

// WriteRollback writes a command block instructing readers to discard every
// block attributed to the target instant.
func (w *Writer) WriteRollback(instant string, target string) (int, error) {
	payload := EncodeCommandPayload(Command{Action: ActionRollback, Target: target})
	return w.writeBlock(KindCommand, instant, payload)
}

// writeBlock writes one block: header, payload, and footer.
func (w *Writer) writeBlock(kind Kind, instant string, payload []byte) (int, error) {
	w.mtx.Lock()
	defer w.mtx.Unlock()

	buf := make([]byte, 1+4+len(instant)+8+len(payload)+8+4)
	offset := util.U8(buf, uint8(kind))
	offset += util.WritePrefixedString(buf[offset:], instant)
	offset += util.U64(buf[offset:], uint64(len(payload)))
	offset += copy(buf[offset:], payload)
	offset += util.U64(buf[offset:], uint64(len(payload)))
	util.U32(buf[offset:], checksum(payload))

	n, err := w.w.Write(buf)
	w.offset += int64(n)
	if err != nil {
		return n, fmt.Errorf("failed to write block: %w", err)
	}
	if f, ok := w.w.(interface{ Flush() error }); ok {
		if err := f.Flush(); err != nil {
			return n, fmt.Errorf("failed to flush writer: %w", err)
		}
	}
	return n, nil
}

func checksum(payload []byte) uint32 {
	return crc32.ChecksumIEEE(payload)
}
