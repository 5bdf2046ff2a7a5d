package dlog

import (
	"context"
	"encoding/binary"
	"fmt"

	"github.com/goccy/go-json"
	"github.com/mortdb/mort/record"
	"github.com/mortdb/mort/util"
)

/*
Common types for the delta log format. A delta log file is an append-only
journal of blocks layered over a base file. The format of a log file is:

    Magic: 6 bytes (mortlg)
    Version: 2 bytes (major, minor)
    [Block]*

Where each Block is:
    Kind: 1 byte
    Instant: 4-byte length-prefixed string
    Length: 8 bytes
    Payload: [Length]byte
    Length: 8 bytes (repeated for torn-write detection and backward scans)
    CRC32: 4 bytes (over Payload)

A block is only semantically valid once fully written: header, payload, and
footer present with agreeing lengths and a matching CRC. A truncated trailing
block is the expected residue of a crash mid-append and is treated as absent
by readers, never as corruption.

The payload CRC lives in the footer rather than covering the header so that a
reader in lazy mode can skip payload bytes entirely and validate them only if
the block is ever materialized.
*/

////////////////////////////////////////////////////////////////////////////////

// Magic is the magic number for delta log files.
var Magic = []byte{'m', 'o', 'r', 't', 'l', 'g'} // nolint:gochecknoglobals

const (
	currentMajor = uint8(0)
	currentMinor = uint8(1)
)

// Kind is the kind of a log block.
type Kind uint8

const (
	KindInvalid Kind = iota
	// KindData carries inserted or updated records.
	KindData
	// KindDelete carries record keys to tombstone.
	KindDelete
	// KindCommand carries a control instruction, currently only rollback.
	KindCommand
)

func (k Kind) String() string {
	switch k {
	case KindData:
		return "data"
	case KindDelete:
		return "delete"
	case KindCommand:
		return "command"
	default:
		return "invalid"
	}
}

// Action is the action of a command block.
type Action uint8

const (
	ActionInvalid Action = iota
	// ActionRollback instructs readers to discard every block attributed to
	// the target instant.
	ActionRollback
)

// Command is the decoded payload of a command block.
type Command struct {
	Action Action
	// Target is the instant whose blocks the command applies to.
	Target string
}

// RangeFetcher retrieves length bytes of the named file starting at offset.
// Lazy-mode blocks use it to materialize payloads on demand.
type RangeFetcher func(ctx context.Context, file string, offset int64, length int64) ([]byte, error)

// Block is one validated block of a delta log file. In eager read mode the
// payload is held in memory; in lazy mode it is fetched when first requested.
type Block struct {
	Kind    Kind
	Instant string
	File    string
	// Offset is the position of the payload within the file.
	Offset int64
	// Length is the payload length in bytes.
	Length uint64
	// CRC is the expected payload checksum from the block footer.
	CRC uint32

	payload []byte
	fetch   RangeFetcher

	// tail records whether the block ends exactly at the end of its file.
	// A tail block that fails checksum validation is classified as
	// truncation rather than corruption, in both read modes.
	tail bool
}

// Payload returns the block's payload bytes, fetching and validating them if
// the block was read lazily. A checksum failure on the final block of a file
// is reported as TruncatedBlockError, matching the eager read path's
// classification of a torn tail.
func (b *Block) Payload(ctx context.Context) ([]byte, error) {
	if b.payload != nil {
		return b.payload, nil
	}
	if b.Length == 0 {
		return []byte{}, nil
	}
	if b.fetch == nil {
		return nil, fmt.Errorf("block has no payload and no fetcher")
	}
	data, err := b.fetch(ctx, b.File, b.Offset, int64(b.Length))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch block payload: %w", err)
	}
	if crc := checksum(data); crc != b.CRC {
		if b.tail {
			return nil, TruncatedBlockError{File: b.File, Offset: b.Offset}
		}
		return nil, CorruptBlockError{File: b.File, Offset: b.Offset, Reason: "payload CRC mismatch"}
	}
	b.payload = data
	return data, nil
}

// EncodeDataPayload encodes records as a data block payload.
func EncodeDataPayload(records []record.Record) ([]byte, error) {
	encoded := make([][]byte, len(records))
	length := 4
	for i, rec := range records {
		data, err := json.Marshal(rec)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal record: %w", err)
		}
		encoded[i] = data
		length += 4 + len(data)
	}
	buf := make([]byte, length)
	offset := util.U32(buf, uint32(len(records)))
	for _, data := range encoded {
		offset += util.WritePrefixedBytes(buf[offset:], data)
	}
	return buf, nil
}

// DecodeDataPayload decodes a data block payload into records.
func DecodeDataPayload(data []byte) ([]record.Record, error) {
	if len(data) < 4 {
		return nil, fmt.Errorf("short data payload: %d bytes", len(data))
	}
	var count uint32
	offset := util.ReadU32(data, &count)
	records := make([]record.Record, 0, count)
	for i := uint32(0); i < count; i++ {
		if len(data[offset:]) < 4 {
			return nil, fmt.Errorf("short data payload: record %d", i)
		}
		length := int(binary.LittleEndian.Uint32(data[offset:]))
		offset += 4
		if len(data[offset:]) < length {
			return nil, fmt.Errorf("short data payload: record %d", i)
		}
		var rec record.Record
		if err := json.Unmarshal(data[offset:offset+length], &rec); err != nil {
			return nil, fmt.Errorf("failed to unmarshal record: %w", err)
		}
		offset += length
		records = append(records, rec)
	}
	return records, nil
}

// EncodeDeletePayload encodes keys as a delete block payload.
func EncodeDeletePayload(keys []record.Key) []byte {
	length := 4
	for _, key := range keys {
		length += 4 + len(key.Record) + 4 + len(key.Partition)
	}
	buf := make([]byte, length)
	offset := util.U32(buf, uint32(len(keys)))
	for _, key := range keys {
		offset += util.WritePrefixedString(buf[offset:], key.Record)
		offset += util.WritePrefixedString(buf[offset:], key.Partition)
	}
	return buf
}

// DecodeDeletePayload decodes a delete block payload into keys.
func DecodeDeletePayload(data []byte) ([]record.Key, error) {
	if len(data) < 4 {
		return nil, fmt.Errorf("short delete payload: %d bytes", len(data))
	}
	var count uint32
	offset := util.ReadU32(data, &count)
	keys := make([]record.Key, 0, count)
	for i := uint32(0); i < count; i++ {
		var key record.Key
		n, err := readPrefixedString(data[offset:], &key.Record)
		if err != nil {
			return nil, fmt.Errorf("short delete payload: key %d", i)
		}
		offset += n
		n, err = readPrefixedString(data[offset:], &key.Partition)
		if err != nil {
			return nil, fmt.Errorf("short delete payload: key %d", i)
		}
		offset += n
		keys = append(keys, key)
	}
	return keys, nil
}

// EncodeCommandPayload encodes a command block payload.
func EncodeCommandPayload(cmd Command) []byte {
	buf := make([]byte, 1+4+len(cmd.Target))
	offset := util.U8(buf, uint8(cmd.Action))
	util.WritePrefixedString(buf[offset:], cmd.Target)
	return buf
}

// DecodeCommandPayload decodes a command block payload.
func DecodeCommandPayload(data []byte) (Command, error) {
	if len(data) < 1 {
		return Command{}, fmt.Errorf("empty command payload")
	}
	var action uint8
	offset := util.ReadU8(data, &action)
	cmd := Command{Action: Action(action)}
	if _, err := readPrefixedString(data[offset:], &cmd.Target); err != nil {
		return Command{}, fmt.Errorf("short command payload")
	}
	if cmd.Action != ActionRollback {
		return Command{}, fmt.Errorf("unknown command action: %d", action)
	}
	return cmd, nil
}

func readPrefixedString(data []byte, s *string) (int, error) {
	if len(data) < 4 {
		return 0, fmt.Errorf("short buffer")
	}
	length := int(binary.LittleEndian.Uint32(data))
	if len(data[4:]) < length {
		return 0, fmt.Errorf("short buffer")
	}
	*s = string(data[4 : length+4])
	return 4 + length, nil
}
