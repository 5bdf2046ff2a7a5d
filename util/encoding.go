package util

/*
Encoding utilities for the little-endian, length-prefixed layouts used in the
delta log format. The write functions and the slice-based read functions do
not check lengths - callers must ensure buffers are appropriately sized, and
parsed data must be validated (i.e. via footer/CRC checks) before use, or a
panic may result. The io.Reader-based functions return errors instead.
*/

////////////////////////////////////////////////////////////////////////////////

import (
	"encoding/binary"
	"fmt"
	"io"
)

// ReadU8 reads a uint8 from src and stores it in x, returning the read length.
func ReadU8(src []byte, x *uint8) int {
	*x = src[0]
	return 1
}

// ReadU32 reads a uint32 from src and stores it in x, returning the read length.
func ReadU32(src []byte, x *uint32) int {
	*x = binary.LittleEndian.Uint32(src)
	return 4
}

// ReadU64 reads a uint64 from src and stores it in x, returning the read length.
func ReadU64(src []byte, x *uint64) int {
	*x = binary.LittleEndian.Uint64(src)
	return 8
}

// ReadPrefixedString reads a length-prefixed string from data and stores it in
// s, returning the read length.
func ReadPrefixedString(data []byte, s *string) int {
	if len(data) < 4 {
		panic("short buffer")
	}
	length := int(binary.LittleEndian.Uint32(data))
	if len(data[4:]) < length {
		panic("short buffer")
	}
	*s = string(data[4 : length+4])
	return 4 + length
}

// ReadPrefixedBytes reads a length-prefixed byte slice from data and stores it
// in b, returning the read length.
func ReadPrefixedBytes(data []byte, b *[]byte) int {
	if len(data) < 4 {
		panic("short buffer")
	}
	length := int(binary.LittleEndian.Uint32(data))
	if len(data[4:]) < length {
		panic("short buffer")
	}
	*b = data[4 : length+4]
	return 4 + length
}

// U8 writes a uint8 to dst and returns the written length.
func U8(dst []byte, src uint8) int {
	dst[0] = src
	return 1
}

// U32 writes a uint32 to dst and returns the written length.
func U32(dst []byte, src uint32) int {
	binary.LittleEndian.PutUint32(dst, src)
	return 4
}

// U64 writes a uint64 to dst and returns the written length.
func U64(dst []byte, src uint64) int {
	binary.LittleEndian.PutUint64(dst, src)
	return 8
}

// WritePrefixedString writes a length-prefixed string to dst and returns the
// written length.
func WritePrefixedString(dst []byte, s string) int {
	binary.LittleEndian.PutUint32(dst, uint32(len(s)))
	return 4 + copy(dst[4:], s)
}

// WritePrefixedBytes writes a length-prefixed byte slice to dst and returns
// the written length.
func WritePrefixedBytes(dst []byte, b []byte) int {
	binary.LittleEndian.PutUint32(dst, uint32(len(b)))
	return 4 + copy(dst[4:], b)
}

// DecodePrefixedString reads a length-prefixed string from r.
func DecodePrefixedString(r io.Reader) (string, error) {
	buf := make([]byte, 4)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", fmt.Errorf("failed to read string length: %w", err)
	}
	length := binary.LittleEndian.Uint32(buf)
	data := make([]byte, length)
	if _, err := io.ReadFull(r, data); err != nil {
		return "", fmt.Errorf("failed to read string data: %w", err)
	}
	return string(data), nil
}
