package util_test

import (
	"bytes"
	"testing"

	"github.com/mortdb/mort/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScalarRoundtrips(t *testing.T) {
	buf := make([]byte, 13)
	offset := util.U8(buf, 42)
	offset += util.U32(buf[offset:], 1<<20)
	util.U64(buf[offset:], 1<<40)

	var u8 uint8
	var u32 uint32
	var u64 uint64
	offset = util.ReadU8(buf, &u8)
	offset += util.ReadU32(buf[offset:], &u32)
	util.ReadU64(buf[offset:], &u64)

	assert.Equal(t, uint8(42), u8)
	assert.Equal(t, uint32(1<<20), u32)
	assert.Equal(t, uint64(1<<40), u64)
}

func TestPrefixedStringRoundtrip(t *testing.T) {
	cases := []struct {
		assertion string
		input     string
	}{
		{"empty", ""},
		{"short", "hello"},
		{"with separator", "a_b.log.1"},
	}
	for _, c := range cases {
		t.Run(c.assertion, func(t *testing.T) {
			buf := make([]byte, 4+len(c.input))
			n := util.WritePrefixedString(buf, c.input)
			require.Equal(t, 4+len(c.input), n)
			var s string
			m := util.ReadPrefixedString(buf, &s)
			assert.Equal(t, n, m)
			assert.Equal(t, c.input, s)
		})
	}
}

func TestPrefixedBytesRoundtrip(t *testing.T) {
	data := []byte{1, 2, 3, 4}
	buf := make([]byte, 4+len(data))
	n := util.WritePrefixedBytes(buf, data)
	require.Equal(t, 8, n)
	var out []byte
	m := util.ReadPrefixedBytes(buf, &out)
	assert.Equal(t, n, m)
	assert.Equal(t, data, out)
}

func TestReadPrefixedStringShortBufferPanics(t *testing.T) {
	var s string
	assert.Panics(t, func() {
		util.ReadPrefixedString([]byte{0x01}, &s)
	})
}

func TestDecodePrefixedString(t *testing.T) {
	buf := make([]byte, 4+5)
	util.WritePrefixedString(buf, "hello")
	s, err := util.DecodePrefixedString(bytes.NewReader(buf))
	require.NoError(t, err)
	assert.Equal(t, "hello", s)

	_, err = util.DecodePrefixedString(bytes.NewReader(buf[:6]))
	require.Error(t, err)
}
