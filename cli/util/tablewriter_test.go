package util_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/mortdb/mort/cli/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrintTable(t *testing.T) {
	color.NoColor = true
	buf := &bytes.Buffer{}
	util.PrintTable(buf,
		[]string{"key", "value"},
		[][]string{
			{"a", "1"},
			{"long-key", "2"},
		},
	)
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 4)
	assert.Contains(t, lines[0], "key")
	assert.Contains(t, lines[0], "value")
	assert.Contains(t, lines[2], "a")
	assert.Contains(t, lines[3], "long-key")
	// Every row is padded to the same width.
	for _, line := range lines[1:] {
		assert.Len(t, line, len(lines[0]))
	}
}
