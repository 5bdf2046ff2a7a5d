package util_test

import (
	"testing"

	"github.com/mortdb/mort/cli/util"
	"github.com/mortdb/mort/record"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordFilter(t *testing.T) {
	rec := record.NewRecord("r1", "p1", 5, map[string]any{"v": "x"})
	cases := []struct {
		assertion string
		expr      string
		pass      bool
	}{
		{"empty expression admits everything", "", true},
		{"match on key", `key == "r1"`, true},
		{"mismatch on key", `key == "r2"`, false},
		{"match on partition", `partition == "p1"`, true},
		{"match on ordering", "ordering > 3", true},
		{"match on delete marker", "!deleted", true},
		{"match on field", `fields["v"] == "x"`, true},
		{"missing field rejects", `fields["absent"] == "x"`, false},
	}
	for _, c := range cases {
		t.Run(c.assertion, func(t *testing.T) {
			f, err := util.NewRecordFilter(c.expr)
			require.NoError(t, err)
			assert.Equal(t, c.pass, f.Eval(rec))
		})
	}
	t.Run("invalid expression", func(t *testing.T) {
		_, err := util.NewRecordFilter("key ==")
		require.ErrorContains(t, err, "invalid filter expression")
	})
	t.Run("non-boolean expression rejects", func(t *testing.T) {
		f, err := util.NewRecordFilter("ordering")
		require.NoError(t, err)
		assert.False(t, f.Eval(rec))
	})
	t.Run("tombstones evaluate with an empty field map", func(t *testing.T) {
		f, err := util.NewRecordFilter("deleted")
		require.NoError(t, err)
		assert.True(t, f.Eval(record.NewTombstone("r1", "p1", 1)))
	})
}
