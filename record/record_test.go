package record_test

import (
	"testing"

	"github.com/mortdb/mort/record"
	"github.com/stretchr/testify/assert"
)

func TestKeyString(t *testing.T) {
	key := record.Key{Record: "r1", Partition: "2024/01"}
	assert.Equal(t, "2024/01/r1", key.String())
}

func TestRecordString(t *testing.T) {
	rec := record.NewRecord("r1", "p1", 10, map[string]any{"a": 1})
	assert.Equal(t, "p1/r1@10 map[a:1]", rec.String())

	tomb := record.NewTombstone("r1", "p1", 11)
	assert.Equal(t, "p1/r1@11 (deleted)", tomb.String())
}

func TestNewTombstone(t *testing.T) {
	tomb := record.NewTombstone("r1", "p1", 5)
	assert.True(t, tomb.Deleted)
	assert.Nil(t, tomb.Fields)
	assert.Equal(t, uint64(5), tomb.Ordering)
}
