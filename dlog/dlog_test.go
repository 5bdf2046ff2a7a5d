package dlog_test

import (
	"testing"

	"github.com/mortdb/mort/dlog"
	"github.com/mortdb/mort/record"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindStrings(t *testing.T) {
	assert.Equal(t, "data", dlog.KindData.String())
	assert.Equal(t, "delete", dlog.KindDelete.String())
	assert.Equal(t, "command", dlog.KindCommand.String())
	assert.Equal(t, "invalid", dlog.KindInvalid.String())
	assert.Equal(t, "invalid", dlog.Kind(99).String())
}

func TestDataPayloadRoundtrip(t *testing.T) {
	records := []record.Record{
		record.NewRecord("r1", "p1", 1, map[string]any{"a": "x"}),
		record.NewTombstone("r2", "p1", 2),
	}
	payload, err := dlog.EncodeDataPayload(records)
	require.NoError(t, err)
	decoded, err := dlog.DecodeDataPayload(payload)
	require.NoError(t, err)
	require.Len(t, decoded, 2)
	assert.Equal(t, records[0].Key, decoded[0].Key)
	assert.Equal(t, "x", decoded[0].Fields["a"])
	assert.True(t, decoded[1].Deleted)
	assert.Equal(t, uint64(2), decoded[1].Ordering)
}

func TestDataPayloadDecodeErrors(t *testing.T) {
	t.Run("short payload", func(t *testing.T) {
		_, err := dlog.DecodeDataPayload([]byte{0x01})
		require.ErrorContains(t, err, "short data payload")
	})
	t.Run("record extends past payload", func(t *testing.T) {
		payload, err := dlog.EncodeDataPayload([]record.Record{
			record.NewRecord("r1", "p1", 1, nil),
		})
		require.NoError(t, err)
		_, err = dlog.DecodeDataPayload(payload[:len(payload)-3])
		require.ErrorContains(t, err, "short data payload")
	})
}

func TestDeletePayloadRoundtrip(t *testing.T) {
	keys := []record.Key{
		{Record: "r1", Partition: "p1"},
		{Record: "r2", Partition: "p2"},
	}
	decoded, err := dlog.DecodeDeletePayload(dlog.EncodeDeletePayload(keys))
	require.NoError(t, err)
	assert.Equal(t, keys, decoded)
}

func TestDeletePayloadDecodeErrors(t *testing.T) {
	payload := dlog.EncodeDeletePayload([]record.Key{{Record: "r1", Partition: "p1"}})
	_, err := dlog.DecodeDeletePayload(payload[:len(payload)-2])
	require.ErrorContains(t, err, "short delete payload")
}

func TestCommandPayloadRoundtrip(t *testing.T) {
	cmd := dlog.Command{Action: dlog.ActionRollback, Target: "t5"}
	decoded, err := dlog.DecodeCommandPayload(dlog.EncodeCommandPayload(cmd))
	require.NoError(t, err)
	assert.Equal(t, cmd, decoded)
}

func TestCommandPayloadDecodeErrors(t *testing.T) {
	t.Run("empty payload", func(t *testing.T) {
		_, err := dlog.DecodeCommandPayload(nil)
		require.ErrorContains(t, err, "empty command payload")
	})
	t.Run("unknown action", func(t *testing.T) {
		payload := dlog.EncodeCommandPayload(dlog.Command{Action: dlog.ActionRollback, Target: "t1"})
		payload[0] = 0x7f
		_, err := dlog.DecodeCommandPayload(payload)
		require.ErrorContains(t, err, "unknown command action")
	})
}
