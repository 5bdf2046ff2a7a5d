package dlog_test

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/mortdb/mort/dlog"
	"github.com/mortdb/mort/record"
	"github.com/mortdb/mort/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func putLogFile(t *testing.T, store storage.Provider, name string, instants ...string) {
	t.Helper()
	ctx := context.Background()
	buf := &bytes.Buffer{}
	w, err := dlog.NewWriter(buf, 0)
	require.NoError(t, err)
	for _, instant := range instants {
		_, err := w.WriteData(instant, []record.Record{
			record.NewRecord("r1", "p1", 1, map[string]any{"a": instant}),
		})
		require.NoError(t, err)
	}
	require.NoError(t, store.Put(ctx, name, buf.Bytes()))
}

func drainChain(t *testing.T, c *dlog.ChainReader) []string {
	t.Helper()
	ctx := context.Background()
	instants := []string{}
	for {
		block, err := c.Next(ctx)
		if err == io.EOF {
			return instants
		}
		require.NoError(t, err)
		instants = append(instants, block.Instant)
	}
}

func TestChainReader(t *testing.T) {
	ctx := context.Background()
	t.Run("blocks arrive in file order", func(t *testing.T) {
		store := storage.NewMemStore()
		putLogFile(t, store, "log.1", "t1", "t2")
		putLogFile(t, store, "log.2", "t3")
		c, err := dlog.NewChainReader(ctx, store, []string{"log.1", "log.2"})
		require.NoError(t, err)
		defer c.Close()
		assert.Equal(t, []string{"t1", "t2", "t3"}, drainChain(t, c))
	})
	t.Run("empty chain", func(t *testing.T) {
		store := storage.NewMemStore()
		c, err := dlog.NewChainReader(ctx, store, nil)
		require.NoError(t, err)
		defer c.Close()
		assert.Empty(t, drainChain(t, c))
		assert.InDelta(t, 1.0, c.Progress(), 1e-9)
	})
	t.Run("missing file", func(t *testing.T) {
		store := storage.NewMemStore()
		_, err := dlog.NewChainReader(ctx, store, []string{"log.missing"})
		require.ErrorIs(t, err, storage.ErrObjectNotFound)
	})
	t.Run("truncated tail ends the file, not the chain", func(t *testing.T) {
		store := storage.NewMemStore()
		buf := &bytes.Buffer{}
		w, err := dlog.NewWriter(buf, 0)
		require.NoError(t, err)
		_, err = w.WriteData("t1", []record.Record{record.NewRecord("r1", "p1", 1, nil)})
		require.NoError(t, err)
		intact := w.Offset()
		_, err = w.WriteData("t2", []record.Record{record.NewRecord("r2", "p1", 1, nil)})
		require.NoError(t, err)
		require.NoError(t, store.Put(ctx, "log.1", buf.Bytes()[:intact+5]))
		putLogFile(t, store, "log.2", "t3")

		c, err := dlog.NewChainReader(ctx, store, []string{"log.1", "log.2"})
		require.NoError(t, err)
		defer c.Close()
		assert.Equal(t, []string{"t1", "t3"}, drainChain(t, c))
	})
	t.Run("mid-file corruption is surfaced", func(t *testing.T) {
		store := storage.NewMemStore()
		buf := &bytes.Buffer{}
		w, err := dlog.NewWriter(buf, 0)
		require.NoError(t, err)
		offset := w.Offset()
		_, err = w.WriteData("t1", []record.Record{record.NewRecord("r1", "p1", 1, nil)})
		require.NoError(t, err)
		_, err = w.WriteData("t2", []record.Record{record.NewRecord("r2", "p1", 1, nil)})
		require.NoError(t, err)
		data := buf.Bytes()
		data[offset+20] ^= 0xff
		require.NoError(t, store.Put(ctx, "log.1", data))

		c, err := dlog.NewChainReader(ctx, store, []string{"log.1"})
		require.NoError(t, err)
		defer c.Close()
		_, err = c.Next(ctx)
		require.ErrorIs(t, err, dlog.CorruptBlockError{})
	})
	t.Run("progress is monotone and completes", func(t *testing.T) {
		store := storage.NewMemStore()
		putLogFile(t, store, "log.1", "t1", "t2")
		putLogFile(t, store, "log.2", "t3")
		c, err := dlog.NewChainReader(ctx, store, []string{"log.1", "log.2"})
		require.NoError(t, err)
		defer c.Close()
		last := c.Progress()
		require.GreaterOrEqual(t, last, 0.0)
		for {
			_, err := c.Next(ctx)
			if err == io.EOF {
				break
			}
			require.NoError(t, err)
			progress := c.Progress()
			assert.GreaterOrEqual(t, progress, last)
			assert.LessOrEqual(t, progress, 1.0)
			last = progress
		}
		assert.InDelta(t, 1.0, c.Progress(), 1e-9)
	})
	t.Run("close is idempotent", func(t *testing.T) {
		store := storage.NewMemStore()
		putLogFile(t, store, "log.1", "t1")
		c, err := dlog.NewChainReader(ctx, store, []string{"log.1"})
		require.NoError(t, err)
		_, err = c.Next(ctx)
		require.NoError(t, err)
		require.NoError(t, c.Close())
		require.NoError(t, c.Close())
	})
	t.Run("lazy blocks materialize through the store", func(t *testing.T) {
		store := storage.NewMemStore()
		putLogFile(t, store, "log.1", "t1")
		c, err := dlog.NewChainReader(ctx, store, []string{"log.1"}, dlog.WithLazyBlockRead(true))
		require.NoError(t, err)
		defer c.Close()
		block, err := c.Next(ctx)
		require.NoError(t, err)
		payload, err := block.Payload(ctx)
		require.NoError(t, err)
		records, err := dlog.DecodeDataPayload(payload)
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Equal(t, "t1", records[0].Fields["a"])
	})
}
