package storage_test

import (
	"context"
	"io"
	"testing"

	"github.com/mortdb/mort/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemStore(t *testing.T) {
	ctx := context.Background()
	t.Run("put and get", func(t *testing.T) {
		store := storage.NewMemStore()
		require.NoError(t, store.Put(ctx, "file", []byte("hello")))
		r, err := store.Get(ctx, "file")
		require.NoError(t, err)
		defer r.Close()
		data, err := io.ReadAll(r)
		require.NoError(t, err)
		assert.Equal(t, "hello", string(data))
	})
	t.Run("get missing object", func(t *testing.T) {
		store := storage.NewMemStore()
		_, err := store.Get(ctx, "missing")
		require.ErrorIs(t, err, storage.ErrObjectNotFound)
	})
	t.Run("get range", func(t *testing.T) {
		store := storage.NewMemStore()
		require.NoError(t, store.Put(ctx, "file", []byte("hello world")))
		r, err := store.GetRange(ctx, "file", 6, 5)
		require.NoError(t, err)
		defer r.Close()
		data, err := io.ReadAll(r)
		require.NoError(t, err)
		assert.Equal(t, "world", string(data))
	})
	t.Run("get range past end", func(t *testing.T) {
		store := storage.NewMemStore()
		require.NoError(t, store.Put(ctx, "file", []byte("hello")))
		_, err := store.GetRange(ctx, "file", 3, 10)
		require.ErrorIs(t, err, io.ErrUnexpectedEOF)
	})
	t.Run("size", func(t *testing.T) {
		store := storage.NewMemStore()
		require.NoError(t, store.Put(ctx, "file", []byte("hello")))
		size, err := store.Size(ctx, "file")
		require.NoError(t, err)
		assert.Equal(t, int64(5), size)
	})
	t.Run("list with prefix", func(t *testing.T) {
		store := storage.NewMemStore()
		require.NoError(t, store.Put(ctx, "a/1", nil))
		require.NoError(t, store.Put(ctx, "a/2", nil))
		require.NoError(t, store.Put(ctx, "b/1", nil))
		ids, err := store.List(ctx, "a/")
		require.NoError(t, err)
		assert.Equal(t, []string{"a/1", "a/2"}, ids)
	})
	t.Run("delete", func(t *testing.T) {
		store := storage.NewMemStore()
		require.NoError(t, store.Put(ctx, "file", []byte("hello")))
		require.NoError(t, store.Delete(ctx, "file"))
		_, err := store.Get(ctx, "file")
		require.ErrorIs(t, err, storage.ErrObjectNotFound)
	})
	t.Run("put copies data", func(t *testing.T) {
		store := storage.NewMemStore()
		data := []byte("hello")
		require.NoError(t, store.Put(ctx, "file", data))
		data[0] = 'x'
		r, err := store.Get(ctx, "file")
		require.NoError(t, err)
		defer r.Close()
		stored, err := io.ReadAll(r)
		require.NoError(t, err)
		assert.Equal(t, "hello", string(stored))
	})
}
