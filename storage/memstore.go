package storage

import (
	"bytes"
	"context"
	"io"
	"sync"

	"github.com/mortdb/mort/util"
)

/*
MemStore is an in-memory storage provider backed by a map. It is only suitable
for tests.
*/

////////////////////////////////////////////////////////////////////////////////

// MemStore is an in-memory store.
type MemStore struct {
	data map[string][]byte
	mtx  *sync.RWMutex
}

// NewMemStore returns a new in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{
		data: make(map[string][]byte),
		mtx:  &sync.RWMutex{},
	}
}

// Put stores an object in the store.
func (m *MemStore) Put(_ context.Context, id string, data []byte) error {
	m.mtx.Lock()
	defer m.mtx.Unlock()
	m.data[id] = append([]byte{}, data...)
	return nil
}

// Get retrieves an object from the store.
func (m *MemStore) Get(_ context.Context, id string) (io.ReadSeekCloser, error) {
	m.mtx.RLock()
	defer m.mtx.RUnlock()
	data, ok := m.data[id]
	if !ok {
		return nil, ErrObjectNotFound
	}
	return util.NewReadSeekNopCloser(bytes.NewReader(data)), nil
}

// GetRange retrieves a range of bytes from an object in the store.
func (m *MemStore) GetRange(_ context.Context, id string, offset int, length int) (io.ReadSeekCloser, error) {
	m.mtx.RLock()
	defer m.mtx.RUnlock()
	data, ok := m.data[id]
	if !ok {
		return nil, ErrObjectNotFound
	}
	if offset+length > len(data) {
		return nil, io.ErrUnexpectedEOF
	}
	return util.NewReadSeekNopCloser(bytes.NewReader(data[offset : offset+length])), nil
}

// Size returns the size of an object in the store.
func (m *MemStore) Size(_ context.Context, id string) (int64, error) {
	m.mtx.RLock()
	defer m.mtx.RUnlock()
	data, ok := m.data[id]
	if !ok {
		return 0, ErrObjectNotFound
	}
	return int64(len(data)), nil
}

// List returns the ids of objects with the given prefix in sorted order.
func (m *MemStore) List(_ context.Context, prefix string) ([]string, error) {
	m.mtx.RLock()
	defer m.mtx.RUnlock()
	ids := []string{}
	for _, id := range util.Okeys(m.data) {
		if len(id) >= len(prefix) && id[:len(prefix)] == prefix {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// Delete removes an object from the store.
func (m *MemStore) Delete(_ context.Context, id string) error {
	m.mtx.Lock()
	defer m.mtx.Unlock()
	delete(m.data, id)
	return nil
}

func (m *MemStore) String() string {
	return "memory"
}
