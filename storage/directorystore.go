package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/mortdb/mort/util"
)

/*
DirectoryStore is a storage provider that stores objects in a local directory.
It serves local table layouts and tests; production deployments are expected
to use object storage.
*/

////////////////////////////////////////////////////////////////////////////////

// DirectoryStore is a directory-backed store.
type DirectoryStore struct {
	root string
}

// NewDirectoryStore creates a new DirectoryStore.
func NewDirectoryStore(root string) *DirectoryStore {
	return &DirectoryStore{root: root}
}

// Put stores an object in the directory.
func (d *DirectoryStore) Put(_ context.Context, id string, data []byte) error {
	if err := os.WriteFile(filepath.Join(d.root, id), data, 0600); err != nil {
		return fmt.Errorf("write failure: %w", err)
	}
	return nil
}

// Get retrieves an object from the directory.
func (d *DirectoryStore) Get(_ context.Context, id string) (io.ReadSeekCloser, error) {
	f, err := os.Open(filepath.Join(d.root, id))
	if err != nil {
		return nil, ErrObjectNotFound
	}
	return f, nil
}

// GetRange retrieves a range of bytes from an object in the directory.
func (d *DirectoryStore) GetRange(_ context.Context, id string, offset int, length int) (io.ReadSeekCloser, error) {
	f, err := os.Open(filepath.Join(d.root, id))
	if err != nil {
		return nil, ErrObjectNotFound
	}
	defer f.Close()
	if _, err := f.Seek(int64(offset), io.SeekStart); err != nil {
		return nil, fmt.Errorf("seek failure: %w", err)
	}
	buf := make([]byte, length)
	if _, err := io.ReadFull(f, buf); err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return util.NewReadSeekNopCloser(bytes.NewReader(buf)), nil
}

// Size returns the size of an object in the directory.
func (d *DirectoryStore) Size(_ context.Context, id string) (int64, error) {
	info, err := os.Stat(filepath.Join(d.root, id))
	if err != nil {
		return 0, ErrObjectNotFound
	}
	return info.Size(), nil
}

// List returns the ids of objects with the given prefix in sorted order.
func (d *DirectoryStore) List(_ context.Context, prefix string) ([]string, error) {
	entries, err := os.ReadDir(d.root)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory: %w", err)
	}
	ids := []string{}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.HasPrefix(entry.Name(), prefix) {
			ids = append(ids, entry.Name())
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// Delete removes an object from the directory.
func (d *DirectoryStore) Delete(_ context.Context, id string) error {
	if err := os.Remove(filepath.Join(d.root, id)); err != nil {
		if errors.Is(err, os.ErrNotExist) { // For conformance to S3 API
			return nil
		}
		return fmt.Errorf("deletion failure: %w", err)
	}
	return nil
}

func (d *DirectoryStore) String() string {
	return fmt.Sprintf("directory(%s)", d.root)
}
