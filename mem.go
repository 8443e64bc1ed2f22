package chunkstore

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// MemStore is an in-memory Store implementation, useful for testing and
// for staging chunks before an upload. Chunks are copied on the way in
// and out so callers cannot mutate stored data. Thread-safe for
// concurrent reads and writes.
type MemStore struct {
	mu       sync.RWMutex
	chunks   map[string]*Array
	arrays   map[string]bool
	complete map[string]bool
}

// NewMemStore creates a new in-memory chunk store.
func NewMemStore() *MemStore {
	return &MemStore{
		chunks:   make(map[string]*Array),
		arrays:   make(map[string]bool),
		complete: make(map[string]bool),
	}
}

// GetChunk retrieves a copy of the stored chunk.
func (m *MemStore) GetChunk(_ context.Context, name string, slices []Slice, dtype DType) (*Array, error) {
	chunkName, shape, err := ChunkMetadata(name, slices, dtype)
	if err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	chunk, ok := m.chunks[chunkName]
	if !ok {
		return nil, chunkNotFoundf("chunk %q", chunkName)
	}
	if !sameShape(chunk.Shape(), shape) || chunk.DType() != dtype {
		return nil, badChunkf("chunk %q: requested dtype %s and shape %v differ from stored dtype %s and shape %v",
			chunkName, dtype, shape, chunk.DType(), chunk.Shape())
	}
	return chunk.Clone(), nil
}

// PutChunk stores a copy of the chunk.
func (m *MemStore) PutChunk(_ context.Context, name string, slices []Slice, chunk *Array) error {
	chunkName, _, err := ChunkMetadataFor(name, slices, chunk)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.chunks[chunkName] = chunk.Clone()
	return nil
}

// HasChunk reports whether the chunk has been stored.
func (m *MemStore) HasChunk(_ context.Context, name string, slices []Slice, dtype DType) (bool, error) {
	chunkName, _, err := ChunkMetadata(name, slices, dtype)
	if err != nil {
		return false, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, ok := m.chunks[chunkName]
	return ok, nil
}

// ListChunkIDs returns the identifiers of all chunks of the named array,
// in lexicographic order.
func (m *MemStore) ListChunkIDs(_ context.Context, name string) ([]string, error) {
	prefix := name + NameSep
	m.mu.RLock()
	defer m.mu.RUnlock()

	var ids []string
	for chunkName := range m.chunks {
		if strings.HasPrefix(chunkName, prefix) {
			ids = append(ids, chunkName[len(prefix):])
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// CreateArray registers the named array. Registering an existing array
// is a no-op.
func (m *MemStore) CreateArray(_ context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.arrays[name] = true
	return nil
}

// MarkComplete tags the named array as fully written.
func (m *MemStore) MarkComplete(_ context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.complete[name] = true
	return nil
}

// IsComplete reports whether the named array has been marked complete.
func (m *MemStore) IsComplete(_ context.Context, name string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.complete[name], nil
}
