package chunkstore

import (
	"iter"
	"slices"
	"strconv"
	"strings"

	"github.com/RoaringBitmap/roaring/v2"
)

// ChunkMap tracks which chunks of a partitioned array are present, e.g.
// while filling an array from a store or monitoring a long-running write.
// Chunks are identified by their chunk identifier as reported by
// Store.ListChunkIDs. The map is not safe for concurrent use.
type ChunkMap struct {
	partition Partition
	starts    [][]int
	strides   []int
	present   *roaring.Bitmap
}

// NewChunkMap returns an empty presence map for the given partition.
func NewChunkMap(p Partition) *ChunkMap {
	starts := make([][]int, len(p))
	for dim, blocks := range p {
		starts[dim] = make([]int, len(blocks))
		for i := 1; i < len(blocks); i++ {
			starts[dim][i] = starts[dim][i-1] + blocks[i-1]
		}
	}
	strides := make([]int, len(p))
	stride := 1
	for dim := len(p) - 1; dim >= 0; dim-- {
		strides[dim] = stride
		stride *= len(p[dim])
	}
	return &ChunkMap{
		partition: p,
		starts:    starts,
		strides:   strides,
		present:   roaring.New(),
	}
}

// Mark records the chunk with the given identifier as present.
func (m *ChunkMap) Mark(id string) error {
	n, err := m.index(id)
	if err != nil {
		return err
	}
	m.present.Add(n)
	return nil
}

// MarkAll records all given chunk identifiers as present, stopping at the
// first identifier that does not belong to the partition.
func (m *ChunkMap) MarkAll(ids []string) error {
	for _, id := range ids {
		if err := m.Mark(id); err != nil {
			return err
		}
	}
	return nil
}

// Contains reports whether the chunk with the given identifier has been
// marked present.
func (m *ChunkMap) Contains(id string) bool {
	n, err := m.index(id)
	if err != nil {
		return false
	}
	return m.present.Contains(n)
}

// NumPresent returns the number of chunks marked present.
func (m *ChunkMap) NumPresent() int {
	return int(m.present.GetCardinality())
}

// Complete reports whether every chunk of the partition is present.
func (m *ChunkMap) Complete() bool {
	return m.NumPresent() == m.partition.NumChunks()
}

// Missing iterates over the chunks not yet marked present, in row-major
// order, yielding the slices each chunk covers.
func (m *ChunkMap) Missing() iter.Seq[[]Slice] {
	return func(yield func([]Slice) bool) {
		var n uint32
		for chunk := range m.partition.Chunks() {
			if !m.present.Contains(n) {
				if !yield(chunk) {
					return
				}
			}
			n++
		}
	}
}

// index converts a chunk identifier into its row-major position on the
// chunk grid.
func (m *ChunkMap) index(id string) (uint32, error) {
	if len(m.partition) == 0 {
		if id != "" {
			return 0, badChunkf("chunk id %q does not fit a 0-dimensional array", id)
		}
		return 0, nil
	}
	parts := strings.Split(id, nameIndexSep)
	if len(parts) != len(m.partition) {
		return 0, badChunkf("chunk id %q has %d dimensions instead of %d",
			id, len(parts), len(m.partition))
	}
	n := 0
	for dim, part := range parts {
		start, err := strconv.Atoi(part)
		if err != nil {
			return 0, badChunkf("chunk id %q has a malformed index", id)
		}
		i, ok := slices.BinarySearch(m.starts[dim], start)
		if !ok {
			return 0, badChunkf("chunk id %q does not start on the chunk grid", id)
		}
		n += i * m.strides[dim]
	}
	return uint32(n), nil
}
