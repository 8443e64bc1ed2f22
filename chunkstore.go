package chunkstore

import (
	"context"
	"fmt"
	"strings"
)

// NameSep separates the components of a chunk name.
const NameSep = "/"

// nameIndexSep separates the dimension indices within a chunk identifier.
const nameIndexSep = "_"

// Slice selects the half-open index range [Start, Stop) along one
// dimension of an array. Step 0 is shorthand for the unit step; any other
// step is invalid since chunks cover contiguous index ranges.
type Slice struct {
	Start, Stop, Step int
}

// Length returns the number of indices the slice covers.
func (s Slice) Length() int { return s.Stop - s.Start }

func (s Slice) valid() bool {
	return s.Start >= 0 && s.Stop >= s.Start && (s.Step == 0 || s.Step == 1)
}

// ChunkID returns the chunk identifier encoding the start index of each
// slice, e.g. "00012_01024_00000". A 0-dimensional chunk has the empty
// identifier.
func ChunkID(slices []Slice) string {
	parts := make([]string, len(slices))
	for i, s := range slices {
		parts[i] = fmt.Sprintf("%05d", s.Start)
	}
	return strings.Join(parts, nameIndexSep)
}

// ChunkName returns the full chunk name "<array name>/<chunk id>".
func ChunkName(name string, slices []Slice) string {
	return JoinName(name, ChunkID(slices))
}

// JoinName joins name components with the name separator.
func JoinName(parts ...string) string {
	return strings.Join(parts, NameSep)
}

// SplitName splits a chunk or array name into at most n components, with
// the final component holding the unsplit remainder.
func SplitName(name string, n int) []string {
	return strings.SplitN(name, NameSep, n)
}

// ChunkMetadata validates a chunk descriptor and returns the full chunk
// name together with the chunk shape implied by the slices. Each slice
// must have a non-negative start, a stop of at least the start and a unit
// step, and the dtype must be a supported element type.
func ChunkMetadata(name string, slices []Slice, dtype DType) (string, []int, error) {
	chunkName, shape, err := chunkShape(name, slices)
	if err != nil {
		return "", nil, err
	}
	if !dtype.Valid() {
		return "", nil, badChunkf("chunk %q: dtype is not a supported element type", chunkName)
	}
	return chunkName, shape, nil
}

// ChunkMetadataFor validates a chunk descriptor against the actual chunk
// data and returns the full chunk name and shape. The chunk shape must
// match the shape implied by the slices.
func ChunkMetadataFor(name string, slices []Slice, chunk *Array) (string, []int, error) {
	chunkName, shape, err := chunkShape(name, slices)
	if err != nil {
		return "", nil, err
	}
	if !sameShape(chunk.Shape(), shape) {
		return "", nil, badChunkf("chunk %q: data shape %v differs from that implied by slices %v",
			chunkName, chunk.Shape(), shape)
	}
	if !chunk.DType().Valid() {
		return "", nil, badChunkf("chunk %q: dtype is not a supported element type", chunkName)
	}
	return chunkName, shape, nil
}

func chunkShape(name string, slices []Slice) (string, []int, error) {
	chunkName := ChunkName(name, slices)
	shape := make([]int, len(slices))
	for i, s := range slices {
		if !s.valid() {
			return "", nil, badChunkf("chunk %q: slice %d (%d:%d:%d) is not a valid unit-step range",
				chunkName, i, s.Start, s.Stop, s.Step)
		}
		shape[i] = s.Length()
	}
	return chunkName, shape, nil
}

func sameShape(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Store reads and writes array chunks in an object store. A chunk is an
// N-dimensional piece of an array identified by the array name and the
// slices it covers; implementations persist each chunk as a single
// self-describing object.
//
// Implementations report failures through the error kinds of this
// package: ErrStoreUnavailable, ErrChunkNotFound, ErrBadChunk and
// ErrAuthorisationFailed.
type Store interface {
	// GetChunk retrieves the chunk of the named array covering the given
	// slices. The dtype must match the stored chunk.
	GetChunk(ctx context.Context, name string, slices []Slice, dtype DType) (*Array, error)

	// PutChunk stores a chunk of the named array. The chunk shape must
	// match the shape implied by the slices.
	PutChunk(ctx context.Context, name string, slices []Slice, chunk *Array) error

	// HasChunk reports whether the chunk covering the given slices exists.
	HasChunk(ctx context.Context, name string, slices []Slice, dtype DType) (bool, error)

	// ListChunkIDs returns the identifiers of all chunks stored for the
	// named array.
	ListChunkIDs(ctx context.Context, name string) ([]string, error)

	// CreateArray prepares the store to receive chunks of the named
	// array. Creating an array that already exists is not an error.
	CreateArray(ctx context.Context, name string) error

	// MarkComplete tags the named array as fully written.
	MarkComplete(ctx context.Context, name string) error

	// IsComplete reports whether the named array has been marked
	// complete.
	IsComplete(ctx context.Context, name string) (bool, error)
}
