package chunkstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemStore_PutAndGetChunk(t *testing.T) {
	store := NewMemStore()
	ctx := context.Background()

	chunk, err := FromSlice([]float32{1, 2, 3, 4, 5, 6}, 2, 3)
	require.NoError(t, err)
	slices := []Slice{{Start: 4, Stop: 6, Step: 1}, {Start: 0, Stop: 3, Step: 1}}

	require.NoError(t, store.PutChunk(ctx, "bucket/x", slices, chunk))

	got, err := store.GetChunk(ctx, "bucket/x", slices, Float32)
	require.NoError(t, err)
	require.True(t, chunk.Equal(got))

	// The store hands out copies, not views.
	got.Data()[0] ^= 0xff
	again, err := store.GetChunk(ctx, "bucket/x", slices, Float32)
	require.NoError(t, err)
	require.True(t, chunk.Equal(again))
}

func TestMemStore_GetChunkNotFound(t *testing.T) {
	store := NewMemStore()

	_, err := store.GetChunk(context.Background(), "bucket/x",
		[]Slice{{Start: 0, Stop: 2, Step: 1}}, Float32)
	require.ErrorIs(t, err, ErrChunkNotFound)
}

func TestMemStore_GetChunkDTypeMismatch(t *testing.T) {
	store := NewMemStore()
	ctx := context.Background()

	chunk, err := FromSlice([]float32{1, 2}, 2)
	require.NoError(t, err)
	slices := []Slice{{Start: 0, Stop: 2, Step: 1}}
	require.NoError(t, store.PutChunk(ctx, "bucket/x", slices, chunk))

	// Same chunk name, wrong element type.
	_, err = store.GetChunk(ctx, "bucket/x", slices, Int32)
	require.ErrorIs(t, err, ErrBadChunk)
}

func TestMemStore_PutChunkShapeMismatch(t *testing.T) {
	store := NewMemStore()

	chunk := NewArray(Float32, 2, 3)
	slices := []Slice{{Start: 0, Stop: 2, Step: 1}, {Start: 0, Stop: 4, Step: 1}}
	err := store.PutChunk(context.Background(), "bucket/x", slices, chunk)
	require.ErrorIs(t, err, ErrBadChunk)
}

func TestMemStore_HasChunk(t *testing.T) {
	store := NewMemStore()
	ctx := context.Background()
	slices := []Slice{{Start: 0, Stop: 2, Step: 1}}

	found, err := store.HasChunk(ctx, "bucket/x", slices, Float32)
	require.NoError(t, err)
	require.False(t, found)

	chunk := NewArray(Float32, 2)
	require.NoError(t, store.PutChunk(ctx, "bucket/x", slices, chunk))

	found, err = store.HasChunk(ctx, "bucket/x", slices, Float32)
	require.NoError(t, err)
	require.True(t, found)
}

func TestMemStore_ListChunkIDs(t *testing.T) {
	store := NewMemStore()
	ctx := context.Background()

	p := Partition{{2, 2}, {3}}
	for chunk := range p.Chunks() {
		chunkShape := []int{chunk[0].Length(), chunk[1].Length()}
		require.NoError(t, store.PutChunk(ctx, "bucket/x", chunk, NewArray(Int32, chunkShape...)))
	}
	// A chunk of another array must not show up in the listing.
	require.NoError(t, store.PutChunk(ctx, "bucket/y",
		[]Slice{{Start: 0, Stop: 1, Step: 1}}, NewArray(Int32, 1)))

	ids, err := store.ListChunkIDs(ctx, "bucket/x")
	require.NoError(t, err)
	require.Equal(t, []string{"00000_00000", "00002_00000"}, ids)

	// The listing drives the presence map.
	m := NewChunkMap(p)
	require.NoError(t, m.MarkAll(ids))
	assert.True(t, m.Complete())

	ids, err = store.ListChunkIDs(ctx, "bucket/missing")
	require.NoError(t, err)
	require.Empty(t, ids)
}

func TestMemStore_Complete(t *testing.T) {
	store := NewMemStore()
	ctx := context.Background()

	require.NoError(t, store.CreateArray(ctx, "bucket/x"))
	require.NoError(t, store.CreateArray(ctx, "bucket/x")) // idempotent

	done, err := store.IsComplete(ctx, "bucket/x")
	require.NoError(t, err)
	require.False(t, done)

	require.NoError(t, store.MarkComplete(ctx, "bucket/x"))

	done, err = store.IsComplete(ctx, "bucket/x")
	require.NoError(t, err)
	require.True(t, done)
}
