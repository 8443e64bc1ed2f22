package chunkstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

// rampArray builds a row-major int32 array of the given shape filled with
// 0, 1, 2, ...
func rampArray(t *testing.T, shape ...int) *Array {
	t.Helper()
	n := 1
	for _, s := range shape {
		n *= s
	}
	elems := make([]int32, n)
	for i := range elems {
		elems[i] = int32(i)
	}
	a, err := FromSlice(elems, shape...)
	require.NoError(t, err)
	return a
}

func TestPutArrayGetArray(t *testing.T) {
	tests := []struct {
		name string
		p    Partition
	}{
		{"EvenBlocks", Partition{{2, 2}, {3, 3}, {2}}},
		{"UnevenBlocks", Partition{{3, 1}, {4, 2}, {2}}},
		{"SingleChunk", Partition{{4}, {6}, {2}}},
		{"ElementChunks", Partition{repeatBlocks(4, 1), repeatBlocks(6, 1), repeatBlocks(2, 1)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := NewMemStore()
			ctx := context.Background()
			a := rampArray(t, 4, 6, 2)

			require.NoError(t, PutArray(ctx, store, "bucket/x", a, tt.p))

			ids, err := store.ListChunkIDs(ctx, "bucket/x")
			require.NoError(t, err)
			require.Len(t, ids, tt.p.NumChunks())

			got, err := GetArray(ctx, store, "bucket/x", Int32, tt.p)
			require.NoError(t, err)
			require.True(t, a.Equal(got))
		})
	}
}

func TestPutArrayGetArray_Scalar(t *testing.T) {
	store := NewMemStore()
	ctx := context.Background()

	a, err := FromSlice([]float64{42.5})
	require.NoError(t, err)
	scalar, err := FromBytes(Float64, a.Data())
	require.NoError(t, err)

	require.NoError(t, PutArray(ctx, store, "bucket/s", scalar, Partition{}))

	got, err := GetArray(ctx, store, "bucket/s", Float64, Partition{})
	require.NoError(t, err)
	require.True(t, scalar.Equal(got))
}

func TestPutArray_ShapeMismatch(t *testing.T) {
	store := NewMemStore()
	a := rampArray(t, 4, 6)

	err := PutArray(context.Background(), store, "bucket/x", a, Partition{{4}, {5}})
	require.ErrorIs(t, err, ErrBadChunk)
}

func TestPutArray_FortranRejected(t *testing.T) {
	store := NewMemStore()
	a := rampArray(t, 4, 6)
	a.SetFortran(true)

	err := PutArray(context.Background(), store, "bucket/x", a, Partition{{4}, {6}})
	require.ErrorIs(t, err, ErrBadChunk)
}

func TestGetArray_MissingChunk(t *testing.T) {
	store := NewMemStore()
	ctx := context.Background()
	a := rampArray(t, 4, 4)
	p := Partition{{2, 2}, {4}}

	require.NoError(t, PutArray(ctx, store, "bucket/x", a, p))

	// Every chunk of an array that was never written is missing.
	_, err := GetArray(ctx, store, "bucket/other", Int32, p)
	require.ErrorIs(t, err, ErrChunkNotFound)
}

func TestPutArray_Concurrency(t *testing.T) {
	store := NewMemStore()
	ctx := context.Background()
	a := rampArray(t, 16, 8)
	p := Partition{repeatBlocks(16, 1), repeatBlocks(8, 1)}

	require.NoError(t, PutArray(ctx, store, "bucket/x", a, p, WithConcurrency(4)))

	got, err := GetArray(ctx, store, "bucket/x", Int32, p, WithConcurrency(4))
	require.NoError(t, err)
	require.True(t, a.Equal(got))
}

func TestExtractInsert_RoundTrip(t *testing.T) {
	a := rampArray(t, 4, 6)
	slices := []Slice{{Start: 1, Stop: 3, Step: 1}, {Start: 2, Stop: 5, Step: 1}}

	chunk := extract(a, slices)
	require.Equal(t, []int{2, 3}, chunk.Shape())

	// Row 1 of the region: elements (1,2), (1,3), (1,4) = 8, 9, 10.
	elems, err := AsSlice[int32](chunk)
	require.NoError(t, err)
	require.Equal(t, []int32{8, 9, 10, 14, 15, 16}, elems)

	out := NewArray(Int32, 4, 6)
	require.NoError(t, insert(out, slices, chunk))
	region := extract(out, slices)
	require.True(t, chunk.Equal(region))

	// Bytes outside the region stay zero.
	outElems, err := AsSlice[int32](out)
	require.NoError(t, err)
	require.Zero(t, outElems[0])
	require.Zero(t, outElems[23])
	require.Equal(t, int32(8), outElems[1*6+2])
}
