package chunkstore

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// defaultConcurrency bounds the number of in-flight store operations
// during a bulk transfer.
const defaultConcurrency = 16

type bulkOptions struct {
	concurrency int
}

// BulkOption configures PutArray and GetArray.
type BulkOption func(*bulkOptions)

// WithConcurrency sets the maximum number of chunks transferred at the
// same time.
func WithConcurrency(n int) BulkOption {
	return func(o *bulkOptions) {
		if n > 0 {
			o.concurrency = n
		}
	}
}

// PutArray cuts a row-major array into the chunks of the partition and
// stores them concurrently. The first failed chunk cancels the remaining
// transfers and its error is returned.
func PutArray(ctx context.Context, store Store, name string, a *Array, p Partition, opts ...BulkOption) error {
	o := bulkOptions{concurrency: defaultConcurrency}
	for _, opt := range opts {
		opt(&o)
	}
	if a.Fortran() {
		return badChunkf("array %q: bulk transfer requires row-major data", name)
	}
	if !sameShape(a.Shape(), p.Shape()) {
		return badChunkf("array %q: partition shape %v differs from array shape %v",
			name, p.Shape(), a.Shape())
	}
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(o.concurrency)
	for chunk := range p.Chunks() {
		slices := append([]Slice(nil), chunk...)
		g.Go(func() error {
			return store.PutChunk(ctx, name, slices, extract(a, slices))
		})
	}
	return g.Wait()
}

// GetArray fetches every chunk of the partition concurrently and
// assembles them into a single row-major array. The first failed chunk
// cancels the remaining transfers and its error is returned.
func GetArray(ctx context.Context, store Store, name string, dtype DType, p Partition, opts ...BulkOption) (*Array, error) {
	o := bulkOptions{concurrency: defaultConcurrency}
	for _, opt := range opts {
		opt(&o)
	}
	out := NewArray(dtype, p.Shape()...)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(o.concurrency)
	for chunk := range p.Chunks() {
		slices := append([]Slice(nil), chunk...)
		g.Go(func() error {
			piece, err := store.GetChunk(ctx, name, slices, dtype)
			if err != nil {
				return err
			}
			// Chunks cover disjoint byte ranges of the output buffer, so
			// the concurrent copies need no locking.
			return insert(out, slices, piece)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// extract copies the region covered by slices out of a row-major array
// into a freshly allocated chunk.
func extract(a *Array, slices []Slice) *Array {
	shape := make([]int, len(slices))
	for i, s := range slices {
		shape[i] = s.Length()
	}
	chunk := NewArray(a.DType(), shape...)
	copyRegion(chunk.Data(), a, slices, true)
	return chunk
}

// insert copies a chunk into the region of a row-major array covered by
// slices.
func insert(a *Array, slices []Slice, chunk *Array) error {
	if chunk.DType() != a.DType() {
		return badChunkf("chunk dtype %s differs from array dtype %s", chunk.DType(), a.DType())
	}
	if chunk.Fortran() {
		return badChunkf("bulk transfer requires row-major chunks")
	}
	copyRegion(chunk.Data(), a, slices, false)
	return nil
}

// copyRegion copies between the flat buffer of a chunk and the region of
// a row-major array covered by slices, one contiguous innermost row at a
// time. toFlat selects the direction.
func copyRegion(flat []byte, a *Array, slices []Slice, toFlat bool) {
	data := a.Data()
	if len(slices) == 0 {
		if toFlat {
			copy(flat, data)
		} else {
			copy(data, flat)
		}
		return
	}
	itemSize := a.DType().ItemSize()
	shape := a.Shape()
	strides := make([]int, len(shape))
	stride := itemSize
	for d := len(shape) - 1; d >= 0; d-- {
		strides[d] = stride
		stride *= shape[d]
	}
	last := len(slices) - 1
	rowBytes := slices[last].Length() * itemSize
	outer := slices[:last]
	rows := 1
	for _, s := range outer {
		rows *= s.Length()
	}
	if rows == 0 || rowBytes == 0 {
		return
	}
	idx := make([]int, len(outer))
	base := slices[last].Start * strides[last]
	flatOff := 0
	for {
		off := base
		for d, i := range idx {
			off += (slices[d].Start + i) * strides[d]
		}
		if toFlat {
			copy(flat[flatOff:flatOff+rowBytes], data[off:off+rowBytes])
		} else {
			copy(data[off:off+rowBytes], flat[flatOff:flatOff+rowBytes])
		}
		flatOff += rowBytes
		d := len(outer) - 1
		for ; d >= 0; d-- {
			idx[d]++
			if idx[d] < outer[d].Length() {
				break
			}
			idx[d] = 0
		}
		if d < 0 {
			return
		}
	}
}
