package chunkstore

import (
	"iter"
	"math/bits"
)

// Partition describes how an array is cut into chunks: one list of block
// lengths per dimension, summing to the extent of that dimension. The
// chunk grid is the cartesian product of the per-dimension blocks.
type Partition [][]int

// NumChunks returns the total number of chunks in the partition.
func (p Partition) NumChunks() int {
	n := 1
	for _, blocks := range p {
		n *= len(blocks)
	}
	return n
}

// Shape returns the overall array shape described by the partition.
func (p Partition) Shape() []int {
	shape := make([]int, len(p))
	for dim, blocks := range p {
		for _, b := range blocks {
			shape[dim] += b
		}
	}
	return shape
}

// Chunks iterates over all chunks of the partition in row-major order,
// yielding the slices each chunk covers. The yielded slice descriptor is
// reused between iterations; copy it if it must outlive the loop body.
func (p Partition) Chunks() iter.Seq[[]Slice] {
	return func(yield func([]Slice) bool) {
		starts := make([][]int, len(p))
		for dim, blocks := range p {
			starts[dim] = make([]int, len(blocks)+1)
			for i, b := range blocks {
				starts[dim][i+1] = starts[dim][i] + b
			}
		}
		idx := make([]int, len(p))
		slices := make([]Slice, len(p))
		for {
			for dim, i := range idx {
				slices[dim] = Slice{Start: starts[dim][i], Stop: starts[dim][i+1], Step: 1}
			}
			if !yield(slices) {
				return
			}
			dim := len(idx) - 1
			for ; dim >= 0; dim-- {
				idx[dim]++
				if idx[dim] < len(p[dim]) {
					break
				}
				idx[dim] = 0
			}
			if dim < 0 {
				return
			}
		}
	}
}

type generateOptions struct {
	dimsToSplit []int
	allDims     bool
	powerOfTwo  bool
}

// GenerateOption configures GenerateChunks.
type GenerateOption func(*generateOptions)

// WithDimsToSplit restricts splitting to the given dimensions. Calling it
// with no arguments disables splitting entirely; dimensions outside the
// array rank are ignored.
func WithDimsToSplit(dims ...int) GenerateOption {
	return func(o *generateOptions) {
		o.dimsToSplit = dims
		o.allDims = false
	}
}

// WithPowerOfTwo restricts block lengths to powers of two, except for a
// shorter trailing block where the extent is not an exact multiple.
func WithPowerOfTwo() GenerateOption {
	return func(o *generateOptions) {
		o.powerOfTwo = true
	}
}

// GenerateChunks partitions an array of the given shape and dtype into
// chunks of at most maxBytes each, as far as possible. Dimensions are
// split greedily in order: each splittable dimension is cut into blocks
// no larger than the byte budget allows given the blocks already chosen
// for the other dimensions. Blocks within a dimension differ in length by
// at most one element, with the longer blocks first, so the chunks are as
// even as possible. A dimension whose single elements already exceed the
// budget is cut into single-element blocks; such chunks exceed maxBytes
// and no error is raised.
func GenerateChunks(shape []int, dtype DType, maxBytes int, opts ...GenerateOption) (Partition, error) {
	o := generateOptions{allDims: true}
	for _, opt := range opts {
		opt(&o)
	}
	if !dtype.Valid() {
		return nil, badChunkf("dtype is not a supported element type")
	}
	if maxBytes < 1 {
		return nil, badChunkf("maximum chunk size %d is not positive", maxBytes)
	}
	for _, extent := range shape {
		if extent < 0 {
			return nil, badChunkf("negative extent in shape %v", shape)
		}
	}
	split := make([]bool, len(shape))
	if o.allDims {
		for dim := range split {
			split[dim] = true
		}
	} else {
		for _, dim := range o.dimsToSplit {
			if dim >= 0 && dim < len(shape) {
				split[dim] = true
			}
		}
	}

	chunks := make(Partition, len(shape))
	largest := make([]int, len(shape))
	for dim, extent := range shape {
		chunks[dim] = []int{extent}
		largest[dim] = extent
	}
	itemSize := dtype.ItemSize()
	for dim, extent := range shape {
		if !split[dim] || extent == 0 {
			continue
		}
		// Bytes of a chunk per element along this dimension, given the
		// largest blocks already chosen for the other dimensions.
		rest := itemSize
		for d, b := range largest {
			if d != dim {
				rest *= b
			}
		}
		if rest*largest[dim] <= maxBytes {
			continue
		}
		b := maxBytes / rest
		if b < 1 {
			b = 1
		}
		if o.powerOfTwo {
			b = 1 << (bits.Len(uint(b)) - 1)
			chunks[dim] = evenBlocks(extent, b)
		} else {
			pieces := (extent + b - 1) / b
			chunks[dim] = balancedBlocks(extent, pieces)
		}
		largest[dim] = chunks[dim][0]
	}
	return chunks, nil
}

// balancedBlocks splits extent into the given number of blocks differing
// in length by at most one, longer blocks first.
func balancedBlocks(extent, pieces int) []int {
	base := extent / pieces
	rem := extent % pieces
	blocks := make([]int, pieces)
	for i := range blocks {
		if i < rem {
			blocks[i] = base + 1
		} else {
			blocks[i] = base
		}
	}
	return blocks
}

// evenBlocks splits extent into blocks of exactly b elements plus a
// shorter tail when extent is not a multiple of b.
func evenBlocks(extent, b int) []int {
	n := extent / b
	tail := extent % b
	blocks := make([]int, 0, n+1)
	for i := 0; i < n; i++ {
		blocks = append(blocks, b)
	}
	if tail > 0 {
		blocks = append(blocks, tail)
	}
	return blocks
}
