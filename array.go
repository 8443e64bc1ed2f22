package chunkstore

import (
	"bytes"
	"slices"
	"unsafe"
)

// Array is an N-dimensional block of elements held as raw contiguous
// bytes. The data is laid out row-major unless the fortran flag is set,
// in which case the axes are stored in reverse (column-major) order while
// Shape still reports the logical shape.
//
// An Array is a value container, not a math type: this package only needs
// to move blocks of elements between memory and a store byte-exactly.
type Array struct {
	shape   []int
	dtype   DType
	fortran bool
	data    []byte
}

// NewArray returns a zero-filled array of the given dtype and shape.
// A call without shape arguments creates a 0-dimensional (scalar) array.
func NewArray(dtype DType, shape ...int) *Array {
	n := 1
	for _, s := range shape {
		n *= s
	}
	return &Array{
		shape: append([]int(nil), shape...),
		dtype: dtype,
		data:  make([]byte, n*dtype.ItemSize()),
	}
}

// FromBytes wraps raw element bytes as an array without copying. The
// byte length must equal the product of the shape times the item size.
func FromBytes(dtype DType, data []byte, shape ...int) (*Array, error) {
	if !dtype.Valid() {
		return nil, badChunkf("invalid dtype %v", dtype)
	}
	n := 1
	for _, s := range shape {
		if s < 0 {
			return nil, badChunkf("negative extent in shape %v", shape)
		}
		n *= s
	}
	if len(data) != n*dtype.ItemSize() {
		return nil, badChunkf("data length %d does not match shape %v of dtype %s",
			len(data), shape, dtype)
	}
	return &Array{
		shape: append([]int(nil), shape...),
		dtype: dtype,
		data:  data,
	}, nil
}

// Element enumerates the Go element types representable as a DType.
type Element interface {
	bool | int8 | int16 | int32 | int64 |
		uint8 | uint16 | uint32 | uint64 |
		float32 | float64 | complex64 | complex128
}

// dtypeFor maps a Go element type onto its native-order DType.
func dtypeFor[T Element]() DType {
	var z T
	switch any(z).(type) {
	case bool:
		return Bool
	case int8:
		return Int8
	case int16:
		return Int16
	case int32:
		return Int32
	case int64:
		return Int64
	case uint8:
		return Uint8
	case uint16:
		return Uint16
	case uint32:
		return Uint32
	case uint64:
		return Uint64
	case float32:
		return Float32
	case float64:
		return Float64
	case complex64:
		return Complex64
	default:
		return Complex128
	}
}

// FromSlice wraps a Go slice as a row-major array without copying the
// elements (direct memory view, as the binary persistence layer does).
// The slice length must equal the product of the shape; omitting the
// shape produces a 1-D array.
func FromSlice[T Element](elems []T, shape ...int) (*Array, error) {
	if shape == nil {
		shape = []int{len(elems)}
	}
	n := 1
	for _, s := range shape {
		if s < 0 {
			return nil, badChunkf("negative extent in shape %v", shape)
		}
		n *= s
	}
	if len(elems) != n {
		return nil, badChunkf("%d elements do not fill shape %v", len(elems), shape)
	}
	var data []byte
	if n > 0 {
		data = unsafe.Slice((*byte)(unsafe.Pointer(&elems[0])), n*int(unsafe.Sizeof(elems[0])))
	}
	return &Array{
		shape: append([]int(nil), shape...),
		dtype: dtypeFor[T](),
		data:  data,
	}, nil
}

// AsSlice views the array's raw buffer as a Go slice in storage order,
// without copying. The requested element type must match the array's
// dtype exactly, including byte order.
func AsSlice[T Element](a *Array) ([]T, error) {
	want := dtypeFor[T]()
	if a.dtype != want {
		return nil, badChunkf("array dtype %s cannot be viewed as %s", a.dtype, want)
	}
	n := a.Size()
	if n == 0 {
		return nil, nil
	}
	return unsafe.Slice((*T)(unsafe.Pointer(&a.data[0])), n), nil
}

// Shape returns the logical extent per dimension. The returned slice is
// shared with the array and must not be modified.
func (a *Array) Shape() []int { return a.shape }

// Rank returns the number of dimensions.
func (a *Array) Rank() int { return len(a.shape) }

// DType returns the element type.
func (a *Array) DType() DType { return a.dtype }

// Fortran reports whether the data is stored in column-major order.
func (a *Array) Fortran() bool { return a.fortran }

// SetFortran marks the data as column-major. The shape is unchanged;
// only the interpretation of the storage order flips.
func (a *Array) SetFortran(fortran bool) { a.fortran = fortran }

// Size returns the number of elements.
func (a *Array) Size() int {
	n := 1
	for _, s := range a.shape {
		n *= s
	}
	return n
}

// NumBytes returns the length of the raw data in bytes.
func (a *Array) NumBytes() int { return len(a.data) }

// Data returns the raw element bytes in storage order. The returned slice
// is shared with the array.
func (a *Array) Data() []byte { return a.data }

// Equal reports whether two arrays have identical shape, dtype, storage
// order and bytes.
func (a *Array) Equal(b *Array) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.dtype == b.dtype &&
		a.fortran == b.fortran &&
		slices.Equal(a.shape, b.shape) &&
		bytes.Equal(a.data, b.data)
}

// Clone returns a deep copy of the array.
func (a *Array) Clone() *Array {
	return &Array{
		shape:   append([]int(nil), a.shape...),
		dtype:   a.dtype,
		fortran: a.fortran,
		data:    append([]byte(nil), a.data...),
	}
}
