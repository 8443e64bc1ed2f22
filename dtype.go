package chunkstore

import (
	"encoding/binary"
	"strconv"
)

// nativeLittle reports whether the host stores multi-byte values
// little-endian. All currently supported platforms are little-endian,
// matching the byte order the typed constructors below advertise.
var nativeLittle = binary.NativeEndian.Uint16([]byte{0x34, 0x12}) == 0x1234

// DType describes the element type of an Array using NumPy's type system:
// a kind character, an item size in bytes and a byte order. The zero value
// is invalid; construct values with the exported variables or ParseDType.
//
// DType is comparable: two DTypes are interchangeable exactly when they
// compare equal. Single-byte types carry no byte order.
type DType struct {
	kind byte // one of 'b', 'i', 'u', 'f', 'c'
	size int  // item size in bytes
	big  bool // big-endian; always false when size == 1
}

// Supported element types. Multi-byte types are little-endian, the native
// order on x86/ARM; use WithBigEndian for the byte-swapped variants.
var (
	Bool       = DType{kind: 'b', size: 1}
	Int8       = DType{kind: 'i', size: 1}
	Int16      = DType{kind: 'i', size: 2}
	Int32      = DType{kind: 'i', size: 4}
	Int64      = DType{kind: 'i', size: 8}
	Uint8      = DType{kind: 'u', size: 1}
	Uint16     = DType{kind: 'u', size: 2}
	Uint32     = DType{kind: 'u', size: 4}
	Uint64     = DType{kind: 'u', size: 8}
	Float16    = DType{kind: 'f', size: 2}
	Float32    = DType{kind: 'f', size: 4}
	Float64    = DType{kind: 'f', size: 8}
	Complex64  = DType{kind: 'c', size: 8}
	Complex128 = DType{kind: 'c', size: 16}
)

// validSizes lists the admissible item sizes per kind.
var validSizes = map[byte][]int{
	'b': {1},
	'i': {1, 2, 4, 8},
	'u': {1, 2, 4, 8},
	'f': {2, 4, 8},
	'c': {8, 16},
}

// ParseDType parses a NumPy array-protocol type string such as "<f4",
// ">i8" or "|b1". The order character '=' resolves to the host order and
// '|' is only admissible for single-byte types. Kinds that can carry
// arbitrary object references ('O') or opaque buffers ('V', 'S', 'U', ...)
// are rejected: deserialising them is unsafe.
func ParseDType(descr string) (DType, error) {
	if len(descr) < 2 {
		return DType{}, badChunkf("dtype %q is too short", descr)
	}
	order := descr[0]
	kind := descr[1]
	rest := descr[2:]
	switch order {
	case '<', '>', '|', '=':
	default:
		// NumPy always emits an explicit order character in descr strings.
		return DType{}, badChunkf("dtype %q has no byte order character", descr)
	}
	if kind == 'O' {
		return DType{}, badChunkf("dtype %q may contain objects", descr)
	}
	sizes, ok := validSizes[kind]
	if !ok {
		return DType{}, badChunkf("dtype %q is not supported", descr)
	}
	size, err := strconv.Atoi(rest)
	if err != nil {
		return DType{}, badChunkf("dtype %q has a malformed item size", descr)
	}
	sizeOK := false
	for _, s := range sizes {
		if s == size {
			sizeOK = true
			break
		}
	}
	if !sizeOK {
		return DType{}, badChunkf("dtype %q has an invalid item size", descr)
	}
	dt := DType{kind: kind, size: size}
	switch {
	case size == 1:
		// Single-byte types are order-free; accept any order character.
	case order == '|':
		return DType{}, badChunkf("dtype %q needs an explicit byte order", descr)
	case order == '>':
		dt.big = true
	case order == '=':
		dt.big = !nativeLittle
	}
	return dt, nil
}

// Valid reports whether the DType is one of the supported types.
// The zero value is not valid.
func (d DType) Valid() bool {
	sizes, ok := validSizes[d.kind]
	if !ok {
		return false
	}
	for _, s := range sizes {
		if s == d.size {
			return !d.big || d.size > 1
		}
	}
	return false
}

// Kind returns the NumPy kind character: 'b', 'i', 'u', 'f' or 'c'.
func (d DType) Kind() byte { return d.kind }

// ItemSize returns the size of a single element in bytes.
func (d DType) ItemSize() int { return d.size }

// ByteOrder returns the byte order of the element encoding. Single-byte
// types report the host order.
func (d DType) ByteOrder() binary.ByteOrder {
	if d.big {
		return binary.BigEndian
	}
	return binary.LittleEndian
}

// WithBigEndian returns the byte-swapped variant of the DType. It has no
// effect on single-byte types.
func (d DType) WithBigEndian() DType {
	if d.size > 1 {
		d.big = true
	}
	return d
}

// String returns the NumPy array-protocol type string, e.g. "<c8".
func (d DType) String() string {
	order := byte('<')
	switch {
	case d.size == 1:
		order = '|'
	case d.big:
		order = '>'
	}
	return string([]byte{order, d.kind}) + strconv.Itoa(d.size)
}
