package npy

import (
	"bytes"
	"crypto/md5"
	"encoding/base64"
	"encoding/binary"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/chunkstore"
)

// rawNPY assembles a version 1.0 file by hand for decoder tests.
func rawNPY(dict string, body []byte) []byte {
	var buf bytes.Buffer
	buf.Write(magicBytes)
	buf.Write([]byte{1, 0})
	var field [2]byte
	binary.LittleEndian.PutUint16(field[:], uint16(len(dict)+1))
	buf.Write(field[:])
	buf.WriteString(dict)
	buf.WriteByte('\n')
	buf.Write(body)
	return buf.Bytes()
}

func TestEncode_GoldenHeader(t *testing.T) {
	a, err := chunkstore.FromSlice([]int32{1, 2, 3, 4})
	require.NoError(t, err)

	enc, err := Encode(a)
	require.NoError(t, err)

	// NumPy writes this exact 128-byte header for an int32 vector of
	// length 4: magic, version 1.0, a stored length of 118 and the
	// space-padded metadata dict.
	require.Len(t, enc.Header, 128)
	require.Equal(t, []byte("\x93NUMPY\x01\x00"), enc.Header[:8])
	require.Equal(t, uint16(118), binary.LittleEndian.Uint16(enc.Header[8:10]))

	dict := "{'descr': '<i4', 'fortran_order': False, 'shape': (4,), }"
	require.Equal(t, dict, string(enc.Header[10:10+len(dict)]))
	require.Equal(t, strings.Repeat(" ", 60), string(enc.Header[10+len(dict):127]))
	require.Equal(t, byte('\n'), enc.Header[127])

	require.Equal(t, a.Data(), enc.Body)
	require.Equal(t, 128+16, enc.Len())
}

func TestEncode_BodyAliasesArray(t *testing.T) {
	a, err := chunkstore.FromSlice([]uint8{7, 8, 9})
	require.NoError(t, err)

	enc, err := Encode(a)
	require.NoError(t, err)

	a.Data()[0] = 42
	require.Equal(t, byte(42), enc.Body[0])
}

func TestEncode_HeaderAlignment(t *testing.T) {
	tests := []struct {
		name  string
		shape []int
	}{
		{"Scalar", nil},
		{"Vector", []int{100}},
		{"Matrix", []int{8, 6, 2}},
		{"ManyDims", []int{1, 1, 1, 1, 1, 1, 1, 1, 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			enc, err := Encode(chunkstore.NewArray(chunkstore.Float64, tt.shape...))
			require.NoError(t, err)
			assert.Zero(t, len(enc.Header)%64)
			assert.Equal(t, byte('\n'), enc.Header[len(enc.Header)-1])
		})
	}
}

func TestEncode_AlignedHeaderGetsFullPadBlock(t *testing.T) {
	// 20 dimensions whose repr makes magic+length+dict+newline exactly 128
	// bytes: the writer still appends a full 64-byte padding block, like
	// NumPy does.
	shape := []int{1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 100, 100}
	enc, err := Encode(chunkstore.NewArray(chunkstore.Int8, shape...))
	require.NoError(t, err)

	require.Len(t, enc.Header, 192)
	require.Equal(t, uint16(182), binary.LittleEndian.Uint16(enc.Header[8:10]))

	a, err := Decode(enc.Reader())
	require.NoError(t, err)
	require.Equal(t, shape, a.Shape())
}

func TestEncode_OversizedHeaderUsesVersion2(t *testing.T) {
	// A dict beyond 65535 bytes does not fit the 16-bit length field of
	// version 1.0.
	shape := make([]int, 22000)
	for i := range shape {
		shape[i] = 1
	}
	enc, err := Encode(chunkstore.NewArray(chunkstore.Int8, shape...))
	require.NoError(t, err)

	require.Equal(t, byte(2), enc.Header[6])
	require.Zero(t, len(enc.Header)%64)

	a, err := Decode(enc.Reader())
	require.NoError(t, err)
	require.Equal(t, shape, a.Shape())
	require.Equal(t, 1, a.Size())
}

func TestEncode_InvalidDType(t *testing.T) {
	_, err := Encode(&chunkstore.Array{})
	require.ErrorIs(t, err, chunkstore.ErrBadChunk)
}

func TestRoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		build func(t *testing.T) *chunkstore.Array
	}{
		{
			"Int32Vector",
			func(t *testing.T) *chunkstore.Array {
				a, err := chunkstore.FromSlice([]int32{-1, 0, 1, 1 << 30})
				require.NoError(t, err)
				return a
			},
		},
		{
			"Float64Matrix",
			func(t *testing.T) *chunkstore.Array {
				a, err := chunkstore.FromSlice([]float64{1.5, -2.5, 3.25, 0, 1e300, -1e-300}, 2, 3)
				require.NoError(t, err)
				return a
			},
		},
		{
			"Complex64Cube",
			func(t *testing.T) *chunkstore.Array {
				elems := make([]complex64, 8*6*2)
				for i := range elems {
					elems[i] = complex(float32(i), -float32(i))
				}
				a, err := chunkstore.FromSlice(elems, 8, 6, 2)
				require.NoError(t, err)
				return a
			},
		},
		{
			"BoolVector",
			func(t *testing.T) *chunkstore.Array {
				a, err := chunkstore.FromSlice([]bool{true, false, true})
				require.NoError(t, err)
				return a
			},
		},
		{
			"Scalar",
			func(t *testing.T) *chunkstore.Array {
				a, err := chunkstore.FromBytes(chunkstore.Float32, []byte{0, 0, 0x80, 0x3f})
				require.NoError(t, err)
				return a
			},
		},
		{
			"ZeroSize",
			func(t *testing.T) *chunkstore.Array {
				return chunkstore.NewArray(chunkstore.Int16, 0, 3)
			},
		},
		{
			"BigEndian",
			func(t *testing.T) *chunkstore.Array {
				a, err := chunkstore.FromBytes(chunkstore.Uint16.WithBigEndian(), []byte{0, 1, 0, 2}, 2)
				require.NoError(t, err)
				return a
			},
		},
		{
			"Fortran",
			func(t *testing.T) *chunkstore.Array {
				a, err := chunkstore.FromSlice([]int64{1, 2, 3, 4, 5, 6}, 2, 3)
				require.NoError(t, err)
				a.SetFortran(true)
				return a
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := tt.build(t)

			enc, err := Encode(a)
			require.NoError(t, err)

			got, err := Decode(enc.Reader())
			require.NoError(t, err)
			require.True(t, a.Equal(got),
				"decoded array differs: dtype %s shape %v", got.DType(), got.Shape())
		})
	}
}

func TestDecode_ForeignWriters(t *testing.T) {
	// Headers from other writers vary in key order, quoting and spacing.
	tests := []struct {
		name string
		dict string
	}{
		{"ShuffledKeys", "{'shape': (2,), 'descr': '<i4', 'fortran_order': False}"},
		{"DoubleQuotes", `{"descr": "<i4", "fortran_order": False, "shape": (2,)}`},
		{"TightSpacing", "{'descr':'<i4','fortran_order':False,'shape':(2,)}"},
		{"TrailingComma", "{'descr': '<i4', 'fortran_order': False, 'shape': (2,), }"},
	}

	body := []byte{1, 0, 0, 0, 2, 0, 0, 0}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := Decode(bytes.NewReader(rawNPY(tt.dict, body)))
			require.NoError(t, err)
			require.Equal(t, chunkstore.Int32, a.DType())
			require.Equal(t, []int{2}, a.Shape())
			require.Equal(t, body, a.Data())
		})
	}
}

func TestDecode_BigEndianKeepsByteOrder(t *testing.T) {
	a, err := Decode(bytes.NewReader(rawNPY(
		"{'descr': '>u2', 'fortran_order': False, 'shape': (2,)}",
		[]byte{0, 1, 0, 2})))
	require.NoError(t, err)
	require.Equal(t, chunkstore.Uint16.WithBigEndian(), a.DType())

	// The byte-swapped view must not be handed out as native elements.
	_, err = chunkstore.AsSlice[uint16](a)
	require.ErrorIs(t, err, chunkstore.ErrBadChunk)
}

func TestDecode_Invalid(t *testing.T) {
	valid := "{'descr': '<i4', 'fortran_order': False, 'shape': (2,)}"

	tests := []struct {
		name string
		data []byte
	}{
		{"Empty", nil},
		{"ShortPreamble", []byte("\x93NUM")},
		{"BadMagic", append([]byte("\x93NUMPZ\x01\x00"), 0, 0)},
		{"Version3", func() []byte {
			raw := rawNPY(valid, nil)
			raw[6] = 3
			return raw
		}()},
		{"ObjectDType", rawNPY("{'descr': '|O8', 'fortran_order': False, 'shape': (2,)}", nil)},
		{"UnknownField", rawNPY("{'descr': '<i4', 'fortran_order': False, 'shape': (2,), 'extra': 1}", nil)},
		{"MissingField", rawNPY("{'descr': '<i4', 'shape': (2,)}", nil)},
		{"TrailingGarbage", rawNPY(valid+"x", nil)},
		{"UnterminatedString", rawNPY("{'descr': '<i4", nil)},
		{"BadShape", rawNPY("{'descr': '<i4', 'fortran_order': False, 'shape': (2,-1)}", nil)},
		{"BadBool", rawNPY("{'descr': '<i4', 'fortran_order': Maybe, 'shape': (2,)}", nil)},
		{"NotADict", rawNPY("'descr'", nil)},
		{"TruncatedPayload", rawNPY(valid, []byte{1, 0, 0})},
		{"Overflow", rawNPY(
			"{'descr': '|u1', 'fortran_order': False, 'shape': (4611686018427387904, 4611686018427387904)}",
			nil)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(bytes.NewReader(tt.data))
			require.ErrorIs(t, err, chunkstore.ErrBadChunk)
		})
	}
}

func TestEncoded_Reader(t *testing.T) {
	enc := Encoded{Header: []byte("head"), Body: []byte("body")}

	all, err := io.ReadAll(enc.Reader())
	require.NoError(t, err)
	require.Equal(t, []byte("headbody"), all)
	require.Equal(t, 8, enc.Len())

	// Reader can be called again for retries; each call starts fresh.
	again, err := io.ReadAll(enc.Reader())
	require.NoError(t, err)
	require.Equal(t, all, again)
}

func TestEncoded_ContentMD5(t *testing.T) {
	enc := Encoded{Header: []byte("abc"), Body: []byte("def")}

	sum := md5.Sum([]byte("abcdef"))
	require.Equal(t, base64.StdEncoding.EncodeToString(sum[:]), enc.ContentMD5())
}
