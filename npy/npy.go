// Package npy reads and writes arrays in the NPY format, version 1.0
// (2.0 for oversized headers), byte-compatible with NumPy's own
// serializer. Object arrays and pickled payloads are never produced and
// always rejected on read.
package npy

import (
	"bytes"
	"crypto/md5"
	"encoding/base64"
	"io"
	"math"

	"github.com/hupe1980/chunkstore"
)

// Encoded is a serialized array, split into the NPY header and the raw
// element payload. Body aliases the array's data rather than copying it,
// so the array must not be mutated while the encoding is in use.
type Encoded struct {
	Header []byte
	Body   []byte
}

// Len returns the total encoded length in bytes.
func (e Encoded) Len() int {
	return len(e.Header) + len(e.Body)
}

// Reader returns a reader over the full encoding without joining the two
// segments into a single buffer.
func (e Encoded) Reader() io.Reader {
	return io.MultiReader(bytes.NewReader(e.Header), bytes.NewReader(e.Body))
}

// ContentMD5 returns the base64-encoded MD5 digest of the full encoding,
// as expected in the Content-MD5 header of an object store upload.
func (e Encoded) ContentMD5() string {
	digest := md5.New()
	digest.Write(e.Header)
	digest.Write(e.Body)
	return base64.StdEncoding.EncodeToString(digest.Sum(nil))
}

// Encode serializes an array. Only the header is allocated; the body is
// the array's own buffer.
func Encode(a *chunkstore.Array) (Encoded, error) {
	if !a.DType().Valid() {
		return Encoded{}, badf("dtype is not a supported element type")
	}
	hdr := encodeHeader(header{
		descr:   a.DType().String(),
		fortran: a.Fortran(),
		shape:   a.Shape(),
	})
	return Encoded{Header: hdr, Body: a.Data()}, nil
}

// Decode deserializes an array from a reader. The payload is read with a
// single io.ReadFull directly into one allocation sized from the header,
// so decoding straight off a network connection does not buffer the
// payload twice. A column-major payload is kept as stored and flagged on
// the returned array.
//
// All failures (bad magic, unsupported version, malformed header, unsafe
// dtype, truncated payload) wrap ErrBadChunk.
func Decode(r io.Reader) (*chunkstore.Array, error) {
	h, err := decodeHeader(r)
	if err != nil {
		return nil, err
	}
	dtype, err := chunkstore.ParseDType(h.descr)
	if err != nil {
		return nil, err
	}
	n := dtype.ItemSize()
	for _, s := range h.shape {
		if s > 0 && n > math.MaxInt/s {
			return nil, badf("shape %v overflows the addressable payload size", h.shape)
		}
		n *= s
	}
	a := chunkstore.NewArray(dtype, h.shape...)
	if read, err := io.ReadFull(r, a.Data()); err != nil {
		return nil, badf("chunk payload truncated at %d of %d bytes: %v", read, a.NumBytes(), err)
	}
	a.SetFortran(h.fortran)
	return a, nil
}
