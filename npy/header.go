package npy

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/hupe1980/chunkstore"
)

// magicBytes opens every NPY file, followed by a two-byte format version.
var magicBytes = []byte("\x93NUMPY")

// headerAlign is the alignment of the total header size, so that the
// array data starts on a boundary suitable for memory mapping.
const headerAlign = 64

// header carries the three metadata fields of an NPY file.
type header struct {
	descr   string
	fortran bool
	shape   []int
}

// badf builds an ErrBadChunk with a formatted detail message.
func badf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", chunkstore.ErrBadChunk, fmt.Sprintf(format, args...))
}

// encodeHeader renders the complete NPY header: magic, version, length
// field and the Python-literal metadata dict, space-padded so the total
// length is a multiple of headerAlign and terminated by a newline. The
// output is byte-identical to NumPy's own writer, version 1.0 unless the
// dict overflows the 16-bit length field.
func encodeHeader(h header) []byte {
	var dict strings.Builder
	dict.WriteString("{'descr': '")
	dict.WriteString(h.descr)
	dict.WriteString("', 'fortran_order': ")
	if h.fortran {
		dict.WriteString("True")
	} else {
		dict.WriteString("False")
	}
	dict.WriteString(", 'shape': ")
	dict.WriteString(shapeRepr(h.shape))
	dict.WriteString(", }")

	// The stored length covers dict, padding and newline. Note that an
	// already aligned header still gets a full padding block.
	hlen := dict.Len() + 1
	major := byte(1)
	lenSize := 2
	pad := headerAlign - (len(magicBytes)+2+lenSize+hlen)%headerAlign
	if hlen+pad > math.MaxUint16 {
		major = 2
		lenSize = 4
		pad = headerAlign - (len(magicBytes)+2+lenSize+hlen)%headerAlign
	}

	buf := make([]byte, 0, len(magicBytes)+2+lenSize+hlen+pad)
	buf = append(buf, magicBytes...)
	buf = append(buf, major, 0)
	if lenSize == 2 {
		buf = binary.LittleEndian.AppendUint16(buf, uint16(hlen+pad))
	} else {
		buf = binary.LittleEndian.AppendUint32(buf, uint32(hlen+pad))
	}
	buf = append(buf, dict.String()...)
	for range pad {
		buf = append(buf, ' ')
	}
	return append(buf, '\n')
}

// shapeRepr renders a shape the way Python writes tuples, including the
// trailing comma of a 1-tuple.
func shapeRepr(shape []int) string {
	switch len(shape) {
	case 0:
		return "()"
	case 1:
		return "(" + strconv.Itoa(shape[0]) + ",)"
	}
	parts := make([]string, len(shape))
	for i, s := range shape {
		parts[i] = strconv.Itoa(s)
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

// decodeHeader reads and parses an NPY header. Format versions 1.x and
// 2.x are accepted; version 3.x changed the dict encoding and is not
// supported.
func decodeHeader(r io.Reader) (header, error) {
	var pre [8]byte
	if _, err := io.ReadFull(r, pre[:]); err != nil {
		return header{}, badf("chunk too short for a NPY preamble: %v", err)
	}
	if !bytes.Equal(pre[:len(magicBytes)], magicBytes) {
		return header{}, badf("chunk does not start with the NPY magic string")
	}
	var hlen int
	switch pre[6] {
	case 1:
		var field [2]byte
		if _, err := io.ReadFull(r, field[:]); err != nil {
			return header{}, badf("chunk too short for a NPY header length: %v", err)
		}
		hlen = int(binary.LittleEndian.Uint16(field[:]))
	case 2:
		var field [4]byte
		if _, err := io.ReadFull(r, field[:]); err != nil {
			return header{}, badf("chunk too short for a NPY header length: %v", err)
		}
		hlen = int(binary.LittleEndian.Uint32(field[:]))
	default:
		return header{}, badf("unsupported NPY format version %d.%d", pre[6], pre[7])
	}
	raw := make([]byte, hlen)
	if _, err := io.ReadFull(r, raw); err != nil {
		return header{}, badf("chunk too short for its NPY header: %v", err)
	}
	return parseHeaderDict(string(raw))
}

// parseHeaderDict parses the restricted Python-literal metadata dict.
// Exactly the keys 'descr' (string), 'fortran_order' (bool) and 'shape'
// (tuple of non-negative ints) are admissible, in any order.
func parseHeaderDict(s string) (header, error) {
	p := &dictParser{s: strings.TrimRight(s, " \t\n")}
	var h header
	seen := make(map[string]bool)
	if err := p.expect('{'); err != nil {
		return h, err
	}
	for {
		p.skipSpace()
		if p.eat('}') {
			break
		}
		key, err := p.parseString()
		if err != nil {
			return h, err
		}
		p.skipSpace()
		if err := p.expect(':'); err != nil {
			return h, err
		}
		p.skipSpace()
		switch key {
		case "descr":
			h.descr, err = p.parseString()
		case "fortran_order":
			h.fortran, err = p.parseBool()
		case "shape":
			h.shape, err = p.parseTuple()
		default:
			return h, badf("NPY header has unexpected field %q", key)
		}
		if err != nil {
			return h, err
		}
		seen[key] = true
		p.skipSpace()
		p.eat(',')
	}
	p.skipSpace()
	if p.pos != len(p.s) {
		return h, badf("NPY header has trailing garbage %q", p.s[p.pos:])
	}
	for _, key := range []string{"descr", "fortran_order", "shape"} {
		if !seen[key] {
			return h, badf("NPY header lacks field %q", key)
		}
	}
	return h, nil
}

// dictParser is a cursor over the header dict text.
type dictParser struct {
	s   string
	pos int
}

func (p *dictParser) skipSpace() {
	for p.pos < len(p.s) && (p.s[p.pos] == ' ' || p.s[p.pos] == '\t') {
		p.pos++
	}
}

func (p *dictParser) eat(c byte) bool {
	if p.pos < len(p.s) && p.s[p.pos] == c {
		p.pos++
		return true
	}
	return false
}

func (p *dictParser) expect(c byte) error {
	if !p.eat(c) {
		return badf("NPY header is malformed at offset %d: expected %q", p.pos, string(c))
	}
	return nil
}

func (p *dictParser) parseString() (string, error) {
	if p.pos >= len(p.s) || (p.s[p.pos] != '\'' && p.s[p.pos] != '"') {
		return "", badf("NPY header is malformed at offset %d: expected a string", p.pos)
	}
	quote := p.s[p.pos]
	p.pos++
	end := strings.IndexByte(p.s[p.pos:], quote)
	if end < 0 {
		return "", badf("NPY header has an unterminated string at offset %d", p.pos-1)
	}
	out := p.s[p.pos : p.pos+end]
	p.pos += end + 1
	return out, nil
}

func (p *dictParser) parseBool() (bool, error) {
	switch {
	case strings.HasPrefix(p.s[p.pos:], "True"):
		p.pos += len("True")
		return true, nil
	case strings.HasPrefix(p.s[p.pos:], "False"):
		p.pos += len("False")
		return false, nil
	}
	return false, badf("NPY header is malformed at offset %d: expected a boolean", p.pos)
}

func (p *dictParser) parseInt() (int, error) {
	start := p.pos
	for p.pos < len(p.s) && p.s[p.pos] >= '0' && p.s[p.pos] <= '9' {
		p.pos++
	}
	if p.pos == start {
		return 0, badf("NPY header is malformed at offset %d: expected an integer", p.pos)
	}
	n, err := strconv.Atoi(p.s[start:p.pos])
	if err != nil {
		return 0, badf("NPY header has an out-of-range integer at offset %d", start)
	}
	return n, nil
}

func (p *dictParser) parseTuple() ([]int, error) {
	if err := p.expect('('); err != nil {
		return nil, err
	}
	shape := []int{}
	for {
		p.skipSpace()
		if p.eat(')') {
			return shape, nil
		}
		n, err := p.parseInt()
		if err != nil {
			return nil, err
		}
		shape = append(shape, n)
		p.skipSpace()
		if p.eat(',') {
			continue
		}
		if p.eat(')') {
			return shape, nil
		}
		return nil, badf("NPY header is malformed at offset %d: expected ',' or ')'", p.pos)
	}
}
