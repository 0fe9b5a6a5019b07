package proto

import (
	"encoding/binary"

	"github.com/pkg/errors"
)

var (
	// ErrTruncated indicates the input ended before a field it promised.
	ErrTruncated = errors.New("truncated input")
	// ErrMalformed indicates the input is structurally invalid.
	ErrMalformed = errors.New("malformed input")
)

// Encoder appends wire-encoded values to a byte slice. The zero value is
// ready to use.
type Encoder struct {
	buf []byte
}

// NewEncoder returns an encoder that appends to dst.
func NewEncoder(dst []byte) *Encoder {
	return &Encoder{buf: dst}
}

// Bytes returns the encoded bytes.
func (e *Encoder) Bytes() []byte {
	return e.buf
}

// Len returns the number of bytes encoded so far.
func (e *Encoder) Len() int {
	return len(e.buf)
}

// PutU8 writes a single byte.
func (e *Encoder) PutU8(v uint8) {
	e.buf = append(e.buf, v)
}

// PutU32 writes v as 4 little-endian bytes.
func (e *Encoder) PutU32(v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	e.buf = append(e.buf, b[:]...)
}

// PutI32 writes v as 4 little-endian bytes, two's complement.
func (e *Encoder) PutI32(v int32) {
	e.PutU32(uint32(v))
}

// PutU64 writes v as 8 little-endian bytes.
func (e *Encoder) PutU64(v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	e.buf = append(e.buf, b[:]...)
}

// PutUvarint writes v as an unsigned LEB128 varint.
func (e *Encoder) PutUvarint(v uint64) {
	var b [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(b[:], v)
	e.buf = append(e.buf, b[:n]...)
}

// PutString writes a varint length followed by the raw bytes of s.
func (e *Encoder) PutString(s string) {
	e.PutUvarint(uint64(len(s)))
	e.buf = append(e.buf, s...)
}

// PutRaw appends b verbatim.
func (e *Encoder) PutRaw(b []byte) {
	e.buf = append(e.buf, b...)
}

// Decoder reads wire-encoded values from a byte slice.
// Errors are sticky: after the first failure every read returns a zero value
// and Err reports the first error. Callers can read a whole struct and check
// once at the end.
type Decoder struct {
	data []byte
	off  int
	err  error
}

// NewDecoder returns a decoder reading from the start of data.
func NewDecoder(data []byte) *Decoder {
	return &Decoder{data: data}
}

// Err returns the first error encountered, if any.
func (d *Decoder) Err() error {
	return d.err
}

// Offset returns the number of bytes consumed so far.
func (d *Decoder) Offset() int {
	return d.off
}

// Remaining returns the number of unread bytes.
func (d *Decoder) Remaining() int {
	return len(d.data) - d.off
}

func (d *Decoder) fail(err error) {
	if d.err == nil {
		d.err = err
	}
}

// take returns the next n bytes, or nil after recording ErrTruncated.
func (d *Decoder) take(n int, what string) []byte {
	if d.err != nil {
		return nil
	}
	if n < 0 || n > d.Remaining() {
		d.fail(errors.Wrapf(ErrTruncated, "%s: need %d bytes, have %d", what, n, d.Remaining()))
		return nil
	}
	b := d.data[d.off : d.off+n]
	d.off += n
	return b
}

// U8 reads a single byte.
func (d *Decoder) U8() uint8 {
	b := d.take(1, "u8")
	if b == nil {
		return 0
	}
	return b[0]
}

// U32 reads 4 little-endian bytes.
func (d *Decoder) U32() uint32 {
	b := d.take(4, "u32")
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint32(b)
}

// I32 reads 4 little-endian bytes as a signed value.
func (d *Decoder) I32() int32 {
	return int32(d.U32())
}

// U64 reads 8 little-endian bytes.
func (d *Decoder) U64() uint64 {
	b := d.take(8, "u64")
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint64(b)
}

// Uvarint reads an unsigned LEB128 varint. A varint running past the input
// is ErrTruncated, one overflowing 64 bits is ErrMalformed.
func (d *Decoder) Uvarint() uint64 {
	if d.err != nil {
		return 0
	}
	v, n := binary.Uvarint(d.data[d.off:])
	switch {
	case n == 0:
		d.fail(errors.Wrap(ErrTruncated, "varuint"))
		return 0
	case n < 0:
		d.fail(errors.Wrap(ErrMalformed, "varuint overflows 64 bits"))
		return 0
	}
	d.off += n
	return v
}

// Str reads a varint length followed by that many raw bytes. A length
// larger than the remaining input is reported as ErrTruncated.
func (d *Decoder) Str() string {
	n := d.Uvarint()
	if d.err != nil {
		return ""
	}
	if n > uint64(d.Remaining()) {
		d.fail(errors.Wrapf(ErrTruncated, "string: declared length %d, have %d", n, d.Remaining()))
		return ""
	}
	return string(d.take(int(n), "string"))
}

// Raw returns the next n bytes without copying.
func (d *Decoder) Raw(n int) []byte {
	return d.take(n, "raw")
}
