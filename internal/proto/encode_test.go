package proto

import (
	"bytes"
	"math"
	"testing"
	"testing/quick"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

func TestQuickcheckScalarsRoundtrip(t *testing.T) {
	if err := quick.Check(func(a uint8, b uint32, c int32, d uint64, v uint64, s string) bool {
		e := &Encoder{}
		e.PutU8(a)
		e.PutU32(b)
		e.PutI32(c)
		e.PutU64(d)
		e.PutUvarint(v)
		e.PutString(s)

		dec := NewDecoder(e.Bytes())
		ok := dec.U8() == a &&
			dec.U32() == b &&
			dec.I32() == c &&
			dec.U64() == d &&
			dec.Uvarint() == v &&
			dec.Str() == s
		if dec.Err() != nil {
			t.Errorf("decode error: %v", dec.Err())
			return false
		}
		return ok && dec.Remaining() == 0
	}, &quick.Config{}); err != nil {
		t.Error(err)
	}
}

func TestFixedWidthIsLittleEndian(t *testing.T) {
	e := &Encoder{}
	e.PutU32(0x01020304)
	e.PutI32(-2)
	e.PutU64(0x0102030405060708)
	require.Equal(t, []byte{
		0x04, 0x03, 0x02, 0x01,
		0xfe, 0xff, 0xff, 0xff,
		0x08, 0x07, 0x06, 0x05, 0x04, 0x03, 0x02, 0x01,
	}, e.Bytes())
}

func TestDecoderErrorsAreSticky(t *testing.T) {
	d := NewDecoder([]byte{1, 2, 3})
	require.Equal(t, uint8(1), d.U8())
	require.Equal(t, uint64(0), d.U64())
	require.True(t, errors.Is(d.Err(), ErrTruncated))

	// later reads don't advance or replace the first error
	require.Equal(t, uint8(0), d.U8())
	require.Equal(t, 1, d.Offset())
	require.True(t, errors.Is(d.Err(), ErrTruncated))
}

func TestDecoderStringLongerThanInput(t *testing.T) {
	e := &Encoder{}
	e.PutUvarint(10)
	e.PutRaw([]byte("abc"))
	d := NewDecoder(e.Bytes())
	require.Equal(t, "", d.Str())
	require.True(t, errors.Is(d.Err(), ErrTruncated))
}

func TestDecoderVarintOverflow(t *testing.T) {
	data := bytes.Repeat([]byte{0xff}, 11)
	d := NewDecoder(data)
	d.Uvarint()
	require.True(t, errors.Is(d.Err(), ErrMalformed))
}

func TestEnvelopeRoundtrip(t *testing.T) {
	env := Envelope{Tag: 7, Version: PayloadVersion, Body: bytes.Repeat([]byte{0xab}, 300)}
	data := AppendEnvelope(nil, env)
	// 300 needs a two byte varint
	require.Len(t, data, 2+2+300)

	// trailing bytes belong to whatever follows
	data = append(data, 0xde, 0xad)
	got, n, err := DecodeEnvelope(data)
	require.NoError(t, err)
	require.Equal(t, env, got)
	require.Equal(t, len(data)-2, n)

	streamed, err := ReadEnvelope(bytes.NewReader(data))
	require.NoError(t, err)
	require.Equal(t, env, streamed)
}

func TestReadEnvelopeDoesNotOverRead(t *testing.T) {
	var stream []byte
	stream = AppendEnvelope(stream, Envelope{Tag: 1, Version: 1, Body: []byte("one")})
	stream = AppendEnvelope(stream, Envelope{Tag: 2, Version: 1, Body: []byte("two")})
	r := bytes.NewReader(stream)

	first, err := ReadEnvelope(r)
	require.NoError(t, err)
	require.Equal(t, "one", string(first.Body))
	second, err := ReadEnvelope(r)
	require.NoError(t, err)
	require.Equal(t, uint8(2), second.Tag)
	require.Equal(t, "two", string(second.Body))
	require.Equal(t, 0, r.Len())
}

func TestEnvelopeTruncation(t *testing.T) {
	data := AppendEnvelope(nil, Envelope{Tag: 3, Version: 1, Body: []byte("0123456789")})
	for i := 0; i < len(data); i++ {
		_, _, err := DecodeEnvelope(data[:i])
		require.Truef(t, errors.Is(err, ErrTruncated), "prefix %d: %v", i, err)

		_, err = ReadEnvelope(bytes.NewReader(data[:i]))
		require.Truef(t, errors.Is(err, ErrTruncated), "stream prefix %d: %v", i, err)
	}
}

func TestEnvelopeImplausibleLength(t *testing.T) {
	e := &Encoder{}
	e.PutU8(1)
	e.PutU8(1)
	e.PutUvarint(math.MaxUint32)
	_, _, err := DecodeEnvelope(e.Bytes())
	require.True(t, errors.Is(err, ErrMalformed))

	_, err = ReadEnvelope(bytes.NewReader(e.Bytes()))
	require.True(t, errors.Is(err, ErrMalformed))
}

func TestBlobRoundtrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteBlob(&buf, []byte("hello")))
	require.NoError(t, WriteBlob(&buf, nil))

	b, err := ReadBlob(&buf)
	require.NoError(t, err)
	require.Equal(t, "hello", string(b))
	b, err = ReadBlob(&buf)
	require.NoError(t, err)
	require.Empty(t, b)

	_, err = ReadBlob(&buf)
	require.True(t, errors.Is(err, ErrTruncated))
}

func TestFrameRoundtrip(t *testing.T) {
	f := Frame{ID: NewExchangeID(), Body: []byte{1, 2, 3}}
	got, err := UnmarshalFrame(MarshalFrame(f))
	require.NoError(t, err)
	require.Equal(t, f, got)

	_, err = UnmarshalFrame([]byte{1, 2})
	require.True(t, errors.Is(err, ErrTruncated))
}
