package proto

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/pkg/errors"
)

// Envelope is the framing around a single notify payload.
type Envelope struct {
	Tag     uint8
	Version uint8
	// Body is exactly the payload_len bytes following the header.
	Body []byte
}

// AppendEnvelope appends the wire encoding of env to dst.
func AppendEnvelope(dst []byte, env Envelope) []byte {
	e := NewEncoder(dst)
	e.PutU8(env.Tag)
	e.PutU8(env.Version)
	e.PutUvarint(uint64(len(env.Body)))
	e.PutRaw(env.Body)
	return e.Bytes()
}

// DecodeEnvelope reads one envelope from the front of data. It returns the
// envelope and the number of bytes it occupied. The returned Body aliases
// data.
func DecodeEnvelope(data []byte) (Envelope, int, error) {
	d := NewDecoder(data)
	tag := d.U8()
	version := d.U8()
	n := d.Uvarint()
	if err := d.Err(); err != nil {
		return Envelope{}, 0, errors.Wrap(err, "envelope header")
	}
	if n > MaxPayloadLen {
		return Envelope{}, 0, errors.Wrapf(ErrMalformed, "payload length %d exceeds maximum %d", n, MaxPayloadLen)
	}
	if n > uint64(d.Remaining()) {
		return Envelope{}, 0, errors.Wrapf(ErrTruncated, "payload length %d, only %d bytes follow", n, d.Remaining())
	}
	body := d.Raw(int(n))
	return Envelope{Tag: tag, Version: version, Body: body}, d.Offset(), nil
}

// ReadEnvelope reads exactly one envelope from src. It never reads past the
// end of the envelope, so src may be a raw socket.
func ReadEnvelope(src io.Reader) (Envelope, error) {
	var hdr [2]byte
	if _, err := io.ReadFull(src, hdr[:]); err != nil {
		return Envelope{}, errors.Wrap(streamErr(err), "envelope header")
	}
	n, err := binary.ReadUvarint(byteReader{src})
	if err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return Envelope{}, errors.Wrap(ErrTruncated, "envelope length")
		}
		return Envelope{}, errors.Wrapf(ErrMalformed, "envelope length: %v", err)
	}
	if n > MaxPayloadLen {
		return Envelope{}, errors.Wrapf(ErrMalformed, "payload length %d exceeds maximum %d", n, MaxPayloadLen)
	}
	body := make([]byte, n)
	if _, err := io.ReadFull(src, body); err != nil {
		return Envelope{}, errors.Wrapf(streamErr(err), "payload body of %d bytes", n)
	}
	return Envelope{Tag: hdr[0], Version: hdr[1], Body: body}, nil
}

// WriteBlob writes a length-prefixed blob to the given writer. It expects the
// blob to be read using 'ReadBlob'.
func WriteBlob(dst io.Writer, blob []byte) error {
	if len(blob) > MaxBlobLen {
		return errors.Wrapf(ErrMalformed, "blob of %d bytes exceeds maximum %d", len(blob), MaxBlobLen)
	}
	var lenBuf bytes.Buffer
	if err := binary.Write(&lenBuf, binary.BigEndian, int32(len(blob))); err != nil {
		panic(fmt.Errorf("could not binary encode an int32: %v", err))
	}

	// Length-prefixed blob
	if _, err := dst.Write(lenBuf.Bytes()); err != nil {
		return errors.Wrap(err, "could not write blob length")
	}
	if _, err := dst.Write(blob); err != nil {
		return errors.Wrap(err, "could not write blob")
	}
	return nil
}

// ReadBlob reads a length-prefixed blob written by WriteBlob.
func ReadBlob(src io.Reader) ([]byte, error) {
	var blobLen int32
	if err := binary.Read(src, binary.BigEndian, &blobLen); err != nil {
		return nil, errors.Wrap(streamErr(err), "protocol error: could not read length of blob")
	}
	if blobLen < 0 || blobLen > MaxBlobLen {
		return nil, errors.Wrapf(ErrMalformed, "protocol error: blob length %d out of range", blobLen)
	}

	data := make([]byte, blobLen)
	if n, err := io.ReadFull(src, data); err != nil {
		return nil, errors.Wrapf(streamErr(err), "unable to read expected blob length (expected %v, got %v)", blobLen, n)
	}
	return data, nil
}

// streamErr maps a short read onto ErrTruncated and leaves other errors
// alone.
func streamErr(err error) error {
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return ErrTruncated
	}
	return err
}

// byteReader adapts an io.Reader to io.ByteReader one byte at a time. It
// must not buffer: whatever follows the varint belongs to the caller.
type byteReader struct {
	r io.Reader
}

func (b byteReader) ReadByte() (byte, error) {
	var buf [1]byte
	if _, err := io.ReadFull(b.r, buf[:]); err != nil {
		return 0, err
	}
	return buf[0], nil
}
