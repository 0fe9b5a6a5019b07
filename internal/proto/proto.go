package proto

import (
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// ExchangeID correlates one notify request on an exchange stream with the
// reply written back on the same stream.
type ExchangeID = uuid.UUID

// NewExchangeID returns a fresh random exchange id.
func NewExchangeID() ExchangeID {
	return uuid.New()
}

// Frame is one message on an exchange stream: the exchange id followed by an
// opaque body (an encoded notify or response message).
type Frame struct {
	ID   ExchangeID
	Body []byte
}

// MarshalFrame encodes f as id bytes followed by the body.
func MarshalFrame(f Frame) []byte {
	out := make([]byte, 0, len(f.ID)+len(f.Body))
	out = append(out, f.ID[:]...)
	return append(out, f.Body...)
}

// UnmarshalFrame is the inverse of MarshalFrame. The returned Body aliases
// data.
func UnmarshalFrame(data []byte) (Frame, error) {
	var f Frame
	if len(data) < len(f.ID) {
		return Frame{}, errors.Wrapf(ErrTruncated, "frame of %d bytes has no exchange id", len(data))
	}
	copy(f.ID[:], data[:len(f.ID)])
	f.Body = data[len(f.ID):]
	return f, nil
}
