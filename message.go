package watchnotify

import (
	"io"

	"github.com/ngrok/watchnotify/internal/proto"
	"github.com/pkg/errors"
)

// NotifyMessage is the broadcast envelope around exactly one Payload.
// A NotifyMessage with a nil Payload behaves as one wrapping UnknownPayload.
type NotifyMessage struct {
	Payload Payload
}

// NewNotifyMessage wraps p.
func NewNotifyMessage(p Payload) NotifyMessage {
	return NotifyMessage{Payload: p}
}

// payload returns the wrapped payload, substituting UnknownPayload for nil.
func (m NotifyMessage) payload() Payload {
	if m.Payload == nil {
		return UnknownPayload{}
	}
	return m.Payload
}

// Op returns the tag of the wrapped payload.
func (m NotifyMessage) Op() NotifyOp {
	return m.payload().NotifyOp()
}

// IsUnknown reports whether the message carries nothing this build can act
// on.
func (m NotifyMessage) IsUnknown() bool {
	_, ok := m.payload().(UnknownPayload)
	return ok
}

// AppendBinary appends the wire encoding of m to dst. The encoding is
// deterministic. Messages wrapping UnknownPayload can't be encoded.
func (m NotifyMessage) AppendBinary(dst []byte) ([]byte, error) {
	p := m.payload()
	if _, ok := p.(UnknownPayload); ok {
		return dst, ErrUnknownPayload
	}
	body := &proto.Encoder{}
	p.encode(body)
	return proto.AppendEnvelope(dst, proto.Envelope{
		Tag:     uint8(p.NotifyOp()),
		Version: proto.PayloadVersion,
		Body:    body.Bytes(),
	}), nil
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (m NotifyMessage) MarshalBinary() ([]byte, error) {
	return m.AppendBinary(nil)
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler. data must hold
// exactly one message. m is only modified on success.
func (m *NotifyMessage) UnmarshalBinary(data []byte) error {
	msg, n, err := DecodeNotifyMessage(data)
	if err != nil {
		return err
	}
	if n != len(data) {
		return errors.Wrapf(ErrMalformed, "%d bytes after notify message", len(data)-n)
	}
	*m = msg
	return nil
}

// DecodeNotifyMessage decodes one message from the front of data and returns
// it with the number of bytes it occupied.
//
// An error is returned only when the envelope itself is broken: the header
// can't be read, or the declared payload length runs past the input. Every
// other problem (an unknown tag, a version that's too old, a body missing
// fields) produces a message wrapping UnknownPayload, and n still points just
// past the advertised payload.
func DecodeNotifyMessage(data []byte) (NotifyMessage, int, error) {
	env, n, err := proto.DecodeEnvelope(data)
	if err != nil {
		return NotifyMessage{}, 0, errors.Wrap(err, "decoding notify message")
	}
	return NotifyMessage{Payload: decodeEnvelope(env)}, n, nil
}

// ReadNotifyMessage reads one message from r without reading past it.
func ReadNotifyMessage(r io.Reader) (NotifyMessage, error) {
	env, err := proto.ReadEnvelope(r)
	if err != nil {
		return NotifyMessage{}, errors.Wrap(err, "reading notify message")
	}
	return NotifyMessage{Payload: decodeEnvelope(env)}, nil
}

func decodeEnvelope(env proto.Envelope) Payload {
	op := NotifyOp(env.Tag)
	if !op.IsKnown() {
		return UnknownPayload{Tag: env.Tag, Version: env.Version, Reason: UnknownReasonTag}
	}
	if env.Version < proto.MinPayloadVersion {
		return UnknownPayload{Tag: env.Tag, Version: env.Version, Reason: UnknownReasonVersion}
	}
	d := proto.NewDecoder(env.Body)
	p := decodePayload(op, env.Version, d)
	if d.Err() != nil {
		return UnknownPayload{Tag: env.Tag, Version: env.Version, Reason: UnknownReasonBody}
	}
	return p
}

func (m NotifyMessage) Dump(f Formatter) {
	p := m.payload()
	f.DumpString("notify_op", p.NotifyOp().String())
	p.Dump(f)
}
