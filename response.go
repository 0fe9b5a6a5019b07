package watchnotify

import (
	"github.com/ngrok/watchnotify/internal/proto"
	"github.com/pkg/errors"
)

// responseLen is the fixed wire size of a ResponseMessage.
const responseLen = 4

// ResponseMessage is one watcher's acknowledgement of a notification.
// Result is 0 on success, otherwise an operation or transport error code.
type ResponseMessage struct {
	Result int32
}

// AppendBinary appends the fixed-width encoding of m to dst.
func (m ResponseMessage) AppendBinary(dst []byte) []byte {
	e := proto.NewEncoder(dst)
	e.PutI32(m.Result)
	return e.Bytes()
}

// MarshalBinary implements encoding.BinaryMarshaler. It never fails.
func (m ResponseMessage) MarshalBinary() ([]byte, error) {
	return m.AppendBinary(nil), nil
}

// DecodeResponseMessage decodes a response from the front of data. Short
// input is an error; there is no unknown response.
func DecodeResponseMessage(data []byte) (ResponseMessage, int, error) {
	d := proto.NewDecoder(data)
	result := d.I32()
	if err := d.Err(); err != nil {
		return ResponseMessage{}, 0, errors.Wrap(err, "decoding response message")
	}
	return ResponseMessage{Result: result}, responseLen, nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler. data must hold
// exactly one response. m is only modified on success.
func (m *ResponseMessage) UnmarshalBinary(data []byte) error {
	resp, n, err := DecodeResponseMessage(data)
	if err != nil {
		return err
	}
	if n != len(data) {
		return errors.Wrapf(ErrMalformed, "%d bytes after response message", len(data)-n)
	}
	*m = resp
	return nil
}

func (m ResponseMessage) Dump(f Formatter) {
	f.DumpInt("result", int64(m.Result))
}
