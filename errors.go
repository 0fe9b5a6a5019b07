package watchnotify

import (
	"github.com/ngrok/watchnotify/internal/proto"
	"github.com/pkg/errors"
)

var (
	// ErrTruncated indicates the input ended before the envelope or response
	// it started was complete. Test with errors.Is.
	ErrTruncated = proto.ErrTruncated
	// ErrMalformed indicates input that can't be valid however many bytes
	// follow: a length over the maximum, a varint overflow, or trailing bytes
	// where exactly one message was expected.
	ErrMalformed = proto.ErrMalformed
	// ErrUnknownPayload is returned when encoding a message that wraps
	// UnknownPayload. Unknown payloads only exist on the receiving side.
	ErrUnknownPayload = errors.New("cannot encode an unknown payload")
)
