package watchnotify

import (
	"fmt"

	"github.com/ngrok/watchnotify/internal/proto"
)

// ClientID identifies one watch registration on an object: Gid is the global
// id of the watching entity and Handle the particular watch it holds.
// The zero value is the "unset" sentinel.
type ClientID struct {
	Gid    uint64
	Handle uint64
}

// NewClientID constructs a ClientID.
func NewClientID(gid, handle uint64) ClientID {
	return ClientID{Gid: gid, Handle: handle}
}

// IsValid reports whether c is anything other than the zero value.
func (c ClientID) IsValid() bool {
	return c != ClientID{}
}

// Compare orders client ids by Gid, then Handle. It returns -1, 0 or 1.
func (c ClientID) Compare(o ClientID) int {
	switch {
	case c.Gid < o.Gid:
		return -1
	case c.Gid > o.Gid:
		return 1
	case c.Handle < o.Handle:
		return -1
	case c.Handle > o.Handle:
		return 1
	}
	return 0
}

// Less reports whether c sorts before o.
func (c ClientID) Less(o ClientID) bool {
	return c.Compare(o) < 0
}

func (c ClientID) String() string {
	return fmt.Sprintf("[%d,%d]", c.Gid, c.Handle)
}

func (c ClientID) Dump(f Formatter) {
	f.DumpUint("gid", c.Gid)
	f.DumpUint("handle", c.Handle)
}

func (c ClientID) encode(e *proto.Encoder) {
	e.PutU64(c.Gid)
	e.PutU64(c.Handle)
}

func decodeClientID(d *proto.Decoder) ClientID {
	gid := d.U64()
	handle := d.U64()
	return ClientID{Gid: gid, Handle: handle}
}

// AsyncRequestID identifies one outstanding asynchronous operation, scoped
// to the client that started it.
type AsyncRequestID struct {
	ClientID  ClientID
	RequestID uint64
}

// NewAsyncRequestID constructs an AsyncRequestID.
func NewAsyncRequestID(client ClientID, requestID uint64) AsyncRequestID {
	return AsyncRequestID{ClientID: client, RequestID: requestID}
}

// Compare orders request ids by ClientID, then RequestID.
func (a AsyncRequestID) Compare(o AsyncRequestID) int {
	if c := a.ClientID.Compare(o.ClientID); c != 0 {
		return c
	}
	switch {
	case a.RequestID < o.RequestID:
		return -1
	case a.RequestID > o.RequestID:
		return 1
	}
	return 0
}

// Less reports whether a sorts before o.
func (a AsyncRequestID) Less(o AsyncRequestID) bool {
	return a.Compare(o) < 0
}

func (a AsyncRequestID) String() string {
	return fmt.Sprintf("[%d,%d,%d]", a.ClientID.Gid, a.ClientID.Handle, a.RequestID)
}

func (a AsyncRequestID) Dump(f Formatter) {
	f.DumpObject("client_id", a.ClientID)
	f.DumpUint("request_id", a.RequestID)
}

func (a AsyncRequestID) encode(e *proto.Encoder) {
	a.ClientID.encode(e)
	e.PutU64(a.RequestID)
}

func decodeAsyncRequestID(d *proto.Decoder) AsyncRequestID {
	client := decodeClientID(d)
	req := d.U64()
	return AsyncRequestID{ClientID: client, RequestID: req}
}
