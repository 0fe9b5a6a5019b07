package watchnotify

import (
	"github.com/ngrok/watchnotify/internal/proto"
)

// Payload is the operation-specific content of a NotifyMessage.
//
// The set of payloads is closed: only types in this package implement it.
// Receivers switch on the concrete type and must ignore UnknownPayload.
type Payload interface {
	Dumper
	// NotifyOp returns the wire tag this payload is encoded under.
	NotifyOp() NotifyOp
	encode(e *proto.Encoder)
}

// AcquiredLockPayload announces that ClientID now owns the exclusive lock.
type AcquiredLockPayload struct {
	ClientID ClientID
}

// ReleasedLockPayload announces that ClientID gave up the exclusive lock.
type ReleasedLockPayload struct {
	ClientID ClientID
}

// RequestLockPayload asks the current owner to release the lock to ClientID.
type RequestLockPayload struct {
	ClientID ClientID
}

// HeaderUpdatePayload tells watchers to refresh their cached object header.
type HeaderUpdatePayload struct{}

// AsyncProgressPayload reports Offset out of Total units done for a request.
type AsyncProgressPayload struct {
	AsyncRequestID AsyncRequestID
	Offset         uint64
	Total          uint64
}

// AsyncCompletePayload reports the final result of a request.
type AsyncCompletePayload struct {
	AsyncRequestID AsyncRequestID
	Result         int32
}

// FlattenPayload asks the lock owner to flatten the object.
type FlattenPayload struct {
	AsyncRequestID AsyncRequestID
}

// ResizePayload asks the lock owner to resize the object to Size.
type ResizePayload struct {
	Size           uint64
	AsyncRequestID AsyncRequestID
}

// SnapCreatePayload asks the lock owner to create snapshot SnapName.
type SnapCreatePayload struct {
	SnapName string
}

// SnapRenamePayload asks the lock owner to rename snapshot SrcSnapID to DstSnapName.
type SnapRenamePayload struct {
	SrcSnapID   uint64
	DstSnapName string
}

// SnapRemovePayload asks the lock owner to remove snapshot SnapName.
type SnapRemovePayload struct {
	SnapName string
}

// RebuildObjectMapPayload asks the lock owner to rebuild the object map.
type RebuildObjectMapPayload struct {
	AsyncRequestID AsyncRequestID
}

// UnknownReason says why a message decoded to UnknownPayload.
type UnknownReason uint8

const (
	// UnknownReasonNone is the zero value, used for a locally constructed
	// UnknownPayload.
	UnknownReasonNone UnknownReason = iota
	// UnknownReasonTag means the sender used a tag this build doesn't know,
	// i.e. a payload kind added after it.
	UnknownReasonTag
	// UnknownReasonVersion means the tag is known but the payload version is
	// older than anything this build can read.
	UnknownReasonVersion
	// UnknownReasonBody means the tag and version are fine but the body
	// doesn't hold the fields this build requires.
	UnknownReasonBody
)

func (r UnknownReason) String() string {
	switch r {
	case UnknownReasonNone:
		return "none"
	case UnknownReasonTag:
		return "unknown-tag"
	case UnknownReasonVersion:
		return "unsupported-version"
	case UnknownReasonBody:
		return "undecodable-body"
	}
	return "invalid"
}

// UnknownPayload stands in for a payload this build can't interpret. It is
// never transmitted. Its fields only describe what arrived, for logging; a
// receiver should ignore the message and acknowledge it as usual.
type UnknownPayload struct {
	// Tag is the raw wire tag that was received.
	Tag uint8
	// Version is the raw payload version that was received.
	Version uint8
	Reason  UnknownReason
}

func (AcquiredLockPayload) NotifyOp() NotifyOp     { return NotifyOpAcquiredLock }
func (ReleasedLockPayload) NotifyOp() NotifyOp     { return NotifyOpReleasedLock }
func (RequestLockPayload) NotifyOp() NotifyOp      { return NotifyOpRequestLock }
func (HeaderUpdatePayload) NotifyOp() NotifyOp     { return NotifyOpHeaderUpdate }
func (AsyncProgressPayload) NotifyOp() NotifyOp    { return NotifyOpAsyncProgress }
func (AsyncCompletePayload) NotifyOp() NotifyOp    { return NotifyOpAsyncComplete }
func (FlattenPayload) NotifyOp() NotifyOp          { return NotifyOpFlatten }
func (ResizePayload) NotifyOp() NotifyOp           { return NotifyOpResize }
func (SnapCreatePayload) NotifyOp() NotifyOp       { return NotifyOpSnapCreate }
func (SnapRenamePayload) NotifyOp() NotifyOp       { return NotifyOpSnapRename }
func (SnapRemovePayload) NotifyOp() NotifyOp       { return NotifyOpSnapRemove }
func (RebuildObjectMapPayload) NotifyOp() NotifyOp { return NotifyOpRebuildObjectMap }
func (UnknownPayload) NotifyOp() NotifyOp          { return NotifyOpUnknown }

func (p AcquiredLockPayload) encode(e *proto.Encoder) { p.ClientID.encode(e) }
func (p ReleasedLockPayload) encode(e *proto.Encoder) { p.ClientID.encode(e) }
func (p RequestLockPayload) encode(e *proto.Encoder)  { p.ClientID.encode(e) }
func (HeaderUpdatePayload) encode(*proto.Encoder)     {}

func (p AsyncProgressPayload) encode(e *proto.Encoder) {
	p.AsyncRequestID.encode(e)
	e.PutU64(p.Offset)
	e.PutU64(p.Total)
}

func (p AsyncCompletePayload) encode(e *proto.Encoder) {
	p.AsyncRequestID.encode(e)
	e.PutI32(p.Result)
}

func (p FlattenPayload) encode(e *proto.Encoder) { p.AsyncRequestID.encode(e) }

func (p ResizePayload) encode(e *proto.Encoder) {
	e.PutU64(p.Size)
	p.AsyncRequestID.encode(e)
}

func (p SnapCreatePayload) encode(e *proto.Encoder) { e.PutString(p.SnapName) }

func (p SnapRenamePayload) encode(e *proto.Encoder) {
	e.PutU64(p.SrcSnapID)
	e.PutString(p.DstSnapName)
}

func (p SnapRemovePayload) encode(e *proto.Encoder)       { e.PutString(p.SnapName) }
func (p RebuildObjectMapPayload) encode(e *proto.Encoder) { p.AsyncRequestID.encode(e) }

// UnknownPayload has no body; NotifyMessage refuses to encode it.
func (UnknownPayload) encode(*proto.Encoder) {}

// decodePayload decodes the body of a known tag. It reads only the fields
// this build knows about for the given version; any bytes after them belong
// to a newer revision of the payload and are ignored.
//
// The version is currently only checked against MinPayloadVersion by the
// caller. A future layout change reads it here to decide which fields exist.
func decodePayload(op NotifyOp, version uint8, d *proto.Decoder) Payload {
	switch op {
	case NotifyOpAcquiredLock:
		return AcquiredLockPayload{ClientID: decodeClientID(d)}
	case NotifyOpReleasedLock:
		return ReleasedLockPayload{ClientID: decodeClientID(d)}
	case NotifyOpRequestLock:
		return RequestLockPayload{ClientID: decodeClientID(d)}
	case NotifyOpHeaderUpdate:
		return HeaderUpdatePayload{}
	case NotifyOpAsyncProgress:
		id := decodeAsyncRequestID(d)
		offset := d.U64()
		total := d.U64()
		return AsyncProgressPayload{AsyncRequestID: id, Offset: offset, Total: total}
	case NotifyOpAsyncComplete:
		id := decodeAsyncRequestID(d)
		result := d.I32()
		return AsyncCompletePayload{AsyncRequestID: id, Result: result}
	case NotifyOpFlatten:
		return FlattenPayload{AsyncRequestID: decodeAsyncRequestID(d)}
	case NotifyOpResize:
		size := d.U64()
		id := decodeAsyncRequestID(d)
		return ResizePayload{Size: size, AsyncRequestID: id}
	case NotifyOpSnapCreate:
		return SnapCreatePayload{SnapName: d.Str()}
	case NotifyOpSnapRemove:
		return SnapRemovePayload{SnapName: d.Str()}
	case NotifyOpRebuildObjectMap:
		return RebuildObjectMapPayload{AsyncRequestID: decodeAsyncRequestID(d)}
	case NotifyOpSnapRename:
		src := d.U64()
		dst := d.Str()
		return SnapRenamePayload{SrcSnapID: src, DstSnapName: dst}
	}
	return UnknownPayload{Tag: uint8(op), Version: version, Reason: UnknownReasonTag}
}
