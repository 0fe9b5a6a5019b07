package watchnotify

import (
	"github.com/inconshreveable/log15"
)

// Formatter receives the structured fields of a value. It has no opinion on
// the output; see MapFormatter and LogCtx for the two sinks shipped here.
type Formatter interface {
	DumpUint(key string, v uint64)
	DumpInt(key string, v int64)
	DumpString(key, v string)
	// DumpObject emits a nested value under key.
	DumpObject(key string, v Dumper)
}

// Dumper is implemented by every identity, payload and message type.
type Dumper interface {
	Dump(f Formatter)
}

// MapFormatter collects fields into a nested map that encodes cleanly as
// JSON.
type MapFormatter map[string]interface{}

// DumpMap returns the fields of d as a MapFormatter.
func DumpMap(d Dumper) MapFormatter {
	m := MapFormatter{}
	d.Dump(m)
	return m
}

func (m MapFormatter) DumpUint(key string, v uint64)   { m[key] = v }
func (m MapFormatter) DumpInt(key string, v int64)     { m[key] = v }
func (m MapFormatter) DumpString(key, v string)        { m[key] = v }
func (m MapFormatter) DumpObject(key string, v Dumper) { m[key] = DumpMap(v) }

// LogCtx flattens the fields of d into a log15 context, joining nested keys
// with dots, e.g. "async_request_id.client_id.gid".
func LogCtx(d Dumper) log15.Ctx {
	f := &logFormatter{ctx: log15.Ctx{}}
	d.Dump(f)
	return f.ctx
}

type logFormatter struct {
	prefix string
	ctx    log15.Ctx
}

func (l *logFormatter) key(k string) string {
	if l.prefix == "" {
		return k
	}
	return l.prefix + "." + k
}

func (l *logFormatter) DumpUint(key string, v uint64) { l.ctx[l.key(key)] = v }
func (l *logFormatter) DumpInt(key string, v int64)   { l.ctx[l.key(key)] = v }
func (l *logFormatter) DumpString(key, v string)      { l.ctx[l.key(key)] = v }

func (l *logFormatter) DumpObject(key string, v Dumper) {
	v.Dump(&logFormatter{prefix: l.key(key), ctx: l.ctx})
}

func (p AcquiredLockPayload) Dump(f Formatter) { f.DumpObject("client_id", p.ClientID) }
func (p ReleasedLockPayload) Dump(f Formatter) { f.DumpObject("client_id", p.ClientID) }
func (p RequestLockPayload) Dump(f Formatter)  { f.DumpObject("client_id", p.ClientID) }
func (HeaderUpdatePayload) Dump(Formatter)     {}

func (p AsyncProgressPayload) Dump(f Formatter) {
	f.DumpObject("async_request_id", p.AsyncRequestID)
	f.DumpUint("offset", p.Offset)
	f.DumpUint("total", p.Total)
}

func (p AsyncCompletePayload) Dump(f Formatter) {
	f.DumpObject("async_request_id", p.AsyncRequestID)
	f.DumpInt("result", int64(p.Result))
}

func (p FlattenPayload) Dump(f Formatter) { f.DumpObject("async_request_id", p.AsyncRequestID) }

func (p ResizePayload) Dump(f Formatter) {
	f.DumpUint("size", p.Size)
	f.DumpObject("async_request_id", p.AsyncRequestID)
}

func (p SnapCreatePayload) Dump(f Formatter) { f.DumpString("snap_name", p.SnapName) }

func (p SnapRenamePayload) Dump(f Formatter) {
	f.DumpUint("src_snap_id", p.SrcSnapID)
	f.DumpString("dst_snap_name", p.DstSnapName)
}

func (p SnapRemovePayload) Dump(f Formatter)       { f.DumpString("snap_name", p.SnapName) }
func (p RebuildObjectMapPayload) Dump(f Formatter) { f.DumpObject("async_request_id", p.AsyncRequestID) }

func (p UnknownPayload) Dump(f Formatter) {
	f.DumpUint("tag", uint64(p.Tag))
	f.DumpUint("version", uint64(p.Version))
	f.DumpString("reason", p.Reason.String())
}
