// Package watchnotify implements the messages exchanged by clients watching
// a shared storage object.
//
// Any watcher may broadcast a NotifyMessage to the object. Every other
// watcher decodes it, acts on the payload and answers with a ResponseMessage.
// The messages cover exclusive-lock hand-off (AcquiredLock, ReleasedLock,
// RequestLock), cache invalidation (HeaderUpdate), requests to run a
// maintenance operation (Flatten, Resize, SnapCreate, ...) and progress of
// those operations (AsyncProgress, AsyncComplete).
//
// Watchers in a running cluster are never guaranteed to run the same build,
// so decoding is forgiving. A payload kind this build doesn't know, or a
// known payload it can't interpret, decodes to UnknownPayload instead of an
// error, and newer fields appended to a payload are skipped. Only a broken
// envelope (truncated header, declared length past the end of the input) is
// reported as an error.
//
// Nothing here knows how messages travel. The watch subpackage provides a
// transport over a shared directory; any other pub/sub substrate works as
// long as it carries the encoded bytes unchanged.
package watchnotify
