// Package proto holds the byte-level pieces of the watch/notify wire format:
// fixed-width little-endian integers, unsigned varints, length-prefixed
// strings, the notify envelope and the blob framing used on exchange streams.
//
// A notify envelope looks like this:
//
//	tag:u8  payload_version:u8  payload_len:varuint  payload_bytes
//
// The envelope is self-delimiting. A reader that doesn't understand the tag,
// or only understands a prefix of the payload, can always find the end of it
// by skipping payload_len bytes. That is what lets old and new watchers share
// an object: a newer peer may append fields to a payload or invent new tags,
// and an older peer will still land on the right byte afterwards.
//
// Nothing in this package knows what a tag means; the watchnotify package
// owns the tag table and the payload layouts.
//
// Errors come in two flavours. ErrTruncated means the input ended before a
// field it promised. ErrMalformed means the input can't be valid no matter
// how many more bytes arrive (varint overflow, a length over the maximum).
package proto
