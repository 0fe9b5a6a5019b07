package proto

const (
	// PayloadVersion is the payload layout revision written by this
	// implementation. Readers accept any version at or above MinPayloadVersion
	// and skip fields they don't know about.
	PayloadVersion = 1
	// MinPayloadVersion is the oldest payload layout this implementation can
	// interpret. Version 0 was never written.
	MinPayloadVersion = 1

	// MaxPayloadLen bounds the declared length of a single payload body. A
	// larger value can only come from a corrupt or hostile sender.
	MaxPayloadLen = 1 << 20

	// MaxBlobLen bounds a single length-prefixed blob on an exchange stream.
	MaxBlobLen = MaxPayloadLen + 64
)
