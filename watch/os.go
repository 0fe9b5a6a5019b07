package watch

import (
	"os"
	"sync/atomic"
)

type osIface interface {
	Getpid() int
}

type realOS struct{}

func (realOS) Getpid() int {
	return os.Getpid()
}

// lastHandle is the last watch handle handed out by this process.
var lastHandle uint64

// nextHandle returns a watch handle that is unique within this process.
// Together with a gid that is unique per process it forms a unique ClientID.
func nextHandle() uint64 {
	return atomic.AddUint64(&lastHandle, 1)
}
