package watchnotify

import (
	"fmt"

	"github.com/pkg/errors"
)

// NotifyOp is the wire tag naming a payload kind.
//
// Values are bound to their payload layout forever. New operations append a
// new value; a retired operation keeps its value unused. Reusing a value
// would make old messages still in flight decode as the wrong thing.
type NotifyOp uint8

const (
	NotifyOpAcquiredLock     NotifyOp = 0
	NotifyOpReleasedLock     NotifyOp = 1
	NotifyOpRequestLock      NotifyOp = 2
	NotifyOpHeaderUpdate     NotifyOp = 3
	NotifyOpAsyncProgress    NotifyOp = 4
	NotifyOpAsyncComplete    NotifyOp = 5
	NotifyOpFlatten          NotifyOp = 6
	NotifyOpResize           NotifyOp = 7
	NotifyOpSnapCreate       NotifyOp = 8
	NotifyOpSnapRemove       NotifyOp = 9
	NotifyOpRebuildObjectMap NotifyOp = 10
	NotifyOpSnapRename       NotifyOp = 11

	// NotifyOpUnknown is reported by UnknownPayload. It is never written to
	// the wire.
	NotifyOpUnknown NotifyOp = 0xff
)

var notifyOpNames = [...]string{
	NotifyOpAcquiredLock:     "AcquiredLock",
	NotifyOpReleasedLock:     "ReleasedLock",
	NotifyOpRequestLock:      "RequestLock",
	NotifyOpHeaderUpdate:     "HeaderUpdate",
	NotifyOpAsyncProgress:    "AsyncProgress",
	NotifyOpAsyncComplete:    "AsyncComplete",
	NotifyOpFlatten:          "Flatten",
	NotifyOpResize:           "Resize",
	NotifyOpSnapCreate:       "SnapCreate",
	NotifyOpSnapRemove:       "SnapRemove",
	NotifyOpRebuildObjectMap: "RebuildObjectMap",
	NotifyOpSnapRename:       "SnapRename",
}

// NotifyOps returns every defined operation in wire order.
func NotifyOps() []NotifyOp {
	ops := make([]NotifyOp, len(notifyOpNames))
	for i := range notifyOpNames {
		ops[i] = NotifyOp(i)
	}
	return ops
}

// IsKnown reports whether op is one of the defined wire tags.
func (op NotifyOp) IsKnown() bool {
	return int(op) < len(notifyOpNames)
}

func (op NotifyOp) String() string {
	if op.IsKnown() {
		return notifyOpNames[op]
	}
	return fmt.Sprintf("Unknown(0x%02x)", uint8(op))
}

// ParseNotifyOp is the inverse of NotifyOp.String for defined operations.
func ParseNotifyOp(name string) (NotifyOp, error) {
	for i, n := range notifyOpNames {
		if n == name {
			return NotifyOp(i), nil
		}
	}
	return NotifyOpUnknown, errors.Errorf("unknown notify op %q", name)
}
