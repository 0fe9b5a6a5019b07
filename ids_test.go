package watchnotify

import (
	"sort"
	"testing"
	"testing/quick"

	"github.com/stretchr/testify/require"
)

func TestClientIDValidity(t *testing.T) {
	require.False(t, ClientID{}.IsValid())
	require.False(t, NewClientID(0, 0).IsValid())
	require.True(t, NewClientID(1, 0).IsValid())
	require.True(t, NewClientID(0, 1).IsValid())
}

func TestQuickcheckClientIDOrderingIsTotal(t *testing.T) {
	if err := quick.Check(func(g1, h1, g2, h2 uint8) bool {
		// small values so equal gids and equal ids actually show up
		a := NewClientID(uint64(g1%4), uint64(h1%4))
		b := NewClientID(uint64(g2%4), uint64(h2%4))
		holds := 0
		if a.Less(b) {
			holds++
		}
		if a == b {
			holds++
		}
		if b.Less(a) {
			holds++
		}
		return holds == 1 && a.Compare(b) == -b.Compare(a)
	}, &quick.Config{MaxCount: 1000}); err != nil {
		t.Error(err)
	}
}

func TestQuickcheckAsyncRequestIDOrderingIsTotal(t *testing.T) {
	if err := quick.Check(func(g1, g2, r1, r2 uint8) bool {
		a := NewAsyncRequestID(NewClientID(uint64(g1%3), 1), uint64(r1%3))
		b := NewAsyncRequestID(NewClientID(uint64(g2%3), 1), uint64(r2%3))
		holds := 0
		if a.Less(b) {
			holds++
		}
		if a == b {
			holds++
		}
		if b.Less(a) {
			holds++
		}
		return holds == 1
	}, &quick.Config{MaxCount: 1000}); err != nil {
		t.Error(err)
	}
}

func TestAsyncRequestIDClientIsPrimaryKey(t *testing.T) {
	low := NewAsyncRequestID(NewClientID(1, 5), 1000)
	high := NewAsyncRequestID(NewClientID(2, 0), 1)
	require.True(t, low.Less(high))
	require.False(t, high.Less(low))

	sameClient := NewAsyncRequestID(NewClientID(1, 5), 999)
	require.True(t, sameClient.Less(low))
}

func TestClientIDSortsAsMapKey(t *testing.T) {
	acks := map[ClientID]int32{
		NewClientID(2, 1): 0,
		NewClientID(1, 9): 0,
		NewClientID(1, 2): 0,
	}
	ids := make([]ClientID, 0, len(acks))
	for id := range acks {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].Less(ids[j]) })
	require.Equal(t, []ClientID{{1, 2}, {1, 9}, {2, 1}}, ids)
}

func TestIdentityStrings(t *testing.T) {
	c := NewClientID(7, 3)
	require.Equal(t, "[7,3]", c.String())
	require.Equal(t, "[7,3,42]", NewAsyncRequestID(c, 42).String())
}

func TestNotifyOpNames(t *testing.T) {
	require.Equal(t, "AcquiredLock", NotifyOpAcquiredLock.String())
	require.Equal(t, "SnapRename", NotifyOpSnapRename.String())
	require.Equal(t, "Unknown(0xff)", NotifyOpUnknown.String())
	require.Equal(t, "Unknown(0x0c)", NotifyOp(12).String())

	for i, op := range NotifyOps() {
		require.Equal(t, NotifyOp(i), op)
		parsed, err := ParseNotifyOp(op.String())
		require.NoError(t, err)
		require.Equal(t, op, parsed)
	}
	_, err := ParseNotifyOp("Defragment")
	require.Error(t, err)
}

func TestNotifyOpWireValues(t *testing.T) {
	// these values are part of the wire format and must never change
	expected := map[NotifyOp]uint8{
		NotifyOpAcquiredLock:     0,
		NotifyOpReleasedLock:     1,
		NotifyOpRequestLock:      2,
		NotifyOpHeaderUpdate:     3,
		NotifyOpAsyncProgress:    4,
		NotifyOpAsyncComplete:    5,
		NotifyOpFlatten:          6,
		NotifyOpResize:           7,
		NotifyOpSnapCreate:       8,
		NotifyOpSnapRemove:       9,
		NotifyOpRebuildObjectMap: 10,
		NotifyOpSnapRename:       11,
	}
	require.Len(t, NotifyOps(), len(expected))
	for op, v := range expected {
		require.Equal(t, v, uint8(op), op.String())
	}
}
