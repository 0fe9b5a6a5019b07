package watchnotify

// NotifyMessageTestInstances returns one canonical message per defined
// NotifyOp, in wire order. Field values are arbitrary but fixed.
//
// Round-trip tests and the instances CLI command iterate over this list, so
// a new payload kind must add its instance here.
func NotifyMessageTestInstances() []NotifyMessage {
	client := ClientID{Gid: 1, Handle: 2}
	req := AsyncRequestID{ClientID: client, RequestID: 3}
	return []NotifyMessage{
		{Payload: AcquiredLockPayload{ClientID: client}},
		{Payload: ReleasedLockPayload{ClientID: client}},
		{Payload: RequestLockPayload{ClientID: client}},
		{Payload: HeaderUpdatePayload{}},
		{Payload: AsyncProgressPayload{AsyncRequestID: req, Offset: 4, Total: 5}},
		{Payload: AsyncCompletePayload{AsyncRequestID: req, Result: -6}},
		{Payload: FlattenPayload{AsyncRequestID: req}},
		{Payload: ResizePayload{Size: 7, AsyncRequestID: req}},
		{Payload: SnapCreatePayload{SnapName: "snap"}},
		{Payload: SnapRemovePayload{SnapName: "snap"}},
		{Payload: RebuildObjectMapPayload{AsyncRequestID: req}},
		{Payload: SnapRenamePayload{SrcSnapID: 8, DstSnapName: "renamed"}},
	}
}

// ResponseMessageTestInstances returns the canonical responses: the default
// success and a failure.
func ResponseMessageTestInstances() []ResponseMessage {
	return []ResponseMessage{
		{},
		{Result: -1},
	}
}
