package watchnotify

import (
	"encoding/json"
	"testing"

	"github.com/inconshreveable/log15"
	"github.com/stretchr/testify/require"
)

func TestDumpMap(t *testing.T) {
	msg := NewNotifyMessage(ResizePayload{
		Size:           4096,
		AsyncRequestID: NewAsyncRequestID(NewClientID(7, 3), 42),
	})
	require.Equal(t, MapFormatter{
		"notify_op": "Resize",
		"size":      uint64(4096),
		"async_request_id": MapFormatter{
			"client_id":  MapFormatter{"gid": uint64(7), "handle": uint64(3)},
			"request_id": uint64(42),
		},
	}, DumpMap(msg))
}

func TestDumpMapIsJSON(t *testing.T) {
	for _, msg := range NotifyMessageTestInstances() {
		out, err := json.Marshal(DumpMap(msg))
		require.NoError(t, err)
		require.Contains(t, string(out), `"notify_op":"`+msg.Op().String()+`"`)
	}
}

func TestDumpUnknown(t *testing.T) {
	msg := NewNotifyMessage(UnknownPayload{Tag: 42, Version: 2, Reason: UnknownReasonTag})
	require.Equal(t, MapFormatter{
		"notify_op": "Unknown(0xff)",
		"tag":       uint64(42),
		"version":   uint64(2),
		"reason":    "unknown-tag",
	}, DumpMap(msg))
}

func TestLogCtxFlattens(t *testing.T) {
	p := AsyncCompletePayload{AsyncRequestID: NewAsyncRequestID(NewClientID(1, 2), 3), Result: -5}
	require.Equal(t, log15.Ctx{
		"async_request_id.client_id.gid":    uint64(1),
		"async_request_id.client_id.handle": uint64(2),
		"async_request_id.request_id":       uint64(3),
		"result":                            int64(-5),
	}, LogCtx(p))
}

func TestResponseDump(t *testing.T) {
	require.Equal(t, MapFormatter{"result": int64(-1)}, DumpMap(ResponseMessage{Result: -1}))
}
