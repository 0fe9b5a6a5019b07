package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io/ioutil"
	"os"
	"testing"

	"github.com/inconshreveable/log15"
	"github.com/ngrok/watchnotify"
	"github.com/ngrok/watchnotify/watch"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, cmd *cobra.Command, args ...string) string {
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs(args)
	require.NoError(t, cmd.Execute())
	return out.String()
}

func TestBuildPayloadMatchesInstances(t *testing.T) {
	args := payloadArgs{
		clientID:  watchnotify.NewClientID(1, 2),
		requestID: 3,
		offset:    4,
		total:     5,
		result:    -6,
		size:      7,
		snapName:  "snap",
		snapID:    8,
	}
	for _, msg := range watchnotify.NotifyMessageTestInstances() {
		a := args
		if msg.Op() == watchnotify.NotifyOpSnapRename {
			a.snapName = "renamed"
		}
		p, err := buildPayload(msg.Op(), a)
		require.NoError(t, err, msg.Op().String())
		require.Equal(t, msg, watchnotify.NewNotifyMessage(p))
	}

	_, err := buildPayload(watchnotify.NotifyOpUnknown, args)
	require.Error(t, err)
}

func TestDecodeCmd(t *testing.T) {
	out := execute(t, GetDecodeCmd(), "0b010e 0900000000000000 05 6166746572 ff")
	var line dumpLine
	require.NoError(t, json.Unmarshal([]byte(out), &line))
	require.Equal(t, "notify", line.Kind)
	require.Equal(t, "SnapRename", line.Op)
	require.Equal(t, 17, line.Consumed)
	require.Equal(t, 1, line.Trailing)
	require.Equal(t, "after", line.Dump["dst_snap_name"])
	require.Equal(t, float64(9), line.Dump["src_snap_id"])

	out = execute(t, GetDecodeCmd(), "--response", "fbffffff")
	line = dumpLine{}
	require.NoError(t, json.Unmarshal([]byte(out), &line))
	require.Equal(t, "response", line.Kind)
	require.Equal(t, float64(-5), line.Dump["result"])

	cmd := GetDecodeCmd()
	cmd.SetOut(ioutil.Discard)
	cmd.SetArgs([]string{"0b01"})
	require.Error(t, cmd.Execute())
}

func TestInstancesCmd(t *testing.T) {
	out := execute(t, GetInstancesCmd())
	s := bufio.NewScanner(bytes.NewBufferString(out))
	var lines []dumpLine
	for s.Scan() {
		var line dumpLine
		require.NoError(t, json.Unmarshal(s.Bytes(), &line))
		lines = append(lines, line)
	}
	require.Len(t, lines, len(watchnotify.NotifyMessageTestInstances())+len(watchnotify.ResponseMessageTestInstances()))
	require.Equal(t, "AcquiredLock", lines[0].Op)
	require.Equal(t, "000110", lines[0].Hex[:6])
	require.Equal(t, "ffffffff", lines[len(lines)-1].Hex)
}

// TestNotifyCmdWait runs notify --wait against a watcher that completes every
// flatten request it is asked to run.
func TestNotifyCmdWait(t *testing.T) {
	dir, err := ioutil.TempDir("", "watchnotify-cli")
	require.NoError(t, err)
	defer os.RemoveAll(dir)
	logger.SetHandler(log15.DiscardHandler())

	worker := watch.HandlerFunc(func(_ context.Context, msg watchnotify.NotifyMessage) watchnotify.ResponseMessage {
		if p, ok := msg.Payload.(watchnotify.FlattenPayload); ok {
			go func() {
				done := watchnotify.NewNotifyMessage(watchnotify.AsyncCompletePayload{AsyncRequestID: p.AsyncRequestID, Result: -22})
				if _, err := watch.NewNotifier(dir).Notify(context.Background(), done); err != nil {
					panic(err)
				}
			}()
		}
		return watchnotify.ResponseMessage{}
	})
	w, err := watch.NewWatcher(context.Background(), dir, worker)
	require.NoError(t, err)
	defer w.Close()

	out := execute(t, GetNotifyCmd(), "--dir", dir, "--op", "Flatten", "--request-id", "9", "--wait")
	var res notifyOutput
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	require.Contains(t, res.Acks, w.ID().String())
	require.Empty(t, res.TimedOut)
	require.Empty(t, res.Failed)
	require.NotNil(t, res.Result)
	require.Equal(t, int32(-22), *res.Result)
}

func TestNotifyCmdRejectsWaitOnSyncOp(t *testing.T) {
	cmd := GetNotifyCmd()
	cmd.SetOut(ioutil.Discard)
	cmd.SetArgs([]string{"--dir", os.TempDir(), "--op", "HeaderUpdate", "--wait"})
	require.Error(t, cmd.Execute())
}
