package watch

import (
	"context"
	"testing"
	"time"

	"github.com/ngrok/watchnotify"
	"github.com/stretchr/testify/require"
	fakeclock "k8s.io/utils/clock/testing"
)

func progressMsg(id watchnotify.AsyncRequestID, offset, total uint64) watchnotify.NotifyMessage {
	return watchnotify.NewNotifyMessage(watchnotify.AsyncProgressPayload{AsyncRequestID: id, Offset: offset, Total: total})
}

func completeMsg(id watchnotify.AsyncRequestID, result int32) watchnotify.NotifyMessage {
	return watchnotify.NewNotifyMessage(watchnotify.AsyncCompletePayload{AsyncRequestID: id, Result: result})
}

func TestAsyncTrackerCorrelatesOwnRequests(t *testing.T) {
	ctx := testCtx(t)
	clock := fakeclock.NewFakeClock(time.Now())
	tr := NewAsyncTracker(WithLogger(l), WithClock(clock))

	me := watchnotify.NewClientID(1, 1)
	mine := watchnotify.NewAsyncRequestID(me, 10)
	// same request number, different client: someone else's request
	theirs := watchnotify.NewAsyncRequestID(watchnotify.NewClientID(2, 1), 10)
	require.NoError(t, tr.Track(mine))
	require.Equal(t, ErrAlreadyTracked, tr.Track(mine))

	tr.HandleNotify(ctx, progressMsg(mine, 0, 1000))
	clock.Step(time.Second)
	tr.HandleNotify(ctx, progressMsg(mine, 100, 1000))
	tr.HandleNotify(ctx, progressMsg(theirs, 900, 1000))
	tr.HandleNotify(ctx, completeMsg(theirs, -5))

	p, ok := tr.Progress(mine)
	require.True(t, ok)
	require.Equal(t, uint64(100), p.Offset)
	require.Equal(t, uint64(1000), p.Total)
	require.InDelta(t, 100.0, p.Rate, 0.001)
	require.False(t, p.Done)

	_, ok = tr.Progress(theirs)
	require.False(t, ok)

	clock.Step(time.Second)
	tr.HandleNotify(ctx, progressMsg(mine, 400, 1000))
	p, _ = tr.Progress(mine)
	// average of 100/s and 300/s
	require.InDelta(t, 200.0, p.Rate, 0.001)

	tr.HandleNotify(ctx, completeMsg(mine, -28))
	result, err := tr.Wait(ctx, mine)
	require.NoError(t, err)
	require.Equal(t, int32(-28), result)

	// no longer tracked after a successful wait
	_, err = tr.Wait(ctx, mine)
	require.Equal(t, ErrNotTracked, err)
}

func TestAsyncTrackerWaitBlocks(t *testing.T) {
	ctx := testCtx(t)
	tr := NewAsyncTracker()
	id := watchnotify.NewAsyncRequestID(watchnotify.NewClientID(1, 1), 1)
	require.NoError(t, tr.Track(id))

	resC := make(chan int32)
	go func() {
		r, err := tr.Wait(ctx, id)
		if err != nil {
			panic(err)
		}
		resC <- r
	}()

	select {
	case r := <-resC:
		t.Fatalf("wait returned early with %v", r)
	case <-time.After(10 * time.Millisecond):
	}
	tr.HandleNotify(ctx, completeMsg(id, 0))
	require.Equal(t, int32(0), <-resC)
}

func TestAsyncTrackerForgetAndCancel(t *testing.T) {
	tr := NewAsyncTracker()
	id := watchnotify.NewAsyncRequestID(watchnotify.NewClientID(1, 1), 1)
	require.NoError(t, tr.Track(id))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := tr.Wait(ctx, id)
	require.Equal(t, context.Canceled, err)

	errC := make(chan error)
	go func() {
		_, err := tr.Wait(context.Background(), id)
		errC <- err
	}()
	time.Sleep(10 * time.Millisecond)
	tr.Forget(id)
	require.Equal(t, ErrNotTracked, <-errC)

	// a completion after forgetting is someone else's problem
	resp := tr.HandleNotify(context.Background(), completeMsg(id, 1))
	require.Equal(t, int32(0), resp.Result)
}

// TestAsyncTrackerOverWatcher wires a tracker into a real watcher and drives
// it through a notifier, the way an operation's initiator would.
func TestAsyncTrackerOverWatcher(t *testing.T) {
	ctx := testCtx(t)
	dir := tmpDir(t)

	tr := NewAsyncTracker(WithLogger(l))
	w := newTestWatcher(t, dir, 1, Handlers(tr, &recorder{}))
	id := watchnotify.NewAsyncRequestID(w.ID(), 7)
	require.NoError(t, tr.Track(id))

	n := NewNotifier(dir, WithLogger(l))
	_, err := n.Notify(ctx, progressMsg(id, 5, 10))
	require.NoError(t, err)
	p, ok := tr.Progress(id)
	require.True(t, ok)
	require.Equal(t, uint64(5), p.Offset)

	_, err = n.Notify(ctx, completeMsg(id, 0))
	require.NoError(t, err)
	result, err := tr.Wait(ctx, id)
	require.NoError(t, err)
	require.Equal(t, int32(0), result)
}
