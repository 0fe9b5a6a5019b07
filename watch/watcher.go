package watch

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/inconshreveable/log15"
	"github.com/ngrok/watchnotify"
	"github.com/ngrok/watchnotify/internal/proto"
	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
	"k8s.io/utils/clock"
)

// ErrWatcherClosed is returned when closing a watcher twice.
var ErrWatcherClosed = errors.New("watcher is closed")

// resultBadMessage is the result sent back for a request that can't be
// decoded at all.
var resultBadMessage = -int32(unix.EBADMSG)

// Handler acts on notifications delivered to a Watcher.
//
// HandleNotify is called from its own goroutine for each notification and
// may run concurrently with itself. ctx is cancelled when the watcher closes.
// Messages wrapping UnknownPayload are acknowledged by the watcher and never
// reach the handler.
type Handler interface {
	HandleNotify(ctx context.Context, msg watchnotify.NotifyMessage) watchnotify.ResponseMessage
}

// HandlerFunc adapts a function to a Handler.
type HandlerFunc func(ctx context.Context, msg watchnotify.NotifyMessage) watchnotify.ResponseMessage

func (f HandlerFunc) HandleNotify(ctx context.Context, msg watchnotify.NotifyMessage) watchnotify.ResponseMessage {
	return f(ctx, msg)
}

// Handlers returns a handler that passes each notification to every handler
// in order. The response is the first non-zero result, or success.
func Handlers(hs ...Handler) Handler {
	return HandlerFunc(func(ctx context.Context, msg watchnotify.NotifyMessage) watchnotify.ResponseMessage {
		var resp watchnotify.ResponseMessage
		for _, h := range hs {
			r := h.HandleNotify(ctx, msg)
			if resp.Result == 0 {
				resp = r
			}
		}
		return resp
	})
}

// Watcher is one watch registration on an object directory. It receives
// every notification broadcast to the object, including its own process's.
type Watcher struct {
	id      watchnotify.ClientID
	reg     *registry
	handler Handler
	ln      *net.UnixListener

	timeout time.Duration
	clock   clock.Clock
	l       log15.Logger

	stateLock sync.Mutex
	state     watcherState

	ctx      context.Context
	cancel   context.CancelFunc
	inflight sync.WaitGroup
	serveC   chan struct{}
}

// NewWatcher registers a new watch on the object directory dir and starts
// serving notifications to handler. The directory must exist and be
// writeable. ctx bounds the wait for the directory lock only.
func NewWatcher(ctx context.Context, dir string, handler Handler, opts ...Option) (*Watcher, error) {
	c := newConfig(opts)
	id := watchnotify.NewClientID(c.gid, nextHandle())
	l := c.l.New("client", id)
	w := &Watcher{
		id:      id,
		reg:     newRegistry(l, dir),
		handler: handler,
		timeout: c.timeout,
		clock:   c.clock,
		l:       l,
		state:   watcherStateRegistering,
		serveC:  make(chan struct{}),
	}
	w.ctx, w.cancel = context.WithCancel(context.Background())

	if err := w.register(ctx); err != nil {
		w.cancel()
		w.mustTransitionTo(watcherStateClosed)
		return nil, err
	}
	w.mustTransitionTo(watcherStateWatching)
	go w.serve()
	return w, nil
}

func (w *Watcher) register(ctx context.Context) error {
	lock, err := w.reg.Lock(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			w.l.Error("error unlocking object dir", "err", err)
		}
	}()
	ln, err := w.reg.listen(w.id)
	if err != nil {
		return err
	}
	w.ln = ln
	return nil
}

// ID returns the client id this watcher was registered with.
func (w *Watcher) ID() watchnotify.ClientID {
	return w.id
}

func (w *Watcher) transitionTo(state watcherState) error {
	w.stateLock.Lock()
	defer w.stateLock.Unlock()
	return w.state.transitionTo(state)
}

func (w *Watcher) mustTransitionTo(state watcherState) {
	if err := w.transitionTo(state); err != nil {
		panic(fmt.Sprintf("BUG: error transitioning to %q: %v", state, err))
	}
}

func (w *Watcher) serve() {
	defer close(w.serveC)
	for {
		conn, err := w.ln.AcceptUnix()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				w.l.Info("watch socket closed, no longer serving notifications")
				return
			}
			w.l.Error("error accepting notification", "err", err)
			continue
		}
		w.inflight.Add(1)
		go func() {
			defer w.inflight.Done()
			w.handleConn(conn)
		}()
	}
}

func (w *Watcher) handleConn(conn *net.UnixConn) {
	defer conn.Close()

	// a sender that doesn't deliver its request in time gets dropped
	readDone := make(chan struct{})
	readTimeout := w.clock.NewTimer(w.timeout)
	defer readTimeout.Stop()
	go func() {
		select {
		case <-readTimeout.C():
			w.l.Warn("timed out reading notification")
			conn.Close()
		case <-readDone:
		case <-w.ctx.Done():
			conn.Close()
		}
	}()
	frame, err := readFrame(conn)
	close(readDone)
	if err != nil {
		w.l.Error("could not read notification", "err", err)
		return
	}

	resp := w.dispatch(frame.Body)
	if err := writeFrame(conn, proto.Frame{ID: frame.ID, Body: resp.AppendBinary(nil)}); err != nil {
		w.l.Error("could not write response", "exchange", frame.ID, "err", err)
	}
}

// dispatch decodes a notification and hands it to the handler.
func (w *Watcher) dispatch(data []byte) watchnotify.ResponseMessage {
	var msg watchnotify.NotifyMessage
	if err := msg.UnmarshalBinary(data); err != nil {
		w.l.Warn("dropping malformed notification", "err", err)
		return watchnotify.ResponseMessage{Result: resultBadMessage}
	}
	if msg.IsUnknown() {
		w.l.Debug("ignoring unknown notification", watchnotify.LogCtx(msg))
		return watchnotify.ResponseMessage{}
	}
	w.l.Debug("received notification", watchnotify.LogCtx(msg))
	return w.handler.HandleNotify(w.ctx, msg)
}

// Close unregisters the watcher and stops serving. Handlers still running
// see their context cancelled; Close waits for them to return and for their
// responses to be written.
func (w *Watcher) Close() error {
	if err := w.transitionTo(watcherStateClosing); err != nil {
		return ErrWatcherClosed
	}

	// unregister first so no new notifier finds us, then stop accepting
	var unregErr error
	lock, err := w.reg.Lock(context.Background())
	if err != nil {
		unregErr = err
	} else {
		unregErr = w.reg.unregister(w.id)
		if err := lock.Unlock(); err != nil {
			w.l.Error("error unlocking object dir", "err", err)
		}
	}
	w.ln.Close()
	<-w.serveC
	w.cancel()
	w.inflight.Wait()

	w.mustTransitionTo(watcherStateClosed)
	return unregErr
}
