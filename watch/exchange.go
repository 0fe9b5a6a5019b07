package watch

import (
	"context"
	"io"
	"net"
	"sync"

	"github.com/inconshreveable/log15"
	"github.com/ngrok/watchnotify"
	"github.com/ngrok/watchnotify/internal/proto"
	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// errStaleWatcher indicates a socket in the object directory that nobody is
// listening on: the watcher died without unregistering.
var errStaleWatcher = errors.New("watcher socket is stale")

func readFrame(r io.Reader) (proto.Frame, error) {
	blob, err := proto.ReadBlob(r)
	if err != nil {
		return proto.Frame{}, err
	}
	return proto.UnmarshalFrame(blob)
}

func writeFrame(w io.Writer, f proto.Frame) error {
	return proto.WriteBlob(w, proto.MarshalFrame(f))
}

// exchange performs one notify/response exchange with a single watcher over
// a fresh connection to its socket.
//
// If ctx is done before the response arrives, the connection is closed to
// unblock any pending read or write and a context error is returned wrapped.
// The context error may be retrieved with errors.Cause in that case.
type exchange struct {
	id   proto.ExchangeID
	to   watchnotify.ClientID
	path string
	l    log15.Logger

	closeOnce sync.Once
	conn      net.Conn
}

func (e *exchange) close() {
	e.closeOnce.Do(func() {
		if e.conn != nil {
			e.conn.Close()
		}
	})
}

func (e *exchange) run(ctx context.Context, notify []byte) (watchnotify.ResponseMessage, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "unix", e.path)
	if err != nil {
		if errors.Is(err, unix.ECONNREFUSED) || errors.Is(err, unix.ENOENT) {
			// The socket file exists (or existed when we listed the directory),
			// but nothing is accepting on it. A live watcher removes its socket
			// under the lock before it stops listening, so this one is dead.
			e.l.Warn("found watcher socket with no listener", "dialErr", err)
			return watchnotify.ResponseMessage{}, errStaleWatcher
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return watchnotify.ResponseMessage{}, errors.Wrap(ctxErr, err.Error())
		}
		return watchnotify.ResponseMessage{}, errors.Wrap(err, "could not connect to watcher")
	}
	e.conn = conn
	defer e.close()

	functionEnd := make(chan struct{})
	go func() {
		select {
		case <-functionEnd:
		case <-ctx.Done():
			// double check the function hasn't already returned
			select {
			case <-functionEnd:
				return
			default:
			}
			e.close()
		}
	}()
	defer close(functionEnd)
	// orContextErr returns a context error instead of the passed error if there is one.
	// This is done under the assumption that the 'err' passed in was caused by
	// the context cancel/timeout, and the context error is therefore both more
	// useful for a programmer to check and a more meaningful message.
	orContextErr := func(err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return errors.Wrap(ctxErr, err.Error())
		}
		return err
	}

	if err := writeFrame(conn, proto.Frame{ID: e.id, Body: notify}); err != nil {
		return watchnotify.ResponseMessage{}, orContextErr(errors.Wrap(err, "could not send notification"))
	}
	reply, err := readFrame(conn)
	if err != nil {
		return watchnotify.ResponseMessage{}, orContextErr(errors.Wrap(err, "could not read response"))
	}
	if reply.ID != e.id {
		return watchnotify.ResponseMessage{}, errors.Errorf("response for exchange %v, expected %v", reply.ID, e.id)
	}
	var resp watchnotify.ResponseMessage
	if err := resp.UnmarshalBinary(reply.Body); err != nil {
		return watchnotify.ResponseMessage{}, errors.Wrap(err, "bad response from watcher")
	}
	return resp, nil
}
