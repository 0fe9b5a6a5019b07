package watch

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/inconshreveable/log15"
	"github.com/ngrok/watchnotify"
	"github.com/ngrok/watchnotify/internal/proto"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
	"k8s.io/utils/clock"
)

// NotifyResult aggregates the outcome of one broadcast, per watcher.
// Every watcher that was registered when the broadcast started appears in
// exactly one of Acks, TimedOut or Failed, unless its socket turned out to be
// stale, in which case it was removed from the directory and is not listed.
type NotifyResult struct {
	Acks     map[watchnotify.ClientID]watchnotify.ResponseMessage
	TimedOut []watchnotify.ClientID
	Failed   map[watchnotify.ClientID]error
}

// Notifier broadcasts notifications to the watchers of an object directory.
// It is safe for concurrent use.
type Notifier struct {
	reg     *registry
	timeout time.Duration
	clock   clock.Clock
	l       log15.Logger
}

// NewNotifier returns a notifier for the object directory dir.
func NewNotifier(dir string, opts ...Option) *Notifier {
	c := newConfig(opts)
	return &Notifier{
		reg:     newRegistry(c.l, dir),
		timeout: c.timeout,
		clock:   c.clock,
		l:       c.l,
	}
}

// Notify sends msg to every registered watcher and collects their responses.
// Watchers that don't answer within the notifier's timeout are reported in
// TimedOut. An error is returned only if the message can't be encoded, the
// directory can't be read, or ctx is done.
func (n *Notifier) Notify(ctx context.Context, msg watchnotify.NotifyMessage) (*NotifyResult, error) {
	data, err := msg.MarshalBinary()
	if err != nil {
		return nil, errors.Wrap(err, "could not encode notification")
	}
	exchangeID := proto.NewExchangeID()
	l := n.l.New("exchange", exchangeID, "op", msg.Op())

	watchers, err := n.listWatchers(ctx)
	if err != nil {
		return nil, err
	}
	l.Debug("broadcasting notification", "watchers", len(watchers))

	exchangeCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	timedOut := make(chan struct{})
	timer := n.clock.NewTimer(n.timeout)
	defer timer.Stop()
	go func() {
		select {
		case <-timer.C():
			close(timedOut)
			cancel()
		case <-exchangeCtx.Done():
		}
	}()

	var mu sync.Mutex
	result := &NotifyResult{
		Acks:   map[watchnotify.ClientID]watchnotify.ResponseMessage{},
		Failed: map[watchnotify.ClientID]error{},
	}
	stale := []watchnotify.ClientID{}

	g, gctx := errgroup.WithContext(exchangeCtx)
	for _, id := range watchers {
		id := id
		g.Go(func() error {
			ex := &exchange{
				id:   exchangeID,
				to:   id,
				path: n.reg.sockPath(id),
				l:    l.New("watcher", id),
			}
			resp, err := ex.run(gctx, data)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				result.Acks[id] = resp
			case err == errStaleWatcher:
				stale = append(stale, id)
			case exchangeTimedOut(err, timedOut):
				result.TimedOut = append(result.TimedOut, id)
			default:
				if ctxErr := ctx.Err(); ctxErr != nil {
					// the caller gave up; abandon the whole broadcast
					return ctxErr
				}
				ex.l.Warn("notify exchange failed", "err", err)
				result.Failed[id] = err
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if len(stale) > 0 {
		n.removeStale(stale)
	}
	sort.Slice(result.TimedOut, func(i, j int) bool { return result.TimedOut[i].Less(result.TimedOut[j]) })
	l.Debug("notification complete", "acks", len(result.Acks), "timedOut", len(result.TimedOut), "failed", len(result.Failed))
	return result, nil
}

// Watchers returns the currently registered watchers in client id order.
func (n *Notifier) Watchers(ctx context.Context) ([]watchnotify.ClientID, error) {
	return n.listWatchers(ctx)
}

func (n *Notifier) listWatchers(ctx context.Context) ([]watchnotify.ClientID, error) {
	lock, err := n.reg.Lock(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			n.l.Error("error unlocking object dir", "err", err)
		}
	}()
	return n.reg.watchers()
}

// removeStale deletes the sockets of dead watchers so later broadcasts don't
// try them again.
func (n *Notifier) removeStale(ids []watchnotify.ClientID) {
	lock, err := n.reg.Lock(context.Background())
	if err != nil {
		n.l.Error("could not lock object dir to remove stale watchers", "err", err)
		return
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			n.l.Error("error unlocking object dir", "err", err)
		}
	}()
	for _, id := range ids {
		if err := n.reg.unregister(id); err != nil {
			n.l.Error("could not remove stale watcher", "watcher", id, "err", err)
		}
	}
}

// exchangeTimedOut reports whether err is the result of the broadcast timer
// cutting an exchange short. Errors the watcher caused itself, like a bad
// response, stay failures even when they show up after the timer fired.
func exchangeTimedOut(err error, timedOut <-chan struct{}) bool {
	return isClosed(timedOut) && errors.Is(err, context.Canceled)
}

func isClosed(c <-chan struct{}) bool {
	select {
	case <-c:
		return true
	default:
		return false
	}
}
