package watch

import (
	"context"
	"sync"
	"time"

	movingaverage "github.com/RobinUS2/golang-moving-average"
	"github.com/inconshreveable/log15"
	"github.com/ngrok/watchnotify"
	"github.com/pkg/errors"
	"k8s.io/utils/clock"
)

// rateWindow is the number of progress samples averaged for Rate.
const rateWindow = 5

var (
	// ErrAlreadyTracked is returned when tracking a request id twice.
	ErrAlreadyTracked = errors.New("async request is already tracked")
	// ErrNotTracked is returned for a request id the tracker doesn't know.
	ErrNotTracked = errors.New("async request is not tracked")
)

// Progress is the last reported state of a tracked request.
type Progress struct {
	Offset uint64
	Total  uint64
	// Rate is the recent throughput in units of Offset per second, or 0
	// before two progress reports have arrived.
	Rate float64
	// Done is set once AsyncComplete arrived; Result is only valid then.
	Done   bool
	Result int32
}

type trackedRequest struct {
	progress Progress
	lastAt   time.Time
	seen     bool
	rate     *movingaverage.MovingAverage
	doneC    chan struct{}
}

// AsyncTracker correlates AsyncProgress and AsyncComplete notifications with
// the async requests this client is waiting for. Notifications about
// requests it doesn't track are someone else's and are ignored.
//
// An AsyncTracker is a Handler; attach it to a Watcher, possibly together
// with other handlers via Handlers.
type AsyncTracker struct {
	mu      sync.Mutex
	pending map[watchnotify.AsyncRequestID]*trackedRequest

	clock clock.Clock
	l     log15.Logger
}

// NewAsyncTracker returns a tracker with nothing tracked yet.
func NewAsyncTracker(opts ...Option) *AsyncTracker {
	c := newConfig(opts)
	return &AsyncTracker{
		pending: map[watchnotify.AsyncRequestID]*trackedRequest{},
		clock:   c.clock,
		l:       c.l,
	}
}

// Track starts tracking id. It must be called before the request is sent so
// that no progress report is missed.
func (t *AsyncTracker) Track(id watchnotify.AsyncRequestID) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.pending[id]; ok {
		return ErrAlreadyTracked
	}
	t.pending[id] = &trackedRequest{
		rate:  movingaverage.New(rateWindow),
		doneC: make(chan struct{}),
	}
	return nil
}

// Forget stops tracking id. Pending Waits for it return ErrNotTracked.
func (t *AsyncTracker) Forget(id watchnotify.AsyncRequestID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.forgetLocked(id)
}

func (t *AsyncTracker) forgetLocked(id watchnotify.AsyncRequestID) {
	req, ok := t.pending[id]
	if !ok {
		return
	}
	delete(t.pending, id)
	if !req.progress.Done {
		close(req.doneC)
	}
}

// Progress returns the last known progress of id.
func (t *AsyncTracker) Progress(id watchnotify.AsyncRequestID) (Progress, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	req, ok := t.pending[id]
	if !ok {
		return Progress{}, false
	}
	return req.progress, true
}

// Wait blocks until id completes and returns its result. The request is no
// longer tracked afterwards.
func (t *AsyncTracker) Wait(ctx context.Context, id watchnotify.AsyncRequestID) (int32, error) {
	t.mu.Lock()
	req, ok := t.pending[id]
	t.mu.Unlock()
	if !ok {
		return 0, ErrNotTracked
	}

	select {
	case <-req.doneC:
	case <-ctx.Done():
		return 0, ctx.Err()
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if !req.progress.Done {
		return 0, ErrNotTracked
	}
	if t.pending[id] == req {
		delete(t.pending, id)
	}
	return req.progress.Result, nil
}

// HandleNotify implements Handler.
func (t *AsyncTracker) HandleNotify(_ context.Context, msg watchnotify.NotifyMessage) watchnotify.ResponseMessage {
	switch p := msg.Payload.(type) {
	case watchnotify.AsyncProgressPayload:
		t.progress(p)
	case watchnotify.AsyncCompletePayload:
		t.complete(p)
	}
	return watchnotify.ResponseMessage{}
}

func (t *AsyncTracker) progress(p watchnotify.AsyncProgressPayload) {
	t.mu.Lock()
	defer t.mu.Unlock()
	req, ok := t.pending[p.AsyncRequestID]
	if !ok || req.progress.Done {
		return
	}
	now := t.clock.Now()
	if req.seen && p.Offset >= req.progress.Offset {
		if elapsed := now.Sub(req.lastAt); elapsed > 0 {
			req.rate.Add(float64(p.Offset-req.progress.Offset) / elapsed.Seconds())
			req.progress.Rate = req.rate.Avg()
		}
	}
	req.seen = true
	req.lastAt = now
	req.progress.Offset = p.Offset
	req.progress.Total = p.Total
	t.l.Debug("async request progress", "request", p.AsyncRequestID, "offset", p.Offset, "total", p.Total, "rate", req.progress.Rate)
}

func (t *AsyncTracker) complete(p watchnotify.AsyncCompletePayload) {
	t.mu.Lock()
	defer t.mu.Unlock()
	req, ok := t.pending[p.AsyncRequestID]
	if !ok || req.progress.Done {
		return
	}
	req.progress.Done = true
	req.progress.Result = p.Result
	close(req.doneC)
	t.l.Info("async request complete", "request", p.AsyncRequestID, "result", p.Result)
}
