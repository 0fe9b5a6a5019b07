package watch

import (
	"time"

	"github.com/inconshreveable/log15"
	"k8s.io/utils/clock"
)

// DefaultTimeout is how long one notify exchange may take. A watcher that
// hasn't answered by then is reported as timed out, and a watcher drops a
// connection that hasn't delivered its request in that time.
const DefaultTimeout time.Duration = 5 * time.Second

type config struct {
	timeout time.Duration
	l       log15.Logger
	clock   clock.Clock
	gid     uint64
	os      osIface
}

func newConfig(opts []Option) *config {
	noopLogger := log15.New()
	noopLogger.SetHandler(log15.DiscardHandler())
	c := &config{
		timeout: DefaultTimeout,
		l:       noopLogger,
		clock:   clock.RealClock{},
		os:      realOS{},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.gid == 0 {
		c.gid = uint64(c.os.Getpid())
	}
	return c
}

// Option is an option function for watchers, notifiers and trackers.
// See Rob Pike's post on the topic for more information on this pattern:
// https://commandcenter.blogspot.com/2014/01/self-referential-functions-and-design.html
type Option func(c *config)

// WithTimeout configures the exchange timeout. If a time of 0 is specified,
// the default will be used.
func WithTimeout(t time.Duration) Option {
	return func(c *config) {
		c.timeout = t
		if c.timeout <= 0 {
			c.timeout = DefaultTimeout
		}
	}
}

// WithLogger configures the logger to use.
// By default, nothing will be logged.
func WithLogger(l log15.Logger) Option {
	return func(c *config) {
		c.l = l
	}
}

// WithClock sets the clock timeouts and rates are measured with.
func WithClock(clk clock.Clock) Option {
	return func(c *config) {
		c.clock = clk
	}
}

// WithGid sets the global id used in the ClientID of a watcher. It defaults
// to the process id.
func WithGid(gid uint64) Option {
	return func(c *config) {
		c.gid = gid
	}
}

func withOS(os osIface) Option {
	return func(c *config) {
		c.os = os
	}
}
