package watch

import (
	"context"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/euank/filelock"
	"github.com/inconshreveable/log15"
	"github.com/ngrok/watchnotify"
	"github.com/pkg/errors"
)

const (
	lockFileName = "lock"
	sockSuffix   = ".sock"
)

// registry tracks the watchers of one object directory.
// Every watcher owns a unix socket named after its client id in the
// directory. Registering, unregistering and listing all happen under an
// exclusive lock on the directory's lock file, so a notifier never sees a
// half-registered watcher.
type registry struct {
	dir string
	l   log15.Logger
}

func newRegistry(l log15.Logger, dir string) *registry {
	return &registry{
		dir: dir,
		l:   l.New("dir", dir),
	}
}

func (r *registry) lockPath() string {
	return filepath.Join(r.dir, lockFileName)
}

func (r *registry) sockPath(id watchnotify.ClientID) string {
	return filepath.Join(r.dir, fmt.Sprintf("%d.%d%s", id.Gid, id.Handle, sockSuffix))
}

// parseSockName is the inverse of sockPath's file name.
func parseSockName(name string) (watchnotify.ClientID, bool) {
	if !strings.HasSuffix(name, sockSuffix) {
		return watchnotify.ClientID{}, false
	}
	parts := strings.Split(strings.TrimSuffix(name, sockSuffix), ".")
	if len(parts) != 2 {
		return watchnotify.ClientID{}, false
	}
	gid, err := strconv.ParseUint(parts[0], 10, 64)
	if err != nil {
		return watchnotify.ClientID{}, false
	}
	handle, err := strconv.ParseUint(parts[1], 10, 64)
	if err != nil {
		return watchnotify.ClientID{}, false
	}
	id := watchnotify.NewClientID(gid, handle)
	return id, id.IsValid()
}

// dirLock is a held exclusive lock on an object directory.
type dirLock struct {
	fl *filelock.FileLock
	l  log15.Logger
}

func touchFile(path string) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDONLY, 0644)
	if err != nil {
		return err
	}
	return f.Close()
}

// Lock takes an exclusive lock on the object directory. If the directory is
// already locked, it blocks until the lock can be acquired or ctx is done.
// In the latter case ctx.Err() is returned unwrapped.
// Each call opens its own lock file descriptor, so concurrent callers in one
// process exclude each other the same way separate processes do.
func (r *registry) Lock(ctx context.Context) (*dirLock, error) {
	if err := touchFile(r.lockPath()); err != nil {
		return nil, errors.Wrap(err, "could not create lock file")
	}
	fl, err := filelock.NewLock(r.lockPath(), filelock.RegFile)
	if err != nil {
		return nil, errors.Wrap(err, "could not open lock file")
	}
	r.l.Debug("taking lock on object dir")

	lockErr := make(chan error, 1)
	go func() {
		lockErr <- fl.ExclusiveLock()
	}()
	select {
	case err := <-lockErr:
		if err != nil {
			fl.Close()
			return nil, errors.Wrap(err, "could not lock object dir")
		}
	case <-ctx.Done():
		// the lock call can't be interrupted; release it whenever it lands
		go func() {
			if err := <-lockErr; err == nil {
				_ = fl.Unlock()
			}
			fl.Close()
		}()
		return nil, ctx.Err()
	}
	r.l.Debug("took lock on object dir")
	return &dirLock{fl: fl, l: r.l}, nil
}

func (d *dirLock) Unlock() error {
	d.l.Debug("unlocking object dir")
	err := d.fl.Unlock()
	if closeErr := d.fl.Close(); err == nil {
		err = closeErr
	}
	return err
}

// listen creates the watch socket for id. A leftover socket file with the
// same name is from a dead watcher (handles are never reused while a
// process lives) and is replaced. Must be called with the lock held.
func (r *registry) listen(id watchnotify.ClientID) (*net.UnixListener, error) {
	path := r.sockPath(id)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return nil, errors.Wrapf(err, "could not remove stale socket %s", path)
	}
	ln, err := net.ListenUnix("unix", &net.UnixAddr{Name: path, Net: "unix"})
	if err != nil {
		return nil, errors.Wrap(err, "could not listen on watch socket")
	}
	// removal happens in unregister, under the lock
	ln.SetUnlinkOnClose(false)
	r.l.Info("registered watcher", "client", id)
	return ln, nil
}

// unregister removes the socket of id. Must be called with the lock held.
func (r *registry) unregister(id watchnotify.ClientID) error {
	err := os.Remove(r.sockPath(id))
	if err != nil && !os.IsNotExist(err) {
		return errors.Wrapf(err, "could not remove socket for %v", id)
	}
	r.l.Info("unregistered watcher", "client", id)
	return nil
}

// watchers lists every registered watcher in client id order. Must be
// called with the lock held.
func (r *registry) watchers() ([]watchnotify.ClientID, error) {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return nil, errors.Wrap(err, "could not list object dir")
	}
	ids := []watchnotify.ClientID{}
	for _, ent := range entries {
		if ent.IsDir() {
			continue
		}
		id, ok := parseSockName(ent.Name())
		if !ok {
			continue
		}
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].Less(ids[j]) })
	return ids, nil
}
