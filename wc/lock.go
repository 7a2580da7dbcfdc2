package wc

import (
	"context"
	"time"

	"github.com/gofrs/flock"

	"github.com/rcowham/svncore/delta"
)

// AdminLock is the working copy's administrative lock (spec §4.5): one
// process may hold it at a time, preventing a concurrent commit/update
// from interleaving with an in-progress one on the same working copy.
// Backed by an advisory OS file lock via github.com/gofrs/flock rather
// than a lock row in the sqlite database, so a crashed process's lock is
// released by the OS even if it never got a chance to clean up its row.
type AdminLock struct {
	fl *flock.Flock
}

// NewAdminLock returns a lock handle for the ".svn/lock" file at path. It
// does not acquire the lock.
func NewAdminLock(path string) *AdminLock {
	return &AdminLock{fl: flock.New(path)}
}

// Acquire blocks, retrying, until the lock is held or ctx is done.
func (l *AdminLock) Acquire(ctx context.Context) error {
	ok, err := l.fl.TryLockContext(ctx, 50*time.Millisecond)
	if err != nil {
		return delta.Wrap(delta.KindUnsupportedFeature, err, "acquiring working copy lock")
	}
	if !ok {
		return delta.New(delta.KindUnsupportedFeature, "working copy is locked by another process")
	}
	return nil
}

// Release gives up the lock.
func (l *AdminLock) Release() error {
	if err := l.fl.Unlock(); err != nil {
		return delta.Wrap(delta.KindUnsupportedFeature, err, "releasing working copy lock")
	}
	return nil
}

// Locked reports whether this handle currently holds the lock.
func (l *AdminLock) Locked() bool { return l.fl.Locked() }
