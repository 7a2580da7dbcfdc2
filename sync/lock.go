package sync

import (
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/rcowham/svncore/delta"
)

// lockMaxAttempts bounds the retry loop (spec §4.8: "bounded attempts,
// 1-second sleeps" — not a wall-clock timeout).
const lockMaxAttempts = 30

var lockSleep = time.Second

// newLockToken generates this runner's opaque lock ownership token,
// "<hostname>:<uuid>" per spec §4.8.
func newLockToken() string {
	host, err := os.Hostname()
	if err != nil {
		host = "unknown"
	}
	return fmt.Sprintf("%s:%s", host, uuid.NewString())
}

// acquireLock runs the cooperative retry loop of spec §4.8 against dest's
// svn:sync-lock revision-0 property: read the lock; proceed if it is
// already ours or empty; otherwise sleep and retry. This is advisory, not
// mutually exclusive against a malicious or buggy party.
func acquireLock(dest Session, token string) error {
	for attempt := 0; attempt < lockMaxAttempts; attempt++ {
		current, err := dest.RevPropGet(0, PropLock)
		if err != nil {
			return err
		}
		if current == "" {
			if err := setRevProp(dest, 0, PropLock, token); err != nil {
				return err
			}
			// Race-tolerant: another runner may have written between our
			// read and write, so re-read before trusting our own write.
			current, err = dest.RevPropGet(0, PropLock)
			if err != nil {
				return err
			}
		}
		if current == token {
			return nil
		}
		time.Sleep(lockSleep)
	}
	return delta.New(delta.KindConflict, "timed out waiting for sync lock after %d attempts", lockMaxAttempts)
}

// releaseLock clears dest's lock iff it is still held by token.
func releaseLock(dest Session, token string) error {
	current, err := dest.RevPropGet(0, PropLock)
	if err != nil {
		return err
	}
	if current != token {
		return nil
	}
	return deleteRevProp(dest, 0, PropLock)
}
