// Package sync implements the replay/sync engine of spec §4.8: mirroring a
// source repository into a destination so the destination's revision N is
// tree-identical to the source's revision N for every N already synced.
// Grounded on subversion/svnsync/main.c's get_lock/with_locked state
// machine and its from-url/from-uuid/bookkeeping rev-0-property scheme;
// wired against the repository-access session contract of spec §6.
package sync

import (
	"github.com/rcowham/svncore/delta"
)

// Session is the repository-access contract spec §6 assumes but leaves
// external: the minimal surface the sync engine needs from both the
// source and the destination.
type Session interface {
	// LatestRevnum returns the session's repository's head revision.
	LatestRevnum() (delta.Revision, error)
	// UUID returns the repository's permanent identity.
	UUID() (string, error)
	// ReposRoot returns the canonical root URL of the repository.
	ReposRoot() (string, error)
	// RevPropGet reads one revision property, "" if unset.
	RevPropGet(rev delta.Revision, name string) (string, error)
	// RevPropList returns every revision property on rev.
	RevPropList(rev delta.Revision) (map[string]string, error)
	// RevPropChange sets (value != nil) or deletes (value == nil) one
	// revision property. oldValue, if non-empty, is an atomic
	// compare-and-swap guard; pass "" to skip the check.
	RevPropChange(rev delta.Revision, name string, value *string, oldValue string) error
	// HasCapability reports a named optional server capability, e.g.
	// "partial-replay".
	HasCapability(name string) (bool, error)
	// GetCommitEditor opens a commit editor against the session's
	// repository with the given log message. callback, if non-nil, is
	// invoked with the new revision number once the edit closes.
	GetCommitEditor(logMessage string, callback func(newRev delta.Revision)) (delta.Editor, error)
	// Replay drives rev's full tree-delta (relative to rev-1) into editor,
	// the single-revision form of spec §6's replay-range.
	Replay(rev delta.Revision, editor delta.Editor) error
}
