package sync

import (
	"github.com/rcowham/svncore/delta"
)

// Engine drives the init/sync/copy-revprops/info subcommands of spec
// §4.8 against a source and destination Session pair.
type Engine struct {
	Source Session
	Dest   Session

	// Rewrite translates a copyfrom path from source to destination URL
	// space. Defaults to identity when nil.
	Rewrite PathRewriter

	// OnRevision, if set, is called after each source revision is fully
	// replicated (content + revprops) and last-merged-rev advanced.
	OnRevision func(rev delta.Revision, stats FilterStats)
}

// Init performs spec §4.8's init subcommand: the destination head must be
// 0 and from-url must be unset; writes from-url/from-uuid/
// last-merged-rev=0 and copies revision-0 properties from source
// (filtering the svn:sync- namespace, which belongs to the destination's
// own bookkeeping, never the source's).
func (e *Engine) Init() error {
	head, err := e.Dest.LatestRevnum()
	if err != nil {
		return err
	}
	if head != 0 {
		return delta.New(delta.KindAlreadyInitialized, "destination is not empty (head revision %d)", head)
	}
	existing, err := e.Dest.RevPropGet(0, PropFromURL)
	if err != nil {
		return err
	}
	if existing != "" {
		return delta.New(delta.KindAlreadyInitialized, "destination is already initialized for sync from %s", existing)
	}

	sourceURL, err := e.Source.ReposRoot()
	if err != nil {
		return err
	}
	sourceUUID, err := e.Source.UUID()
	if err != nil {
		return err
	}

	if err := e.checkPartialReplayCapability(); err != nil {
		return err
	}

	sourceRev0Props, err := e.Source.RevPropList(0)
	if err != nil {
		return err
	}
	for name, value := range sourceRev0Props {
		if isSyncBookkeepingProp(name) {
			continue
		}
		if err := setRevProp(e.Dest, 0, name, value); err != nil {
			return err
		}
	}

	if err := setRevProp(e.Dest, 0, PropFromURL, sourceURL); err != nil {
		return err
	}
	if err := setRevProp(e.Dest, 0, PropFromUUID, sourceUUID); err != nil {
		return err
	}
	return setRevProp(e.Dest, 0, PropLastMergedRev, revString(0))
}

func isSyncBookkeepingProp(name string) bool {
	switch name {
	case PropFromURL, PropFromUUID, PropLastMergedRev, PropCurrentlyCopying, PropLock:
		return true
	default:
		return false
	}
}

// checkPartialReplayCapability implements spec §4.8's partial-replay
// capability check: a source URL that is a subtree of its repository
// root must support partial replay, checked up front so a run fails fast
// instead of partway through copying revisions. A session only reports
// "scoped-to-subtree" when it was opened against less than its full
// repository root; a session fronting the whole root has nothing to
// check here.
func (e *Engine) checkPartialReplayCapability() error {
	scoped, err := e.Source.HasCapability("scoped-to-subtree")
	if err != nil {
		return err
	}
	if !scoped {
		return nil
	}
	ok, err := e.Source.HasCapability("partial-replay")
	if err != nil {
		return err
	}
	if !ok {
		return delta.New(delta.KindPartialReplayUnsupported, "source is a subtree of its repository and does not support partial replay")
	}
	return nil
}

// checkRestartInvariant implements spec §4.8's sanity check: if
// currently-copying is absent, destination-head must equal
// last-merged-rev; otherwise currently-copying must be last-merged-rev or
// last-merged-rev+1, and destination-head must be last-merged-rev or
// currently-copying. Any other state means something wrote to the
// destination outside this engine.
func (e *Engine) checkRestartInvariant(bk Bookkeeping) error {
	head, err := e.Dest.LatestRevnum()
	if err != nil {
		return err
	}
	if bk.CurrentlyCopying == delta.InvalidRevision {
		if head != bk.LastMergedRev {
			return delta.New(delta.KindConflict,
				"destination head r%d does not match last-merged-rev r%d with no copy in progress", head, bk.LastMergedRev)
		}
		return nil
	}
	if bk.CurrentlyCopying != bk.LastMergedRev && bk.CurrentlyCopying != bk.LastMergedRev+1 {
		return delta.New(delta.KindConflict,
			"currently-copying r%d is neither last-merged-rev r%d nor last-merged-rev+1", bk.CurrentlyCopying, bk.LastMergedRev)
	}
	if head != bk.LastMergedRev && head != bk.CurrentlyCopying {
		return delta.New(delta.KindConflict,
			"destination head r%d is neither last-merged-rev r%d nor currently-copying r%d", head, bk.LastMergedRev, bk.CurrentlyCopying)
	}
	return nil
}

// Sync performs spec §4.8's sync subcommand: acquires the lock, resumes
// from bookkeeping, and replicates every unsynced source revision in
// order.
func (e *Engine) Sync() error {
	token := newLockToken()
	if err := acquireLock(e.Dest, token); err != nil {
		return err
	}
	defer releaseLock(e.Dest, token)

	bk, err := readBookkeeping(e.Dest)
	if err != nil {
		return err
	}
	if err := e.checkRestartInvariant(bk); err != nil {
		return err
	}

	sourceHead, err := e.Source.LatestRevnum()
	if err != nil {
		return err
	}

	// The resume point is last-merged-rev: an interrupted revision that
	// never reached the destination is replayed again from scratch. If the
	// destination already committed currently-copying (the run died before
	// its bookkeeping advanced), that revision is not replayed: its
	// revprops are copied and the bookkeeping is advanced and cleared.
	resumeFrom := bk.LastMergedRev
	if destHead, err := e.Dest.LatestRevnum(); err != nil {
		return err
	} else if bk.CurrentlyCopying == bk.LastMergedRev+1 && destHead == bk.CurrentlyCopying {
		if err := e.copyRevisionProps(destHead); err != nil {
			return err
		}
		if err := setRevProp(e.Dest, 0, PropLastMergedRev, revString(destHead)); err != nil {
			return err
		}
		if err := deleteRevProp(e.Dest, 0, PropCurrentlyCopying); err != nil {
			return err
		}
		resumeFrom = destHead
	}

	for rev := resumeFrom + 1; rev <= sourceHead; rev++ {
		if err := e.syncOneRevision(rev); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) syncOneRevision(rev delta.Revision) error {
	if err := setRevProp(e.Dest, 0, PropCurrentlyCopying, revString(rev)); err != nil {
		return err
	}

	stats := &FilterStats{}
	logMsg, err := e.Source.RevPropGet(rev, "svn:log")
	if err != nil {
		return err
	}
	if normalized, changed := normalizeEOL(logMsg); changed {
		logMsg = normalized
	}
	var committedRev delta.Revision
	editor, err := e.Dest.GetCommitEditor(logMsg, func(newRev delta.Revision) { committedRev = newRev })
	if err != nil {
		return err
	}
	filtered := SyncFilter(editor, e.Rewrite, stats)

	if err := e.Source.Replay(rev, filtered); err != nil {
		_ = filtered.AbortEdit()
		return err
	}

	if err := filtered.CloseEdit(); err != nil {
		_ = filtered.AbortEdit()
		return err
	}
	if committedRev != rev {
		return delta.New(delta.KindProtocolViolation, "replay of source r%d produced destination r%d", rev, committedRev)
	}

	if err := e.copyRevisionProps(rev); err != nil {
		return err
	}

	// Advance last-merged-rev before clearing currently-copying: a crash
	// between these two writes is distinguishable from every other state
	// by checkRestartInvariant, which is the entire point of doing them
	// in this order (spec §4.8).
	if err := setRevProp(e.Dest, 0, PropLastMergedRev, revString(rev)); err != nil {
		return err
	}
	if err := deleteRevProp(e.Dest, 0, PropCurrentlyCopying); err != nil {
		return err
	}

	if e.OnRevision != nil {
		e.OnRevision(rev, *stats)
	}
	return nil
}

// copyRevisionProps copies source's revision properties for rev to dest,
// filtering svn:sync- bookkeeping and svn:log (carried by the commit
// editor's log message instead), and deleting destination-only keys not
// present in source.
func (e *Engine) copyRevisionProps(rev delta.Revision) error {
	srcProps, err := e.Source.RevPropList(rev)
	if err != nil {
		return err
	}
	destProps, err := e.Dest.RevPropList(rev)
	if err != nil {
		return err
	}
	for name, value := range srcProps {
		if isSyncBookkeepingProp(name) || name == "svn:log" {
			continue
		}
		v := value
		if normalized, changed := normalizeEOL(value); changed {
			v = normalized
		}
		if err := setRevProp(e.Dest, rev, name, v); err != nil {
			return err
		}
	}
	for name := range destProps {
		if _, ok := srcProps[name]; !ok && !isSyncBookkeepingProp(name) && name != "svn:log" {
			if err := deleteRevProp(e.Dest, rev, name); err != nil {
				return err
			}
		}
	}
	return nil
}

// CopyRevprops performs spec §4.8's copy-revprops subcommand: re-copies
// revision properties for every revision in [lo, hi] (default: every
// synced revision).
func (e *Engine) CopyRevprops(lo, hi delta.Revision) error {
	bk, err := readBookkeeping(e.Dest)
	if err != nil {
		return err
	}
	if lo == delta.InvalidRevision {
		lo = 1
	}
	if hi == delta.InvalidRevision {
		hi = bk.LastMergedRev
	}
	for rev := lo; rev <= hi; rev++ {
		if err := e.copyRevisionProps(rev); err != nil {
			return err
		}
	}
	return nil
}

// Info performs spec §4.8's info subcommand: returns the destination's
// parsed bookkeeping state.
func (e *Engine) Info() (Bookkeeping, error) {
	return readBookkeeping(e.Dest)
}
