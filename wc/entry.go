// Package wc implements the working-copy store of spec §4.5: the
// working copy's metadata database, pristine-text cache, administrative
// lock and crash-recovery log that sit between a checked-out tree and the
// delta.Editor protocol. Grounded on the teacher's node.go (child-entry
// tree) and journal.go (sequential append-only record log), repurposed
// from git-import bookkeeping to svn administrative-area bookkeeping.
package wc

import "github.com/rcowham/svncore/delta"

// Schedule records the pending commit action recorded against an entry,
// independent of its on-disk content (spec §4.5: add/delete/replace must
// survive a crash between scheduling and commit).
type Schedule int

const (
	ScheduleNormal Schedule = iota
	ScheduleAdd
	ScheduleDelete
	ScheduleReplace
)

func (s Schedule) String() string {
	switch s {
	case ScheduleAdd:
		return "add"
	case ScheduleDelete:
		return "delete"
	case ScheduleReplace:
		return "replace"
	default:
		return "normal"
	}
}

// Entry is one versioned node's working-copy metadata row.
type Entry struct {
	Path       string
	Kind       delta.NodeKind
	Revision   delta.Revision
	Checksum   string // pristine-text checksum, empty for directories
	Schedule   Schedule
	Depth      int // ambient depth at this entry, spec §4.2/combinator
	CopyFrom   string
	CopyFromRev delta.Revision
	Properties map[string]string
}

// IsAdded reports whether this entry has local add/replace scheduling
// with no corresponding base revision yet committed.
func (e *Entry) IsAdded() bool {
	return e.Schedule == ScheduleAdd || e.Schedule == ScheduleReplace
}
