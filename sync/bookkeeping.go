package sync

import (
	"strconv"

	"github.com/rcowham/svncore/delta"
)

// Bookkeeping revision-0 property names, all under the svn:sync- prefix
// (spec §4.8). Stored as ordinary revision properties on the destination
// so no side-channel storage is needed.
const (
	PropFromURL          = "svn:sync-from-url"
	PropFromUUID         = "svn:sync-from-uuid"
	PropLastMergedRev    = "svn:sync-last-merged-rev"
	PropCurrentlyCopying = "svn:sync-currently-copying"
	PropLock             = "svn:sync-lock"
)

// Bookkeeping is the parsed state of the destination's revision-0
// properties.
type Bookkeeping struct {
	FromURL          string
	FromUUID         string
	LastMergedRev    delta.Revision
	CurrentlyCopying delta.Revision // delta.InvalidRevision if absent
	Lock             string
}

// readBookkeeping loads and parses dest's revision-0 properties.
func readBookkeeping(dest Session) (Bookkeeping, error) {
	props, err := dest.RevPropList(0)
	if err != nil {
		return Bookkeeping{}, err
	}
	bk := Bookkeeping{
		FromURL:          props[PropFromURL],
		FromUUID:         props[PropFromUUID],
		LastMergedRev:    delta.InvalidRevision,
		CurrentlyCopying: delta.InvalidRevision,
		Lock:             props[PropLock],
	}
	if v, ok := props[PropLastMergedRev]; ok {
		bk.LastMergedRev = parseRevOrZero(v)
	} else {
		bk.LastMergedRev = 0
	}
	if v, ok := props[PropCurrentlyCopying]; ok && v != "" {
		bk.CurrentlyCopying = parseRevOrZero(v)
	}
	return bk, nil
}

func parseRevOrZero(s string) delta.Revision {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return delta.Revision(n)
}

func revString(rev delta.Revision) string {
	return strconv.FormatInt(int64(rev), 10)
}

// setRevProp is a small helper around Session.RevPropChange for the
// string-pointer convention value-set/delete calls expect.
func setRevProp(s Session, rev delta.Revision, name, value string) error {
	v := value
	return s.RevPropChange(rev, name, &v, "")
}

func deleteRevProp(s Session, rev delta.Revision, name string) error {
	return s.RevPropChange(rev, name, nil, "")
}
