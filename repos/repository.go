package repos

import (
	"sync"

	"github.com/google/uuid"

	"github.com/rcowham/svncore/delta"
)

// revision is one committed, immutable snapshot.
type revision struct {
	num      delta.Revision
	root     *node
	revProps map[string]string
}

// Repository holds the committed revision history. Reads (NewTxn's
// base, lookups for out-of-date checks) take the read lock; a commit takes
// the write lock only for the brief final swap, mirroring real svn's
// "build the transaction first, lock only to finalize" discipline.
type Repository struct {
	UUID string

	mu        sync.RWMutex
	revisions []*revision
}

// New creates a repository with an empty revision 0, assigning it a fresh
// UUID (spec §4.7 — every repository has a permanent identity used to
// detect cross-repository copies and mismatched working copies).
func New() *Repository {
	return &Repository{
		UUID: uuid.NewString(),
		revisions: []*revision{
			{num: 0, root: newDirNode(0), revProps: map[string]string{"svn:date": ""}},
		},
	}
}

// HeadRevision returns the number of the latest committed revision.
func (r *Repository) HeadRevision() delta.Revision {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.revisions[len(r.revisions)-1].num
}

// revisionAtLocked resolves rev to its revision record. Callers must
// already hold r.mu (read or write) — it never locks itself, so it is
// safe to call from methods that need to do further locked work
// afterwards without the recursive-RLock hazard a self-locking helper
// would create.
func (r *Repository) revisionAtLocked(rev delta.Revision) (*revision, error) {
	if rev == delta.HeadRevision {
		return r.revisions[len(r.revisions)-1], nil
	}
	if rev < 0 || int(rev) >= len(r.revisions) {
		return nil, delta.New(delta.KindNotFound, "no such revision %d", rev)
	}
	return r.revisions[rev], nil
}

func (r *Repository) revisionAt(rev delta.Revision) (*revision, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.revisionAtLocked(rev)
}

// RevisionRoot returns the committed tree root at rev, for read-side tree
// walks (spec §4.7, grounded on libsvn_repos/checkout.c).
func (r *Repository) RevisionRoot(rev delta.Revision) (*node, error) {
	v, err := r.revisionAt(rev)
	if err != nil {
		return nil, err
	}
	return v.root, nil
}

// Lookup resolves path against rev's committed tree.
func (r *Repository) Lookup(rev delta.Revision, path string) (kind delta.NodeKind, createdRev delta.Revision, err error) {
	root, err := r.RevisionRoot(rev)
	if err != nil {
		return delta.NodeUnknown, delta.InvalidRevision, err
	}
	n := root.lookup(path)
	if n == nil {
		return delta.NodeNone, delta.InvalidRevision, nil
	}
	return n.kind, n.createdRev, nil
}

// commit appends newRoot as the next revision and returns its number. Only
// called by Txn.Commit once an edit session has finished successfully.
func (r *Repository) commit(newRoot *node, revProps map[string]string) delta.Revision {
	r.mu.Lock()
	defer r.mu.Unlock()
	next := delta.Revision(len(r.revisions))
	r.revisions = append(r.revisions, &revision{num: next, root: newRoot, revProps: revProps})
	return next
}

// RevPropGet reads one revision property, "" if unset. Any revision,
// including 0, may be read — revision 0 is where sync bookkeeping lives
// (spec §4.8).
func (r *Repository) RevPropGet(rev delta.Revision, name string) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, err := r.revisionAtLocked(rev)
	if err != nil {
		return "", err
	}
	return v.revProps[name], nil
}

// RevPropList returns a copy of every revision property on rev.
func (r *Repository) RevPropList(rev delta.Revision) (map[string]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, err := r.revisionAtLocked(rev)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(v.revProps))
	for k, val := range v.revProps {
		out[k] = val
	}
	return out, nil
}

// RevPropChange sets (value non-nil) or deletes (value nil) one revision
// property on rev, including revision 0 — unlike node content, revision
// properties are always mutable in place (they are not part of the
// versioned tree).
func (r *Repository) RevPropChange(rev delta.Revision, name string, value *string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, err := r.revisionAtLocked(rev)
	if err != nil {
		return err
	}
	if value == nil {
		delete(v.revProps, name)
		return nil
	}
	v.revProps[name] = *value
	return nil
}
