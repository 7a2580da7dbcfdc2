package repos

import (
	"strings"

	"github.com/rcowham/svncore/delta"
	"github.com/rcowham/svncore/svndiff"
)

// dirHandle and fileHandle are the concrete DirHandle/FileHandle types Txn
// hands out. path is root-relative, "/"-joined, "" for the transaction
// root itself.
type dirHandle struct {
	path string
	n    *node
}

type fileHandle struct {
	path string
	n    *node
}

// Txn is a delta.Editor that accumulates one commit's edits into a
// copy-on-write clone of a base revision's tree, grounded on
// libsvn_ra_local/commit_editor.c's open/add/out-of-date state machine.
// Wrap it with delta.NewTrackedEditor for protocol-invariant enforcement;
// Txn itself only implements the repository-side semantics.
type Txn struct {
	repo    *Repository
	baseRev delta.Revision
	root    *node // clone of repo's tree at baseRev, mutated in place as edits arrive
	author  string
	logMsg  string
}

// NewTxn opens a transaction against repo's tree at baseRev.
func NewTxn(repo *Repository, baseRev delta.Revision, author, logMsg string) (*Txn, error) {
	baseTree, err := repo.RevisionRoot(baseRev)
	if err != nil {
		return nil, err
	}
	return &Txn{repo: repo, baseRev: baseRev, root: baseTree.clone(), author: author, logMsg: logMsg}, nil
}

func (t *Txn) SetTargetRevision(rev delta.Revision) error { return nil }

func (t *Txn) OpenRoot(baseRev delta.Revision) (delta.DirHandle, error) {
	return &dirHandle{path: "", n: t.root}, nil
}

func (t *Txn) checkOutOfDate(path string, claimedBase delta.Revision) error {
	if claimedBase == delta.InvalidRevision {
		return nil // caller made no claim about this node's freshness
	}
	liveKind, liveCreated, err := t.repo.Lookup(delta.HeadRevision, path)
	if err != nil {
		return err
	}
	if liveKind == delta.NodeNone {
		return nil
	}
	if liveCreated > claimedBase {
		return delta.New(delta.KindOutOfDate,
			"%s was modified in r%d, after this edit's claimed base r%d", path, liveCreated, claimedBase)
	}
	return nil
}

func joinPath(parent, name string) string {
	if parent == "" {
		return name
	}
	return parent + "/" + name
}

func (t *Txn) DeleteEntry(parent delta.DirHandle, name string, baseRev delta.Revision) error {
	ph := parent.(*dirHandle)
	full := joinPath(ph.path, name)
	if err := t.checkOutOfDate(full, baseRev); err != nil {
		return err
	}
	if _, ok := ph.n.children[name]; !ok {
		return delta.New(delta.KindNotFound, "no such entry %s", full)
	}
	delete(ph.n.children, name)
	return nil
}

// rejectCrossRepoCopy enforces spec §4.7's stricter rule: any copyfrom
// naming another repository is rejected outright, even if that
// repository happens to share this one's UUID. Cross-repo sources are
// recognized by the "<uuid>:<path>" wire convention this editor uses for
// copyfrom-path when the source isn't this transaction's own repository;
// a bare path (no colon-delimited UUID prefix) is always same-repo.
func (t *Txn) rejectCrossRepoCopy(copyFromPath string) error {
	if copyFromPath == "" {
		return nil
	}
	if idx := strings.Index(copyFromPath, ":"); idx > 0 && !strings.Contains(copyFromPath[:idx], "/") {
		return delta.New(delta.KindUnsupportedFeature, "cross-repository copyfrom is not supported: %s", copyFromPath)
	}
	return nil
}

func (t *Txn) AddDirectory(parent delta.DirHandle, name, copyFromPath string, copyFromRev delta.Revision) (delta.DirHandle, error) {
	ph := parent.(*dirHandle)
	if err := t.rejectCrossRepoCopy(copyFromPath); err != nil {
		return nil, err
	}
	if _, exists := ph.n.children[name]; exists {
		return nil, delta.New(delta.KindConflict, "entry %s already exists", joinPath(ph.path, name))
	}
	var n *node
	if copyFromPath != "" {
		src, err := t.repo.RevisionRoot(copyFromRev)
		if err != nil {
			return nil, err
		}
		srcNode := src.lookup(copyFromPath)
		if srcNode == nil || srcNode.kind != delta.NodeDir {
			return nil, delta.New(delta.KindNotFound, "copyfrom source %s@%d is not a directory", copyFromPath, copyFromRev)
		}
		n = srcNode.clone()
	} else {
		n = newDirNode(t.baseRev + 1)
	}
	ph.n.children[name] = n
	return &dirHandle{path: joinPath(ph.path, name), n: n}, nil
}

func (t *Txn) OpenDirectory(parent delta.DirHandle, name string, baseRev delta.Revision) (delta.DirHandle, error) {
	ph := parent.(*dirHandle)
	full := joinPath(ph.path, name)
	if err := t.checkOutOfDate(full, baseRev); err != nil {
		return nil, err
	}
	existing, ok := ph.n.children[name]
	if !ok || existing.kind != delta.NodeDir {
		return nil, delta.New(delta.KindNotFound, "no such directory %s", full)
	}
	clone := existing.clone()
	clone.createdRev = t.baseRev + 1
	ph.n.children[name] = clone
	return &dirHandle{path: full, n: clone}, nil
}

func (t *Txn) ChangeDirProp(dir delta.DirHandle, name string, value delta.PropValue) error {
	dh := dir.(*dirHandle)
	if value == nil {
		delete(dh.n.properties, name)
		return nil
	}
	dh.n.properties[name] = string(value)
	return nil
}

func (t *Txn) AbsentDirectory(parent delta.DirHandle, name string) error { return nil }

func (t *Txn) CloseDirectory(dir delta.DirHandle) error { return nil }

func (t *Txn) AddFile(parent delta.DirHandle, name, copyFromPath string, copyFromRev delta.Revision) (delta.FileHandle, error) {
	ph := parent.(*dirHandle)
	if err := t.rejectCrossRepoCopy(copyFromPath); err != nil {
		return nil, err
	}
	if _, exists := ph.n.children[name]; exists {
		return nil, delta.New(delta.KindConflict, "entry %s already exists", joinPath(ph.path, name))
	}
	var n *node
	if copyFromPath != "" {
		src, err := t.repo.RevisionRoot(copyFromRev)
		if err != nil {
			return nil, err
		}
		srcNode := src.lookup(copyFromPath)
		if srcNode == nil || srcNode.kind != delta.NodeFile {
			return nil, delta.New(delta.KindNotFound, "copyfrom source %s@%d is not a file", copyFromPath, copyFromRev)
		}
		n = srcNode.clone()
	} else {
		n = newFileNode(t.baseRev + 1)
	}
	ph.n.children[name] = n
	return &fileHandle{path: joinPath(ph.path, name), n: n}, nil
}

func (t *Txn) OpenFile(parent delta.DirHandle, name string, baseRev delta.Revision) (delta.FileHandle, error) {
	ph := parent.(*dirHandle)
	full := joinPath(ph.path, name)
	if err := t.checkOutOfDate(full, baseRev); err != nil {
		return nil, err
	}
	existing, ok := ph.n.children[name]
	if !ok || existing.kind != delta.NodeFile {
		return nil, delta.New(delta.KindNotFound, "no such file %s", full)
	}
	clone := existing.clone()
	clone.createdRev = t.baseRev + 1
	ph.n.children[name] = clone
	return &fileHandle{path: full, n: clone}, nil
}

func (t *Txn) ChangeFileProp(file delta.FileHandle, name string, value delta.PropValue) error {
	fh := file.(*fileHandle)
	if value == nil {
		delete(fh.n.properties, name)
		return nil
	}
	fh.n.properties[name] = string(value)
	return nil
}

func (t *Txn) AbsentFile(parent delta.DirHandle, name string) error { return nil }

// txnSink applies incoming windows against the file's current content and
// writes the result back into the node when the stream terminates.
type txnSink struct {
	n      *node
	source []byte
	buf    []byte
}

func (s *txnSink) PushWindow(w interface{}) error {
	win, ok := w.(*svndiff.Window)
	if w == nil || (ok && win == nil) {
		s.n.content = s.buf
		s.n.checksum = svndiff.Checksum(s.buf)
		return nil
	}
	if !ok {
		return delta.New(delta.KindProtocolViolation, "repos.Txn received non-svndiff window")
	}
	chunk, err := win.Apply(s.source)
	if err != nil {
		return err
	}
	s.buf = append(s.buf, chunk...)
	return nil
}

func (t *Txn) ApplyTextDelta(file delta.FileHandle, baseChecksum string) (delta.WindowSink, error) {
	fh := file.(*fileHandle)
	if err := svndiff.VerifyChecksum(fh.n.content, baseChecksum); err != nil {
		return nil, err
	}
	return &txnSink{n: fh.n, source: fh.n.content}, nil
}

func (t *Txn) CloseFile(file delta.FileHandle, targetChecksum string) error {
	fh := file.(*fileHandle)
	return svndiff.VerifyChecksum(fh.n.content, targetChecksum)
}

func (t *Txn) CloseEdit() error { return nil }

func (t *Txn) AbortEdit() error { return nil }

// Commit finalizes the transaction's accumulated tree as a new revision,
// re-checking that the repository head hasn't advanced since NewTxn (the
// same out-of-date family of check, applied once more at the true
// linearization point). The revision's createdRev markers on newly
// added/modified nodes are NOT retroactively corrected to the final
// assigned number if it differs from baseRev+1 — by construction it never
// does, since this final check rejects exactly the case where it would.
func (t *Txn) Commit() (delta.Revision, error) {
	if t.repo.HeadRevision() != t.baseRev {
		return delta.InvalidRevision, delta.New(delta.KindTxnOutOfDate,
			"repository head advanced to r%d since transaction was opened against r%d", t.repo.HeadRevision(), t.baseRev)
	}
	props := map[string]string{"svn:author": t.author, "svn:log": t.logMsg}
	return t.repo.commit(t.root, props), nil
}

var _ delta.Editor = (*Txn)(nil)
