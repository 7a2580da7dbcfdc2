package main

import (
	"path"
	"regexp"

	"github.com/rcowham/svncore/delta"
)

// node tracks one path's lazy materialization state against the
// destination editor. AddDirectory/OpenDirectory against inner is
// deferred until the first matching descendant is found, so a directory
// subtree with nothing matching the filter never appears at all in the
// destination, mirroring gitfilter's directory-level filtering but driven
// by the tree-diff editor protocol instead of a flat fast-import action
// list.
type node struct {
	parent       *node
	name         string
	path         string
	isAdd        bool
	copyFromPath string
	copyFromRev  delta.Revision
	baseRev      delta.Revision
	forward      delta.DirHandle
	open         bool
	// pendingProps holds property changes recorded before this directory
	// was known to be forwarded (its own path didn't match but a
	// descendant later did), replayed against inner once ensureOpen
	// materializes the handle.
	pendingProps []pendingProp
}

type pendingProp struct {
	name  string
	value delta.PropValue
}

// pathFilterEditor forwards only the entries whose path matches keep, and
// their ancestor directories, lazily materialized. known records every
// destination path actually forwarded, so a delete-entry for a directory
// that doesn't itself match keep but contains previously-forwarded
// children (hasDirPrefix in gitfilter's terms) is still forwarded.
type pathFilterEditor struct {
	inner delta.Editor
	keep  *regexp.Regexp
	stats *FilterStats
	known map[string]bool
}

// FilterStats counts this run's filtering decisions for the end-of-run
// report.
type FilterStats struct {
	FilesKept     int
	FilesDropped  int
	DirsForwarded int
}

func newPathFilterEditor(inner delta.Editor, keep *regexp.Regexp, stats *FilterStats) *pathFilterEditor {
	return &pathFilterEditor{inner: inner, keep: keep, stats: stats, known: make(map[string]bool)}
}

func (f *pathFilterEditor) matches(p string) bool {
	return f.keep == nil || f.keep.MatchString(p)
}

func (f *pathFilterEditor) matchesDirPrefix(p string) bool {
	for known := range f.known {
		if len(known) > len(p) && known[:len(p)] == p && known[len(p)] == '/' {
			return true
		}
	}
	return false
}

func (f *pathFilterEditor) ensureOpen(n *node) (delta.DirHandle, error) {
	if n.open {
		return n.forward, nil
	}
	var parentH delta.DirHandle
	var err error
	if n.parent == nil {
		parentH, err = f.inner.OpenRoot(n.baseRev)
	} else {
		parentH, err = f.ensureOpen(n.parent)
	}
	if err != nil {
		return nil, err
	}
	if n.parent == nil {
		n.forward = parentH
		n.open = true
		for _, pp := range n.pendingProps {
			if err := f.inner.ChangeDirProp(n.forward, pp.name, pp.value); err != nil {
				return nil, err
			}
		}
		n.pendingProps = nil
		return n.forward, nil
	}
	var h delta.DirHandle
	if n.isAdd {
		h, err = f.inner.AddDirectory(parentH, n.name, n.copyFromPath, n.copyFromRev)
	} else {
		h, err = f.inner.OpenDirectory(parentH, n.name, n.baseRev)
	}
	if err != nil {
		return nil, err
	}
	f.known[n.path] = true
	f.stats.DirsForwarded++
	n.forward = h
	n.open = true
	for _, pp := range n.pendingProps {
		if err := f.inner.ChangeDirProp(h, pp.name, pp.value); err != nil {
			return nil, err
		}
	}
	n.pendingProps = nil
	return h, nil
}

func (f *pathFilterEditor) dirNode(h delta.DirHandle) *node { return h.(*node) }

func (f *pathFilterEditor) SetTargetRevision(rev delta.Revision) error {
	return f.inner.SetTargetRevision(rev)
}

func (f *pathFilterEditor) OpenRoot(baseRev delta.Revision) (delta.DirHandle, error) {
	return &node{path: "", baseRev: baseRev}, nil
}

func (f *pathFilterEditor) DeleteEntry(parent delta.DirHandle, name string, baseRev delta.Revision) error {
	p := f.dirNode(parent)
	full := path.Join(p.path, name)
	if !f.matches(full) && !f.matchesDirPrefix(full) {
		f.stats.FilesDropped++
		return nil
	}
	parentH, err := f.ensureOpen(p)
	if err != nil {
		return err
	}
	delete(f.known, full)
	return f.inner.DeleteEntry(parentH, name, baseRev)
}

func (f *pathFilterEditor) childNode(parent *node, name, copyFromPath string, copyFromRev, baseRev delta.Revision, isAdd bool) *node {
	return &node{
		parent:       parent,
		name:         name,
		path:         path.Join(parent.path, name),
		isAdd:        isAdd,
		copyFromPath: copyFromPath,
		copyFromRev:  copyFromRev,
		baseRev:      baseRev,
	}
}

func (f *pathFilterEditor) AddDirectory(parent delta.DirHandle, name, copyFromPath string, copyFromRev delta.Revision) (delta.DirHandle, error) {
	p := f.dirNode(parent)
	return f.childNode(p, name, copyFromPath, copyFromRev, delta.InvalidRevision, true), nil
}

func (f *pathFilterEditor) OpenDirectory(parent delta.DirHandle, name string, baseRev delta.Revision) (delta.DirHandle, error) {
	p := f.dirNode(parent)
	return f.childNode(p, name, "", delta.InvalidRevision, baseRev, false), nil
}

func (f *pathFilterEditor) ChangeDirProp(dir delta.DirHandle, name string, value delta.PropValue) error {
	n := f.dirNode(dir)
	if n.open {
		return f.inner.ChangeDirProp(n.forward, name, value)
	}
	if f.matches(n.path) {
		h, err := f.ensureOpen(n)
		if err != nil {
			return err
		}
		return f.inner.ChangeDirProp(h, name, value)
	}
	// n.path itself doesn't match; a descendant still might, in which case
	// ensureOpen will replay this once the directory is actually forwarded.
	n.pendingProps = append(n.pendingProps, pendingProp{name: name, value: value})
	return nil
}

func (f *pathFilterEditor) AbsentDirectory(parent delta.DirHandle, name string) error {
	p := f.dirNode(parent)
	full := path.Join(p.path, name)
	if !f.matches(full) {
		return nil
	}
	h, err := f.ensureOpen(p)
	if err != nil {
		return err
	}
	return f.inner.AbsentDirectory(h, name)
}

func (f *pathFilterEditor) CloseDirectory(dir delta.DirHandle) error {
	n := f.dirNode(dir)
	if !n.open {
		return nil
	}
	return f.inner.CloseDirectory(n.forward)
}

func (f *pathFilterEditor) AddFile(parent delta.DirHandle, name, copyFromPath string, copyFromRev delta.Revision) (delta.FileHandle, error) {
	p := f.dirNode(parent)
	full := path.Join(p.path, name)
	if !f.matches(full) {
		f.stats.FilesDropped++
		return &node{path: full}, nil
	}
	parentH, err := f.ensureOpen(p)
	if err != nil {
		return nil, err
	}
	h, err := f.inner.AddFile(parentH, name, copyFromPath, copyFromRev)
	if err != nil {
		return nil, err
	}
	f.known[full] = true
	f.stats.FilesKept++
	return &node{path: full, forward: h, open: true}, nil
}

func (f *pathFilterEditor) OpenFile(parent delta.DirHandle, name string, baseRev delta.Revision) (delta.FileHandle, error) {
	p := f.dirNode(parent)
	full := path.Join(p.path, name)
	if !f.matches(full) {
		f.stats.FilesDropped++
		return &node{path: full}, nil
	}
	parentH, err := f.ensureOpen(p)
	if err != nil {
		return nil, err
	}
	h, err := f.inner.OpenFile(parentH, name, baseRev)
	if err != nil {
		return nil, err
	}
	f.known[full] = true
	f.stats.FilesKept++
	return &node{path: full, forward: h, open: true}, nil
}

func (f *pathFilterEditor) fileNode(h delta.FileHandle) *node { return h.(*node) }

func (f *pathFilterEditor) ChangeFileProp(file delta.FileHandle, name string, value delta.PropValue) error {
	n := f.fileNode(file)
	if !n.open {
		return nil
	}
	return f.inner.ChangeFileProp(n.forward, name, value)
}

func (f *pathFilterEditor) AbsentFile(parent delta.DirHandle, name string) error {
	p := f.dirNode(parent)
	full := path.Join(p.path, name)
	if !f.matches(full) {
		return nil
	}
	h, err := f.ensureOpen(p)
	if err != nil {
		return err
	}
	return f.inner.AbsentFile(h, name)
}

type inertSink struct{}

func (inertSink) PushWindow(w interface{}) error { return nil }

func (f *pathFilterEditor) ApplyTextDelta(file delta.FileHandle, baseChecksum string) (delta.WindowSink, error) {
	n := f.fileNode(file)
	if !n.open {
		return inertSink{}, nil
	}
	return f.inner.ApplyTextDelta(n.forward, baseChecksum)
}

func (f *pathFilterEditor) CloseFile(file delta.FileHandle, targetChecksum string) error {
	n := f.fileNode(file)
	if !n.open {
		return nil
	}
	return f.inner.CloseFile(n.forward, targetChecksum)
}

func (f *pathFilterEditor) CloseEdit() error { return f.inner.CloseEdit() }
func (f *pathFilterEditor) AbortEdit() error { return f.inner.AbortEdit() }

var _ delta.Editor = (*pathFilterEditor)(nil)
