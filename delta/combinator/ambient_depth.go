package combinator

import (
	"path"

	"github.com/rcowham/svncore/delta"
)

// Depth mirrors spec §3's per-directory depth lattice.
type Depth int

const (
	DepthUnknown Depth = iota
	DepthExclude
	DepthEmpty
	DepthFiles
	DepthImmediates
	DepthInfinity
)

// DepthLookup answers "what ambient depth does the working copy record for
// this path", consulted once per node as the filter descends. Returning
// DepthUnknown for a path not yet tracked is expected and treated as
// "follow the parent's derived depth" per spec §4.2.
type DepthLookup func(path string) Depth

type inertSink struct{}

func (inertSink) PushWindow(w interface{}) error { return nil }

// ambientNode carries the path and effective depth alongside a real,
// forwarded handle, or nil when absorbed.
type ambientNode struct {
	forward delta.DirHandle
	path    string
	depth   Depth
	inert   bool
}

// AmbientDepthFilter wraps an update/checkout consumer so that nodes the
// working copy's ambient depth would exclude are absorbed (routed to inert
// handles) instead of reaching inner. target is the edit's named target
// path (rooted at the anchor); at that path depth is always treated as
// DepthInfinity per spec §4.2.
func AmbientDepthFilter(inner delta.Editor, lookup DepthLookup, target string) delta.Editor {
	return &ambientFilter{inner: inner, lookup: lookup, target: path.Clean(target)}
}

type ambientFilter struct {
	inner  delta.Editor
	lookup DepthLookup
	target string
}

func (f *ambientFilter) childDepth(parentDepth Depth, childPath string) Depth {
	if path.Clean(childPath) == f.target {
		return DepthInfinity
	}
	if d := f.lookup(childPath); d != DepthUnknown {
		return d
	}
	switch parentDepth {
	case DepthImmediates:
		return DepthEmpty
	case DepthEmpty, DepthExclude:
		return DepthExclude
	default:
		return DepthInfinity
	}
}

func (f *ambientFilter) excluded(parentNode *ambientNode, name string) (*ambientNode, bool) {
	childPath := path.Join(parentNode.path, name)
	depth := f.childDepth(parentNode.depth, childPath)
	if depth == DepthExclude || depth == DepthEmpty && parentNode.depth == DepthEmpty {
		return &ambientNode{path: childPath, depth: depth, inert: true}, true
	}
	return &ambientNode{path: childPath, depth: depth}, false
}

func (f *ambientFilter) SetTargetRevision(rev delta.Revision) error {
	return f.inner.SetTargetRevision(rev)
}

func (f *ambientFilter) OpenRoot(baseRev delta.Revision) (delta.DirHandle, error) {
	h, err := f.inner.OpenRoot(baseRev)
	if err != nil {
		return nil, err
	}
	rootDepth := f.lookup("")
	if rootDepth == DepthUnknown {
		rootDepth = DepthInfinity
	}
	return &ambientNode{forward: h, path: "", depth: rootDepth}, nil
}

func (f *ambientFilter) node(h delta.DirHandle) *ambientNode { return h.(*ambientNode) }

func (f *ambientFilter) DeleteEntry(parent delta.DirHandle, name string, baseRev delta.Revision) error {
	p := f.node(parent)
	if p.inert {
		return nil
	}
	child, skip := f.excluded(p, name)
	if skip {
		return nil
	}
	_ = child
	return f.inner.DeleteEntry(p.forward, name, baseRev)
}

func (f *ambientFilter) AddDirectory(parent delta.DirHandle, name, copyFromPath string, copyFromRev delta.Revision) (delta.DirHandle, error) {
	p := f.node(parent)
	if p.inert {
		return &ambientNode{path: path.Join(p.path, name), inert: true}, nil
	}
	child, skip := f.excluded(p, name)
	if skip {
		return child, nil
	}
	h, err := f.inner.AddDirectory(p.forward, name, copyFromPath, copyFromRev)
	if err != nil {
		return nil, err
	}
	child.forward = h
	return child, nil
}

func (f *ambientFilter) OpenDirectory(parent delta.DirHandle, name string, baseRev delta.Revision) (delta.DirHandle, error) {
	p := f.node(parent)
	if p.inert {
		return &ambientNode{path: path.Join(p.path, name), inert: true}, nil
	}
	child, skip := f.excluded(p, name)
	if skip {
		return child, nil
	}
	h, err := f.inner.OpenDirectory(p.forward, name, baseRev)
	if err != nil {
		return nil, err
	}
	child.forward = h
	return child, nil
}

func (f *ambientFilter) ChangeDirProp(dir delta.DirHandle, name string, value delta.PropValue) error {
	d := f.node(dir)
	if d.inert {
		return nil
	}
	return f.inner.ChangeDirProp(d.forward, name, value)
}

func (f *ambientFilter) AbsentDirectory(parent delta.DirHandle, name string) error {
	p := f.node(parent)
	if p.inert {
		return nil
	}
	return f.inner.AbsentDirectory(p.forward, name)
}

func (f *ambientFilter) CloseDirectory(dir delta.DirHandle) error {
	d := f.node(dir)
	if d.inert {
		return nil
	}
	return f.inner.CloseDirectory(d.forward)
}

func (f *ambientFilter) AddFile(parent delta.DirHandle, name, copyFromPath string, copyFromRev delta.Revision) (delta.FileHandle, error) {
	p := f.node(parent)
	if p.inert {
		return &ambientNode{path: path.Join(p.path, name), inert: true}, nil
	}
	child, skip := f.excluded(p, name)
	if skip {
		return child, nil
	}
	h, err := f.inner.AddFile(p.forward, name, copyFromPath, copyFromRev)
	if err != nil {
		return nil, err
	}
	child.forward = h
	return child, nil
}

func (f *ambientFilter) OpenFile(parent delta.DirHandle, name string, baseRev delta.Revision) (delta.FileHandle, error) {
	p := f.node(parent)
	if p.inert {
		return &ambientNode{path: path.Join(p.path, name), inert: true}, nil
	}
	child, skip := f.excluded(p, name)
	if skip {
		return child, nil
	}
	h, err := f.inner.OpenFile(p.forward, name, baseRev)
	if err != nil {
		return nil, err
	}
	child.forward = h
	return child, nil
}

func (f *ambientFilter) fileNode(h delta.FileHandle) *ambientNode { return h.(*ambientNode) }

func (f *ambientFilter) ChangeFileProp(file delta.FileHandle, name string, value delta.PropValue) error {
	n := f.fileNode(file)
	if n.inert {
		return nil
	}
	return f.inner.ChangeFileProp(n.forward, name, value)
}

func (f *ambientFilter) AbsentFile(parent delta.DirHandle, name string) error {
	p := f.node(parent)
	if p.inert {
		return nil
	}
	return f.inner.AbsentFile(p.forward, name)
}

func (f *ambientFilter) ApplyTextDelta(file delta.FileHandle, baseChecksum string) (delta.WindowSink, error) {
	n := f.fileNode(file)
	if n.inert {
		return inertSink{}, nil
	}
	return f.inner.ApplyTextDelta(n.forward, baseChecksum)
}

func (f *ambientFilter) CloseFile(file delta.FileHandle, targetChecksum string) error {
	n := f.fileNode(file)
	if n.inert {
		return nil
	}
	return f.inner.CloseFile(n.forward, targetChecksum)
}

func (f *ambientFilter) CloseEdit() error { return f.inner.CloseEdit() }
func (f *ambientFilter) AbortEdit() error { return f.inner.AbortEdit() }

var _ delta.Editor = (*ambientFilter)(nil)
