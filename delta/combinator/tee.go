// Package combinator provides editors that compose, pipe, and wrap other
// editors: Tee (fan-out to two consumers), Cancel (cancellation checks
// between calls), and AmbientDepthFilter (absorb subtrees excluded by
// working-copy depth). Grounded on libsvn_delta/compose_editors.c and
// pipe_editors.c, and libsvn_wc/ambient_depth_filter_editor.c.
package combinator

import (
	"github.com/rcowham/svncore/delta"
)

// teeHandle pairs the two downstream handles produced for one logical
// open/add call so later calls on the same node can be forwarded to both.
type teeHandle struct {
	a, b interface{}
}

// teeSink forwards each window to both downstream sinks.
type teeSink struct {
	a, b delta.WindowSink
}

func (s *teeSink) PushWindow(w interface{}) error {
	if err := s.a.PushWindow(w); err != nil {
		return err
	}
	return s.b.PushWindow(w)
}

// Tee returns an editor that forwards every call to both a and b, in that
// order, failing fast on the first error from either. This is the "compose"
// combinator of spec §4.2.
func Tee(a, b delta.Editor) delta.Editor {
	return &teeEditor{a: a, b: b}
}

type teeEditor struct {
	a, b delta.Editor
}

func dh(h interface{}) delta.DirHandle  { return h }
func fh(h interface{}) delta.FileHandle { return h }

var _ delta.Editor = (*teeEditor)(nil)

func (t *teeEditor) SetTargetRevision(rev delta.Revision) error {
	if err := t.a.SetTargetRevision(rev); err != nil {
		return err
	}
	return t.b.SetTargetRevision(rev)
}

func (t *teeEditor) OpenRoot(baseRev delta.Revision) (delta.DirHandle, error) {
	ha, err := t.a.OpenRoot(baseRev)
	if err != nil {
		return nil, err
	}
	hb, err := t.b.OpenRoot(baseRev)
	if err != nil {
		return nil, err
	}
	return &teeHandle{ha, hb}, nil
}

func split(h interface{}) (interface{}, interface{}) {
	th := h.(*teeHandle)
	return th.a, th.b
}

func (t *teeEditor) DeleteEntry(parent delta.DirHandle, name string, baseRev delta.Revision) error {
	pa, pb := split(parent)
	if err := t.a.DeleteEntry(dh(pa), name, baseRev); err != nil {
		return err
	}
	return t.b.DeleteEntry(dh(pb), name, baseRev)
}

func (t *teeEditor) AddDirectory(parent delta.DirHandle, name, copyFromPath string, copyFromRev delta.Revision) (delta.DirHandle, error) {
	pa, pb := split(parent)
	ha, err := t.a.AddDirectory(dh(pa), name, copyFromPath, copyFromRev)
	if err != nil {
		return nil, err
	}
	hb, err := t.b.AddDirectory(dh(pb), name, copyFromPath, copyFromRev)
	if err != nil {
		return nil, err
	}
	return &teeHandle{ha, hb}, nil
}

func (t *teeEditor) OpenDirectory(parent delta.DirHandle, name string, baseRev delta.Revision) (delta.DirHandle, error) {
	pa, pb := split(parent)
	ha, err := t.a.OpenDirectory(dh(pa), name, baseRev)
	if err != nil {
		return nil, err
	}
	hb, err := t.b.OpenDirectory(dh(pb), name, baseRev)
	if err != nil {
		return nil, err
	}
	return &teeHandle{ha, hb}, nil
}

func (t *teeEditor) ChangeDirProp(dir delta.DirHandle, name string, value delta.PropValue) error {
	da, db := split(dir)
	if err := t.a.ChangeDirProp(dh(da), name, value); err != nil {
		return err
	}
	return t.b.ChangeDirProp(dh(db), name, value)
}

func (t *teeEditor) AbsentDirectory(parent delta.DirHandle, name string) error {
	pa, pb := split(parent)
	if err := t.a.AbsentDirectory(dh(pa), name); err != nil {
		return err
	}
	return t.b.AbsentDirectory(dh(pb), name)
}

func (t *teeEditor) CloseDirectory(dir delta.DirHandle) error {
	da, db := split(dir)
	if err := t.a.CloseDirectory(dh(da)); err != nil {
		return err
	}
	return t.b.CloseDirectory(dh(db))
}

func (t *teeEditor) AddFile(parent delta.DirHandle, name, copyFromPath string, copyFromRev delta.Revision) (delta.FileHandle, error) {
	pa, pb := split(parent)
	ha, err := t.a.AddFile(dh(pa), name, copyFromPath, copyFromRev)
	if err != nil {
		return nil, err
	}
	hb, err := t.b.AddFile(dh(pb), name, copyFromPath, copyFromRev)
	if err != nil {
		return nil, err
	}
	return &teeHandle{ha, hb}, nil
}

func (t *teeEditor) OpenFile(parent delta.DirHandle, name string, baseRev delta.Revision) (delta.FileHandle, error) {
	pa, pb := split(parent)
	ha, err := t.a.OpenFile(dh(pa), name, baseRev)
	if err != nil {
		return nil, err
	}
	hb, err := t.b.OpenFile(dh(pb), name, baseRev)
	if err != nil {
		return nil, err
	}
	return &teeHandle{ha, hb}, nil
}

func (t *teeEditor) ChangeFileProp(file delta.FileHandle, name string, value delta.PropValue) error {
	fa, fb := split(file)
	if err := t.a.ChangeFileProp(fh(fa), name, value); err != nil {
		return err
	}
	return t.b.ChangeFileProp(fh(fb), name, value)
}

func (t *teeEditor) AbsentFile(parent delta.DirHandle, name string) error {
	pa, pb := split(parent)
	if err := t.a.AbsentFile(dh(pa), name); err != nil {
		return err
	}
	return t.b.AbsentFile(dh(pb), name)
}

func (t *teeEditor) ApplyTextDelta(file delta.FileHandle, baseChecksum string) (delta.WindowSink, error) {
	fa, fb := split(file)
	sa, err := t.a.ApplyTextDelta(fh(fa), baseChecksum)
	if err != nil {
		return nil, err
	}
	sb, err := t.b.ApplyTextDelta(fh(fb), baseChecksum)
	if err != nil {
		return nil, err
	}
	return &teeSink{a: sa, b: sb}, nil
}

func (t *teeEditor) CloseFile(file delta.FileHandle, targetChecksum string) error {
	fa, fb := split(file)
	if err := t.a.CloseFile(fh(fa), targetChecksum); err != nil {
		return err
	}
	return t.b.CloseFile(fh(fb), targetChecksum)
}

func (t *teeEditor) CloseEdit() error {
	if err := t.a.CloseEdit(); err != nil {
		return err
	}
	return t.b.CloseEdit()
}

func (t *teeEditor) AbortEdit() error {
	// Best-effort: abort both even if the first fails, but report the
	// first failure (spec §7: cleanup on failure must still happen).
	errA := t.a.AbortEdit()
	errB := t.b.AbortEdit()
	if errA != nil {
		return errA
	}
	return errB
}
