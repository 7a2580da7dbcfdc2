package combinator

import "github.com/rcowham/svncore/delta"

// Cancel wraps inner so that check is consulted before every inbound call;
// a non-nil result short-circuits that call and returns the cancellation
// error without forwarding to inner. Per spec §4.2, cancellation must wrap
// outermost of any combinator chain so every call is checked exactly once.
func Cancel(inner delta.Editor, check delta.CancelFunc) delta.Editor {
	return &cancelEditor{inner: inner, check: check}
}

type cancelEditor struct {
	inner delta.Editor
	check delta.CancelFunc
}

type cancelSink struct {
	inner delta.WindowSink
	check delta.CancelFunc
}

func (s *cancelSink) PushWindow(w interface{}) error {
	if err := s.check.Check(); err != nil {
		return err
	}
	return s.inner.PushWindow(w)
}

func (c *cancelEditor) SetTargetRevision(rev delta.Revision) error {
	if err := c.check.Check(); err != nil {
		return err
	}
	return c.inner.SetTargetRevision(rev)
}

func (c *cancelEditor) OpenRoot(baseRev delta.Revision) (delta.DirHandle, error) {
	if err := c.check.Check(); err != nil {
		return nil, err
	}
	return c.inner.OpenRoot(baseRev)
}

func (c *cancelEditor) DeleteEntry(parent delta.DirHandle, name string, baseRev delta.Revision) error {
	if err := c.check.Check(); err != nil {
		return err
	}
	return c.inner.DeleteEntry(parent, name, baseRev)
}

func (c *cancelEditor) AddDirectory(parent delta.DirHandle, name, copyFromPath string, copyFromRev delta.Revision) (delta.DirHandle, error) {
	if err := c.check.Check(); err != nil {
		return nil, err
	}
	return c.inner.AddDirectory(parent, name, copyFromPath, copyFromRev)
}

func (c *cancelEditor) OpenDirectory(parent delta.DirHandle, name string, baseRev delta.Revision) (delta.DirHandle, error) {
	if err := c.check.Check(); err != nil {
		return nil, err
	}
	return c.inner.OpenDirectory(parent, name, baseRev)
}

func (c *cancelEditor) ChangeDirProp(dir delta.DirHandle, name string, value delta.PropValue) error {
	if err := c.check.Check(); err != nil {
		return err
	}
	return c.inner.ChangeDirProp(dir, name, value)
}

func (c *cancelEditor) AbsentDirectory(parent delta.DirHandle, name string) error {
	if err := c.check.Check(); err != nil {
		return err
	}
	return c.inner.AbsentDirectory(parent, name)
}

func (c *cancelEditor) CloseDirectory(dir delta.DirHandle) error {
	if err := c.check.Check(); err != nil {
		return err
	}
	return c.inner.CloseDirectory(dir)
}

func (c *cancelEditor) AddFile(parent delta.DirHandle, name, copyFromPath string, copyFromRev delta.Revision) (delta.FileHandle, error) {
	if err := c.check.Check(); err != nil {
		return nil, err
	}
	return c.inner.AddFile(parent, name, copyFromPath, copyFromRev)
}

func (c *cancelEditor) OpenFile(parent delta.DirHandle, name string, baseRev delta.Revision) (delta.FileHandle, error) {
	if err := c.check.Check(); err != nil {
		return nil, err
	}
	return c.inner.OpenFile(parent, name, baseRev)
}

func (c *cancelEditor) ChangeFileProp(file delta.FileHandle, name string, value delta.PropValue) error {
	if err := c.check.Check(); err != nil {
		return err
	}
	return c.inner.ChangeFileProp(file, name, value)
}

func (c *cancelEditor) AbsentFile(parent delta.DirHandle, name string) error {
	if err := c.check.Check(); err != nil {
		return err
	}
	return c.inner.AbsentFile(parent, name)
}

func (c *cancelEditor) ApplyTextDelta(file delta.FileHandle, baseChecksum string) (delta.WindowSink, error) {
	if err := c.check.Check(); err != nil {
		return nil, err
	}
	sink, err := c.inner.ApplyTextDelta(file, baseChecksum)
	if err != nil {
		return nil, err
	}
	return &cancelSink{inner: sink, check: c.check}, nil
}

func (c *cancelEditor) CloseFile(file delta.FileHandle, targetChecksum string) error {
	if err := c.check.Check(); err != nil {
		return err
	}
	return c.inner.CloseFile(file, targetChecksum)
}

func (c *cancelEditor) CloseEdit() error {
	if err := c.check.Check(); err != nil {
		return err
	}
	return c.inner.CloseEdit()
}

func (c *cancelEditor) AbortEdit() error {
	// Cancellation of the abort call itself is not honored: an edit that
	// is already being torn down must finish tearing down.
	return c.inner.AbortEdit()
}

var _ delta.Editor = (*cancelEditor)(nil)
