package commit

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcowham/svncore/delta"
)

// fakeEditor records every call it receives, in order, guarded by a mutex
// since Commit's text-delta encoding runs concurrently (only the call
// sequence into the editor itself is required to be sequential).
type fakeEditor struct {
	mu      sync.Mutex
	calls   []string
	nextID  int
	aborted bool
	closed  bool
}

func (f *fakeEditor) record(format string, args ...interface{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, fmt.Sprintf(format, args...))
}

func (f *fakeEditor) newHandle() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	return f.nextID
}

func (f *fakeEditor) SetTargetRevision(rev delta.Revision) error { return nil }

func (f *fakeEditor) OpenRoot(baseRev delta.Revision) (delta.DirHandle, error) {
	f.record("open-root")
	return f.newHandle(), nil
}

func (f *fakeEditor) DeleteEntry(parent delta.DirHandle, name string, baseRev delta.Revision) error {
	f.record("delete %v/%s", parent, name)
	return nil
}

func (f *fakeEditor) AddDirectory(parent delta.DirHandle, name, copyFromPath string, copyFromRev delta.Revision) (delta.DirHandle, error) {
	f.record("add-dir %v/%s", parent, name)
	return f.newHandle(), nil
}

func (f *fakeEditor) OpenDirectory(parent delta.DirHandle, name string, baseRev delta.Revision) (delta.DirHandle, error) {
	f.record("open-dir %v/%s", parent, name)
	return f.newHandle(), nil
}

func (f *fakeEditor) ChangeDirProp(dir delta.DirHandle, name string, value delta.PropValue) error {
	f.record("dir-prop %v %s=%s", dir, name, value)
	return nil
}

func (f *fakeEditor) AbsentDirectory(parent delta.DirHandle, name string) error { return nil }

func (f *fakeEditor) CloseDirectory(dir delta.DirHandle) error {
	f.record("close-dir %v", dir)
	return nil
}

func (f *fakeEditor) AddFile(parent delta.DirHandle, name, copyFromPath string, copyFromRev delta.Revision) (delta.FileHandle, error) {
	f.record("add-file %v/%s", parent, name)
	return f.newHandle(), nil
}

func (f *fakeEditor) OpenFile(parent delta.DirHandle, name string, baseRev delta.Revision) (delta.FileHandle, error) {
	f.record("open-file %v/%s", parent, name)
	return f.newHandle(), nil
}

func (f *fakeEditor) ChangeFileProp(file delta.FileHandle, name string, value delta.PropValue) error {
	f.record("file-prop %v %s=%s", file, name, value)
	return nil
}

func (f *fakeEditor) AbsentFile(parent delta.DirHandle, name string) error { return nil }

func (f *fakeEditor) ApplyTextDelta(file delta.FileHandle, baseChecksum string) (delta.WindowSink, error) {
	f.record("apply-text-delta %v", file)
	return &fakeSink{editor: f, file: file}, nil
}

func (f *fakeEditor) CloseFile(file delta.FileHandle, targetChecksum string) error {
	f.record("close-file %v", file)
	return nil
}

func (f *fakeEditor) CloseEdit() error {
	f.closed = true
	f.record("close-edit")
	return nil
}

func (f *fakeEditor) AbortEdit() error {
	f.aborted = true
	f.record("abort-edit")
	return nil
}

type fakeSink struct {
	editor *fakeEditor
	file   delta.FileHandle
}

func (s *fakeSink) PushWindow(w interface{}) error {
	if w == nil {
		s.editor.record("push-window %v <nil>", s.file)
		return nil
	}
	s.editor.record("push-window %v", s.file)
	return nil
}

func newTestDriver(editor delta.Editor) *Driver {
	return NewDriver(editor)
}

func TestCommitSingleFileAdd(t *testing.T) {
	fe := &fakeEditor{}
	d := newTestDriver(fe)

	err := Commit(d, 5, []Change{
		{Path: "trunk/src/main.c", Action: ActionAdd, Kind: delta.NodeFile, Content: []byte("int main() {}")},
	})
	require.NoError(t, err)
	assert.False(t, fe.aborted)
	assert.True(t, fe.closed)
	assert.Contains(t, fe.calls, "open-root")
	assert.Contains(t, fe.calls, "close-edit")

	foundAdd := false
	for _, c := range fe.calls {
		if len(c) >= len("add-file") && c[:len("add-file")] == "add-file" {
			foundAdd = true
		}
	}
	assert.True(t, foundAdd, "expected an add-file call, got %v", fe.calls)
}

func TestCommitDeletesDoNotOpenFile(t *testing.T) {
	fe := &fakeEditor{}
	d := newTestDriver(fe)

	err := Commit(d, 1, []Change{
		{Path: "trunk/old.txt", Action: ActionDelete, Kind: delta.NodeFile},
	})
	require.NoError(t, err)
	for _, c := range fe.calls {
		assert.NotContains(t, c, "open-file")
		assert.NotContains(t, c, "add-file")
	}
}

func TestCommitClosesChildDirsBeforeParents(t *testing.T) {
	fe := &fakeEditor{}
	d := newTestDriver(fe)

	err := Commit(d, 1, []Change{
		{Path: "trunk/a/b/file.txt", Action: ActionAdd, Kind: delta.NodeFile, Content: []byte("x")},
	})
	require.NoError(t, err)

	var closes []string
	for _, c := range fe.calls {
		if len(c) >= len("close-dir") && c[:len("close-dir")] == "close-dir" {
			closes = append(closes, c)
		}
	}
	require.True(t, len(closes) >= 1, "expected at least one close-dir call")
	// Handles are numbered in open order (root 1, trunk 2, a 3, b 4), so
	// deepest-first closing shows up as descending handle numbers.
	assert.Equal(t, []string{"close-dir 4", "close-dir 3", "close-dir 2", "close-dir 1"}, closes)
}

func TestCommitRejectsEmptyChangeList(t *testing.T) {
	fe := &fakeEditor{}
	d := newTestDriver(fe)
	err := Commit(d, 1, nil)
	require.Error(t, err)
}

func TestCommitAbortsOnEditorError(t *testing.T) {
	fe := &failingEditor{fakeEditor: &fakeEditor{}}
	d := newTestDriver(fe)

	err := Commit(d, 1, []Change{
		{Path: "trunk/file.txt", Action: ActionAdd, Kind: delta.NodeFile, Content: []byte("x")},
	})
	require.Error(t, err)
	assert.True(t, fe.fakeEditor.aborted)
}

// failingEditor fails every AddFile call, to exercise the abort path.
type failingEditor struct {
	*fakeEditor
}

func (f *failingEditor) AddFile(parent delta.DirHandle, name, copyFromPath string, copyFromRev delta.Revision) (delta.FileHandle, error) {
	return nil, delta.New(delta.KindProtocolViolation, "forced failure")
}
