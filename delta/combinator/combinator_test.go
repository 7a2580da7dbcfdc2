package combinator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcowham/svncore/delta"
)

// captureEditor is a tiny delta.Editor that just records the names it sees
// opened/deleted, to assert forwarding behavior.
type captureEditor struct {
	deletes []string
	adds    []string
	aborted bool
	closed  bool
}

func (c *captureEditor) SetTargetRevision(rev delta.Revision) error { return nil }
func (c *captureEditor) OpenRoot(baseRev delta.Revision) (delta.DirHandle, error) {
	return "root", nil
}
func (c *captureEditor) DeleteEntry(parent delta.DirHandle, name string, baseRev delta.Revision) error {
	c.deletes = append(c.deletes, name)
	return nil
}
func (c *captureEditor) AddDirectory(parent delta.DirHandle, name, copyFromPath string, copyFromRev delta.Revision) (delta.DirHandle, error) {
	c.adds = append(c.adds, name)
	return name, nil
}
func (c *captureEditor) OpenDirectory(parent delta.DirHandle, name string, baseRev delta.Revision) (delta.DirHandle, error) {
	return name, nil
}
func (c *captureEditor) ChangeDirProp(dir delta.DirHandle, name string, value delta.PropValue) error {
	return nil
}
func (c *captureEditor) AbsentDirectory(parent delta.DirHandle, name string) error { return nil }
func (c *captureEditor) CloseDirectory(dir delta.DirHandle) error                 { return nil }
func (c *captureEditor) AddFile(parent delta.DirHandle, name, copyFromPath string, copyFromRev delta.Revision) (delta.FileHandle, error) {
	c.adds = append(c.adds, name)
	return name, nil
}
func (c *captureEditor) OpenFile(parent delta.DirHandle, name string, baseRev delta.Revision) (delta.FileHandle, error) {
	return name, nil
}
func (c *captureEditor) ChangeFileProp(file delta.FileHandle, name string, value delta.PropValue) error {
	return nil
}
func (c *captureEditor) AbsentFile(parent delta.DirHandle, name string) error { return nil }
func (c *captureEditor) ApplyTextDelta(file delta.FileHandle, baseChecksum string) (delta.WindowSink, error) {
	return inertSink{}, nil
}
func (c *captureEditor) CloseFile(file delta.FileHandle, targetChecksum string) error { return nil }
func (c *captureEditor) CloseEdit() error                                            { c.closed = true; return nil }
func (c *captureEditor) AbortEdit() error                                            { c.aborted = true; return nil }

func TestTeeForwardsToBoth(t *testing.T) {
	a := &captureEditor{}
	b := &captureEditor{}
	tee := Tee(a, b)

	root, err := tee.OpenRoot(0)
	require.NoError(t, err)
	_, err = tee.AddFile(root, "x.txt", "", delta.InvalidRevision)
	require.NoError(t, err)
	require.NoError(t, tee.CloseEdit())

	assert.Equal(t, []string{"x.txt"}, a.adds)
	assert.Equal(t, []string{"x.txt"}, b.adds)
	assert.True(t, a.closed)
	assert.True(t, b.closed)
}

func TestCancelShortCircuits(t *testing.T) {
	inner := &captureEditor{}
	calls := 0
	check := delta.CancelFunc(func() error {
		calls++
		if calls > 2 {
			return delta.Cancelled()
		}
		return nil
	})
	c := Cancel(inner, check)

	root, err := c.OpenRoot(0)
	require.NoError(t, err)
	_, err = c.AddFile(root, "a", "", delta.InvalidRevision)
	require.NoError(t, err)

	_, err = c.AddFile(root, "b", "", delta.InvalidRevision)
	require.Error(t, err)
	assert.True(t, delta.Is(err, delta.KindCancelled))
	// inner must not have seen the cancelled call.
	assert.Equal(t, []string{"a"}, inner.adds)
}

func TestAmbientDepthFilterAbsorbsExcludedSubtree(t *testing.T) {
	inner := &captureEditor{}
	lookup := func(p string) Depth {
		if p == "" {
			return DepthEmpty
		}
		return DepthUnknown
	}
	f := AmbientDepthFilter(inner, lookup, "")

	root, err := f.OpenRoot(0)
	require.NoError(t, err)
	// root is DepthEmpty, so an unknown child directory must be absorbed:
	// no add should reach inner.
	sub, err := f.AddDirectory(root, "newdir", "", delta.InvalidRevision)
	require.NoError(t, err)
	_, err = f.AddFile(sub, "file.txt", "", delta.InvalidRevision)
	require.NoError(t, err)

	assert.Empty(t, inner.adds)
}

func TestAmbientDepthFilterForwardsTrackedChild(t *testing.T) {
	inner := &captureEditor{}
	lookup := func(p string) Depth {
		switch p {
		case "":
			return DepthEmpty
		case "tracked":
			return DepthInfinity
		default:
			return DepthUnknown
		}
	}
	f := AmbientDepthFilter(inner, lookup, "")

	root, err := f.OpenRoot(0)
	require.NoError(t, err)
	sub, err := f.OpenDirectory(root, "tracked", 0)
	require.NoError(t, err)
	_, err = f.AddFile(sub, "file.txt", "", delta.InvalidRevision)
	require.NoError(t, err)

	assert.Equal(t, []string{"file.txt"}, inner.adds)
}
