package wc

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcowham/svncore/delta"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "wc.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestPutAndGetEntry(t *testing.T) {
	s := openTestStore(t)
	e := &Entry{
		Path: "trunk/src/main.c", Kind: delta.NodeFile, Revision: 5,
		Checksum: "abc123", Schedule: ScheduleNormal, Depth: 0,
		Properties: map[string]string{"svn:eol-style": "native"},
	}
	require.NoError(t, s.PutEntry(e))

	got, err := s.GetEntry("trunk/src/main.c")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, delta.Revision(5), got.Revision)
	assert.Equal(t, "native", got.Properties["svn:eol-style"])
}

func TestGetEntryMissingReturnsNilNoError(t *testing.T) {
	s := openTestStore(t)
	got, err := s.GetEntry("does/not/exist")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestPutEntryUpsertsOnConflict(t *testing.T) {
	s := openTestStore(t)
	path := "trunk/a.txt"
	require.NoError(t, s.PutEntry(&Entry{Path: path, Kind: delta.NodeFile, Revision: 1, Properties: map[string]string{}}))
	require.NoError(t, s.PutEntry(&Entry{Path: path, Kind: delta.NodeFile, Revision: 2, Properties: map[string]string{}}))

	got, err := s.GetEntry(path)
	require.NoError(t, err)
	assert.Equal(t, delta.Revision(2), got.Revision)
}

func TestDeleteEntryRemovesDescendants(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.PutEntry(&Entry{Path: "trunk", Kind: delta.NodeDir, Properties: map[string]string{}}))
	require.NoError(t, s.PutEntry(&Entry{Path: "trunk/a.txt", Kind: delta.NodeFile, Properties: map[string]string{}}))
	require.NoError(t, s.PutEntry(&Entry{Path: "trunk/sub/b.txt", Kind: delta.NodeFile, Properties: map[string]string{}}))

	require.NoError(t, s.DeleteEntry("trunk"))

	got, err := s.GetEntry("trunk/a.txt")
	require.NoError(t, err)
	assert.Nil(t, got)
	got, err = s.GetEntry("trunk/sub/b.txt")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestListChildren(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.PutEntry(&Entry{Path: "trunk/a.txt", Kind: delta.NodeFile, Properties: map[string]string{}}))
	require.NoError(t, s.PutEntry(&Entry{Path: "trunk/sub/b.txt", Kind: delta.NodeFile, Properties: map[string]string{}}))
	require.NoError(t, s.PutEntry(&Entry{Path: "branches/x.txt", Kind: delta.NodeFile, Properties: map[string]string{}}))

	files := s.ListChildren("trunk")
	assert.ElementsMatch(t, []string{"trunk/a.txt", "trunk/sub/b.txt"}, files)

	all := s.ListChildren("")
	assert.Len(t, all, 3)
}

func TestPristineStoreRoundTrip(t *testing.T) {
	s := openTestStore(t)
	checksum := "deadbeef"
	require.NoError(t, s.PutPristine(checksum, []byte("hello world")))

	data, err := s.GetPristine(checksum)
	require.NoError(t, err)
	assert.Equal(t, "hello world", string(data))
}

func TestGetPristineMissingErrors(t *testing.T) {
	s := openTestStore(t)
	_, err := s.GetPristine("nonexistent")
	require.Error(t, err)
	assert.True(t, delta.Is(err, delta.KindNotFound))
}

func TestAdminLockMutualExclusion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lock")
	first := NewAdminLock(path)
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	require.NoError(t, first.Acquire(ctx))
	defer first.Release()

	second := NewAdminLock(path)
	shortCtx, cancel2 := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel2()
	err := second.Acquire(shortCtx)
	assert.Error(t, err)
}
