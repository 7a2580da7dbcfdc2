package sync

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcowham/svncore/delta"
	"github.com/rcowham/svncore/repos"
)

func splitSegments(path string) []string {
	var out []string
	cur := ""
	for _, r := range path {
		if r == '/' {
			out = append(out, cur)
			cur = ""
			continue
		}
		cur += string(r)
	}
	return append(out, cur)
}

func commitFile(t *testing.T, repo *repos.Repository, path, content, author string) delta.Revision {
	t.Helper()
	head := repo.HeadRevision()
	txn, err := repos.NewTxn(repo, head, author, "add "+path)
	require.NoError(t, err)

	dirs := map[string]delta.DirHandle{}
	root, err := txn.OpenRoot(head)
	require.NoError(t, err)
	dirs[""] = root

	segs := splitSegments(path)
	parent := ""
	for _, d := range segs[:len(segs)-1] {
		full := parent + "/" + d
		if parent == "" {
			full = d
		}
		kind, _, lookupErr := repo.Lookup(head, full)
		require.NoError(t, lookupErr)
		var h delta.DirHandle
		if kind == delta.NodeDir {
			h, err = txn.OpenDirectory(dirs[parent], d, delta.InvalidRevision)
		} else {
			h, err = txn.AddDirectory(dirs[parent], d, "", delta.InvalidRevision)
		}
		require.NoError(t, err)
		dirs[full] = h
		parent = full
	}

	name := segs[len(segs)-1]
	fh, err := txn.AddFile(dirs[parent], name, "", delta.InvalidRevision)
	require.NoError(t, err)
	sink, err := txn.ApplyTextDelta(fh, "")
	require.NoError(t, err)
	require.NoError(t, sink.PushWindow(nil))
	require.NoError(t, txn.CloseFile(fh, ""))
	rev, err := txn.Commit()
	require.NoError(t, err)
	return rev
}

func newEnginePair(t *testing.T) (*repos.Repository, *repos.Repository, *Engine) {
	t.Helper()
	source := repos.New()
	dest := repos.New()
	e := &Engine{
		Source: &RepoSession{Repo: source, Author: "svnsync"},
		Dest:   &RepoSession{Repo: dest, Author: "svnsync"},
	}
	return source, dest, e
}

func TestInitWritesBookkeeping(t *testing.T) {
	source, dest, e := newEnginePair(t)
	require.NoError(t, e.Init())

	bk, err := e.Info()
	require.NoError(t, err)
	assert.Equal(t, delta.Revision(0), bk.LastMergedRev)
	assert.Equal(t, source.UUID, bk.FromUUID)
	_ = dest
}

func TestInitRejectsNonEmptyDestination(t *testing.T) {
	_, dest, e := newEnginePair(t)
	commitFile(t, dest, "trunk/file.txt", "x", "bob")
	err := e.Init()
	require.Error(t, err)
	assert.True(t, delta.Is(err, delta.KindAlreadyInitialized))
}

func TestInitRejectsDoubleInit(t *testing.T) {
	_, _, e := newEnginePair(t)
	require.NoError(t, e.Init())
	err := e.Init()
	require.Error(t, err)
	assert.True(t, delta.Is(err, delta.KindAlreadyInitialized))
}

func TestSyncReplicatesRevisions(t *testing.T) {
	source, dest, e := newEnginePair(t)
	require.NoError(t, e.Init())

	commitFile(t, source, "trunk/a.txt", "a", "alice")
	commitFile(t, source, "trunk/b.txt", "b", "alice")

	require.NoError(t, e.Sync())

	assert.Equal(t, delta.Revision(2), dest.HeadRevision())
	kind, _, err := dest.Lookup(delta.HeadRevision, "trunk/a.txt")
	require.NoError(t, err)
	assert.Equal(t, delta.NodeFile, kind)

	bk, err := e.Info()
	require.NoError(t, err)
	assert.Equal(t, delta.Revision(2), bk.LastMergedRev)
	assert.Equal(t, delta.InvalidRevision, bk.CurrentlyCopying)
}

func TestSyncIsResumable(t *testing.T) {
	source, dest, e := newEnginePair(t)
	require.NoError(t, e.Init())
	commitFile(t, source, "trunk/a.txt", "a", "alice")
	require.NoError(t, e.Sync())

	commitFile(t, source, "trunk/b.txt", "b", "alice")
	commitFile(t, source, "trunk/c.txt", "c", "alice")
	require.NoError(t, e.Sync())

	assert.Equal(t, delta.Revision(3), dest.HeadRevision())
}

func TestRestartInvariantRejectsForeignWrite(t *testing.T) {
	_, dest, e := newEnginePair(t)
	require.NoError(t, e.Init())
	commitFile(t, dest, "trunk/rogue.txt", "x", "intruder")

	err := e.Sync()
	require.Error(t, err)
	assert.True(t, delta.Is(err, delta.KindConflict))
}

func TestLockRoundTrip(t *testing.T) {
	_, dest, e := newEnginePair(t)
	require.NoError(t, e.Init())
	token := newLockToken()
	require.NoError(t, acquireLock(e.Dest, token))
	held, err := dest.RevPropGet(0, PropLock)
	require.NoError(t, err)
	assert.Equal(t, token, held)
	require.NoError(t, releaseLock(e.Dest, token))
	held, err = dest.RevPropGet(0, PropLock)
	require.NoError(t, err)
	assert.Empty(t, held)
}

func TestNormalizeEOLConvertsCRAndCRLF(t *testing.T) {
	out, changed := normalizeEOL("a\r\nb\rc\n")
	assert.True(t, changed)
	assert.Equal(t, "a\nb\nc\n", out)

	out2, changed2 := normalizeEOL("already\nlf\n")
	assert.False(t, changed2)
	assert.Equal(t, "already\nlf\n", out2)
}

func TestCopyRevpropsDropsDestOnlyKeys(t *testing.T) {
	source, dest, e := newEnginePair(t)
	require.NoError(t, e.Init())
	commitFile(t, source, "trunk/a.txt", "a", "alice")
	require.NoError(t, e.Sync())

	require.NoError(t, setRevProp(e.Dest, 1, "custom:stale", "leftover"))
	require.NoError(t, e.CopyRevprops(1, 1))

	v, err := dest.RevPropGet(1, "custom:stale")
	require.NoError(t, err)
	assert.Empty(t, v)
}
