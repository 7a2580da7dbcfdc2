package repos

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcowham/svncore/delta"
	"github.com/rcowham/svncore/svndiff"
)

func addFile(t *testing.T, repo *Repository, rev delta.Revision, path, content string) delta.Revision {
	t.Helper()
	txn, err := NewTxn(repo, rev, "alice", "add "+path)
	require.NoError(t, err)
	dirs := map[string]delta.DirHandle{}
	root, err := txn.OpenRoot(rev)
	require.NoError(t, err)
	dirs[""] = root

	segs := splitForTest(path)
	parent := ""
	for _, d := range segs[:len(segs)-1] {
		full := joinPath(parent, d)
		h, ok := dirs[full]
		if !ok {
			kind, _, lookupErr := repo.Lookup(rev, full)
			require.NoError(t, lookupErr)
			if kind == delta.NodeDir {
				h, err = txn.OpenDirectory(dirs[parent], d, delta.InvalidRevision)
			} else {
				h, err = txn.AddDirectory(dirs[parent], d, "", delta.InvalidRevision)
			}
			require.NoError(t, err)
			dirs[full] = h
		}
		parent = full
	}
	name := segs[len(segs)-1]
	fh, err := txn.AddFile(dirs[parent], name, "", delta.InvalidRevision)
	require.NoError(t, err)
	sink, err := txn.ApplyTextDelta(fh, "")
	require.NoError(t, err)
	require.NoError(t, sink.PushWindow(svndiff.Encode(nil, []byte(content))))
	require.NoError(t, sink.PushWindow(nil))
	require.NoError(t, txn.CloseFile(fh, svndiff.Checksum([]byte(content))))
	newRev, err := txn.Commit()
	require.NoError(t, err)
	return newRev
}

func splitForTest(path string) []string {
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
	out = append(out, cur)
	return out
}

func TestNewRepositoryHasEmptyRevisionZero(t *testing.T) {
	repo := New()
	assert.Equal(t, delta.Revision(0), repo.HeadRevision())
	assert.NotEmpty(t, repo.UUID)
	kind, _, err := repo.Lookup(0, "trunk")
	require.NoError(t, err)
	assert.Equal(t, delta.NodeNone, kind)
}

func TestCommitAdvancesHeadAndIsVisible(t *testing.T) {
	repo := New()
	rev := addFile(t, repo, 0, "trunk/readme.txt", "hello")
	assert.Equal(t, delta.Revision(1), rev)
	assert.Equal(t, delta.Revision(1), repo.HeadRevision())

	kind, createdRev, err := repo.Lookup(delta.HeadRevision, "trunk/readme.txt")
	require.NoError(t, err)
	assert.Equal(t, delta.NodeFile, kind)
	assert.Equal(t, delta.Revision(1), createdRev)

	root, err := repo.RevisionRoot(0)
	require.NoError(t, err)
	kind0, _, err := repo.Lookup(0, "trunk/readme.txt")
	require.NoError(t, err)
	assert.Equal(t, delta.NodeNone, kind0, "old revision must not see the new file")
	_ = root
}

func TestTxnRejectsConflictingHeadAdvance(t *testing.T) {
	repo := New()
	txn, err := NewTxn(repo, 0, "alice", "first")
	require.NoError(t, err)
	root, err := txn.OpenRoot(0)
	require.NoError(t, err)
	_, err = txn.AddDirectory(root, "trunk", "", delta.InvalidRevision)
	require.NoError(t, err)

	// A second, independently-opened transaction commits first.
	addFile(t, repo, 0, "branches/readme.txt", "x")

	_, err = txn.Commit()
	require.Error(t, err)
	assert.True(t, delta.Is(err, delta.KindTxnOutOfDate))
}

func TestOpenDirectoryOutOfDateWhenClaimedBaseStale(t *testing.T) {
	repo := New()
	addFile(t, repo, 0, "trunk/a.txt", "a")
	// second commit bumps trunk's createdRev
	addFile(t, repo, 1, "trunk/b.txt", "b")

	txn, err := NewTxn(repo, 2, "bob", "stale open")
	require.NoError(t, err)
	root, err := txn.OpenRoot(2)
	require.NoError(t, err)
	// Claim trunk's base is revision 0, which is now stale (trunk moved to r2).
	_, err = txn.OpenDirectory(root, "trunk", 0)
	require.Error(t, err)
	assert.True(t, delta.Is(err, delta.KindOutOfDate))
}

func TestDeleteEntryRejectsMissingEntry(t *testing.T) {
	repo := New()
	txn, err := NewTxn(repo, 0, "alice", "noop")
	require.NoError(t, err)
	root, err := txn.OpenRoot(0)
	require.NoError(t, err)
	err = txn.DeleteEntry(root, "nope", delta.InvalidRevision)
	require.Error(t, err)
	assert.True(t, delta.Is(err, delta.KindNotFound))
}

func TestCopyPreservesSourceContent(t *testing.T) {
	repo := New()
	rev1 := addFile(t, repo, 0, "trunk/file.txt", "v1")

	txn, err := NewTxn(repo, rev1, "alice", "branch")
	require.NoError(t, err)
	root, err := txn.OpenRoot(rev1)
	require.NoError(t, err)
	_, err = txn.AddDirectory(root, "branches", "trunk", rev1)
	require.NoError(t, err)
	rev2, err := txn.Commit()
	require.NoError(t, err)

	kind, _, err := repo.Lookup(rev2, "branches/file.txt")
	require.NoError(t, err)
	assert.Equal(t, delta.NodeFile, kind)

	r2root, err := repo.RevisionRoot(rev2)
	require.NoError(t, err)
	assert.Equal(t, "v1", string(r2root.lookup("branches/file.txt").content))
}

func TestAddDirectoryRejectsCrossRepositoryCopy(t *testing.T) {
	repo := New()
	txn, err := NewTxn(repo, 0, "alice", "bad copy")
	require.NoError(t, err)
	root, err := txn.OpenRoot(0)
	require.NoError(t, err)
	_, err = txn.AddDirectory(root, "trunk", "someuuid:branches/old", 3)
	require.Error(t, err)
	assert.True(t, delta.Is(err, delta.KindUnsupportedFeature))
}

func TestNodeCloneIsIndependentOfOriginal(t *testing.T) {
	n := newDirNode(0)
	n.children["a"] = newFileNode(0)
	clone := n.clone()
	clone.children["b"] = newFileNode(0)
	_, origHasB := n.children["b"]
	assert.False(t, origHasB, "mutating a clone's children must not affect the original")
}

func TestWalkFilesFindsNestedFiles(t *testing.T) {
	repo := New()
	addFile(t, repo, 0, "trunk/a/b/c.txt", "x")
	root, err := repo.RevisionRoot(1)
	require.NoError(t, err)
	files := root.walkFiles("")
	assert.Contains(t, files, "trunk/a/b/c.txt")
}
