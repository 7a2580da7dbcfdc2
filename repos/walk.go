package repos

import "github.com/rcowham/svncore/delta"

// FileEntry names one file's path (relative to whatever root Manifest was
// called against) and its content checksum, the read-side surface
// read-only tooling (cmd/svngraph) uses without reaching into node's
// unexported fields.
type FileEntry struct {
	Path     string
	Checksum string
}

// Manifest lists every file under path at rev, path-relative, with its
// content checksum. Used to detect a directory copy by content signature:
// the committed tree itself carries no copyfrom provenance (spec §4.7's
// AddDirectory/AddFile clone their source without recording where it came
// from), so a tool that wants to report "branched from" has to notice two
// subtrees share every file's checksum.
func (r *Repository) Manifest(rev delta.Revision, path string) ([]FileEntry, error) {
	root, err := r.RevisionRoot(rev)
	if err != nil {
		return nil, err
	}
	n := root.lookup(path)
	if n == nil {
		return nil, delta.New(delta.KindNotFound, "no such path %s@%d", path, rev)
	}
	var out []FileEntry
	collectManifest(n, "", &out)
	return out, nil
}

func collectManifest(n *node, prefix string, out *[]FileEntry) {
	if n.kind == delta.NodeFile {
		*out = append(*out, FileEntry{Path: prefix, Checksum: n.checksum})
		return
	}
	for name, c := range n.children {
		p := name
		if prefix != "" {
			p = prefix + "/" + name
		}
		collectManifest(c, p, out)
	}
}

// AllDirs lists every directory path in rev's tree, root excluded,
// depth-first, for cmd/svngraph's copy-candidate search.
func (r *Repository) AllDirs(rev delta.Revision) ([]string, error) {
	root, err := r.RevisionRoot(rev)
	if err != nil {
		return nil, err
	}
	var out []string
	collectDirs(root, "", &out)
	return out, nil
}

func collectDirs(n *node, prefix string, out *[]string) {
	for name, c := range n.children {
		if c.kind != delta.NodeDir {
			continue
		}
		p := name
		if prefix != "" {
			p = prefix + "/" + name
		}
		*out = append(*out, p)
		collectDirs(c, p, out)
	}
}
