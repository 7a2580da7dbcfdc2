// Package repos implements the repository-side commit editor of spec §4.7:
// an in-memory filesystem transaction that accumulates a delta.Editor
// session's calls into a new immutable tree snapshot, committed as a new
// revision. Grounded on the teacher's node.go Node tree (AddSubFile/
// DeleteSubFile/GetFiles), adapted from a flat git-branch file-path index
// into a real versioned tree of node-kind/properties/content/created-rev,
// plus libsvn_ra_local/commit_editor.c for the open/add/out-of-date state
// machine and libsvn_repos/checkout.c for read-side tree walking.
package repos

import (
	"strings"

	"github.com/rcowham/svncore/delta"
)

// node is one entry in a transaction or committed-revision tree. Committed
// nodes are never mutated in place — a transaction always works against
// copy-on-write clones, so concurrent readers of an older revision never
// observe a half-finished commit (spec §4.7's isolation requirement).
type node struct {
	kind       delta.NodeKind
	createdRev delta.Revision
	checksum   string
	content    []byte
	properties map[string]string
	children   map[string]*node // directories only
}

func newDirNode(rev delta.Revision) *node {
	return &node{kind: delta.NodeDir, createdRev: rev, properties: map[string]string{}, children: map[string]*node{}}
}

func newFileNode(rev delta.Revision) *node {
	return &node{kind: delta.NodeFile, createdRev: rev, properties: map[string]string{}}
}

// clone returns a one-level copy of n (its own properties and children
// maps, with the child nodes themselves shared by reference) so n's fields
// and entries can be mutated independently of the tree it was cloned from
// (copy-on-write: only nodes on the path being edited are ever cloned,
// siblings are shared by reference).
func (n *node) clone() *node {
	c := &node{kind: n.kind, createdRev: n.createdRev, checksum: n.checksum, content: n.content}
	c.properties = make(map[string]string, len(n.properties))
	for k, v := range n.properties {
		c.properties[k] = v
	}
	if n.children != nil {
		c.children = make(map[string]*node, len(n.children))
		for k, v := range n.children {
			c.children[k] = v // children are shared until their own path is touched
		}
	}
	return c
}

// lookup resolves a "/"-joined relative path under n, or nil if absent.
func (n *node) lookup(path string) *node {
	if path == "" {
		return n
	}
	cur := n
	for _, seg := range strings.Split(path, "/") {
		if cur == nil || cur.kind != delta.NodeDir {
			return nil
		}
		cur = cur.children[seg]
	}
	return cur
}

// walkFiles collects the full path of every file node under n (rooted at
// prefix), mirroring the teacher's node.go getChildFiles.
func (n *node) walkFiles(prefix string) []string {
	var out []string
	for name, c := range n.children {
		p := name
		if prefix != "" {
			p = prefix + "/" + name
		}
		if c.kind == delta.NodeFile {
			out = append(out, p)
		} else if c.kind == delta.NodeDir {
			out = append(out, c.walkFiles(p)...)
		}
	}
	return out
}
