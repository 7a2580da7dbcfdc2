package wc

import (
	"strings"

	"github.com/rcowham/svncore/delta"
)

// dirNode is an in-memory cache of one directory's children, mirroring the
// rows held for it in the sqlite entries table. It exists so repeated
// child-lookups during a checkout or status walk don't round-trip through
// the database for every path segment. Adapted directly from the
// teacher's node.go tree (AddSubFile/DeleteSubFile/GetFiles), generalized
// from "is this a file" to "what kind of versioned node is this" and from
// case-insensitive git-branch name matching to case-insensitive working
// copies (same feature, different filesystem).
type dirNode struct {
	name            string
	path            string
	kind            delta.NodeKind
	caseInsensitive bool
	children        []*dirNode
}

func newDirNode(name string, caseInsensitive bool) *dirNode {
	return &dirNode{name: name, kind: delta.NodeDir, caseInsensitive: caseInsensitive}
}

func (n *dirNode) equalNames(a, b string) bool {
	if n.caseInsensitive {
		return strings.EqualFold(a, b)
	}
	return a == b
}

// addChild registers fullPath (with subPath remaining to descend) as a
// node of the given kind, creating intermediate directory nodes as
// needed. A node already present for the final path segment is kept and
// only its kind is updated (idempotent against replays of the same add).
func (n *dirNode) addChild(fullPath, subPath string, kind delta.NodeKind) {
	parts := strings.SplitN(subPath, "/", 2)
	head := parts[0]
	for _, c := range n.children {
		if n.equalNames(c.name, head) {
			if len(parts) == 1 {
				c.kind = kind
				return
			}
			c.addChild(fullPath, parts[1], kind)
			return
		}
	}
	if len(parts) == 1 {
		n.children = append(n.children, &dirNode{name: head, path: fullPath, kind: kind, caseInsensitive: n.caseInsensitive})
		return
	}
	child := newDirNode(head, n.caseInsensitive)
	n.children = append(n.children, child)
	child.addChild(fullPath, parts[1], kind)
}

// removeChild deletes the node at subPath, if present. Absent
// paths are a no-op, since working-copy deletes are replayed idempotently
// during crash recovery (spec §4.5).
func (n *dirNode) removeChild(subPath string) {
	parts := strings.SplitN(subPath, "/", 2)
	head := parts[0]
	for i, c := range n.children {
		if !n.equalNames(c.name, head) {
			continue
		}
		if len(parts) == 1 {
			n.children = append(n.children[:i], n.children[i+1:]...)
			return
		}
		c.removeChild(parts[1])
		return
	}
}

// find locates the node at path relative to n, or nil.
func (n *dirNode) find(path string) *dirNode {
	if path == "" {
		return n
	}
	parts := strings.SplitN(path, "/", 2)
	for _, c := range n.children {
		if n.equalNames(c.name, parts[0]) {
			if len(parts) == 1 {
				return c
			}
			return c.find(parts[1])
		}
	}
	return nil
}

// listFiles returns the full paths of every file node under dir.
func (n *dirNode) listFiles(dir *dirNode) []string {
	var out []string
	for _, c := range dir.children {
		if c.kind == delta.NodeFile {
			out = append(out, c.path)
		} else {
			out = append(out, n.listFiles(c)...)
		}
	}
	return out
}
