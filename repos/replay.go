package repos

import (
	"sort"

	"github.com/rcowham/svncore/delta"
	"github.com/rcowham/svncore/svndiff"
)

// Replay drives rev's full tree-delta, relative to rev-1, into editor —
// the single-revision replay primitive spec §6's repository-access
// session exposes as replay-range, and spec §4.8's sync engine consumes
// directly. Grounded on the same depth-first open/close discipline as
// commit.Commit, diffing two committed node trees instead of consuming a
// flat Change list. Replay only drives the tree-walk calls (OpenRoot
// through the matching CloseDirectory); the caller owns CloseEdit/
// AbortEdit, since closing the edit is what produces the new destination
// revision number the caller needs to inspect.
func Replay(repo *Repository, rev delta.Revision, editor delta.Editor) error {
	newRoot, err := repo.RevisionRoot(rev)
	if err != nil {
		return err
	}
	var oldRoot *node
	if rev > 0 {
		oldRoot, err = repo.RevisionRoot(rev - 1)
		if err != nil {
			return err
		}
	} else {
		oldRoot = newDirNode(0)
	}

	root, err := editor.OpenRoot(rev - 1)
	if err != nil {
		return err
	}
	if err := diffDir(editor, root, oldRoot, newRoot); err != nil {
		return err
	}
	return editor.CloseDirectory(root)
}

// diffDir walks oldNode/newNode's children (both directories, or oldNode
// nil for a freshly-added directory), emitting add/delete/open calls
// against the already-open dirHandle h and recursing depth-first so child
// directories are fully closed before diffDir returns.
func diffDir(editor delta.Editor, h delta.DirHandle, oldNode, newNode *node) error {
	names := make(map[string]bool)
	if oldNode != nil {
		for name := range oldNode.children {
			names[name] = true
		}
	}
	for name := range newNode.children {
		names[name] = true
	}
	sorted := make([]string, 0, len(names))
	for name := range names {
		sorted = append(sorted, name)
	}
	sort.Strings(sorted)

	for _, name := range sorted {
		var oldChild *node
		if oldNode != nil {
			oldChild = oldNode.children[name]
		}
		newChild := newNode.children[name]

		if newChild == nil {
			if err := editor.DeleteEntry(h, name, delta.InvalidRevision); err != nil {
				return err
			}
			continue
		}
		if oldChild == nil {
			if err := addNode(editor, h, name, newChild); err != nil {
				return err
			}
			continue
		}
		if oldChild == newChild {
			continue // unchanged subtree, shared by reference since no copy-on-write touched it
		}
		if oldChild.kind != newChild.kind {
			if err := editor.DeleteEntry(h, name, delta.InvalidRevision); err != nil {
				return err
			}
			if err := addNode(editor, h, name, newChild); err != nil {
				return err
			}
			continue
		}
		if err := openAndDiffNode(editor, h, name, oldChild, newChild); err != nil {
			return err
		}
	}
	return nil
}

func addNode(editor delta.Editor, parent delta.DirHandle, name string, n *node) error {
	if n.kind == delta.NodeDir {
		child, err := editor.AddDirectory(parent, name, "", delta.InvalidRevision)
		if err != nil {
			return err
		}
		if err := applyProps(editor, nil, child, n.properties); err != nil {
			return err
		}
		if err := diffDir(editor, child, nil, n); err != nil {
			return err
		}
		return editor.CloseDirectory(child)
	}
	fh, err := editor.AddFile(parent, name, "", delta.InvalidRevision)
	if err != nil {
		return err
	}
	if err := applyProps(editor, fh, nil, n.properties); err != nil {
		return err
	}
	if err := pushContent(editor, fh, nil, n.content); err != nil {
		return err
	}
	return editor.CloseFile(fh, svndiff.Checksum(n.content))
}

func openAndDiffNode(editor delta.Editor, parent delta.DirHandle, name string, oldChild, newChild *node) error {
	if newChild.kind == delta.NodeDir {
		child, err := editor.OpenDirectory(parent, name, oldChild.createdRev)
		if err != nil {
			return err
		}
		if err := diffProps(editor, nil, child, oldChild.properties, newChild.properties); err != nil {
			return err
		}
		if err := diffDir(editor, child, oldChild, newChild); err != nil {
			return err
		}
		return editor.CloseDirectory(child)
	}
	fh, err := editor.OpenFile(parent, name, oldChild.createdRev)
	if err != nil {
		return err
	}
	if err := diffProps(editor, fh, nil, oldChild.properties, newChild.properties); err != nil {
		return err
	}
	if string(oldChild.content) != string(newChild.content) {
		if err := pushContent(editor, fh, oldChild.content, newChild.content); err != nil {
			return err
		}
	}
	return editor.CloseFile(fh, svndiff.Checksum(newChild.content))
}

func pushContent(editor delta.Editor, fh delta.FileHandle, oldContent, newContent []byte) error {
	sink, err := editor.ApplyTextDelta(fh, svndiff.Checksum(oldContent))
	if err != nil {
		return err
	}
	if err := sink.PushWindow(svndiff.Encode(oldContent, newContent)); err != nil {
		return err
	}
	return sink.PushWindow(nil)
}

// applyProps pushes every property in props (exactly one of file/dir is
// non-nil), mirroring commit.applyProps but local to this package since
// the two cannot share an unexported helper across packages.
func applyProps(editor delta.Editor, file delta.FileHandle, dir delta.DirHandle, props map[string]string) error {
	for name, value := range props {
		var err error
		if dir != nil {
			err = editor.ChangeDirProp(dir, name, delta.PropValue(value))
		} else {
			err = editor.ChangeFileProp(file, name, delta.PropValue(value))
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// diffProps emits only the properties that changed or were removed
// between oldProps and newProps.
func diffProps(editor delta.Editor, file delta.FileHandle, dir delta.DirHandle, oldProps, newProps map[string]string) error {
	for name, newValue := range newProps {
		if oldValue, ok := oldProps[name]; !ok || oldValue != newValue {
			var err error
			if dir != nil {
				err = editor.ChangeDirProp(dir, name, delta.PropValue(newValue))
			} else {
				err = editor.ChangeFileProp(file, name, delta.PropValue(newValue))
			}
			if err != nil {
				return err
			}
		}
	}
	for name := range oldProps {
		if _, ok := newProps[name]; !ok {
			var err error
			if dir != nil {
				err = editor.ChangeDirProp(dir, name, nil)
			} else {
				err = editor.ChangeFileProp(file, name, nil)
			}
			if err != nil {
				return err
			}
		}
	}
	return nil
}
