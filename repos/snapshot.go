package repos

import (
	"encoding/gob"
	"os"

	"github.com/rcowham/svncore/delta"
)

// nodeDTO and revisionDTO are gob-friendly mirrors of node/revision, used
// only for persisting a Repository to disk between cmd/svnsync
// invocations — node and revision stay unexported so every in-memory
// mutation continues to go through Txn/Repository's copy-on-write
// discipline; only this file knows how to flatten them.
type nodeDTO struct {
	Kind       delta.NodeKind
	CreatedRev delta.Revision
	Checksum   string
	Content    []byte
	Properties map[string]string
	Children   map[string]*nodeDTO
}

func (n *node) toDTO() *nodeDTO {
	dto := &nodeDTO{Kind: n.kind, CreatedRev: n.createdRev, Checksum: n.checksum, Content: n.content, Properties: n.properties}
	if n.children != nil {
		dto.Children = make(map[string]*nodeDTO, len(n.children))
		for name, c := range n.children {
			dto.Children[name] = c.toDTO()
		}
	}
	return dto
}

func (dto *nodeDTO) toNode() *node {
	n := &node{kind: dto.Kind, createdRev: dto.CreatedRev, checksum: dto.Checksum, content: dto.Content, properties: dto.Properties}
	if dto.Properties == nil {
		n.properties = map[string]string{}
	}
	if dto.Children != nil {
		n.children = make(map[string]*node, len(dto.Children))
		for name, c := range dto.Children {
			n.children[name] = c.toNode()
		}
	}
	return n
}

type revisionDTO struct {
	Num      delta.Revision
	Root     *nodeDTO
	RevProps map[string]string
}

// Snapshot is the on-disk representation of a Repository's full revision
// history, written/read with encoding/gob.
type Snapshot struct {
	UUID      string
	Revisions []revisionDTO
}

// Snapshot captures r's entire committed history for persistence.
func (r *Repository) Snapshot() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s := Snapshot{UUID: r.UUID, Revisions: make([]revisionDTO, len(r.revisions))}
	for i, rev := range r.revisions {
		s.Revisions[i] = revisionDTO{Num: rev.num, Root: rev.root.toDTO(), RevProps: rev.revProps}
	}
	return s
}

// FromSnapshot rebuilds a Repository from a previously captured Snapshot.
func FromSnapshot(s Snapshot) *Repository {
	r := &Repository{UUID: s.UUID, revisions: make([]*revision, len(s.Revisions))}
	for i, rev := range s.Revisions {
		r.revisions[i] = &revision{num: rev.Num, root: rev.Root.toNode(), revProps: rev.RevProps}
	}
	return r
}

// SaveFile gob-encodes r's snapshot to filename, overwriting it.
func (r *Repository) SaveFile(filename string) error {
	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer f.Close()
	return gob.NewEncoder(f).Encode(r.Snapshot())
}

// LoadFile reads a Repository previously written by SaveFile.
func LoadFile(filename string) (*Repository, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var s Snapshot
	if err := gob.NewDecoder(f).Decode(&s); err != nil {
		return nil, err
	}
	return FromSnapshot(s), nil
}
