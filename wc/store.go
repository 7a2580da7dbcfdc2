package wc

import (
	"database/sql"
	"encoding/json"
	"fmt"

	_ "modernc.org/sqlite" // registers the "sqlite" driver, pure Go, no cgo

	"github.com/rcowham/svncore/delta"
)

// Store is the administrative database for one working copy: entry
// metadata, properties and the pristine-text cache, backed by a single
// sqlite file per working-copy root (spec §4.5 — svn's real wc.db is
// exactly this shape, one sqlite database per working copy). Chosen over
// the teacher's in-process-only node.go tree because the working copy
// must survive the process exiting between commands; modernc.org/sqlite
// is used instead of mattn/go-sqlite3 specifically because it needs no
// cgo, matching the corpus's general avoidance of cgo dependencies.
type Store struct {
	db   *sql.DB
	root *dirNode
}

const schema = `
CREATE TABLE IF NOT EXISTS entries (
	path         TEXT PRIMARY KEY,
	kind         INTEGER NOT NULL,
	revision     INTEGER NOT NULL,
	checksum     TEXT NOT NULL DEFAULT '',
	schedule     INTEGER NOT NULL DEFAULT 0,
	depth        INTEGER NOT NULL DEFAULT 0,
	copyfrom     TEXT NOT NULL DEFAULT '',
	copyfrom_rev INTEGER NOT NULL DEFAULT -1,
	properties   TEXT NOT NULL DEFAULT '{}'
);
CREATE TABLE IF NOT EXISTS pristine (
	checksum TEXT PRIMARY KEY,
	data     BLOB NOT NULL
);
`

// Open opens (creating if necessary) the sqlite administrative database at
// dbPath and ensures its schema exists.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, delta.Wrap(delta.KindUnsupportedFeature, err, "opening working copy store %s", dbPath)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, delta.Wrap(delta.KindUnsupportedFeature, err, "initializing working copy schema")
	}
	s := &Store{db: db, root: newDirNode("", false)}
	if err := s.loadTree(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) loadTree() error {
	rows, err := s.db.Query(`SELECT path, kind FROM entries`)
	if err != nil {
		return delta.Wrap(delta.KindUnsupportedFeature, err, "loading working copy tree")
	}
	defer rows.Close()
	for rows.Next() {
		var path string
		var kind int
		if err := rows.Scan(&path, &kind); err != nil {
			return delta.Wrap(delta.KindUnsupportedFeature, err, "scanning entry row")
		}
		if path != "" {
			s.root.addChild(path, path, delta.NodeKind(kind))
		}
	}
	return rows.Err()
}

// PutEntry inserts or replaces the metadata row for e.Path.
func (s *Store) PutEntry(e *Entry) error {
	props, err := json.Marshal(e.Properties)
	if err != nil {
		return delta.Wrap(delta.KindUnsupportedFeature, err, "marshaling properties for %s", e.Path)
	}
	_, err = s.db.Exec(
		`INSERT INTO entries (path, kind, revision, checksum, schedule, depth, copyfrom, copyfrom_rev, properties)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(path) DO UPDATE SET
			kind=excluded.kind, revision=excluded.revision, checksum=excluded.checksum,
			schedule=excluded.schedule, depth=excluded.depth, copyfrom=excluded.copyfrom,
			copyfrom_rev=excluded.copyfrom_rev, properties=excluded.properties`,
		e.Path, int(e.Kind), int64(e.Revision), e.Checksum, int(e.Schedule), e.Depth,
		e.CopyFrom, int64(e.CopyFromRev), string(props),
	)
	if err != nil {
		return delta.Wrap(delta.KindUnsupportedFeature, err, "writing entry %s", e.Path)
	}
	if e.Path != "" {
		s.root.addChild(e.Path, e.Path, e.Kind)
	}
	return nil
}

// GetEntry returns the entry at path, or (nil, nil) if no such entry is
// tracked.
func (s *Store) GetEntry(path string) (*Entry, error) {
	row := s.db.QueryRow(
		`SELECT kind, revision, checksum, schedule, depth, copyfrom, copyfrom_rev, properties
		 FROM entries WHERE path = ?`, path)
	var kind, schedule, depth int
	var revision, copyFromRev int64
	var checksum, copyFrom, propsJSON string
	if err := row.Scan(&kind, &revision, &checksum, &schedule, &depth, &copyFrom, &copyFromRev, &propsJSON); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, delta.Wrap(delta.KindUnsupportedFeature, err, "reading entry %s", path)
	}
	props := map[string]string{}
	if err := json.Unmarshal([]byte(propsJSON), &props); err != nil {
		return nil, delta.Wrap(delta.KindUnsupportedFeature, err, "unmarshaling properties for %s", path)
	}
	return &Entry{
		Path: path, Kind: delta.NodeKind(kind), Revision: delta.Revision(revision),
		Checksum: checksum, Schedule: Schedule(schedule), Depth: depth,
		CopyFrom: copyFrom, CopyFromRev: delta.Revision(copyFromRev), Properties: props,
	}, nil
}

// DeleteEntry removes path's metadata row (and, if it is a directory, all
// descendants — svn working copies never leave orphaned child rows).
func (s *Store) DeleteEntry(path string) error {
	_, err := s.db.Exec(`DELETE FROM entries WHERE path = ? OR path LIKE ?`, path, path+"/%")
	if err != nil {
		return delta.Wrap(delta.KindUnsupportedFeature, err, "deleting entry %s", path)
	}
	s.root.removeChild(path)
	return nil
}

// ListChildren returns the full paths of every file entry under dir
// (dir == "" lists the whole working copy).
func (s *Store) ListChildren(dir string) []string {
	node := s.root
	if dir != "" {
		node = s.root.find(dir)
		if node == nil {
			return nil
		}
	}
	return s.root.listFiles(node)
}

// PutPristine stores data content-addressed by its checksum, if not
// already present (pristine texts are immutable and shared across
// revisions of the same content, spec §4.5).
func (s *Store) PutPristine(checksum string, data []byte) error {
	_, err := s.db.Exec(`INSERT OR IGNORE INTO pristine (checksum, data) VALUES (?, ?)`, checksum, data)
	if err != nil {
		return delta.Wrap(delta.KindUnsupportedFeature, err, "storing pristine text %s", checksum)
	}
	return nil
}

// GetPristine retrieves the pristine text for checksum.
func (s *Store) GetPristine(checksum string) ([]byte, error) {
	var data []byte
	err := s.db.QueryRow(`SELECT data FROM pristine WHERE checksum = ?`, checksum).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, delta.New(delta.KindNotFound, "no pristine text for checksum %s", checksum)
	}
	if err != nil {
		return nil, delta.Wrap(delta.KindUnsupportedFeature, err, "reading pristine text %s", checksum)
	}
	return data, nil
}

// String renders an entry for diagnostic/log output.
func (e *Entry) String() string {
	return fmt.Sprintf("%s@%d [%s] %s", e.Path, e.Revision, e.Kind, e.Schedule)
}
