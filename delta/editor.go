package delta

// Revision is a non-negative revision number. Zero is the empty initial
// revision. The sentinels below are reserved and never returned by a
// repository as a concrete revision.
type Revision int64

const (
	// InvalidRevision marks "no such revision" / "not yet known".
	InvalidRevision Revision = -1
	// HeadRevision means "whatever the latest revision is".
	HeadRevision Revision = -2
)

// Kind of a node in a versioned tree. NodeUnknown is a parse-time
// placeholder only and must never appear in a committed tree.
type NodeKind int

const (
	NodeUnknown NodeKind = iota
	NodeFile
	NodeDir
	NodeNone
)

func (k NodeKind) String() string {
	switch k {
	case NodeFile:
		return "file"
	case NodeDir:
		return "directory"
	case NodeNone:
		return "none"
	default:
		return "unknown"
	}
}

// PropValue is an opaque property value. A nil PropValue passed to a
// Change*Prop call means "delete this property".
type PropValue []byte

// WindowSink receives a text-delta window stream for one file handle (see
// svndiff.Window). A nil *svndiff.Window terminates the stream. Declared
// here as an interface over an opaque payload so delta does not import
// svndiff (svndiff is a leaf codec; delta is the protocol that carries it).
type WindowSink interface {
	// PushWindow consumes one window, or terminates the stream when window
	// is nil. The terminating call is mandatory once PushWindow has been
	// called at least once; emitting zero windows total (not even the nil
	// terminator) is a protocol violation satisfied by calling PushWindow(nil)
	// on an untouched file.
	PushWindow(window interface{}) error
}

// DirHandle and FileHandle are opaque handles returned by open/add calls.
// Editors are free to use any concrete type (struct pointer, integer
// index into a handle table); delta never inspects them.
type DirHandle interface{}
type FileHandle interface{}

// Editor is the tree-edit consumer contract of spec §4.1. Implementations
// must enforce: each returned handle sees exactly one matching Close call;
// delete-entry precedes any add-* of the same name within one parent;
// apply-textdelta is called at most once per file handle; CloseEdit xor
// AbortEdit is called exactly once and terminates the session.
type Editor interface {
	// SetTargetRevision announces the revision this edit targets. Optional;
	// called at most once, before OpenRoot.
	SetTargetRevision(rev Revision) error

	// OpenRoot begins the edit against baseRev and returns the root
	// directory handle.
	OpenRoot(baseRev Revision) (DirHandle, error)

	DeleteEntry(parent DirHandle, name string, baseRev Revision) error

	AddDirectory(parent DirHandle, name string, copyFromPath string, copyFromRev Revision) (DirHandle, error)
	OpenDirectory(parent DirHandle, name string, baseRev Revision) (DirHandle, error)
	ChangeDirProp(dir DirHandle, name string, value PropValue) error
	AbsentDirectory(parent DirHandle, name string) error
	CloseDirectory(dir DirHandle) error

	AddFile(parent DirHandle, name string, copyFromPath string, copyFromRev Revision) (FileHandle, error)
	OpenFile(parent DirHandle, name string, baseRev Revision) (FileHandle, error)
	ChangeFileProp(file FileHandle, name string, value PropValue) error
	AbsentFile(parent DirHandle, name string) error
	// ApplyTextDelta begins a text-delta application to file. baseChecksum,
	// if non-empty, is the checksum the consumer must verify its stored
	// source against before applying. Returns a sink to push windows to.
	ApplyTextDelta(file FileHandle, baseChecksum string) (WindowSink, error)
	// CloseFile ends a file edit. targetChecksum, if non-empty, must be
	// verified against the applied result.
	CloseFile(file FileHandle, targetChecksum string) error

	CloseEdit() error
	AbortEdit() error
}

// sessionState tracks the protocol state machine described in spec §3/§4.1 so
// combinators and tests can assert invariants without duplicating
// bookkeeping in every Editor implementation. It is not itself an Editor;
// wrap one with NewTrackedEditor to get enforcement for free.
type sessionState int

const (
	stateInitial sessionState = iota
	stateRootOpened
	stateClosed
	stateAborted
)

// TrackedEditor wraps an Editor and enforces the open/close accounting and
// single-terminal-call invariants from spec §4.1's Testable Property 1. Any
// violation surfaces as a KindProtocolViolation error instead of silently
// corrupting the downstream editor's state.
type TrackedEditor struct {
	inner     Editor
	state     sessionState
	openDirs  map[DirHandle]bool
	openFiles map[FileHandle]bool
	deltaDone map[FileHandle]bool
}

// NewTrackedEditor wraps inner with protocol bookkeeping.
func NewTrackedEditor(inner Editor) *TrackedEditor {
	return &TrackedEditor{
		inner:     inner,
		openDirs:  make(map[DirHandle]bool),
		openFiles: make(map[FileHandle]bool),
		deltaDone: make(map[FileHandle]bool),
	}
}

func (t *TrackedEditor) SetTargetRevision(rev Revision) error {
	if t.state != stateInitial {
		return New(KindProtocolViolation, "set-target-revision must precede open-root")
	}
	return t.inner.SetTargetRevision(rev)
}

func (t *TrackedEditor) OpenRoot(baseRev Revision) (DirHandle, error) {
	if t.state != stateInitial {
		return nil, New(KindProtocolViolation, "open-root called twice")
	}
	h, err := t.inner.OpenRoot(baseRev)
	if err != nil {
		return nil, err
	}
	t.state = stateRootOpened
	t.openDirs[h] = true
	return h, nil
}

func (t *TrackedEditor) requireDir(h DirHandle) error {
	if !t.openDirs[h] {
		return New(KindProtocolViolation, "directory handle not open")
	}
	return nil
}

func (t *TrackedEditor) DeleteEntry(parent DirHandle, name string, baseRev Revision) error {
	if err := t.requireDir(parent); err != nil {
		return err
	}
	return t.inner.DeleteEntry(parent, name, baseRev)
}

func (t *TrackedEditor) AddDirectory(parent DirHandle, name, copyFromPath string, copyFromRev Revision) (DirHandle, error) {
	if err := t.requireDir(parent); err != nil {
		return nil, err
	}
	h, err := t.inner.AddDirectory(parent, name, copyFromPath, copyFromRev)
	if err != nil {
		return nil, err
	}
	t.openDirs[h] = true
	return h, nil
}

func (t *TrackedEditor) OpenDirectory(parent DirHandle, name string, baseRev Revision) (DirHandle, error) {
	if err := t.requireDir(parent); err != nil {
		return nil, err
	}
	h, err := t.inner.OpenDirectory(parent, name, baseRev)
	if err != nil {
		return nil, err
	}
	t.openDirs[h] = true
	return h, nil
}

func (t *TrackedEditor) ChangeDirProp(dir DirHandle, name string, value PropValue) error {
	if err := t.requireDir(dir); err != nil {
		return err
	}
	return t.inner.ChangeDirProp(dir, name, value)
}

func (t *TrackedEditor) AbsentDirectory(parent DirHandle, name string) error {
	if err := t.requireDir(parent); err != nil {
		return err
	}
	return t.inner.AbsentDirectory(parent, name)
}

func (t *TrackedEditor) CloseDirectory(dir DirHandle) error {
	if err := t.requireDir(dir); err != nil {
		return err
	}
	delete(t.openDirs, dir)
	return t.inner.CloseDirectory(dir)
}

func (t *TrackedEditor) AddFile(parent DirHandle, name, copyFromPath string, copyFromRev Revision) (FileHandle, error) {
	if err := t.requireDir(parent); err != nil {
		return nil, err
	}
	h, err := t.inner.AddFile(parent, name, copyFromPath, copyFromRev)
	if err != nil {
		return nil, err
	}
	t.openFiles[h] = true
	return h, nil
}

func (t *TrackedEditor) OpenFile(parent DirHandle, name string, baseRev Revision) (FileHandle, error) {
	if err := t.requireDir(parent); err != nil {
		return nil, err
	}
	h, err := t.inner.OpenFile(parent, name, baseRev)
	if err != nil {
		return nil, err
	}
	t.openFiles[h] = true
	return h, nil
}

func (t *TrackedEditor) requireFile(h FileHandle) error {
	if !t.openFiles[h] {
		return New(KindProtocolViolation, "file handle not open")
	}
	return nil
}

func (t *TrackedEditor) ChangeFileProp(file FileHandle, name string, value PropValue) error {
	if err := t.requireFile(file); err != nil {
		return err
	}
	return t.inner.ChangeFileProp(file, name, value)
}

func (t *TrackedEditor) AbsentFile(parent DirHandle, name string) error {
	if err := t.requireDir(parent); err != nil {
		return err
	}
	return t.inner.AbsentFile(parent, name)
}

func (t *TrackedEditor) ApplyTextDelta(file FileHandle, baseChecksum string) (WindowSink, error) {
	if err := t.requireFile(file); err != nil {
		return nil, err
	}
	if t.deltaDone[file] {
		return nil, New(KindProtocolViolation, "apply-textdelta called twice on one file handle")
	}
	t.deltaDone[file] = true
	return t.inner.ApplyTextDelta(file, baseChecksum)
}

func (t *TrackedEditor) CloseFile(file FileHandle, targetChecksum string) error {
	if err := t.requireFile(file); err != nil {
		return err
	}
	delete(t.openFiles, file)
	return t.inner.CloseFile(file, targetChecksum)
}

func (t *TrackedEditor) CloseEdit() error {
	if t.state != stateRootOpened {
		return New(KindProtocolViolation, "close-edit without open-root")
	}
	if len(t.openDirs) != 0 || len(t.openFiles) != 0 {
		return New(KindProtocolViolation, "close-edit with handles still open")
	}
	t.state = stateClosed
	return t.inner.CloseEdit()
}

func (t *TrackedEditor) AbortEdit() error {
	if t.state == stateClosed || t.state == stateAborted {
		return New(KindProtocolViolation, "abort-edit after edit already terminated")
	}
	t.state = stateAborted
	return t.inner.AbortEdit()
}
