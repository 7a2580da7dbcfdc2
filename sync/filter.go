package sync

import (
	"strings"

	"github.com/rcowham/svncore/delta"
)

// PathRewriter rewrites a copyfrom path from the source's URL space into
// the destination's, e.g. stripping/replacing a repository-root prefix so
// a copy recorded against the source's canonical URL still resolves once
// replayed into the mirror (spec §4.8: "rewrites copyfrom URLs from
// source-relative to destination-relative").
type PathRewriter func(sourcePath string) string

// normalizeEOL replaces CR and CRLF with LF in an svn:* property value
// before it reaches the destination (spec §4.8's property-normalization
// rule), returning the normalized value and whether anything changed.
func normalizeEOL(value string) (string, bool) {
	if !strings.ContainsAny(value, "\r") {
		return value, false
	}
	var b strings.Builder
	b.Grow(len(value))
	for i := 0; i < len(value); i++ {
		switch value[i] {
		case '\r':
			b.WriteByte('\n')
			if i+1 < len(value) && value[i+1] == '\n' {
				i++
			}
		default:
			b.WriteByte(value[i])
		}
	}
	return b.String(), true
}

// isRegularProp reports whether name is a property the sync filter lets
// through. Non-regular (wc-bookkeeping-only) property namespaces never
// belong on a replicated node and are silently dropped rather than
// forwarded, per spec §4.8.
func isRegularProp(name string) bool {
	return !strings.HasPrefix(name, "svn:entry:") && !strings.HasPrefix(name, "svn:wc:")
}

// FilterStats counts normalizations performed by a SyncFilter editor, for
// the sync engine's end-of-run report.
type FilterStats struct {
	PropsNormalized int
	PropsDropped    int
}

// SyncFilter wraps a destination commit editor so that every property
// change is normalized/filtered and every copyfrom path is rewritten
// before being forwarded, implementing the transform spec §4.8 names as
// step 2(a) of one sync iteration: "a sync-filter editor that drops
// non-regular properties, rewrites copyfrom URLs ..., and normalizes line
// endings in svn:* property values."
func SyncFilter(inner delta.Editor, rewrite PathRewriter, stats *FilterStats) delta.Editor {
	if rewrite == nil {
		rewrite = func(p string) string { return p }
	}
	if stats == nil {
		stats = &FilterStats{}
	}
	return &syncFilterEditor{inner: inner, rewrite: rewrite, stats: stats}
}

type syncFilterEditor struct {
	inner   delta.Editor
	rewrite PathRewriter
	stats   *FilterStats
}

func (f *syncFilterEditor) filterProp(name string, value delta.PropValue) (delta.PropValue, bool) {
	if !isRegularProp(name) {
		f.stats.PropsDropped++
		return nil, false
	}
	if value == nil || !strings.HasPrefix(name, "svn:") {
		return value, true
	}
	normalized, changed := normalizeEOL(string(value))
	if changed {
		f.stats.PropsNormalized++
	}
	return delta.PropValue(normalized), true
}

func (f *syncFilterEditor) SetTargetRevision(rev delta.Revision) error {
	return f.inner.SetTargetRevision(rev)
}

func (f *syncFilterEditor) OpenRoot(baseRev delta.Revision) (delta.DirHandle, error) {
	return f.inner.OpenRoot(baseRev)
}

func (f *syncFilterEditor) DeleteEntry(parent delta.DirHandle, name string, baseRev delta.Revision) error {
	return f.inner.DeleteEntry(parent, name, baseRev)
}

func (f *syncFilterEditor) AddDirectory(parent delta.DirHandle, name, copyFromPath string, copyFromRev delta.Revision) (delta.DirHandle, error) {
	return f.inner.AddDirectory(parent, name, f.rewrite(copyFromPath), copyFromRev)
}

func (f *syncFilterEditor) OpenDirectory(parent delta.DirHandle, name string, baseRev delta.Revision) (delta.DirHandle, error) {
	return f.inner.OpenDirectory(parent, name, baseRev)
}

func (f *syncFilterEditor) ChangeDirProp(dir delta.DirHandle, name string, value delta.PropValue) error {
	v, keep := f.filterProp(name, value)
	if !keep {
		return nil
	}
	return f.inner.ChangeDirProp(dir, name, v)
}

func (f *syncFilterEditor) AbsentDirectory(parent delta.DirHandle, name string) error {
	return f.inner.AbsentDirectory(parent, name)
}

func (f *syncFilterEditor) CloseDirectory(dir delta.DirHandle) error {
	return f.inner.CloseDirectory(dir)
}

func (f *syncFilterEditor) AddFile(parent delta.DirHandle, name, copyFromPath string, copyFromRev delta.Revision) (delta.FileHandle, error) {
	return f.inner.AddFile(parent, name, f.rewrite(copyFromPath), copyFromRev)
}

func (f *syncFilterEditor) OpenFile(parent delta.DirHandle, name string, baseRev delta.Revision) (delta.FileHandle, error) {
	return f.inner.OpenFile(parent, name, baseRev)
}

func (f *syncFilterEditor) ChangeFileProp(file delta.FileHandle, name string, value delta.PropValue) error {
	v, keep := f.filterProp(name, value)
	if !keep {
		return nil
	}
	return f.inner.ChangeFileProp(file, name, v)
}

func (f *syncFilterEditor) AbsentFile(parent delta.DirHandle, name string) error {
	return f.inner.AbsentFile(parent, name)
}

func (f *syncFilterEditor) ApplyTextDelta(file delta.FileHandle, baseChecksum string) (delta.WindowSink, error) {
	return f.inner.ApplyTextDelta(file, baseChecksum)
}

func (f *syncFilterEditor) CloseFile(file delta.FileHandle, targetChecksum string) error {
	return f.inner.CloseFile(file, targetChecksum)
}

func (f *syncFilterEditor) CloseEdit() error { return f.inner.CloseEdit() }
func (f *syncFilterEditor) AbortEdit() error { return f.inner.AbortEdit() }

var _ delta.Editor = (*syncFilterEditor)(nil)
