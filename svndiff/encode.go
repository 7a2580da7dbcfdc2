package svndiff

// DefaultChunkSize bounds how much of a target's "new" content a single
// streamed window carries, keeping peak memory for a window's NewData
// bounded regardless of file size (spec §4.3's streaming property, §5's
// scoped-region discipline).
const DefaultChunkSize = 64 * 1024

// Encode produces a single, non-streamed Window transforming source into
// target, using a common-prefix/common-suffix match against the source to
// avoid re-sending unchanged bytes. It is not a general-purpose binary
// diff (no interior match search) — good enough for the append/prepend/
// edit-in-the-middle shapes that dominate real commits, and always
// correct: the uncovered middle span of target is always sent verbatim via
// OpInsertNew, so Apply(Encode(source, target)) == target for any inputs.
func Encode(source, target []byte) *Window {
	prefix := commonPrefixLen(source, target)
	// Cap the suffix match so it never overlaps the prefix match.
	maxSuffix := min(len(source), len(target)) - prefix
	suffix := commonSuffixLen(source[prefix:], target[prefix:], maxSuffix)

	midSourceLen := len(source) - prefix - suffix
	midTargetStart := prefix
	midTargetEnd := len(target) - suffix

	w := &Window{
		SourceViewOffset: 0,
		SourceViewLength: len(source),
		TargetViewLength: len(target),
	}
	newData := target[midTargetStart:midTargetEnd]
	w.NewData = append([]byte(nil), newData...)

	if prefix > 0 {
		w.Ops = append(w.Ops, Op{Kind: OpCopyFromSource, Offset: 0, Length: prefix})
	}
	if len(newData) > 0 {
		w.Ops = append(w.Ops, Op{Kind: OpInsertNew, Offset: 0, Length: len(newData)})
	}
	if suffix > 0 {
		w.Ops = append(w.Ops, Op{Kind: OpCopyFromSource, Offset: prefix + midSourceLen, Length: suffix})
	}
	return w
}

// EncodeStream is the streaming counterpart of Encode: it chunks the
// "new" middle span across as many windows as needed so no single window's
// NewData exceeds chunkSize, terminated by a nil window per spec §4.1/§4.3.
// The unchanged prefix/suffix still travel as single COPY-FROM-SOURCE ops
// (they carry no payload, so chunking them would not bound memory further).
func EncodeStream(source, target []byte, chunkSize int) []*Window {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	full := Encode(source, target)
	if len(full.NewData) <= chunkSize {
		return []*Window{full, nil}
	}

	var windows []*Window
	// Encode emits its prefix copy (at source offset 0) only when the common
	// prefix is non-empty; with no prefix, a copy at offset 0 is the suffix.
	prefix := commonPrefixLen(source, target)
	// First window: prefix copy (if any) plus the first chunk of new data.
	pos := 0
	first := true
	for pos < len(full.NewData) {
		end := pos + chunkSize
		if end > len(full.NewData) {
			end = len(full.NewData)
		}
		chunk := full.NewData[pos:end]
		win := &Window{TargetViewLength: len(chunk), NewData: append([]byte(nil), chunk...)}
		if first && prefix > 0 {
			win.SourceViewOffset = 0
			win.SourceViewLength = prefix
			win.TargetViewLength += prefix
			win.Ops = append(win.Ops, Op{Kind: OpCopyFromSource, Offset: 0, Length: prefix})
		}
		win.Ops = append(win.Ops, Op{Kind: OpInsertNew, Offset: 0, Length: len(chunk)})
		windows = append(windows, win)
		pos = end
		first = false
	}
	// Trailing suffix copy, if any, as its own window.
	for _, op := range full.Ops {
		if op.Kind == OpCopyFromSource && (prefix == 0 || op.Offset != 0) {
			windows = append(windows, &Window{
				SourceViewOffset: op.Offset,
				SourceViewLength: op.Length,
				TargetViewLength: op.Length,
				Ops:              []Op{{Kind: OpCopyFromSource, Offset: 0, Length: op.Length}},
			})
		}
	}
	windows = append(windows, nil)
	return windows
}

func commonPrefixLen(a, b []byte) int {
	n := min(len(a), len(b))
	i := 0
	for i < n && a[i] == b[i] {
		i++
	}
	return i
}

func commonSuffixLen(a, b []byte, max int) int {
	n := min(len(a), len(b))
	if max < n {
		n = max
	}
	i := 0
	for i < n && a[len(a)-1-i] == b[len(b)-1-i] {
		i++
	}
	return i
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
