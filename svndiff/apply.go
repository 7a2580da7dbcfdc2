package svndiff

import (
	"crypto/sha1"
	"hash"
	"io"

	"github.com/rcowham/svncore/delta"
)

// Sink adapts a streaming Window sequence onto an io.Writer, implementing
// delta.WindowSink so it can be returned directly from an Editor's
// ApplyTextDelta. It never buffers the whole target: each window is
// applied and written as it arrives, with only a running hash kept for the
// eventual result-checksum verification (spec §4.3's streaming property).
type Sink struct {
	source []byte
	out    io.Writer
	h      hash.Hash
	err    error
}

// NewSink returns a Sink that reconstructs target bytes by applying
// windows against source, writing each window's output to out as it
// arrives.
func NewSink(source []byte, out io.Writer) *Sink {
	return &Sink{source: source, out: out, h: sha1.New()}
}

// PushWindow implements delta.WindowSink. w must be a *Window, or nil to
// terminate the stream (spec §4.1/§4.3: the terminating null window is
// mandatory once a delta application has begun).
func (s *Sink) PushWindow(w interface{}) error {
	if s.err != nil {
		return s.err
	}
	if w == nil {
		return nil // terminator: nothing further to apply
	}
	win, ok := w.(*Window)
	if !ok {
		s.err = delta.New(delta.KindProtocolViolation, "svndiff.Sink received non-Window payload")
		return s.err
	}
	if win == nil {
		return nil // a nil *Window is the terminator too
	}
	target, err := win.Apply(s.source)
	if err != nil {
		s.err = err
		return err
	}
	if _, err := s.out.Write(target); err != nil {
		s.err = err
		return err
	}
	s.h.Write(target)
	return nil
}

// Finish verifies the accumulated output against wantChecksum (empty means
// "no target checksum supplied", always satisfied) and returns the
// computed checksum regardless.
func (s *Sink) Finish(wantChecksum string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	got := hexSum(s.h)
	if wantChecksum != "" && got != wantChecksum {
		return got, delta.New(delta.KindBadChecksum, "result checksum mismatch: want %s got %s", wantChecksum, got)
	}
	return got, nil
}

func hexSum(h hash.Hash) string {
	sum := h.Sum(nil)
	const hextable = "0123456789abcdef"
	out := make([]byte, len(sum)*2)
	for i, b := range sum {
		out[i*2] = hextable[b>>4]
		out[i*2+1] = hextable[b&0x0f]
	}
	return string(out)
}

// ApplyAll is the non-streaming convenience form: apply every window in
// order against source and return the full target plus its checksum.
// Emitting zero windows total (not even a nil terminator) is a protocol
// violation per spec §4.3.
func ApplyAll(source []byte, windows []*Window) ([]byte, string, error) {
	if len(windows) == 0 {
		return nil, "", delta.New(delta.KindProtocolViolation, "text-delta stream emitted zero windows, expected at least the null terminator")
	}
	var buf []byte
	h := sha1.New()
	for _, w := range windows {
		if w == nil {
			continue
		}
		chunk, err := w.Apply(source)
		if err != nil {
			return nil, "", err
		}
		buf = append(buf, chunk...)
		h.Write(chunk)
	}
	return buf, hexSum(h), nil
}
