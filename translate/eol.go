// Package translate implements the boundary transform between a file's
// repository form and its working-copy form: EOL normalization, keyword
// expansion/contraction, and special-file (symlink) round-tripping. See
// spec §4.4. Grounded on 1.1.x/subversion/libsvn_wc/translate.c and
// subversion/libsvn_subr/subst.c; binary detection uses
// github.com/h2non/filetype (a teacher dependency) to gate translation off
// non-text blobs, mirroring svn's auto mime-type detection.
package translate

import (
	"bytes"
	"runtime"

	"github.com/rcowham/svncore/delta"
)

// Style is the svn:eol-style property value, spec §4.4.
type Style string

const (
	StyleNone  Style = "none"
	StyleNative Style = "native"
	StyleLF    Style = "LF"
	StyleCR    Style = "CR"
	StyleCRLF  Style = "CRLF"
	StyleFixed Style = "fixed"
)

var (
	lf   = []byte{'\n'}
	cr   = []byte{'\r'}
	crlf = []byte{'\r', '\n'}
)

// NativeEOL is the local platform's line separator.
func NativeEOL() []byte {
	if runtime.GOOS == "windows" {
		return crlf
	}
	return lf
}

func separatorFor(style Style, fixed []byte) ([]byte, error) {
	switch style {
	case StyleNone:
		return nil, nil
	case StyleNative:
		return NativeEOL(), nil
	case StyleLF:
		return lf, nil
	case StyleCR:
		return cr, nil
	case StyleCRLF:
		return crlf, nil
	case StyleFixed:
		if len(fixed) == 0 {
			return nil, delta.New(delta.KindUnknownEOLStyle, "fixed eol-style requires a literal separator")
		}
		return fixed, nil
	default:
		return nil, delta.New(delta.KindUnknownEOLStyle, "unrecognized eol-style %q", style)
	}
}

// splitLines splits data on any of \n, \r\n, \r and reports which raw
// separator byte sequences were actually observed (for consistency
// checking) along with the line contents.
func splitLines(data []byte) (lines [][]byte, seps [][]byte) {
	i := 0
	for i < len(data) {
		j := i
		for j < len(data) && data[j] != '\n' && data[j] != '\r' {
			j++
		}
		lines = append(lines, data[i:j])
		if j >= len(data) {
			seps = append(seps, nil)
			break
		}
		if data[j] == '\r' && j+1 < len(data) && data[j+1] == '\n' {
			seps = append(seps, crlf)
			j += 2
		} else if data[j] == '\r' {
			seps = append(seps, cr)
			j++
		} else {
			seps = append(seps, lf)
			j++
		}
		i = j
	}
	return lines, seps
}

func distinctSeps(seps [][]byte) [][]byte {
	var distinct [][]byte
	for _, s := range seps {
		if s == nil {
			continue
		}
		found := false
		for _, d := range distinct {
			if bytes.Equal(d, s) {
				found = true
				break
			}
		}
		if !found {
			distinct = append(distinct, s)
		}
	}
	return distinct
}

// ToLocal converts repository-form bytes (canonically LF-delimited) to
// working-copy form using style. If the input's line endings are
// inconsistent (mix of \n, \r\n, \r) and repair is false, returns a
// KindInconsistentEOL error (spec §4.4, scenario E3). With repair true, any
// line ending found is treated as a line break and rewritten to style's
// separator.
func ToLocal(data []byte, style Style, fixed []byte, repair bool) ([]byte, error) {
	sep, err := separatorFor(style, fixed)
	if err != nil {
		return nil, err
	}
	if style == StyleNone {
		return data, nil
	}
	lines, seps := splitLines(data)
	if !repair {
		if distinct := distinctSeps(seps); len(distinct) > 1 {
			return nil, delta.New(delta.KindInconsistentEOL,
				"file has inconsistent line endings; repair not requested")
		}
	}
	var out bytes.Buffer
	for i, line := range lines {
		out.Write(line)
		if seps[i] != nil {
			out.Write(sep)
		}
	}
	return out.Bytes(), nil
}

// ToRepository converts working-copy form bytes back to repository form:
// every recognized line ending is normalized to LF (spec Testable
// Property 5: the result contains no CR byte), regardless of eol-style —
// this direction never errors on mixed input, since normalizing mixed
// endings to one canonical form is exactly its job.
func ToRepository(data []byte) []byte {
	lines, seps := splitLines(data)
	var out bytes.Buffer
	for i, line := range lines {
		out.Write(line)
		if seps[i] != nil {
			out.Write(lf)
		}
	}
	return out.Bytes()
}
