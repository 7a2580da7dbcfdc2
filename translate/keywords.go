package translate

import (
	"fmt"
	"regexp"
	"strings"
)

// Keyword is a canonical keyword name recognized in $Name$ markers, spec
// §4.4. The vocabulary and its aliases mirror svn_subst_keywords.c.
type Keyword string

const (
	KeywordRevision Keyword = "Revision"
	KeywordDate     Keyword = "Date"
	KeywordAuthor   Keyword = "Author"
	KeywordURL      Keyword = "URL"
	KeywordID       Keyword = "Id"
	KeywordHeader   Keyword = "Header"
)

// aliases maps every spelling a property's keyword list may use
// (case-insensitive) to its canonical Keyword. $Name$ markers in file
// content are recognized only in the canonical spelling (markerPattern).
var aliases = map[string]Keyword{
	"revision":            KeywordRevision,
	"rev":                 KeywordRevision,
	"lastchangedrevision":  KeywordRevision,
	"date":                 KeywordDate,
	"lastchangeddate":      KeywordDate,
	"author":               KeywordAuthor,
	"lastchangedby":        KeywordAuthor,
	"url":                  KeywordURL,
	"headurl":              KeywordURL,
	"id":                   KeywordID,
	"header":               KeywordHeader,
}

// Canonicalize resolves one whitespace-separated svn:keywords token (any
// case, any alias) to its canonical Keyword. The empty string and unknown
// tokens return ok=false so callers can skip them rather than fail the
// whole property (real svn clients are similarly forgiving of stray
// tokens).
func Canonicalize(token string) (Keyword, bool) {
	k, ok := aliases[strings.ToLower(token)]
	return k, ok
}

// ParseKeywordList splits an svn:keywords property value into the set of
// canonical keywords it enables.
func ParseKeywordList(prop string) map[Keyword]bool {
	out := make(map[Keyword]bool)
	for _, tok := range strings.Fields(prop) {
		if k, ok := Canonicalize(tok); ok {
			out[k] = true
		}
	}
	return out
}

// MaxKeywordFieldLength bounds an expanded $Name: value $ marker. Values
// that would overflow it are truncated with a trailing '#' sentinel (spec
// §4.4), matching svn's fixed on-disk marker budget.
const MaxKeywordFieldLength = 255

// markerPattern matches any $Name$ or $Name: ... $ marker for a recognized
// keyword name, case-sensitively on the canonical spelling — svn keyword
// markers in source files use the canonical form, not arbitrary aliases.
var markerPattern = regexp.MustCompile(`\$(Revision|Date|Author|URL|Id|Header)(:[^$\r\n]*)?\$`)

// Expand replaces every bare or already-expanded marker for an enabled
// keyword with "$Name: value $", truncating per MaxKeywordFieldLength with
// a '#' sentinel when value does not fit. Markers for keywords not present
// in enabled are left untouched.
func Expand(data []byte, enabled map[Keyword]bool, values map[Keyword]string) []byte {
	return markerPattern.ReplaceAllFunc(data, func(m []byte) []byte {
		sub := markerPattern.FindSubmatch(m)
		name := Keyword(sub[1])
		if !enabled[name] {
			return m
		}
		value := values[name]
		return []byte(ExpandKeyword(string(name), value))
	})
}

// ExpandKeyword formats one "$Name: value $" marker, truncating value with
// a '#' sentinel if the full marker would exceed MaxKeywordFieldLength.
func ExpandKeyword(name, value string) string {
	full := fmt.Sprintf("$%s: %s $", name, value)
	if len(full) <= MaxKeywordFieldLength {
		return full
	}
	avail := MaxKeywordFieldLength - len(fmt.Sprintf("$%s: ", name)) - len(" #$")
	if avail < 0 {
		avail = 0
	}
	if avail < len(value) {
		value = value[:avail]
	}
	return fmt.Sprintf("$%s: %s #$", name, value)
}

// ExpandKeywordFixed formats a fixed-width "$Name:: value $" marker whose
// total length never varies regardless of value's length — the variant
// svn uses for keywords embedded in binary-ish or column-aligned files,
// where a marker changing size on checkout would be unacceptable. Padding
// uses spaces; a value that doesn't fit is truncated with a trailing '#'
// sentinel occupying the last padded byte (spec §4.4).
func ExpandKeywordFixed(name, value string, width int) string {
	prefix := fmt.Sprintf("$%s:: ", name)
	suffix := " $"
	avail := width - len(prefix) - len(suffix)
	if avail < 0 {
		avail = 0
	}
	truncated := len(value) > avail
	v := value
	if truncated {
		if avail > 0 {
			v = value[:avail-1]
		} else {
			v = ""
		}
	}
	var b strings.Builder
	b.WriteString(v)
	for b.Len() < avail {
		b.WriteByte(' ')
	}
	padded := b.String()
	if truncated && len(padded) > 0 {
		padded = padded[:len(padded)-1] + "#"
	}
	return prefix + padded + suffix
}

// Contract reverses Expand: any marker for a recognized keyword, expanded
// or bare, is rewritten to its bare "$Name$" form. It does not consult
// enabled — contraction runs on checkin/commit regardless of which
// keywords are currently configured, since a file may carry stale markers
// from a keyword that was removed from svn:keywords after the fact.
func Contract(data []byte) []byte {
	return markerPattern.ReplaceAllFunc(data, func(m []byte) []byte {
		sub := markerPattern.FindSubmatch(m)
		return []byte("$" + string(sub[1]) + "$")
	})
}
