package translate

import (
	"github.com/h2non/filetype"

	"github.com/rcowham/svncore/delta"
)

// Config is the resolved set of svn:* translation properties for one file,
// spec §4.4. A zero Config (EOLStyle == "") is treated as StyleNone with no
// keywords — i.e. a pure pass-through.
type Config struct {
	EOLStyle    Style
	FixedEOL    []byte            // only consulted when EOLStyle == StyleFixed
	Keywords    map[Keyword]bool
	Special     bool
	FixedWidth  int // >0 selects the fixed-width keyword-marker variant
}

// KeywordValues supplies the live substitution values for one node at
// translation time, filled in by the caller from the node's revision,
// URL, author and date (spec §4.4, §6, §5).
type KeywordValues struct {
	Revision string
	Date     string
	Author   string
	URL      string
	ID       string
	Header   string
}

func (v KeywordValues) asMap() map[Keyword]string {
	return map[Keyword]string{
		KeywordRevision: v.Revision,
		KeywordDate:     v.Date,
		KeywordAuthor:   v.Author,
		KeywordURL:      v.URL,
		KeywordID:       v.ID,
		KeywordHeader:   v.Header,
	}
}

// isBinary gates translation off entirely for content that doesn't look
// like text, mirroring svn's refusal to mangle binary files regardless of
// eol-style/keywords being (mis)configured on them. Detection is via
// content sniffing rather than trusting svn:mime-type alone, since a file
// can carry translation properties without an accurate mime-type set.
func isBinary(data []byte) bool {
	kind, err := filetype.Match(data)
	if err != nil {
		return false
	}
	return kind != filetype.Unknown && kind.MIME.Type != "text"
}

// ToWorkingCopy renders repository-form content into working-copy form:
// expand keywords, then convert EOLs to the configured style. Special
// files are decoded to their symlink target and returned with special=true
// so the caller can materialize a real symlink instead of writing bytes.
func ToWorkingCopy(data []byte, cfg Config, values KeywordValues, repair bool) (out []byte, special bool, link string, err error) {
	if cfg.Special {
		target, derr := DecodeSpecialLink(data)
		if derr != nil {
			return nil, false, "", derr
		}
		return nil, true, target, nil
	}
	if isBinary(data) {
		return data, false, "", nil
	}
	expanded := data
	if len(cfg.Keywords) > 0 {
		if cfg.FixedWidth > 0 {
			expanded = expandFixedWidth(data, cfg.Keywords, values.asMap(), cfg.FixedWidth)
		} else {
			expanded = Expand(data, cfg.Keywords, values.asMap())
		}
	}
	style := cfg.EOLStyle
	if style == "" {
		style = StyleNone
	}
	localized, lerr := ToLocal(expanded, style, cfg.FixedEOL, repair)
	if lerr != nil {
		return nil, false, "", lerr
	}
	return localized, false, "", nil
}

// ToRepositoryForm renders working-copy content back into repository form:
// normalize EOLs to LF, then contract keywords back to their bare $Name$
// markers so the repository never stores an expanded value (spec §4.4,
// Testable Property 4). A symlink's target is re-encoded as its textual
// special-file record.
func ToRepositoryForm(data []byte, cfg Config, special bool, linkTarget string) ([]byte, error) {
	if cfg.Special || special {
		return EncodeSpecialLink(linkTarget), nil
	}
	if isBinary(data) {
		return data, nil
	}
	normalized := ToRepository(data)
	return Contract(normalized), nil
}

func expandFixedWidth(data []byte, enabled map[Keyword]bool, values map[Keyword]string, width int) []byte {
	return markerPattern.ReplaceAllFunc(data, func(m []byte) []byte {
		sub := markerPattern.FindSubmatch(m)
		name := Keyword(sub[1])
		if !enabled[name] {
			return m
		}
		return []byte(ExpandKeywordFixed(string(name), values[name], width))
	})
}

// ValidateConfig rejects a Config with an unusable combination of fields,
// e.g. StyleFixed with no literal separator supplied.
func ValidateConfig(cfg Config) error {
	if cfg.EOLStyle == StyleFixed && len(cfg.FixedEOL) == 0 {
		return delta.New(delta.KindUnknownEOLStyle, "eol-style=fixed requires an explicit separator")
	}
	switch cfg.EOLStyle {
	case "", StyleNone, StyleNative, StyleLF, StyleCR, StyleCRLF, StyleFixed:
	default:
		return delta.New(delta.KindUnknownEOLStyle, "unrecognized eol-style %q", cfg.EOLStyle)
	}
	return nil
}
