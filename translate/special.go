package translate

import (
	"fmt"
	"strings"

	"github.com/rcowham/svncore/delta"
)

// specialLinkPrefix is the textual record svn stores in the repository for
// a symlink node (svn:special=*), spec §4.4's special-file round-trip.
const specialLinkPrefix = "link "

// EncodeSpecialLink renders a symlink's target as the repository-form
// bytes stored for an svn:special file, so the on-disk representation is
// portable to platforms that cannot create a real symlink.
func EncodeSpecialLink(target string) []byte {
	return []byte(specialLinkPrefix + target)
}

// DecodeSpecialLink parses repository-form bytes of an svn:special file
// back into the symlink target they record. Returns an error if data is
// not a recognized special-file record.
func DecodeSpecialLink(data []byte) (string, error) {
	s := string(data)
	if !strings.HasPrefix(s, specialLinkPrefix) {
		return "", delta.New(delta.KindProtocolViolation, "not a recognized special-file record: %q", truncate(s, 40))
	}
	return strings.TrimSuffix(strings.TrimPrefix(s, specialLinkPrefix), "\n"), nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// IsSpecialRecord reports whether data looks like a special-file textual
// record at all (used to decide whether EOL/keyword translation should be
// skipped entirely for a node carrying svn:special).
func IsSpecialRecord(data []byte) bool {
	return strings.HasPrefix(string(data), specialLinkPrefix)
}

// String implements fmt.Stringer for debugging/log output of a decoded
// link target.
type SpecialLink string

func (l SpecialLink) String() string { return fmt.Sprintf("-> %s", string(l)) }
