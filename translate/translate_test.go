package translate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcowham/svncore/delta"
)

func TestToLocalRoundTripsConsistentStyles(t *testing.T) {
	for _, style := range []Style{StyleLF, StyleCR, StyleCRLF} {
		repoForm := []byte("A\nB\nC")
		local, err := ToLocal(repoForm, style, nil, false)
		require.NoError(t, err)
		back := ToRepository(local)
		assert.Equal(t, string(repoForm), string(back))
	}
}

func TestToLocalStyleNoneIsPassthrough(t *testing.T) {
	data := []byte("A\r\nB\nC\r")
	out, err := ToLocal(data, StyleNone, nil, false)
	require.NoError(t, err)
	assert.Equal(t, data, out)
}

func TestToLocalRejectsMixedEndingsWithoutRepair(t *testing.T) {
	// scenario E3: mixed line endings, repair not requested
	mixed := []byte("A\nB\r\nC\r")
	_, err := ToLocal(mixed, StyleNative, nil, false)
	require.Error(t, err)
	assert.True(t, delta.Is(err, delta.KindInconsistentEOL))
}

func TestToLocalRepairsMixedEndings(t *testing.T) {
	mixed := []byte("A\nB\r\nC\r")
	out, err := ToLocal(mixed, StyleLF, nil, true)
	require.NoError(t, err)
	assert.Equal(t, "A\nB\nC\n", string(out))
}

func TestToRepositoryAlwaysNormalizesToLF(t *testing.T) {
	out := ToRepository([]byte("A\r\nB\rC\n"))
	assert.Equal(t, "A\nB\nC\n", string(out))
	assert.NotContains(t, string(out), "\r")
}

func TestExpandAndContractKeywordRoundTrip(t *testing.T) {
	// scenario E4
	src := []byte("rev is $Revision$ done")
	enabled := ParseKeywordList("Revision")
	expanded := Expand(src, enabled, KeywordValues{Revision: "42"}.asMap())
	assert.Equal(t, "rev is $Revision: 42 $ done", string(expanded))

	contracted := Contract(expanded)
	assert.Equal(t, string(src), string(contracted))
}

func TestExpandLeavesDisabledKeywordsUntouched(t *testing.T) {
	src := []byte("$Author$ $Revision$")
	enabled := ParseKeywordList("revision") // only revision enabled
	out := Expand(src, enabled, KeywordValues{Revision: "7", Author: "jrandom"}.asMap())
	assert.Equal(t, "$Author$ $Revision: 7 $", string(out))
}

func TestExpandKeywordTruncatesOverlongValue(t *testing.T) {
	long := make([]byte, 0, MaxKeywordFieldLength*2)
	for i := 0; i < MaxKeywordFieldLength*2; i++ {
		long = append(long, 'x')
	}
	out := ExpandKeyword("Id", string(long))
	assert.LessOrEqual(t, len(out), MaxKeywordFieldLength)
	assert.Contains(t, out, "#$")
}

func TestExpandKeywordFixedPreservesWidth(t *testing.T) {
	short := ExpandKeywordFixed("Id", "v1", 40)
	long := ExpandKeywordFixed("Id", "a much much much longer revision string", 40)
	assert.Equal(t, 40, len(short))
	assert.Equal(t, 40, len(long))
	assert.Contains(t, long, "#")
}

func TestCanonicalizeAliases(t *testing.T) {
	cases := map[string]Keyword{
		"Rev":                 KeywordRevision,
		"LastChangedRevision": KeywordRevision,
		"HeadURL":             KeywordURL,
		"LastChangedBy":       KeywordAuthor,
	}
	for token, want := range cases {
		got, ok := Canonicalize(token)
		require.True(t, ok, token)
		assert.Equal(t, want, got)
	}
	_, ok := Canonicalize("NotAKeyword")
	assert.False(t, ok)
}

func TestSpecialLinkRoundTrip(t *testing.T) {
	encoded := EncodeSpecialLink("../shared/lib.so")
	assert.True(t, IsSpecialRecord(encoded))
	target, err := DecodeSpecialLink(encoded)
	require.NoError(t, err)
	assert.Equal(t, "../shared/lib.so", target)
}

func TestDecodeSpecialLinkRejectsGarbage(t *testing.T) {
	_, err := DecodeSpecialLink([]byte("not a link record"))
	require.Error(t, err)
}

func TestToWorkingCopyAndBackSpecialFile(t *testing.T) {
	cfg := Config{Special: true}
	repoForm := EncodeSpecialLink("target/path")

	_, special, link, err := ToWorkingCopy(repoForm, cfg, KeywordValues{}, false)
	require.NoError(t, err)
	require.True(t, special)
	assert.Equal(t, "target/path", link)

	back, err := ToRepositoryForm(nil, cfg, special, link)
	require.NoError(t, err)
	assert.Equal(t, string(repoForm), string(back))
}

func TestToWorkingCopyThenToRepositoryFormRoundTrip(t *testing.T) {
	cfg := Config{EOLStyle: StyleLF, Keywords: ParseKeywordList("Revision Author")}
	repoForm := []byte("line one\nby $Author$ at $Revision$\nline three\n")

	local, special, _, err := ToWorkingCopy(repoForm, cfg, KeywordValues{Author: "jrandom", Revision: "99"}, false)
	require.NoError(t, err)
	require.False(t, special)
	assert.Contains(t, string(local), "$Author: jrandom $")

	back, err := ToRepositoryForm(local, cfg, false, "")
	require.NoError(t, err)
	assert.Equal(t, string(repoForm), string(back))
}

func TestValidateConfigRejectsFixedStyleWithoutSeparator(t *testing.T) {
	err := ValidateConfig(Config{EOLStyle: StyleFixed})
	require.Error(t, err)
	assert.True(t, delta.Is(err, delta.KindUnknownEOLStyle))
}

func TestValidateConfigAcceptsKnownStyles(t *testing.T) {
	for _, s := range []Style{"", StyleNone, StyleNative, StyleLF, StyleCR, StyleCRLF} {
		assert.NoError(t, ValidateConfig(Config{EOLStyle: s}))
	}
}
