package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmptyConfig(t *testing.T) {
	cfg := loadOrFail(t, "")
	assert.Equal(t, DefaultEOLStyle, cfg.DefaultEOLStyle)
	assert.Empty(t, cfg.AutoProps)
	assert.Empty(t, cfg.PathRewrites)
}

func TestAutoPropsMatch(t *testing.T) {
	const cfgYAML = `
auto_props:
- pattern: "*.txt"
  props:
    svn:eol-style: native
- pattern: "*.sh"
  props:
    svn:eol-style: LF
    svn:executable: "*"
`
	cfg := loadOrFail(t, cfgYAML)
	require.Len(t, cfg.AutoProps, 2)

	props := cfg.MatchAutoProps("docs/readme.txt")
	assert.Equal(t, "native", props["svn:eol-style"])

	props = cfg.MatchAutoProps("bin/run.sh")
	assert.Equal(t, "LF", props["svn:eol-style"])
	assert.Equal(t, "*", props["svn:executable"])

	assert.Empty(t, cfg.MatchAutoProps("image.png"))
}

func TestAutoPropsLaterRuleOverrides(t *testing.T) {
	const cfgYAML = `
auto_props:
- pattern: "*.txt"
  props:
    svn:eol-style: native
- pattern: "special.txt"
  props:
    svn:eol-style: CRLF
`
	cfg := loadOrFail(t, cfgYAML)
	props := cfg.MatchAutoProps("special.txt")
	assert.Equal(t, "CRLF", props["svn:eol-style"])
}

func TestAutoPropsRejectsBadPattern(t *testing.T) {
	ensureFail(t, `
auto_props:
- pattern: "["
  props:
    svn:eol-style: native
`, "bad glob pattern")
}

func TestAutoPropsRejectsEmptyProps(t *testing.T) {
	ensureFail(t, `
auto_props:
- pattern: "*.txt"
  props:
`, "rule with no properties")
}

func TestPathRewrite(t *testing.T) {
	const cfgYAML = `
path_rewrites:
- name: "^trunk/"
  prefix: "mirror/"
`
	cfg := loadOrFail(t, cfgYAML)
	rewritten, ok := cfg.RewritePath("trunk/lib/foo.c")
	require.True(t, ok)
	assert.Equal(t, "mirror/lib/foo.c", rewritten)

	_, ok = cfg.RewritePath("branches/stable/lib/foo.c")
	assert.False(t, ok)
}

func TestPathRewriteRejectsBadRegex(t *testing.T) {
	ensureFail(t, `
path_rewrites:
- name: "trunk/[("
  prefix: "mirror/"
`, "bad regex in path rewrite")
}

func TestExcludePaths(t *testing.T) {
	const cfgYAML = `
exclude_paths:
- "^vendor/"
- "\\.tmp$"
`
	cfg := loadOrFail(t, cfgYAML)
	assert.True(t, cfg.IsExcluded("vendor/lib/foo.go"))
	assert.True(t, cfg.IsExcluded("build/out.tmp"))
	assert.False(t, cfg.IsExcluded("src/main.go"))
}

func TestExcludePathsRejectsBadRegex(t *testing.T) {
	ensureFail(t, `
exclude_paths:
- "["
`, "bad regex in exclude_paths")
}

func ensureFail(t *testing.T, cfgString string, desc string) {
	_, err := Unmarshal([]byte(cfgString))
	if err == nil {
		t.Fatalf("Expected config err not found: %s", desc)
	}
	t.Logf("Config err: %v", err.Error())
}

func loadOrFail(t *testing.T, cfgString string) *Config {
	cfg, err := Unmarshal([]byte(cfgString))
	if err != nil {
		t.Fatalf("Failed to read config: %v", err.Error())
	}
	return cfg
}
