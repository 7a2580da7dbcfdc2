// Package config loads the auto-props and sync rewrite/exclude rules that
// govern translation defaults and path handling (spec §4.4, §8). Adapted
// from the teacher's config.go: the same default-then-unmarshal-then-
// validate load sequence and "compile patterns once at load time, not per
// path" shape, repurposed from git-branch-mapping to svn auto-props and
// sync path rules.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	yaml "gopkg.in/yaml.v2"
)

const DefaultEOLStyle = "native"

// AutoProp is one auto-props rule: a glob pattern matched against the
// final element (base name) of a repository path, plus the svn:* properties it sets when the pattern
// matches (spec §4.4's "default eol-style/keywords/mime-type/executable
// by path" behavior).
type AutoProp struct {
	Pattern string            `yaml:"pattern"`
	Props   map[string]string `yaml:"props"`
}

// PathRewrite maps a source repository path (matched by regex Name) to a
// destination prefix, used by the sync engine to relocate paths between
// source and mirror repositories (spec §8).
type PathRewrite struct {
	Name   string `yaml:"name"`
	Prefix string `yaml:"prefix"`
}

type compiledAutoProp struct {
	pattern string
	props   map[string]string
}

type compiledRewrite struct {
	re     *regexp.Regexp
	prefix string
}

// Config is the loaded, validated configuration.
type Config struct {
	DefaultEOLStyle string        `yaml:"default_eol_style"`
	AutoProps       []AutoProp    `yaml:"auto_props"`
	PathRewrites    []PathRewrite `yaml:"path_rewrites"`
	ExcludePaths    []string      `yaml:"exclude_paths"`

	compiledAutoProps []compiledAutoProp
	compiledRewrites  []compiledRewrite
	compiledExcludes  []*regexp.Regexp
}

// Unmarshal parses and validates a YAML configuration document.
func Unmarshal(data []byte) (*Config, error) {
	cfg := &Config{
		DefaultEOLStyle: DefaultEOLStyle,
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %v. use 'single quotes' around strings containing patterns", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile loads and validates configuration from a file path.
func LoadFile(filename string) (*Config, error) {
	content, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to load %v: %v", filename, err)
	}
	cfg, err := Unmarshal(content)
	if err != nil {
		return nil, fmt.Errorf("failed to load %v: %v", filename, err)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if len(c.AutoProps) > 0 {
		for _, a := range c.AutoProps {
			if _, err := filepath.Match(a.Pattern, "probe"); err != nil {
				return fmt.Errorf("failed to parse auto-props pattern '%s': %v", a.Pattern, err)
			}
			if len(a.Props) == 0 {
				return fmt.Errorf("auto-props rule for pattern '%s' sets no properties", a.Pattern)
			}
			c.compiledAutoProps = append(c.compiledAutoProps, compiledAutoProp{pattern: a.Pattern, props: a.Props})
		}
	}
	if len(c.PathRewrites) > 0 {
		for _, r := range c.PathRewrites {
			re, err := regexp.Compile(r.Name)
			if err != nil {
				return fmt.Errorf("failed to parse '%s' as a regex", r.Name)
			}
			c.compiledRewrites = append(c.compiledRewrites, compiledRewrite{re: re, prefix: r.Prefix})
		}
	}
	for _, p := range c.ExcludePaths {
		re, err := regexp.Compile(p)
		if err != nil {
			return fmt.Errorf("failed to parse exclude pattern '%s' as a regex", p)
		}
		c.compiledExcludes = append(c.compiledExcludes, re)
	}
	return nil
}

// MatchAutoProps returns the merged set of svn:* properties that apply to
// path, evaluating rules in declaration order with later matches
// overriding earlier ones for the same property name (so more specific
// rules belong later in the list — documented in DESIGN.md as the
// resolution of an otherwise-unspecified ordering question).
func (c *Config) MatchAutoProps(path string) map[string]string {
	base := filepath.Base(path)
	out := make(map[string]string)
	for _, a := range c.compiledAutoProps {
		if ok, _ := filepath.Match(a.pattern, base); ok {
			for k, v := range a.props {
				out[k] = v
			}
		}
	}
	return out
}

// RewritePath applies the first matching PathRewrite, returning the
// rewritten path and true, or path unchanged and false if nothing matched.
func (c *Config) RewritePath(path string) (string, bool) {
	for _, r := range c.compiledRewrites {
		if loc := r.re.FindStringIndex(path); loc != nil {
			return r.prefix + path[loc[1]:], true
		}
	}
	return path, false
}

// IsExcluded reports whether path matches any configured exclude pattern.
func (c *Config) IsExcluded(path string) bool {
	for _, re := range c.compiledExcludes {
		if re.MatchString(path) {
			return true
		}
	}
	return false
}
