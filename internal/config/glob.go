package config

import (
	"regexp"
	"strings"
)

// CompileGlobs compiles a list of glob patterns (`*` and `?` wildcards,
// anchored at both ends) into regexps, used to match cookie names for
// the root/proxy passthrough allowlists (spec §4.2).
func CompileGlobs(patterns []string) ([]*regexp.Regexp, error) {
	if len(patterns) == 0 {
		return nil, nil
	}
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(globToRegexp(p))
		if err != nil {
			return nil, err
		}
		out = append(out, re)
	}
	return out, nil
}

// globToRegexp translates a glob pattern into an anchored regexp source.
func globToRegexp(pattern string) string {
	var b strings.Builder
	b.WriteString("^")
	for _, r := range pattern {
		switch r {
		case '*':
			b.WriteString(".*")
		case '?':
			b.WriteString(".")
		default:
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	b.WriteString("$")
	return b.String()
}

// MatchesAny reports whether name matches any of the compiled patterns.
func MatchesAny(patterns []*regexp.Regexp, name string) bool {
	for _, p := range patterns {
		if p.MatchString(name) {
			return true
		}
	}
	return false
}
