// Package mods implements the Mod Framework (C12): a registry of
// domain-scoped text rewriters bound into the HTML Streamer per request.
// A Mod is enabled either by a MOD_<id> environment flag (built-in mods,
// bound against their DefaultArgs) or by an entry in the optional
// MODS_MANIFEST_PATH YAML manifest (data-driven mods, always enabled when
// their domain_pattern matches).
package mods

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/divortio/stealthproxy/internal/config"
	"github.com/divortio/stealthproxy/internal/htmlstream"
)

// DomainPattern matches a target host against the grammar in spec §4.12:
// "*" (any host), an exact host, or "*.root" (root itself, plus any
// subdomain of root).
type DomainPattern string

// Matches reports whether host satisfies the pattern.
func (p DomainPattern) Matches(host string) bool {
	pattern := string(p)
	switch {
	case pattern == "" || pattern == "*":
		return true
	case strings.HasPrefix(pattern, "*."):
		root := pattern[2:]
		return strings.EqualFold(host, root) || hasSuffixFold(host, "."+root)
	default:
		return strings.EqualFold(host, pattern)
	}
}

func hasSuffixFold(s, suffix string) bool {
	if len(s) < len(suffix) {
		return false
	}
	return strings.EqualFold(s[len(s)-len(suffix):], suffix)
}

// Mod is a registered text-rewriter binding: an id, the selector it is
// declared with, the domain pattern gating it, and a factory that builds
// the compiled htmlstream.TextMod from its arguments. Bind does not consult
// Selector: a bound mod runs over every text node that internal/htmlstream's
// unsafe-ancestor and script-adjacency guards allow, whatever its element.
type Mod struct {
	ID            string
	Selector      string
	DomainPattern DomainPattern
	HandlerFactory func(args map[string]string) (htmlstream.TextMod, error)
	DefaultArgs    map[string]string
}

// Bind instantiates every mod enabled for targetHost: built-in mods
// flagged on via MOD_<id>=true in cfg.Mods, plus every manifest entry
// whose domain_pattern matches, per spec §4.12 ("instantiates only
// matching, enabled mods per request").
func Bind(cfg *config.Config, targetHost string) ([]htmlstream.TextMod, error) {
	var bound []htmlstream.TextMod

	for _, b := range builtins {
		if !cfg.Mods[b.ID] {
			continue
		}
		if !b.DomainPattern.Matches(targetHost) {
			continue
		}
		tm, err := b.HandlerFactory(b.DefaultArgs)
		if err != nil {
			return nil, fmt.Errorf("mod %s: %w", b.ID, err)
		}
		bound = append(bound, tm)
	}

	for _, e := range cfg.ModManifest {
		if !DomainPattern(e.DomainPattern).Matches(targetHost) {
			continue
		}
		tm, err := compileManifestMod(e)
		if err != nil {
			return nil, fmt.Errorf("mod %s: %w", e.ID, err)
		}
		bound = append(bound, tm)
	}

	return bound, nil
}

// compileManifestMod builds a TextMod from a manifest entry: dict mode
// when Dict is non-empty, otherwise a single pattern/replacement pair.
func compileManifestMod(e config.ModManifestEntry) (htmlstream.TextMod, error) {
	if len(e.Dict) > 0 {
		return compileDictMod(e.Dict)
	}
	if e.Pattern == "" {
		return htmlstream.TextMod{}, fmt.Errorf("neither pattern nor dict set")
	}
	re, err := regexp.Compile(e.Pattern)
	if err != nil {
		return htmlstream.TextMod{}, fmt.Errorf("pattern: %w", err)
	}
	replacement := e.Replacement
	return htmlstream.TextMod{
		Pattern: re,
		Replace: func(string) string { return replacement },
	}, nil
}

// compileDictMod compiles a {find: replace} map into one alternation
// regex, keys sorted longest-first so a short key never shadows a longer
// one that contains it as a prefix (spec §4.12).
func compileDictMod(dict map[string]string) (htmlstream.TextMod, error) {
	keys := make([]string, 0, len(dict))
	for k := range dict {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return len(keys[i]) > len(keys[j]) })

	escaped := make([]string, len(keys))
	for i, k := range keys {
		escaped[i] = regexp.QuoteMeta(k)
	}
	re, err := regexp.Compile(strings.Join(escaped, "|"))
	if err != nil {
		return htmlstream.TextMod{}, fmt.Errorf("dict: %w", err)
	}

	return htmlstream.TextMod{
		Pattern: re,
		Replace: func(match string) string {
			if v, ok := dict[match]; ok {
				return v
			}
			return match
		},
	}, nil
}
