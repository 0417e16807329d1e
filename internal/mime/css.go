// Package mime implements the CSS, XML, and JSON content rewriters (C5):
// buffered, regex/tree-walk transforms applied to non-HTML response bodies.
package mime

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/divortio/stealthproxy/internal/urlrewrite"
)

var (
	sourceMapPattern  = regexp.MustCompile(`/\*#\s*sourceMappingURL=[^*]*\*/\s*`)
	importQuoted      = regexp.MustCompile(`(@import\s+)(["'])([^"']+)(["'])`)
	importURL         = regexp.MustCompile(`(@import\s+url\(\s*)(["']?)([^"')]+)(["']?)(\s*\))`)
	genericURL        = regexp.MustCompile(`(url\(\s*)(["']?)([^"')]+)(["']?)(\s*\))`)
)

// RewriteCSS applies the CSS content rewriter: strips source map comments
// and proxifies every @import and url(...) target, skipping data: URIs.
func RewriteCSS(body []byte, base *url.URL, arena *urlrewrite.Arena) []byte {
	s := string(body)
	s = sourceMapPattern.ReplaceAllString(s, "")

	s = importQuoted.ReplaceAllStringFunc(s, func(m string) string {
		sub := importQuoted.FindStringSubmatch(m)
		if isDataURI(sub[3]) {
			return m
		}
		return sub[1] + sub[2] + arena.Proxify(sub[3], base) + sub[4]
	})

	s = importURL.ReplaceAllStringFunc(s, func(m string) string {
		sub := importURL.FindStringSubmatch(m)
		if isDataURI(sub[3]) {
			return m
		}
		return sub[1] + sub[2] + arena.Proxify(sub[3], base) + sub[4] + sub[5]
	})

	s = genericURL.ReplaceAllStringFunc(s, func(m string) string {
		sub := genericURL.FindStringSubmatch(m)
		if isDataURI(sub[3]) {
			return m
		}
		return sub[1] + sub[2] + arena.Proxify(sub[3], base) + sub[4] + sub[5]
	})

	return []byte(s)
}

func isDataURI(target string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(target)), "data:")
}
