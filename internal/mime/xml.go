package mime

import (
	"net/url"
	"regexp"

	"github.com/divortio/stealthproxy/internal/urlrewrite"
)

// attrPatterns match (prefix, url, suffix) triples for URL-bearing
// attributes in XML/RSS/Atom/Sitemap documents.
var attrPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(<\?xml-stylesheet\s[^>]*href=")([^"]*)("[^>]*\?>)`),
	regexp.MustCompile(`(<[\w:]*link\b[^>]*\shref=")([^"]*)(")`),
	regexp.MustCompile(`(<enclosure\b[^>]*\surl=")([^"]*)(")`),
	regexp.MustCompile(`(<media:content\b[^>]*\surl=")([^"]*)(")`),
}

// textPatterns match (openTag, urlText, closeTag) triples for elements
// whose text content is itself a bare URL.
var textPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(<link>)([^<]*)(</link>)`),
	regexp.MustCompile(`(<loc>)([^<]*)(</loc>)`),
	regexp.MustCompile(`(<image:loc>)([^<]*)(</image:loc>)`),
}

// RewriteXML applies the XML/RSS/Atom/Sitemap content rewriter: proxifies
// URL-bearing attributes and text-content elements, leaving everything
// else byte-for-byte unchanged.
func RewriteXML(body []byte, base *url.URL, arena *urlrewrite.Arena) []byte {
	s := string(body)

	for _, p := range attrPatterns {
		s = p.ReplaceAllStringFunc(s, func(m string) string {
			sub := p.FindStringSubmatch(m)
			return sub[1] + arena.Proxify(sub[2], base) + sub[3]
		})
	}
	for _, p := range textPatterns {
		s = p.ReplaceAllStringFunc(s, func(m string) string {
			sub := p.FindStringSubmatch(m)
			return sub[1] + arena.Proxify(sub[2], base) + sub[3]
		})
	}

	return []byte(s)
}
