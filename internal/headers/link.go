package headers

import (
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/divortio/stealthproxy/internal/urlrewrite"
)

// linkEntrySplit finds a comma that starts a new "<url>" token — a plain
// comma split would also break apart commas inside an imagesrcset
// attribute value carried within the same entry. Go's regexp has no
// lookahead, so the match includes the "<", which splitLinkEntries keeps.
var linkEntrySplit = regexp.MustCompile(`,\s*<`)

// splitLinkEntries separates Link header entries at each linkEntrySplit match.
func splitLinkEntries(raw string) []string {
	var entries []string
	last := 0
	for _, loc := range linkEntrySplit.FindAllStringIndex(raw, -1) {
		entries = append(entries, raw[last:loc[0]])
		last = loc[1] - 1
	}
	return append(entries, raw[last:])
}

var linkURLPattern = regexp.MustCompile(`^<([^>]*)>`)
var linkRelPattern = regexp.MustCompile(`(?i)rel\s*=\s*"?([^";]*)"?`)
var linkImageSrcsetPattern = regexp.MustCompile(`(?i)(imagesrcset\s*=\s*")([^"]*)(")`)

// rewriteLink rewrites the Link response header: drops entries whose rel
// includes preconnect or dns-prefetch, and proxifies the surviving
// entries' <url> and imagesrcset values.
func rewriteLink(h http.Header, target *urlrewrite.Target, arena *urlrewrite.Arena) {
	raw := h.Get("Link")
	if raw == "" {
		return
	}
	var base *url.URL
	if target != nil {
		base, _ = url.Parse(target.URL())
	}

	entries := splitLinkEntries(raw)
	var kept []string
	for _, entry := range entries {
		rel := linkRelPattern.FindStringSubmatch(entry)
		if rel != nil && (strings.Contains(rel[1], "preconnect") || strings.Contains(rel[1], "dns-prefetch")) {
			continue
		}

		entry = linkURLPattern.ReplaceAllStringFunc(entry, func(m string) string {
			sub := linkURLPattern.FindStringSubmatch(m)
			return "<" + arena.Proxify(sub[1], base) + ">"
		})
		entry = linkImageSrcsetPattern.ReplaceAllStringFunc(entry, func(m string) string {
			sub := linkImageSrcsetPattern.FindStringSubmatch(m)
			return sub[1] + arena.ProxifySrcset(sub[2], base) + sub[3]
		})
		kept = append(kept, entry)
	}

	if len(kept) == 0 {
		h.Del("Link")
		return
	}
	h.Set("Link", strings.Join(kept, ", "))
}
