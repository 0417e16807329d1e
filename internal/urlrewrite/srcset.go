package urlrewrite

import (
	"net/url"
	"strings"
)

// ProxifySrcset rewrites a srcset (or imagesrcset) attribute value: split on
// ",", proxify the URL of each "url descriptor" candidate, keep the
// descriptor verbatim, and rejoin with ", " (spec §4.6 srcset rewriter).
func (a *Arena) ProxifySrcset(raw string, base *url.URL) string {
	if raw == "" {
		return raw
	}
	candidates := strings.Split(raw, ",")
	out := make([]string, 0, len(candidates))
	for _, c := range candidates {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		urlPart, descriptor, hasDescriptor := strings.Cut(c, " ")
		rewritten := a.Proxify(urlPart, base)
		if hasDescriptor {
			descriptor = strings.TrimSpace(descriptor)
		}
		if descriptor != "" {
			out = append(out, rewritten+" "+descriptor)
		} else {
			out = append(out, rewritten)
		}
	}
	return strings.Join(out, ", ")
}
