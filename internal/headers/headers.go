// Package headers implements the Header Rewriter (C3): the ordered set of
// response-header transformations applied before body handling (spec §4.3).
package headers

import (
	"net/http"

	"github.com/divortio/stealthproxy/internal/urlrewrite"
)

// Rewrite applies the full header rewrite pipeline to resp in place. For
// 204/304 and 3xx responses (the status-code shortcut, spec §4.3) it skips
// the Link, CSP and CORS rewrites, so only sanitize, Set-Cookie hardening,
// Location rewrite and X-Robots-Tag apply — callers should also skip body
// transformation for those statuses, forwarding the (empty) body verbatim.
func Rewrite(resp *http.Response, target *urlrewrite.Target, arena *urlrewrite.Arena) {
	sanitize(resp.Header)
	rewriteSetCookie(resp.Header, arena)
	rewriteLocation(resp, target, arena)

	if !IsShortcutStatus(resp.StatusCode) {
		rewriteLink(resp.Header, target, arena)
		rewriteCSP(resp.Header)
		rewriteCORS(resp.Header, target, arena)
	}

	resp.Header.Set("X-Robots-Tag", "noindex, nofollow")
}

// IsShortcutStatus reports whether status gets the abbreviated header
// treatment: 204, 304, and any 3xx redirect.
func IsShortcutStatus(status int) bool {
	if status == http.StatusNoContent || status == http.StatusNotModified {
		return true
	}
	return status >= 300 && status < 400
}

// MarkCacheHit sets the always-applied cache-hit marker header.
func MarkCacheHit(h http.Header) {
	h.Set("X-Proxy-Cache", "HIT")
}
