// Package reqrewrite constructs the outbound upstream request from an
// inbound proxy-facing request: header cloning, fingerprint stripping,
// Referer/Origin identity rewriting, and cookie filtering (spec §4.2).
package reqrewrite

import (
	"context"
	"net/http"

	"github.com/divortio/stealthproxy/internal/config"
	"github.com/divortio/stealthproxy/internal/urlrewrite"
)

// stripHeaders are removed case-insensitively regardless of prefix rules.
var stripHeaders = []string{
	"X-Forwarded-For",
	"X-Forwarded-Proto",
	"X-Real-Ip",
	"Via",
	"Cf-Connecting-Ip",
	"Cf-Ipcountry",
	"Cf-Ray",
	"Cf-Visitor",
}

// New builds the upstream *http.Request for the resolved target, cloning
// and sanitizing r's headers per spec §4.2. The original body is forwarded
// unchanged, including streaming bodies (no buffering here).
func New(ctx context.Context, r *http.Request, target *urlrewrite.Target, arena *urlrewrite.Arena, cookies config.CookieConfig) (*http.Request, error) {
	out, err := http.NewRequestWithContext(ctx, r.Method, target.URL(), r.Body)
	if err != nil {
		return nil, err
	}
	out.Header = r.Header.Clone()
	out.Host = target.Host
	out.ContentLength = r.ContentLength

	stripFingerprintHeaders(out.Header)
	rewriteIdentityHeader(out.Header, "Referer", arena)
	rewriteIdentityHeader(out.Header, "Origin", arena)
	filterCookieHeader(out.Header, cookies)

	return out, nil
}

// stripFingerprintHeaders deletes proxy/CDN-identifying request headers,
// including any Cf-*, X-Cf-* or X-Forwarded-* header regardless of exact name.
func stripFingerprintHeaders(h http.Header) {
	for _, name := range stripHeaders {
		h.Del(name)
	}
	for name := range h {
		if hasFoldPrefix(name, "Cf-") || hasFoldPrefix(name, "X-Cf-") || hasFoldPrefix(name, "X-Forwarded-") {
			h.Del(name)
		}
	}
}

// hasFoldPrefix reports whether s begins with prefix, ignoring case. Header
// keys are already canonicalized by http.Header, so this only needs to
// tolerate case differences in prefix, not arbitrary casing in s.
func hasFoldPrefix(s, prefix string) bool {
	if len(s) < len(prefix) {
		return false
	}
	return equalFold(s[:len(prefix)], prefix)
}

func equalFold(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := 0; i < len(a); i++ {
		ca, cb := a[i], b[i]
		if 'A' <= ca && ca <= 'Z' {
			ca += 'a' - 'A'
		}
		if 'A' <= cb && cb <= 'Z' {
			cb += 'a' - 'A'
		}
		if ca != cb {
			return false
		}
	}
	return true
}

// rewriteIdentityHeader rewrites a Referer/Origin header that points at a
// proxy URL back to the corresponding origin URL; on parse failure, the
// header is deleted rather than forwarded with a leaked proxy hostname.
func rewriteIdentityHeader(h http.Header, name string, arena *urlrewrite.Arena) {
	v := h.Get(name)
	if v == "" {
		return
	}
	rewritten, ok := deproxify(v, arena)
	if !ok {
		h.Del(name)
		return
	}
	h.Set(name, rewritten)
}
