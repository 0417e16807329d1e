package urlrewrite

import (
	"net/url"
	"strings"
)

// opaqueSchemes are left untouched by Proxify: they carry no proxyable
// network location.
var opaqueSchemes = []string{"data:", "blob:", "javascript:", "chrome-extension:"}

// Proxify maps an absolute (or relative, resolved against base) URL to its
// proxy-domain form: https://{host}.{root_domain}{path}{query}. It is a
// total, idempotent function — Proxify(Proxify(u)) == Proxify(u) — and a
// no-op for opaque/fragment-only/already-proxied inputs.
func (a *Arena) Proxify(raw string, base *url.URL) string {
	if raw == "" || strings.HasPrefix(raw, "#") {
		return raw
	}
	lower := strings.ToLower(raw)
	for _, scheme := range opaqueSchemes {
		if strings.HasPrefix(lower, scheme) {
			return raw
		}
	}

	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	resolved := u
	if base != nil {
		resolved = base.ResolveReference(u)
	}
	if resolved.Host == "" {
		return raw
	}
	if hasSuffixFold(resolved.Hostname(), a.suffix) {
		return raw
	}

	scheme := "https"
	switch strings.ToLower(resolved.Scheme) {
	case "ws", "wss":
		scheme = "wss"
	}

	var b strings.Builder
	b.WriteString(scheme)
	b.WriteString("://")
	b.WriteString(resolved.Hostname())
	b.WriteString(a.suffix)
	b.WriteString(resolved.EscapedPath())
	if resolved.RawQuery != "" {
		b.WriteString("?")
		b.WriteString(resolved.RawQuery)
	}
	if resolved.Fragment != "" {
		b.WriteString("#")
		b.WriteString(resolved.EscapedFragment())
	}
	return b.String()
}

// ProxifyHost maps a bare upstream hostname (no scheme) to its proxy-domain
// subdomain form, for callers that hold a hostname rather than a full URL.
// The Set-Cookie and CORS rewriters in internal/headers do not call it.
func (a *Arena) ProxifyHost(host string) string {
	if host == "" || hasSuffixFold(host, a.suffix) {
		return host
	}
	return host + a.suffix
}
