package urlrewrite

import (
	"net/url"
	"strings"
)

// Target is the resolved upstream origin a proxy request maps to. The
// host is the request hostname with "."+root_domain removed, kept verbatim
// (so it may span several labels, e.g. "www.google.com") — no
// dash-to-dot transform is applied (spec open question 2).
type Target struct {
	Host     string
	Path     string
	RawQuery string
}

// URL renders the target as an absolute https:// URL.
func (t *Target) URL() string {
	var b strings.Builder
	b.WriteString("https://")
	b.WriteString(t.Host)
	b.WriteString(t.Path)
	if t.RawQuery != "" {
		b.WriteString("?")
		b.WriteString(t.RawQuery)
	}
	return b.String()
}

// Resolution is the outcome of resolving a proxy-facing request hostname.
// A landing resolution (Target == nil, err == nil) means the request was
// made directly to the root domain, with no encoded target.
type Resolution struct {
	Target *Target
}

// Resolve decodes the upstream target from a proxy-facing request's
// hostname, enforcing the domain lock: any hostname that is not the root
// domain itself and does not end in "."+root_domain is rejected with
// ErrNotProxyable.
func (a *Arena) Resolve(host, path, rawQuery string) (*Resolution, error) {
	if host == a.RootDomain {
		return &Resolution{Target: nil}, nil
	}
	if !hasSuffixFold(host, a.suffix) {
		return nil, ErrNotProxyable
	}
	prefix := host[:len(host)-len(a.suffix)]
	if prefix == "" {
		return nil, ErrNotProxyable
	}
	return &Resolution{
		Target: &Target{
			Host:     prefix,
			Path:     path,
			RawQuery: rawQuery,
		},
	}, nil
}

// RootRedirectTarget implements the root-redirect affordance (spec §4.1.5):
// a request to root_domain carrying a query string is interpreted as a
// user-typed target (`?example.com` or `?https://example.com/x`). It
// returns the ProxyURL to redirect to, or ok=false if the query cannot be
// parsed as a target — callers should fall back to landing passthrough.
func (a *Arena) RootRedirectTarget(rawQuery string) (proxyURL string, ok bool) {
	if rawQuery == "" {
		return "", false
	}
	decoded, err := url.QueryUnescape(rawQuery)
	if err != nil || decoded == "" {
		return "", false
	}
	if !strings.Contains(decoded, "://") {
		decoded = "https://" + decoded
	}
	u, err := url.Parse(decoded)
	if err != nil || u.Host == "" {
		return "", false
	}
	return a.Proxify(decoded, nil), true
}
