package reqrewrite

import (
	"net/url"

	"github.com/divortio/stealthproxy/internal/urlrewrite"
)

// deproxify resolves a Referer/Origin value that points at a proxy URL back
// to its origin URL. keep=false means the header should be deleted (the
// value could not be parsed as a URL at all); a value whose hostname is
// off the root domain is returned unchanged — it is not a proxy URL, so
// there is nothing to rewrite.
func deproxify(raw string, arena *urlrewrite.Arena) (result string, keep bool) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", false
	}
	host := u.Hostname()
	if host == "" || !arena.IsOnRootDomain(host) {
		return raw, true
	}
	res, err := arena.Resolve(host, u.Path, u.RawQuery)
	if err != nil || res.Target == nil {
		return raw, true
	}
	return res.Target.URL(), true
}
