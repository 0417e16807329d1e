package headers

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/divortio/stealthproxy/internal/urlrewrite"
)

// rewriteCORS rewrites a concrete Access-Control-Allow-Origin value whose
// hostname is a suffix of the target hostname (e.g. the upstream allows its
// own apex or a parent domain) to the corresponding proxy subdomain.
// Wildcard ("*") and null origins are left untouched.
func rewriteCORS(h http.Header, target *urlrewrite.Target, arena *urlrewrite.Arena) {
	acao := h.Get("Access-Control-Allow-Origin")
	if acao == "" || acao == "*" || acao == "null" || target == nil {
		return
	}
	u, err := url.Parse(acao)
	if err != nil || u.Host == "" {
		return
	}
	originHost := u.Hostname()
	if !strings.HasSuffix(target.Host, originHost) {
		return
	}
	u.Host = originHost + "." + arena.RootDomain
	h.Set("Access-Control-Allow-Origin", u.String())
}
