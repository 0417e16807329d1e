package reqrewrite

import (
	"net/http"
	"strings"

	"github.com/divortio/stealthproxy/internal/config"
)

// filterCookieHeader parses the Cookie header, drops any cookie whose name
// matches the root or proxy passthrough glob lists, and re-serializes the
// remainder. The header is deleted entirely if nothing survives.
func filterCookieHeader(h http.Header, cookies config.CookieConfig) {
	raw := h.Get("Cookie")
	if raw == "" {
		return
	}

	var kept []string
	for _, part := range strings.Split(raw, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, _, _ := strings.Cut(part, "=")
		name = strings.TrimSpace(name)
		if config.MatchesAny(cookies.RootPassthrough, name) || config.MatchesAny(cookies.ProxyPassthrough, name) {
			continue
		}
		kept = append(kept, part)
	}

	if len(kept) == 0 {
		h.Del("Cookie")
		return
	}
	h.Set("Cookie", strings.Join(kept, "; "))
}
