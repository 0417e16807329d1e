package headers

import (
	"net/http"
	"strings"

	"github.com/divortio/stealthproxy/internal/urlrewrite"
)

// rewriteSetCookie hardens every Set-Cookie header for the proxy domain:
// the name=value pair is preserved, any prior Domain/Secure/SameSite
// attribute is dropped, Domain is re-added (unless the cookie name begins
// with the __Host- prefix, which forbids Domain entirely), and
// Secure; SameSite=Lax are always appended.
func rewriteSetCookie(h http.Header, arena *urlrewrite.Arena) {
	values := h.Values("Set-Cookie")
	if len(values) == 0 {
		return
	}
	h.Del("Set-Cookie")
	for _, v := range values {
		h.Add("Set-Cookie", hardenSetCookie(v, arena))
	}
}

func hardenSetCookie(setCookie string, arena *urlrewrite.Arena) string {
	parts := strings.Split(setCookie, ";")
	if len(parts) == 0 {
		return setCookie
	}

	nameValue := strings.TrimSpace(parts[0])
	name, _, _ := strings.Cut(nameValue, "=")
	isHostPrefixed := strings.HasPrefix(strings.TrimSpace(name), "__Host-")

	var kept []string
	kept = append(kept, nameValue)
	for _, attr := range parts[1:] {
		trimmed := strings.TrimSpace(attr)
		lower := strings.ToLower(trimmed)
		if strings.HasPrefix(lower, "domain=") ||
			strings.HasPrefix(lower, "secure") ||
			strings.HasPrefix(lower, "samesite") {
			continue
		}
		kept = append(kept, " "+trimmed)
	}

	if !isHostPrefixed {
		kept = append(kept, " Domain="+arena.RootDomain)
	}
	kept = append(kept, " Secure", " SameSite=Lax")

	return strings.Join(kept, ";")
}
