package headers

import (
	"net/http"
	"strings"
)

// relaxTokens are appended to the named directive so that content rewritten
// to run under the proxy's own origin keeps working (inline script/style
// injected by the HTML streamer, cross-subdomain fetches, proxified image
// URLs). Directives not listed here are left untouched.
var relaxTokens = map[string][]string{
	"script-src":  {"'unsafe-inline'", "'unsafe-eval'", "*", "data:"},
	"style-src":   {"'unsafe-inline'", "*"},
	"connect-src": {"*"},
	"img-src":     {"*", "data:"},
}

var cspDirectiveOrder = []string{"script-src", "style-src", "connect-src", "img-src"}

// rewriteCSP relaxes the Content-Security-Policy header so proxy-injected
// inline assets and cross-subdomain requests are not blocked by it.
func rewriteCSP(h http.Header) {
	raw := h.Get("Content-Security-Policy")
	if raw == "" {
		return
	}

	directives := parseCSP(raw)
	delete(directives, "upgrade-insecure-requests")

	for _, name := range cspDirectiveOrder {
		directives[name] = appendMissing(directives[name], relaxTokens[name])
	}

	h.Set("Content-Security-Policy", serializeCSP(raw, directives))
}

// parseCSP splits a CSP header into an ordered-insensitive map of directive
// name to its token list. Order is recovered separately by serializeCSP,
// which walks the original header text.
func parseCSP(raw string) map[string][]string {
	directives := make(map[string][]string)
	for _, part := range strings.Split(raw, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		fields := strings.Fields(part)
		name := strings.ToLower(fields[0])
		directives[name] = append([]string{}, fields[1:]...)
	}
	return directives
}

// serializeCSP rebuilds the header text, preserving the original directive
// order and appending any directive that did not previously exist.
func serializeCSP(original string, directives map[string][]string) string {
	var out []string
	seen := make(map[string]bool)

	for _, part := range strings.Split(original, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		fields := strings.Fields(part)
		name := strings.ToLower(fields[0])
		if name == "upgrade-insecure-requests" {
			continue
		}
		seen[name] = true
		values, ok := directives[name]
		if !ok {
			continue
		}
		out = append(out, directiveString(name, values))
	}

	for _, name := range cspDirectiveOrder {
		if seen[name] {
			continue
		}
		out = append(out, directiveString(name, directives[name]))
	}

	return strings.Join(out, "; ")
}

func directiveString(name string, values []string) string {
	if len(values) == 0 {
		return name
	}
	return name + " " + strings.Join(values, " ")
}

func appendMissing(existing []string, tokens []string) []string {
	present := make(map[string]bool, len(existing))
	for _, v := range existing {
		present[v] = true
	}
	for _, t := range tokens {
		if !present[t] {
			existing = append(existing, t)
		}
	}
	return existing
}
