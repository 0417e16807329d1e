package headers

import "net/http"

// sanitizeHeaders lists response headers deleted unconditionally: transport
// framing the proxy itself owns, plus fingerprinting/leak-prone headers
// that would either break under rewriting or expose the upstream identity.
var sanitizeHeaders = []string{
	"Content-Encoding",
	"Content-Length",
	"Transfer-Encoding",
	"Connection",
	"Keep-Alive",
	"Referrer-Policy",
	"Content-Security-Policy-Report-Only",
	"X-Frame-Options",
	"Cross-Origin-Opener-Policy",
	"Cross-Origin-Embedder-Policy",
	"Permissions-Policy",
	"Report-To",
	"NEL",
	"Alt-Svc",
	"Refresh",
	"SourceMap",
	"X-SourceMap",
	"X-DNS-Prefetch-Control",
	"Clear-Site-Data",
	"Accept-CH",
}

func sanitize(h http.Header) {
	for _, name := range sanitizeHeaders {
		h.Del(name)
	}
}
