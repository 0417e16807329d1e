package headers

import (
	"net/http"
	"strings"
	"testing"

	"github.com/divortio/stealthproxy/internal/urlrewrite"
)

func testResponse(status int) *http.Response {
	return &http.Response{StatusCode: status, Header: make(http.Header)}
}

func TestRewriteSanitizesLeakyHeaders(t *testing.T) {
	arena := urlrewrite.NewArena("p.example")
	target := &urlrewrite.Target{Host: "example.com", Path: "/"}
	resp := testResponse(http.StatusOK)
	resp.Header.Set("X-Frame-Options", "DENY")
	resp.Header.Set("Content-Encoding", "gzip")
	resp.Header.Set("Alt-Svc", "h3=\":443\"")

	Rewrite(resp, target, arena)

	for _, h := range []string{"X-Frame-Options", "Content-Encoding", "Alt-Svc"} {
		if resp.Header.Get(h) != "" {
			t.Errorf("expected %s to be removed", h)
		}
	}
	if got := resp.Header.Get("X-Robots-Tag"); got != "noindex, nofollow" {
		t.Errorf("X-Robots-Tag = %q", got)
	}
}

func TestRewriteSetCookieHardening(t *testing.T) {
	arena := urlrewrite.NewArena("p.example")
	target := &urlrewrite.Target{Host: "example.com", Path: "/"}
	resp := testResponse(http.StatusOK)
	resp.Header.Add("Set-Cookie", "sid=abc; Domain=example.com; Path=/; HttpOnly")

	Rewrite(resp, target, arena)

	got := resp.Header.Get("Set-Cookie")
	if !contains(got, "Domain=p.example") {
		t.Errorf("expected rewritten Domain, got %q", got)
	}
	if !contains(got, "Secure") || !contains(got, "SameSite=Lax") {
		t.Errorf("expected Secure/SameSite appended, got %q", got)
	}
	if contains(got, "Domain=example.com") {
		t.Errorf("expected original Domain stripped, got %q", got)
	}
}

func TestRewriteSetCookieHostPrefixSkipsDomain(t *testing.T) {
	arena := urlrewrite.NewArena("p.example")
	target := &urlrewrite.Target{Host: "example.com", Path: "/"}
	resp := testResponse(http.StatusOK)
	resp.Header.Add("Set-Cookie", "__Host-session=abc; Path=/")

	Rewrite(resp, target, arena)

	got := resp.Header.Get("Set-Cookie")
	if contains(got, "Domain=") {
		t.Errorf("expected no Domain attribute for __Host- cookie, got %q", got)
	}
}

func TestRewriteLocation(t *testing.T) {
	arena := urlrewrite.NewArena("p.example")
	target := &urlrewrite.Target{Host: "example.com", Path: "/old"}
	resp := testResponse(http.StatusFound)
	resp.Header.Set("Location", "/new?x=1")

	Rewrite(resp, target, arena)

	if got, want := resp.Header.Get("Location"), "https://example.com.p.example/new?x=1"; got != want {
		t.Errorf("Location = %q, want %q", got, want)
	}
}

func TestRewriteShortcutStatusSkipsCSPAndLink(t *testing.T) {
	arena := urlrewrite.NewArena("p.example")
	target := &urlrewrite.Target{Host: "example.com", Path: "/"}
	resp := testResponse(http.StatusFound)
	resp.Header.Set("Content-Security-Policy", "default-src 'self'")
	resp.Header.Set("Link", `<https://fonts.example.com>; rel="preconnect"`)

	Rewrite(resp, target, arena)

	if got := resp.Header.Get("Content-Security-Policy"); got != "default-src 'self'" {
		t.Errorf("expected CSP untouched on shortcut status, got %q", got)
	}
	if got := resp.Header.Get("Link"); got != `<https://fonts.example.com>; rel="preconnect"` {
		t.Errorf("expected Link untouched on shortcut status, got %q", got)
	}
}

func TestRewriteCSPAddsRelaxTokens(t *testing.T) {
	arena := urlrewrite.NewArena("p.example")
	target := &urlrewrite.Target{Host: "example.com", Path: "/"}
	resp := testResponse(http.StatusOK)
	resp.Header.Set("Content-Security-Policy", "default-src 'self'; script-src 'self'; upgrade-insecure-requests")

	Rewrite(resp, target, arena)

	got := resp.Header.Get("Content-Security-Policy")
	if contains(got, "upgrade-insecure-requests") {
		t.Errorf("expected upgrade-insecure-requests removed, got %q", got)
	}
	if !contains(got, "script-src 'self' 'unsafe-inline' 'unsafe-eval' * data:") {
		t.Errorf("expected relaxed script-src, got %q", got)
	}
	if !contains(got, "img-src * data:") {
		t.Errorf("expected img-src directive added, got %q", got)
	}
}

func TestRewriteLinkDropsPreconnectAndRewritesURL(t *testing.T) {
	arena := urlrewrite.NewArena("p.example")
	target := &urlrewrite.Target{Host: "example.com", Path: "/"}
	resp := testResponse(http.StatusOK)
	resp.Header.Set("Link", `<https://fonts.example.com>; rel="preconnect", </style.css>; rel="preload"; as="style"`)

	Rewrite(resp, target, arena)

	got := resp.Header.Get("Link")
	if contains(got, "preconnect") {
		t.Errorf("expected preconnect entry dropped, got %q", got)
	}
	if !contains(got, "https://example.com.p.example/style.css") {
		t.Errorf("expected surviving entry rewritten, got %q", got)
	}
}

func TestRewriteCORSSuffixMatch(t *testing.T) {
	arena := urlrewrite.NewArena("p.example")
	target := &urlrewrite.Target{Host: "api.example.com", Path: "/"}
	resp := testResponse(http.StatusOK)
	resp.Header.Set("Access-Control-Allow-Origin", "https://example.com")

	Rewrite(resp, target, arena)

	if got, want := resp.Header.Get("Access-Control-Allow-Origin"), "https://example.com.p.example"; got != want {
		t.Errorf("Access-Control-Allow-Origin = %q, want %q", got, want)
	}
}

func TestRewriteCORSWildcardUntouched(t *testing.T) {
	arena := urlrewrite.NewArena("p.example")
	target := &urlrewrite.Target{Host: "example.com", Path: "/"}
	resp := testResponse(http.StatusOK)
	resp.Header.Set("Access-Control-Allow-Origin", "*")

	Rewrite(resp, target, arena)

	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("expected wildcard untouched, got %q", got)
	}
}

func contains(haystack, needle string) bool {
	return strings.Contains(haystack, needle)
}
