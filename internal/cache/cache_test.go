package cache

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestKeyIgnoresAuthAndCookieHeaders(t *testing.T) {
	r1 := httptest.NewRequest(http.MethodGet, "https://www.example.com.p.example/a?x=1", nil)
	r1.Header.Set("Cookie", "session=abc")
	r2 := httptest.NewRequest(http.MethodGet, "https://www.example.com.p.example/a?x=1", nil)
	r2.Header.Set("Cookie", "session=xyz")
	r2.Header.Set("Authorization", "Bearer t")

	if Key(r1) != Key(r2) {
		t.Errorf("expected identical keys regardless of auth/cookie headers, got %q vs %q", Key(r1), Key(r2))
	}
}

func TestCacheableFilters(t *testing.T) {
	types := []string{"text/html", "application/json"}
	cases := []struct {
		status       int
		contentType  string
		cacheControl string
		want         bool
	}{
		{200, "text/html; charset=utf-8", "", true},
		{404, "text/html", "", false},
		{200, "image/png", "", false},
		{200, "text/html", "private, max-age=0", false},
		{200, "application/json", "no-store", false},
		{200, "application/json", "public, max-age=60", true},
	}
	for _, c := range cases {
		if got := Cacheable(c.status, c.contentType, c.cacheControl, types); got != c.want {
			t.Errorf("Cacheable(%d, %q, %q) = %v, want %v", c.status, c.contentType, c.cacheControl, got, c.want)
		}
	}
}

func TestPrepareForCacheStripsCookieAndStampsHeaders(t *testing.T) {
	h := make(http.Header)
	h.Set("Set-Cookie", "session=abc; Path=/")
	h.Set("Content-Type", "text/html")

	out := PrepareForCache(h, 3600)
	if out.Get("Set-Cookie") != "" {
		t.Errorf("expected Set-Cookie stripped, got %q", out.Get("Set-Cookie"))
	}
	if out.Get("Cache-Control") != "public, max-age=3600" {
		t.Errorf("Cache-Control = %q", out.Get("Cache-Control"))
	}
	if out.Get("Cloudflare-CDN-Cache-Control") != "max-age=3600" {
		t.Errorf("Cloudflare-CDN-Cache-Control = %q", out.Get("Cloudflare-CDN-Cache-Control"))
	}
	if out.Get("Vary") != "Accept-Encoding" {
		t.Errorf("Vary = %q", out.Get("Vary"))
	}
	if h.Get("Set-Cookie") == "" {
		t.Errorf("expected original header untouched, PrepareForCache must clone")
	}
}

func TestRistrettoStoreRoundTrip(t *testing.T) {
	store, err := NewRistrettoStore()
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	entry := &CachedResponse{Status: 200, Header: make(http.Header), Body: []byte("hello")}
	store.Set("key1", entry, time.Minute)
	store.Wait()

	got, ok := store.Get("key1")
	if !ok {
		t.Fatal("expected cache hit after Set+Wait")
	}
	if string(got.Body) != "hello" {
		t.Errorf("Body = %q, want %q", got.Body, "hello")
	}

	if _, ok := store.Get("missing"); ok {
		t.Error("expected miss for unknown key")
	}
}
