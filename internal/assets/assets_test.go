package assets

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestIsAssetPath(t *testing.T) {
	cases := map[string]bool{
		InterceptorPath:           true,
		ServiceWorkerPath:         true,
		ServiceWorkerInjectorPath: true,
		"/index.html":             false,
	}
	for path, want := range cases {
		if got := IsAssetPath(path); got != want {
			t.Errorf("IsAssetPath(%q) = %v, want %v", path, got, want)
		}
	}
}

func TestServeInterceptor(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, InterceptorPath, nil)
	rec := httptest.NewRecorder()
	Serve(rec, r, "p.example")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if rec.Header().Get("Content-Type") != "application/javascript" {
		t.Errorf("Content-Type = %q", rec.Header().Get("Content-Type"))
	}
	if rec.Header().Get("Cache-Control") != "public, max-age=43200" {
		t.Errorf("Cache-Control = %q", rec.Header().Get("Cache-Control"))
	}
	if rec.Header().Get("X-Robots-Tag") != "noindex, nofollow" {
		t.Errorf("X-Robots-Tag = %q", rec.Header().Get("X-Robots-Tag"))
	}
	if !strings.Contains(rec.Body.String(), `"p.example"`) {
		t.Errorf("expected root domain parameterized into script, got %q", rec.Body.String())
	}
}

func TestServeServiceWorkerSetsAllowedScope(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, ServiceWorkerPath, nil)
	rec := httptest.NewRecorder()
	Serve(rec, r, "p.example")

	if rec.Header().Get("Service-Worker-Allowed") != "/" {
		t.Errorf("Service-Worker-Allowed = %q", rec.Header().Get("Service-Worker-Allowed"))
	}
}

func TestServeInjectorRequiresTarget(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, ServiceWorkerInjectorPath, nil)
	rec := httptest.NewRecorder()
	Serve(rec, r, "p.example")

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestServeInjectorWrapsTarget(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, ServiceWorkerInjectorPath+"?target=https%3A%2F%2Fwww.example.com.p.example%2Fsw.js", nil)
	rec := httptest.NewRecorder()
	Serve(rec, r, "p.example")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "https://www.example.com.p.example/sw.js") {
		t.Errorf("expected target importScripts, got %q", rec.Body.String())
	}
}
