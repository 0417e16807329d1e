package config

import (
	"os"
	"path/filepath"
	"testing"
)

// withEnv sets env vars for the duration of the test and restores the
// previous environment afterward.
func withEnv(t *testing.T, kv map[string]string) {
	t.Helper()
	for k, v := range kv {
		old, had := os.LookupEnv(k)
		os.Setenv(k, v)
		t.Cleanup(func() {
			if had {
				os.Setenv(k, old)
			} else {
				os.Unsetenv(k)
			}
		})
	}
}

func TestLoadDefaults(t *testing.T) {
	withEnv(t, map[string]string{"ROOT_DOMAIN": "p.example"})

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.RootDomain != "p.example" {
		t.Errorf("RootDomain = %q", cfg.RootDomain)
	}
	if !cfg.Cache.Enabled {
		t.Error("expected cache enabled by default")
	}
	if cfg.Cache.TTL.Seconds() != 3600 {
		t.Errorf("default TTL = %v", cfg.Cache.TTL)
	}
	if !cfg.Stealth || !cfg.ServiceWorker {
		t.Error("expected stealth_mode and service_worker enabled by default")
	}
	if len(cfg.Cache.CacheableTypes) == 0 {
		t.Error("expected default cacheable types")
	}
}

func TestLoadRejectsMissingRootDomain(t *testing.T) {
	withEnv(t, map[string]string{"ROOT_DOMAIN": ""})
	if _, err := Load(); err == nil {
		t.Fatal("expected error for empty ROOT_DOMAIN")
	}
}

func TestLoadRejectsURLRootDomain(t *testing.T) {
	withEnv(t, map[string]string{"ROOT_DOMAIN": "https://p.example/"})
	if _, err := Load(); err == nil {
		t.Fatal("expected error for ROOT_DOMAIN containing a scheme")
	}
}

func TestLoadRejectsPortedRootDomain(t *testing.T) {
	withEnv(t, map[string]string{"ROOT_DOMAIN": "p.example:8080"})
	if _, err := Load(); err == nil {
		t.Fatal("expected error for ROOT_DOMAIN containing a port")
	}
}

func TestLoadParsesModFlags(t *testing.T) {
	withEnv(t, map[string]string{
		"ROOT_DOMAIN":  "p.example",
		"MOD_ANALYTICS_STRIP": "true",
		"MOD_BANNER":          "0",
	})

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !cfg.Mods["analytics_strip"] {
		t.Error("expected analytics_strip mod enabled")
	}
	if cfg.Mods["banner"] {
		t.Error("expected banner mod disabled")
	}
}

func TestLoadCookiePatterns(t *testing.T) {
	withEnv(t, map[string]string{
		"ROOT_DOMAIN":              "p.example",
		"COOKIE_ROOT_PASSTHROUGH":  `["__session", "csrf_*"]`,
		"COOKIE_PROXY_PASSTHROUGH": `["sid"]`,
	})

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !MatchesAny(cfg.Cookies.RootPassthrough, "__session") {
		t.Error("expected __session to match root passthrough")
	}
	if !MatchesAny(cfg.Cookies.RootPassthrough, "csrf_token") {
		t.Error("expected csrf_* glob to match csrf_token")
	}
	if MatchesAny(cfg.Cookies.RootPassthrough, "other") {
		t.Error("did not expect unrelated cookie to match")
	}
	if !MatchesAny(cfg.Cookies.ProxyPassthrough, "sid") {
		t.Error("expected sid to match proxy passthrough")
	}
}

func TestLoadTLSValidation(t *testing.T) {
	withEnv(t, map[string]string{
		"ROOT_DOMAIN": "p.example",
		"TLS_DOMAIN":  "p.example",
	})
	if _, err := Load(); err == nil {
		t.Fatal("expected error when TLS_DOMAIN set without TLS_EMAIL")
	}
}

func TestLoadModManifest(t *testing.T) {
	dir := t.TempDir()
	manifestPath := filepath.Join(dir, "mods.yaml")
	content := `
- id: rebrand
  selector: "*"
  domain_pattern: "*.example.com"
  dict:
    OldBrand: NewBrand
    Old: New
`
	if err := os.WriteFile(manifestPath, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	withEnv(t, map[string]string{
		"ROOT_DOMAIN":        "p.example",
		"MODS_MANIFEST_PATH": manifestPath,
	})

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(cfg.ModManifest) != 1 {
		t.Fatalf("expected 1 manifest entry, got %d", len(cfg.ModManifest))
	}
	entry := cfg.ModManifest[0]
	if entry.ID != "rebrand" || entry.Dict["OldBrand"] != "NewBrand" {
		t.Errorf("unexpected manifest entry: %+v", entry)
	}
}

func TestGlobToRegexpWildcards(t *testing.T) {
	patterns, err := CompileGlobs([]string{"a.*.c", "single?char"})
	if err != nil {
		t.Fatal(err)
	}
	if !MatchesAny(patterns, "a.anything.c") {
		t.Error("expected a.*.c to match a.anything.c")
	}
	if !MatchesAny(patterns, "singleXchar") {
		t.Error("expected single?char to match singleXchar")
	}
	if MatchesAny(patterns, "singlechar") {
		t.Error("? must match exactly one character")
	}
}
