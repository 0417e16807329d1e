// Package config loads the proxy's immutable, process-wide configuration
// from the environment, per the wire contract in SPEC_FULL.md §6.
package config

import (
	"encoding/json"
	"fmt"
	"net"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is loaded once at process start and treated as read-only
// thereafter; callers may share a single *Config across goroutines.
type Config struct {
	RootDomain string

	Cache CacheConfig

	Stealth         bool
	ServiceWorker   bool
	UpstreamTimeout time.Duration

	Cookies CookieConfig

	Mods map[string]bool

	ModManifest []ModManifestEntry

	TLS TLSConfig

	ListenAddr string
}

// CacheConfig controls the edge cache (C8).
type CacheConfig struct {
	Enabled        bool
	TTL            time.Duration
	CacheableTypes []string
}

// CookieConfig holds the compiled glob patterns used to drop
// proxy/root session cookies from outbound requests (C2).
type CookieConfig struct {
	RootPassthrough  []*regexp.Regexp
	ProxyPassthrough []*regexp.Regexp
}

// TLSConfig optionally fronts the listener with an embedded Caddy
// instance for automatic HTTPS (see internal/tlsfront).
type TLSConfig struct {
	Domain string
	Email  string
	Cert   string
	Key    string
}

// ModManifestEntry supplements the MOD_* env flags with a richer,
// data-driven mod description loaded from an optional YAML manifest.
type ModManifestEntry struct {
	ID            string            `yaml:"id"`
	Selector      string            `yaml:"selector"`
	DomainPattern string            `yaml:"domain_pattern"`
	Pattern       string            `yaml:"pattern"`
	Replacement   string            `yaml:"replacement"`
	Dict          map[string]string `yaml:"dict"`
}

var defaultCacheableTypes = []string{
	"image/", "font/", "audio/", "video/",
	"text/css", "text/plain",
	"application/javascript", "application/x-javascript",
	"application/pdf",
	"image/x-icon", "image/vnd.microsoft.icon",
}

// Load reads and validates configuration from the process environment.
// A startup failure here (invalid ROOT_DOMAIN, malformed JSON/glob
// inputs) is fatal — the process must not start with bad config.
func Load() (*Config, error) {
	root := strings.TrimSpace(os.Getenv("ROOT_DOMAIN"))
	if err := validateRootDomain(root); err != nil {
		return nil, fmt.Errorf("ROOT_DOMAIN: %w", err)
	}

	ttl := envInt("CACHE_TTL", 3600)
	cacheableTypes := defaultCacheableTypes
	if raw := os.Getenv("CACHEABLE_TYPES"); raw != "" {
		var types []string
		if err := json.Unmarshal([]byte(raw), &types); err != nil {
			return nil, fmt.Errorf("CACHEABLE_TYPES: %w", err)
		}
		cacheableTypes = types
	}

	rootGlobs, err := jsonStringArray("COOKIE_ROOT_PASSTHROUGH")
	if err != nil {
		return nil, fmt.Errorf("COOKIE_ROOT_PASSTHROUGH: %w", err)
	}
	rootPatterns, err := CompileGlobs(rootGlobs)
	if err != nil {
		return nil, fmt.Errorf("COOKIE_ROOT_PASSTHROUGH: %w", err)
	}
	proxyGlobs, err := jsonStringArray("COOKIE_PROXY_PASSTHROUGH")
	if err != nil {
		return nil, fmt.Errorf("COOKIE_PROXY_PASSTHROUGH: %w", err)
	}
	proxyPatterns, err := CompileGlobs(proxyGlobs)
	if err != nil {
		return nil, fmt.Errorf("COOKIE_PROXY_PASSTHROUGH: %w", err)
	}

	cfg := &Config{
		RootDomain: root,
		Cache: CacheConfig{
			Enabled:        envBool("CACHE_ENABLED", true),
			TTL:            time.Duration(ttl) * time.Second,
			CacheableTypes: cacheableTypes,
		},
		Stealth:         envBool("FEATURES_STEALTH_MODE", true),
		ServiceWorker:   envBool("FEATURES_SERVICE_WORKER", true),
		UpstreamTimeout: envDuration("PROXY_UPSTREAM_TIMEOUT", 30*time.Second),
		Cookies: CookieConfig{
			RootPassthrough:  rootPatterns,
			ProxyPassthrough: proxyPatterns,
		},
		Mods:       modFlags(os.Environ()),
		ListenAddr: envString("LISTEN_ADDR", ":8080"),
		TLS: TLSConfig{
			Domain: os.Getenv("TLS_DOMAIN"),
			Email:  os.Getenv("TLS_EMAIL"),
			Cert:   os.Getenv("TLS_CERT"),
			Key:    os.Getenv("TLS_KEY"),
		},
	}

	if err := cfg.validateTLS(); err != nil {
		return nil, err
	}

	if manifestPath := os.Getenv("MODS_MANIFEST_PATH"); manifestPath != "" {
		entries, err := loadModManifest(manifestPath)
		if err != nil {
			return nil, fmt.Errorf("MODS_MANIFEST_PATH: %w", err)
		}
		cfg.ModManifest = entries
	}

	return cfg, nil
}

// validateRootDomain enforces the §3 invariant: a bare RFC-1123
// hostname, no scheme, no path, no port.
func validateRootDomain(host string) error {
	if host == "" {
		return fmt.Errorf("required")
	}
	if strings.Contains(host, "://") || strings.Contains(host, "/") {
		return fmt.Errorf("must be a bare hostname, not a URL: %q", host)
	}
	if _, _, err := net.SplitHostPort(host); err == nil {
		return fmt.Errorf("must not include a port: %q", host)
	}
	if !rfc1123.MatchString(host) {
		return fmt.Errorf("not a valid RFC-1123 hostname: %q", host)
	}
	return nil
}

var rfc1123 = regexp.MustCompile(`^([a-zA-Z0-9]([a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?\.)+[a-zA-Z]{2,}$`)

func (c *Config) validateTLS() error {
	t := c.TLS
	if t.Domain != "" && t.Email == "" {
		return fmt.Errorf("TLS_EMAIL is required when TLS_DOMAIN is set")
	}
	if (t.Cert != "") != (t.Key != "") {
		return fmt.Errorf("TLS_CERT and TLS_KEY must both be set, or both empty")
	}
	if t.Domain != "" && t.Cert != "" {
		return fmt.Errorf("use TLS_DOMAIN or TLS_CERT/TLS_KEY, not both")
	}
	return nil
}

// modFlags scans the process environment for MOD_* variables and
// returns the set of enabled mod ids (lower-cased, prefix stripped).
func modFlags(environ []string) map[string]bool {
	mods := make(map[string]bool)
	for _, kv := range environ {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(key, "MOD_") {
			continue
		}
		id := strings.ToLower(strings.TrimPrefix(key, "MOD_"))
		mods[id] = parseBoolish(value)
	}
	return mods
}

func loadModManifest(path string) ([]ModManifestEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var entries []ModManifestEntry
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func jsonStringArray(envKey string) ([]string, error) {
	raw := os.Getenv(envKey)
	if raw == "" {
		return nil, nil
	}
	var out []string
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, err
	}
	return out, nil
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	v, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	return parseBoolish(v)
}

func parseBoolish(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "true", "1", "on":
		return true
	case "false", "0", "off", "":
		return false
	default:
		b, err := strconv.ParseBool(v)
		if err != nil {
			return false
		}
		return b
	}
}

func envInt(key string, fallback int) int {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
