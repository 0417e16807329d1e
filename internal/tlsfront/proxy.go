// Package proxy optionally fronts the stealth proxy's plaintext listener
// with an embedded Caddy instance for automatic HTTPS/ACME or a static
// certificate. It never inspects or rewrites proxied content — that is
// entirely the orchestrator's job on the internal listener Caddy forwards
// to.
package proxy

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"

	"github.com/caddyserver/caddy/v2"
	"github.com/caddyserver/caddy/v2/caddyconfig"
	_ "github.com/caddyserver/caddy/v2/caddyconfig/httpcaddyfile"
	_ "github.com/caddyserver/caddy/v2/modules/standard"
)

// Config describes the TLS front door. ListenAddr is the public address
// Caddy binds to; InternalAddr is where the orchestrator's plain
// http.Server listens and Caddy reverse-proxies every request.
type Config struct {
	ListenAddr   string
	InternalAddr string

	Domain string // wildcard/apex domain for automatic HTTPS; empty disables it
	Email  string // ACME account email, required when Domain is set

	TLSCert string // static certificate path, alternative to Domain
	TLSKey  string

	Gateway string // optional path to an additional Caddyfile snippet to import
}

// Proxy manages the embedded Caddy instance's lifecycle.
type Proxy struct {
	config  *Config
	mu      sync.RWMutex
	running bool
}

// New builds a Proxy, deriving InternalAddr from ListenAddr when unset.
func New(cfg *Config) *Proxy {
	if cfg.InternalAddr == "" {
		cfg.InternalAddr = ComputeInternalAddr(cfg.ListenAddr)
	}
	return &Proxy{config: cfg}
}

// ComputeInternalAddr derives a loopback address for the internal
// http.Server from the public listen address, by zero-padding the port to
// four digits and prefixing it with "1" (so :8080 -> 127.0.0.1:18080 and
// :80 -> 127.0.0.1:10080). Falls back to port 8080 when
// listenAddr carries no usable port.
func ComputeInternalAddr(listenAddr string) string {
	_, portStr, err := net.SplitHostPort(listenAddr)
	port, convErr := strconv.Atoi(portStr)
	if err != nil || convErr != nil {
		port = 8080
	}
	return fmt.Sprintf("127.0.0.1:1%04d", port)
}

// Start adapts the Caddyfile and loads it into the embedded Caddy
// instance, which begins listening immediately.
func (p *Proxy) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	adapter := caddyconfig.GetAdapter("caddyfile")
	cfgJSON, _, err := adapter.Adapt([]byte(p.buildCaddyfile()), nil)
	if err != nil {
		return fmt.Errorf("adapt caddyfile: %w", err)
	}
	if err := caddy.Load(cfgJSON, true); err != nil {
		return fmt.Errorf("load caddy config: %w", err)
	}

	p.running = true
	return nil
}

// Stop shuts down the embedded Caddy instance. A no-op when not running.
func (p *Proxy) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.running {
		return nil
	}
	if err := caddy.Stop(); err != nil {
		return fmt.Errorf("stop caddy: %w", err)
	}
	p.running = false
	return nil
}

// IsRunning reports whether the embedded Caddy instance is active.
func (p *Proxy) IsRunning() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.running
}

// GetInternalAddr returns the address the orchestrator's http.Server
// should bind to.
func (p *Proxy) GetInternalAddr() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.config.InternalAddr
}

// buildCaddyfile renders the front door as Caddyfile text rather than
// the raw JSON config, matching the single reverse_proxy directive this
// front door ever needs.
func (p *Proxy) buildCaddyfile() string {
	c := p.config
	manualTLS := c.TLSCert != "" && c.TLSKey != ""

	var global strings.Builder
	global.WriteString("{\n")
	global.WriteString("\tadmin off\n")
	if c.Domain == "" && c.Gateway == "" {
		global.WriteString("\tauto_https off\n")
	}
	if c.Email != "" {
		fmt.Fprintf(&global, "\temail %s\n", c.Email)
	}
	global.WriteString("}\n\n")

	siteAddr := c.Domain
	if siteAddr == "" {
		siteAddr = c.ListenAddr
	}

	var site strings.Builder
	fmt.Fprintf(&site, "%s {\n", siteAddr)
	if c.Gateway != "" {
		fmt.Fprintf(&site, "\timport %s\n", c.Gateway)
	}
	if manualTLS {
		fmt.Fprintf(&site, "\ttls %s %s\n", c.TLSCert, c.TLSKey)
	}
	fmt.Fprintf(&site, "\treverse_proxy %s {\n", c.InternalAddr)
	site.WriteString("\t\theader_up X-Forwarded-Proto {scheme}\n")
	site.WriteString("\t\theader_up X-Forwarded-Host {host}\n")
	site.WriteString("\t\theader_up X-Real-IP {remote_host}\n")
	site.WriteString("\t}\n")
	site.WriteString("}\n")

	return global.String() + site.String()
}
