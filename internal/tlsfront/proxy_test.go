package proxy

import (
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	cfg := &Config{
		ListenAddr:   ":8080",
		InternalAddr: "127.0.0.1:18080",
	}

	p := New(cfg)

	if p.config.ListenAddr != ":8080" {
		t.Errorf("expected listen addr ':8080', got %q", p.config.ListenAddr)
	}
	if p.config.InternalAddr != "127.0.0.1:18080" {
		t.Errorf("expected internal addr '127.0.0.1:18080', got %q", p.config.InternalAddr)
	}
	if p.running {
		t.Error("expected running to be false initially")
	}
}

func TestNewDerivesInternalAddr(t *testing.T) {
	p := New(&Config{ListenAddr: ":9090"})

	if p.config.InternalAddr != "127.0.0.1:19090" {
		t.Errorf("expected derived internal addr '127.0.0.1:19090', got %q", p.config.InternalAddr)
	}
}

func TestComputeInternalAddr(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{":8080", "127.0.0.1:18080"},
		{":3000", "127.0.0.1:13000"},
		{":80", "127.0.0.1:10080"},
		{":443", "127.0.0.1:10443"},
		{"0.0.0.0:8080", "127.0.0.1:18080"},
		{"localhost:9090", "127.0.0.1:19090"},
		{"", "127.0.0.1:18080"},
		{":abc", "127.0.0.1:18080"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result := ComputeInternalAddr(tt.input)
			if result != tt.expected {
				t.Errorf("ComputeInternalAddr(%q) = %q, expected %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestGetInternalAddr(t *testing.T) {
	p := New(&Config{InternalAddr: "127.0.0.1:18080"})

	if p.GetInternalAddr() != "127.0.0.1:18080" {
		t.Errorf("expected '127.0.0.1:18080', got %q", p.GetInternalAddr())
	}
}

func TestIsRunning(t *testing.T) {
	p := New(&Config{ListenAddr: ":8080"})

	if p.IsRunning() {
		t.Error("expected not running initially")
	}

	p.mu.Lock()
	p.running = true
	p.mu.Unlock()

	if !p.IsRunning() {
		t.Error("expected running after setting flag")
	}
}

func TestStop_NotRunning(t *testing.T) {
	p := New(&Config{ListenAddr: ":8080"})

	if err := p.Stop(); err != nil {
		t.Errorf("expected no error stopping non-running proxy: %v", err)
	}
}

func TestBuildCaddyfile_HTTPOnly(t *testing.T) {
	p := New(&Config{
		ListenAddr:   ":8080",
		InternalAddr: "127.0.0.1:18080",
	})

	cf := p.buildCaddyfile()

	if !strings.Contains(cf, "auto_https off") {
		t.Error("expected 'auto_https off' for HTTP-only config")
	}
	if !strings.Contains(cf, "admin off") {
		t.Error("expected 'admin off'")
	}
	if !strings.Contains(cf, ":8080") {
		t.Error("expected listen address ':8080'")
	}
	if !strings.Contains(cf, "reverse_proxy 127.0.0.1:18080") {
		t.Error("expected reverse_proxy directive")
	}
	if !strings.Contains(cf, "X-Forwarded-Proto") {
		t.Error("expected X-Forwarded-Proto header")
	}
	if !strings.Contains(cf, "X-Forwarded-Host") {
		t.Error("expected X-Forwarded-Host header")
	}
	if !strings.Contains(cf, "X-Real-IP") {
		t.Error("expected X-Real-IP header")
	}
}

func TestBuildCaddyfile_AutoHTTPS(t *testing.T) {
	p := New(&Config{
		ListenAddr:   ":443",
		InternalAddr: "127.0.0.1:10443",
		Domain:       "example.com",
		Email:        "admin@example.com",
	})

	cf := p.buildCaddyfile()

	if !strings.Contains(cf, "email admin@example.com") {
		t.Error("expected email directive")
	}
	if !strings.Contains(cf, "admin off") {
		t.Error("expected 'admin off'")
	}
	if !strings.Contains(cf, "example.com") {
		t.Error("expected domain in server block")
	}
	if !strings.Contains(cf, "reverse_proxy 127.0.0.1:10443") {
		t.Error("expected reverse_proxy to internal addr")
	}
	if strings.Contains(cf, "auto_https off") {
		t.Error("should not have 'auto_https off' for domain config")
	}
}

func TestBuildCaddyfile_ManualTLS(t *testing.T) {
	p := New(&Config{
		ListenAddr:   ":443",
		InternalAddr: "127.0.0.1:10443",
		TLSCert:      "/path/to/cert.pem",
		TLSKey:       "/path/to/key.pem",
	})

	cf := p.buildCaddyfile()

	if !strings.Contains(cf, "tls /path/to/cert.pem /path/to/key.pem") {
		t.Error("expected tls directive with cert and key paths")
	}
	if !strings.Contains(cf, "auto_https off") {
		t.Error("expected 'auto_https off' for manual TLS without gateway")
	}
	if !strings.Contains(cf, ":443") {
		t.Error("expected listen address ':443'")
	}
}

func TestBuildCaddyfile_ManualTLS_WithGateway(t *testing.T) {
	p := New(&Config{
		ListenAddr:   ":443",
		InternalAddr: "127.0.0.1:10443",
		TLSCert:      "/path/to/cert.pem",
		TLSKey:       "/path/to/key.pem",
		Gateway:      "/etc/caddy/gateway.conf",
	})

	cf := p.buildCaddyfile()

	if strings.Contains(cf, "auto_https off") {
		t.Error("should not have 'auto_https off' when gateway is set with manual TLS")
	}
	if !strings.Contains(cf, "import /etc/caddy/gateway.conf") {
		t.Error("expected gateway import")
	}
}

func TestBuildCaddyfile_HTTPWithGateway(t *testing.T) {
	p := New(&Config{
		ListenAddr:   ":8080",
		InternalAddr: "127.0.0.1:18080",
		Gateway:      "/etc/caddy/gateway.conf",
	})

	cf := p.buildCaddyfile()

	if strings.Contains(cf, "auto_https off") {
		t.Error("should not have 'auto_https off' when gateway is set")
	}
	if !strings.Contains(cf, "import /etc/caddy/gateway.conf") {
		t.Error("expected gateway import")
	}
}

func TestBuildCaddyfile_NoGateway(t *testing.T) {
	p := New(&Config{
		ListenAddr:   ":8080",
		InternalAddr: "127.0.0.1:18080",
	})

	cf := p.buildCaddyfile()

	if strings.Contains(cf, "import") {
		t.Error("should not have import when no gateway is configured")
	}
}
