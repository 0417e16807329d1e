package wstunnel

import (
	"crypto/tls"
	"crypto/x509"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/divortio/stealthproxy/internal/urlrewrite"
)

func dialerFor(t *testing.T, server *httptest.Server) *websocket.Dialer {
	t.Helper()
	pool := x509.NewCertPool()
	pool.AddCert(server.Certificate())
	return &websocket.Dialer{TLSClientConfig: &tls.Config{RootCAs: pool}}
}

func TestTunnelRelaysMessagesBidirectionally(t *testing.T) {
	upstream := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		mt, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		conn.WriteMessage(mt, append([]byte("echo:"), msg...))
		conn.ReadMessage()
	}))
	defer upstream.Close()

	upstreamURL, err := url.Parse(upstream.URL)
	if err != nil {
		t.Fatal(err)
	}
	target := &urlrewrite.Target{Host: upstreamURL.Host, Path: "/ws"}
	dialer := dialerFor(t, upstream)

	proxy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		Tunnel(w, r, target, nil, dialer)
	}))
	defer proxy.Close()

	clientURL := "ws" + strings.TrimPrefix(proxy.URL, "http")
	clientConn, _, err := websocket.DefaultDialer.Dial(clientURL, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer clientConn.Close()

	if err := clientConn.WriteMessage(websocket.TextMessage, []byte("hello")); err != nil {
		t.Fatal(err)
	}
	clientConn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := clientConn.ReadMessage()
	if err != nil {
		t.Fatal(err)
	}
	if string(msg) != "echo:hello" {
		t.Errorf("got %q, want %q", msg, "echo:hello")
	}

	clientConn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(1000, "bye"))
}

func TestTunnelClosesClientWithProtocolErrorWhenUpstreamRejects(t *testing.T) {
	upstream := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "not a websocket endpoint", http.StatusNotFound)
	}))
	defer upstream.Close()

	upstreamURL, err := url.Parse(upstream.URL)
	if err != nil {
		t.Fatal(err)
	}
	target := &urlrewrite.Target{Host: upstreamURL.Host, Path: "/ws"}
	dialer := dialerFor(t, upstream)

	proxy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		Tunnel(w, r, target, nil, dialer)
	}))
	defer proxy.Close()

	clientURL := "ws" + strings.TrimPrefix(proxy.URL, "http")
	clientConn, _, err := websocket.DefaultDialer.Dial(clientURL, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer clientConn.Close()

	clientConn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, _, err = clientConn.ReadMessage()
	closeErr, ok := err.(*websocket.CloseError)
	if !ok {
		t.Fatalf("expected a close error, got %v", err)
	}
	if closeErr.Code != 1002 {
		t.Errorf("close code = %d, want 1002", closeErr.Code)
	}
}
