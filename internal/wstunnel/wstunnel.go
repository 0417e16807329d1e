// Package wstunnel implements the WebSocket Tunnel (C9): a terminal,
// no-reconnect relay between a client and the resolved upstream target,
// per spec §4.9's state machine (Init -> Upgrading -> Established ->
// Closed).
package wstunnel

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/divortio/stealthproxy/internal/urlrewrite"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

const closeWriteWait = 5 * time.Second

// Tunnel dials the upstream target as a WebSocket, upgrades the client
// connection, and relays frames bidirectionally until either side closes.
// header carries the outbound request headers prepared for the dial
// (already stripped/filtered the way C2's Request Rewriter treats a
// normal upstream fetch). dialer is injected so callers (and tests) can
// supply a non-default TLS configuration; production code passes
// websocket.DefaultDialer.
func Tunnel(w http.ResponseWriter, r *http.Request, target *urlrewrite.Target, header http.Header, dialer *websocket.Dialer) error {
	dialURL := dialURL(target)

	upstreamConn, resp, err := dialer.DialContext(r.Context(), dialURL, header)
	if err != nil {
		return failUpgrade(w, r, err)
	}
	if resp != nil {
		resp.Body.Close()
	}
	defer upstreamConn.Close()

	clientConn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	defer clientConn.Close()

	errc := make(chan error, 2)
	go relay(clientConn, upstreamConn, errc)
	go relay(upstreamConn, clientConn, errc)
	<-errc
	return nil
}

func dialURL(target *urlrewrite.Target) string {
	u := target.URL()
	u = strings.Replace(u, "https://", "wss://", 1)
	return u
}

// failUpgrade handles "upstream did not upgrade": the client connection
// is still accepted so a proper close frame (not a bare HTTP error) can
// report the failure, per spec §4.9.
func failUpgrade(w http.ResponseWriter, r *http.Request, dialErr error) error {
	clientConn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return fmt.Errorf("upstream did not upgrade (%w), and client upgrade also failed: %w", dialErr, err)
	}
	defer clientConn.Close()

	msg := websocket.FormatCloseMessage(1002, "Upstream did not upgrade")
	_ = clientConn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(closeWriteWait))
	return dialErr
}

// relay pumps messages from src to dst until src errors (the connection
// closed or the wire broke), propagating the close code/reason to dst.
func relay(dst, src *websocket.Conn, errc chan<- error) {
	for {
		mt, msg, err := src.ReadMessage()
		if err != nil {
			code, reason := closeCodeReason(err)
			closeMsg := websocket.FormatCloseMessage(code, reason)
			_ = dst.WriteControl(websocket.CloseMessage, closeMsg, time.Now().Add(closeWriteWait))
			errc <- err
			return
		}
		if err := dst.WriteMessage(mt, msg); err != nil {
			closeMsg := websocket.FormatCloseMessage(1011, "Internal Error")
			_ = src.WriteControl(websocket.CloseMessage, closeMsg, time.Now().Add(closeWriteWait))
			errc <- err
			return
		}
	}
}

// closeCodeReason extracts the close (code, reason) pair to propagate to
// the other side of the tunnel, defaulting to 1000 Normal Closure for any
// non-close-frame error (spec §4.9).
func closeCodeReason(err error) (int, string) {
	if ce, ok := err.(*websocket.CloseError); ok {
		return ce.Code, ce.Text
	}
	return websocket.CloseNormalClosure, "Normal Closure"
}
