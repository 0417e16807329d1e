// Package dispatch implements the Response Dispatcher (C7): it applies the
// Header Rewriter and then fans out the response body to a handler chosen
// by Content-Type, per spec §4.7.
package dispatch

import (
	"bytes"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/divortio/stealthproxy/internal/headers"
	"github.com/divortio/stealthproxy/internal/htmlstream"
	"github.com/divortio/stealthproxy/internal/mime"
	"github.com/divortio/stealthproxy/internal/urlrewrite"
)

// maxBodyBytes bounds how much of a buffered (non-streaming) body this
// package will hold in memory, per spec §5's resource policy. A body
// that exceeds it, or fails to read in full, falls back to verbatim
// passthrough rather than being rewritten.
const maxBodyBytes = 16 << 20

// Options configures one Dispatch call.
type Options struct {
	Target   *urlrewrite.Target
	Arena    *urlrewrite.Arena
	TextMods []htmlstream.TextMod
}

// Dispatch rewrites resp's headers, then writes the status line, headers,
// and rewritten body to w. The HTML case streams token-by-token and is
// never buffered; CSS/JS/JSON/XML are read up to maxBodyBytes so
// Content-Length can be recomputed, falling back to verbatim passthrough
// when the body exceeds that cap or fails to read.
func Dispatch(w http.ResponseWriter, resp *http.Response, opts Options) error {
	headers.Rewrite(resp, opts.Target, opts.Arena)
	copyHeader(w.Header(), resp.Header)

	if headers.IsShortcutStatus(resp.StatusCode) {
		w.WriteHeader(resp.StatusCode)
		_, err := io.Copy(w, resp.Body)
		return err
	}

	base, _ := url.Parse(opts.Target.URL())
	contentType := resp.Header.Get("Content-Type")

	switch {
	case strings.Contains(contentType, "text/html"):
		w.Header().Del("Content-Length")
		w.WriteHeader(resp.StatusCode)
		return htmlstream.Transform(w, resp.Body, htmlstream.Options{
			Arena:      opts.Arena,
			Base:       base,
			RootDomain: opts.Arena.RootDomain,
			TextMods:   opts.TextMods,
		})

	case strings.Contains(contentType, "javascript"):
		body, rest, ok := readCapped(resp.Body)
		if !ok {
			return passthrough(w, resp, rest)
		}
		return writeBuffered(w, resp, rewriteJS(body))

	case strings.Contains(contentType, "text/css"):
		body, rest, ok := readCapped(resp.Body)
		if !ok {
			return passthrough(w, resp, rest)
		}
		return writeBuffered(w, resp, mime.RewriteCSS(body, base, opts.Arena))

	case strings.Contains(contentType, "application/json"), strings.Contains(contentType, "application/manifest+json"):
		body, rest, ok := readCapped(resp.Body)
		if !ok {
			return passthrough(w, resp, rest)
		}
		rewritten, err := mime.RewriteJSON(body, base, opts.Arena)
		if err != nil {
			rewritten = body // pass through on parse failure, spec §4.7
		}
		return writeBuffered(w, resp, rewritten)

	case strings.Contains(contentType, "xml"):
		body, rest, ok := readCapped(resp.Body)
		if !ok {
			return passthrough(w, resp, rest)
		}
		return writeBuffered(w, resp, mime.RewriteXML(body, base, opts.Arena))

	case strings.Contains(contentType, "application/pdf"):
		w.Header().Set("Content-Disposition", "attachment")
		w.WriteHeader(resp.StatusCode)
		_, err := io.Copy(w, resp.Body)
		return err

	default:
		w.WriteHeader(resp.StatusCode)
		_, err := io.Copy(w, resp.Body)
		return err
	}
}

func writeBuffered(w http.ResponseWriter, resp *http.Response, body []byte) error {
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(resp.StatusCode)
	_, err := w.Write(body)
	return err
}

// readCapped reads up to maxBodyBytes+1 bytes from r. When the body fits
// within the cap it returns the bytes with ok=true. Otherwise (read
// error, or the cap was exceeded) it returns ok=false along with rest, a
// Reader that reproduces the exact original byte stream — the prefix
// already consumed followed by whatever remains of r — for verbatim
// passthrough.
func readCapped(r io.Reader) (body []byte, rest io.Reader, ok bool) {
	buf, err := io.ReadAll(io.LimitReader(r, maxBodyBytes+1))
	if err != nil || len(buf) > maxBodyBytes {
		return nil, io.MultiReader(bytes.NewReader(buf), r), false
	}
	return buf, nil, true
}

// passthrough writes resp's status and body verbatim, for responses that
// could not be safely buffered and rewritten.
func passthrough(w http.ResponseWriter, resp *http.Response, body io.Reader) error {
	w.WriteHeader(resp.StatusCode)
	_, err := io.Copy(w, body)
	return err
}

func copyHeader(dst, src http.Header) {
	for k, values := range src {
		dst[k] = append([]string(nil), values...)
	}
}
