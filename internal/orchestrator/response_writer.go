package orchestrator

import (
	"bytes"
	"net/http"

	"github.com/divortio/stealthproxy/internal/cache"
)

// maxCachedBodyBytes bounds how much of a cache-candidate response body
// teeWriter retains in memory. Bodies that exceed it are still streamed
// through to the client in full, but are never cached.
const maxCachedBodyBytes = 16 << 20

// teeWriter wraps the real http.ResponseWriter. Only for requests that
// may end up cached (maybeCache) does it retain a bounded copy of the
// body, once the response headers prove it's actually a cache candidate
// (spec §4.8 write-safety filter); every other response — including the
// streaming HTML case, which must never be buffered (spec §9) — passes
// straight through with no retained copy at all.
type teeWriter struct {
	http.ResponseWriter
	status int

	maybeCache     bool
	cacheableTypes []string

	considered     bool
	cacheCandidate bool
	buf            bytes.Buffer
}

func (t *teeWriter) WriteHeader(status int) {
	t.status = status
	t.considerCaching()
	t.ResponseWriter.WriteHeader(status)
}

func (t *teeWriter) Write(b []byte) (int, error) {
	if t.status == 0 {
		t.status = http.StatusOK
		t.considerCaching()
	}
	if t.cacheCandidate {
		if t.buf.Len()+len(b) > maxCachedBodyBytes {
			t.cacheCandidate = false
			t.buf.Reset()
		} else {
			t.buf.Write(b)
		}
	}
	return t.ResponseWriter.Write(b)
}

func (t *teeWriter) considerCaching() {
	if t.considered {
		return
	}
	t.considered = true
	if !t.maybeCache {
		return
	}
	t.cacheCandidate = cache.Cacheable(
		t.status,
		t.Header().Get("Content-Type"),
		t.Header().Get("Cache-Control"),
		t.cacheableTypes,
	)
}
