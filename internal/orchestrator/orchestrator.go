// Package orchestrator implements the Request Orchestrator (C11): it
// composes every other component per request and is the sole place that
// converts component errors into HTTP responses (spec §4.11, §7).
package orchestrator

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"

	"github.com/divortio/stealthproxy/internal/assets"
	"github.com/divortio/stealthproxy/internal/cache"
	"github.com/divortio/stealthproxy/internal/config"
	"github.com/divortio/stealthproxy/internal/dispatch"
	"github.com/divortio/stealthproxy/internal/headers"
	"github.com/divortio/stealthproxy/internal/mods"
	"github.com/divortio/stealthproxy/internal/reqrewrite"
	"github.com/divortio/stealthproxy/internal/urlrewrite"
	"github.com/divortio/stealthproxy/internal/wstunnel"
)

// Orchestrator wires every component into one http.Handler.
type Orchestrator struct {
	Config *config.Config
	Arena  *urlrewrite.Arena
	Cache  cache.Store
	Client *http.Client
	Dialer *websocket.Dialer
}

// New builds an Orchestrator from the loaded configuration and a cache
// store (pass nil to disable caching regardless of cfg.Cache.Enabled).
func New(cfg *config.Config, store cache.Store) *Orchestrator {
	return &Orchestrator{
		Config: cfg,
		Arena:  urlrewrite.NewArena(cfg.RootDomain),
		Cache:  store,
		Client: &http.Client{
			Timeout: cfg.UpstreamTimeout,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse // spec §4.2: redirect = manual
			},
		},
		Dialer: websocket.DefaultDialer,
	}
}

// ServeHTTP implements the full per-request control flow from spec §4.11:
// asset generator -> cache read -> URL resolver/landing/redirect -> mod
// binding -> WebSocket branch or request rewrite+fetch -> dispatch -> async
// cache write, all inside one error boundary.
func (o *Orchestrator) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	defer o.recoverPanic(w)

	if assets.IsAssetPath(r.URL.Path) {
		assets.Serve(w, r, o.Config.RootDomain)
		return
	}

	if r.Method == http.MethodGet && o.Config.Cache.Enabled && o.Cache != nil {
		if entry, ok := o.Cache.Get(cache.Key(r)); ok {
			for k, v := range entry.Header {
				w.Header()[k] = v
			}
			headers.MarkCacheHit(w.Header())
			w.WriteHeader(entry.Status)
			w.Write(entry.Body)
			return
		}
	}

	res, err := o.Arena.Resolve(r.Host, r.URL.Path, r.URL.RawQuery)
	if err != nil {
		if errors.Is(err, urlrewrite.ErrNotProxyable) {
			writeJSONError(w, http.StatusNotFound, "not a proxyable request")
			return
		}
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	if res.Target == nil {
		if proxyURL, ok := o.Arena.RootRedirectTarget(r.URL.RawQuery); ok {
			http.Redirect(w, r, proxyURL, http.StatusFound)
			return
		}
		writeJSONError(w, http.StatusNotFound, "landing page is not served by this proxy")
		return
	}
	target := res.Target

	textMods, err := mods.Bind(o.Config, target.Host)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "mod binding failed")
		return
	}

	if isWebSocketUpgrade(r) {
		dialReq, err := reqrewrite.New(r.Context(), r, target, o.Arena, o.Config.Cookies)
		if err != nil {
			writeJSONError(w, http.StatusBadGateway, err.Error())
			return
		}
		wstunnel.Tunnel(w, r, target, wsDialHeader(dialReq), o.Dialer)
		return
	}

	outReq, err := reqrewrite.New(r.Context(), r, target, o.Arena, o.Config.Cookies)
	if err != nil {
		writeJSONError(w, http.StatusBadGateway, err.Error())
		return
	}

	resp, err := o.Client.Do(outReq)
	if err != nil {
		writeJSONError(w, http.StatusBadGateway, err.Error())
		return
	}
	defer resp.Body.Close()

	tee := &teeWriter{
		ResponseWriter: w,
		maybeCache:     r.Method == http.MethodGet && o.Config.Cache.Enabled && o.Cache != nil,
		cacheableTypes: o.Config.Cache.CacheableTypes,
	}
	dispatchErr := dispatch.Dispatch(tee, resp, dispatch.Options{
		Target:   target,
		Arena:    o.Arena,
		TextMods: textMods,
	})
	if dispatchErr != nil {
		return // body partially written; nothing more we can safely do
	}

	o.maybeCacheWrite(r, tee)
}

func (o *Orchestrator) maybeCacheWrite(r *http.Request, tee *teeWriter) {
	if !tee.cacheCandidate {
		return
	}
	status := tee.status
	if status == 0 {
		status = http.StatusOK
	}

	key := cache.Key(r)
	body := append([]byte(nil), tee.buf.Bytes()...)
	storedHeader := cache.PrepareForCache(tee.Header(), int(o.Config.Cache.TTL.Seconds()))
	entry := &cache.CachedResponse{Status: status, Header: storedHeader, Body: body}
	go o.Cache.Set(key, entry, o.Config.Cache.TTL)
}

func (o *Orchestrator) recoverPanic(w http.ResponseWriter) {
	if r := recover(); r != nil {
		writeJSONError(w, http.StatusInternalServerError, "internal error")
	}
}

// isWebSocketUpgrade reports whether r is a WebSocket upgrade handshake.
func isWebSocketUpgrade(r *http.Request) bool {
	return strings.EqualFold(r.Header.Get("Upgrade"), "websocket") &&
		strings.Contains(strings.ToLower(r.Header.Get("Connection")), "upgrade")
}

// wsDialHeader builds the header set forwarded to the upstream dial,
// stripping the hop-by-hop handshake headers gorilla/websocket computes
// itself (passing them through would panic the dialer).
func wsDialHeader(r *http.Request) http.Header {
	h := r.Header.Clone()
	for _, name := range []string{
		"Upgrade", "Connection", "Sec-Websocket-Key",
		"Sec-Websocket-Version", "Sec-Websocket-Extensions",
		"Sec-Websocket-Protocol", "Content-Length",
	} {
		h.Del(name)
	}
	return h
}
